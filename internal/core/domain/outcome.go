package domain

import "time"

// Image is one generated image reference.
type Image struct {
	URL           string `json:"url,omitempty"`
	B64JSON       string `json:"b64_json,omitempty"`
	RevisedPrompt string `json:"revised_prompt,omitempty"`
}

// AttemptRecord is one entry of the attempt log.
type AttemptRecord struct {
	Sequence  int             `json:"sequence"`
	Timestamp time.Time       `json:"timestamp"`
	Model     string          `json:"model"`
	Success   bool            `json:"success"`
	Diagnosis *ErrorDiagnosis `json:"diagnosis,omitempty"`
	// Delay is the backoff waited after this attempt, zero if none.
	Delay time.Duration `json:"delay"`
}

// Outcome is the result of one dispatch: either *Success or *Failure.
type Outcome interface {
	AttemptCount() int
	Records() []AttemptRecord
	outcome()
}

// Success reports the images and the model that finally served them.
type Success struct {
	Images   []Image         `json:"images"`
	Attempts int             `json:"attempts"`
	Model    string          `json:"model"`
	History  []AttemptRecord `json:"history"`
}

// Failure reports the last diagnosis and the attempts made.
type Failure struct {
	Diagnosis ErrorDiagnosis  `json:"diagnosis"`
	Attempts  int             `json:"attempts"`
	History   []AttemptRecord `json:"history"`
}

func (s *Success) AttemptCount() int        { return s.Attempts }
func (s *Success) Records() []AttemptRecord { return s.History }
func (*Success) outcome()                   {}

func (f *Failure) AttemptCount() int        { return f.Attempts }
func (f *Failure) Records() []AttemptRecord { return f.History }
func (*Failure) outcome()                   {}

// SessionStats are per-session dispatch counters.
type SessionStats struct {
	Total      int              `json:"total"`
	Succeeded  int              `json:"succeeded"`
	Failed     int              `json:"failed"`
	Retried    int              `json:"retried"`
	ByCategory map[Category]int `json:"by_category"`
}

// SuccessRate returns Succeeded/Total, or 0 with no dispatches.
func (s SessionStats) SuccessRate() float64 {
	if s.Total == 0 {
		return 0
	}
	return float64(s.Succeeded) / float64(s.Total)
}
