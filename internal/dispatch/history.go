package dispatch

import "github.com/vietddude/fluxgen/internal/core/domain"

// attemptLog keeps the most recent records; the oldest is evicted first.
// Not safe for concurrent use, the Dispatcher guards it.
type attemptLog struct {
	limit   int
	seq     int
	records []domain.AttemptRecord
}

func newAttemptLog(limit int) *attemptLog {
	if limit < 1 {
		limit = 1
	}
	return &attemptLog{
		limit:   limit,
		records: make([]domain.AttemptRecord, 0, limit),
	}
}

// add stamps the next sequence number on r, stores it and returns it.
func (l *attemptLog) add(r domain.AttemptRecord) domain.AttemptRecord {
	l.seq++
	r.Sequence = l.seq
	if len(l.records) == l.limit {
		copy(l.records, l.records[1:])
		l.records = l.records[:l.limit-1]
	}
	l.records = append(l.records, r)
	return r
}

func (l *attemptLog) snapshot() []domain.AttemptRecord {
	out := make([]domain.AttemptRecord, len(l.records))
	copy(out, l.records)
	return out
}

func (l *attemptLog) len() int {
	return len(l.records)
}
