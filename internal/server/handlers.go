package server

import (
	"errors"
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"

	"github.com/vietddude/fluxgen/internal/core/domain"
	"github.com/vietddude/fluxgen/internal/diagnose"
	"github.com/vietddude/fluxgen/internal/session"
)

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}

// diagnosisStatus maps a diagnosis to the HTTP status returned with it.
func diagnosisStatus(diag domain.ErrorDiagnosis, attempts int) int {
	switch {
	case diag.Category == domain.CategoryClientNotReady:
		return http.StatusPreconditionFailed
	case diag.Category == domain.CategoryInvalidParameters && attempts == 0:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusBadGateway
	}
}

// writeProviderError renders classified provider failures with their
// diagnosis and anything else as a plain error.
func writeProviderError(c *gin.Context, err error) {
	var derr *session.DiagnosedError
	if errors.As(err, &derr) {
		c.JSON(diagnosisStatus(derr.Diagnosis, 1), gin.H{"diagnosis": derr.Diagnosis})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
}

func (s *Server) handleListModels(c *gin.Context) {
	sess := currentSession(c)
	c.JSON(http.StatusOK, gin.H{
		"models":            sess.Models(),
		"last_custom_model": sess.LastCustomModel(),
	})
}

func (s *Server) handleAddCustomModel(c *gin.Context) {
	var req customModelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	info, err := currentSession(c).AddCustomModel(req.ID, req.Name, req.Description, req.Icon)
	switch {
	case errors.Is(err, session.ErrDuplicateModel):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case err != nil:
		badRequest(c, err)
	default:
		c.JSON(http.StatusCreated, info)
	}
}

func settingsView(sess *session.Session) settingsResponse {
	st := sess.Settings()
	return settingsResponse{
		BaseURL:   st.BaseURL,
		Model:     st.Model,
		HasAPIKey: st.HasAPIKey(),
		Ready:     sess.Ready(),
	}
}

func (s *Server) handleGetSettings(c *gin.Context) {
	c.JSON(http.StatusOK, settingsView(currentSession(c)))
}

func (s *Server) handleUpdateSettings(c *gin.Context) {
	var req settingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	sess := currentSession(c)
	settings := sess.Settings()
	if req.APIKey != nil {
		settings.APIKey = *req.APIKey
	}
	if req.BaseURL != "" {
		settings.BaseURL = req.BaseURL
	}
	if req.Model != "" {
		settings.Model = req.Model
	}

	if err := sess.Configure(settings); err != nil {
		badRequest(c, err)
		return
	}
	c.JSON(http.StatusOK, settingsView(sess))
}

func (s *Server) handleGenerate(c *gin.Context) {
	var req generateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	outcome := currentSession(c).Generate(c.Request.Context(), req.toDomain())
	resp := newOutcomeResponse(outcome)
	if resp.Success {
		c.JSON(http.StatusOK, resp)
		return
	}
	c.JSON(diagnosisStatus(*resp.Diagnosis, resp.Attempts), resp)
}

func (s *Server) handleDiagnose(c *gin.Context) {
	var req diagnoseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	c.JSON(http.StatusOK, diagnose.Classify(req.Message, req.Context))
}

func (s *Server) handleConnectivity(c *gin.Context) {
	models, err := currentSession(c).TestConnectivity(c.Request.Context())
	if err != nil {
		writeProviderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "models": models})
}

func (s *Server) handleOptimize(c *gin.Context) {
	var req optimizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	prompt, err := currentSession(c).OptimizePrompt(c.Request.Context(), req.Prompt)
	if err != nil {
		writeProviderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"prompt": prompt})
}

func (s *Server) handleDescribe(c *gin.Context) {
	var req describeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	prompt, err := currentSession(c).DescribeImage(c.Request.Context(), req.ImageURL)
	if err != nil {
		writeProviderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"prompt": prompt})
}

func (s *Server) handleHistory(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"generations": currentSession(c).Generations()})
}

func (s *Server) handleAttempts(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"attempts": currentSession(c).Dispatcher().History()})
}

func (s *Server) handleStats(c *gin.Context) {
	stats := currentSession(c).Dispatcher().Stats()
	c.JSON(http.StatusOK, statsResponse{SessionStats: stats, SuccessRate: stats.SuccessRate()})
}

func (s *Server) handleResetStats(c *gin.Context) {
	currentSession(c).Dispatcher().ResetStats()
	c.Status(http.StatusNoContent)
}

func (s *Server) handleFavorites(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"favorites": currentSession(c).Favorites()})
}

func (s *Server) handleToggleFavorite(c *gin.Context) {
	var req favoriteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	favorite := currentSession(c).ToggleFavorite(req.URL)
	c.JSON(http.StatusOK, gin.H{"url": req.URL, "favorite": favorite})
}

func (s *Server) handleEndSession(c *gin.Context) {
	sess := currentSession(c)
	if err := s.manager.Delete(c.Request.Context(), sess.ID); err != nil {
		s.log.Warn("Failed to delete session snapshot", "session", sess.ID, "error", err)
	}
	c.Set(sessionEndedKey, true)

	cookie := sessions.Default(c)
	cookie.Clear()
	cookie.Options(sessions.Options{Path: "/", MaxAge: -1})
	if err := cookie.Save(); err != nil {
		s.log.Warn("Failed to clear session cookie", "session", sess.ID, "error", err)
	}
	c.Status(http.StatusNoContent)
}
