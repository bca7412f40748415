package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/assessly/assessly-backend/internal/engine"
	"github.com/assessly/assessly-backend/internal/llm"
	"github.com/assessly/assessly-backend/internal/model"
	"github.com/assessly/assessly-backend/internal/response"
	"github.com/assessly/assessly-backend/internal/service"
	"github.com/assessly/assessly-backend/internal/validator"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// SessionHandler exposes the assessment session lifecycle over HTTP.
type SessionHandler struct {
	sessions *service.SessionService
}

// NewSessionHandler creates a new SessionHandler.
func NewSessionHandler(sessions *service.SessionService) *SessionHandler {
	return &SessionHandler{sessions: sessions}
}

// CreateSession godoc
// POST /api/v1/sessions
func (h *SessionHandler) CreateSession(c *gin.Context) {
	var req model.TestConfig
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	created, err := h.sessions.Create(c.Request.Context(), req)
	if err != nil {
		failSessionError(c, err)
		return
	}

	response.Success(c, http.StatusCreated, created)
}

// GetSession godoc
// GET /api/v1/sessions/:sessionId
func (h *SessionHandler) GetSession(c *gin.Context) {
	sessionID, ok := parseSessionID(c)
	if !ok {
		return
	}

	view, err := h.sessions.State(sessionID)
	if err != nil {
		failSessionError(c, err)
		return
	}

	response.Success(c, http.StatusOK, view)
}

// GetPaper godoc
// GET /api/v1/sessions/:sessionId/paper
func (h *SessionHandler) GetPaper(c *gin.Context) {
	sessionID, ok := parseSessionID(c)
	if !ok {
		return
	}

	questions, err := h.sessions.Paper(sessionID)
	if err != nil {
		failSessionError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"questions": questions})
}

// SetAnswer godoc
// PUT /api/v1/sessions/:sessionId/answers/:index
func (h *SessionHandler) SetAnswer(c *gin.Context) {
	sessionID, ok := parseSessionID(c)
	if !ok {
		return
	}

	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation,
			map[string]string{"index": "must be a question index"})
		return
	}

	var req model.SetAnswerRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	answer, err := h.sessions.Answer(sessionID, index, req.Value)
	if err != nil {
		failSessionError(c, err)
		return
	}

	response.Success(c, http.StatusOK, answer)
}

// Navigate godoc
// POST /api/v1/sessions/:sessionId/navigate
func (h *SessionHandler) Navigate(c *gin.Context) {
	sessionID, ok := parseSessionID(c)
	if !ok {
		return
	}

	var req model.NavigateRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	view, err := h.sessions.Navigate(sessionID, req.Target)
	if err != nil {
		failSessionError(c, err)
		return
	}

	response.Success(c, http.StatusOK, view)
}

// Submit godoc
// POST /api/v1/sessions/:sessionId/submit
func (h *SessionHandler) Submit(c *gin.Context) {
	sessionID, ok := parseSessionID(c)
	if !ok {
		return
	}

	result, err := h.sessions.Submit(c.Request.Context(), sessionID)
	if err != nil {
		failSessionError(c, err)
		return
	}

	response.Success(c, http.StatusOK, result)
}

// parseSessionID extracts and validates the :sessionId route param. It
// writes the failure response itself so handlers can return early.
func parseSessionID(c *gin.Context) (uuid.UUID, bool) {
	sessionID, err := uuid.Parse(c.Param("sessionId"))
	if err != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation,
			map[string]string{"sessionId": "must be a valid UUID"})
		return uuid.Nil, false
	}
	return sessionID, true
}

// failSessionError maps service and engine errors onto the response
// envelope.
func failSessionError(c *gin.Context, err error) {
	var validationErr *engine.ValidationError
	var upstreamErr *engine.UpstreamError

	switch {
	case errors.Is(err, service.ErrSessionNotFound):
		response.Fail(c, http.StatusNotFound, response.ErrSessionNotFound)
	case errors.Is(err, engine.ErrSessionClosed):
		response.Fail(c, http.StatusConflict, response.ErrSessionClosed)
	case errors.Is(err, service.ErrResultNotReady):
		response.Fail(c, http.StatusConflict, response.ErrResultNotReady)
	case errors.Is(err, llm.ErrMissingCredential):
		response.Fail(c, http.StatusPreconditionFailed, response.ErrMissingCredential)
	case errors.As(err, &validationErr):
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation,
			map[string]string{validationErr.Field: validationErr.Reason})
	case errors.As(err, &upstreamErr):
		response.Fail(c, http.StatusBadGateway, response.ErrUpstreamUnavailable)
	default:
		var unavail *llm.ErrUnavailable
		if errors.As(err, &unavail) {
			response.Fail(c, http.StatusBadGateway, response.ErrUpstreamUnavailable)
			return
		}
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
	}
}
