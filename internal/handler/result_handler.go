package handler

import (
	"net/http"
	"strconv"

	"github.com/assessly/assessly-backend/internal/response"
	"github.com/assessly/assessly-backend/internal/service"
	"github.com/gin-gonic/gin"
)

// ResultHandler serves graded results and per-question explanations.
type ResultHandler struct {
	results *service.ResultService
}

// NewResultHandler creates a new ResultHandler.
func NewResultHandler(results *service.ResultService) *ResultHandler {
	return &ResultHandler{results: results}
}

// GetResult godoc
// GET /api/v1/sessions/:sessionId/result
func (h *ResultHandler) GetResult(c *gin.Context) {
	sessionID, ok := parseSessionID(c)
	if !ok {
		return
	}

	result, err := h.results.Get(c.Request.Context(), sessionID)
	if err != nil {
		failSessionError(c, err)
		return
	}

	response.Success(c, http.StatusOK, result)
}

// ExplainQuestion godoc
// POST /api/v1/sessions/:sessionId/questions/:index/explanation
func (h *ResultHandler) ExplainQuestion(c *gin.Context) {
	sessionID, ok := parseSessionID(c)
	if !ok {
		return
	}

	index, err := strconv.Atoi(c.Param("index"))
	if err != nil || index < 0 {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation,
			map[string]string{"index": "must be a question index"})
		return
	}

	explanation, err := h.results.Explain(c.Request.Context(), sessionID, index)
	if err != nil {
		failSessionError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"explanation": explanation})
}
