package handler

import (
	"net/http"

	"github.com/assessly/assessly-backend/internal/model"
	"github.com/assessly/assessly-backend/internal/prefs"
	"github.com/assessly/assessly-backend/internal/response"
	"github.com/assessly/assessly-backend/internal/validator"
	"github.com/gin-gonic/gin"
)

// allowedSettings bounds what the settings API may touch.
var allowedSettings = map[string]bool{
	model.SettingGroqAPIKey: true,
	model.SettingGroqModel:  true,
}

// SettingHandler manages operator preferences such as the LLM credential.
type SettingHandler struct {
	store *prefs.Store
}

// NewSettingHandler creates a new SettingHandler.
func NewSettingHandler(store *prefs.Store) *SettingHandler {
	return &SettingHandler{store: store}
}

// GetSettings godoc
// GET /api/v1/settings
func (h *SettingHandler) GetSettings(c *gin.Context) {
	settings, err := h.store.All(c.Request.Context())
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"settings": settings})
}

// UpdateSettings godoc
// PUT /api/v1/settings
func (h *SettingHandler) UpdateSettings(c *gin.Context) {
	var req model.UpdateSettingsRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	for key := range req.Settings {
		if !allowedSettings[key] {
			response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation,
				map[string]string{key: "unknown setting"})
			return
		}
	}

	for key, value := range req.Settings {
		if err := h.store.Set(c.Request.Context(), key, value); err != nil {
			response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
			return
		}
	}

	response.Success(c, http.StatusOK, gin.H{"message": "settings updated successfully"})
}
