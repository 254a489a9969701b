package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/schulwerk/untis-speech-api/internal/service"
	appErrors "github.com/schulwerk/untis-speech-api/pkg/errors"
	"github.com/schulwerk/untis-speech-api/pkg/response"
)

type speechService interface {
	Speakable(ctx context.Context, req service.SpeakableRequest) (*service.SpeakableResult, error)
}

// SpeakableHandler exposes the deviation report endpoint.
type SpeakableHandler struct {
	service speechService
}

// NewSpeakableHandler constructs handler.
func NewSpeakableHandler(svc speechService) *SpeakableHandler {
	return &SpeakableHandler{service: svc}
}

// Speakable godoc
// @Summary Render today's timetable deviations as speech
// @Tags Speakable
// @Accept json
// @Produce json
// @Param payload body service.SpeakableRequest true "WebUntis credentials"
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /speakable [post]
func (h *SpeakableHandler) Speakable(c *gin.Context) {
	var req service.SpeakableRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid request body"))
		return
	}

	result, err := h.service.Speakable(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result)
}
