package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"syllabo/internal/ai"
	"syllabo/internal/app"
	"syllabo/internal/practice"
	"syllabo/internal/transport/http/response"
)

type PracticeHandler struct {
	practiceService *app.PracticeService
}

type PracticeRequest struct {
	Topic string `json:"topic"`
	Count int    `json:"count" binding:"min=0,max=20"`
}

func NewPracticeHandler(practiceService *app.PracticeService) *PracticeHandler {
	return &PracticeHandler{practiceService: practiceService}
}

func (h *PracticeHandler) Generate(c *gin.Context) {
	userID, deckID, ok := deckRequestIDs(c)
	if !ok {
		return
	}
	var req PracticeRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
			return
		}
	}

	result, err := h.practiceService.Generate(c.Request.Context(), app.PracticeInput{
		UserID: userID,
		DeckID: deckID,
		Topic:  req.Topic,
		Count:  req.Count,
	})
	if err != nil {
		switch {
		case errors.Is(err, app.ErrInvalidInput), errors.Is(err, app.ErrNoTopics):
			response.Error(c, http.StatusBadRequest, response.CodeBadRequest, err.Error())
		case errors.Is(err, app.ErrNotFound):
			response.Error(c, http.StatusNotFound, response.CodeNotFound, "deck or topic not found")
		case errors.Is(err, practice.ErrGenerationFormat):
			response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "question generation failed, try again")
		case errors.Is(err, ai.ErrEmbeddingService), errors.Is(err, ai.ErrModelService):
			response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "model service unavailable, try again")
		default:
			response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "generate practice failed")
		}
		return
	}

	response.OK(c, result)
}
