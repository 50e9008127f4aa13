package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"syllabo/internal/ai"
	"syllabo/internal/app"
	"syllabo/internal/transport/http/response"
)

type QueryHandler struct {
	queryService *app.QueryService
}

type AskRequest struct {
	Query string `json:"query" binding:"required"`
	Pace  string `json:"pace"`
}

func NewQueryHandler(queryService *app.QueryService) *QueryHandler {
	return &QueryHandler{queryService: queryService}
}

func (h *QueryHandler) Ask(c *gin.Context) {
	userID, deckID, ok := deckRequestIDs(c)
	if !ok {
		return
	}
	var req AskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}

	result, err := h.queryService.Ask(c.Request.Context(), app.AskInput{
		UserID: userID,
		DeckID: deckID,
		Query:  req.Query,
		Pace:   req.Pace,
	})
	if err != nil {
		switch {
		case errors.Is(err, app.ErrInvalidInput):
			response.Error(c, http.StatusBadRequest, response.CodeBadRequest, err.Error())
		case errors.Is(err, app.ErrNotFound):
			response.Error(c, http.StatusNotFound, response.CodeNotFound, "deck not found")
		case errors.Is(err, ai.ErrEmbeddingService), errors.Is(err, ai.ErrModelService):
			response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "model service unavailable, try again")
		default:
			response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "ask failed")
		}
		return
	}

	response.OK(c, result)
}

func (h *QueryHandler) History(c *gin.Context) {
	userID, deckID, ok := deckRequestIDs(c)
	if !ok {
		return
	}
	logs, err := h.queryService.History(userID, deckID)
	if err != nil {
		if errors.Is(err, app.ErrNotFound) {
			response.Error(c, http.StatusNotFound, response.CodeNotFound, "deck not found")
		} else {
			response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "list query history failed")
		}
		return
	}
	response.OK(c, logs)
}
