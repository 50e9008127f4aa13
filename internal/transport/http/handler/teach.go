package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"syllabo/internal/ai"
	"syllabo/internal/app"
	"syllabo/internal/transport/http/response"
)

type TeachHandler struct {
	teachService *app.TeachService
}

type StartTeachingRequest struct {
	Pace string `json:"pace"`
}

type TeachingTurnRequest struct {
	Message string `json:"message"`
}

func NewTeachHandler(teachService *app.TeachService) *TeachHandler {
	return &TeachHandler{teachService: teachService}
}

func (h *TeachHandler) Start(c *gin.Context) {
	userID, deckID, ok := deckRequestIDs(c)
	if !ok {
		return
	}
	// Body is optional; an absent pace keeps the session's current one.
	var req StartTeachingRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
			return
		}
	}

	result, err := h.teachService.Start(c.Request.Context(), userID, deckID, req.Pace)
	if err != nil {
		h.writeError(c, err, "start teaching failed")
		return
	}
	response.OK(c, result)
}

func (h *TeachHandler) Turn(c *gin.Context) {
	userID, deckID, ok := deckRequestIDs(c)
	if !ok {
		return
	}
	var req TeachingTurnRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}

	result, err := h.teachService.Turn(c.Request.Context(), userID, deckID, req.Message)
	if err != nil {
		h.writeError(c, err, "teaching turn failed")
		return
	}
	response.OK(c, result)
}

func (h *TeachHandler) Progress(c *gin.Context) {
	userID, deckID, ok := deckRequestIDs(c)
	if !ok {
		return
	}
	progress, err := h.teachService.Progress(userID, deckID)
	if err != nil {
		h.writeError(c, err, "fetch progress failed")
		return
	}
	response.OK(c, progress)
}

func (h *TeachHandler) Session(c *gin.Context) {
	userID, deckID, ok := deckRequestIDs(c)
	if !ok {
		return
	}
	sess, err := h.teachService.Session(userID, deckID)
	if err != nil {
		if errors.Is(err, app.ErrNotFound) {
			response.Error(c, http.StatusNotFound, response.CodeNotFound, "no active session")
		} else {
			response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "fetch session failed")
		}
		return
	}
	response.OK(c, sess)
}

func (h *TeachHandler) EndSession(c *gin.Context) {
	userID, deckID, ok := deckRequestIDs(c)
	if !ok {
		return
	}
	if err := h.teachService.EndSession(c.Request.Context(), userID, deckID); err != nil {
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "end session failed")
		return
	}
	response.OK(c, gin.H{"deck_id": deckID})
}

func (h *TeachHandler) writeError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, app.ErrInvalidInput):
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, err.Error())
	case errors.Is(err, app.ErrNoTopics):
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, err.Error())
	case errors.Is(err, app.ErrNotFound):
		response.Error(c, http.StatusNotFound, response.CodeNotFound, "deck not found")
	case errors.Is(err, ai.ErrEmbeddingService), errors.Is(err, ai.ErrModelService):
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "model service unavailable, try again")
	default:
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, fallback)
	}
}
