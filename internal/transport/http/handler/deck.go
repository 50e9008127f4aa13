package handler

import (
	"errors"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"syllabo/internal/app"
	"syllabo/internal/transport/http/middleware"
	"syllabo/internal/transport/http/response"
)

const maxUploadSize = 20 << 20 // 20 MB per file

type DeckHandler struct {
	deckService   *app.DeckService
	ingestService *app.IngestService
}

type CreateDeckRequest struct {
	Name     string `json:"name" binding:"required,max=128"`
	Syllabus string `json:"syllabus" binding:"required"`
}

func NewDeckHandler(deckService *app.DeckService, ingestService *app.IngestService) *DeckHandler {
	return &DeckHandler{deckService: deckService, ingestService: ingestService}
}

func (h *DeckHandler) Create(c *gin.Context) {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid token payload")
		return
	}
	var req CreateDeckRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}
	deck, err := h.deckService.CreateDeck(app.CreateDeckInput{
		UserID:       userID,
		Name:         req.Name,
		SyllabusText: req.Syllabus,
	})
	if err != nil {
		if errors.Is(err, app.ErrInvalidInput) {
			response.Error(c, http.StatusBadRequest, response.CodeBadRequest, err.Error())
		} else {
			response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "create deck failed")
		}
		return
	}
	response.OK(c, deck)
}

func (h *DeckHandler) List(c *gin.Context) {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid token payload")
		return
	}
	decks, err := h.deckService.ListDecks(userID)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "list decks failed")
		return
	}
	response.OK(c, decks)
}

func (h *DeckHandler) Get(c *gin.Context) {
	userID, deckID, ok := deckRequestIDs(c)
	if !ok {
		return
	}
	deck, err := h.deckService.GetDeck(userID, deckID)
	if err != nil {
		if errors.Is(err, app.ErrNotFound) {
			response.Error(c, http.StatusNotFound, response.CodeNotFound, "deck not found")
		} else {
			response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "fetch deck failed")
		}
		return
	}
	response.OK(c, deck)
}

func (h *DeckHandler) Delete(c *gin.Context) {
	userID, deckID, ok := deckRequestIDs(c)
	if !ok {
		return
	}
	if err := h.deckService.DeleteDeck(c.Request.Context(), userID, deckID); err != nil {
		if errors.Is(err, app.ErrNotFound) {
			response.Error(c, http.StatusNotFound, response.CodeNotFound, "deck not found")
		} else {
			response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "delete deck failed")
		}
		return
	}
	response.OK(c, gin.H{"deleted_deck_id": deckID})
}

func (h *DeckHandler) Coverage(c *gin.Context) {
	userID, deckID, ok := deckRequestIDs(c)
	if !ok {
		return
	}
	report, err := h.deckService.Coverage(userID, deckID)
	if err != nil {
		if errors.Is(err, app.ErrNotFound) {
			response.Error(c, http.StatusNotFound, response.CodeNotFound, "deck not found")
		} else {
			response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "compute coverage failed")
		}
		return
	}
	response.OK(c, report)
}

func (h *DeckHandler) Files(c *gin.Context) {
	userID, deckID, ok := deckRequestIDs(c)
	if !ok {
		return
	}
	files, err := h.deckService.Files(userID, deckID)
	if err != nil {
		if errors.Is(err, app.ErrNotFound) {
			response.Error(c, http.StatusNotFound, response.CodeNotFound, "deck not found")
		} else {
			response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "list files failed")
		}
		return
	}
	response.OK(c, files)
}

// Upload accepts a multipart form with one or more "files" entries and
// queues the batch for asynchronous ingestion.
func (h *DeckHandler) Upload(c *gin.Context) {
	userID, deckID, ok := deckRequestIDs(c)
	if !ok {
		return
	}

	form, err := c.MultipartForm()
	if err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid multipart form")
		return
	}
	fileHeaders := form.File["files"]
	if len(fileHeaders) == 0 {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "missing files")
		return
	}

	uploads := make([]app.Upload, 0, len(fileHeaders))
	closers := make([]func() error, 0, len(fileHeaders))
	defer func() {
		for _, cl := range closers {
			cl()
		}
	}()
	for _, fh := range fileHeaders {
		if fh.Size > maxUploadSize {
			response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "file too large (max 20MB): "+fh.Filename)
			return
		}
		ext := strings.ToLower(filepath.Ext(fh.Filename))
		if ext != ".pdf" && ext != ".txt" && ext != ".md" {
			response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "unsupported file type: "+fh.Filename)
			return
		}
		f, err := fh.Open()
		if err != nil {
			response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "failed to read file")
			return
		}
		closers = append(closers, f.Close)
		uploads = append(uploads, app.Upload{Filename: fh.Filename, Reader: f})
	}

	if err := h.ingestService.Enqueue(c.Request.Context(), userID, deckID, uploads); err != nil {
		switch {
		case errors.Is(err, app.ErrInvalidInput):
			response.Error(c, http.StatusBadRequest, response.CodeBadRequest, err.Error())
		case errors.Is(err, app.ErrNotFound):
			response.Error(c, http.StatusNotFound, response.CodeNotFound, "deck not found")
		case errors.Is(err, app.ErrIngestionBusy):
			response.Error(c, http.StatusConflict, response.CodeConflict, err.Error())
		default:
			response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "queue ingestion failed")
		}
		return
	}

	response.OK(c, gin.H{
		"deck_id": deckID,
		"queued":  len(uploads),
	})
}

func deckRequestIDs(c *gin.Context) (userID, deckID uint, ok bool) {
	userID, ok = getUserIDFromContext(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid token payload")
		return 0, 0, false
	}
	deckID, err := parseUintParam(c, "id")
	if err != nil || deckID == 0 {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid deck id")
		return 0, 0, false
	}
	return userID, deckID, true
}

func getUserIDFromContext(c *gin.Context) (uint, bool) {
	userIDAny, exists := c.Get(middleware.ContextUserIDKey)
	if !exists {
		return 0, false
	}
	userID, ok := userIDAny.(uint)
	return userID, ok
}

func parseUintParam(c *gin.Context, key string) (uint, error) {
	s := c.Param(key)
	u, err := strconv.ParseUint(s, 10, 64)
	return uint(u), err
}
