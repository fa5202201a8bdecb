package handlers

import (
	"context"
	"net/http"

	"taskboard/backend/internal/models"
	"taskboard/backend/internal/presenters"

	"github.com/gin-gonic/gin"
	"github.com/gofrs/uuid"
)

type BoardManager interface {
	CreateBoard(ctx context.Context, principal uuid.UUID, title string) (*models.Board, error)
	GetBoardDetail(ctx context.Context, principal uuid.UUID, ref string) (*presenters.BoardDetail, error)
	UpdateBoard(ctx context.Context, principal uuid.UUID, ref, title string) error
	DeleteBoard(ctx context.Context, principal uuid.UUID, ref string) error
	ListBoards(ctx context.Context, principal uuid.UUID) (*presenters.BoardList, error)
}

type BoardHandler struct {
	boards BoardManager
}

func NewBoardHandler(boards BoardManager) *BoardHandler {
	return &BoardHandler{boards: boards}
}

type boardRequest struct {
	Title string `json:"title"`
}

func (h *BoardHandler) CreateBoard(c *gin.Context) {
	user, ok := principal(c)
	if !ok {
		return
	}

	var req boardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "", err)
		return
	}

	board, err := h.boards.CreateBoard(c.Request.Context(), user, req.Title)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"board": presenters.ToBoard(*board)})
}

func (h *BoardHandler) GetBoard(c *gin.Context) {
	user, ok := principal(c)
	if !ok {
		return
	}

	detail, err := h.boards.GetBoardDetail(c.Request.Context(), user, c.Param("ref"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, detail)
}

func (h *BoardHandler) UpdateBoard(c *gin.Context) {
	user, ok := principal(c)
	if !ok {
		return
	}

	var req boardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "", err)
		return
	}

	if err := h.boards.UpdateBoard(c.Request.Context(), user, c.Param("ref"), req.Title); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *BoardHandler) DeleteBoard(c *gin.Context) {
	user, ok := principal(c)
	if !ok {
		return
	}

	if err := h.boards.DeleteBoard(c.Request.Context(), user, c.Param("ref")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "board deleted"})
}

func (h *BoardHandler) ListBoards(c *gin.Context) {
	user, ok := principal(c)
	if !ok {
		return
	}

	list, err := h.boards.ListBoards(c.Request.Context(), user)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}
