package handlers

import (
	"context"
	"net/http"

	"taskboard/backend/internal/presenters"
	"taskboard/backend/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/gofrs/uuid"
)

type SharedUserManager interface {
	CreateSharedUser(ctx context.Context, principal uuid.UUID, boardRef, email string) (*presenters.SharedUser, error)
	DeleteSharedUser(ctx context.Context, principal uuid.UUID, boardRef, email string) error
}

type SharedUserHandler struct {
	grants SharedUserManager
}

func NewSharedUserHandler(grants SharedUserManager) *SharedUserHandler {
	return &SharedUserHandler{grants: grants}
}

type sharedUserRequest struct {
	BoardID         string `json:"board_id"`
	SharedUserEmail string `json:"shared_user_email"`
}

func bindSharedUser(c *gin.Context) (sharedUserRequest, bool) {
	var req sharedUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "", err)
		return req, false
	}
	if req.BoardID == "" {
		respondError(c, services.InvalidArgument("board_id", "board_id is required"))
		return req, false
	}
	return req, true
}

func (h *SharedUserHandler) CreateSharedUser(c *gin.Context) {
	user, ok := principal(c)
	if !ok {
		return
	}
	req, ok := bindSharedUser(c)
	if !ok {
		return
	}

	shared, err := h.grants.CreateSharedUser(c.Request.Context(), user, req.BoardID, req.SharedUserEmail)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"shared_user": shared.User,
		"board_id":    shared.BoardID,
	})
}

func (h *SharedUserHandler) DeleteSharedUser(c *gin.Context) {
	user, ok := principal(c)
	if !ok {
		return
	}
	req, ok := bindSharedUser(c)
	if !ok {
		return
	}

	if err := h.grants.DeleteSharedUser(c.Request.Context(), user, req.BoardID, req.SharedUserEmail); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "shared user removed"})
}
