package handlers

import (
	"context"
	"net/http"

	"taskboard/backend/internal/models"
	"taskboard/backend/internal/presenters"
	"taskboard/backend/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/gofrs/uuid"
)

type AccountManager interface {
	Register(ctx context.Context, req services.RegistrationRequest) (*models.User, string, error)
	Login(ctx context.Context, username, password string) (*models.User, string, error)
	GetUser(ctx context.Context, principal uuid.UUID) (*models.User, error)
	DeleteUser(ctx context.Context, principal uuid.UUID) error
}

type AccountHandler struct {
	accounts AccountManager
}

func NewAccountHandler(accounts AccountManager) *AccountHandler {
	return &AccountHandler{accounts: accounts}
}

type RegisterRequest struct {
	Username string `json:"username" binding:"required"`
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type AuthResponse struct {
	User  presenters.UserProfile `json:"user"`
	Token string                 `json:"token"`
}

func (h *AccountHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "", err)
		return
	}

	user, token, err := h.accounts.Register(c.Request.Context(), services.RegistrationRequest{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, AuthResponse{User: presenters.ToUserProfile(*user), Token: token})
}

func (h *AccountHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "", err)
		return
	}

	user, token, err := h.accounts.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, AuthResponse{User: presenters.ToUserProfile(*user), Token: token})
}

func (h *AccountHandler) GetUser(c *gin.Context) {
	id, ok := principal(c)
	if !ok {
		return
	}

	user, err := h.accounts.GetUser(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": presenters.ToUserProfile(*user)})
}

func (h *AccountHandler) DeleteUser(c *gin.Context) {
	id, ok := principal(c)
	if !ok {
		return
	}

	if err := h.accounts.DeleteUser(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "account deleted"})
}
