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

type TaskManager interface {
	CreateTask(ctx context.Context, principal uuid.UUID, in services.CreateTaskInput) (*models.Task, error)
	GetTask(ctx context.Context, principal, taskID uuid.UUID) (*models.Task, error)
	UpdateTask(ctx context.Context, principal, taskID uuid.UUID, patch services.TaskPatch) (*models.Task, error)
	DeleteTask(ctx context.Context, principal, taskID uuid.UUID) error
}

type TaskHandler struct {
	tasks TaskManager
}

func NewTaskHandler(tasks TaskManager) *TaskHandler {
	return &TaskHandler{tasks: tasks}
}

type createTaskRequest struct {
	BoardID        string  `json:"board_id"`
	Title          string  `json:"title"`
	Description    *string `json:"description"`
	ProgressStatus *string `json:"progress_status"`
	Priority       *int    `json:"priority"`
}

type updateTaskRequest struct {
	Title          *string `json:"title"`
	Description    *string `json:"description"`
	ProgressStatus *string `json:"progress_status"`
	Priority       *int    `json:"priority"`
	OwnerID        *string `json:"owner_id"`
}

// taskID parses the :id path segment. A malformed id names no task, so it is
// reported like any other missing task.
func taskID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.FromString(c.Param("id"))
	if err != nil || id == uuid.Nil {
		respondError(c, services.NotFound("task"))
		return uuid.Nil, false
	}
	return id, true
}

func (h *TaskHandler) CreateTask(c *gin.Context) {
	user, ok := principal(c)
	if !ok {
		return
	}

	var req createTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "", err)
		return
	}
	if req.BoardID == "" {
		respondError(c, services.InvalidArgument("board_id", "board_id is required"))
		return
	}

	task, err := h.tasks.CreateTask(c.Request.Context(), user, services.CreateTaskInput{
		BoardRef:       req.BoardID,
		Title:          req.Title,
		Description:    req.Description,
		ProgressStatus: req.ProgressStatus,
		Priority:       req.Priority,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"task": presenters.ToTask(*task)})
}

func (h *TaskHandler) GetTask(c *gin.Context) {
	user, ok := principal(c)
	if !ok {
		return
	}
	id, ok := taskID(c)
	if !ok {
		return
	}

	task, err := h.tasks.GetTask(c.Request.Context(), user, id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"task": presenters.ToTask(*task)})
}

func (h *TaskHandler) UpdateTask(c *gin.Context) {
	user, ok := principal(c)
	if !ok {
		return
	}
	id, ok := taskID(c)
	if !ok {
		return
	}

	var req updateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "", err)
		return
	}

	patch := services.TaskPatch{
		Title:          req.Title,
		Description:    req.Description,
		ProgressStatus: req.ProgressStatus,
		Priority:       req.Priority,
	}
	if req.OwnerID != nil {
		ownerID, err := uuid.FromString(*req.OwnerID)
		if err != nil {
			respondError(c, services.InvalidArgument("owner_id", "owner_id must be a user id"))
			return
		}
		patch.OwnerID = &ownerID
	}

	task, err := h.tasks.UpdateTask(c.Request.Context(), user, id, patch)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"task": presenters.ToTask(*task)})
}

func (h *TaskHandler) DeleteTask(c *gin.Context) {
	user, ok := principal(c)
	if !ok {
		return
	}
	id, ok := taskID(c)
	if !ok {
		return
	}

	if err := h.tasks.DeleteTask(c.Request.Context(), user, id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "task deleted"})
}
