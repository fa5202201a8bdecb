package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"taskboard/backend/internal/models"
	"taskboard/backend/internal/repositories"

	"github.com/gofrs/uuid"
	"go.opentelemetry.io/otel/attribute"
)

// CreateTaskInput carries a new task. Nil optional fields take their
// defaults.
type CreateTaskInput struct {
	BoardRef       string
	Title          string
	Description    *string
	ProgressStatus *string
	Priority       *int
}

// TaskPatch lists the fields to change. Nil fields are left alone.
type TaskPatch struct {
	Title          *string
	Description    *string
	ProgressStatus *string
	Priority       *int
	OwnerID        *uuid.UUID
}

type TaskService struct {
	store *repositories.Store
}

func NewTaskService(store *repositories.Store) *TaskService {
	return &TaskService{store: store}
}

func validateTaskTitle(title string) (string, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return "", InvalidArgument("title", "title is required")
	}
	if utf8.RuneCountInString(title) > models.MaxTaskTitleLength {
		return "", InvalidArgument("title", fmt.Sprintf("title must be at most %d characters", models.MaxTaskTitleLength))
	}
	return title, nil
}

func validateProgressStatus(status string) (string, error) {
	status = strings.TrimSpace(status)
	if status == "" {
		return "", InvalidArgument("progress_status", "progress_status must not be empty")
	}
	if utf8.RuneCountInString(status) > models.MaxProgressStatusLength {
		return "", InvalidArgument("progress_status", fmt.Sprintf("progress_status must be at most %d characters", models.MaxProgressStatusLength))
	}
	return status, nil
}

func validatePriority(priority int) error {
	if !models.ValidPriority(priority) {
		return InvalidArgument("priority", fmt.Sprintf("priority must be between %d and %d", models.MinPriority, models.MaxPriority))
	}
	return nil
}

// checkTaskTitle fails with DuplicateTitle when another task already uses
// title. Task titles are unique across all boards.
func checkTaskTitle(ctx context.Context, tx *repositories.Store, title string, self uuid.UUID) error {
	existing, err := tx.FindTaskByTitle(ctx, title)
	if err == nil && existing.ID != self {
		return DuplicateTitle("a task with this title already exists")
	}
	if err != nil && !errors.Is(err, repositories.ErrNotFound) {
		return fmt.Errorf("probe task title: %w", err)
	}
	return nil
}

func (s *TaskService) CreateTask(ctx context.Context, principal uuid.UUID, in CreateTaskInput) (task *models.Task, err error) {
	ctx, span := startSpan(ctx, "TaskService.CreateTask", principal)
	defer func() { endSpan(span, err) }()

	candidate := &models.Task{OwnerID: &principal}
	if candidate.Title, err = validateTaskTitle(in.Title); err != nil {
		return nil, err
	}
	if in.Description != nil {
		candidate.Description = *in.Description
	}
	if in.ProgressStatus != nil {
		if candidate.ProgressStatus, err = validateProgressStatus(*in.ProgressStatus); err != nil {
			return nil, err
		}
	}
	if in.Priority != nil {
		if err = validatePriority(*in.Priority); err != nil {
			return nil, err
		}
		candidate.Priority = *in.Priority
	}
	candidate.ApplyDefaults()

	err = s.store.Transaction(ctx, func(tx *repositories.Store) error {
		board, err := loadBoard(ctx, tx, principal, in.BoardRef)
		if err != nil {
			return err
		}
		if _, err := authorize(ctx, tx, principal, board, ResourceTask, ActionCreate); err != nil {
			return err
		}
		if err := checkTaskTitle(ctx, tx, candidate.Title, uuid.Nil); err != nil {
			return err
		}

		candidate.BoardID = board.ID
		if err := tx.CreateTask(ctx, candidate); err != nil {
			if repositories.IsUniqueViolation(err) {
				return DuplicateTitle("a task with this title already exists")
			}
			return fmt.Errorf("create task: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	span.SetAttributes(attribute.String("task.id", candidate.ID.String()))
	return candidate, nil
}

func (s *TaskService) GetTask(ctx context.Context, principal, taskID uuid.UUID) (task *models.Task, err error) {
	ctx, span := startSpan(ctx, "TaskService.GetTask", principal)
	defer func() { endSpan(span, err) }()

	return authorizeTask(ctx, s.store, principal, taskID, ActionRead)
}

func (s *TaskService) UpdateTask(ctx context.Context, principal, taskID uuid.UUID, patch TaskPatch) (task *models.Task, err error) {
	ctx, span := startSpan(ctx, "TaskService.UpdateTask", principal)
	defer func() { endSpan(span, err) }()

	fields := map[string]interface{}{}
	var title string
	if patch.Title != nil {
		if title, err = validateTaskTitle(*patch.Title); err != nil {
			return nil, err
		}
		fields["title"] = title
	}
	if patch.Description != nil {
		fields["description"] = *patch.Description
	}
	if patch.ProgressStatus != nil {
		status, err := validateProgressStatus(*patch.ProgressStatus)
		if err != nil {
			return nil, err
		}
		fields["progress_status"] = status
	}
	if patch.Priority != nil {
		if err = validatePriority(*patch.Priority); err != nil {
			return nil, err
		}
		fields["priority"] = *patch.Priority
	}
	if patch.OwnerID != nil {
		fields["owner_id"] = *patch.OwnerID
	}

	err = s.store.Transaction(ctx, func(tx *repositories.Store) error {
		current, err := authorizeTask(ctx, tx, principal, taskID, ActionUpdate)
		if err != nil {
			return err
		}

		if patch.Title != nil {
			if err := checkTaskTitle(ctx, tx, title, current.ID); err != nil {
				return err
			}
		}
		if patch.OwnerID != nil {
			if _, err := tx.GetUserByID(ctx, *patch.OwnerID); err != nil {
				if errors.Is(err, repositories.ErrNotFound) {
					return InvalidArgument("owner_id", "owner_id does not name a user")
				}
				return fmt.Errorf("load owner: %w", err)
			}
		}

		if err := tx.UpdateTask(ctx, current.ID, fields); err != nil {
			if repositories.IsUniqueViolation(err) {
				return DuplicateTitle("a task with this title already exists")
			}
			return fmt.Errorf("update task: %w", err)
		}

		task, err = tx.GetTaskByID(ctx, current.ID)
		if err != nil {
			return fmt.Errorf("reload task: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return task, nil
}

func (s *TaskService) DeleteTask(ctx context.Context, principal, taskID uuid.UUID) (err error) {
	ctx, span := startSpan(ctx, "TaskService.DeleteTask", principal)
	defer func() { endSpan(span, err) }()

	return s.store.Transaction(ctx, func(tx *repositories.Store) error {
		task, err := authorizeTask(ctx, tx, principal, taskID, ActionDelete)
		if err != nil {
			return err
		}
		if err := tx.DeleteTask(ctx, task.ID); err != nil {
			if errors.Is(err, repositories.ErrNotFound) {
				return notFound(ResourceTask, principal)
			}
			return fmt.Errorf("delete task: %w", err)
		}
		return nil
	})
}
