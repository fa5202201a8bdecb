package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"taskboard/backend/internal/models"
	"taskboard/backend/internal/presenters"
	"taskboard/backend/internal/repositories"

	"github.com/go-playground/validator/v10"
	"github.com/gofrs/uuid"
)

const sharedUserEmailField = "shared_user_email"

var validate = validator.New()

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validateEmail(field, email string) (string, error) {
	email = normalizeEmail(email)
	if err := validate.Var(email, "required,email,max=254"); err != nil {
		return "", InvalidArgument(field, "a valid email address is required")
	}
	return email, nil
}

type SharedUserService struct {
	store *repositories.Store
	lists BoardListCache
}

func NewSharedUserService(store *repositories.Store, lists BoardListCache) *SharedUserService {
	return &SharedUserService{store: store, lists: lists}
}

// CreateSharedUser makes the user behind email a collaborator on the board.
func (s *SharedUserService) CreateSharedUser(ctx context.Context, principal uuid.UUID, boardRef, email string) (shared *presenters.SharedUser, err error) {
	ctx, span := startSpan(ctx, "SharedUserService.CreateSharedUser", principal)
	defer func() { endSpan(span, err) }()

	email, err = validateEmail(sharedUserEmailField, email)
	if err != nil {
		return nil, err
	}

	err = s.store.Transaction(ctx, func(tx *repositories.Store) error {
		board, err := loadBoard(ctx, tx, principal, boardRef)
		if err != nil {
			return err
		}
		if _, err := authorize(ctx, tx, principal, board, ResourceSharedUser, ActionCreate); err != nil {
			return err
		}

		target, err := s.lookupUser(ctx, tx, principal, email)
		if err != nil {
			return err
		}
		if target.ID == board.OwnerID {
			return Conflict(sharedUserEmailField, "the board owner can not be added as a shared user")
		}

		_, err = tx.GetGrant(ctx, board.ID, target.ID)
		if err == nil {
			return Conflict(sharedUserEmailField, "the board is already shared with this user")
		}
		if !errors.Is(err, repositories.ErrNotFound) {
			return fmt.Errorf("probe grant: %w", err)
		}

		grant := &models.SharedUser{BoardID: board.ID, SharedUserID: target.ID}
		if err := tx.CreateGrant(ctx, grant); err != nil {
			if repositories.IsUniqueViolation(err) {
				return Conflict(sharedUserEmailField, "the board is already shared with this user")
			}
			return fmt.Errorf("create grant: %w", err)
		}

		result := presenters.ToSharedUser(*grant, *target)
		shared = &result
		return nil
	})
	if err != nil {
		return nil, err
	}

	invalidateLists(ctx, s.lists, shared.User.ID)
	return shared, nil
}

func (s *SharedUserService) DeleteSharedUser(ctx context.Context, principal uuid.UUID, boardRef, email string) (err error) {
	ctx, span := startSpan(ctx, "SharedUserService.DeleteSharedUser", principal)
	defer func() { endSpan(span, err) }()

	email, err = validateEmail(sharedUserEmailField, email)
	if err != nil {
		return err
	}

	var removed uuid.UUID
	err = s.store.Transaction(ctx, func(tx *repositories.Store) error {
		board, err := loadBoard(ctx, tx, principal, boardRef)
		if err != nil {
			return err
		}
		if _, err := authorize(ctx, tx, principal, board, ResourceSharedUser, ActionDelete); err != nil {
			return err
		}

		target, err := s.lookupUser(ctx, tx, principal, email)
		if err != nil {
			return err
		}

		if err := tx.DeleteGrant(ctx, board.ID, target.ID); err != nil {
			if errors.Is(err, repositories.ErrNotFound) {
				return notFound(ResourceSharedUser, principal)
			}
			return fmt.Errorf("delete grant: %w", err)
		}
		removed = target.ID
		return nil
	})
	if err != nil {
		return err
	}

	invalidateLists(ctx, s.lists, removed)
	return nil
}

func (s *SharedUserService) lookupUser(ctx context.Context, tx *repositories.Store, principal uuid.UUID, email string) (*models.User, error) {
	user, err := tx.GetUserByEmail(ctx, email)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, notFound("user", principal)
	}
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}
	return user, nil
}
