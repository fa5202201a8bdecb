package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"taskboard/backend/internal/models"
	"taskboard/backend/internal/presenters"
	"taskboard/backend/internal/repositories"

	"github.com/gofrs/uuid"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/singleflight"
)

// BoardListCache stores each principal's board list. Invalidate bumps the
// principal's version, and SetIfVersion refuses a list loaded at an older
// version. Implementations may fail; failures are logged and never fail
// the operation.
type BoardListCache interface {
	Get(ctx context.Context, userID uuid.UUID, dest interface{}) (bool, error)
	Version(ctx context.Context, userID uuid.UUID) (int64, error)
	SetIfVersion(ctx context.Context, userID uuid.UUID, version int64, value interface{}) (bool, error)
	Invalidate(ctx context.Context, userIDs ...uuid.UUID) error
}

type BoardService struct {
	store *repositories.Store
	lists BoardListCache
	group singleflight.Group
}

// NewBoardService builds the board lifecycle service. lists may be nil,
// which turns list caching off.
func NewBoardService(store *repositories.Store, lists BoardListCache) *BoardService {
	return &BoardService{store: store, lists: lists}
}

func validateBoardTitle(title string) (string, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return "", InvalidArgument("title", "title is required")
	}
	if utf8.RuneCountInString(title) > models.MaxBoardTitleLength {
		return "", InvalidArgument("title", fmt.Sprintf("title must be at most %d characters", models.MaxBoardTitleLength))
	}
	return title, nil
}

func (s *BoardService) CreateBoard(ctx context.Context, principal uuid.UUID, title string) (board *models.Board, err error) {
	ctx, span := startSpan(ctx, "BoardService.CreateBoard", principal)
	defer func() { endSpan(span, err) }()

	title, err = validateBoardTitle(title)
	if err != nil {
		return nil, err
	}

	err = s.store.Transaction(ctx, func(tx *repositories.Store) error {
		if _, err := tx.GetUserByID(ctx, principal); err != nil {
			if errors.Is(err, repositories.ErrNotFound) {
				return Unauthenticated("unknown principal")
			}
			return fmt.Errorf("load principal: %w", err)
		}

		_, err := tx.FindBoardByOwnerAndTitle(ctx, principal, title)
		if err == nil {
			return DuplicateTitle("you already have a board with this title")
		}
		if !errors.Is(err, repositories.ErrNotFound) {
			return fmt.Errorf("probe board title: %w", err)
		}

		candidate := &models.Board{Title: title, OwnerID: principal}
		if err := tx.CreateBoard(ctx, candidate); err != nil {
			if repositories.IsUniqueViolation(err) {
				return DuplicateTitle("you already have a board with this title")
			}
			return fmt.Errorf("create board: %w", err)
		}
		board = candidate
		return nil
	})
	if err != nil {
		return nil, err
	}

	span.SetAttributes(attribute.String("board.id", board.ID.String()))
	s.invalidate(ctx, principal)
	return board, nil
}

func (s *BoardService) GetBoardDetail(ctx context.Context, principal uuid.UUID, ref string) (detail *presenters.BoardDetail, err error) {
	ctx, span := startSpan(ctx, "BoardService.GetBoardDetail", principal)
	defer func() { endSpan(span, err) }()

	err = s.store.ReadTransaction(ctx, func(tx *repositories.Store) error {
		board, err := loadBoard(ctx, tx, principal, ref)
		if err != nil {
			return err
		}
		tier, err := authorize(ctx, tx, principal, board, ResourceBoard, ActionRead)
		if err != nil {
			return err
		}

		tasks, err := tx.ListTasksByBoard(ctx, board.ID)
		if err != nil {
			return fmt.Errorf("list tasks: %w", err)
		}

		grants := []models.SharedUser{}
		if Allows(tier, ResourceSharedUser, ActionRead) {
			if grants, err = tx.ListGrants(ctx, board.ID); err != nil {
				return fmt.Errorf("list grants: %w", err)
			}
		}

		ids := make([]uuid.UUID, 0, len(grants))
		for _, g := range grants {
			ids = append(ids, g.SharedUserID)
		}
		users, err := tx.GetUsersByIDs(ctx, ids)
		if err != nil {
			return fmt.Errorf("load grantees: %w", err)
		}
		byID := make(map[uuid.UUID]models.User, len(users))
		for _, u := range users {
			byID[u.ID] = u
		}

		result := presenters.ToBoardDetail(*board, tasks, grants, byID)
		detail = &result
		return nil
	})
	if err != nil {
		return nil, err
	}
	return detail, nil
}

func (s *BoardService) UpdateBoard(ctx context.Context, principal uuid.UUID, ref, title string) (err error) {
	ctx, span := startSpan(ctx, "BoardService.UpdateBoard", principal)
	defer func() { endSpan(span, err) }()

	title, err = validateBoardTitle(title)
	if err != nil {
		return err
	}

	var affected []uuid.UUID
	err = s.store.Transaction(ctx, func(tx *repositories.Store) error {
		board, err := loadBoard(ctx, tx, principal, ref)
		if err != nil {
			return err
		}
		if _, err := authorize(ctx, tx, principal, board, ResourceBoard, ActionUpdate); err != nil {
			return err
		}

		existing, err := tx.FindBoardByOwnerAndTitle(ctx, board.OwnerID, title)
		if err == nil && existing.ID != board.ID {
			return DuplicateTitle("you already have a board with this title")
		}
		if err != nil && !errors.Is(err, repositories.ErrNotFound) {
			return fmt.Errorf("probe board title: %w", err)
		}

		if err := tx.UpdateBoardTitle(ctx, board.ID, title); err != nil {
			if repositories.IsUniqueViolation(err) {
				return DuplicateTitle("you already have a board with this title")
			}
			return fmt.Errorf("update board: %w", err)
		}

		affected, err = s.listAudience(ctx, tx, board)
		return err
	})
	if err != nil {
		return err
	}

	s.invalidate(ctx, affected...)
	return nil
}

func (s *BoardService) DeleteBoard(ctx context.Context, principal uuid.UUID, ref string) (err error) {
	ctx, span := startSpan(ctx, "BoardService.DeleteBoard", principal)
	defer func() { endSpan(span, err) }()

	var affected []uuid.UUID
	err = s.store.Transaction(ctx, func(tx *repositories.Store) error {
		board, err := loadBoard(ctx, tx, principal, ref)
		if err != nil {
			return err
		}
		if _, err := authorize(ctx, tx, principal, board, ResourceBoard, ActionDelete); err != nil {
			return err
		}

		affected, err = s.listAudience(ctx, tx, board)
		if err != nil {
			return err
		}

		if err := tx.DeleteBoardCascade(ctx, board.ID); err != nil {
			return fmt.Errorf("delete board: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.invalidate(ctx, affected...)
	return nil
}

// ListBoards returns the boards the principal owns and the boards shared
// with them. Concurrent misses for one principal share a single load.
func (s *BoardService) ListBoards(ctx context.Context, principal uuid.UUID) (list *presenters.BoardList, err error) {
	ctx, span := startSpan(ctx, "BoardService.ListBoards", principal)
	defer func() { endSpan(span, err) }()

	if s.lists != nil {
		var cached presenters.BoardList
		hit, cacheErr := s.lists.Get(ctx, principal, &cached)
		if cacheErr != nil {
			log.WithError(cacheErr).WithField("principal", principal).Warn("board list cache read failed")
		}
		if hit {
			span.SetAttributes(attribute.Bool("cache.hit", true))
			return &cached, nil
		}
	}

	// Collapsed callers share this load, so it ignores the first caller's
	// cancellation.
	v, err, _ := s.group.Do(principal.String(), func() (interface{}, error) {
		loadCtx := context.WithoutCancel(ctx)
		version, cacheable := s.listVersion(loadCtx, principal)

		var result presenters.BoardList
		err := s.store.ReadTransaction(loadCtx, func(tx *repositories.Store) error {
			owned, err := tx.ListOwnedBoards(loadCtx, principal)
			if err != nil {
				return fmt.Errorf("list owned boards: %w", err)
			}
			shared, err := tx.ListSharedBoards(loadCtx, principal)
			if err != nil {
				return fmt.Errorf("list shared boards: %w", err)
			}
			result = presenters.ToBoardList(owned, shared)
			return nil
		})
		if err != nil {
			return nil, err
		}

		if cacheable {
			stored, err := s.lists.SetIfVersion(loadCtx, principal, version, result)
			switch {
			case err != nil:
				log.WithError(err).WithField("principal", principal).Warn("board list cache write failed")
			case !stored:
				log.WithField("principal", principal).Debug("board list changed while loading, not cached")
			}
		}
		return result, nil
	})
	if err != nil {
		return nil, err
	}

	result := v.(presenters.BoardList)
	return &result, nil
}

// listVersion reads the principal's list version before a load. The load
// is cached only when the version could be read.
func (s *BoardService) listVersion(ctx context.Context, principal uuid.UUID) (int64, bool) {
	if s.lists == nil {
		return 0, false
	}
	version, err := s.lists.Version(ctx, principal)
	if err != nil {
		log.WithError(err).WithField("principal", principal).Warn("board list cache version read failed")
		return 0, false
	}
	return version, true
}

// listAudience returns every user whose board list shows this board.
func (s *BoardService) listAudience(ctx context.Context, tx *repositories.Store, board *models.Board) ([]uuid.UUID, error) {
	grantees, err := tx.ListGranteeIDs(ctx, board.ID)
	if err != nil {
		return nil, fmt.Errorf("list grantees: %w", err)
	}
	return append([]uuid.UUID{board.OwnerID}, grantees...), nil
}

func (s *BoardService) invalidate(ctx context.Context, userIDs ...uuid.UUID) {
	invalidateLists(ctx, s.lists, userIDs...)
}

func invalidateLists(ctx context.Context, lists BoardListCache, userIDs ...uuid.UUID) {
	if lists == nil || len(userIDs) == 0 {
		return
	}
	if err := lists.Invalidate(ctx, userIDs...); err != nil {
		log.WithError(err).WithField("users", len(userIDs)).Warn("board list cache invalidation failed")
	}
}
