package services

import (
	"context"
	"errors"
	"fmt"

	"taskboard/backend/internal/models"
	"taskboard/backend/internal/repositories"

	"github.com/gofrs/uuid"
	log "github.com/sirupsen/logrus"
)

// Tier is the access a principal holds on one board. Tiers are ordered.
type Tier int

const (
	TierNone Tier = iota
	TierCollaborator
	TierOwner
)

func (t Tier) String() string {
	switch t {
	case TierOwner:
		return "owner"
	case TierCollaborator:
		return "collaborator"
	default:
		return "none"
	}
}

type Resource string

const (
	ResourceBoard      Resource = "board"
	ResourceTask       Resource = "task"
	ResourceSharedUser Resource = "shared_user"
)

type Action string

const (
	ActionCreate Action = "create"
	ActionRead   Action = "read"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// policy holds the minimum tier for each action. Board creation is not
// scoped to an existing board, so any authenticated principal qualifies.
// Collaborators see the grant list on the board detail. Grants have no
// update action.
var policy = map[Resource]map[Action]Tier{
	ResourceBoard: {
		ActionCreate: TierNone,
		ActionRead:   TierCollaborator,
		ActionUpdate: TierOwner,
		ActionDelete: TierOwner,
	},
	ResourceTask: {
		ActionCreate: TierCollaborator,
		ActionRead:   TierCollaborator,
		ActionUpdate: TierCollaborator,
		ActionDelete: TierCollaborator,
	},
	ResourceSharedUser: {
		ActionCreate: TierOwner,
		ActionRead:   TierCollaborator,
		ActionDelete: TierOwner,
	},
}

func Allows(tier Tier, resource Resource, action Action) bool {
	required, ok := policy[resource][action]
	if !ok {
		return false
	}
	return tier >= required
}

// Resolver answers which tier a principal holds on a board.
type Resolver struct {
	store *repositories.Store
}

func NewResolver(store *repositories.Store) *Resolver {
	return &Resolver{store: store}
}

// Resolve returns TierNone for a board that does not exist, so callers can
// not tell absent from forbidden.
func (r *Resolver) Resolve(ctx context.Context, principal, boardID uuid.UUID) (Tier, error) {
	board, err := r.store.GetBoardByID(ctx, boardID)
	if errors.Is(err, repositories.ErrNotFound) {
		return TierNone, nil
	}
	if err != nil {
		return TierNone, fmt.Errorf("load board: %w", err)
	}
	return r.tierOn(ctx, principal, board)
}

func (r *Resolver) tierOn(ctx context.Context, principal uuid.UUID, board *models.Board) (Tier, error) {
	if board.OwnerID == principal {
		return TierOwner, nil
	}
	_, err := r.store.GetGrant(ctx, board.ID, principal)
	switch {
	case err == nil:
		return TierCollaborator, nil
	case errors.Is(err, repositories.ErrNotFound):
		return TierNone, nil
	default:
		return TierNone, fmt.Errorf("load grant: %w", err)
	}
}

// authorize resolves the principal's tier on an already loaded board and
// fails with NotFound unless the policy allows the action.
func authorize(ctx context.Context, store *repositories.Store, principal uuid.UUID, board *models.Board, resource Resource, action Action) (Tier, error) {
	tier, err := NewResolver(store).tierOn(ctx, principal, board)
	if err != nil {
		return TierNone, err
	}
	if !Allows(tier, resource, action) {
		return tier, notFound(resource, principal)
	}
	return tier, nil
}

// notFound logs and returns the uniform NotFound used for both absent and
// forbidden resources.
func notFound(resource Resource, principal uuid.UUID) *Error {
	log.WithFields(log.Fields{
		"resource":  resource,
		"principal": principal,
	}).Debug("resource not found")
	return NotFound(string(resource))
}

// loadBoard accepts either the board id or its public ref.
func loadBoard(ctx context.Context, store *repositories.Store, principal uuid.UUID, ref string) (*models.Board, error) {
	var (
		board *models.Board
		err   error
	)
	if id, parseErr := uuid.FromString(ref); parseErr == nil {
		board, err = store.GetBoardByID(ctx, id)
	} else {
		board, err = store.GetBoardByPublicRef(ctx, ref)
	}
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, notFound(ResourceBoard, principal)
	}
	if err != nil {
		return nil, fmt.Errorf("load board: %w", err)
	}
	return board, nil
}

// authorizeTask loads the task and resolves the principal's tier on its
// board. A denied task reads as a missing task.
func authorizeTask(ctx context.Context, store *repositories.Store, principal, taskID uuid.UUID, action Action) (*models.Task, error) {
	task, err := store.GetTaskByID(ctx, taskID)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, notFound(ResourceTask, principal)
	}
	if err != nil {
		return nil, fmt.Errorf("load task: %w", err)
	}

	tier, err := NewResolver(store).Resolve(ctx, principal, task.BoardID)
	if err != nil {
		return nil, err
	}
	if !Allows(tier, ResourceTask, action) {
		return nil, notFound(ResourceTask, principal)
	}
	return task, nil
}
