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
	log "github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

const (
	minUsernameLength = 3
	maxUsernameLength = 150
	minPasswordLength = 8
	// bcrypt ignores input past 72 bytes
	maxPasswordLength = 72
)

type RegistrationRequest struct {
	Username string
	Email    string
	Password string
}

// AccountService is the identity side of the API: registration, login and
// account removal. Board and task operations only see the principal id it
// hands out.
type AccountService struct {
	store      *repositories.Store
	tokens     *TokenIssuer
	lists      BoardListCache
	bcryptCost int
}

func NewAccountService(store *repositories.Store, tokens *TokenIssuer, lists BoardListCache, bcryptCost int) *AccountService {
	if bcryptCost < bcrypt.MinCost || bcryptCost > bcrypt.MaxCost {
		bcryptCost = bcrypt.DefaultCost
	}
	return &AccountService{store: store, tokens: tokens, lists: lists, bcryptCost: bcryptCost}
}

func VerifyPassword(hashedPassword, plainPassword string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(plainPassword)) == nil
}

func (s *AccountService) Register(ctx context.Context, req RegistrationRequest) (*models.User, string, error) {
	username := strings.TrimSpace(req.Username)
	if n := utf8.RuneCountInString(username); n < minUsernameLength || n > maxUsernameLength {
		return nil, "", InvalidArgument("username", fmt.Sprintf("username must be %d to %d characters", minUsernameLength, maxUsernameLength))
	}
	email, err := validateEmail("email", req.Email)
	if err != nil {
		return nil, "", err
	}
	if len(req.Password) < minPasswordLength || len(req.Password) > maxPasswordLength {
		return nil, "", InvalidArgument("password", fmt.Sprintf("password must be %d to %d bytes", minPasswordLength, maxPasswordLength))
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.bcryptCost)
	if err != nil {
		return nil, "", fmt.Errorf("hash password: %w", err)
	}

	user := &models.User{Username: username, Email: email, Password: string(hashed)}
	err = s.store.Transaction(ctx, func(tx *repositories.Store) error {
		if _, err := tx.GetUserByEmail(ctx, email); err == nil {
			return Conflict("email", "email already exists")
		} else if !errors.Is(err, repositories.ErrNotFound) {
			return fmt.Errorf("probe email: %w", err)
		}
		if _, err := tx.GetUserByUsername(ctx, username); err == nil {
			return Conflict("username", "username already exists")
		} else if !errors.Is(err, repositories.ErrNotFound) {
			return fmt.Errorf("probe username: %w", err)
		}

		if err := tx.CreateUser(ctx, user); err != nil {
			if repositories.IsUniqueViolation(err) {
				return Conflict("username", "username or email already exists")
			}
			return fmt.Errorf("create user: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, "", err
	}

	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		return nil, "", err
	}

	log.WithField("user_id", user.ID).Info("user registered")
	return user, token, nil
}

func (s *AccountService) Login(ctx context.Context, username, password string) (*models.User, string, error) {
	user, err := s.store.GetUserByUsername(ctx, strings.TrimSpace(username))
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, "", Unauthenticated("invalid credentials")
	}
	if err != nil {
		return nil, "", fmt.Errorf("load user: %w", err)
	}
	if !VerifyPassword(user.Password, password) {
		return nil, "", Unauthenticated("invalid credentials")
	}

	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		return nil, "", err
	}
	return user, token, nil
}

func (s *AccountService) GetUser(ctx context.Context, principal uuid.UUID) (*models.User, error) {
	user, err := s.store.GetUserByID(ctx, principal)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, Unauthenticated("unknown principal")
	}
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}
	return user, nil
}

// DeleteUser removes the principal's account. Their task assignments are
// cleared, their grants removed and the boards they own deleted with
// everything on them.
func (s *AccountService) DeleteUser(ctx context.Context, principal uuid.UUID) (err error) {
	ctx, span := startSpan(ctx, "AccountService.DeleteUser", principal)
	defer func() { endSpan(span, err) }()

	affected := []uuid.UUID{principal}
	err = s.store.Transaction(ctx, func(tx *repositories.Store) error {
		if _, err := tx.GetUserByID(ctx, principal); err != nil {
			if errors.Is(err, repositories.ErrNotFound) {
				return Unauthenticated("unknown principal")
			}
			return fmt.Errorf("load user: %w", err)
		}

		if err := tx.ClearTaskOwner(ctx, principal); err != nil {
			return fmt.Errorf("clear task owner: %w", err)
		}
		if err := tx.DeleteGrantsForUser(ctx, principal); err != nil {
			return fmt.Errorf("delete grants: %w", err)
		}

		owned, err := tx.ListOwnedBoards(ctx, principal)
		if err != nil {
			return fmt.Errorf("list owned boards: %w", err)
		}
		for _, board := range owned {
			grantees, err := tx.ListGranteeIDs(ctx, board.ID)
			if err != nil {
				return fmt.Errorf("list grantees: %w", err)
			}
			affected = append(affected, grantees...)
			if err := tx.DeleteBoardCascade(ctx, board.ID); err != nil {
				return fmt.Errorf("delete board %s: %w", board.ID, err)
			}
		}

		if _, err := tx.DeleteUser(ctx, principal); err != nil {
			return fmt.Errorf("delete user: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	invalidateLists(ctx, s.lists, affected...)
	log.WithField("user_id", principal).Info("user deleted")
	return nil
}
