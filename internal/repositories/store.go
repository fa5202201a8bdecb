package repositories

import (
	"context"
	"database/sql"

	"taskboard/backend/internal/models"

	"github.com/gofrs/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Store is the durable home of users, boards, grants and tasks. A Store
// obtained inside Transaction runs every call on that transaction.
type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Transaction(ctx context.Context, fn func(tx *Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Store{db: tx})
	})
}

// ReadTransaction runs fn against one snapshot. Postgres reads at
// REPEATABLE READ; sqlite keeps its shared lock until fn returns.
func (s *Store) ReadTransaction(ctx context.Context, fn func(tx *Store) error) error {
	var opts []*sql.TxOptions
	if s.db.Dialector.Name() == "postgres" {
		opts = append(opts, &sql.TxOptions{ReadOnly: true, Isolation: sql.LevelRepeatableRead})
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Store{db: tx})
	}, opts...)
}

func (s *Store) CreateUser(ctx context.Context, user *models.User) error {
	return translate(s.db.WithContext(ctx).Omit(clause.Associations).Create(user).Error)
}

func (s *Store) GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&user).Error; err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

func (s *Store) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Where("username = ?", username).First(&user).Error; err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

func (s *Store) GetUsersByIDs(ctx context.Context, ids []uuid.UUID) ([]models.User, error) {
	users := []models.User{}
	if len(ids) == 0 {
		return users, nil
	}
	err := s.db.WithContext(ctx).Where("id IN ?", ids).Order("username asc").Find(&users).Error
	return users, translate(err)
}

// DeleteUser removes the user row only. Callers clean up dependents first.
func (s *Store) DeleteUser(ctx context.Context, id uuid.UUID) (int64, error) {
	result := s.db.WithContext(ctx).Where("id = ?", id).Delete(&models.User{})
	return result.RowsAffected, translate(result.Error)
}

// ClearTaskOwner unassigns every task assigned to the user.
func (s *Store) ClearTaskOwner(ctx context.Context, userID uuid.UUID) error {
	return translate(s.db.WithContext(ctx).
		Model(&models.Task{}).
		Where("owner_id = ?", userID).
		Update("owner_id", nil).Error)
}

func (s *Store) DeleteGrantsForUser(ctx context.Context, userID uuid.UUID) error {
	return translate(s.db.WithContext(ctx).
		Where("shared_user_id = ?", userID).
		Delete(&models.SharedUser{}).Error)
}

func (s *Store) CreateBoard(ctx context.Context, board *models.Board) error {
	return translate(s.db.WithContext(ctx).Omit(clause.Associations).Create(board).Error)
}

func (s *Store) GetBoardByID(ctx context.Context, id uuid.UUID) (*models.Board, error) {
	var board models.Board
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&board).Error; err != nil {
		return nil, translate(err)
	}
	return &board, nil
}

func (s *Store) GetBoardByPublicRef(ctx context.Context, ref string) (*models.Board, error) {
	var board models.Board
	if err := s.db.WithContext(ctx).Where("public_ref = ?", ref).First(&board).Error; err != nil {
		return nil, translate(err)
	}
	return &board, nil
}

// FindBoardByOwnerAndTitle probes the (owner_id, title) unique key.
func (s *Store) FindBoardByOwnerAndTitle(ctx context.Context, ownerID uuid.UUID, title string) (*models.Board, error) {
	var board models.Board
	err := s.db.WithContext(ctx).
		Where("owner_id = ? AND title = ?", ownerID, title).
		First(&board).Error
	if err != nil {
		return nil, translate(err)
	}
	return &board, nil
}

func (s *Store) UpdateBoardTitle(ctx context.Context, id uuid.UUID, title string) error {
	result := s.db.WithContext(ctx).
		Model(&models.Board{}).
		Where("id = ?", id).
		Update("title", title)
	if result.Error != nil {
		return translate(result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteBoardCascade removes the board's grants, then its tasks, then the
// board row, all in one transaction.
func (s *Store) DeleteBoardCascade(ctx context.Context, id uuid.UUID) error {
	return s.Transaction(ctx, func(tx *Store) error {
		db := tx.db.WithContext(ctx)
		if err := db.Where("board_id = ?", id).Delete(&models.SharedUser{}).Error; err != nil {
			return translate(err)
		}
		if err := db.Where("board_id = ?", id).Delete(&models.Task{}).Error; err != nil {
			return translate(err)
		}
		result := db.Where("id = ?", id).Delete(&models.Board{})
		if result.Error != nil {
			return translate(result.Error)
		}
		if result.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

func (s *Store) ListOwnedBoards(ctx context.Context, ownerID uuid.UUID) ([]models.Board, error) {
	boards := []models.Board{}
	err := s.db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("created_at desc").
		Find(&boards).Error
	return boards, translate(err)
}

func (s *Store) ListSharedBoards(ctx context.Context, userID uuid.UUID) ([]models.Board, error) {
	boards := []models.Board{}
	err := s.db.WithContext(ctx).
		Joins("JOIN shared_users ON shared_users.board_id = boards.id").
		Where("shared_users.shared_user_id = ?", userID).
		Order("boards.created_at desc").
		Find(&boards).Error
	return boards, translate(err)
}

func (s *Store) CreateGrant(ctx context.Context, grant *models.SharedUser) error {
	return translate(s.db.WithContext(ctx).Omit(clause.Associations).Create(grant).Error)
}

func (s *Store) GetGrant(ctx context.Context, boardID, userID uuid.UUID) (*models.SharedUser, error) {
	var grant models.SharedUser
	err := s.db.WithContext(ctx).
		Where("board_id = ? AND shared_user_id = ?", boardID, userID).
		First(&grant).Error
	if err != nil {
		return nil, translate(err)
	}
	return &grant, nil
}

func (s *Store) DeleteGrant(ctx context.Context, boardID, userID uuid.UUID) error {
	result := s.db.WithContext(ctx).
		Where("board_id = ? AND shared_user_id = ?", boardID, userID).
		Delete(&models.SharedUser{})
	if result.Error != nil {
		return translate(result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) ListGrants(ctx context.Context, boardID uuid.UUID) ([]models.SharedUser, error) {
	grants := []models.SharedUser{}
	err := s.db.WithContext(ctx).
		Where("board_id = ?", boardID).
		Order("created_at asc").
		Find(&grants).Error
	return grants, translate(err)
}

func (s *Store) ListGranteeIDs(ctx context.Context, boardID uuid.UUID) ([]uuid.UUID, error) {
	ids := []uuid.UUID{}
	err := s.db.WithContext(ctx).
		Model(&models.SharedUser{}).
		Where("board_id = ?", boardID).
		Pluck("shared_user_id", &ids).Error
	return ids, translate(err)
}

func (s *Store) CreateTask(ctx context.Context, task *models.Task) error {
	return translate(s.db.WithContext(ctx).Omit(clause.Associations).Create(task).Error)
}

func (s *Store) GetTaskByID(ctx context.Context, id uuid.UUID) (*models.Task, error) {
	var task models.Task
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&task).Error; err != nil {
		return nil, translate(err)
	}
	return &task, nil
}

// FindTaskByTitle probes the global task title key.
func (s *Store) FindTaskByTitle(ctx context.Context, title string) (*models.Task, error) {
	var task models.Task
	if err := s.db.WithContext(ctx).Where("title = ?", title).First(&task).Error; err != nil {
		return nil, translate(err)
	}
	return &task, nil
}

// UpdateTask writes the given columns. A map is used so zero values and
// NULL owner ids are written rather than skipped.
func (s *Store) UpdateTask(ctx context.Context, id uuid.UUID, fields map[string]interface{}) error {
	if len(fields) == 0 {
		return nil
	}
	result := s.db.WithContext(ctx).
		Model(&models.Task{}).
		Where("id = ?", id).
		Updates(fields)
	if result.Error != nil {
		return translate(result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) DeleteTask(ctx context.Context, id uuid.UUID) error {
	result := s.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Task{})
	if result.Error != nil {
		return translate(result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) ListTasksByBoard(ctx context.Context, boardID uuid.UUID) ([]models.Task, error) {
	tasks := []models.Task{}
	err := s.db.WithContext(ctx).
		Where("board_id = ?", boardID).
		Order("created_at asc").
		Find(&tasks).Error
	return tasks, translate(err)
}
