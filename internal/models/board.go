package models

import (
	"crypto/rand"
	"time"

	"github.com/gofrs/uuid"
	"github.com/oklog/ulid/v2"
	"gorm.io/gorm"
)

const MaxBoardTitleLength = 100

// Board is the access-control root: its owner administers it, grants make
// other users collaborators.
type Board struct {
	ID        uuid.UUID `json:"id" gorm:"primaryKey;type:uuid"`
	PublicRef string    `json:"public_ref" gorm:"size:26;not null;uniqueIndex:uq_boards_public_ref"`
	Title     string    `json:"title" gorm:"size:100;not null;uniqueIndex:uq_boards_owner_title,priority:2"`
	OwnerID   uuid.UUID `json:"owner_id" gorm:"type:uuid;not null;uniqueIndex:uq_boards_owner_title,priority:1"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Owner User `json:"-" gorm:"foreignKey:OwnerID;constraint:OnDelete:CASCADE"`
}

// SharedUser grants one user collaborator access to one board.
type SharedUser struct {
	ID           uuid.UUID `json:"id" gorm:"primaryKey;type:uuid"`
	BoardID      uuid.UUID `json:"board_id" gorm:"type:uuid;not null;uniqueIndex:uq_shared_users_board_user,priority:1"`
	SharedUserID uuid.UUID `json:"shared_user_id" gorm:"type:uuid;not null;index;uniqueIndex:uq_shared_users_board_user,priority:2"`
	CreatedAt    time.Time `json:"created_at"`

	Board Board `json:"-" gorm:"foreignKey:BoardID;constraint:OnDelete:CASCADE"`
	User  User  `json:"-" gorm:"foreignKey:SharedUserID;constraint:OnDelete:CASCADE"`
}

func (SharedUser) TableName() string {
	return "shared_users"
}

// NewPublicRef returns an opaque token for use in shared links. The random
// part comes from crypto/rand so refs cannot be enumerated.
func NewPublicRef() (string, error) {
	id, err := ulid.New(ulid.Timestamp(time.Now()), rand.Reader)
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

func (b *Board) BeforeCreate(tx *gorm.DB) error {
	if b.ID == uuid.Nil {
		id, err := uuid.NewV4()
		if err != nil {
			return err
		}
		b.ID = id
	}
	if b.PublicRef == "" {
		ref, err := NewPublicRef()
		if err != nil {
			return err
		}
		b.PublicRef = ref
	}
	return nil
}

func (s *SharedUser) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		id, err := uuid.NewV4()
		if err != nil {
			return err
		}
		s.ID = id
	}
	return nil
}
