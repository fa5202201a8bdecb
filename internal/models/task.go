package models

import (
	"time"

	"github.com/gofrs/uuid"
	"gorm.io/gorm"
)

const (
	MaxTaskTitleLength      = 100
	MaxProgressStatusLength = 50
	MinPriority             = 1
	MaxPriority             = 5
	DefaultPriority         = 1
	DefaultProgressStatus   = "WORKING"
)

// Task belongs to exactly one board. OwnerID is an assignee, not an access
// grant, and becomes NULL when that user is removed.
type Task struct {
	ID             uuid.UUID  `json:"id" gorm:"primaryKey;type:uuid"`
	BoardID        uuid.UUID  `json:"board_id" gorm:"type:uuid;not null;index"`
	Title          string     `json:"title" gorm:"size:100;not null;uniqueIndex:uq_tasks_title"`
	Description    string     `json:"description" gorm:"type:text;not null;default:''"`
	ProgressStatus string     `json:"progress_status" gorm:"size:50;not null;default:'WORKING'"`
	Priority       int        `json:"priority" gorm:"not null;default:1;check:chk_tasks_priority,priority >= 1 AND priority <= 5"`
	OwnerID        *uuid.UUID `json:"owner_id" gorm:"type:uuid;index"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`

	Board Board `json:"-" gorm:"foreignKey:BoardID;constraint:OnDelete:CASCADE"`
	Owner *User `json:"-" gorm:"foreignKey:OwnerID;constraint:OnDelete:SET NULL"`
}

// ApplyDefaults fills the optional fields a caller left unset.
func (t *Task) ApplyDefaults() {
	if t.ProgressStatus == "" {
		t.ProgressStatus = DefaultProgressStatus
	}
	if t.Priority == 0 {
		t.Priority = DefaultPriority
	}
}

func ValidPriority(p int) bool {
	return p >= MinPriority && p <= MaxPriority
}

func (t *Task) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		id, err := uuid.NewV4()
		if err != nil {
			return err
		}
		t.ID = id
	}
	return nil
}
