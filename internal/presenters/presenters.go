// Package presenters turns stored entities into response payloads. It does
// no authorization and no I/O.
package presenters

import (
	"time"

	"taskboard/backend/internal/models"

	"github.com/gofrs/uuid"
)

type UserProfile struct {
	ID       uuid.UUID `json:"id"`
	Username string    `json:"username"`
	Email    string    `json:"email"`
}

type Board struct {
	ID        uuid.UUID `json:"id"`
	PublicRef string    `json:"public_ref"`
	Title     string    `json:"title"`
	OwnerID   uuid.UUID `json:"owner_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Task struct {
	ID             uuid.UUID  `json:"id"`
	BoardID        uuid.UUID  `json:"board_id"`
	Title          string     `json:"title"`
	Description    string     `json:"description"`
	ProgressStatus string     `json:"progress_status"`
	Priority       int        `json:"priority"`
	OwnerID        *uuid.UUID `json:"owner_id"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

type SharedUser struct {
	ID        uuid.UUID   `json:"id"`
	BoardID   uuid.UUID   `json:"board_id"`
	User      UserProfile `json:"user"`
	CreatedAt time.Time   `json:"created_at"`
}

type BoardDetail struct {
	Board       Board        `json:"board"`
	Tasks       []Task       `json:"tasks"`
	SharedUsers []SharedUser `json:"shared_users"`
}

type BoardList struct {
	OwnedBoards  []Board `json:"owned_boards"`
	SharedBoards []Board `json:"shared_boards"`
}

func ToUserProfile(u models.User) UserProfile {
	return UserProfile{ID: u.ID, Username: u.Username, Email: u.Email}
}

func ToBoard(b models.Board) Board {
	return Board{
		ID:        b.ID,
		PublicRef: b.PublicRef,
		Title:     b.Title,
		OwnerID:   b.OwnerID,
		CreatedAt: b.CreatedAt,
		UpdatedAt: b.UpdatedAt,
	}
}

func ToTask(t models.Task) Task {
	return Task{
		ID:             t.ID,
		BoardID:        t.BoardID,
		Title:          t.Title,
		Description:    t.Description,
		ProgressStatus: t.ProgressStatus,
		Priority:       t.Priority,
		OwnerID:        t.OwnerID,
		CreatedAt:      t.CreatedAt,
		UpdatedAt:      t.UpdatedAt,
	}
}

func ToSharedUser(grant models.SharedUser, user models.User) SharedUser {
	return SharedUser{
		ID:        grant.ID,
		BoardID:   grant.BoardID,
		User:      ToUserProfile(user),
		CreatedAt: grant.CreatedAt,
	}
}

// ToBoardDetail composes a board with its tasks and grants. Grants whose
// user is missing from users are left out.
func ToBoardDetail(board models.Board, tasks []models.Task, grants []models.SharedUser, users map[uuid.UUID]models.User) BoardDetail {
	detail := BoardDetail{
		Board:       ToBoard(board),
		Tasks:       make([]Task, 0, len(tasks)),
		SharedUsers: make([]SharedUser, 0, len(grants)),
	}
	for _, t := range tasks {
		detail.Tasks = append(detail.Tasks, ToTask(t))
	}
	for _, g := range grants {
		user, ok := users[g.SharedUserID]
		if !ok {
			continue
		}
		detail.SharedUsers = append(detail.SharedUsers, ToSharedUser(g, user))
	}
	return detail
}

func ToBoardList(owned, shared []models.Board) BoardList {
	list := BoardList{
		OwnedBoards:  make([]Board, 0, len(owned)),
		SharedBoards: make([]Board, 0, len(shared)),
	}
	for _, b := range owned {
		list.OwnedBoards = append(list.OwnedBoards, ToBoard(b))
	}
	for _, b := range shared {
		list.SharedBoards = append(list.SharedBoards, ToBoard(b))
	}
	return list
}
