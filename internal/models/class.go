package models

import "time"

// Class is a course the user attends; its name enriches calendar events.
type Class struct {
	ID        string    `db:"id" json:"id"`
	UserID    string    `db:"user_id" json:"user_id"`
	Name      string    `db:"name" json:"name"`
	Teacher   *string   `db:"teacher" json:"teacher,omitempty"`
	Room      *string   `db:"room" json:"room,omitempty"`
	Color     *string   `db:"color" json:"color,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}
