package models

import (
	"time"
)

const (
	RoleAdmin  = "ADMIN"
	RoleEditor = "EDITOR"
	RoleViewer = "VIEWER"
)

type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         string    `json:"role"`
	CoverURL     *string   `json:"coverUrl"`
	CreatedAt    time.Time `json:"createdAt"`
}
