package model

import "time"

type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

type AuthResponse struct {
	Token    string `json:"token"`
	Username string `json:"username"`
}

type UsernamesResponse struct {
	Usernames []string `json:"usernames"`
}
