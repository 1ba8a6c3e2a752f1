package model

import "time"

// User is a registered account. Users are created by register or guest
// login and never updated or deleted afterwards.
type User struct {
	ID           int64
	Username     string
	PasswordHash string
	CreatedAt    time.Time
}

// Post carries no owner field: any authenticated user may edit or
// delete any post.
type Post struct {
	ID        int64
	Title     string
	Body      string
	CreatedAt time.Time
	UpdatedAt time.Time
}
