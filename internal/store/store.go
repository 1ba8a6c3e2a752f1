package store

import (
	"context"
	"errors"
	"time"

	"github.com/quillpad/quillpad/internal/model"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrDuplicateUser = errors.New("username already taken")
)

// PostListOpts controls the post listing. Posts are always returned
// newest first. Limit <= 0 means no limit.
type PostListOpts struct {
	Limit  int
	Offset int
}

type Store interface {
	UserStore
	PostStore
	Close() error
}

type UserStore interface {
	// CreateUser inserts a new user and returns its id. Returns
	// ErrDuplicateUser when the username is already taken.
	CreateUser(ctx context.Context, user *model.User) (int64, error)
	GetUser(ctx context.Context, id int64) (model.User, error)
	GetUserByUsername(ctx context.Context, username string) (model.User, error)
}

type PostStore interface {
	CreatePost(ctx context.Context, post *model.Post) (int64, error)
	GetPost(ctx context.Context, id int64) (model.Post, error)
	ListPosts(ctx context.Context, opts PostListOpts) ([]model.Post, error)
	CountPosts(ctx context.Context) (int64, error)
	SearchPosts(ctx context.Context, term string, limit int) ([]model.Post, error)
	// UpdatePost overwrites title, body and updated_at. A missing id is
	// a silent no-op.
	UpdatePost(ctx context.Context, id int64, title, body string, updatedAt time.Time) error
	// DeletePost removes the post. A missing id is a silent no-op.
	DeletePost(ctx context.Context, id int64) error
}
