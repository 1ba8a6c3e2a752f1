// Package memory implements an in-memory store for development and
// testing.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/quillpad/quillpad/internal/model"
	"github.com/quillpad/quillpad/internal/store"
)

type Store struct {
	mu    sync.Mutex
	users []model.User
	posts []model.Post

	userIDCounter int64
	postIDCounter int64
}

var _ store.Store = (*Store)(nil)

func New() *Store {
	return &Store{}
}

func (s *Store) Close() error {
	return nil
}

func (s *Store) CreateUser(ctx context.Context, user *model.User) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if u.Username == user.Username {
			return 0, store.ErrDuplicateUser
		}
	}

	s.userIDCounter++
	u := *user
	u.ID = s.userIDCounter
	s.users = append(s.users, u)
	return u.ID, nil
}

func (s *Store) GetUser(ctx context.Context, id int64) (model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if u.ID == id {
			return u, nil
		}
	}
	return model.User{}, store.ErrNotFound
}

func (s *Store) GetUserByUsername(ctx context.Context, username string) (model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if u.Username == username {
			return u, nil
		}
	}
	return model.User{}, store.ErrNotFound
}

func (s *Store) CreatePost(ctx context.Context, post *model.Post) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.postIDCounter++
	p := *post
	p.ID = s.postIDCounter
	s.posts = append(s.posts, p)
	return p.ID, nil
}

func (s *Store) GetPost(ctx context.Context, id int64) (model.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, p := range s.posts {
		if p.ID == id {
			return p, nil
		}
	}
	return model.Post{}, store.ErrNotFound
}

func (s *Store) ListPosts(ctx context.Context, opts store.PostListOpts) ([]model.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	posts := s.sortedPostsLocked()
	if opts.Offset > 0 {
		if opts.Offset >= len(posts) {
			return nil, nil
		}
		posts = posts[opts.Offset:]
	}
	if opts.Limit > 0 && opts.Limit < len(posts) {
		posts = posts[:opts.Limit]
	}
	return posts, nil
}

func (s *Store) CountPosts(ctx context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return int64(len(s.posts)), nil
}

func (s *Store) SearchPosts(ctx context.Context, term string, limit int) ([]model.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	term = strings.ToLower(term)
	var results []model.Post
	for _, p := range s.sortedPostsLocked() {
		if strings.Contains(strings.ToLower(p.Title), term) || strings.Contains(strings.ToLower(p.Body), term) {
			results = append(results, p)
			if limit > 0 && len(results) == limit {
				break
			}
		}
	}
	return results, nil
}

func (s *Store) UpdatePost(ctx context.Context, id int64, title, body string, updatedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.posts {
		if s.posts[i].ID == id {
			s.posts[i].Title = title
			s.posts[i].Body = body
			s.posts[i].UpdatedAt = updatedAt
			return nil
		}
	}
	// Missing id is a no-op, matching the sqlite backend.
	return nil
}

func (s *Store) DeletePost(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.posts {
		if s.posts[i].ID == id {
			s.posts = append(s.posts[:i], s.posts[i+1:]...)
			return nil
		}
	}
	return nil
}

// sortedPostsLocked returns a copy sorted newest first, id-descending
// within the same timestamp.
func (s *Store) sortedPostsLocked() []model.Post {
	posts := make([]model.Post, len(s.posts))
	copy(posts, s.posts)
	sort.SliceStable(posts, func(i, j int) bool {
		if posts[i].CreatedAt.Equal(posts[j].CreatedAt) {
			return posts[i].ID > posts[j].ID
		}
		return posts[i].CreatedAt.After(posts[j].CreatedAt)
	})
	return posts
}
