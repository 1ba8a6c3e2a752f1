package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/quillpad/quillpad/internal/model"
	"github.com/quillpad/quillpad/internal/store"

	_ "modernc.org/sqlite"
)

type Store struct {
	db *sql.DB
}

func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON;"); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := applySchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// migrations is an ordered list of SQL migrations.
// Each migration runs exactly once, tracked by schema_version table.
var migrations = []string{
	// Migration 1: Initial schema
	`
CREATE TABLE IF NOT EXISTS users (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	username TEXT NOT NULL,
	password_hash TEXT NOT NULL,
	created_at INTEGER NOT NULL
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_users_username ON users(username);

CREATE TABLE IF NOT EXISTS posts (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	title TEXT NOT NULL,
	body TEXT NOT NULL,
	created_at INTEGER NOT NULL,
	updated_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_posts_created_at ON posts(created_at DESC);
`,
	// Future migrations go here:
	// Migration 2: `ALTER TABLE ...`,
}

func applySchema(db *sql.DB) error {
	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER PRIMARY KEY
		)
	`); err != nil {
		return err
	}

	var currentVersion int
	row := db.QueryRow(`SELECT COALESCE(MAX(version), 0) FROM schema_version`)
	if err := row.Scan(&currentVersion); err != nil {
		return err
	}

	for i := currentVersion; i < len(migrations); i++ {
		if _, err := db.Exec(migrations[i]); err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
		if _, err := db.Exec(`INSERT INTO schema_version (version) VALUES (?)`, i+1); err != nil {
			return fmt.Errorf("failed to record migration %d: %w", i+1, err)
		}
	}

	return nil
}

func (s *Store) CreateUser(ctx context.Context, user *model.User) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
INSERT INTO users (username, password_hash, created_at)
VALUES (?, ?, ?)
`, user.Username, user.PasswordHash, user.CreatedAt.Unix())
	if err != nil {
		if isUniqueViolation(err) {
			return 0, store.ErrDuplicateUser
		}
		return 0, err
	}
	return res.LastInsertId()
}

func (s *Store) GetUser(ctx context.Context, id int64) (model.User, error) {
	row := s.db.QueryRowContext(ctx, `
SELECT id, username, password_hash, created_at
FROM users
WHERE id = ?
`, id)
	return scanUser(row)
}

func (s *Store) GetUserByUsername(ctx context.Context, username string) (model.User, error) {
	row := s.db.QueryRowContext(ctx, `
SELECT id, username, password_hash, created_at
FROM users
WHERE username = ?
`, username)
	return scanUser(row)
}

func (s *Store) CreatePost(ctx context.Context, post *model.Post) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
INSERT INTO posts (title, body, created_at, updated_at)
VALUES (?, ?, ?, ?)
`, post.Title, post.Body, post.CreatedAt.Unix(), post.UpdatedAt.Unix())
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (s *Store) GetPost(ctx context.Context, id int64) (model.Post, error) {
	row := s.db.QueryRowContext(ctx, `
SELECT id, title, body, created_at, updated_at
FROM posts
WHERE id = ?
`, id)
	return scanPost(row)
}

func (s *Store) ListPosts(ctx context.Context, opts store.PostListOpts) ([]model.Post, error) {
	// The id tiebreak keeps same-second posts in insertion order.
	q := `
SELECT id, title, body, created_at, updated_at
FROM posts
ORDER BY created_at DESC, id DESC`
	var args []any
	if opts.Limit > 0 {
		q += " LIMIT ? OFFSET ?"
		args = append(args, opts.Limit, opts.Offset)
	}
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var posts []model.Post
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			return nil, err
		}
		posts = append(posts, post)
	}
	return posts, rows.Err()
}

func (s *Store) CountPosts(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM posts`).Scan(&n)
	return n, err
}

func (s *Store) SearchPosts(ctx context.Context, term string, limit int) ([]model.Post, error) {
	pattern := "%" + escapeLike(term) + "%"
	rows, err := s.db.QueryContext(ctx, `
SELECT id, title, body, created_at, updated_at
FROM posts
WHERE title LIKE ? ESCAPE '\' OR body LIKE ? ESCAPE '\'
ORDER BY created_at DESC, id DESC
LIMIT ?
`, pattern, pattern, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var posts []model.Post
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			return nil, err
		}
		posts = append(posts, post)
	}
	return posts, rows.Err()
}

func (s *Store) UpdatePost(ctx context.Context, id int64, title, body string, updatedAt time.Time) error {
	_, err := s.db.ExecContext(ctx, `
UPDATE posts SET title = ?, body = ?, updated_at = ?
WHERE id = ?
`, title, body, updatedAt.Unix(), id)
	return err
}

func (s *Store) DeletePost(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM posts WHERE id = ?`, id)
	return err
}

func scanUser(scanner interface{ Scan(dest ...any) error }) (model.User, error) {
	var u model.User
	var created int64
	if err := scanner.Scan(&u.ID, &u.Username, &u.PasswordHash, &created); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.User{}, store.ErrNotFound
		}
		return model.User{}, err
	}
	u.CreatedAt = time.Unix(created, 0)
	return u, nil
}

func scanPost(scanner interface{ Scan(dest ...any) error }) (model.Post, error) {
	var p model.Post
	var created, updated int64
	if err := scanner.Scan(&p.ID, &p.Title, &p.Body, &created, &updated); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Post{}, store.ErrNotFound
		}
		return model.Post{}, err
	}
	p.CreatedAt = time.Unix(created, 0)
	p.UpdatedAt = time.Unix(updated, 0)
	return p, nil
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") || strings.Contains(msg, "PRIMARY KEY")
}
