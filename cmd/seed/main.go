// Command seed fills a database with a demo account and a few posts
// for local development.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/quillpad/quillpad/internal/auth"
	"github.com/quillpad/quillpad/internal/model"
	"github.com/quillpad/quillpad/internal/store/sqlite"
)

func main() {
	dbPath := flag.String("db", "quillpad.db", "path to the sqlite database")
	flag.Parse()

	st, err := sqlite.Open(*dbPath)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer st.Close()

	ctx := context.Background()

	hash, err := auth.HashPassword("demo")
	if err != nil {
		log.Fatalf("hash password: %v", err)
	}
	user := &model.User{Username: "demo", PasswordHash: hash, CreatedAt: time.Now()}
	if _, err := st.CreateUser(ctx, user); err != nil {
		log.Fatalf("create user: %v", err)
	}
	fmt.Printf("created user %q (password: demo)\n", user.Username)

	posts := []struct {
		title, body string
	}{
		{"Hello, Quillpad", "This is a shared notebook. Anyone with an account can write here, edit what others wrote, and prune what no longer belongs."},
		{"On writing small", "Short posts are easier to start and easier to finish. Write the paragraph you have, not the essay you wish you had."},
		{"Guest accounts", "Use the guest button on the login page to get a throwaway account. Guests can do everything a registered writer can."},
	}
	for _, p := range posts {
		now := time.Now()
		post := &model.Post{Title: p.title, Body: p.body, CreatedAt: now, UpdatedAt: now}
		id, err := st.CreatePost(ctx, post)
		if err != nil {
			log.Fatalf("create post: %v", err)
		}
		fmt.Printf("created post %d: %s\n", id, post.Title)
	}
}
