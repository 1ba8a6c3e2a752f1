package httpapp

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quillpad/quillpad/internal/auth"
	"github.com/quillpad/quillpad/internal/config"
	"github.com/quillpad/quillpad/internal/rate"
	"github.com/quillpad/quillpad/internal/store"
	"github.com/quillpad/quillpad/internal/store/memory"
)

// testApp is a running server plus a cookie-aware client, close to
// what a browser session looks like.
type testApp struct {
	ts     *httptest.Server
	client *http.Client
	auth   *auth.Service
	store  *memory.Store
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	st := memory.New()
	authSvc := auth.NewService(st, []byte("test-secret"), time.Hour)
	cfg := config.Config{PageSize: 10, LoginPerMinute: 100}
	srv, err := NewServer(st, authSvc, rate.NewFixedWindow(cfg.LoginPerMinute, time.Minute), cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)

	ts := httptest.NewServer(srv)
	t.Cleanup(ts.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)

	return &testApp{
		ts:     ts,
		client: &http.Client{Jar: jar},
		auth:   authSvc,
		store:  st,
	}
}

func (a *testApp) postForm(t *testing.T, path string, form url.Values) *http.Response {
	t.Helper()
	resp, err := a.client.PostForm(a.ts.URL+path, form)
	require.NoError(t, err)
	return resp
}

func (a *testApp) get(t *testing.T, path string) *http.Response {
	t.Helper()
	resp, err := a.client.Get(a.ts.URL + path)
	require.NoError(t, err)
	return resp
}

func (a *testApp) body(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(b)
}

func (a *testApp) tokenCookie() *http.Cookie {
	u, _ := url.Parse(a.ts.URL)
	for _, c := range a.client.Jar.Cookies(u) {
		if c.Name == "token" {
			return c
		}
	}
	return nil
}

func (a *testApp) register(t *testing.T, username, password string) {
	t.Helper()
	resp := a.postForm(t, "/register", url.Values{
		"username": {username},
		"password": {password},
	})
	body := a.body(t, resp)
	require.Contains(t, body, "Dashboard")
	require.NotNil(t, a.tokenCookie())
}

func TestRegisterThenDashboard(t *testing.T) {
	app := newTestApp(t)

	app.register(t, "alice", "s3cret")

	body := app.body(t, app.get(t, "/dashboard"))
	assert.Contains(t, body, "Signed in as alice")
}

func TestRegisterDuplicateUsername(t *testing.T) {
	app := newTestApp(t)
	app.register(t, "alice", "s3cret")

	// A second registration with the same name fails and must not
	// replace the session.
	other := newClientAgainst(t, app)
	resp, err := other.PostForm(app.ts.URL+"/register", url.Values{
		"username": {"alice"},
		"password": {"different"},
	})
	require.NoError(t, err)
	body := readAll(t, resp)

	assert.Contains(t, body, "already taken")
	u, _ := url.Parse(app.ts.URL)
	for _, c := range other.Jar.Cookies(u) {
		assert.NotEqual(t, "token", c.Name)
	}
}

func TestLoginWrongPassword(t *testing.T) {
	app := newTestApp(t)
	app.register(t, "alice", "s3cret")

	other := newClientAgainst(t, app)
	resp, err := other.PostForm(app.ts.URL+"/login", url.Values{
		"username": {"alice"},
		"password": {"wrong"},
	})
	require.NoError(t, err)
	body := readAll(t, resp)

	assert.Contains(t, body, "Incorrect password")
	u, _ := url.Parse(app.ts.URL)
	for _, c := range other.Jar.Cookies(u) {
		assert.NotEqual(t, "token", c.Name)
	}
}

func TestLoginUnknownUser(t *testing.T) {
	app := newTestApp(t)

	resp := app.postForm(t, "/login", url.Values{
		"username": {"nobody"},
		"password": {"whatever"},
	})
	body := app.body(t, resp)

	assert.Contains(t, body, "User not found")
}

func TestPostsListNewestFirst(t *testing.T) {
	app := newTestApp(t)
	app.register(t, "writer", "pw")

	for _, title := range []string{"Post A", "Post B", "Post C"} {
		resp := app.postForm(t, "/add-post", url.Values{
			"title": {title},
			"body":  {"body of " + title},
		})
		resp.Body.Close()
	}

	body := app.body(t, app.get(t, "/"))
	a := strings.Index(body, "Post A")
	b := strings.Index(body, "Post B")
	c := strings.Index(body, "Post C")
	require.True(t, a > 0 && b > 0 && c > 0)
	assert.Less(t, c, b, "C before B")
	assert.Less(t, b, a, "B before A")
}

func TestAddPostAcceptsEmptyFields(t *testing.T) {
	app := newTestApp(t)
	app.register(t, "writer", "pw")

	// Empty titles and bodies are stored as-is, there is no form
	// validation.
	resp := app.postForm(t, "/add-post", url.Values{
		"title": {""},
		"body":  {""},
	})
	body := app.body(t, resp)
	assert.Contains(t, body, "Post published")

	posts, err := app.store.ListPosts(context.Background(), store.PostListOpts{})
	require.NoError(t, err)
	require.Len(t, posts, 1)
	assert.Empty(t, posts[0].Title)
	assert.Empty(t, posts[0].Body)
}

func TestEditPostToEmptyTitle(t *testing.T) {
	app := newTestApp(t)
	app.register(t, "writer", "pw")

	resp := app.postForm(t, "/add-post", url.Values{
		"title": {"Named"},
		"body":  {"text"},
	})
	resp.Body.Close()

	posts, err := app.store.ListPosts(context.Background(), store.PostListOpts{})
	require.NoError(t, err)
	require.Len(t, posts, 1)
	id := posts[0].ID

	resp = app.postForm(t, "/edit-post/"+itoa(id), url.Values{
		"_method": {"PUT"},
		"title":   {""},
		"body":    {"text"},
	})
	body := app.body(t, resp)
	assert.Contains(t, body, "Post updated")

	got, err := app.store.GetPost(context.Background(), id)
	require.NoError(t, err)
	assert.Empty(t, got.Title)
}

func TestEditPost(t *testing.T) {
	app := newTestApp(t)
	app.register(t, "writer", "pw")

	resp := app.postForm(t, "/add-post", url.Values{
		"title": {"Original"},
		"body":  {"first draft"},
	})
	resp.Body.Close()

	posts, err := app.store.ListPosts(context.Background(), store.PostListOpts{})
	require.NoError(t, err)
	require.Len(t, posts, 1)
	id := posts[0].ID

	resp = app.postForm(t, "/edit-post/"+itoa(id), url.Values{
		"_method": {"PUT"},
		"title":   {"Revised"},
		"body":    {"second draft"},
	})
	body := app.body(t, resp)
	assert.Contains(t, body, "Post updated")

	got, err := app.store.GetPost(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, id, got.ID)
	assert.Equal(t, "Revised", got.Title)
	assert.Equal(t, "second draft", got.Body)
	assert.Equal(t, posts[0].CreatedAt, got.CreatedAt)
}

func TestDeletePostIsIdempotent(t *testing.T) {
	app := newTestApp(t)
	app.register(t, "writer", "pw")

	resp := app.postForm(t, "/add-post", url.Values{
		"title": {"Doomed"},
		"body":  {"soon gone"},
	})
	resp.Body.Close()

	posts, err := app.store.ListPosts(context.Background(), store.PostListOpts{})
	require.NoError(t, err)
	require.Len(t, posts, 1)
	id := posts[0].ID

	del := func() string {
		resp := app.postForm(t, "/delete-post/"+itoa(id), url.Values{
			"_method": {"DELETE"},
		})
		return app.body(t, resp)
	}

	assert.Contains(t, del(), "Post deleted")
	// Deleting again succeeds just the same.
	assert.Contains(t, del(), "Post deleted")

	remaining, err := app.store.ListPosts(context.Background(), store.PostListOpts{})
	require.NoError(t, err)
	assert.Empty(t, remaining)
}

func TestGuestLoginsAreDistinct(t *testing.T) {
	app := newTestApp(t)

	first := app.postForm(t, "/guest", url.Values{})
	firstBody := app.body(t, first)
	require.Contains(t, firstBody, "Signed in as guest-")

	other := newClientAgainst(t, app)
	resp, err := other.PostForm(app.ts.URL+"/guest", url.Values{})
	require.NoError(t, err)
	secondBody := readAll(t, resp)
	require.Contains(t, secondBody, "Signed in as guest-")

	assert.NotEqual(t, guestName(t, firstBody), guestName(t, secondBody))
}

func TestExpiredTokenRedirectsToLogin(t *testing.T) {
	app := newTestApp(t)
	app.register(t, "alice", "s3cret")

	// Swap the session cookie for one signed with a TTL in the past.
	expired := auth.NewService(app.store, []byte("test-secret"), -time.Hour)
	token, err := expired.IssueToken(1)
	require.NoError(t, err)
	u, _ := url.Parse(app.ts.URL)
	app.client.Jar.SetCookies(u, []*http.Cookie{{Name: "token", Value: token}})

	body := app.body(t, app.get(t, "/dashboard"))
	assert.Contains(t, body, "Login")
	assert.Contains(t, body, "session has expired")
}

func TestTokenForDeletedUserIsRejected(t *testing.T) {
	app := newTestApp(t)

	token, err := app.auth.IssueToken(12345)
	require.NoError(t, err)
	u, _ := url.Parse(app.ts.URL)
	app.client.Jar.SetCookies(u, []*http.Cookie{{Name: "token", Value: token}})

	body := app.body(t, app.get(t, "/dashboard"))
	assert.Contains(t, body, "Login")
}

func TestLogoutClearsSession(t *testing.T) {
	app := newTestApp(t)
	app.register(t, "alice", "s3cret")

	body := app.body(t, app.get(t, "/logout"))
	assert.Contains(t, body, "You have been signed out")

	body = app.body(t, app.get(t, "/dashboard"))
	assert.Contains(t, body, "Please log in first")
}

func TestSearchFindsPosts(t *testing.T) {
	app := newTestApp(t)
	app.register(t, "writer", "pw")

	resp := app.postForm(t, "/add-post", url.Values{
		"title": {"Gardening notes"},
		"body":  {"tomatoes and basil"},
	})
	resp.Body.Close()
	resp = app.postForm(t, "/add-post", url.Values{
		"title": {"Travel log"},
		"body":  {"three days in Lisbon"},
	})
	resp.Body.Close()

	body := app.body(t, app.postForm(t, "/search", url.Values{
		"searchTerm": {"basil"},
	}))
	assert.Contains(t, body, "Gardening notes")
	assert.NotContains(t, body, "Travel log")
}

// --- helpers ---

func newClientAgainst(t *testing.T, app *testApp) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &http.Client{Jar: jar}
}

func readAll(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(b)
}

func guestName(t *testing.T, body string) string {
	t.Helper()
	i := strings.Index(body, "Signed in as guest-")
	require.GreaterOrEqual(t, i, 0)
	rest := body[i+len("Signed in as "):]
	if j := strings.IndexAny(rest, "<\n"); j >= 0 {
		rest = rest[:j]
	}
	return rest
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
