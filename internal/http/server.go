package httpapp

import (
	"errors"
	"html/template"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/quillpad/quillpad/internal/auth"
	"github.com/quillpad/quillpad/internal/config"
	"github.com/quillpad/quillpad/internal/model"
	"github.com/quillpad/quillpad/internal/rate"
	"github.com/quillpad/quillpad/internal/store"
)

const tokenCookie = "token"

const searchLimit = 50

// Server is the HTTP front of the blog. Routing is a plain path
// switch in ServeHTTP.
type Server struct {
	store     store.Store
	auth      *auth.Service
	limiter   rate.Limiter
	cfg       config.Config
	templates *Templates
	log       *slog.Logger
}

func NewServer(st store.Store, authSvc *auth.Service, limiter rate.Limiter, cfg config.Config, log *slog.Logger) (*Server, error) {
	tpls, err := loadTemplates()
	if err != nil {
		return nil, err
	}
	return &Server{
		store:     st,
		auth:      authSvc,
		limiter:   limiter,
		cfg:       cfg,
		templates: tpls,
		log:       log,
	}, nil
}

// viewData is the single payload handed to every template. Handlers
// fill in the fields their page uses.
type viewData struct {
	Title        string
	CurrentUser  *model.User
	FlashSuccess string
	FlashError   string

	Posts    []model.Post
	Post     model.Post
	HasPrev  bool
	HasNext  bool
	PrevPage int
	NextPage int
	Term     string
	Results  []model.Post
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// HTML forms can only submit GET and POST. A hidden _method
	// field upgrades a POST to PUT or DELETE.
	method := r.Method
	if method == http.MethodPost {
		if o := r.PostFormValue("_method"); o == http.MethodPut || o == http.MethodDelete {
			method = o
		}
	}

	path := r.URL.Path
	switch {
	case path == "/" && method == http.MethodGet:
		s.handleHome(w, r)
	case path == "/about" && method == http.MethodGet:
		s.handleAbout(w, r)
	case strings.HasPrefix(path, "/post/") && method == http.MethodGet:
		s.handlePostPage(w, r)
	case path == "/search" && method == http.MethodPost:
		s.handleSearch(w, r)
	case path == "/search" && method == http.MethodGet:
		http.Redirect(w, r, "/", http.StatusSeeOther)
	case path == "/login" && method == http.MethodGet:
		s.handleLoginPage(w, r)
	case path == "/login" && method == http.MethodPost:
		s.handleLogin(w, r)
	case path == "/register" && method == http.MethodGet:
		s.handleRegisterPage(w, r)
	case path == "/register" && method == http.MethodPost:
		s.handleRegister(w, r)
	case path == "/guest" && method == http.MethodPost:
		s.handleGuestLogin(w, r)
	case path == "/logout" && method == http.MethodGet:
		s.handleLogout(w, r)
	case path == "/dashboard" && method == http.MethodGet:
		s.handleDashboard(w, r)
	case path == "/add-post" && method == http.MethodGet:
		s.handleAddPostPage(w, r)
	case path == "/add-post" && method == http.MethodPost:
		s.handleAddPost(w, r)
	case strings.HasPrefix(path, "/edit-post/") && method == http.MethodGet:
		s.handleEditPostPage(w, r)
	case strings.HasPrefix(path, "/edit-post/") && method == http.MethodPut:
		s.handleEditPost(w, r)
	case strings.HasPrefix(path, "/delete-post/") && method == http.MethodDelete:
		s.handleDeletePost(w, r)
	default:
		s.renderNotFound(w, r)
	}
}

// --- public pages ---

func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	page := 1
	if p, err := strconv.Atoi(r.URL.Query().Get("page")); err == nil && p > 1 {
		page = p
	}
	size := s.cfg.PageSize

	posts, err := s.store.ListPosts(r.Context(), store.PostListOpts{
		Limit:  size,
		Offset: (page - 1) * size,
	})
	if err != nil {
		s.renderErrorPage(w, r, "list posts", err)
		return
	}
	total, err := s.store.CountPosts(r.Context())
	if err != nil {
		s.renderErrorPage(w, r, "count posts", err)
		return
	}

	data := s.baseData(w, r, "Quillpad")
	data.Posts = posts
	data.HasPrev = page > 1
	data.PrevPage = page - 1
	data.HasNext = int64(page*size) < total
	data.NextPage = page + 1
	s.render(w, r, s.templates.Home, data)
}

func (s *Server) handleAbout(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, s.templates.About, s.baseData(w, r, "About"))
}

func (s *Server) handlePostPage(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r.URL.Path, "/post/")
	if !ok {
		s.renderNotFound(w, r)
		return
	}
	post, err := s.store.GetPost(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		s.renderNotFound(w, r)
		return
	}
	if err != nil {
		s.renderErrorPage(w, r, "get post", err)
		return
	}
	data := s.baseData(w, r, post.Title)
	data.Post = post
	s.render(w, r, s.templates.Post, data)
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	term := strings.TrimSpace(r.PostFormValue("searchTerm"))
	if term == "" {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	results, err := s.store.SearchPosts(r.Context(), term, searchLimit)
	if err != nil {
		s.renderErrorPage(w, r, "search posts", err)
		return
	}
	data := s.baseData(w, r, "Search")
	data.Term = term
	data.Results = results
	s.render(w, r, s.templates.Search, data)
}

// --- auth ---

func (s *Server) handleLoginPage(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, s.templates.Login, s.baseData(w, r, "Login"))
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if !s.limiter.Allow(clientIP(r)) {
		setFlash(w, flashError, "Too many attempts, slow down")
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}
	username := strings.TrimSpace(r.PostFormValue("username"))
	password := r.PostFormValue("password")

	_, token, err := s.auth.Login(r.Context(), username, password)
	switch {
	case errors.Is(err, auth.ErrUserNotFound):
		setFlash(w, flashError, "User not found")
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	case errors.Is(err, auth.ErrInvalidCredential):
		setFlash(w, flashError, "Incorrect password")
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	case err != nil:
		s.log.Error("login failed", "error", err)
		setFlash(w, flashError, "Something went wrong, try again")
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	s.setTokenCookie(w, token)
	setFlash(w, flashSuccess, "Welcome back")
	http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
}

func (s *Server) handleRegisterPage(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, s.templates.Register, s.baseData(w, r, "Register"))
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	if !s.limiter.Allow(clientIP(r)) {
		setFlash(w, flashError, "Too many attempts, slow down")
		http.Redirect(w, r, "/register", http.StatusSeeOther)
		return
	}
	username := strings.TrimSpace(r.PostFormValue("username"))
	password := r.PostFormValue("password")
	if username == "" || password == "" {
		setFlash(w, flashError, "Username and password are required")
		http.Redirect(w, r, "/register", http.StatusSeeOther)
		return
	}

	_, token, err := s.auth.Register(r.Context(), username, password)
	switch {
	case errors.Is(err, auth.ErrDuplicateUser):
		setFlash(w, flashError, "That username is already taken")
		http.Redirect(w, r, "/register", http.StatusSeeOther)
		return
	case err != nil:
		s.log.Error("register failed", "error", err)
		setFlash(w, flashError, "Something went wrong, try again")
		http.Redirect(w, r, "/register", http.StatusSeeOther)
		return
	}

	s.setTokenCookie(w, token)
	setFlash(w, flashSuccess, "Account created, welcome")
	http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
}

func (s *Server) handleGuestLogin(w http.ResponseWriter, r *http.Request) {
	user, token, err := s.auth.GuestLogin(r.Context())
	if err != nil {
		s.log.Error("guest login failed", "error", err)
		setFlash(w, flashError, "Something went wrong, try again")
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}
	s.setTokenCookie(w, token)
	setFlash(w, flashSuccess, "Signed in as "+user.Username)
	http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.clearTokenCookie(w)
	setFlash(w, flashSuccess, "You have been signed out")
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// --- protected pages ---

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	user, ok := s.requireAuth(w, r)
	if !ok {
		return
	}
	posts, err := s.store.ListPosts(r.Context(), store.PostListOpts{})
	if err != nil {
		s.flashError303(w, r, "list posts", err, "Could not load the dashboard", "/")
		return
	}
	data := s.baseData(w, r, "Dashboard")
	data.CurrentUser = &user
	data.Posts = posts
	s.render(w, r, s.templates.Dashboard, data)
}

func (s *Server) handleAddPostPage(w http.ResponseWriter, r *http.Request) {
	user, ok := s.requireAuth(w, r)
	if !ok {
		return
	}
	data := s.baseData(w, r, "New Post")
	data.CurrentUser = &user
	s.render(w, r, s.templates.AddPost, data)
}

func (s *Server) handleAddPost(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.requireAuth(w, r); !ok {
		return
	}
	// Titles and bodies are stored as submitted, empty included.
	title := r.PostFormValue("title")
	body := r.PostFormValue("body")

	now := time.Now()
	post := &model.Post{Title: title, Body: body, CreatedAt: now, UpdatedAt: now}
	if _, err := s.store.CreatePost(r.Context(), post); err != nil {
		s.log.Error("create post failed", "error", err)
		setFlash(w, flashError, "Could not save the post")
		http.Redirect(w, r, "/add-post", http.StatusSeeOther)
		return
	}
	setFlash(w, flashSuccess, "Post published")
	http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
}

func (s *Server) handleEditPostPage(w http.ResponseWriter, r *http.Request) {
	user, ok := s.requireAuth(w, r)
	if !ok {
		return
	}
	id, ok := pathID(r.URL.Path, "/edit-post/")
	if !ok {
		setFlash(w, flashError, "No such post")
		http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
		return
	}
	post, err := s.store.GetPost(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		setFlash(w, flashError, "No such post")
		http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
		return
	}
	if err != nil {
		s.flashError303(w, r, "get post", err, "Could not load the post", "/dashboard")
		return
	}
	data := s.baseData(w, r, "Edit Post")
	data.CurrentUser = &user
	data.Post = post
	s.render(w, r, s.templates.EditPost, data)
}

func (s *Server) handleEditPost(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.requireAuth(w, r); !ok {
		return
	}
	id, ok := pathID(r.URL.Path, "/edit-post/")
	if !ok {
		setFlash(w, flashError, "No such post")
		http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
		return
	}
	title := r.PostFormValue("title")
	body := r.PostFormValue("body")

	if err := s.store.UpdatePost(r.Context(), id, title, body, time.Now()); err != nil {
		s.log.Error("update post failed", "error", err, "post_id", id)
		setFlash(w, flashError, "Could not save the post")
		http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
		return
	}
	setFlash(w, flashSuccess, "Post updated")
	http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
}

func (s *Server) handleDeletePost(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.requireAuth(w, r); !ok {
		return
	}
	id, ok := pathID(r.URL.Path, "/delete-post/")
	if !ok {
		setFlash(w, flashError, "No such post")
		http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
		return
	}

	// Deleting an already-deleted post is fine, the outcome is the
	// same either way.
	if err := s.store.DeletePost(r.Context(), id); err != nil {
		s.log.Error("delete post failed", "error", err, "post_id", id)
		setFlash(w, flashError, "Could not delete the post")
		http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
		return
	}
	setFlash(w, flashSuccess, "Post deleted")
	http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
}

// --- auth plumbing ---

// requireAuth resolves the token cookie to a user. On any failure it
// clears the cookie and redirects to /login; callers must return when
// ok is false.
func (s *Server) requireAuth(w http.ResponseWriter, r *http.Request) (model.User, bool) {
	c, err := r.Cookie(tokenCookie)
	if err != nil || c.Value == "" {
		setFlash(w, flashError, "Please log in first")
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return model.User{}, false
	}
	user, err := s.auth.Authenticate(r.Context(), c.Value)
	if err != nil {
		s.clearTokenCookie(w)
		setFlash(w, flashError, "Your session has expired, log in again")
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return model.User{}, false
	}
	return user, true
}

// optionalAuth resolves the current user for public pages so the nav
// can reflect login state. Invalid tokens are ignored here.
func (s *Server) optionalAuth(r *http.Request) *model.User {
	c, err := r.Cookie(tokenCookie)
	if err != nil || c.Value == "" {
		return nil
	}
	user, err := s.auth.Authenticate(r.Context(), c.Value)
	if err != nil {
		return nil
	}
	return &user
}

func (s *Server) setTokenCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     tokenCookie,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(s.auth.TokenTTL().Seconds()),
	})
}

func (s *Server) clearTokenCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     tokenCookie,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
	})
}

// --- rendering ---

func (s *Server) baseData(w http.ResponseWriter, r *http.Request, title string) viewData {
	kind, msg := popFlash(w, r)
	data := viewData{
		Title:       title,
		CurrentUser: s.optionalAuth(r),
	}
	switch kind {
	case flashSuccess:
		data.FlashSuccess = msg
	case flashError:
		data.FlashError = msg
	}
	return data
}

func (s *Server) render(w http.ResponseWriter, r *http.Request, tpl *template.Template, data viewData) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := tpl.ExecuteTemplate(w, "layout", data); err != nil {
		s.log.Error("render failed", "error", err, "path", r.URL.Path)
	}
}

func (s *Server) renderNotFound(w http.ResponseWriter, r *http.Request) {
	data := s.baseData(w, r, "Not Found")
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusNotFound)
	if err := s.templates.NotFound.ExecuteTemplate(w, "layout", data); err != nil {
		s.log.Error("render failed", "error", err, "path", r.URL.Path)
	}
}

// renderErrorPage answers a public-page storage failure with a styled
// error page rather than a bare 500 body.
func (s *Server) renderErrorPage(w http.ResponseWriter, r *http.Request, op string, err error) {
	s.log.Error(op+" failed", "error", err, "path", r.URL.Path)
	data := s.baseData(w, r, "Something went wrong")
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusInternalServerError)
	if err := s.templates.Error.ExecuteTemplate(w, "layout", data); err != nil {
		s.log.Error("render failed", "error", err, "path", r.URL.Path)
	}
}

// flashError303 reports a workflow failure the usual way, as a flash
// and a redirect to a prior page.
func (s *Server) flashError303(w http.ResponseWriter, r *http.Request, op string, err error, msg, location string) {
	s.log.Error(op+" failed", "error", err, "path", r.URL.Path)
	setFlash(w, flashError, msg)
	http.Redirect(w, r, location, http.StatusSeeOther)
}

// --- small helpers ---

// pathID extracts the numeric id after prefix, e.g. /post/42 -> 42.
func pathID(path, prefix string) (int64, bool) {
	raw := strings.TrimPrefix(path, prefix)
	raw = strings.TrimSuffix(raw, "/")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
