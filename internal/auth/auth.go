package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/quillpad/quillpad/internal/model"
	"github.com/quillpad/quillpad/internal/store"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

var (
	// ErrDuplicateUser indicates the username is already registered.
	ErrDuplicateUser = errors.New("username already taken")
	// ErrUserNotFound indicates no account exists for the username.
	ErrUserNotFound = errors.New("user not found")
	// ErrInvalidCredential indicates the password did not verify.
	ErrInvalidCredential = errors.New("invalid credential")
	// ErrInvalidToken covers every token failure: bad signature,
	// malformed payload, expiry, or a user id that no longer resolves.
	ErrInvalidToken = errors.New("invalid token")
)

// guestPassword is the fixed placeholder credential for guest
// accounts. Guests only ever authenticate through the token issued at
// creation time.
const guestPassword = "guest"

// Claims embeds the registered claims and adds the authenticated user
// id.
type Claims struct {
	jwt.RegisteredClaims
	UserID int64 `json:"uid"`
}

// Service issues and verifies session tokens and owns the credential
// operations. Tokens are stateless: verification re-resolves the user
// from the store on every request.
type Service struct {
	store    store.Store
	secret   []byte
	tokenTTL time.Duration
}

func NewService(st store.Store, secret []byte, tokenTTL time.Duration) *Service {
	return &Service{store: st, secret: secret, tokenTTL: tokenTTL}
}

// Register creates an account and issues a token for it. Returns
// ErrDuplicateUser when the username is taken.
func (s *Service) Register(ctx context.Context, username, password string) (model.User, string, error) {
	hash, err := HashPassword(password)
	if err != nil {
		return model.User{}, "", err
	}

	user := model.User{
		Username:     username,
		PasswordHash: hash,
		CreatedAt:    time.Now(),
	}
	id, err := s.store.CreateUser(ctx, &user)
	if err != nil {
		if errors.Is(err, store.ErrDuplicateUser) {
			return model.User{}, "", ErrDuplicateUser
		}
		return model.User{}, "", err
	}
	user.ID = id

	token, err := s.IssueToken(id)
	if err != nil {
		return model.User{}, "", err
	}
	return user, token, nil
}

// Login verifies the credentials and issues a token. The two failure
// modes are distinguished so callers can show different messages.
func (s *Service) Login(ctx context.Context, username, password string) (model.User, string, error) {
	user, err := s.store.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return model.User{}, "", ErrUserNotFound
		}
		return model.User{}, "", err
	}

	if !CheckPassword(password, user.PasswordHash) {
		return model.User{}, "", ErrInvalidCredential
	}

	token, err := s.IssueToken(user.ID)
	if err != nil {
		return model.User{}, "", err
	}
	return user, token, nil
}

// GuestLogin creates a throwaway account with a time-derived username
// and proceeds as a successful login.
func (s *Service) GuestLogin(ctx context.Context) (model.User, string, error) {
	username := fmt.Sprintf("guest-%d", time.Now().UnixNano())
	return s.Register(ctx, username, guestPassword)
}

// Authenticate verifies a token string and resolves its user fresh
// from the store. Any failure collapses to ErrInvalidToken.
func (s *Service) Authenticate(ctx context.Context, tokenString string) (model.User, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !token.Valid {
		return model.User{}, ErrInvalidToken
	}

	user, err := s.store.GetUser(ctx, claims.UserID)
	if err != nil {
		return model.User{}, ErrInvalidToken
	}
	return user, nil
}

// IssueToken signs a fresh token for the user id.
func (s *Service) IssueToken(userID int64) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(s.tokenTTL)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
		UserID: userID,
	})
	return token.SignedString(s.secret)
}

// TokenTTL reports the configured token lifetime, used for the cookie
// expiry.
func (s *Service) TokenTTL() time.Duration {
	return s.tokenTTL
}

func HashPassword(pw string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(pw), bcrypt.DefaultCost)
	return string(b), err
}

func CheckPassword(pw, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(pw)) == nil
}
