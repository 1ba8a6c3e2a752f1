package httpapp

import (
	"net/http"
	"net/url"
	"strings"
)

// Flash messages ride a short-lived cookie: set on redirect, consumed
// on the next render. There is no server-side session store.
const flashCookie = "flash"

const (
	flashSuccess = "success"
	flashError   = "error"
)

func setFlash(w http.ResponseWriter, kind, msg string) {
	http.SetCookie(w, &http.Cookie{
		Name:     flashCookie,
		Value:    url.QueryEscape(kind + "|" + msg),
		Path:     "/",
		HttpOnly: true,
		MaxAge:   60,
	})
}

// popFlash reads and clears the flash cookie. Returns empty strings
// when no flash is pending.
func popFlash(w http.ResponseWriter, r *http.Request) (kind, msg string) {
	c, err := r.Cookie(flashCookie)
	if err != nil || c.Value == "" {
		return "", ""
	}
	http.SetCookie(w, &http.Cookie{
		Name:     flashCookie,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		MaxAge:   -1,
	})
	decoded, err := url.QueryUnescape(c.Value)
	if err != nil {
		return "", ""
	}
	kind, msg, ok := strings.Cut(decoded, "|")
	if !ok {
		return "", ""
	}
	return kind, msg
}
