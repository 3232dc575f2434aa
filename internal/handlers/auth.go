package handlers

import (
	"mime"
	"net/http"
	"net/url"
	"strings"

	"github.com/abrezinsky/squarespool/internal/auth"
)

const (
	adminHome = "/admin"
	loginPath = "/admin/login"
)

// LoginPageData holds data for the login template
type LoginPageData struct {
	Error string
	Next  string
}

// LoginRequest is the JSON form of an admin login
type LoginRequest struct {
	Password string `json:"password" validate:"required"`
}

// wantsJSON reports whether the client posted JSON rather than a form
func wantsJSON(r *http.Request) bool {
	ct, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return ct == "application/json"
}

// adminTarget keeps a post-login redirect on this site's admin pages
func adminTarget(next string) string {
	u, err := url.Parse(next)
	if err != nil || u.Scheme != "" || u.Host != "" || strings.HasPrefix(next, "//") {
		return adminHome
	}
	onAdmin := u.Path == adminHome || strings.HasPrefix(u.Path, adminHome+"/")
	if !onAdmin || u.Path == loginPath {
		return adminHome
	}
	return u.RequestURI()
}

// loginURL sends the browser back to next after logging in
func loginURL(next string) string {
	if next = adminTarget(next); next == adminHome {
		return loginPath
	}
	return loginPath + "?next=" + url.QueryEscape(next)
}

// requireAdminPage redirects visitors without a session to the login form
func (h *Handlers) requireAdminPage(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !h.Auth.GetSessionFromRequest(r) {
			http.Redirect(w, r, loginURL(r.URL.RequestURI()), http.StatusFound)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// requireAdminAPI rejects API calls without a session
func (h *Handlers) requireAdminAPI(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !h.Auth.GetSessionFromRequest(r) {
			respondError(w, Unauthorized("Admin session required, please log in"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (h *Handlers) renderLogin(w http.ResponseWriter, status int, data LoginPageData) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := h.templates.AdminLogin.Execute(w, data); err != nil {
		h.Log.Error("Failed to render login page", "error", err)
	}
}

// handleLoginPage renders the login form
func (h *Handlers) handleLoginPage(w http.ResponseWriter, r *http.Request) {
	next := adminTarget(r.URL.Query().Get("next"))
	if h.Auth.GetSessionFromRequest(r) {
		http.Redirect(w, r, next, http.StatusFound)
		return
	}
	h.renderLogin(w, http.StatusOK, LoginPageData{Next: next})
}

// handleLogin accepts the login form, or a JSON body from API clients
func (h *Handlers) handleLogin(w http.ResponseWriter, r *http.Request) {
	if wantsJSON(r) {
		var req LoginRequest
		if err := h.decodeAndValidate(r, &req); err != nil {
			respondError(w, err)
			return
		}
		token, ok := h.Auth.Login(req.Password)
		if !ok {
			h.Log.Warn("Failed admin login", "remote_addr", r.RemoteAddr)
			respondError(w, Unauthorized("Invalid password"))
			return
		}
		auth.SetSessionCookie(w, token)
		respondSuccess(w, "Logged in")
		return
	}

	next := adminTarget(r.FormValue("next"))
	token, ok := h.Auth.Login(r.FormValue("password"))
	if !ok {
		h.Log.Warn("Failed admin login", "remote_addr", r.RemoteAddr)
		h.renderLogin(w, http.StatusUnauthorized, LoginPageData{Error: "Invalid password", Next: next})
		return
	}
	auth.SetSessionCookie(w, token)
	http.Redirect(w, r, next, http.StatusFound)
}

// handleLogout ends the session. JSON clients get 204, browsers go back to
// the login form.
func (h *Handlers) handleLogout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(auth.CookieName); err == nil {
		h.Auth.Logout(cookie.Value)
	}
	auth.ClearSessionCookie(w)

	if wantsJSON(r) {
		respondDeleted(w)
		return
	}
	http.Redirect(w, r, loginPath, http.StatusFound)
}
