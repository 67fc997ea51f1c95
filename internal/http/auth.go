package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"litfunds/internal/core"
	applog "litfunds/internal/log"
	"litfunds/internal/services"
)

const sessionCookie = "litfunds_session"

type userKey struct{}

// userIDFrom returns the signed-in user set by requireAuth.
func userIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(userKey{}).(string)
	return id
}

func (s *Server) setSessionCookie(w http.ResponseWriter, sess services.Session) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    sess.Token,
		Path:     "/",
		Expires:  sess.ExpiresAt,
		HttpOnly: true,
		Secure:   s.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}

func (s *Server) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
		Secure:   s.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}

// authenticate resolves the session cookie to a user id.
func (s *Server) authenticate(r *http.Request) (string, bool) {
	c, err := r.Cookie(sessionCookie)
	if err != nil || c.Value == "" {
		return "", false
	}
	userID, err := s.auth.Authenticate(r.Context(), c.Value)
	if err != nil {
		if !errors.Is(err, services.ErrUnauthenticated) {
			applog.FromContext(r.Context()).ErrorContext(r.Context(), "Session lookup failed", "error", err)
		}
		return "", false
	}
	return userID, true
}

// requireAuth redirects anonymous visitors to the login page.
func (s *Server) requireAuth(next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, ok := s.authenticate(r)
		if !ok {
			http.Redirect(w, r, "/", http.StatusSeeOther)
			return
		}
		ctx := context.WithValue(r.Context(), userKey{}, userID)
		ctx = applog.NewContext(ctx, applog.FromContext(ctx).With(applog.FieldUserID, userID))
		next(w, r.WithContext(ctx))
	})
}

// requireAPIAuth answers 401 instead of redirecting.
func (s *Server) requireAPIAuth(next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, ok := s.authenticate(r)
		if !ok {
			NewResponse().Status(http.StatusUnauthorized).JSON(map[string]string{"error": "not signed in"}).Write(w)
			return
		}
		next(w, r.WithContext(context.WithValue(r.Context(), userKey{}, userID)))
	})
}

type authPage struct {
	layout
	Error string
	Email string
}

func signInPage(errMsg, email string) authPage {
	return authPage{layout: layout{Title: "Sign In"}, Error: errMsg, Email: email}
}

func signUpPage(errMsg, email string) authPage {
	return authPage{layout: layout{Title: "Sign Up"}, Error: errMsg, Email: email}
}

func (s *Server) handleLoginPage(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.authenticate(r); ok {
		http.Redirect(w, r, "/home", http.StatusSeeOther)
		return
	}
	s.render(w, r, http.StatusOK, "login.html", signInPage("", ""))
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if resp := ParseFormOrFail(r); resp != nil {
		resp.Write(w)
		return
	}
	email := sanitizeInput(r.PostForm.Get("email"))

	sess, err := s.auth.SignIn(r.Context(), email, r.PostForm.Get("password"))
	if err != nil {
		msg := "Failed to sign in. Please try again."
		status := http.StatusInternalServerError
		if errors.Is(err, services.ErrInvalidCredentials) {
			msg, status = "Invalid email or password.", http.StatusUnauthorized
		} else {
			applog.FromContext(r.Context()).ErrorContext(r.Context(), "Sign in failed", "error", err)
		}
		s.render(w, r, status, "login.html", signInPage(msg, email))
		return
	}

	s.setSessionCookie(w, sess)
	http.Redirect(w, r, "/home", http.StatusSeeOther)
}

func (s *Server) handleSignupPage(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusOK, "signup.html", signUpPage("", ""))
}

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	if resp := ParseFormOrFail(r); resp != nil {
		resp.Write(w)
		return
	}
	req := services.SignUpRequest{
		Email:           sanitizeInput(r.PostForm.Get("email")),
		Password:        r.PostForm.Get("password"),
		ConfirmPassword: r.PostForm.Get("confirm_password"),
		DisplayName:     sanitizeInput(r.PostForm.Get("display_name")),
	}

	sess, err := s.auth.SignUp(r.Context(), req)
	if err != nil {
		status := http.StatusUnprocessableEntity
		var msg string
		switch {
		case errors.Is(err, services.ErrPasswordMismatch):
			msg = "Passwords do not match."
		case errors.Is(err, core.ErrWeakPassword):
			msg = "Password must be at least 6 characters."
		case errors.Is(err, core.ErrInvalidEmail):
			msg = "Please enter a valid email address."
		case errors.Is(err, services.ErrEmailTaken):
			msg, status = "An account with this email already exists.", http.StatusConflict
		default:
			applog.FromContext(r.Context()).ErrorContext(r.Context(), "Sign up failed", "error", err)
			msg, status = "Failed to create an account. Please try again.", http.StatusInternalServerError
		}
		s.render(w, r, status, "signup.html", signUpPage(msg, req.Email))
		return
	}

	s.setSessionCookie(w, sess)
	http.Redirect(w, r, "/home", http.StatusSeeOther)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if c, err := r.Cookie(sessionCookie); err == nil && c.Value != "" {
		if err := s.auth.SignOut(r.Context(), c.Value); err != nil {
			applog.FromContext(r.Context()).ErrorContext(r.Context(), "Sign out failed", "error", err)
		}
	}
	s.clearSessionCookie(w)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}
