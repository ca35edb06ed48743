package devserver

import (
	"errors"
	"log/slog"
	"net/http"
	"unicode"

	"github.com/florianilch/shelf/internal/shelfapi"
)

func strongPassword(p string) bool {
	var letter, digit bool
	for _, r := range p {
		switch {
		case r < unicode.MaxASCII && unicode.IsLetter(r):
			letter = true
		case unicode.IsDigit(r):
			digit = true
		}
	}
	return len([]rune(p)) >= 8 && letter && digit
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req shelfapi.RegisterRequest
	if !readJSON(w, r, &req) {
		return
	}
	if err := s.validate.Struct(req); err != nil {
		writeDetail(ctx, w, "Validation failed", http.StatusBadRequest)
		return
	}
	if !strongPassword(req.Password) {
		writeDetail(ctx, w, "Пароль должен содержать минимум 8 символов, буквы и цифры", http.StatusBadRequest)
		return
	}

	user, err := s.db.createUser(req)
	if errors.Is(err, errUserExists) {
		writeDetail(ctx, w, "Пользователь уже существует", http.StatusBadRequest)
		return
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to create user", "error", err)
		writeDetail(ctx, w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	writeJSON(ctx, w, user, http.StatusCreated)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := r.ParseForm(); err != nil {
		writeDetail(ctx, w, "Invalid request body", http.StatusBadRequest)
		return
	}
	username, password := r.PostForm.Get("username"), r.PostForm.Get("password")
	if username == "" || password == "" {
		writeDetail(ctx, w, "Validation failed", http.StatusBadRequest)
		return
	}

	user, ok := s.db.authenticate(username, password)
	if !ok {
		writeDetail(ctx, w, "Неверный логин или пароль", http.StatusUnauthorized)
		return
	}
	s.issue(w, r, user.ID)
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	cookie, err := r.Cookie(RefreshCookieName)
	if err != nil || cookie.Value == "" {
		writeDetail(ctx, w, "Refresh token не предоставлен", http.StatusUnauthorized)
		return
	}

	userID, err := s.tokens.parse(cookie.Value, tokenTypeRefresh)
	if errors.Is(err, errWrongTokenType) {
		writeDetail(ctx, w, "Неверный тип токена", http.StatusUnauthorized)
		return
	}
	if err != nil {
		writeDetail(ctx, w, "Недействительный токен", http.StatusUnauthorized)
		return
	}

	stored, err := s.sessions.Load(ctx, userID)
	if err != nil && !errors.Is(err, ErrNoSession) {
		slog.ErrorContext(ctx, "failed to load refresh session", "error", err)
		writeDetail(ctx, w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	if stored == "" || stored != cookie.Value {
		writeDetail(ctx, w, "Сессия истекла или отозвана", http.StatusUnauthorized)
		return
	}
	s.issue(w, r, userID)
}

// issue mints a token pair, stores the refresh session and sets the cookie.
func (s *Server) issue(w http.ResponseWriter, r *http.Request, userID int64) {
	ctx := r.Context()

	access, refresh, err := s.tokens.pair(userID)
	if err != nil {
		slog.ErrorContext(ctx, "failed to issue tokens", "error", err)
		writeDetail(ctx, w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	if err := s.sessions.Save(ctx, userID, refresh, s.tokens.refreshTTL); err != nil {
		slog.ErrorContext(ctx, "failed to store refresh session", "error", err)
		writeDetail(ctx, w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     RefreshCookieName,
		Value:    refresh,
		Path:     s.basePath + "/auth",
		MaxAge:   int(s.tokens.refreshTTL.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	writeJSON(ctx, w, shelfapi.TokenInfo{AccessToken: access, TokenType: "bearer"}, http.StatusOK)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request, userID int64) {
	if err := s.sessions.Revoke(r.Context(), userID); err != nil {
		slog.ErrorContext(r.Context(), "failed to revoke refresh session", "error", err)
	}
	http.SetCookie(w, &http.Cookie{
		Name:     RefreshCookieName,
		Value:    "",
		Path:     s.basePath + "/auth",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request, userID int64) {
	user, err := s.db.user(userID)
	if err != nil {
		writeDetail(r.Context(), w, "User not found", http.StatusNotFound)
		return
	}
	writeJSON(r.Context(), w, user, http.StatusOK)
}
