package devserver

import (
	"net/http"
	"strings"
)

// authed handlers receive the bearer token's user.
type authedHandler func(w http.ResponseWriter, r *http.Request, userID int64)

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()
	p := s.basePath

	mux.HandleFunc("POST "+p+"/auth/register", s.handleRegister)
	mux.HandleFunc("POST "+p+"/auth/login", s.handleLogin)
	mux.HandleFunc("POST "+p+"/auth/refresh", s.handleRefresh)
	mux.Handle("POST "+p+"/auth/logout", s.requireAuth(s.handleLogout))
	mux.Handle("GET "+p+"/auth/me", s.requireAuth(s.handleMe))

	mux.Handle("GET "+p+"/search", s.requireAuth(s.handleSearch))
	mux.Handle("GET "+p+"/games/search", s.requireAuth(s.handleSearchGames))
	mux.Handle("POST "+p+"/user-titles", s.requireAuth(s.handleAddUserTitle))
	mux.Handle("GET "+p+"/titles/my", s.requireAuth(s.handleMyTitles))
	mux.Handle("GET "+p+"/titles/user/{user_id}", s.requireAuth(s.handleUserTitles))
	mux.Handle("POST "+p+"/screenshots/upload/{user_title_id}", s.requireAuth(s.handleUploadScreenshot))
	mux.Handle("DELETE "+p+"/screenshots/{screenshot_id}", s.requireAuth(s.handleDeleteScreenshot))

	mux.Handle("GET "+p+"/users/{$}", s.requireAuth(s.handleListUsers))
	mux.Handle("GET "+p+"/users/{user_id}", s.requireAuth(s.handleUser))
	mux.Handle("POST "+p+"/users/me/avatar", s.requireAuth(s.handleUploadAvatar))

	mux.Handle("GET "+p+"/notifications/{$}", s.requireAuth(s.handleNotifications))
	mux.Handle("GET "+p+"/notifications/unread-count", s.requireAuth(s.handleUnreadCount))
	mux.Handle("PATCH "+p+"/notifications/{notification_id}/read", s.requireAuth(s.handleMarkRead))
	mux.Handle("PATCH "+p+"/notifications/read-all", s.requireAuth(s.handleMarkAllRead))
	mux.Handle("DELETE "+p+"/notifications/clear", s.requireAuth(s.handleClearRead))

	mux.Handle("GET "+p+"/backup/export", s.requireAuth(s.handleExport))
	mux.Handle("POST "+p+"/backup/import", s.requireAuth(s.handleImport))

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		writeDetail(r.Context(), w, "Not Found", http.StatusNotFound)
	})
	return mux
}

// requireAuth validates the bearer access token.
func (s *Server) requireAuth(next authedHandler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || raw == "" {
			writeDetail(r.Context(), w, "Not authenticated", http.StatusUnauthorized)
			return
		}
		userID, err := s.tokens.parse(raw, tokenTypeAccess)
		if err != nil {
			writeDetail(r.Context(), w, "Invalid or expired token", http.StatusUnauthorized)
			return
		}
		if _, err := s.db.user(userID); err != nil {
			writeDetail(r.Context(), w, "User not found", http.StatusUnauthorized)
			return
		}
		next(w, r, userID)
	})
}
