package devserver

import (
	"net/http"

	"github.com/florianilch/shelf/internal/shelfapi"
)

func (s *Server) handleNotifications(w http.ResponseWriter, r *http.Request, userID int64) {
	items := s.db.notificationsOf(
		userID,
		queryInt(r, "limit", shelfapi.DefaultNotificationLimit),
		queryInt(r, "offset", 0),
	)
	writeJSON(r.Context(), w, items, http.StatusOK)
}

func (s *Server) handleUnreadCount(w http.ResponseWriter, r *http.Request, userID int64) {
	writeJSON(r.Context(), w, shelfapi.UnreadCount{Count: s.db.unreadCount(userID)}, http.StatusOK)
}

func (s *Server) handleMarkRead(w http.ResponseWriter, r *http.Request, userID int64) {
	id, ok := pathID(w, r, "notification_id")
	if !ok {
		return
	}
	n, err := s.db.markRead(userID, id)
	if err != nil {
		writeDetail(r.Context(), w, "Notification not found", http.StatusNotFound)
		return
	}
	writeJSON(r.Context(), w, n, http.StatusOK)
}

func (s *Server) handleMarkAllRead(w http.ResponseWriter, r *http.Request, userID int64) {
	s.db.markAllRead(userID)
	writeJSON(r.Context(), w, shelfapi.StatusResponse{Status: "ok"}, http.StatusOK)
}

func (s *Server) handleClearRead(w http.ResponseWriter, r *http.Request, userID int64) {
	s.db.clearRead(userID)
	writeJSON(r.Context(), w, shelfapi.StatusResponse{Status: "ok"}, http.StatusOK)
}
