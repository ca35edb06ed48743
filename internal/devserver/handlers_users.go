package devserver

import (
	"fmt"
	"net/http"
)

const defaultUsersLimit = 20

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request, userID int64) {
	users := s.db.listUsers(
		userID,
		r.URL.Query().Get("search"),
		queryInt(r, "limit", defaultUsersLimit),
		queryInt(r, "offset", 0),
	)
	writeJSON(r.Context(), w, users, http.StatusOK)
}

func (s *Server) handleUser(w http.ResponseWriter, r *http.Request, _ int64) {
	id, ok := pathID(w, r, "user_id")
	if !ok {
		return
	}
	user, err := s.db.user(id)
	if err != nil {
		writeDetail(r.Context(), w, "User not found", http.StatusNotFound)
		return
	}
	writeJSON(r.Context(), w, user, http.StatusOK)
}

func (s *Server) handleUploadAvatar(w http.ResponseWriter, r *http.Request, userID int64) {
	filename, ok := readUpload(w, r, "avatar")
	if !ok {
		return
	}
	user, err := s.db.setAvatar(userID, fmt.Sprintf("/media/avatars/%d/%s", userID, filename))
	if err != nil {
		writeDetail(r.Context(), w, "User not found", http.StatusNotFound)
		return
	}
	writeJSON(r.Context(), w, user, http.StatusOK)
}
