package devserver

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"strconv"

	"github.com/florianilch/shelf/internal/shelfapi"
)

// pathID parses an integer path value, answering 404 when it is not one.
func pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	if err != nil {
		writeDetail(r.Context(), w, "Not Found", http.StatusNotFound)
		return 0, false
	}
	return id, true
}

func queryInt(r *http.Request, name string, def int) int {
	v, err := strconv.Atoi(r.URL.Query().Get(name))
	if err != nil || v < 0 {
		return def
	}
	return v
}

// readUpload drains a multipart file field. Only the filename is kept.
func readUpload(w http.ResponseWriter, r *http.Request, field string) (string, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	file, header, err := r.FormFile(field)
	if err != nil {
		writeDetail(r.Context(), w, fmt.Sprintf("Missing file field %q", field), http.StatusBadRequest)
		return "", false
	}
	defer func() { _ = file.Close() }()
	if _, err := io.Copy(io.Discard, file); err != nil {
		writeDetail(r.Context(), w, "Invalid upload", http.StatusBadRequest)
		return "", false
	}
	return path.Base(header.Filename), true
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request, _ int64) {
	q := r.URL.Query()
	typ := shelfapi.TitleType(q.Get("type"))
	if typ != "" {
		if _, err := shelfapi.ParseTitleType(string(typ)); err != nil {
			writeDetail(r.Context(), w, err.Error(), http.StatusBadRequest)
			return
		}
	}
	writeJSON(r.Context(), w, searchCatalogue(q.Get("q"), typ), http.StatusOK)
}

func (s *Server) handleSearchGames(w http.ResponseWriter, r *http.Request, _ int64) {
	writeJSON(r.Context(), w, searchGames(r.URL.Query().Get("q")), http.StatusOK)
}

func (s *Server) handleAddUserTitle(w http.ResponseWriter, r *http.Request, userID int64) {
	ctx := r.Context()

	var req shelfapi.AddUserTitleRequest
	if !readJSON(w, r, &req) {
		return
	}
	if err := s.validate.Struct(req); err != nil {
		writeDetail(ctx, w, "Validation failed", http.StatusBadRequest)
		return
	}

	title := shelfapi.Title{
		Name:        req.Name,
		Category:    req.Type.Category(),
		ExternalID:  &req.ExternalID,
		CoverImage:  req.CoverURL,
		ReleaseYear: req.ReleaseYear,
		Genres:      req.Genres,
	}
	ut := s.db.upsertUserTitle(userID, title, userTitleInput{
		status:     req.Status,
		score:      req.Score,
		reviewText: req.ReviewText,
		isSpoiler:  req.IsSpoiler,
		finishedAt: req.FinishedAt,
		notify:     true,
	})
	writeJSON(ctx, w, ut, http.StatusCreated)
}

func (s *Server) handleMyTitles(w http.ResponseWriter, r *http.Request, userID int64) {
	writeJSON(r.Context(), w, s.db.titlesOf(userID), http.StatusOK)
}

func (s *Server) handleUserTitles(w http.ResponseWriter, r *http.Request, _ int64) {
	id, ok := pathID(w, r, "user_id")
	if !ok {
		return
	}
	if _, err := s.db.user(id); err != nil {
		writeDetail(r.Context(), w, "User not found", http.StatusNotFound)
		return
	}
	writeJSON(r.Context(), w, s.db.titlesOf(id), http.StatusOK)
}

func (s *Server) handleUploadScreenshot(w http.ResponseWriter, r *http.Request, userID int64) {
	id, ok := pathID(w, r, "user_title_id")
	if !ok {
		return
	}
	filename, ok := readUpload(w, r, "data")
	if !ok {
		return
	}

	shot, err := s.db.addScreenshot(userID, id, fmt.Sprintf("/media/screenshots/%d/%s", id, filename))
	if errors.Is(err, errNotFound) {
		writeDetail(r.Context(), w, "User title not found", http.StatusNotFound)
		return
	}
	writeJSON(r.Context(), w, shot, http.StatusCreated)
}

func (s *Server) handleDeleteScreenshot(w http.ResponseWriter, r *http.Request, userID int64) {
	id, ok := pathID(w, r, "screenshot_id")
	if !ok {
		return
	}
	if err := s.db.deleteScreenshot(userID, id); err != nil {
		writeDetail(r.Context(), w, "Screenshot not found", http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
