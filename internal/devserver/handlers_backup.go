package devserver

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/florianilch/shelf/internal/shelfapi"
)

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request, userID int64) {
	items := []shelfapi.BackupItem{}
	for _, ut := range s.db.titlesOf(userID) {
		items = append(items, shelfapi.BackupItem{
			ExternalID:  ut.Title.ExternalID,
			Type:        ut.Title.Category,
			Title:       ut.Title.Name,
			PosterURL:   ut.Title.CoverImage,
			ReleaseYear: ut.Title.ReleaseYear,
			Genres:      ut.Title.Genres,
			Status:      ut.Status,
			Score:       ut.Score,
			ReviewText:  ut.ReviewText,
		})
	}

	data, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		writeDetail(r.Context(), w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	filename := fmt.Sprintf("backup_%s.txt", s.db.now().Format("2006-01-02"))
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	_, _ = w.Write(data)
}

func (s *Server) handleImport(w http.ResponseWriter, r *http.Request, userID int64) {
	ctx := r.Context()

	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	file, _, err := r.FormFile("data")
	if err != nil {
		writeDetail(ctx, w, `Missing file field "data"`, http.StatusBadRequest)
		return
	}
	defer func() { _ = file.Close() }()

	content, err := io.ReadAll(file)
	if err != nil {
		writeDetail(ctx, w, "Invalid upload", http.StatusBadRequest)
		return
	}

	var items []shelfapi.BackupItem
	if err := json.Unmarshal(content, &items); err != nil {
		writeJSON(ctx, w, shelfapi.BackupResult{Message: "Invalid JSON file"}, http.StatusOK)
		return
	}

	processed := 0
	for _, item := range items {
		if _, err := shelfapi.ParseCategory(string(item.Type)); err != nil {
			continue
		}
		if _, err := shelfapi.ParseStatus(string(item.Status)); err != nil {
			continue
		}
		s.db.upsertUserTitle(userID, shelfapi.Title{
			Name:        item.Title,
			Category:    item.Type,
			ExternalID:  item.ExternalID,
			CoverImage:  item.PosterURL,
			ReleaseYear: item.ReleaseYear,
			Genres:      item.Genres,
		}, userTitleInput{
			status:     item.Status,
			score:      item.Score,
			reviewText: item.ReviewText,
		})
		processed++
	}
	writeJSON(ctx, w, shelfapi.BackupResult{Message: "Backup imported successfully", ProcessedCount: processed}, http.StatusOK)
}
