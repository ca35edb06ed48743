package shelfapi

import (
	"fmt"

	"github.com/florianilch/shelf/internal/session"
)

// TitleCategory is how the backend classifies a stored title.
type TitleCategory string

const (
	CategoryGame   TitleCategory = "game"
	CategoryMovie  TitleCategory = "movie"
	CategorySeries TitleCategory = "series"
	CategoryAnime  TitleCategory = "anime"
)

// Categories lists every category in display order.
var Categories = []TitleCategory{CategoryGame, CategoryMovie, CategorySeries, CategoryAnime}

// ParseCategory validates a category name.
func ParseCategory(s string) (TitleCategory, error) {
	for _, c := range Categories {
		if string(c) == s {
			return c, nil
		}
	}
	return "", fmt.Errorf("unknown title category %q", s)
}

// TitleType is the search/add vocabulary; "tv" is stored as CategorySeries.
type TitleType string

const (
	TypeGame  TitleType = "game"
	TypeMovie TitleType = "movie"
	TypeTV    TitleType = "tv"
	TypeAnime TitleType = "anime"
)

// ParseTitleType validates a title type.
func ParseTitleType(s string) (TitleType, error) {
	switch t := TitleType(s); t {
	case TypeGame, TypeMovie, TypeTV, TypeAnime:
		return t, nil
	}
	return "", fmt.Errorf("unknown title type %q", s)
}

// Category maps the type to the category the backend stores it under.
func (t TitleType) Category() TitleCategory {
	if t == TypeTV {
		return CategorySeries
	}
	return TitleCategory(t)
}

// UserTitleStatus is a user's progress on a title.
type UserTitleStatus string

const (
	StatusCompleted UserTitleStatus = "completed"
	StatusPlaying   UserTitleStatus = "playing"
	StatusWatching  UserTitleStatus = "watching"
	StatusDropped   UserTitleStatus = "dropped"
	StatusPlanned   UserTitleStatus = "planned"
	StatusOnHold    UserTitleStatus = "on_hold"
)

// Statuses lists every status in display order.
var Statuses = []UserTitleStatus{StatusCompleted, StatusPlaying, StatusWatching, StatusDropped, StatusPlanned, StatusOnHold}

// ParseStatus validates a status name.
func ParseStatus(s string) (UserTitleStatus, error) {
	for _, st := range Statuses {
		if string(st) == s {
			return st, nil
		}
	}
	return "", fmt.Errorf("unknown status %q", s)
}

// TokenInfo is returned by login and refresh.
type TokenInfo = session.TokenInfo

type User struct {
	ID        int64   `json:"id"`
	Email     string  `json:"email"`
	Login     string  `json:"login"`
	Name      *string `json:"name"`
	AvatarURL *string `json:"avatar_url"`
}

// DisplayName prefers the profile name over the login.
func (u User) DisplayName() string {
	if u.Name != nil && *u.Name != "" {
		return *u.Name
	}
	return u.Login
}

type RegisterRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Login    string `json:"login" validate:"required"`
	Password string `json:"password" validate:"required,min=8"`
	Name     string `json:"name,omitempty"`
}

type LoginRequest struct {
	Username string `validate:"required"`
	Password string `validate:"required"`
}

type Screenshot struct {
	ID       int64  `json:"id"`
	URL      string `json:"url"`
	Position int    `json:"position"`
}

type Title struct {
	ID          int64         `json:"id"`
	Name        string        `json:"name"`
	Category    TitleCategory `json:"category"`
	ExternalID  *string       `json:"external_id"`
	CoverImage  *string       `json:"cover_image"`
	Description *string       `json:"description"`
	ReleaseYear *int          `json:"release_year"`
	Genres      []string      `json:"genres"`
}

type UserTitle struct {
	ID          int64           `json:"id"`
	UserID      int64           `json:"user_id"`
	TitleID     int64           `json:"title_id"`
	Status      UserTitleStatus `json:"status"`
	Score       *float64        `json:"score"`
	ReviewText  *string         `json:"review_text"`
	IsSpoiler   bool            `json:"is_spoiler"`
	CreatedAt   string          `json:"created_at"`
	UpdatedAt   string          `json:"updated_at"`
	Title       Title           `json:"title"`
	FinishedAt  *string         `json:"finished_at,omitempty"`
	Screenshots []Screenshot    `json:"screenshots,omitempty"`
}

type TitleSearchResult struct {
	ExternalID    string    `json:"external_id"`
	Title         string    `json:"title"`
	OriginalTitle *string   `json:"original_title,omitempty"`
	ReleaseYear   *int      `json:"release_year,omitempty"`
	PosterURL     *string   `json:"poster_url,omitempty"`
	Type          TitleType `json:"type"`
	Genres        []string  `json:"genres"`
}

type GameSearchResult struct {
	ID          int64    `json:"id"`
	Name        string   `json:"name"`
	ReleaseYear *int     `json:"release_year,omitempty"`
	CoverURL    *string  `json:"cover_url,omitempty"`
	Genres      []string `json:"genres"`
}

type AddUserTitleRequest struct {
	ExternalID  string          `json:"external_id" validate:"required"`
	Type        TitleType       `json:"type" validate:"required,oneof=game movie tv anime"`
	Name        string          `json:"name" validate:"required"`
	CoverURL    *string         `json:"cover_url,omitempty"`
	ReleaseYear *int            `json:"release_year,omitempty"`
	Genres      []string        `json:"genres"`
	Status      UserTitleStatus `json:"status" validate:"required,oneof=completed playing watching dropped planned on_hold"`
	Score       *float64        `json:"score,omitempty" validate:"omitempty,gte=1,lte=10"`
	ReviewText  *string         `json:"review_text,omitempty"`
	IsSpoiler   bool            `json:"is_spoiler"`
	FinishedAt  *string         `json:"finished_at,omitempty"`
}

type Created struct {
	ID int64 `json:"id"`
}

type NotificationActor struct {
	ID        int64   `json:"id"`
	Login     string  `json:"login"`
	Name      *string `json:"name"`
	AvatarURL *string `json:"avatar_url"`
}

type NotificationTitle struct {
	ID         int64   `json:"id"`
	Name       string  `json:"name"`
	CoverImage *string `json:"cover_image"`
	Category   string  `json:"category"`
}

type Notification struct {
	ID          int64              `json:"id"`
	Type        string             `json:"type"`
	IsRead      bool               `json:"is_read"`
	CreatedAt   string             `json:"created_at"`
	UserTitleID *int64             `json:"user_title_id"`
	Actor       NotificationActor  `json:"actor"`
	Title       *NotificationTitle `json:"title"`
}

type UnreadCount struct {
	Count int `json:"count"`
}

type StatusResponse struct {
	Status string `json:"status"`
}

type BackupResult struct {
	Message        string `json:"message"`
	ProcessedCount int    `json:"processed_count"`
}

// BackupItem is one entry of an exported library.
type BackupItem struct {
	ExternalID  *string         `json:"external_id"`
	Type        TitleCategory   `json:"type"`
	Title       string          `json:"title"`
	PosterURL   *string         `json:"poster_url"`
	ReleaseYear *int            `json:"release_year"`
	Genres      []string        `json:"genres"`
	Status      UserTitleStatus `json:"status"`
	Score       *float64        `json:"score"`
	ReviewText  *string         `json:"review_text"`
}
