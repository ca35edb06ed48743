package shelfapi

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/florianilch/shelf/internal/apiclient"
	"github.com/florianilch/shelf/internal/session"
	"github.com/florianilch/shelf/internal/tokenstore"
)

// newTestAPI serves mux behind an authenticated client holding token "t1".
func newTestAPI(t *testing.T, mux *http.ServeMux) *API {
	t.Helper()
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	store := tokenstore.NewMemoryStore()
	require.NoError(t, store.Write(context.Background(), tokenstore.KeyAccessToken, "t1"))

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	httpClient := &http.Client{Jar: jar}

	sess, err := session.New(store, srv.URL+"/auth/refresh", session.WithHTTPClient(httpClient))
	require.NoError(t, err)
	client, err := apiclient.New(srv.URL, sess, apiclient.WithHTTPClient(httpClient))
	require.NoError(t, err)
	return New(client)
}

func respond(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestLoginSendsFormEncodedCredentials(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/login", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/x-www-form-urlencoded", r.Header.Get("Content-Type"))
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "neo", r.PostForm.Get("username"))
		assert.Equal(t, "red pill", r.PostForm.Get("password"))
		respond(w, http.StatusOK, map[string]string{"access_token": "a1", "token_type": "bearer"})
	})
	api := newTestAPI(t, mux)

	tok, err := api.Login(context.Background(), LoginRequest{Username: "neo", Password: "red pill"})
	require.NoError(t, err)
	assert.Equal(t, "a1", tok.AccessToken)
	assert.Equal(t, "bearer", tok.TokenType)
}

func TestLoginValidatesBeforeSending(t *testing.T) {
	api := newTestAPI(t, http.NewServeMux())

	_, err := api.Login(context.Background(), LoginRequest{Username: "neo"})
	apiErr, ok := apiclient.AsError(err)
	require.True(t, ok)
	assert.Equal(t, apiclient.KindRequest, apiErr.Kind)
}

func TestRegister(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/register", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "neo@example.com", body["email"])
		assert.Equal(t, "neo", body["login"])
		assert.NotContains(t, body, "name")
		respond(w, http.StatusCreated, User{ID: 7, Email: "neo@example.com", Login: "neo"})
	})
	api := newTestAPI(t, mux)

	user, err := api.Register(context.Background(), RegisterRequest{
		Email:    "neo@example.com",
		Login:    "neo",
		Password: "password1",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(7), user.ID)
	assert.Equal(t, "neo", user.DisplayName())

	_, err = api.Register(context.Background(), RegisterRequest{Email: "nope", Login: "neo", Password: "password1"})
	assert.Error(t, err)
}

func TestLogoutAcceptsNoContent(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/logout", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer t1", r.Header.Get("Authorization"))
		w.WriteHeader(http.StatusNoContent)
	})
	api := newTestAPI(t, mux)

	assert.NoError(t, api.Logout(context.Background()))
}

func TestSearchBuildsQuery(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /search", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "half life", r.URL.Query().Get("q"))
		assert.Equal(t, "game", r.URL.Query().Get("type"))
		respond(w, http.StatusOK, []TitleSearchResult{{ExternalID: "hl", Title: "Half-Life", Type: TypeGame}})
	})
	mux.HandleFunc("GET /games/search", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "portal & co", r.URL.Query().Get("q"))
		respond(w, http.StatusOK, []GameSearchResult{{ID: 1, Name: "Portal"}})
	})
	api := newTestAPI(t, mux)

	results, err := api.Search(context.Background(), "half life", TypeGame)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "Half-Life", results[0].Title)

	games, err := api.SearchGames(context.Background(), "portal & co")
	require.NoError(t, err)
	require.Len(t, games, 1)
	assert.Equal(t, "Portal", games[0].Name)
}

func TestAddUserTitle(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /user-titles", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "tv", body["type"])
		assert.Equal(t, []any{}, body["genres"])
		assert.InDelta(t, 8.5, body["score"], 0.001)
		respond(w, http.StatusCreated, Created{ID: 42})
	})
	api := newTestAPI(t, mux)

	score := 8.5
	created, err := api.AddUserTitle(context.Background(), AddUserTitleRequest{
		ExternalID: "tt0903747",
		Type:       TypeTV,
		Name:       "Breaking Bad",
		Status:     StatusWatching,
		Score:      &score,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(42), created.ID)
}

func TestAddUserTitleRejectsInvalidPayload(t *testing.T) {
	api := newTestAPI(t, http.NewServeMux())
	tooHigh := 11.0

	tests := []struct {
		name string
		req  AddUserTitleRequest
	}{
		{"missing name", AddUserTitleRequest{ExternalID: "x", Type: TypeGame, Status: StatusPlaying}},
		{"unknown type", AddUserTitleRequest{ExternalID: "x", Type: "book", Name: "n", Status: StatusPlaying}},
		{"unknown status", AddUserTitleRequest{ExternalID: "x", Type: TypeGame, Name: "n", Status: "binging"}},
		{"score out of range", AddUserTitleRequest{ExternalID: "x", Type: TypeGame, Name: "n", Status: StatusPlaying, Score: &tooHigh}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := api.AddUserTitle(context.Background(), tt.req)
			apiErr, ok := apiclient.AsError(err)
			require.True(t, ok)
			assert.Equal(t, apiclient.KindRequest, apiErr.Kind)
		})
	}
}

func TestTitlesAndScreenshots(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /titles/my", func(w http.ResponseWriter, r *http.Request) {
		respond(w, http.StatusOK, []UserTitle{{ID: 1, Status: StatusCompleted}})
	})
	mux.HandleFunc("GET /titles/user/{id}", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "9", r.PathValue("id"))
		respond(w, http.StatusOK, []UserTitle{{ID: 2, UserID: 9}})
	})
	mux.HandleFunc("POST /screenshots/upload/{id}", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "3", r.PathValue("id"))
		file, header, err := r.FormFile("data")
		require.NoError(t, err)
		defer file.Close()
		data, _ := io.ReadAll(file)
		assert.Equal(t, "shot.png", header.Filename)
		assert.Equal(t, "png-bytes", string(data))
		respond(w, http.StatusCreated, Screenshot{ID: 5, URL: "/media/shot.png"})
	})
	mux.HandleFunc("DELETE /screenshots/{id}", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "5", r.PathValue("id"))
		w.WriteHeader(http.StatusNoContent)
	})
	api := newTestAPI(t, mux)
	ctx := context.Background()

	mine, err := api.MyTitles(ctx)
	require.NoError(t, err)
	assert.Len(t, mine, 1)

	theirs, err := api.UserTitles(ctx, 9)
	require.NoError(t, err)
	require.Len(t, theirs, 1)
	assert.Equal(t, int64(9), theirs[0].UserID)

	shot, err := api.UploadScreenshot(ctx, 3, "shot.png", strings.NewReader("png-bytes"))
	require.NoError(t, err)
	assert.Equal(t, int64(5), shot.ID)

	assert.NoError(t, api.DeleteScreenshot(ctx, 5))
}

func TestListUsersQuery(t *testing.T) {
	tests := []struct {
		name      string
		params    ListUsersParams
		wantQuery string
	}{
		{"no params", ListUsersParams{}, ""},
		{"all params", ListUsersParams{Limit: 10, Offset: 20, Search: "ne o"}, "limit=10&offset=20&search=ne+o"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mux := http.NewServeMux()
			mux.HandleFunc("GET /users/", func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/users/", r.URL.Path)
				assert.Equal(t, tt.wantQuery, r.URL.RawQuery)
				respond(w, http.StatusOK, []User{{ID: 1, Login: "trinity"}})
			})
			api := newTestAPI(t, mux)

			users, err := api.ListUsers(context.Background(), tt.params)
			require.NoError(t, err)
			assert.Len(t, users, 1)
		})
	}
}

func TestUserAndAvatar(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /users/{id}", func(w http.ResponseWriter, r *http.Request) {
		name := "Trinity"
		respond(w, http.StatusOK, User{ID: 2, Login: "trinity", Name: &name})
	})
	mux.HandleFunc("POST /users/me/avatar", func(w http.ResponseWriter, r *http.Request) {
		_, header, err := r.FormFile("avatar")
		require.NoError(t, err)
		assert.Equal(t, "image/jpeg", header.Header.Get("Content-Type"))
		avatar := "/media/a.jpg"
		respond(w, http.StatusOK, User{ID: 1, AvatarURL: &avatar})
	})
	api := newTestAPI(t, mux)

	user, err := api.User(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, "Trinity", user.DisplayName())

	me, err := api.UploadAvatar(context.Background(), "a.jpg", strings.NewReader("jpeg"))
	require.NoError(t, err)
	require.NotNil(t, me.AvatarURL)
	assert.Equal(t, "/media/a.jpg", *me.AvatarURL)
}

func TestNotifications(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /notifications/", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "30", r.URL.Query().Get("limit"))
		assert.Equal(t, "0", r.URL.Query().Get("offset"))
		respond(w, http.StatusOK, []Notification{{ID: 1, Type: "new_title"}})
	})
	mux.HandleFunc("GET /notifications/unread-count", func(w http.ResponseWriter, r *http.Request) {
		respond(w, http.StatusOK, UnreadCount{Count: 4})
	})
	mux.HandleFunc("PATCH /notifications/{id}/read", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "1", r.PathValue("id"))
		respond(w, http.StatusOK, Notification{ID: 1, IsRead: true})
	})
	mux.HandleFunc("PATCH /notifications/read-all", func(w http.ResponseWriter, r *http.Request) {
		respond(w, http.StatusOK, StatusResponse{Status: "ok"})
	})
	mux.HandleFunc("DELETE /notifications/clear", func(w http.ResponseWriter, r *http.Request) {
		respond(w, http.StatusOK, StatusResponse{Status: "ok"})
	})
	api := newTestAPI(t, mux)
	ctx := context.Background()

	items, err := api.Notifications(ctx, 0, -1)
	require.NoError(t, err)
	assert.Len(t, items, 1)

	count, err := api.UnreadCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, count)

	n, err := api.MarkRead(ctx, 1)
	require.NoError(t, err)
	assert.True(t, n.IsRead)

	assert.NoError(t, api.MarkAllRead(ctx))
	assert.NoError(t, api.ClearRead(ctx))
}

func TestBackupRoundTrip(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /backup/export", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Content-Disposition", `attachment; filename="backup_1.json"`)
		_, _ = w.Write([]byte(`{"titles":[]}`))
	})
	mux.HandleFunc("POST /backup/import", func(w http.ResponseWriter, r *http.Request) {
		file, header, err := r.FormFile("data")
		require.NoError(t, err)
		defer file.Close()
		data, _ := io.ReadAll(file)
		assert.Equal(t, "backup_1.json", header.Filename)
		assert.Equal(t, `{"titles":[]}`, string(data))
		respond(w, http.StatusOK, BackupResult{Message: "Import completed", ProcessedCount: 0})
	})
	api := newTestAPI(t, mux)

	blob, err := api.ExportBackup(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "backup_1.json", blob.Filename)

	res, err := api.ImportBackup(context.Background(), blob.Filename, strings.NewReader(string(blob.Data)))
	require.NoError(t, err)
	assert.Equal(t, "Import completed", res.Message)
}

func TestParseHelpers(t *testing.T) {
	typ, err := ParseTitleType("tv")
	require.NoError(t, err)
	assert.Equal(t, CategorySeries, typ.Category())
	assert.Equal(t, CategoryGame, TypeGame.Category())

	_, err = ParseTitleType("series")
	assert.Error(t, err)

	cat, err := ParseCategory("anime")
	require.NoError(t, err)
	assert.Equal(t, CategoryAnime, cat)

	st, err := ParseStatus("on_hold")
	require.NoError(t, err)
	assert.Equal(t, StatusOnHold, st)
	_, err = ParseStatus("paused")
	assert.Error(t, err)
}
