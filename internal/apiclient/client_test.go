package apiclient

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/florianilch/shelf/internal/session"
	"github.com/florianilch/shelf/internal/tokenstore"
)

type fixture struct {
	server   *httptest.Server
	client   *Client
	session  *session.Manager
	store    *tokenstore.MemoryStore
	refreshN atomic.Int32
}

// newFixture serves handler for API paths and answers /auth/refresh with refresh.
func newFixture(t *testing.T, handler http.HandlerFunc, refresh http.HandlerFunc) *fixture {
	t.Helper()
	f := &fixture{store: tokenstore.NewMemoryStore()}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		f.refreshN.Add(1)
		refresh(w, r)
	})
	mux.HandleFunc("/", handler)
	f.server = httptest.NewServer(mux)
	t.Cleanup(f.server.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	httpClient := &http.Client{Jar: jar}

	f.session, err = session.New(f.store, f.server.URL+"/auth/refresh", session.WithHTTPClient(httpClient))
	require.NoError(t, err)

	f.client, err = New(f.server.URL, f.session, WithHTTPClient(httpClient))
	require.NoError(t, err)
	return f
}

func (f *fixture) setToken(t *testing.T, token string) {
	t.Helper()
	require.NoError(t, f.store.Write(context.Background(), tokenstore.KeyAccessToken, token))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func refreshWith(token string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"access_token": token, "token_type": "bearer"})
	}
}

func refreshFails(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Invalid refresh token"})
}

func noRefresh(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		t.Error("unexpected refresh call")
		w.WriteHeader(http.StatusInternalServerError)
	}
}

type item struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

func TestRefreshAndReplay(t *testing.T) {
	var seen []string
	var mu sync.Mutex

	f := newFixture(t, func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		seen = append(seen, r.Header.Get("Authorization"))
		mu.Unlock()

		if r.URL.Path != "/titles/my" {
			http.NotFound(w, r)
			return
		}
		if r.Header.Get("Authorization") != "Bearer new" {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Token expired"})
			return
		}
		writeJSON(w, http.StatusOK, []item{{ID: 1, Name: "Hades"}, {ID: 2, Name: "Dune"}})
	}, refreshWith("new"))
	f.setToken(t, "old")

	var got []item
	require.NoError(t, f.client.Get(context.Background(), "/titles/my", &got))

	assert.Equal(t, []item{{ID: 1, Name: "Hades"}, {ID: 2, Name: "Dune"}}, got)
	assert.Equal(t, int32(1), f.refreshN.Load())
	assert.Equal(t, []string{"Bearer old", "Bearer new"}, seen)

	stored, err := f.store.Read(context.Background(), tokenstore.KeyAccessToken)
	require.NoError(t, err)
	assert.Equal(t, "new", stored)
}

func TestConcurrentUnauthorizedShareOneRefresh(t *testing.T) {
	tests := []struct {
		name      string
		refresh   http.HandlerFunc
		wantError bool
	}{
		{name: "refresh succeeds", refresh: refreshWith("new")},
		{name: "refresh fails", refresh: refreshFails, wantError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			const callers = 4

			// Hold every first attempt until all callers are on the wire,
			// so each one carries the stale token.
			var arrived sync.WaitGroup
			arrived.Add(callers)

			f := newFixture(t, func(w http.ResponseWriter, r *http.Request) {
				if r.Header.Get("Authorization") == "Bearer new" {
					writeJSON(w, http.StatusOK, []item{{ID: 7, Name: "Akira"}})
					return
				}
				arrived.Done()
				arrived.Wait()
				writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Token expired"})
			}, tt.refresh)
			f.setToken(t, "old")

			events, cancel := f.session.Subscribe(callers)
			defer cancel()

			var wg sync.WaitGroup
			results := make([][]item, callers)
			errs := make([]error, callers)
			for i := range callers {
				wg.Add(1)
				go func() {
					defer wg.Done()
					errs[i] = f.client.Get(context.Background(), "/titles/my", &results[i])
				}()
			}
			wg.Wait()

			assert.Equal(t, int32(1), f.refreshN.Load(), "refresh endpoint must be called exactly once")

			for i := range callers {
				if !tt.wantError {
					require.NoError(t, errs[i])
					assert.Equal(t, []item{{ID: 7, Name: "Akira"}}, results[i])
					continue
				}
				apiErr, ok := AsError(errs[i])
				require.True(t, ok, "caller %d: %v", i, errs[i])
				assert.Equal(t, KindSessionExpired, apiErr.Kind)
				assert.Equal(t, http.StatusUnauthorized, apiErr.Status)
				assert.Equal(t, SessionExpiredMessage, apiErr.Message)
				assert.ErrorIs(t, errs[i], session.ErrSessionExpired)
			}

			if tt.wantError {
				_, err := f.store.Read(context.Background(), tokenstore.KeyAccessToken)
				assert.ErrorIs(t, err, tokenstore.ErrNotFound)
				assert.Equal(t, session.EventSessionExpired, (<-events).Kind)
			}
		})
	}
}

func TestAuthEndpointsNeverRefresh(t *testing.T) {
	for _, path := range []string{"/auth/login", "/auth/register", "/auth/login?next=/titles"} {
		t.Run(path, func(t *testing.T) {
			f := newFixture(t, func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Incorrect login or password"})
			}, noRefresh(t))
			f.setToken(t, "old")

			err := f.client.PostFormURLEncoded(context.Background(), path, map[string]string{"username": "neo", "password": "x"}, nil)

			apiErr, ok := AsError(err)
			require.True(t, ok)
			assert.Equal(t, KindHTTP, apiErr.Kind)
			assert.Equal(t, http.StatusUnauthorized, apiErr.Status)
			assert.Equal(t, "Incorrect login or password", apiErr.Message)
			assert.False(t, apiErr.Unparseable)
		})
	}
}

func TestNoRetryNeverRefreshes(t *testing.T) {
	f := newFixture(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Token expired"})
	}, noRefresh(t))
	f.setToken(t, "old")

	err := f.client.Do(context.Background(), &Request{Method: http.MethodGet, Path: "/titles/my", NoRetry: true}, nil)

	apiErr, ok := AsError(err)
	require.True(t, ok)
	assert.Equal(t, KindHTTP, apiErr.Kind)
	assert.Equal(t, "Token expired", apiErr.Message)

	// the token survives: the caller opted out of recovery
	stored, err := f.store.Read(context.Background(), tokenstore.KeyAccessToken)
	require.NoError(t, err)
	assert.Equal(t, "old", stored)
}

func TestReplayRejectedExpiresSession(t *testing.T) {
	f := newFixture(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "nope"})
	}, refreshWith("new"))
	f.setToken(t, "old")

	err := f.client.Get(context.Background(), "/titles/my", nil)

	apiErr, ok := AsError(err)
	require.True(t, ok)
	assert.Equal(t, KindSessionExpired, apiErr.Kind)
	assert.Equal(t, int32(1), f.refreshN.Load())

	_, err = f.store.Read(context.Background(), tokenstore.KeyAccessToken)
	assert.ErrorIs(t, err, tokenstore.ErrNotFound)
}

func TestNoContentSkipsDecoding(t *testing.T) {
	f := newFixture(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}, noRefresh(t))

	out := item{ID: 42, Name: "untouched"}
	require.NoError(t, f.client.Post(context.Background(), "/auth/logout", nil, &out))
	assert.Equal(t, item{ID: 42, Name: "untouched"}, out)
}

func TestRequestEncoding(t *testing.T) {
	type captured struct {
		method      string
		contentType string
		auth        string
		custom      string
		body        []byte
	}
	var got captured

	f := newFixture(t, func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		got = captured{
			method:      r.Method,
			contentType: r.Header.Get("Content-Type"),
			auth:        r.Header.Get("Authorization"),
			custom:      r.Header.Get("X-Custom"),
			body:        body,
		}
		writeJSON(w, http.StatusOK, map[string]int{"id": 1})
	}, noRefresh(t))
	f.setToken(t, "tok")
	ctx := context.Background()

	t.Run("json body", func(t *testing.T) {
		var out struct{ ID int }
		require.NoError(t, f.client.Post(ctx, "/user-titles", map[string]string{"name": "Hades"}, &out))
		assert.Equal(t, http.MethodPost, got.method)
		assert.Equal(t, "application/json", got.contentType)
		assert.Equal(t, "Bearer tok", got.auth)
		assert.JSONEq(t, `{"name":"Hades"}`, string(got.body))
		assert.Equal(t, 1, out.ID)
	})

	t.Run("nil body", func(t *testing.T) {
		require.NoError(t, f.client.Put(ctx, "/x", nil, nil))
		assert.Equal(t, http.MethodPut, got.method)
		assert.Empty(t, got.contentType)
		assert.Empty(t, got.body)
	})

	t.Run("patch and delete", func(t *testing.T) {
		require.NoError(t, f.client.Patch(ctx, "/notifications/1/read", nil, nil))
		assert.Equal(t, http.MethodPatch, got.method)
		require.NoError(t, f.client.Delete(ctx, "/screenshots/3", nil))
		assert.Equal(t, http.MethodDelete, got.method)
	})

	t.Run("form url encoded", func(t *testing.T) {
		require.NoError(t, f.client.PostFormURLEncoded(ctx, "/auth/login", map[string]string{"username": "neo", "password": "p@ss word"}, nil))
		assert.Equal(t, "application/x-www-form-urlencoded", got.contentType)
		assert.Equal(t, "password=p%40ss+word&username=neo", string(got.body))
	})

	t.Run("caller headers override", func(t *testing.T) {
		req := &Request{
			Method: http.MethodGet,
			Path:   "/x",
			Header: http.Header{"Authorization": {"Bearer override"}, "x-custom": {"1"}},
		}
		require.NoError(t, f.client.Do(ctx, req, nil))
		assert.Equal(t, "Bearer override", got.auth)
		assert.Equal(t, "1", got.custom)
	})

	t.Run("multipart", func(t *testing.T) {
		form := NewFormData().
			Field("caption", "boss fight").
			File("data", "shot.png", strings.NewReader("PNGDATA"))
		require.NoError(t, f.client.PostFormData(ctx, "/screenshots/upload/5", form, nil))

		mediaType, params, err := mime.ParseMediaType(got.contentType)
		require.NoError(t, err)
		assert.Equal(t, "multipart/form-data", mediaType)
		require.NotEmpty(t, params["boundary"])

		mr := multipart.NewReader(strings.NewReader(string(got.body)), params["boundary"])
		p, err := mr.NextPart()
		require.NoError(t, err)
		assert.Equal(t, "caption", p.FormName())

		p, err = mr.NextPart()
		require.NoError(t, err)
		assert.Equal(t, "data", p.FormName())
		assert.Equal(t, "shot.png", p.FileName())
		assert.Equal(t, "image/png", p.Header.Get("Content-Type"))
		data, _ := io.ReadAll(p)
		assert.Equal(t, "PNGDATA", string(data))
	})
}

func TestMultipartReplaySendsSameBody(t *testing.T) {
	var bodies []string
	f := newFixture(t, func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		bodies = append(bodies, string(body))
		if r.Header.Get("Authorization") != "Bearer new" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		writeJSON(w, http.StatusOK, map[string]int{"id": 9})
	}, refreshWith("new"))
	f.setToken(t, "old")

	form := NewFormData().File("avatar", "me.jpg", strings.NewReader("JPEG"))
	require.NoError(t, f.client.PostFormData(context.Background(), "/users/me/avatar", form, nil))

	require.Len(t, bodies, 2)
	assert.Equal(t, bodies[0], bodies[1])
	assert.Contains(t, bodies[1], "JPEG")
}

func TestErrorNormalization(t *testing.T) {
	tests := []struct {
		name            string
		status          int
		body            string
		wantMessage     string
		wantUnparseable bool
	}{
		{"detail string", 404, `{"detail":"Title not found"}`, "Title not found", false},
		{"message field", 400, `{"message":"Bad input"}`, "Bad input", false},
		{"detail wins over message", 400, `{"detail":"d","message":"m"}`, "d", false},
		{"validation issues", 422, `{"detail":[{"loc":["body","score"],"msg":"must be <= 10"},{"msg":"field required"}]}`, "must be <= 10; field required", false},
		{"empty detail falls back to message", 400, `{"detail":"","message":"m"}`, "m", false},
		{"no known fields", 500, `{"error":"x"}`, DefaultErrorMessage, true},
		{"not json", 502, `<html>Bad Gateway</html>`, DefaultErrorMessage, true},
		{"empty body", 500, ``, DefaultErrorMessage, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}, noRefresh(t))

			err := f.client.Get(context.Background(), "/x", nil)

			apiErr, ok := AsError(err)
			require.True(t, ok)
			assert.Equal(t, KindHTTP, apiErr.Kind)
			assert.Equal(t, tt.status, apiErr.Status)
			assert.Equal(t, tt.wantMessage, apiErr.Message)
			assert.Equal(t, tt.wantUnparseable, apiErr.Unparseable)
			assert.Equal(t, tt.status, StatusCode(err))
		})
	}
}

func TestParseFailure(t *testing.T) {
	f := newFixture(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"id":`))
	}, noRefresh(t))

	var out item
	err := f.client.Get(context.Background(), "/x", &out)

	apiErr, ok := AsError(err)
	require.True(t, ok)
	assert.Equal(t, KindParse, apiErr.Kind)
	assert.Equal(t, http.StatusOK, apiErr.Status)
}

func TestTransportFailure(t *testing.T) {
	f := newFixture(t, func(w http.ResponseWriter, r *http.Request) {}, noRefresh(t))
	f.server.Close()

	err := f.client.Get(context.Background(), "/x", nil)

	apiErr, ok := AsError(err)
	require.True(t, ok)
	assert.Equal(t, KindTransport, apiErr.Kind)
	assert.Zero(t, apiErr.Status)
	assert.NotNil(t, errors.Unwrap(apiErr))
}

func TestGetBlob(t *testing.T) {
	t.Run("download", func(t *testing.T) {
		var auth string
		f := newFixture(t, func(w http.ResponseWriter, r *http.Request) {
			auth = r.Header.Get("Authorization")
			w.Header().Set("Content-Type", "text/plain")
			w.Header().Set("Content-Disposition", `attachment; filename="backup_2025-01-01.txt"`)
			_, _ = w.Write([]byte(`[{"title":"Hades"}]`))
		}, noRefresh(t))
		f.setToken(t, "tok")

		blob, err := f.client.GetBlob(context.Background(), "/backup/export")
		require.NoError(t, err)
		assert.Equal(t, "Bearer tok", auth)
		assert.Equal(t, "backup_2025-01-01.txt", blob.Filename)
		assert.Equal(t, "text/plain", blob.ContentType)
		assert.Equal(t, `[{"title":"Hades"}]`, string(blob.Data))
	})

	t.Run("401 does not refresh", func(t *testing.T) {
		f := newFixture(t, func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Token expired"})
		}, noRefresh(t))
		f.setToken(t, "old")

		_, err := f.client.GetBlob(context.Background(), "/backup/export")

		apiErr, ok := AsError(err)
		require.True(t, ok)
		assert.Equal(t, KindHTTP, apiErr.Kind)
		assert.Equal(t, http.StatusUnauthorized, apiErr.Status)
		assert.Equal(t, DownloadFailedMessage, apiErr.Message)
	})
}

func TestCookiesReachRefreshEndpoint(t *testing.T) {
	var refreshCookie string
	f := newFixture(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/auth/login":
			http.SetCookie(w, &http.Cookie{Name: "refresh_token", Value: "r-1", Path: "/auth", HttpOnly: true})
			writeJSON(w, http.StatusOK, map[string]string{"access_token": "old"})
		case r.Header.Get("Authorization") == "Bearer new":
			writeJSON(w, http.StatusOK, []item{})
		default:
			w.WriteHeader(http.StatusUnauthorized)
		}
	}, func(w http.ResponseWriter, r *http.Request) {
		if c, err := r.Cookie("refresh_token"); err == nil {
			refreshCookie = c.Value
		}
		refreshWith("new")(w, r)
	})
	ctx := context.Background()

	var tok session.TokenInfo
	require.NoError(t, f.client.PostFormURLEncoded(ctx, "/auth/login", map[string]string{"username": "u", "password": "p"}, &tok))
	require.NoError(t, f.session.SetToken(ctx, tok))

	var out []item
	require.NoError(t, f.client.Get(ctx, "/titles/my", &out))
	assert.Equal(t, "r-1", refreshCookie)
}

func TestNewValidation(t *testing.T) {
	sess, err := session.New(tokenstore.NewMemoryStore(), "http://localhost/auth/refresh")
	require.NoError(t, err)

	_, err = New("not a url", sess)
	assert.Error(t, err)

	_, err = New("http://localhost:8000/api/v1", nil)
	assert.Error(t, err)

	c, err := New("http://localhost:8000/api/v1/", sess)
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8000/api/v1", c.BaseURL())
}

func TestRefreshable(t *testing.T) {
	assert.True(t, refreshable("/titles/my"))
	assert.True(t, refreshable("/search?q=/auth/login"))
	assert.False(t, refreshable("/auth/login"))
	assert.False(t, refreshable("/auth/register"))
	assert.False(t, refreshable("/auth/refresh"))
}

func TestErrorString(t *testing.T) {
	err := &Error{Kind: KindHTTP, Status: 404, Message: "Title not found"}
	assert.Equal(t, "http 404: Title not found", err.Error())

	err = &Error{Kind: KindTransport, Message: "request failed", Err: errors.New("connection refused")}
	assert.Equal(t, "transport: request failed: connection refused", err.Error())
}
