// Package cookiestore persists an http.CookieJar into a tokenstore.Store so
// server-managed cookies (the refresh credential) survive process restarts.
package cookiestore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/florianilch/shelf/internal/tokenstore"
)

// entry is one recorded Set-Cookie, keyed by the URL it was received from.
type entry struct {
	URL      string    `json:"url"`
	Name     string    `json:"name"`
	Value    string    `json:"value"`
	Path     string    `json:"path,omitempty"`
	Domain   string    `json:"domain,omitempty"`
	Expires  time.Time `json:"expires,omitzero"`
	Secure   bool      `json:"secure,omitempty"`
	HttpOnly bool      `json:"http_only,omitempty"`
	SameSite int       `json:"same_site,omitempty"`
}

func (e entry) id() string {
	host := e.URL
	if u, err := url.Parse(e.URL); err == nil {
		host = u.Host
	}
	return host + "|" + e.Domain + "|" + e.Path + "|" + e.Name
}

// defaultPath implements the RFC 6265 default-path for cookies without a Path attribute.
func defaultPath(p string) string {
	if p == "" || p[0] != '/' {
		return "/"
	}
	i := strings.LastIndex(p, "/")
	if i == 0 {
		return "/"
	}
	return p[:i]
}

func (e entry) cookie() *http.Cookie {
	return &http.Cookie{
		Name:     e.Name,
		Value:    e.Value,
		Path:     e.Path,
		Domain:   e.Domain,
		Expires:  e.Expires,
		Secure:   e.Secure,
		HttpOnly: e.HttpOnly,
		SameSite: http.SameSite(e.SameSite),
	}
}

// Jar is an http.CookieJar that mirrors every accepted cookie into a Store.
type Jar struct {
	jar   *cookiejar.Jar
	store tokenstore.Store
	now   func() time.Time

	mu      sync.Mutex
	entries map[string]entry
}

// Compile-time check that Jar implements http.CookieJar.
var _ http.CookieJar = (*Jar)(nil)

// New creates an empty Jar backed by store. Call Load to restore persisted cookies.
func New(store tokenstore.Store) (*Jar, error) {
	if store == nil {
		return nil, fmt.Errorf("missing token store")
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}

	return &Jar{
		jar:     jar,
		store:   store,
		now:     time.Now,
		entries: make(map[string]entry),
	}, nil
}

// Load replays the persisted snapshot into the jar, skipping expired cookies.
func (j *Jar) Load(ctx context.Context) error {
	raw, err := j.store.Read(ctx, tokenstore.KeyCookies)
	if errors.Is(err, tokenstore.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("reading cookies: %w", err)
	}

	var saved []entry
	if err := json.Unmarshal([]byte(raw), &saved); err != nil {
		// A corrupt snapshot only costs the user a fresh login.
		slog.WarnContext(ctx, "discarding unreadable cookie snapshot", "error", err)
		return nil
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	now := j.now()
	for _, e := range saved {
		if !e.Expires.IsZero() && !e.Expires.After(now) {
			continue
		}
		u, err := url.Parse(e.URL)
		if err != nil {
			continue
		}
		j.jar.SetCookies(u, []*http.Cookie{e.cookie()})
		j.entries[e.id()] = e
	}
	return nil
}

// Cookies implements http.CookieJar.
func (j *Jar) Cookies(u *url.URL) []*http.Cookie {
	j.mu.Lock()
	jar := j.jar
	j.mu.Unlock()
	return jar.Cookies(u)
}

// SetCookies implements http.CookieJar and persists the updated snapshot.
// Persistence failures are logged; the in-memory jar stays authoritative.
func (j *Jar) SetCookies(u *url.URL, cookies []*http.Cookie) {
	j.mu.Lock()
	j.jar.SetCookies(u, cookies)
	now := j.now()
	origin := (&url.URL{Scheme: u.Scheme, Host: u.Host, Path: u.Path}).String()
	for _, c := range cookies {
		e := entry{
			URL:      origin,
			Name:     c.Name,
			Value:    c.Value,
			Path:     c.Path,
			Domain:   c.Domain,
			Expires:  c.Expires,
			Secure:   c.Secure,
			HttpOnly: c.HttpOnly,
			SameSite: int(c.SameSite),
		}
		if e.Path == "" {
			e.Path = defaultPath(u.Path)
		}
		// MaxAge is relative to receipt; store it as an absolute deadline.
		switch {
		case c.MaxAge < 0:
			e.Expires = now.Add(-time.Second)
		case c.MaxAge > 0:
			e.Expires = now.Add(time.Duration(c.MaxAge) * time.Second)
		}
		if !e.Expires.IsZero() && !e.Expires.After(now) {
			delete(j.entries, e.id())
			continue
		}
		j.entries[e.id()] = e
	}
	snapshot := make([]entry, 0, len(j.entries))
	for _, e := range j.entries {
		snapshot = append(snapshot, e)
	}
	j.mu.Unlock()

	if err := j.persist(snapshot); err != nil {
		slog.Error("failed to persist cookies", "error", err)
	}
}

// Clear drops every cookie from memory and storage.
func (j *Jar) Clear(ctx context.Context) error {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return err
	}

	j.mu.Lock()
	j.jar = jar
	j.entries = make(map[string]entry)
	j.mu.Unlock()

	return j.store.Delete(ctx, tokenstore.KeyCookies)
}

func (j *Jar) persist(snapshot []entry) error {
	// http.CookieJar has no context parameter
	ctx := context.Background()

	if len(snapshot) == 0 {
		return j.store.Delete(ctx, tokenstore.KeyCookies)
	}

	data, err := json.Marshal(snapshot)
	if err != nil {
		return err
	}
	return j.store.Write(ctx, tokenstore.KeyCookies, string(data))
}
