package shelfapi

import (
	"context"
	"io"
	"net/url"
	"strconv"

	"github.com/florianilch/shelf/internal/apiclient"
)

// ListUsersParams filters the user directory. The caller is always excluded.
type ListUsersParams struct {
	Limit  int
	Offset int
	Search string
}

// ListUsers pages through other users, optionally filtered by login or name.
func (a *API) ListUsers(ctx context.Context, params ListUsersParams) ([]User, error) {
	q := url.Values{}
	if params.Limit > 0 {
		q.Set("limit", strconv.Itoa(params.Limit))
	}
	if params.Offset > 0 {
		q.Set("offset", strconv.Itoa(params.Offset))
	}
	if params.Search != "" {
		q.Set("search", params.Search)
	}

	path := "/users/"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var users []User
	if err := a.client.Get(ctx, path, &users); err != nil {
		return nil, err
	}
	return users, nil
}

// User returns a public profile.
func (a *API) User(ctx context.Context, userID int64) (*User, error) {
	id, err := pathParam("user_id", userID)
	if err != nil {
		return nil, err
	}
	var user User
	if err := a.client.Get(ctx, "/users/"+id, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// UploadAvatar replaces the authenticated user's avatar.
func (a *API) UploadAvatar(ctx context.Context, filename string, image io.Reader) (*User, error) {
	form := apiclient.NewFormData().File("avatar", filename, image)

	var user User
	if err := a.client.PostFormData(ctx, "/users/me/avatar", form, &user); err != nil {
		return nil, err
	}
	return &user, nil
}
