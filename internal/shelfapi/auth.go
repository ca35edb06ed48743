package shelfapi

import (
	"context"
)

// Register creates an account. It does not log in.
func (a *API) Register(ctx context.Context, req RegisterRequest) (*User, error) {
	if err := a.check(req); err != nil {
		return nil, err
	}
	var user User
	if err := a.client.Post(ctx, "/auth/register", req, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// Login exchanges credentials for an access token. The refresh credential
// arrives as a cookie and is kept by the client's jar.
func (a *API) Login(ctx context.Context, req LoginRequest) (*TokenInfo, error) {
	if err := a.check(req); err != nil {
		return nil, err
	}
	var tok TokenInfo
	err := a.client.PostFormURLEncoded(ctx, "/auth/login", map[string]string{
		"username": req.Username,
		"password": req.Password,
	}, &tok)
	if err != nil {
		return nil, err
	}
	return &tok, nil
}

// Refresh mints a new access token from the refresh cookie without touching
// the persisted token. Session recovery goes through session.Manager instead.
func (a *API) Refresh(ctx context.Context) (*TokenInfo, error) {
	var tok TokenInfo
	if err := a.client.Post(ctx, "/auth/refresh", nil, &tok); err != nil {
		return nil, err
	}
	return &tok, nil
}

// Logout ends the server session and clears the refresh cookie.
func (a *API) Logout(ctx context.Context) error {
	return a.client.Post(ctx, "/auth/logout", nil, nil)
}

// Me returns the authenticated user.
func (a *API) Me(ctx context.Context) (*User, error) {
	var user User
	if err := a.client.Get(ctx, "/auth/me", &user); err != nil {
		return nil, err
	}
	return &user, nil
}
