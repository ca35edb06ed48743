// Package shelfapi wraps the backend's REST resources in typed calls.
//
// The wrappers stay thin: they build paths, validate request payloads and pick
// the right encoding, while authentication, refresh and error normalization
// live in apiclient.
package shelfapi

import (
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/oapi-codegen/runtime"

	"github.com/florianilch/shelf/internal/apiclient"
)

// API groups the resource calls over one authenticated client.
type API struct {
	client   *apiclient.Client
	validate *validator.Validate
}

// New creates an API using client.
func New(client *apiclient.Client) *API {
	return &API{
		client:   client,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

// Client exposes the underlying client for calls not covered here.
func (a *API) Client() *apiclient.Client {
	return a.client
}

// pathParam styles a path parameter the way generated clients do.
func pathParam(name string, value any) (string, error) {
	s, err := runtime.StyleParamWithLocation("simple", false, name, runtime.ParamLocationPath, value)
	if err != nil {
		return "", fmt.Errorf("invalid %s: %w", name, err)
	}
	return s, nil
}

func (a *API) check(req any) error {
	if err := a.validate.Struct(req); err != nil {
		return &apiclient.Error{Kind: apiclient.KindRequest, Message: "invalid request", Err: err}
	}
	return nil
}
