package shelfapi

import (
	"context"
	"io"
	"net/url"

	"github.com/florianilch/shelf/internal/apiclient"
)

// Search looks titles up in the external catalogues.
func (a *API) Search(ctx context.Context, query string, typ TitleType) ([]TitleSearchResult, error) {
	q := url.Values{}
	q.Set("q", query)
	q.Set("type", string(typ))

	var results []TitleSearchResult
	if err := a.client.Get(ctx, "/search?"+q.Encode(), &results); err != nil {
		return nil, err
	}
	return results, nil
}

// SearchGames queries the game catalogue only.
func (a *API) SearchGames(ctx context.Context, query string) ([]GameSearchResult, error) {
	q := url.Values{}
	q.Set("q", query)

	var results []GameSearchResult
	if err := a.client.Get(ctx, "/games/search?"+q.Encode(), &results); err != nil {
		return nil, err
	}
	return results, nil
}

// AddUserTitle records a title with the user's status and review.
func (a *API) AddUserTitle(ctx context.Context, req AddUserTitleRequest) (*Created, error) {
	if req.Genres == nil {
		req.Genres = []string{}
	}
	if err := a.check(req); err != nil {
		return nil, err
	}
	var created Created
	if err := a.client.Post(ctx, "/user-titles", req, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// MyTitles returns the authenticated user's titles.
func (a *API) MyTitles(ctx context.Context) ([]UserTitle, error) {
	var titles []UserTitle
	if err := a.client.Get(ctx, "/titles/my", &titles); err != nil {
		return nil, err
	}
	return titles, nil
}

// UserTitles returns another user's titles.
func (a *API) UserTitles(ctx context.Context, userID int64) ([]UserTitle, error) {
	id, err := pathParam("user_id", userID)
	if err != nil {
		return nil, err
	}
	var titles []UserTitle
	if err := a.client.Get(ctx, "/titles/user/"+id, &titles); err != nil {
		return nil, err
	}
	return titles, nil
}

// UploadScreenshot attaches an image to one of the user's titles.
func (a *API) UploadScreenshot(ctx context.Context, userTitleID int64, filename string, image io.Reader) (*Screenshot, error) {
	id, err := pathParam("user_title_id", userTitleID)
	if err != nil {
		return nil, err
	}
	form := apiclient.NewFormData().File("data", filename, image)

	var shot Screenshot
	if err := a.client.PostFormData(ctx, "/screenshots/upload/"+id, form, &shot); err != nil {
		return nil, err
	}
	return &shot, nil
}

// DeleteScreenshot removes a screenshot.
func (a *API) DeleteScreenshot(ctx context.Context, screenshotID int64) error {
	id, err := pathParam("screenshot_id", screenshotID)
	if err != nil {
		return err
	}
	return a.client.Delete(ctx, "/screenshots/"+id, nil)
}
