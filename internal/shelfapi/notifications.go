package shelfapi

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/florianilch/shelf/internal/apiclient"
)

// DefaultNotificationLimit is the page size used when none is given.
const DefaultNotificationLimit = 30

// Notifications returns a page of the user's notifications, newest first.
func (a *API) Notifications(ctx context.Context, limit, offset int) ([]Notification, error) {
	if limit <= 0 {
		limit = DefaultNotificationLimit
	}
	if offset < 0 {
		offset = 0
	}
	q := url.Values{}
	q.Set("limit", strconv.Itoa(limit))
	q.Set("offset", strconv.Itoa(offset))

	var items []Notification
	if err := a.client.Get(ctx, "/notifications/?"+q.Encode(), &items); err != nil {
		return nil, err
	}
	return items, nil
}

// UnreadCount returns the number of unread notifications.
func (a *API) UnreadCount(ctx context.Context) (int, error) {
	var res UnreadCount
	if err := a.client.Get(ctx, "/notifications/unread-count", &res); err != nil {
		return 0, err
	}
	return res.Count, nil
}

// MarkRead marks one notification as read and returns its new state.
func (a *API) MarkRead(ctx context.Context, notificationID int64) (*Notification, error) {
	id, err := pathParam("notification_id", notificationID)
	if err != nil {
		return nil, err
	}
	var n Notification
	if err := a.client.Do(ctx, &apiclient.Request{Method: http.MethodPatch, Path: "/notifications/" + id + "/read"}, &n); err != nil {
		return nil, err
	}
	return &n, nil
}

// MarkAllRead marks every notification as read.
func (a *API) MarkAllRead(ctx context.Context) error {
	var res StatusResponse
	return a.client.Do(ctx, &apiclient.Request{Method: http.MethodPatch, Path: "/notifications/read-all"}, &res)
}

// ClearRead deletes every read notification.
func (a *API) ClearRead(ctx context.Context) error {
	var res StatusResponse
	return a.client.Delete(ctx, "/notifications/clear", &res)
}
