// Package apiclient is the authenticated HTTP client for the shelf backend.
//
// Every request carries the persisted bearer token and the client's cookies.
// A 401 on an ordinary endpoint triggers one shared token refresh through the
// injected session.Manager followed by a single replay of the request. All
// failures come back as *Error with a Kind telling transport, parse, HTTP and
// session-expiry failures apart:
//
//	var titles []shelfapi.UserTitle
//	if err := client.Get(ctx, "/titles/my", &titles); err != nil {
//		if apiErr, ok := apiclient.AsError(err); ok && apiErr.Kind == apiclient.KindSessionExpired {
//			// ask the user to log in again
//		}
//	}
package apiclient
