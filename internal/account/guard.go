package account

import (
	"context"
	"log/slog"
)

// Route names a screen and who may open it.
type Route struct {
	Name         string
	RequiresAuth bool
	GuestOnly    bool
}

const (
	RouteHome        = "home"
	RouteAbout       = "about"
	RouteLogin       = "login"
	RouteRegister    = "register"
	RouteMyTitles    = "my-titles"
	RouteCommunity   = "community"
	RouteUserProfile = "user-profile"
	RouteSettings    = "settings"
	RouteReview      = "review"
)

// Routes is the application's route table.
var Routes = map[string]Route{
	RouteHome:        {Name: RouteHome},
	RouteAbout:       {Name: RouteAbout},
	RouteLogin:       {Name: RouteLogin, GuestOnly: true},
	RouteRegister:    {Name: RouteRegister, GuestOnly: true},
	RouteMyTitles:    {Name: RouteMyTitles, RequiresAuth: true},
	RouteCommunity:   {Name: RouteCommunity, RequiresAuth: true},
	RouteUserProfile: {Name: RouteUserProfile, RequiresAuth: true},
	RouteSettings:    {Name: RouteSettings, RequiresAuth: true},
	RouteReview:      {Name: RouteReview, RequiresAuth: true},
}

// Decision is the outcome of a guard check.
type Decision struct {
	Allowed bool
	// Redirect names the route to go to instead when not allowed.
	Redirect string
}

var (
	Allow         = Decision{Allowed: true}
	RedirectLogin = Decision{Redirect: RouteLogin}
	RedirectHome  = Decision{Redirect: RouteMyTitles}
)

// Guard gates navigation on the authentication state.
type Guard struct {
	store *Store
}

// NewGuard creates a Guard over store.
func NewGuard(store *Store) *Guard {
	return &Guard{store: store}
}

// Check restores the user when only a token is present, then decides.
func (g *Guard) Check(ctx context.Context, to Route) Decision {
	if g.store.User() == nil && g.store.HasToken(ctx) {
		if err := g.store.FetchCurrentUser(ctx); err != nil {
			slog.DebugContext(ctx, "failed to restore session", "error", err)
		}
	}

	authenticated := g.store.IsAuthenticated(ctx)
	switch {
	case to.RequiresAuth && !authenticated:
		return RedirectLogin
	case to.GuestOnly && authenticated:
		return RedirectHome
	default:
		return Allow
	}
}

// CheckName looks name up in Routes. Unknown names are treated as public.
func (g *Guard) CheckName(ctx context.Context, name string) Decision {
	route, ok := Routes[name]
	if !ok {
		route = Route{Name: name}
	}
	return g.Check(ctx, route)
}
