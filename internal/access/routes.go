package access

import (
	"strings"

	"filiale-console/internal/model"
)

// Route is one navigable screen of the console.
type Route struct {
	Path         string
	Public       bool
	AllowedRoles []model.Kind
	RedirectTo   string
}

var (
	adminOnly = []model.Kind{model.KindAdmin}
	anyRole   = []model.Kind{model.KindAdmin, model.KindUser}
)

// Routes is the console route table.
var Routes = []Route{
	{Path: RouteLogin, Public: true},
	{Path: RouteAssistant, AllowedRoles: anyRole},
	{Path: RouteHome, AllowedRoles: adminOnly},
	{Path: "/filiale", AllowedRoles: adminOnly},
	{Path: "/utilisateurs", AllowedRoles: adminOnly},
	{Path: "/assistant", AllowedRoles: adminOnly},
	{Path: "/base-documentaire", AllowedRoles: adminOnly},
	{Path: "/conversations", AllowedRoles: adminOnly},
	{Path: "/notifications", AllowedRoles: adminOnly},
	{Path: "/facturation", AllowedRoles: adminOnly},
	{Path: "/tickets", AllowedRoles: adminOnly},
	{Path: "/parametres", AllowedRoles: adminOnly},
}

// Lookup finds the route for path. Query strings and trailing slashes are ignored.
func Lookup(path string) (Route, bool) {
	if i := strings.IndexAny(path, "?#"); i >= 0 {
		path = path[:i]
	}
	if path != "/" {
		path = strings.TrimRight(path, "/")
	}
	if path == "" {
		path = "/"
	}
	for _, r := range Routes {
		if r.Path == path {
			return r, true
		}
	}
	return Route{}, false
}

// Navigate applies the gate to a route. The login route sends authenticated
// identities to their home screen instead of rendering the form again.
func Navigate(route Route, authenticated, loading bool, kind model.Kind) Decision {
	if route.Public {
		if loading {
			return Decision{Outcome: OutcomeLoading}
		}
		if route.Path == RouteLogin && authenticated {
			return Decision{Outcome: OutcomeRedirect, Location: Home(kind)}
		}
		return Decision{Outcome: OutcomeRender}
	}
	return Decide(Request{
		Authenticated: authenticated,
		Loading:       loading,
		Kind:          kind,
		AllowedRoles:  route.AllowedRoles,
		RedirectTo:    route.RedirectTo,
	})
}
