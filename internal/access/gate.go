// Package access decides, per navigation, whether a route renders or redirects.
package access

import "filiale-console/internal/model"

const (
	RouteLogin     = "/login"
	RouteHome      = "/"
	RouteAssistant = "/acceder-assistant"
)

type Outcome string

const (
	OutcomeLoading  Outcome = "loading"
	OutcomeRedirect Outcome = "redirect"
	OutcomeRender   Outcome = "render"
)

// Request is everything the gate looks at. A nil AllowedRoles means any
// authenticated role; RedirectTo overrides the role fallback.
type Request struct {
	Authenticated bool
	Loading       bool
	Kind          model.Kind
	AllowedRoles  []model.Kind
	RedirectTo    string
}

type Decision struct {
	Outcome  Outcome `json:"outcome"`
	Location string  `json:"location,omitempty"`
}

// Decide is evaluated on every navigation; it holds no state.
func Decide(req Request) Decision {
	if req.Loading {
		return Decision{Outcome: OutcomeLoading}
	}
	if !req.Authenticated {
		return Decision{Outcome: OutcomeRedirect, Location: RouteLogin}
	}
	if req.AllowedRoles != nil && !allowed(req.Kind, req.AllowedRoles) {
		return Decision{Outcome: OutcomeRedirect, Location: fallback(req.Kind, req.RedirectTo)}
	}
	return Decision{Outcome: OutcomeRender}
}

// Home is where an authenticated identity lands after login.
func Home(kind model.Kind) string {
	switch kind {
	case model.KindUser:
		return RouteAssistant
	case model.KindAdmin:
		return RouteHome
	default:
		return RouteHome
	}
}

func fallback(kind model.Kind, override string) string {
	if override != "" {
		return override
	}
	return Home(kind)
}

func allowed(kind model.Kind, roles []model.Kind) bool {
	for _, r := range roles {
		if r == kind {
			return true
		}
	}
	return false
}
