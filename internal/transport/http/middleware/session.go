package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"filiale-console/internal/access"
	"filiale-console/internal/app"
	"filiale-console/internal/model"
	"filiale-console/internal/transport/http/response"
)

const (
	HeaderDeviceID = "X-Device-ID"

	ContextDeviceIDKey = "device_id"
	ContextSessionKey  = "session_state"
)

// Session resolves the caller's device and restores its session on every
// request. A bearer token names the device; without one the X-Device-ID header
// does. It never rejects a request, Gate does.
func Session(sessions *app.SessionStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		deviceID := strings.TrimSpace(c.GetHeader(HeaderDeviceID))
		state := app.SessionState{}

		if token, ok := bearerToken(c); ok {
			claims, err := sessions.ParseToken(token)
			if err == nil {
				deviceID = claims.DeviceID
				state = sessions.Restore(c.Request.Context(), deviceID)
				if state.Identity == nil || state.Identity.ID != claims.IdentityID {
					state = app.SessionState{}
				}
			}
		}

		c.Set(ContextDeviceIDKey, deviceID)
		c.Set(ContextSessionKey, state)
		c.Next()
	}
}

// Gate applies the access decision to an API group. allowed empty means any
// authenticated identity.
func Gate(allowed ...model.Kind) gin.HandlerFunc {
	return func(c *gin.Context) {
		state := SessionState(c)
		req := access.Request{
			Authenticated: state.Authenticated,
			Loading:       state.Loading,
			AllowedRoles:  allowed,
		}
		if state.Identity != nil {
			req.Kind = state.Identity.Kind
		}

		decision := access.Decide(req)
		switch {
		case decision.Outcome == access.OutcomeRender:
			c.Next()
		case !state.Authenticated:
			response.ErrorWithData(c, http.StatusUnauthorized, response.CodeUnauthorized, "authentication required", decision)
			c.Abort()
		default:
			response.ErrorWithData(c, http.StatusForbidden, response.CodeForbidden, "access denied for this role", decision)
			c.Abort()
		}
	}
}

func DeviceID(c *gin.Context) string {
	return c.GetString(ContextDeviceIDKey)
}

func SessionState(c *gin.Context) app.SessionState {
	v, ok := c.Get(ContextSessionKey)
	if !ok {
		return app.SessionState{}
	}
	state, _ := v.(app.SessionState)
	return state
}

// Identity returns the authenticated identity, nil when signed out.
func Identity(c *gin.Context) *model.Identity {
	return SessionState(c).Identity
}

func bearerToken(c *gin.Context) (string, bool) {
	authHeader := strings.TrimSpace(c.GetHeader("Authorization"))
	const prefix = "Bearer "
	if !strings.HasPrefix(authHeader, prefix) {
		return "", false
	}
	token := strings.TrimSpace(strings.TrimPrefix(authHeader, prefix))
	return token, token != ""
}
