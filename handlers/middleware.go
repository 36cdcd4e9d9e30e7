package handlers

import (
	"github.com/google/uuid"
	"github.com/pocketbase/pocketbase/core"

	"preventivi/collections"
	"preventivi/logging"
	"preventivi/services"
)

const msgUnauthorized = "Sessione scaduta, effettua di nuovo l'accesso"

// SessionOf returns the operator session carried by the request's auth
// token. Superusers and records of other auth collections have none.
func SessionOf(e *core.RequestEvent) (services.Session, bool) {
	if e.Auth == nil || e.Auth.Collection() == nil || e.Auth.Collection().Name != collections.Operators {
		return services.Session{}, false
	}
	return services.Session{
		OperatorID: e.Auth.Id,
		Username:   e.Auth.GetString("username"),
	}, true
}

// RequestContext tags the request context with a request id and, when the
// token identifies an operator, the operator id, so every log line of the
// request carries them. It must run after PocketBase has loaded the token.
func RequestContext(log *logging.Logger) func(e *core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		id := e.Request.Header.Get("X-Request-Id")
		if id == "" {
			id = uuid.NewString()
		}
		ctx := log.WithRequestID(e.Request.Context(), id)
		if sess, ok := SessionOf(e); ok {
			ctx = log.WithOperator(ctx, sess.OperatorID)
		}
		e.Request = e.Request.WithContext(ctx)
		e.Response.Header().Set("X-Request-Id", id)
		return e.Next()
	}
}

// RequireOperator rejects requests without an operator session.
func RequireOperator() func(e *core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		if _, ok := SessionOf(e); !ok {
			return unauthorized(e)
		}
		return e.Next()
	}
}
