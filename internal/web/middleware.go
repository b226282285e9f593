package web

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"
)

var errNoUser = errors.New("authentication required")

type userKey struct{}

// userFrom returns the user ID stored by requireUser.
func userFrom(ctx context.Context) string {
	user, _ := ctx.Value(userKey{}).(string)
	return user
}

// requireUser resolves the user from the configured header and rejects the
// request when there is none. The default user stands in only when allowed.
func (s *Server) requireUser(next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user := strings.TrimSpace(r.Header.Get(s.opts.UserHeader))
		if user == "" && s.opts.AllowDefaultUser {
			user = s.opts.DefaultUser
		}
		if user == "" {
			writeError(w, r, errNoUser)
			return
		}

		hlog.FromRequest(r).UpdateContext(func(c zerolog.Context) zerolog.Context {
			return c.Str("user", user)
		})

		next(w, r.WithContext(context.WithValue(r.Context(), userKey{}, user)))
	})
}
