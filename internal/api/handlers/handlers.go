// Package handlers contains the HTTP handler implementations for the
// GridWatch API. Each resource gets its own file with a handler struct,
// locally defined dependency interfaces, and a RegisterRoutes method that
// mounts the resource's routes on a chi router.
package handlers

import (
	"net/http"
	"strconv"
	"time"

	"gridwatch/internal/core"
	"gridwatch/internal/types"
)

// requireMinRole is route middleware that rejects requests whose actor does
// not hold at least the given role. System actors bypass the check.
func requireMinRole(minRole types.UserRole) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor, ok := types.GetActor(r.Context())
			if !ok {
				core.Error(w, r, types.NewAppError(
					types.ErrCodeAuthTokenMissing,
					"Authentication required",
					nil,
				))
				return
			}

			if actor.Type == types.ActorTypeSystem {
				next.ServeHTTP(w, r)
				return
			}

			if !actor.RoleHasAtLeast(minRole) {
				core.Error(w, r, types.NewAppError(
					types.ErrCodePermissionRole,
					"Insufficient role for this operation",
					nil,
				))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// queryLimit parses the "limit" query parameter and clamps it into the
// allowed page size range. Missing or malformed values fall back to the
// default page size.
func queryLimit(r *http.Request) int {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return types.DefaultPageLimit
	}
	limit, err := strconv.Atoi(raw)
	if err != nil {
		return types.DefaultPageLimit
	}
	return types.ClampLimit(limit)
}

// queryTime parses an RFC 3339 timestamp query parameter. An empty value
// returns the zero time with no error.
func queryTime(r *http.Request, name string) (time.Time, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return time.Time{}, nil
	}
	ts, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, types.NewAppError(
			types.ErrCodeValidationFailed,
			name+" must be an RFC 3339 timestamp",
			err,
		)
	}
	return ts.UTC(), nil
}
