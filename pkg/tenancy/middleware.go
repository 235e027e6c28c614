package tenancy

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// Middleware resolves the collectivite from the route's {collectiviteID}
// parameter and stores it in the request context. Mounted inside the
// collectivite route group, after chi has matched the URL. A missing id
// responds with a 400 JSON error.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "collectiviteID")
		if id == "" {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			_ = json.NewEncoder(w).Encode(map[string]string{
				"error":   "bad_request",
				"message": "missing collectivite id",
			})
			return
		}

		ctx := WithCollectivite(r.Context(), CollectiviteContext{ID: id})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
