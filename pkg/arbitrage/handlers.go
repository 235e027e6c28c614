package arbitrage

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"

	"github.com/colconnect/arbitrage/pkg/authz"
	"github.com/colconnect/arbitrage/pkg/engine"
	"github.com/colconnect/arbitrage/pkg/store"
	"github.com/colconnect/arbitrage/pkg/tenancy"
)

// runHandler computes and records one arbitrage run.
func runHandler(svc *Service, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		collectiviteID := tenancy.IDFromContext(r.Context())

		var req RunRequest
		decoder := json.NewDecoder(r.Body)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&req); err != nil {
			writeError(w, http.StatusUnprocessableEntity, "validation_error", "invalid request body: "+err.Error())
			return
		}

		actor := "anonymous"
		if id, ok := authz.IdentityFromContext(r.Context()); ok && id.Subject != "" {
			actor = id.Subject
		}

		run, err := svc.Run(r.Context(), collectiviteID, req, actor)
		if err != nil {
			writeServiceError(w, logger, err)
			return
		}
		writeJSON(w, http.StatusCreated, run)
	}
}

// latestHandler returns the most recent conforming run.
func latestHandler(svc *Service, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		run, err := svc.Latest(r.Context(), tenancy.IDFromContext(r.Context()))
		if err != nil {
			writeServiceError(w, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, run)
	}
}

// getRunHandler returns one run by id.
func getRunHandler(svc *Service, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		run, err := svc.Get(r.Context(), tenancy.IDFromContext(r.Context()), chi.URLParam(r, "arbitrageID"))
		if err != nil {
			writeServiceError(w, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, run)
	}
}

// listRunsHandler serves the offset-paginated run listing.
func listRunsHandler(svc *Service, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		page, err := svc.ListOffset(r.Context(), tenancy.IDFromContext(r.Context()), ParseListParams(r))
		if err != nil {
			writeServiceError(w, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, page)
	}
}

// listRunsCursorHandler serves the cursor-paginated run listing.
func listRunsCursorHandler(svc *Service, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		limit := 0
		if v := q.Get("limit"); v != "" {
			// Clamped by the service; a non-numeric limit falls back to the default.
			limit = atoiOrZero(v)
		}

		page, err := svc.ListCursor(r.Context(), tenancy.IDFromContext(r.Context()), limit, q.Get("cursor"))
		if err != nil {
			writeServiceError(w, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, page)
	}
}

// getSettingsHandler returns the collectivite's weights configuration.
func getSettingsHandler(svc *Service, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		settings, err := svc.GetSettings(r.Context(), tenancy.IDFromContext(r.Context()))
		if err != nil {
			writeServiceError(w, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, settings)
	}
}

// putSettingsHandler replaces the collectivite's weights configuration.
func putSettingsHandler(svc *Service, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var weights engine.Weights
		decoder := json.NewDecoder(r.Body)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&weights); err != nil {
			writeError(w, http.StatusUnprocessableEntity, "validation_error", "invalid request body: "+err.Error())
			return
		}

		settings, err := svc.PutSettings(r.Context(), tenancy.IDFromContext(r.Context()), weights)
		if err != nil {
			writeServiceError(w, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, settings)
	}
}

// healthHandler reports service and store health.
func healthHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := map[string]any{"ok": true, "store": "up"}
		code := http.StatusOK
		if err := svc.Health(r.Context()); err != nil {
			status["ok"] = false
			status["store"] = "down"
			code = http.StatusServiceUnavailable
		}
		writeJSON(w, code, status)
	}
}

// versionHandler exposes the engine and schema versions for deploy checks.
func versionHandler() http.HandlerFunc {
	commit := os.Getenv("BUILD_GIT_COMMIT")
	if commit == "" {
		commit = "unknown"
	}
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"engine_version": engine.Version,
			"schema_version": SchemaVersion,
			"api_version":    "v1",
			"git_commit":     commit,
		})
	}
}

// writeServiceError maps the error taxonomy to HTTP statuses. Only truly
// unexpected faults fall through to the internal category, and those are
// logged with enough context to diagnose.
func writeServiceError(w http.ResponseWriter, logger *slog.Logger, err error) {
	var verr *engine.ValidationError
	switch {
	case errors.As(err, &verr):
		writeError(w, http.StatusUnprocessableEntity, "validation_error", verr.Error())
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, store.ErrStoreUnavailable):
		writeError(w, http.StatusServiceUnavailable, "store_unavailable", "persistent store unreachable")
	default:
		logger.Error("internal fault", "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "internal fault")
	}
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]string{"error": code, "message": message})
}

func atoiOrZero(s string) int {
	n := 0
	for _, c := range s {
		if c < '0' || c > '9' {
			return 0
		}
		n = n*10 + int(c-'0')
	}
	return n
}
