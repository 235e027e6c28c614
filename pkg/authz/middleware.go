package authz

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/colconnect/arbitrage/pkg/tenancy"
)

// IdentityMiddleware establishes the caller identity according to the
// configured mode and stores it in the request context.
//
// In header mode the identity comes from X-User-Id (anonymous when absent)
// and no collectivite restriction applies. In jwt mode the bearer token is
// validated with the shared secret and the sub/collectivites/scopes claims
// populate the identity; missing collectivites or scopes default to empty
// lists rather than rejecting the token.
func IdentityMiddleware(cfg *Config) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if cfg.Mode != ModeJWT {
				id := Identity{Subject: r.Header.Get("X-User-Id")}
				if id.Subject == "" {
					id.Subject = "anonymous"
				}
				next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
				return
			}

			token := bearerToken(r)
			if token == "" {
				writeAuthError(w, http.StatusUnauthorized, "missing bearer token")
				return
			}

			id, err := parseToken(token, cfg.JWTSecret)
			if err != nil {
				writeAuthError(w, http.StatusUnauthorized, err.Error())
				return
			}

			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
		})
	}
}

// RequireCollectiviteAccess gates a route group on the caller's right to
// operate on the collectivite resolved by the tenancy middleware. Header
// mode carries no grants and is not restricted.
func RequireCollectiviteAccess(cfg *Config) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if cfg.Mode != ModeJWT {
				next.ServeHTTP(w, r)
				return
			}

			id, ok := IdentityFromContext(r.Context())
			collectiviteID := tenancy.IDFromContext(r.Context())
			if !ok || !id.CanAccess(collectiviteID) {
				writeAuthError(w, http.StatusForbidden,
					fmt.Sprintf("forbidden for collectivite %s", collectiviteID))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return parts[1]
}

func parseToken(token, secret string) (Identity, error) {
	claims := jwt.MapClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil || !parsed.Valid {
		return Identity{}, fmt.Errorf("invalid token")
	}

	sub, _ := claims["sub"].(string)
	if sub == "" {
		return Identity{}, fmt.Errorf("token missing sub claim")
	}

	return Identity{
		Subject:       sub,
		Collectivites: stringClaim(claims, "collectivites"),
		Scopes:        stringClaim(claims, "scopes"),
	}, nil
}

func stringClaim(claims jwt.MapClaims, key string) []string {
	raw, ok := claims[key].([]any)
	if !ok {
		return nil
	}
	values := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			values = append(values, s)
		}
	}
	return values
}

func writeAuthError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	code := "forbidden"
	if status == http.StatusUnauthorized {
		code = "unauthorized"
	}
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error":   code,
		"message": message,
	})
}
