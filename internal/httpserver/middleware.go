package httpserver

import (
	"context"
	"net/http"
	"strings"

	"taskhub/internal/auth"
)

// RequireAuth resolves the bearer credential into a user identity and role on
// the request context. Every protected route sits behind this.
func RequireAuth(jwtSecret []byte) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			token := tokenFromRequest(req)
			if token == "" {
				writeError(w, http.StatusUnauthorized, "Missing authorization token")
				return
			}

			claims, err := auth.VerifyUserToken(jwtSecret, token)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "Invalid token")
				return
			}

			ctx := context.WithValue(req.Context(), userIDKey, claims.UserID)
			ctx = context.WithValue(ctx, roleKey, claims.Role)
			next.ServeHTTP(w, req.WithContext(ctx))
		})
	}
}

// RequireRole guards a route to one role; it assumes RequireAuth ran first.
func RequireRole(role string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			current, ok := RoleFromContext(req.Context())
			if !ok || current != role {
				writeError(w, http.StatusForbidden, "Forbidden: Access denied")
				return
			}
			next.ServeHTTP(w, req)
		})
	}
}

func CORS(origins []string) func(http.Handler) http.Handler {
	allowAll := false
	for _, origin := range origins {
		if origin == "*" {
			allowAll = true
			break
		}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			origin := req.Header.Get("Origin")
			if origin != "" && (allowAll || containsOrigin(origins, origin)) {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Vary", "Origin")
				w.Header().Set("Access-Control-Allow-Methods", "GET,POST,PUT,PATCH,DELETE,OPTIONS")
				w.Header().Set("Access-Control-Allow-Headers", "Authorization,Content-Type")
			}

			if req.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, req)
		})
	}
}

func containsOrigin(origins []string, value string) bool {
	for _, origin := range origins {
		if strings.EqualFold(origin, value) {
			return true
		}
	}
	return false
}

func tokenFromRequest(req *http.Request) string {
	authorization := req.Header.Get("Authorization")
	if strings.HasPrefix(strings.ToLower(authorization), "bearer ") {
		return strings.TrimSpace(authorization[len("Bearer "):])
	}
	return ""
}
