package middleware

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"strings"

	"github.com/clerk/clerk-sdk-go/v2/jwt"
)

type contextKey string

const OwnerIDKey contextKey = "ownerID"
const ClerkIDKey contextKey = "clerkID"

// APIKeyVerifier resolves a game-server API key to the owner it belongs to.
type APIKeyVerifier interface {
	VerifyAPIKey(ctx context.Context, key string) (int64, bool)
}

// GameKeyAuthMiddleware authenticates game-server calls via the X-API-Key
// header. The resolved owner id lands in the request context.
func GameKeyAuthMiddleware(verifier APIKeyVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.Header.Get("X-API-Key")
			if key == "" {
				respondWithError(w, http.StatusUnauthorized, "X-API-Key header required")
				return
			}

			ownerID, ok := verifier.VerifyAPIKey(r.Context(), key)
			if !ok {
				respondWithError(w, http.StatusUnauthorized, "Invalid API key")
				return
			}

			ctx := context.WithValue(r.Context(), OwnerIDKey, ownerID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ClerkAuthMiddleware validates Clerk JWT tokens for the owner dashboard.
func ClerkAuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			respondWithError(w, http.StatusUnauthorized, "Authorization header required")
			return
		}

		token := strings.TrimPrefix(authHeader, "Bearer ")
		if token == authHeader {
			respondWithError(w, http.StatusUnauthorized, "Invalid authorization format. Use 'Bearer <token>'")
			return
		}

		claims, err := jwt.Verify(r.Context(), &jwt.VerifyParams{
			Token: token,
		})
		if err != nil {
			log.Printf("Token verification failed: %v", err)
			respondWithError(w, http.StatusUnauthorized, fmt.Sprintf("Invalid token: %v", err))
			return
		}

		ctx := context.WithValue(r.Context(), ClerkIDKey, claims.Subject)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// AdminAuthMiddleware guards the admin endpoints with a shared secret.
func AdminAuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		secret := os.Getenv("ADMIN_API_KEY")
		if secret == "" || r.Header.Get("X-Admin-Key") != secret {
			respondWithError(w, http.StatusForbidden, "Admin access denied")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// GetOwnerID extracts the authenticated game-server owner id from context.
func GetOwnerID(ctx context.Context) (int64, bool) {
	ownerID, ok := ctx.Value(OwnerIDKey).(int64)
	return ownerID, ok
}

// GetClerkID extracts the Clerk user id from context.
func GetClerkID(ctx context.Context) (string, bool) {
	clerkID, ok := ctx.Value(ClerkIDKey).(string)
	return clerkID, ok
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write([]byte(fmt.Sprintf(`{"error": "%s"}`, message)))
}
