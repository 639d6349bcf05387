package ws

import (
	"log"
	"net/http"
	"strings"

	socketio "github.com/googollee/go-socket.io"

	"ctn_registry/internal/auth"
)

// extractToken extracts the JWT from the handshake request.
// Priority: token query parameter, then Authorization header.
func extractToken(r *http.Request) string {
	// Socket.IO client: io(url, { auth: { token: "xxx" } }) arrives as ?token=
	if token := r.URL.Query().Get("token"); token != "" {
		return token
	}

	authHeader := r.Header.Get("Authorization")
	if authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) == 2 && parts[0] == "Bearer" {
			return parts[1]
		}
	}

	return ""
}

// WrapWithAuth wraps the Socket.IO server with JWT authentication on the
// handshake. The feed only carries directory-visible data, so any
// authenticated portal user may subscribe.
func WrapWithAuth(server *socketio.Server) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet && strings.Contains(r.URL.Path, "/socket.io/") {
			token := extractToken(r)
			if token == "" {
				log.Printf("[WebSocket] Handshake rejected: no token from %s", r.RemoteAddr)
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			claims, err := auth.ParseToken(token)
			if err != nil {
				log.Printf("[WebSocket] Handshake rejected: invalid token from %s: %v", r.RemoteAddr, err)
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			log.Printf("[WebSocket] Handshake accepted: %s", claims.Email)
		}

		server.ServeHTTP(w, r)
	})
}
