package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"surveyengine/internal/model"
	"surveyengine/internal/service"
)

type hostKey struct{}
type sessionKey struct{}

// AuthMiddleware authenticates hosts and respondents
type AuthMiddleware struct {
	authSvc *service.AuthService
}

// NewAuthMiddleware creates a new auth middleware
func NewAuthMiddleware(authSvc *service.AuthService) *AuthMiddleware {
	return &AuthMiddleware{authSvc: authSvc}
}

// RequireHost accepts a host token from the Authorization header only
func (m *AuthMiddleware) RequireHost(next http.Handler) http.Handler {
	return m.authenticate(next, false, func(ctx context.Context, token string) (context.Context, error) {
		claims, err := m.authSvc.ValidateHostToken(token)
		if err != nil {
			return nil, err
		}
		return WithHost(ctx, claims), nil
	})
}

// RequireRespondent accepts a session token from the Authorization header or ?token=,
// so links in invitation mails work without a client
func (m *AuthMiddleware) RequireRespondent(next http.Handler) http.Handler {
	return m.authenticate(next, true, func(ctx context.Context, token string) (context.Context, error) {
		sess, err := m.authSvc.ValidateSessionToken(token)
		if err != nil {
			return nil, err
		}
		return WithSession(ctx, sess), nil
	})
}

func (m *AuthMiddleware) authenticate(next http.Handler, allowQuery bool, validate func(context.Context, string) (context.Context, error)) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := requestToken(r, allowQuery)
		if token == "" {
			unauthorized(w, "missing authorization")
			return
		}
		ctx, err := validate(r.Context(), token)
		if err != nil {
			unauthorized(w, "invalid or expired token")
			return
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func unauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

// GetHost returns the authenticated host claims, or nil
func GetHost(ctx context.Context) *model.HostClaims {
	if v, ok := ctx.Value(hostKey{}).(*model.HostClaims); ok {
		return v
	}
	return nil
}

// GetHostID returns the authenticated host id, or ""
func GetHostID(ctx context.Context) string {
	if h := GetHost(ctx); h != nil {
		return h.HostID
	}
	return ""
}

// GetSession returns the authenticated respondent session, or nil
func GetSession(ctx context.Context) *model.Session {
	if v, ok := ctx.Value(sessionKey{}).(*model.Session); ok {
		return v
	}
	return nil
}

// WithHost returns ctx carrying the host claims
func WithHost(ctx context.Context, claims *model.HostClaims) context.Context {
	return context.WithValue(ctx, hostKey{}, claims)
}

// WithSession returns ctx carrying the respondent session
func WithSession(ctx context.Context, sess *model.Session) context.Context {
	return context.WithValue(ctx, sessionKey{}, sess)
}

// requestToken reads "Authorization: Bearer <token>", falling back to ?token= when allowed
func requestToken(r *http.Request, allowQuery bool) string {
	scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
	if ok && strings.EqualFold(scheme, "bearer") {
		if token = strings.TrimSpace(token); token != "" {
			return token
		}
	}
	if allowQuery {
		return r.URL.Query().Get("token")
	}
	return ""
}
