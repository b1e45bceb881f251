package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/hilthontt/civicreport/internal/domain"
	"github.com/hilthontt/civicreport/internal/infrastructure/json"
	"github.com/hilthontt/civicreport/internal/infrastructure/logging"
)

type contextKey struct{}

var ErrMissingToken = errors.New("no authorization token provided")

type Claims struct {
	UserID string `json:"user_id"`
	Role   string `json:"role"`
	Name   string `json:"name,omitempty"`
	jwt.RegisteredClaims
}

// Authenticator turns a bearer token into a Session. When a user
// directory is configured the stored role wins over the token's.
type Authenticator struct {
	secret []byte
	issuer string
	users  domain.UserRepository
	logger logging.Logger
}

func NewAuthenticator(secret, issuer string, users domain.UserRepository, logger logging.Logger) (*Authenticator, error) {
	if secret == "" {
		return nil, fmt.Errorf("JWT secret not configured")
	}
	return &Authenticator{secret: []byte(secret), issuer: issuer, users: users, logger: logger}, nil
}

func (a *Authenticator) IssueToken(user domain.User, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID: user.ID,
		Role:   string(user.Role),
		Name:   user.Name,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			Issuer:    a.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
}

func (a *Authenticator) Authenticate(ctx context.Context, tokenString string) (*domain.Session, error) {
	if tokenString == "" {
		return nil, ErrMissingToken
	}

	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if a.issuer != "" {
		opts = append(opts, jwt.WithIssuer(a.issuer))
	}

	var claims Claims
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (any, error) {
		return a.secret, nil
	}, opts...)
	if err != nil || !token.Valid {
		return nil, fmt.Errorf("%w: invalid token", domain.ErrUnauthorized)
	}

	userID := claims.UserID
	if userID == "" {
		userID = claims.Subject
	}
	role, ok := domain.ParseRole(claims.Role)
	if userID == "" || !ok {
		return nil, fmt.Errorf("%w: invalid token claims", domain.ErrUnauthorized)
	}
	session := &domain.Session{UserID: userID, Name: claims.Name, Role: role}

	if a.users != nil {
		user, err := a.users.GetByID(ctx, userID)
		switch {
		case err == nil:
			session = domain.NewSession(user)
		case errors.Is(err, domain.ErrNotFound):
		default:
			return nil, fmt.Errorf("failed to load user: %w", err)
		}
	}
	return session, nil
}

// Middleware rejects requests without a valid token. Websocket clients
// that cannot set headers may pass the token as ?token=.
func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		session, err := a.Authenticate(r.Context(), tokenFromRequest(r))
		if err != nil {
			if !errors.Is(err, domain.ErrUnauthorized) && !errors.Is(err, ErrMissingToken) {
				a.logger.Error(logging.General, logging.Auth, "authentication failed", map[logging.ExtraKey]any{
					logging.Path:         r.URL.Path,
					logging.ErrorMessage: err.Error(),
				})
				json.WriteInternalError(w, err)
				return
			}
			json.WriteUnauthorizedError(w, err.Error())
			return
		}

		next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), session)))
	})
}

func tokenFromRequest(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header != "" {
		if len(header) > 7 && strings.EqualFold(header[:7], "Bearer ") {
			return strings.TrimSpace(header[7:])
		}
		return strings.TrimSpace(header)
	}
	return r.URL.Query().Get("token")
}

func WithSession(ctx context.Context, s *domain.Session) context.Context {
	return context.WithValue(ctx, contextKey{}, s)
}

// SessionFrom returns the request's session, or nil when unauthenticated.
func SessionFrom(ctx context.Context) *domain.Session {
	s, _ := ctx.Value(contextKey{}).(*domain.Session)
	return s
}
