package middleware

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"orderdesk/internal/model"

	"github.com/golang-jwt/jwt/v4"
	"github.com/rs/zerolog"
)

// IdentityClaims are the claims the auth service puts in caller tokens.
// Subject holds the numeric user id.
type IdentityClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

type identityKey struct{}

// WithIdentity attaches a verified caller to ctx.
func WithIdentity(ctx context.Context, identity model.Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, identity)
}

// IdentityFromContext returns the caller placed on ctx by Identity.
func IdentityFromContext(ctx context.Context) (model.Identity, bool) {
	identity, ok := ctx.Value(identityKey{}).(model.Identity)
	return identity, ok
}

// Identity verifies the HS256 bearer token issued by the auth service and
// puts the caller on the request context.
func Identity(secret []byte, logger zerolog.Logger) func(http.Handler) http.Handler {
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	keyFunc := func(*jwt.Token) (interface{}, error) {
		return secret, nil
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if isPublic(r) {
				next.ServeHTTP(w, r)
				return
			}

			tokenStr, ok := extractBearerToken(r.Header.Get("Authorization"))
			if !ok {
				writeAuthError(w, r, "missing bearer token")
				return
			}

			identity, err := parseIdentity(parser, tokenStr, keyFunc)
			if err != nil {
				logger.Warn().
					Err(err).
					Str("path", r.URL.Path).
					Str("request_id", RequestIDFromContext(r.Context())).
					Msg("identity token rejected")
				writeAuthError(w, r, "invalid bearer token")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), identity)))
		})
	}
}

func parseIdentity(parser *jwt.Parser, tokenStr string, keyFunc jwt.Keyfunc) (model.Identity, error) {
	claims := &IdentityClaims{}
	if _, err := parser.ParseWithClaims(tokenStr, claims, keyFunc); err != nil {
		return model.Identity{}, err
	}

	id, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil || id <= 0 {
		return model.Identity{}, errors.New("subject is not a user id")
	}

	role := model.Role(claims.Role)
	if role != model.RoleBuyer && role != model.RoleAdmin {
		return model.Identity{}, errors.New("unknown role " + claims.Role)
	}

	return model.Identity{ID: id, Role: role}, nil
}

func extractBearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
