package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-chi/jwtauth"
)

type callerKey struct{}

// NewTokenAuth creates an HS256 verifier for caller tokens.
func NewTokenAuth(secret string) *jwtauth.JWTAuth {
	return jwtauth.New("HS256", []byte(secret), nil)
}

// IssueToken signs a token whose subject is the caller's hex address. A zero
// ttl issues a token without expiry.
func IssueToken(auth *jwtauth.JWTAuth, caller common.Address, ttl time.Duration) (string, error) {
	if caller == (common.Address{}) {
		return "", fmt.Errorf("cannot issue a token for the zero address")
	}
	claims := map[string]interface{}{"sub": caller.Hex()}
	jwtauth.SetIssuedNow(claims)
	if ttl > 0 {
		jwtauth.SetExpiryIn(claims, ttl)
	}
	_, token, err := auth.Encode(claims)
	return token, err
}

// RequireCaller rejects requests without a verified token and stores the
// token subject as the caller. It must run after jwtauth.Verifier.
func RequireCaller(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, claims, err := jwtauth.FromContext(r.Context())
		if err != nil || token == nil {
			writeError(w, r, http.StatusUnauthorized, "invalid_token", "a valid bearer token is required")
			return
		}

		sub, _ := claims["sub"].(string)
		if !common.IsHexAddress(sub) {
			writeError(w, r, http.StatusUnauthorized, "invalid_subject", "token subject must be an address")
			return
		}
		caller := common.HexToAddress(sub)
		if caller == (common.Address{}) {
			writeError(w, r, http.StatusUnauthorized, "invalid_subject", "token subject must not be the zero address")
			return
		}

		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), callerKey{}, caller)))
	})
}

// CallerFromContext returns the authenticated caller.
func CallerFromContext(ctx context.Context) (common.Address, bool) {
	caller, ok := ctx.Value(callerKey{}).(common.Address)
	return caller, ok
}
