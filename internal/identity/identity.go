package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/avstrong/stays/internal/clock"
)

var (
	ErrMissingToken = errors.New("missing token")
	ErrInvalidToken = errors.New("invalid token")
)

// Profile is the signed-in user as far as the booking screens care.
type Profile struct {
	SignedIn  bool   `json:"signedIn"`
	Username  string `json:"username,omitempty"`
	AvatarURL string `json:"avatarUrl,omitempty"`
}

func (p Profile) FavoritesScope() string {
	if !p.SignedIn || p.Username == "" {
		return "guest"
	}

	return p.Username
}

type claims struct {
	Username  string `json:"username"`
	AvatarURL string `json:"avatar_url,omitempty"`
	jwt.RegisteredClaims
}

type Verifier struct {
	secret []byte
	clock  clock.Clock
}

func NewVerifier(secret string, clk clock.Clock) *Verifier {
	if clk == nil {
		clk = clock.Real()
	}

	return &Verifier{secret: []byte(secret), clock: clk}
}

func (v *Verifier) Issue(username, avatarURL string, ttl time.Duration) (string, error) {
	now := v.clock.Now()

	//nolint:exhaustruct
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		Username:  username,
		AvatarURL: avatarURL,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   username,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	})

	signed, err := t.SignedString(v.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}

	return signed, nil
}

// ParseAuth reads an "Authorization: Bearer <token>" header value.
func (v *Verifier) ParseAuth(authHeader string) (Profile, error) {
	tokenStr := strings.TrimSpace(authHeader)
	if scheme, rest, ok := strings.Cut(tokenStr, " "); ok && strings.EqualFold(scheme, "bearer") {
		tokenStr = strings.TrimSpace(rest)
	} else if strings.EqualFold(tokenStr, "bearer") {
		tokenStr = ""
	}

	if tokenStr == "" {
		return Profile{}, ErrMissingToken
	}

	var c claims

	tok, err := jwt.ParseWithClaims(tokenStr, &c, func(*jwt.Token) (any, error) {
		return v.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(v.clock.Now))
	if err != nil {
		return Profile{}, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	if !tok.Valid || c.Username == "" {
		return Profile{}, ErrInvalidToken
	}

	return Profile{SignedIn: true, Username: c.Username, AvatarURL: c.AvatarURL}, nil
}

type ctxKey struct{}

func NewContext(ctx context.Context, p Profile) context.Context {
	return context.WithValue(ctx, ctxKey{}, p)
}

// FromContext returns the signed-out profile when none was stored.
func FromContext(ctx context.Context) Profile {
	p, _ := ctx.Value(ctxKey{}).(Profile)

	return p
}
