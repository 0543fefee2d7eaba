package auth

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/kirillkom/listing-analyzer/internal/core/domain"
)

const (
	DevUserID    = "dev_user"
	devUserEmail = "dev@example.com"
	devToken     = "dev-token"
)

type claims struct {
	Email string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// Verifier validates inbound bearer tokens. Without a secret it runs in
// development mode and accepts every request as DevUserID.
type Verifier struct {
	secret []byte
	leeway time.Duration
	now    func() time.Time
}

func NewVerifier(secret string, leeway time.Duration) *Verifier {
	return &Verifier{secret: []byte(secret), leeway: leeway, now: time.Now}
}

func (v *Verifier) DevMode() bool {
	return len(v.secret) == 0
}

// Verify parses an HS256 token and returns the session it describes.
func (v *Verifier) Verify(token string) (domain.Session, error) {
	token = strings.TrimSpace(token)
	if v.DevMode() {
		if token == "" {
			token = devToken
		}
		return domain.Session{UserID: DevUserID, Email: devUserEmail, AccessToken: token}, nil
	}
	if token == "" {
		return domain.Session{}, domain.WrapError(domain.ErrUnauthorized, "verify token", errors.New("authentication required"))
	}

	var c claims
	parsed, err := jwt.ParseWithClaims(token, &c, func(*jwt.Token) (any, error) {
		return v.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithLeeway(v.leeway),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(v.now),
	)
	if err != nil || !parsed.Valid {
		if err == nil {
			err = errors.New("token is not valid")
		}
		return domain.Session{}, domain.WrapError(domain.ErrUnauthorized, "verify token", err)
	}
	if strings.TrimSpace(c.Subject) == "" {
		return domain.Session{}, domain.WrapError(domain.ErrUnauthorized, "verify token", errors.New("token has no subject"))
	}

	session := domain.Session{UserID: c.Subject, Email: c.Email, AccessToken: token}
	if c.ExpiresAt != nil {
		session.ExpiresAt = c.ExpiresAt.Time.UTC()
	}
	return session, nil
}

// SessionFromToken reads subject, email and expiry from a token without
// verifying its signature. It is meant for tokens this process just
// received from the auth service.
func SessionFromToken(token string) (domain.Session, error) {
	var c claims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &c); err != nil {
		return domain.Session{}, domain.WrapError(domain.ErrUnauthorized, "parse token", err)
	}
	session := domain.Session{UserID: c.Subject, Email: c.Email, AccessToken: token}
	if c.ExpiresAt != nil {
		session.ExpiresAt = c.ExpiresAt.Time.UTC()
	}
	return session, nil
}
