package security

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/omnisphere/auth-service/internal/application/auth"
	"github.com/omnisphere/auth-service/internal/domain"
)

// JWTSigner mints and verifies HS256 access tokens.
type JWTSigner struct {
	secret []byte
	issuer string
}

func NewJWTSigner(secret string, issuer string) *JWTSigner {
	return &JWTSigner{secret: []byte(secret), issuer: issuer}
}

type accessClaims struct {
	UserID string `json:"uid"`
	jwt.RegisteredClaims
}

func (s *JWTSigner) SignAccessToken(userID string, ttl time.Duration) (string, error) {
	now := time.Now()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, accessClaims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	})

	signed, err := tok.SignedString(s.secret)
	if err != nil {
		return "", domain.ErrTokenSignFailed(err)
	}
	return signed, nil
}

func (s *JWTSigner) VerifyAccessToken(token string) (auth.TokenClaims, error) {
	keyFn := func(t *jwt.Token) (any, error) {
		// alg confusion guard
		if t.Method != jwt.SigningMethodHS256 {
			return nil, domain.ErrTokenInvalid()
		}
		return s.secret, nil
	}

	parsed, err := jwt.ParseWithClaims(token, &accessClaims{}, keyFn,
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return auth.TokenClaims{}, domain.ErrTokenExpired()
		}
		return auth.TokenClaims{}, domain.ErrTokenInvalid()
	}

	claims, ok := parsed.Claims.(*accessClaims)
	if !ok || !parsed.Valid {
		return auth.TokenClaims{}, domain.ErrTokenInvalid()
	}

	out := auth.TokenClaims{UserID: claims.UserID}
	if claims.ExpiresAt != nil {
		out.Exp = claims.ExpiresAt.Time
	}
	return out, nil
}
