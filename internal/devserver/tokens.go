package devserver

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	tokenTypeAccess  = "access"
	tokenTypeRefresh = "refresh"
)

var errWrongTokenType = errors.New("wrong token type")

type claims struct {
	Type string `json:"type"`
	jwt.RegisteredClaims
}

// issuer signs and verifies HS256 tokens. Every token carries a fresh jti so
// two tokens minted in the same second still differ.
type issuer struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

func (i *issuer) sign(userID int64, typ string, ttl time.Duration) (string, error) {
	now := i.now()
	c := claims{
		Type: typ,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(userID, 10),
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(i.secret)
}

// pair mints an access and a refresh token for userID.
func (i *issuer) pair(userID int64) (access, refresh string, err error) {
	if access, err = i.sign(userID, tokenTypeAccess, i.accessTTL); err != nil {
		return "", "", fmt.Errorf("signing access token: %w", err)
	}
	if refresh, err = i.sign(userID, tokenTypeRefresh, i.refreshTTL); err != nil {
		return "", "", fmt.Errorf("signing refresh token: %w", err)
	}
	return access, refresh, nil
}

// parse verifies raw and returns its subject.
func (i *issuer) parse(raw, wantType string) (int64, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.now),
	)

	var c claims
	token, err := parser.ParseWithClaims(raw, &c, func(*jwt.Token) (any, error) {
		return i.secret, nil
	})
	if err != nil {
		return 0, err
	}
	if !token.Valid {
		return 0, jwt.ErrTokenInvalidClaims
	}
	if c.Type != wantType {
		return 0, errWrongTokenType
	}

	userID, err := strconv.ParseInt(c.Subject, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid subject: %w", err)
	}
	return userID, nil
}
