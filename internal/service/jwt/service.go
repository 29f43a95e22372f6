package jwtService

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/GintGld/clipper/internal/service"
)

const sessionClaim = "sid"

type JWT struct {
	secret []byte
}

func New(secret []byte) *JWT {
	return &JWT{
		secret: secret,
	}
}

// NewToken signs a session token valid for given duration.
func (jwtStruct *JWT) NewToken(sid string, duration time.Duration) (string, error) {
	const op = "JWT.NewToken"

	token := jwt.New(jwt.SigningMethodHS256)

	claims := token.Claims.(jwt.MapClaims)
	claims[sessionClaim] = sid
	claims["exp"] = time.Now().Add(duration).Unix()

	tokenString, err := token.SignedString(jwtStruct.secret)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	return tokenString, nil
}

// SessionID validates the token and returns session id it carries.
func (jwtStruct *JWT) SessionID(tokenString string) (string, error) {
	const op = "JWT.SessionID"

	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		return jwtStruct.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, errors.Join(service.ErrInvalidToken, err))
	}

	sid, err := ClaimsSessionID(token)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	return sid, nil
}

// ClaimsSessionID reads session id of already validated token.
func ClaimsSessionID(token *jwt.Token) (string, error) {
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", service.ErrInvalidToken
	}

	sid, ok := claims[sessionClaim].(string)
	if !ok || sid == "" {
		return "", service.ErrInvalidToken
	}

	return sid, nil
}
