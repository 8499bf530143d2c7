package jwt

import (
	"fmt"
	"time"

	"reflet-widget/internal/env"

	"github.com/golang-jwt/jwt"
)

// Secrets are read lazily so mains can load a .env file before first use.
func roleSecret(role Role) (string, error) {
	switch role {
	case RoleAgent:
		secret := env.Get(env.AgentSecretKey)
		if secret == "" {
			return "", fmt.Errorf("agent secret not configured")
		}
		return secret, nil
	}
	return "", fmt.Errorf("invalid role specified")
}

func appendRoleChar(token string, role Role) string {
	switch role {
	case RoleAgent:
		return token + "2"
	}
	return token
}

func expectedRoleChar(role Role) string {
	switch role {
	case RoleAgent:
		return "2"
	}
	return ""
}

func CreateToken(agent Agent, role Role, validUntil int64) (string, error) {
	secret, err := roleSecret(role)
	if err != nil {
		return "", err
	}

	if validUntil == 0 {
		now := time.Now()
		validUntil = now.Add(time.Hour * 12).Unix()
	}

	claims := jwt.MapClaims{
		"id":    agent.Id,
		"email": agent.Email,
		"exp":   validUntil,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", err
	}

	return appendRoleChar(tokenString, role), nil
}

// ParseToken validates an access token and its trailing role char.
func ParseToken(tokenString string, role Role) (jwt.MapClaims, error) {
	if len(tokenString) == 0 {
		return nil, fmt.Errorf("token string is empty")
	}

	if tokenString[len(tokenString)-1:] != expectedRoleChar(role) {
		return nil, fmt.Errorf("invalid role character in token")
	}
	tokenString = tokenString[:len(tokenString)-1]

	secret, err := roleSecret(role)
	if err != nil {
		return nil, err
	}

	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method")
		}
		return []byte(secret), nil
	})

	if err != nil {
		return nil, fmt.Errorf("unauthorized: %v", err)
	}
	if !token.Valid {
		return nil, fmt.Errorf("token is not valid - unauthorized")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, fmt.Errorf("claims of unauthorized type")
	}

	return claims, nil
}
