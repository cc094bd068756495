package auth

import (
	"errors"
	"sync"
	"time"

	"capacity-planner-api/internal/config"

	"github.com/golang-jwt/jwt/v5"
)

var (
	mu       sync.RWMutex
	settings = config.Default().Auth
)

// Configure replaces the signing parameters. It is called once at startup;
// until then the development defaults apply.
func Configure(cfg config.AuthConfig) {
	mu.Lock()
	defer mu.Unlock()
	settings = cfg
}

func current() config.AuthConfig {
	mu.RLock()
	defer mu.RUnlock()
	return settings
}

// Claims represents the JWT claims. EmployeeID is empty for principals not
// linked to an employee record.
type Claims struct {
	UserID     string `json:"user_id"`
	Username   string `json:"username"`
	EmployeeID string `json:"employee_id,omitempty"`
	jwt.RegisteredClaims
}

// GenerateToken generates a JWT token for the given user
func GenerateToken(userID, username, employeeID string) (string, error) {
	cfg := current()
	now := time.Now()
	claims := Claims{
		UserID:     userID,
		Username:   username,
		EmployeeID: employeeID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(cfg.TokenTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    cfg.Issuer,
			Audience:  jwt.ClaimStrings{cfg.Audience},
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(cfg.JWTSecret))
	if err != nil {
		return "", err
	}

	return tokenString, nil
}

// ValidateToken validates a JWT token and returns the claims
func ValidateToken(tokenString string) (*Claims, error) {
	cfg := current()
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		return []byte(cfg.JWTSecret), nil
	},
		jwt.WithIssuer(cfg.Issuer),
		jwt.WithAudience(cfg.Audience),
	)
	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*Claims); ok && token.Valid {
		return claims, nil
	}

	return nil, errors.New("invalid token")
}
