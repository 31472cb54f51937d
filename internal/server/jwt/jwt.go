package jwt

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// issuer попадает в registered claims каждого выданного токена
const issuer = "fieldsync"

// Claims представляет содержимое device-токена: площадка, чьи данные
// токен открывает, и устройство, которому он выдан
type Claims struct {
	SiteID   string `json:"site_id"`
	DeviceID string `json:"device_id,omitempty"`
	jwt.RegisteredClaims
}

// Service выпускает и проверяет device-токены
type Service struct {
	secret   []byte
	tokenTTL time.Duration
}

// NewService creates a new JWT service
// secret should be a cryptographically secure random string
func NewService(secret string, tokenTTL time.Duration) *Service {
	return &Service{
		secret:   []byte(secret),
		tokenTTL: tokenTTL,
	}
}

// Generate выпускает токен устройства для площадки siteID.
// Возвращает подписанный токен и момент истечения.
func (s *Service) Generate(siteID, deviceID string) (string, time.Time, error) {
	if siteID == "" {
		return "", time.Time{}, fmt.Errorf("site ID cannot be empty")
	}

	now := time.Now()
	expiresAt := now.Add(s.tokenTTL)

	claims := Claims{
		SiteID:   siteID,
		DeviceID: deviceID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    issuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign token: %w", err)
	}

	return signed, expiresAt, nil
}

// Validate проверяет подпись и срок действия токена
func (s *Service) Validate(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		// Проверяем что используется правильный алгоритм подписи
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}

	if claims.SiteID == "" {
		return nil, fmt.Errorf("token carries no site ID")
	}

	return claims, nil
}
