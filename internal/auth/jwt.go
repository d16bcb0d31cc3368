package auth

import (
	"errors"
	"time"

	"voteflow-backend/internal/config"
	"voteflow-backend/internal/models"
	"voteflow-backend/internal/timeutil"

	"github.com/golang-jwt/jwt/v5"
)

const (
	sessionTTL = 24 * time.Hour
	pendingTTL = 5 * time.Minute

	typeSession    = "session"
	type2FAPending = "2fa_pending"
)

// Claims identify a browser session. The upstream API token itself stays
// server side, keyed by SessionID.
type Claims struct {
	SessionID string      `json:"sid"`
	UserID    string      `json:"user_id"`
	Email     string      `json:"email"`
	Role      models.Role `json:"role"`
	Type      string      `json:"typ"`
	jwt.RegisteredClaims
}

type JWTManager struct {
	secret []byte
	issuer string
}

func NewJWTManager(cfg *config.Config) *JWTManager {
	return &JWTManager{secret: []byte(cfg.JWT.Secret), issuer: cfg.JWT.Issuer}
}

// GenerateToken issues the session token handed to the SPA after login.
func (j *JWTManager) GenerateToken(sessionID string, user *models.User) (string, error) {
	return j.sign(sessionID, user, typeSession, sessionTTL)
}

// GenerateTempToken issues a short-lived token for the second login step
// when the account has two-factor enabled.
func (j *JWTManager) GenerateTempToken(sessionID string, user *models.User) (string, error) {
	return j.sign(sessionID, user, type2FAPending, pendingTTL)
}

func (j *JWTManager) sign(sessionID string, user *models.User, typ string, ttl time.Duration) (string, error) {
	now := timeutil.Now()
	claims := &Claims{
		SessionID: sessionID,
		Type:      typ,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    j.issuer,
		},
	}
	if user != nil {
		claims.UserID = user.ID
		claims.Email = user.Email
		claims.Role = user.Role
		claims.Subject = user.ID
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(j.secret)
}

// ValidateToken verifies a session token and returns its claims.
func (j *JWTManager) ValidateToken(tokenString string) (*Claims, error) {
	return j.parse(tokenString, typeSession)
}

// ValidateTempToken verifies a pending two-factor token.
func (j *JWTManager) ValidateTempToken(tokenString string) (*Claims, error) {
	return j.parse(tokenString, type2FAPending)
}

func (j *JWTManager) parse(tokenString, typ string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		return j.secret, nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, errors.New("invalid token")
	}
	if claims.Type != typ {
		return nil, errors.New("invalid token type")
	}
	if claims.SessionID == "" {
		return nil, errors.New("token carries no session")
	}
	return claims, nil
}
