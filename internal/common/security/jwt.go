package security

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/jwtauth/v5"
	"github.com/golang-jwt/jwt/v5"
)

const (
	RoleAthlete = "athlete"
	RoleAdmin   = "admin"
)

var (
	ErrMissingClaim = errors.New("required claim is missing")
	ErrUnknownRole  = errors.New("unknown role claim")
)

// Identity is who a verified token speaks for. AthleteID is set only for RoleAthlete;
// Subject carries the admin email for RoleAdmin.
type Identity struct {
	Role      string
	AthleteID string
	Subject   string
}

func (i Identity) IsAdmin() bool   { return i.Role == RoleAdmin }
func (i Identity) IsAthlete() bool { return i.Role == RoleAthlete && i.AthleteID != "" }

// TokenIssuer signs and verifies HS256 bearer tokens.
type TokenIssuer struct {
	auth *jwtauth.JWTAuth
	now  func() time.Time
}

func NewTokenIssuer(secret []byte) *TokenIssuer {
	return &TokenIssuer{
		auth: jwtauth.New("HS256", secret, nil),
		now:  time.Now,
	}
}

// JWTAuth exposes the underlying verifier for jwtauth middleware.
func (t *TokenIssuer) JWTAuth() *jwtauth.JWTAuth { return t.auth }

func (t *TokenIssuer) GenerateToken(userID, role string, ttl time.Duration) (string, error) {
	if userID == "" {
		return "", ErrMissingClaim
	}
	if role != RoleAthlete && role != RoleAdmin {
		return "", ErrUnknownRole
	}
	now := t.now()
	claims := jwt.MapClaims{
		"user_id": userID,
		"role":    role,
		"exp":     now.Add(ttl).Unix(),
		"iat":     now.Unix(),
	}
	_, tokenString, err := t.auth.Encode(claims)
	return tokenString, err
}

// VerifyToken rejects expired, malformed and wrongly signed tokens.
func (t *TokenIssuer) VerifyToken(tokenString string) (Identity, error) {
	token, err := jwtauth.VerifyToken(t.auth, tokenString)
	if err != nil {
		return Identity{}, err
	}
	claims, err := token.AsMap(context.Background())
	if err != nil {
		return Identity{}, err
	}
	return IdentityFromClaims(claims)
}

// IdentityFromClaims turns verified claims into an Identity.
func IdentityFromClaims(claims jwt.MapClaims) (Identity, error) {
	userID, err := GetUserIDFromClaims(claims)
	if err != nil {
		return Identity{}, err
	}
	role, err := GetUserRoleFromClaims(claims)
	if err != nil {
		return Identity{}, err
	}
	switch role {
	case RoleAdmin:
		return Identity{Role: RoleAdmin, Subject: userID}, nil
	case RoleAthlete:
		return Identity{Role: RoleAthlete, AthleteID: userID, Subject: userID}, nil
	default:
		return Identity{}, ErrUnknownRole
	}
}

func GetUserIDFromClaims(claims jwt.MapClaims) (string, error) {
	id, ok := claims["user_id"].(string)
	if !ok || id == "" {
		return "", errors.New("user_id claim is missing or not a string")
	}
	return id, nil
}

func GetUserRoleFromClaims(claims jwt.MapClaims) (string, error) {
	role, ok := claims["role"].(string)
	if !ok {
		return "", errors.New("role claim is missing or not a string")
	}
	return role, nil
}

// TokenFromRawHeader reads the bare "token" header sent by the browser client.
func TokenFromRawHeader(r *http.Request) string {
	return strings.TrimSpace(r.Header.Get("token"))
}
