package services

import (
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"ytmanager-backend-go/internal/models"
)

const (
	tokenTypeAccess  = "access"
	tokenTypeRefresh = "refresh"
)

type TokenPair struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    int64
}

// Session is the identity carried by a verified access token.
type Session struct {
	StaffID string
	Email   string
	Role    string
}

type TokenService struct {
	Secret     []byte
	Issuer     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	// Hasher is the argon2id cost for new hashes; zero means DefaultHasher.
	Hasher PasswordHasher
}

func (t TokenService) HashPassword(raw string) (string, error) {
	return t.hasher().Hash(raw)
}

// VerifyPassword accepts argon2id hashes and legacy bcrypt hashes.
func (t TokenService) VerifyPassword(raw, hashed string) bool {
	if strings.HasPrefix(hashed, argon2Prefix) {
		return t.hasher().Verify(raw, hashed)
	}
	return bcrypt.CompareHashAndPassword([]byte(hashed), []byte(raw)) == nil
}

func (t TokenService) hasher() PasswordHasher {
	if t.Hasher.Memory == 0 {
		return DefaultHasher
	}
	return t.Hasher
}

// IssuePair signs a fresh access/refresh pair for a staff member.
func (t TokenService) IssuePair(member models.StaffMember) (TokenPair, error) {
	access, exp, err := t.CreateAccessToken(member.ID, member.Email, member.Role)
	if err != nil {
		return TokenPair{}, err
	}
	refresh, err := t.CreateRefreshToken(member.ID)
	if err != nil {
		return TokenPair{}, err
	}
	return TokenPair{AccessToken: access, RefreshToken: refresh, ExpiresAt: exp}, nil
}

func (t TokenService) CreateAccessToken(staffID, email, role string) (string, int64, error) {
	now := time.Now().UTC()
	exp := now.Add(t.AccessTTL)
	claims := jwt.MapClaims{
		"iss":   t.Issuer,
		"sub":   staffID,
		"typ":   tokenTypeAccess,
		"email": email,
		"role":  role,
		"iat":   now.Unix(),
		"exp":   exp.Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(t.Secret)
	return signed, exp.Unix(), err
}

func (t TokenService) CreateRefreshToken(staffID string) (string, error) {
	now := time.Now().UTC()
	claims := jwt.MapClaims{
		"iss": t.Issuer,
		"sub": staffID,
		"typ": tokenTypeRefresh,
		"iat": now.Unix(),
		"exp": now.Add(t.RefreshTTL).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(t.Secret)
}

func (t TokenService) ParseToken(tokenStr string) (*jwt.Token, jwt.MapClaims, error) {
	claims := jwt.MapClaims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		return t.Secret, nil
	}, jwt.WithIssuer(t.Issuer), jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	return token, claims, err
}

// ParseAccess verifies an access token and returns its session.
func (t TokenService) ParseAccess(tokenStr string) (Session, error) {
	return t.parseTyped(tokenStr, tokenTypeAccess)
}

// ParseRefresh verifies a refresh token; only StaffID is populated.
func (t TokenService) ParseRefresh(tokenStr string) (Session, error) {
	return t.parseTyped(tokenStr, tokenTypeRefresh)
}

func (t TokenService) parseTyped(tokenStr, typ string) (Session, error) {
	token, claims, err := t.ParseToken(tokenStr)
	if err != nil || !token.Valid || claims["typ"] != typ {
		return Session{}, ErrUnauthorized("Authentication failed")
	}
	session := Session{}
	session.StaffID, _ = claims["sub"].(string)
	session.Email, _ = claims["email"].(string)
	session.Role, _ = claims["role"].(string)
	if session.StaffID == "" {
		return Session{}, ErrUnauthorized("Authentication failed")
	}
	return session, nil
}
