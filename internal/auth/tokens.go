package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Token types carried in the token_type claim. Access and refresh tokens
// are never interchangeable; Parse fails closed on a mismatch.
const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

var (
	// ErrInvalidToken covers malformed tokens, bad signatures, wrong
	// signing algorithms, and wrong-type presentation.
	ErrInvalidToken = errors.New("invalid token")
	// ErrExpiredToken is distinct so clients know refresh is a reasonable
	// next step rather than full re-authentication.
	ErrExpiredToken = errors.New("token has expired")
)

// Claims is the signed token payload. Field names are part of the wire
// contract with existing clients.
type Claims struct {
	jwt.RegisteredClaims
	SubjectID string `json:"sub_id"`
	SessionID string `json:"sid"`
	TokenType string `json:"token_type"`
}

// TokenService mints and parses HS256-signed JWTs.
type TokenService struct {
	secret []byte
}

func NewTokenService(secret []byte) *TokenService {
	return &TokenService{secret: secret}
}

// Issue signs a token of the given type for the user. Access and refresh
// tokens minted for one login must share sessionID.
func (s *TokenService) Issue(username, userID, sessionID, tokenType string, ttl time.Duration) (string, error) {
	now := time.Now().UTC()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   username,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		SubjectID: userID,
		SessionID: sessionID,
		TokenType: tokenType,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// Parse validates tokenString and requires its token_type claim to equal
// expectedType. Expiry is boundary-inclusive: a token whose exp equals the
// current instant is already expired. All failures other than expiry
// collapse to ErrInvalidToken.
func (s *TokenService) Parse(tokenString, expectedType string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.TokenType != expectedType {
		return nil, ErrInvalidToken
	}
	if claims.Subject == "" || claims.SubjectID == "" {
		return nil, ErrInvalidToken
	}

	return claims, nil
}

// Decode parses tokenString without enforcing validity. It is used by the
// logging middleware to recover the session id from stale tokens; callers
// must never trust the result for authorization.
func (s *TokenService) Decode(tokenString string) *Claims {
	claims := &Claims{}
	parser := jwt.NewParser(jwt.WithoutClaimsValidation(), jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if _, err := parser.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return s.secret, nil
	}); err != nil {
		return nil
	}
	return claims
}
