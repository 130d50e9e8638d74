package service

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/shoplite/authcore/internal/util"
)

var (
	ErrTokenExpired         = errors.New("token expired")
	ErrTokenInvalid         = errors.New("token invalid")
	ErrTokenRevoked         = errors.New("token revoked")
	ErrInvalidSigningMethod = errors.New("invalid signing method")
)

// AccessDenylist holds access tokens invalidated before their natural expiry.
type AccessDenylist interface {
	InvalidateToken(ctx context.Context, token string, expiration time.Duration) error
	IsTokenInvalidated(ctx context.Context, token string) (bool, error)
}

// TokenService signs and verifies both token kinds. Access tokens are
// stateless; refresh secrets embed the session-record id ("rid") so a
// presented secret always names exactly one record. Refresh secrets are
// signed with their own key when one is configured.
type TokenService struct {
	accessKey  []byte
	refreshKey []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	denylist   AccessDenylist
}

func NewTokenService(cfg *util.TokenConfig, denylist AccessDenylist) *TokenService {
	return &TokenService{
		accessKey:  cfg.AccessSecretKey,
		refreshKey: cfg.RefreshSecretKey,
		accessTTL:  cfg.AccessTTL,
		refreshTTL: cfg.RefreshTTL,
		denylist:   denylist,
	}
}

func (ts *TokenService) AccessTTL() time.Duration  { return ts.accessTTL }
func (ts *TokenService) RefreshTTL() time.Duration { return ts.refreshTTL }

type accessClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

type refreshClaims struct {
	Email     string `json:"email"`
	SessionID string `json:"rid"`
	jwt.RegisteredClaims
}

// RefreshClaims is the verified payload of a refresh secret.
type RefreshClaims struct {
	UserID    string
	Email     string
	SessionID string
}

func (ts *TokenService) CreateAccessToken(userID, email string, now time.Time) (string, error) {
	claims := &accessClaims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ts.accessTTL)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS512, claims)
	signedToken, err := token.SignedString(ts.accessKey)
	if err != nil {
		return "", fmt.Errorf("signed string: %w", err)
	}

	return signedToken, nil
}

func (ts *TokenService) CreateRefreshSecret(userID, email, sessionID string, now time.Time) (string, error) {
	claims := &refreshClaims{
		Email:     email,
		SessionID: sessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ts.refreshTTL)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS512, claims)
	signedToken, err := token.SignedString(ts.refreshKey)
	if err != nil {
		return "", fmt.Errorf("signed string: %w", err)
	}

	return signedToken, nil
}

// VerifyRefreshSecret checks signature and expiry only; whether the named
// session record is still live is the rotation engine's concern.
func (ts *TokenService) VerifyRefreshSecret(secret string) (*RefreshClaims, error) {
	parsedToken, err := jwt.ParseWithClaims(
		secret,
		&refreshClaims{},
		func(t *jwt.Token) (interface{}, error) {
			if t.Method.Alg() != jwt.SigningMethodHS512.Alg() {
				return nil, ErrInvalidSigningMethod
			}
			return ts.refreshKey, nil
		},
		ts.parserOptions()...,
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %w", ErrTokenInvalid, err)
	}

	claims, ok := parsedToken.Claims.(*refreshClaims)
	if !ok || !parsedToken.Valid || claims.Subject == "" || claims.SessionID == "" {
		return nil, ErrTokenInvalid
	}

	return &RefreshClaims{
		UserID:    claims.Subject,
		Email:     claims.Email,
		SessionID: claims.SessionID,
	}, nil
}

// ValidateAccessToken checks the denylist before signature and expiry, so a
// logged-out token fails even while cryptographically valid.
func (ts *TokenService) ValidateAccessToken(ctx context.Context, token string) (string, error) {
	if ts.denylist != nil {
		isInvalidated, err := ts.denylist.IsTokenInvalidated(ctx, token)
		if err != nil {
			return "", fmt.Errorf("failed to check if token is invalidated: %w", err)
		}
		if isInvalidated {
			return "", ErrTokenRevoked
		}
	}

	parsedToken, err := jwt.ParseWithClaims(
		token,
		&accessClaims{},
		func(t *jwt.Token) (interface{}, error) {
			if t.Method.Alg() != jwt.SigningMethodHS512.Alg() {
				return nil, ErrInvalidSigningMethod
			}
			return ts.accessKey, nil
		},
		ts.parserOptions()...,
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", ErrTokenExpired
		}
		return "", fmt.Errorf("%w: %w", ErrTokenInvalid, err)
	}

	claims, ok := parsedToken.Claims.(*accessClaims)
	if !ok || !parsedToken.Valid || claims.Subject == "" {
		return "", ErrTokenInvalid
	}

	return claims.Subject, nil
}

// InvalidateAccessToken denylists the token for its remaining lifetime.
func (ts *TokenService) InvalidateAccessToken(ctx context.Context, accessToken string) error {
	if ts.denylist == nil {
		return nil
	}

	parsedToken, _, err := new(jwt.Parser).ParseUnverified(accessToken, &accessClaims{})
	if err != nil {
		return fmt.Errorf("%w: %w", ErrTokenInvalid, err)
	}
	claims, ok := parsedToken.Claims.(*accessClaims)
	if !ok || claims.ExpiresAt == nil {
		return ErrTokenInvalid
	}

	expiration := time.Until(claims.ExpiresAt.Time)
	if err := ts.denylist.InvalidateToken(ctx, accessToken, expiration); err != nil {
		return fmt.Errorf("invalidate token: %w", err)
	}
	return nil
}

func (ts *TokenService) parserOptions() []jwt.ParserOption {
	return []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS512.Alg()}),
		jwt.WithLeeway(util.JWTLeeway),
		jwt.WithExpirationRequired(),
	}
}

// HashSecret produces the stored one-way hash of a refresh secret. The raw
// bearer value never reaches the database.
func HashSecret(secret string) string {
	sum := sha256.Sum256([]byte(secret))
	return hex.EncodeToString(sum[:])
}

func SecretHashMatches(secret, storedHash string) bool {
	sum := sha256.Sum256([]byte(secret))
	stored, err := hex.DecodeString(storedHash)
	if err != nil {
		return false
	}
	return subtle.ConstantTimeCompare(sum[:], stored) == 1
}
