package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/shoplite/authcore/internal/models"
	"github.com/shoplite/authcore/internal/storage"
)

var (
	// ErrInvalidCredentials never reveals whether the email exists.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrUnauthorized covers missing, malformed, expired and unverifiable
	// refresh secrets. No session state is mutated on this path.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrReuseDetected means a refresh secret was presented after it was
	// superseded, or named a record it cannot match. By the time the caller
	// sees this error every session of the affected user has been revoked.
	ErrReuseDetected = errors.New("refresh secret reuse detected")
)

// AuthService is the rotation engine. Each session record moves through a
// single transition, active to revoked, and the storage layer's conditional
// revoke decides the winner when rotations race; the engine holds no locks of
// its own because several instances may share one store.
type AuthService struct {
	tokens  *TokenService
	storage storage.Storage
	webhook *WebhookService
	log     *zap.SugaredLogger
}

func NewAuthService(tokens *TokenService, st storage.Storage, webhook *WebhookService, log *zap.SugaredLogger) *AuthService {
	return &AuthService{
		tokens:  tokens,
		storage: st,
		webhook: webhook,
		log:     log,
	}
}

func (s *AuthService) Register(ctx context.Context, req models.RegisterRequest) (*models.User, *models.TokenPair, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, nil, fmt.Errorf("hash password: %w", err)
	}

	user, err := s.storage.CreateUser(ctx, models.User{
		ID:           uuid.NewString(),
		Email:        req.Email,
		Name:         req.Name,
		PasswordHash: string(hash),
		CreatedAt:    time.Now().UTC(),
	})
	if err != nil {
		return nil, nil, err
	}

	pair, err := s.loginFlow(ctx, user, req.Device)
	if err != nil {
		return nil, nil, err
	}
	return user, pair, nil
}

// VerifyCredentials returns ErrInvalidCredentials for both an unknown email
// and a wrong password.
func (s *AuthService) VerifyCredentials(ctx context.Context, email, password string) (*models.User, error) {
	user, err := s.storage.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("get user by email: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

func (s *AuthService) Login(ctx context.Context, req models.LoginRequest) (*models.User, *models.TokenPair, error) {
	user, err := s.VerifyCredentials(ctx, req.Email, req.Password)
	if err != nil {
		return nil, nil, err
	}

	pair, err := s.loginFlow(ctx, user, req.Device)
	if err != nil {
		return nil, nil, err
	}
	return user, pair, nil
}

// loginFlow mints a token pair anchored on a fresh session record. The record
// insert is the last step: when it fails the computed tokens are discarded and
// the caller gets nothing, so no secret circulates without its record.
func (s *AuthService) loginFlow(ctx context.Context, user *models.User, device string) (*models.TokenPair, error) {
	now := time.Now().UTC()
	recordID := uuid.NewString()

	accessToken, err := s.tokens.CreateAccessToken(user.ID, user.Email, now)
	if err != nil {
		return nil, fmt.Errorf("create access token: %w", err)
	}

	refreshSecret, err := s.tokens.CreateRefreshSecret(user.ID, user.Email, recordID, now)
	if err != nil {
		return nil, fmt.Errorf("create refresh secret: %w", err)
	}

	record := models.SessionRecord{
		ID:         recordID,
		UserID:     user.ID,
		SecretHash: HashSecret(refreshSecret),
		Device:     device,
		Revoked:    false,
		ExpiresAt:  now.Add(s.tokens.RefreshTTL()),
		CreatedAt:  now,
	}
	if err := s.storage.InsertSession(ctx, record); err != nil {
		return nil, fmt.Errorf("insert session record: %w", err)
	}

	return &models.TokenPair{AccessToken: accessToken, RefreshSecret: refreshSecret}, nil
}

// Rotate exchanges a still-valid refresh secret for a fresh pair, revoking the
// presented secret's record. Any presentation that cannot match a live record
// with the right hash is treated as replay evidence: the whole session family
// of the user is torn down before the error is returned.
func (s *AuthService) Rotate(ctx context.Context, presentedSecret string) (*models.TokenPair, error) {
	claims, err := s.tokens.VerifyRefreshSecret(presentedSecret)
	if err != nil {
		// Bad signature and past expiry look identical to the caller and
		// cause no session mutation.
		return nil, fmt.Errorf("%w: %w", ErrUnauthorized, err)
	}

	record, err := s.storage.GetSessionByID(ctx, claims.SessionID)
	if err != nil {
		if errors.Is(err, storage.ErrSessionNotFound) {
			return nil, s.reuseDetected(ctx, claims.UserID, claims.SessionID, "record missing")
		}
		return nil, fmt.Errorf("get session record: %w", err)
	}

	if record.Expired(time.Now().UTC()) {
		return nil, fmt.Errorf("%w: session record expired", ErrUnauthorized)
	}

	if record.Revoked || !SecretHashMatches(presentedSecret, record.SecretHash) {
		// A live record that does not match its secret cannot occur under
		// correct operation; a revoked one means the secret was superseded.
		return nil, s.reuseDetected(ctx, claims.UserID, claims.SessionID, "revoked or mismatched record")
	}

	flipped, err := s.storage.ConditionalRevoke(ctx, record.ID)
	if err != nil {
		return nil, fmt.Errorf("revoke session record: %w", err)
	}
	if !flipped {
		// A concurrent caller rotated the same secret first. Two bearers of
		// one secret is itself a replay signature.
		return nil, s.reuseDetected(ctx, claims.UserID, claims.SessionID, "lost rotation race")
	}

	user, err := s.storage.GetUserByID(ctx, record.UserID)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			s.log.Warnw("session owner vanished during rotation", "userID", record.UserID, "recordID", record.ID)
			if revokeErr := s.storage.RevokeAllForUser(ctx, record.UserID); revokeErr != nil {
				return nil, fmt.Errorf("revoke sessions of vanished user: %w", revokeErr)
			}
			return nil, fmt.Errorf("%w: session owner not found", ErrUnauthorized)
		}
		return nil, fmt.Errorf("get session owner: %w", err)
	}

	pair, err := s.loginFlow(ctx, user, record.Device)
	if err != nil {
		// The old record is already revoked; failing closed here only forces
		// a re-login.
		return nil, err
	}

	s.log.Infow("refresh secret rotated",
		"userID", user.ID, "oldRecordID", record.ID, "cause", models.CauseRotatedAway)
	return pair, nil
}

// RevokeAll terminates every session of a user. Revoking an already revoked
// record is a no-op, so the call is idempotent.
func (s *AuthService) RevokeAll(ctx context.Context, userID string) error {
	if err := s.storage.RevokeAllForUser(ctx, userID); err != nil {
		return fmt.Errorf("revoke all sessions: %w", err)
	}
	return nil
}

// Logout revokes every session of the user and denylists the presented access
// token for its remaining lifetime. Single-device logout does not exist: the
// logout surface is deliberately all-or-nothing.
func (s *AuthService) Logout(ctx context.Context, userID, accessToken string) error {
	if err := s.RevokeAll(ctx, userID); err != nil {
		return err
	}
	if accessToken != "" {
		if err := s.tokens.InvalidateAccessToken(ctx, accessToken); err != nil {
			return err
		}
	}
	s.log.Infow("user logged out", "userID", userID, "cause", models.CauseLoggedOut)
	return nil
}

// GetUser serves the authenticated profile endpoint.
func (s *AuthService) GetUser(ctx context.Context, userID string) (*models.User, error) {
	user, err := s.storage.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			return nil, fmt.Errorf("%w: %w", ErrUnauthorized, err)
		}
		return nil, err
	}
	return user, nil
}

// reuseDetected completes the revoke-all side effect before reporting the
// failure; the teardown is the point of detecting reuse, not cleanup. When the
// teardown itself fails the store error wins, the caller must not learn a
// security response happened that actually did not.
func (s *AuthService) reuseDetected(ctx context.Context, userID, recordID, reason string) error {
	if err := s.storage.RevokeAllForUser(ctx, userID); err != nil {
		return fmt.Errorf("revoke sessions after reuse: %w", err)
	}

	s.log.Warnw("refresh secret reuse detected, all sessions revoked",
		"userID", userID, "recordID", recordID, "reason", reason, "cause", models.CauseReuseDetected)

	if s.webhook != nil {
		s.webhook.NotifySecurityEvent(ctx, map[string]interface{}{
			"event":     "refresh_reuse_detected",
			"user_id":   userID,
			"record_id": recordID,
			"reason":    reason,
			"at":        time.Now().UTC().Format(time.RFC3339),
		})
	}

	return ErrReuseDetected
}
