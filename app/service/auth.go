package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/evolin-labs/auth-service/app/dto"
	"github.com/evolin-labs/auth-service/app/entity"
	"github.com/evolin-labs/auth-service/app/repository"
	"github.com/evolin-labs/auth-service/app/security"
	"github.com/evolin-labs/auth-service/config"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

var (
	ErrUserExists = errors.New("user already exists")

	// ErrInvalidCredentials covers both an unknown email and a wrong
	// password. Callers must not split the two: distinguishing them would
	// let a client enumerate registered addresses.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrInvalidToken unifies malformed, expired, wrong-kind, and
	// vanished-subject failures at the caller-visible layer.
	ErrInvalidToken = errors.New("invalid or expired token")

	ErrWeakPassword = errors.New("password does not meet policy requirements")
)

type userRepository interface {
	FindByEmail(ctx context.Context, email string) (*entity.User, error)
	FindByID(ctx context.Context, id string) (*entity.User, error)
}

type AuthService struct {
	db       *sql.DB
	userRepo userRepository
	hasher   *security.PasswordHasher
	tokens   *security.TokenCodec
	cfg      *config.Config
}

func NewAuthService(
	db *sql.DB,
	userRepo userRepository,
	hasher *security.PasswordHasher,
	tokens *security.TokenCodec,
	cfg *config.Config,
) *AuthService {
	return &AuthService{
		db:       db,
		userRepo: userRepo,
		hasher:   hasher,
		tokens:   tokens,
		cfg:      cfg,
	}
}

// Register creates a user with a freshly salted hash. Uniqueness of the email
// is enforced by the storage engine inside the transaction, never by a prior
// read: two concurrent registrations for the same address race on the unique
// index and exactly one wins.
func (s *AuthService) Register(ctx context.Context, email, password string) (*entity.User, error) {
	if err := s.cfg.ValidatePassword(password); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrWeakPassword, err.Error())
	}

	passwordHash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	user := &entity.User{
		ID:           uuid.New().String(),
		Email:        email,
		PasswordHash: passwordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", repository.ErrStorageUnavailable, err)
	}
	defer tx.Rollback()

	txUserRepo := repository.NewUserRepository(tx)
	if err = txUserRepo.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return nil, ErrUserExists
		}
		return nil, err
	}

	if err = tx.Commit(); err != nil {
		return nil, err
	}

	return user, nil
}

// Login verifies credentials and issues an access+refresh token pair. An
// unknown email and a wrong password produce the identical failure.
func (s *AuthService) Login(ctx context.Context, email, password string) (*dto.LoginResult, error) {
	user, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrInvalidCredentials
	}

	if !s.hasher.Verify(password, user.PasswordHash) {
		return nil, ErrInvalidCredentials
	}

	accessToken, refreshToken, err := s.issueTokenPair(user)
	if err != nil {
		return nil, err
	}

	return &dto.LoginResult{
		User:         user,
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    int64(s.tokens.TTL(security.TokenKindAccess).Seconds()),
	}, nil
}

// CurrentUser resolves an access token to its subject. When the subject row
// no longer exists the token is treated as invalid, not as a missing
// resource: tokens outlive deleted accounts only until expiry and resolution
// fails closed.
func (s *AuthService) CurrentUser(ctx context.Context, accessToken string) (*entity.User, error) {
	claims, err := s.tokens.Verify(accessToken, security.TokenKindAccess)
	if err != nil {
		logrus.WithError(err).Debug("Access token rejected")
		return nil, ErrInvalidToken
	}

	user, err := s.userRepo.FindByID(ctx, claims.UserID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		logrus.WithField("user_id", claims.UserID).Debug("Access token subject no longer exists")
		return nil, ErrInvalidToken
	}

	return user, nil
}

// Refresh exchanges a refresh token for a new token pair. The subject is
// re-resolved so a deleted account cannot mint fresh credentials.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*dto.RefreshResult, error) {
	claims, err := s.tokens.Verify(refreshToken, security.TokenKindRefresh)
	if err != nil {
		logrus.WithError(err).Debug("Refresh token rejected")
		return nil, ErrInvalidToken
	}

	user, err := s.userRepo.FindByID(ctx, claims.UserID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		logrus.WithField("user_id", claims.UserID).Debug("Refresh token subject no longer exists")
		return nil, ErrInvalidToken
	}

	newAccessToken, newRefreshToken, err := s.issueTokenPair(user)
	if err != nil {
		return nil, err
	}

	return &dto.RefreshResult{
		User:         user,
		AccessToken:  newAccessToken,
		RefreshToken: newRefreshToken,
		ExpiresIn:    int64(s.tokens.TTL(security.TokenKindAccess).Seconds()),
	}, nil
}

// Logout changes no server-side state: tokens are stateless and there is no
// revocation list, so ending a session means the transport clears the
// client's credential artifacts and nothing else.
func (s *AuthService) Logout() {}

func (s *AuthService) issueTokenPair(user *entity.User) (accessToken, refreshToken string, err error) {
	accessToken, err = s.tokens.Issue(user.ID, user.Email, security.TokenKindAccess)
	if err != nil {
		return "", "", err
	}
	refreshToken, err = s.tokens.Issue(user.ID, user.Email, security.TokenKindRefresh)
	if err != nil {
		return "", "", err
	}
	return accessToken, refreshToken, nil
}
