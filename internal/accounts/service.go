package accounts

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/Abhijeet1005/SartiaProject/internal/mail"
	"github.com/Abhijeet1005/SartiaProject/internal/token"
)

// ServiceConfig carries the token lifetimes and the public base URL used in
// reset links. Handed in at construction; there is no mutable global config.
type ServiceConfig struct {
	SessionTTL time.Duration
	ResetTTL   time.Duration
	PublicURL  string
}

// Service wraps the account business rules.
type Service struct {
	repo        Repository
	codec       *token.Codec
	revocations *token.RevocationStore
	mailer      mail.Sender
	logger      *slog.Logger
	cfg         ServiceConfig
}

// NewService constructs a Service.
func NewService(repo Repository, codec *token.Codec, revocations *token.RevocationStore, mailer mail.Sender, logger *slog.Logger, cfg ServiceConfig) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, codec: codec, revocations: revocations, mailer: mailer, logger: logger, cfg: cfg}
}

// RegisterInput is the payload for Register.
type RegisterInput struct {
	FullName string
	Email    string
	Password string
	Profile  string
}

// Register creates a new member account with a hashed password.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*User, error) {
	if in.FullName == "" || in.Email == "" || in.Password == "" {
		return nil, ErrMissingFields
	}
	if !strings.Contains(in.Email, "@") {
		return nil, ErrInvalidEmail
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("accounts: hash password: %w", err)
	}

	user := &User{
		Email:        in.Email,
		PasswordHash: string(hash),
		FullName:     in.FullName,
		Profile:      in.Profile,
		Role:         RoleMember,
		IsActive:     true,
	}
	if err := s.repo.Create(ctx, user); err != nil {
		return nil, err
	}
	s.logger.Info("user registered", slog.String("email", user.Email))
	return user, nil
}

// Login checks credentials and issues a session token. Deactivated accounts
// cannot log in even with the correct password.
func (s *Service) Login(ctx context.Context, email, password string) (*User, string, error) {
	if email == "" {
		return nil, "", ErrLoginMissingEmail
	}
	user, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		return nil, "", err
	}
	if !user.IsActive {
		return nil, "", ErrInactive
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, "", ErrBadCredentials
	}

	signed, _, err := s.codec.Issue(strconv.FormatInt(user.ID, 10), user.Email, token.PurposeSession, s.cfg.SessionTTL)
	if err != nil {
		return nil, "", fmt.Errorf("accounts: issue session token: %w", err)
	}
	return user, signed, nil
}

// Logout denylists the presented session token for its remaining lifetime so
// it stops working before natural expiry.
func (s *Service) Logout(ctx context.Context, claims *token.Claims) error {
	if claims == nil {
		return nil
	}
	if err := s.revocations.Revoke(ctx, claims.ID, s.codec.Remaining(claims)); err != nil {
		return err
	}
	s.logger.Info("session revoked", slog.String("subject", claims.Subject))
	return nil
}

// ChangePassword verifies the old password before storing a new hash.
func (s *Service) ChangePassword(ctx context.Context, userID int64, oldPassword, newPassword string) error {
	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(oldPassword)); err != nil {
		return ErrBadOldPassword
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("accounts: hash password: %w", err)
	}
	return s.repo.UpdatePassword(ctx, user.ID, string(hash))
}

// ForgotPassword issues a 24h reset token and emails it as a link. The send
// is awaited; a transport failure is reported, never retried.
func (s *Service) ForgotPassword(ctx context.Context, email string) error {
	if email == "" {
		return ErrMissingEmail
	}
	user, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		return err
	}

	signed, _, err := s.codec.Issue(strconv.FormatInt(user.ID, 10), user.Email, token.PurposeReset, s.cfg.ResetTTL)
	if err != nil {
		return fmt.Errorf("accounts: issue reset token: %w", err)
	}

	link := s.cfg.PublicURL + "/api/users/new-password?token=" + signed
	body := fmt.Sprintf(`<h1>To set a new password click the link below</h1>
<p>The link is valid for %d hours.</p>
<p><a href=%q>Set a new password</a></p>`, int(s.cfg.ResetTTL.Hours()), link)

	if err := s.mailer.Send(ctx, user.Email, "Set a new password", body); err != nil {
		s.logger.Error("reset email failed", slog.String("email", user.Email), slog.Any("error", err))
		return fmt.Errorf("%w: %v", ErrEmailSend, err)
	}
	s.logger.Info("reset email sent", slog.String("email", user.Email))
	return nil
}

// ApplyNewPassword consumes a reset token and stores the new hash for the
// user the token was minted for. Each token works exactly once; replays and
// expired tokens fail the same way. The consumed mark is a reservation: if
// the password write itself fails, the reservation is released so the token
// is not burned by a transient store error.
func (s *Service) ApplyNewPassword(ctx context.Context, rawToken, newPassword string) error {
	claims, err := s.codec.Verify(rawToken, token.PurposeReset)
	if err != nil {
		return ErrInvalidOrExpiredToken
	}

	first, err := s.revocations.Consume(ctx, claims.ID, s.codec.Remaining(claims))
	if err != nil {
		return err
	}
	if !first {
		return ErrInvalidOrExpiredToken
	}

	if err := s.storeNewPassword(ctx, claims, newPassword); err != nil {
		if relErr := s.revocations.Release(ctx, claims.ID); relErr != nil {
			s.logger.Error("release reset token", slog.Any("error", relErr))
		}
		return err
	}
	return nil
}

func (s *Service) storeNewPassword(ctx context.Context, claims *token.Claims, newPassword string) error {
	userID, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil {
		return ErrInvalidOrExpiredToken
	}
	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("accounts: hash password: %w", err)
	}
	if err := s.repo.UpdatePassword(ctx, user.ID, string(hash)); err != nil {
		return err
	}
	s.logger.Info("password reset applied", slog.String("email", user.Email))
	return nil
}

// ToggleActivation flips the target's active flag and returns the updated
// record. Admin-only; the role check happens at the HTTP boundary.
func (s *Service) ToggleActivation(ctx context.Context, email string) (*User, error) {
	if email == "" {
		return nil, ErrMissingEmail
	}
	user, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if err := s.repo.SetActive(ctx, user.ID, !user.IsActive); err != nil {
		return nil, err
	}
	user.IsActive = !user.IsActive
	s.logger.Info("activation toggled", slog.String("email", user.Email), slog.Bool("active", user.IsActive))
	return user, nil
}

// ListUsers returns every account.
func (s *Service) ListUsers(ctx context.Context) ([]User, error) {
	return s.repo.List(ctx)
}

// UserByID resolves a live user record. The session middleware calls this on
// every protected request so role and activation changes apply immediately.
func (s *Service) UserByID(ctx context.Context, id int64) (*User, error) {
	return s.repo.GetByID(ctx, id)
}

// IsUnexpected reports whether err is outside the operation failure taxonomy,
// used to decide logging severity at the boundary.
func IsUnexpected(err error) bool {
	for _, known := range []error{
		ErrMissingFields, ErrInvalidEmail, ErrMissingEmail, ErrLoginMissingEmail, ErrEmailTaken,
		ErrUserNotFound, ErrInactive, ErrBadCredentials, ErrBadOldPassword, ErrInvalidOrExpiredToken,
		ErrNotAdmin, ErrMissingToken, ErrInvalidToken, ErrExpiredToken,
	} {
		if errors.Is(err, known) {
			return false
		}
	}
	return true
}
