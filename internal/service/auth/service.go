package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"golang.org/x/crypto/bcrypt"

	"chatlink/internal/domain"
	"chatlink/internal/rtdb"
	apperrors "chatlink/pkg/errors"
	"chatlink/pkg/jwt"
)

// Service implements account creation, login, and logout. Credentials are
// bcrypt hashes kept at credentials/{key} in the same tree as everything
// else; sessions are signed JWTs so a client can resume without re-entering
// the password.
type Service struct {
	store  rtdb.Store
	tokens *jwt.Manager
	now    func() time.Time
}

// NewService creates an auth service.
func NewService(store rtdb.Store, tokens *jwt.Manager) *Service {
	return &Service{store: store, tokens: tokens, now: time.Now}
}

type credentialRecord struct {
	PasswordHash string `json:"passwordHash"`
	CreatedAt    int64  `json:"createdAt"`
}

// SignUpInput carries the signup form fields.
type SignUpInput struct {
	Email           string
	Password        string
	ConfirmPassword string
	FullName        string
	Phone           string
}

// SignUp creates the account and its profile record at users/{key}. The
// password/confirmation mismatch and the duplicate address are the two
// user-visible failures, mirroring the signup form's behavior.
func (s *Service) SignUp(ctx context.Context, input SignUpInput) (*domain.Session, error) {
	if input.Email == "" {
		return nil, apperrors.MissingFieldError("email")
	}
	if input.Password == "" {
		return nil, apperrors.MissingFieldError("password")
	}
	if input.Password != input.ConfirmPassword {
		return nil, apperrors.PasswordMismatchError()
	}

	key := domain.EncodeUserID(input.Email)

	existing, err := s.store.Get(ctx, "credentials/"+key)
	if err != nil {
		return nil, fmt.Errorf("failed to check account: %w", err)
	}
	if !isNull(existing) {
		return nil, apperrors.EmailExistsError()
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	cred := credentialRecord{
		PasswordHash: string(hash),
		CreatedAt:    s.now().UnixMilli(),
	}
	if err := s.store.Set(ctx, "credentials/"+key, cred); err != nil {
		return nil, fmt.Errorf("failed to store credentials: %w", err)
	}

	profile := domain.User{
		FullName: input.FullName,
		Email:    input.Email,
		Phone:    input.Phone,
	}
	if err := s.store.Set(ctx, "users/"+key, profile); err != nil {
		return nil, fmt.Errorf("failed to store profile: %w", err)
	}

	// The fresh identity is needed right away, before any later sign-in.
	return s.session(key, input.Email, input.FullName, "")
}

// SignIn verifies the password and returns a session. Wrong address and
// wrong password are indistinguishable to the caller.
func (s *Service) SignIn(ctx context.Context, email, password string) (*domain.Session, error) {
	key := domain.EncodeUserID(email)

	raw, err := s.store.Get(ctx, "credentials/"+key)
	if err != nil {
		return nil, fmt.Errorf("failed to read credentials: %w", err)
	}
	if isNull(raw) {
		return nil, apperrors.InvalidCredentialsError()
	}
	var cred credentialRecord
	if err := json.Unmarshal(raw, &cred); err != nil {
		return nil, fmt.Errorf("corrupt credential record: %w", err)
	}
	if bcrypt.CompareHashAndPassword([]byte(cred.PasswordHash), []byte(password)) != nil {
		return nil, apperrors.InvalidCredentialsError()
	}

	var profile domain.User
	if rawProfile, err := s.store.Get(ctx, "users/"+key); err == nil && !isNull(rawProfile) {
		_ = json.Unmarshal(rawProfile, &profile)
	}

	return s.session(key, email, profile.FullName, profile.ProfileImage)
}

// SignOut flips the user inactive and stamps lastOnline, then forgets the
// session. Only those two fields change.
func (s *Service) SignOut(ctx context.Context, session *domain.Session) error {
	if session == nil {
		return apperrors.NotSignedInError()
	}
	err := s.store.Update(ctx, "users/"+session.UserID, map[string]any{
		"active":     false,
		"lastOnline": s.now().UnixMilli(),
	})
	if err != nil {
		return fmt.Errorf("failed to record logout: %w", err)
	}
	return nil
}

// CurrentUser returns the signed-in identity, or an error when there is no
// session.
func (s *Service) CurrentUser(session *domain.Session) (*domain.Session, error) {
	if session == nil {
		return nil, apperrors.NotSignedInError()
	}
	return session, nil
}

// Resume rebuilds a session from a previously issued token.
func (s *Service) Resume(ctx context.Context, token string) (*domain.Session, error) {
	claims, err := s.tokens.Validate(token)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeInvalidToken, "session expired or invalid", err)
	}
	return &domain.Session{
		UserID:      claims.UserID,
		Email:       claims.Email,
		DisplayName: claims.DisplayName,
		Token:       token,
	}, nil
}

func (s *Service) session(key, email, displayName, photoURL string) (*domain.Session, error) {
	token, err := s.tokens.Generate(key, email, displayName)
	if err != nil {
		return nil, fmt.Errorf("failed to issue session token: %w", err)
	}
	return &domain.Session{
		UserID:      key,
		Email:       email,
		DisplayName: displayName,
		PhotoURL:    photoURL,
		Token:       token,
	}, nil
}

func isNull(raw json.RawMessage) bool {
	return len(raw) == 0 || bytes.Equal(raw, []byte("null"))
}
