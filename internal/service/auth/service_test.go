package auth

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chatlink/internal/rtdb"
	apperrors "chatlink/pkg/errors"
	"chatlink/pkg/jwt"
)

func newTestService() (*Service, *rtdb.MemoryStore) {
	store := rtdb.NewMemoryStore()
	tokens := jwt.NewManager("test-secret-key-that-is-long-enough", time.Hour)
	return NewService(store, tokens), store
}

func validSignUp() SignUpInput {
	return SignUpInput{
		Email:           "Alice@Example.com",
		Password:        "s3cret",
		ConfirmPassword: "s3cret",
		FullName:        "Alice Martin",
		Phone:           "0601020304",
	}
}

func TestSignUpCreatesProfileAndSession(t *testing.T) {
	svc, store := newTestService()
	ctx := context.Background()

	session, err := svc.SignUp(ctx, validSignUp())
	require.NoError(t, err)
	assert.Equal(t, "alice@example,com", session.UserID)
	assert.Equal(t, "Alice Martin", session.DisplayName)
	assert.NotEmpty(t, session.Token)

	raw, err := store.Get(ctx, "users/alice@example,com")
	require.NoError(t, err)
	assert.JSONEq(t, `{"fullName": "Alice Martin", "email": "Alice@Example.com", "phone": "0601020304"}`, string(raw))
}

func TestSignUpPasswordMismatch(t *testing.T) {
	svc, _ := newTestService()

	input := validSignUp()
	input.ConfirmPassword = "different"
	_, err := svc.SignUp(context.Background(), input)

	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodePasswordMatch))
}

func TestSignUpDuplicateEmail(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	_, err := svc.SignUp(ctx, validSignUp())
	require.NoError(t, err)

	// Same address with different casing is still the same account.
	input := validSignUp()
	input.Email = "ALICE@example.COM"
	_, err = svc.SignUp(ctx, input)

	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeEmailExists))
}

func TestSignUpMissingFields(t *testing.T) {
	svc, _ := newTestService()

	input := validSignUp()
	input.Email = ""
	_, err := svc.SignUp(context.Background(), input)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeMissingField))

	input = validSignUp()
	input.Password = ""
	input.ConfirmPassword = ""
	_, err = svc.SignUp(context.Background(), input)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeMissingField))
}

func TestSignInSuccess(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	_, err := svc.SignUp(ctx, validSignUp())
	require.NoError(t, err)

	session, err := svc.SignIn(ctx, "alice@example.com", "s3cret")
	require.NoError(t, err)
	assert.Equal(t, "alice@example,com", session.UserID)
	assert.Equal(t, "Alice Martin", session.DisplayName)
	assert.NotEmpty(t, session.Token)
}

func TestSignInWrongPassword(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	_, err := svc.SignUp(ctx, validSignUp())
	require.NoError(t, err)

	_, err = svc.SignIn(ctx, "alice@example.com", "wrong")
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeInvalidCreds))
}

func TestSignInUnknownAccountLooksLikeWrongPassword(t *testing.T) {
	svc, _ := newTestService()

	_, err := svc.SignIn(context.Background(), "nobody@example.com", "whatever")
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeInvalidCreds))
}

func TestSignOutFlipsPresence(t *testing.T) {
	svc, store := newTestService()
	ctx := context.Background()

	session, err := svc.SignUp(ctx, validSignUp())
	require.NoError(t, err)

	require.NoError(t, store.Update(ctx, "users/"+session.UserID, map[string]any{"active": true}))
	require.NoError(t, svc.SignOut(ctx, session))

	var profile struct {
		Active     bool  `json:"active"`
		LastOnline int64 `json:"lastOnline"`
		FullName   string `json:"fullName"`
	}
	raw, err := store.Get(ctx, "users/"+session.UserID)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, &profile))
	assert.False(t, profile.Active)
	assert.Positive(t, profile.LastOnline)
	assert.Equal(t, "Alice Martin", profile.FullName)
}

func TestSignOutWithoutSession(t *testing.T) {
	svc, _ := newTestService()

	err := svc.SignOut(context.Background(), nil)
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeNotSignedIn))
}

func TestCurrentUser(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	_, err := svc.CurrentUser(nil)
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeNotSignedIn))

	session, err := svc.SignUp(ctx, validSignUp())
	require.NoError(t, err)

	current, err := svc.CurrentUser(session)
	require.NoError(t, err)
	assert.Equal(t, session.Email, current.Email)
	assert.Equal(t, session.DisplayName, current.DisplayName)
}

func TestResume(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	created, err := svc.SignUp(ctx, validSignUp())
	require.NoError(t, err)

	resumed, err := svc.Resume(ctx, created.Token)
	require.NoError(t, err)
	assert.Equal(t, created.UserID, resumed.UserID)
	assert.Equal(t, created.Email, resumed.Email)

	_, err = svc.Resume(ctx, "not-a-token")
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeInvalidToken))
}
