package service

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TrishadhiWickramasinghe/SubTrack-sub005/internal/domain/auth/common"
	"github.com/TrishadhiWickramasinghe/SubTrack-sub005/internal/domain/auth/repository"
)

type stubAuthRepo struct {
	users    map[uuid.UUID]*repository.User
	sessions map[string]*repository.UserSession
}

func newStubAuthRepo() *stubAuthRepo {
	return &stubAuthRepo{
		users:    make(map[uuid.UUID]*repository.User),
		sessions: make(map[string]*repository.UserSession),
	}
}

func (s *stubAuthRepo) CreateUser(_ context.Context, email, username, hashedPassword, displayName string) (*repository.User, error) {
	for _, user := range s.users {
		if user.Email == email {
			return nil, common.ErrUserAlreadyExists
		}
	}
	user := &repository.User{
		ID:             uuid.New(),
		Email:          email,
		Username:       username,
		HashedPassword: hashedPassword,
		DisplayName:    displayName,
		IsActive:       true,
		CreatedAt:      time.Now(),
		UpdatedAt:      time.Now(),
	}
	s.users[user.ID] = user
	return user, nil
}

func (s *stubAuthRepo) GetUserByEmail(_ context.Context, email string) (*repository.User, error) {
	for _, user := range s.users {
		if user.Email == email {
			return user, nil
		}
	}
	return nil, common.ErrUserNotFound
}

func (s *stubAuthRepo) GetUserByID(_ context.Context, id uuid.UUID) (*repository.User, error) {
	if user, ok := s.users[id]; ok {
		return user, nil
	}
	return nil, common.ErrUserNotFound
}

func (s *stubAuthRepo) UpdatePassword(_ context.Context, userID uuid.UUID, hashedPassword string) error {
	user, ok := s.users[userID]
	if !ok {
		return common.ErrUserNotFound
	}
	user.HashedPassword = hashedPassword
	return nil
}

func (s *stubAuthRepo) CreateUserSession(_ context.Context, userID uuid.UUID, tokenHash, userAgent, clientIP string, expiresAt time.Time) (*repository.UserSession, error) {
	session := &repository.UserSession{
		ID:        uuid.New(),
		UserID:    userID,
		TokenHash: tokenHash,
		UserAgent: userAgent,
		ClientIP:  clientIP,
		ExpiresAt: expiresAt,
		CreatedAt: time.Now(),
	}
	s.sessions[tokenHash] = session
	return session, nil
}

func (s *stubAuthRepo) GetUserSessionByToken(_ context.Context, tokenHash string) (*repository.UserSession, error) {
	session, ok := s.sessions[tokenHash]
	if !ok || !session.ExpiresAt.After(time.Now()) {
		return nil, common.ErrSessionNotFound
	}
	return session, nil
}

func (s *stubAuthRepo) DeleteUserSession(_ context.Context, tokenHash string) error {
	if _, ok := s.sessions[tokenHash]; !ok {
		return common.ErrSessionNotFound
	}
	delete(s.sessions, tokenHash)
	return nil
}

func (s *stubAuthRepo) DeleteAllUserSessions(_ context.Context, userID uuid.UUID) error {
	for hash, session := range s.sessions {
		if session.UserID == userID {
			delete(s.sessions, hash)
		}
	}
	return nil
}

func (s *stubAuthRepo) DeleteExpiredSessions(_ context.Context) (int64, error) {
	var reaped int64
	for hash, session := range s.sessions {
		if !session.ExpiresAt.After(time.Now()) {
			delete(s.sessions, hash)
			reaped++
		}
	}
	return reaped, nil
}

type stubMailer struct {
	mu      sync.Mutex
	welcome []string
}

func (m *stubMailer) SendWelcomeEmail(email, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.welcome = append(m.welcome, email)
	return nil
}

func (m *stubMailer) welcomeCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.welcome)
}

func newTestAuthService(repo *stubAuthRepo, mailer EmailSender) *AuthService {
	tm := NewJWTTokenManager("test-secret", "", time.Minute, time.Hour)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewAuthService(repo, tm, mailer, logger, time.Hour)
}

func registerFixture(t *testing.T, svc *AuthService) *RegisterResult {
	t.Helper()
	result, err := svc.RegisterUser(context.Background(), RegisterParams{
		Email:    "Ana@Example.com",
		Username: "ana",
		Password: "sup3rsecret",
	})
	require.NoError(t, err)
	return result
}

func TestRegisterUser(t *testing.T) {
	repo := newStubAuthRepo()
	mailer := &stubMailer{}
	svc := newTestAuthService(repo, mailer)

	result := registerFixture(t, svc)

	assert.Equal(t, "ana@example.com", result.User.Email) // normalized
	assert.Equal(t, "ana", result.User.DisplayName)       // falls back to username
	assert.True(t, result.User.IsActive)
	assert.NotEmpty(t, result.Tokens.AccessToken)
	assert.NotEmpty(t, result.Tokens.RefreshToken)
	assert.Len(t, repo.sessions, 1)

	assert.Eventually(t, func() bool { return mailer.welcomeCount() == 1 },
		time.Second, 10*time.Millisecond)
}

func TestRegisterUser_DuplicateEmail(t *testing.T) {
	svc := newTestAuthService(newStubAuthRepo(), nil)
	registerFixture(t, svc)

	_, err := svc.RegisterUser(context.Background(), RegisterParams{
		Email:    "ana@example.com",
		Username: "other",
		Password: "sup3rsecret",
	})
	assert.ErrorIs(t, err, common.ErrUserAlreadyExists)
}

func TestRegisterUser_WeakPassword(t *testing.T) {
	svc := newTestAuthService(newStubAuthRepo(), nil)

	_, err := svc.RegisterUser(context.Background(), RegisterParams{
		Email:    "ana@example.com",
		Username: "ana",
		Password: "short",
	})
	assert.ErrorIs(t, err, common.ErrWeakPassword)
}

func TestLogin(t *testing.T) {
	repo := newStubAuthRepo()
	svc := newTestAuthService(repo, nil)
	registerFixture(t, svc)

	t.Run("success", func(t *testing.T) {
		result, err := svc.Login(context.Background(), LoginParams{
			Email:    "ANA@example.com",
			Password: "sup3rsecret",
		})
		require.NoError(t, err)
		assert.Equal(t, "ana@example.com", result.User.Email)
		assert.NotEmpty(t, result.Tokens.RefreshToken)
	})

	t.Run("wrong password", func(t *testing.T) {
		_, err := svc.Login(context.Background(), LoginParams{
			Email:    "ana@example.com",
			Password: "wrongpass1",
		})
		assert.ErrorIs(t, err, common.ErrInvalidCredentials)
	})

	t.Run("unknown email", func(t *testing.T) {
		_, err := svc.Login(context.Background(), LoginParams{
			Email:    "ghost@example.com",
			Password: "sup3rsecret",
		})
		assert.ErrorIs(t, err, common.ErrInvalidCredentials)
	})

	t.Run("inactive account", func(t *testing.T) {
		for _, user := range repo.users {
			user.IsActive = false
		}
		_, err := svc.Login(context.Background(), LoginParams{
			Email:    "ana@example.com",
			Password: "sup3rsecret",
		})
		assert.ErrorIs(t, err, ErrAccountInactive)
	})
}

func TestRefreshTokens_Rotation(t *testing.T) {
	repo := newStubAuthRepo()
	svc := newTestAuthService(repo, nil)
	result := registerFixture(t, svc)

	tokens, err := svc.RefreshTokens(context.Background(), RefreshTokenParams{
		RefreshToken: result.Tokens.RefreshToken,
	})
	require.NoError(t, err)
	assert.NotEqual(t, result.Tokens.RefreshToken, tokens.RefreshToken)
	assert.Len(t, repo.sessions, 1)

	// The old refresh token's session was rotated away.
	_, err = svc.RefreshTokens(context.Background(), RefreshTokenParams{
		RefreshToken: result.Tokens.RefreshToken,
	})
	assert.ErrorIs(t, err, common.ErrSessionNotFound)
}

func TestRefreshTokens_RejectsGarbage(t *testing.T) {
	svc := newTestAuthService(newStubAuthRepo(), nil)

	_, err := svc.RefreshTokens(context.Background(), RefreshTokenParams{RefreshToken: "not-a-token"})
	assert.Error(t, err)
}

func TestLogout(t *testing.T) {
	repo := newStubAuthRepo()
	svc := newTestAuthService(repo, nil)
	result := registerFixture(t, svc)

	require.NoError(t, svc.Logout(context.Background(), result.Tokens.RefreshToken))
	assert.Empty(t, repo.sessions)

	_, err := svc.RefreshTokens(context.Background(), RefreshTokenParams{
		RefreshToken: result.Tokens.RefreshToken,
	})
	assert.ErrorIs(t, err, common.ErrSessionNotFound)

	// Logging out an unknown token is not an error.
	assert.NoError(t, svc.Logout(context.Background(), result.Tokens.RefreshToken))
}

func TestChangePassword(t *testing.T) {
	repo := newStubAuthRepo()
	svc := newTestAuthService(repo, nil)
	result := registerFixture(t, svc)
	userID := result.User.ID

	t.Run("wrong current password", func(t *testing.T) {
		err := svc.ChangePassword(context.Background(), userID, "wrongpass1", "n3wpassword")
		assert.ErrorIs(t, err, common.ErrInvalidCredentials)
	})

	t.Run("weak new password", func(t *testing.T) {
		err := svc.ChangePassword(context.Background(), userID, "sup3rsecret", "short")
		assert.ErrorIs(t, err, common.ErrWeakPassword)
	})

	t.Run("success clears sessions", func(t *testing.T) {
		require.NoError(t, svc.ChangePassword(context.Background(), userID, "sup3rsecret", "n3wpassword"))
		assert.Empty(t, repo.sessions)

		_, err := svc.Login(context.Background(), LoginParams{Email: "ana@example.com", Password: "sup3rsecret"})
		assert.ErrorIs(t, err, common.ErrInvalidCredentials)

		_, err = svc.Login(context.Background(), LoginParams{Email: "ana@example.com", Password: "n3wpassword"})
		assert.NoError(t, err)
	})
}

func TestValidateAccessToken(t *testing.T) {
	svc := newTestAuthService(newStubAuthRepo(), nil)
	result := registerFixture(t, svc)

	claims, err := svc.ValidateAccessToken(context.Background(), result.Tokens.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, result.User.ID.String(), claims.UserID)

	_, err = svc.ValidateAccessToken(context.Background(), "")
	assert.Error(t, err)
}

func TestPurgeExpiredSessions(t *testing.T) {
	repo := newStubAuthRepo()
	svc := newTestAuthService(repo, nil)
	result := registerFixture(t, svc)

	// Backdate the live session.
	for _, session := range repo.sessions {
		session.ExpiresAt = time.Now().Add(-time.Minute)
	}

	reaped, err := svc.PurgeExpiredSessions(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), reaped)

	_, err = svc.RefreshTokens(context.Background(), RefreshTokenParams{
		RefreshToken: result.Tokens.RefreshToken,
	})
	assert.ErrorIs(t, err, common.ErrSessionNotFound)
}
