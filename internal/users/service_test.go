package users

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/golang-jwt/jwt/v4"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dyluth/warren/pkg/board"
)

func setupService(t *testing.T) *Service {
	mr := miniredis.NewMiniRedis()
	require.NoError(t, mr.Start())
	t.Cleanup(mr.Close)

	client, err := board.NewClient(&redis.Options{Addr: mr.Addr()}, "test-board")
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })

	return NewService(client, []byte("test-signing-key"), time.Hour)
}

func TestRegister(t *testing.T) {
	svc := setupService(t)
	ctx := context.Background()

	t.Run("creates account with hashed password", func(t *testing.T) {
		user, err := svc.Register(ctx, "abc@gmail.com", "secret123")
		require.NoError(t, err)
		assert.NotEmpty(t, user.ID)
		assert.NotEqual(t, "secret123", user.PasswordHash)
		assert.NotEmpty(t, user.PasswordHash)
	})

	t.Run("rejects duplicate email case-insensitively", func(t *testing.T) {
		_, err := svc.Register(ctx, "ABC@gmail.com", "another")
		assert.ErrorIs(t, err, ErrEmailTaken)
	})

	t.Run("rejects malformed input", func(t *testing.T) {
		_, err := svc.Register(ctx, "not-an-email", "secret123")
		assert.Error(t, err)

		_, err = svc.Register(ctx, "new@gmail.com", "")
		assert.Error(t, err)
	})
}

func TestLogin(t *testing.T) {
	svc := setupService(t)
	ctx := context.Background()

	registered, err := svc.Register(ctx, "xyz@gmail.com", "correct-horse")
	require.NoError(t, err)

	t.Run("valid credentials issue a token for the user", func(t *testing.T) {
		token, user, err := svc.Login(ctx, "xyz@gmail.com", "correct-horse")
		require.NoError(t, err)
		assert.Equal(t, registered.ID, user.ID)

		subject, err := svc.Authenticate(token)
		require.NoError(t, err)
		assert.Equal(t, registered.ID, subject)
	})

	t.Run("wrong password", func(t *testing.T) {
		_, _, err := svc.Login(ctx, "xyz@gmail.com", "wrong")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("unknown email", func(t *testing.T) {
		_, _, err := svc.Login(ctx, "nobody@gmail.com", "whatever")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})
}

func TestAuthenticate(t *testing.T) {
	svc := setupService(t)

	t.Run("rejects garbage", func(t *testing.T) {
		_, err := svc.Authenticate("not.a.token")
		assert.Error(t, err)
	})

	t.Run("rejects a token signed with a different key", func(t *testing.T) {
		claims := jwt.RegisteredClaims{
			Subject:   "someone",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		}
		forged, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("other-key"))
		require.NoError(t, err)

		_, err = svc.Authenticate(forged)
		assert.Error(t, err)
	})

	t.Run("rejects an expired token", func(t *testing.T) {
		claims := jwt.RegisteredClaims{
			Subject:   "someone",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		}
		expired, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-signing-key"))
		require.NoError(t, err)

		_, err = svc.Authenticate(expired)
		assert.Error(t, err)
	})
}
