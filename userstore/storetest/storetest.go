// Package storetest is a conformance suite for authgate.UserStore
// implementations.
package storetest

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrEthical07/authgate"
)

// Factory returns an empty store for one subtest.
type Factory func(t *testing.T) authgate.UserStore

func newUser(username, email string) authgate.User {
	return authgate.User{
		Username:     username,
		Email:        email,
		PasswordHash: "$argon2id$v=19$m=8192,t=1,p=1$c2FsdA$aGFzaA",
		Role:         "user",
		Active:       true,
	}
}

// Run exercises every UserStore operation against stores built by factory.
func Run(t *testing.T, factory Factory) {
	t.Run("CreateAssignsIDAndCreatedAt", func(t *testing.T) {
		s := factory(t)
		u, err := s.Create(context.Background(), newUser("alice", "alice@example.com"))
		require.NoError(t, err)
		assert.NotEmpty(t, u.ID)
		assert.False(t, u.CreatedAt.IsZero())

		got, err := s.FindByID(context.Background(), u.ID)
		require.NoError(t, err)
		assert.Equal(t, "alice", got.Username)
		assert.Equal(t, "alice@example.com", got.Email)
		assert.Equal(t, "user", got.Role)
		assert.True(t, got.Active)
		assert.Equal(t, u.PasswordHash, got.PasswordHash)
	})

	t.Run("FindByUsername", func(t *testing.T) {
		s := factory(t)
		u, err := s.Create(context.Background(), newUser("bob", "bob@example.com"))
		require.NoError(t, err)

		got, err := s.FindByUsername(context.Background(), "bob")
		require.NoError(t, err)
		assert.Equal(t, u.ID, got.ID)

		_, err = s.FindByUsername(context.Background(), "nobody")
		assert.ErrorIs(t, err, authgate.ErrUserNotFound)
		_, err = s.FindByID(context.Background(), "missing-id")
		assert.ErrorIs(t, err, authgate.ErrUserNotFound)
	})

	t.Run("Duplicates", func(t *testing.T) {
		s := factory(t)
		ctx := context.Background()
		_, err := s.Create(ctx, newUser("carol", "carol@example.com"))
		require.NoError(t, err)

		_, err = s.Create(ctx, newUser("carol", "other@example.com"))
		assert.ErrorIs(t, err, authgate.ErrDuplicateUsername)

		_, err = s.Create(ctx, newUser("carol2", "carol@example.com"))
		assert.ErrorIs(t, err, authgate.ErrDuplicateEmail)
	})

	t.Run("ConcurrentCreateSameUsername", func(t *testing.T) {
		s := factory(t)
		const workers = 16

		var (
			wg      sync.WaitGroup
			success atomic.Int32
			dupes   atomic.Int32
		)
		wg.Add(workers)
		for i := 0; i < workers; i++ {
			go func(i int) {
				defer wg.Done()
				_, err := s.Create(context.Background(), newUser("dave", fmt.Sprintf("dave%d@example.com", i)))
				switch {
				case err == nil:
					success.Add(1)
				case assert.ErrorIs(t, err, authgate.ErrDuplicateUsername):
					dupes.Add(1)
				}
			}(i)
		}
		wg.Wait()

		assert.Equal(t, int32(1), success.Load())
		assert.Equal(t, int32(workers-1), dupes.Load())
	})

	t.Run("UpdatePasswordHash", func(t *testing.T) {
		s := factory(t)
		ctx := context.Background()
		u, err := s.Create(ctx, newUser("erin", "erin@example.com"))
		require.NoError(t, err)

		require.NoError(t, s.UpdatePasswordHash(ctx, u.ID, "new-hash"))
		got, err := s.FindByID(ctx, u.ID)
		require.NoError(t, err)
		assert.Equal(t, "new-hash", got.PasswordHash)

		assert.ErrorIs(t, s.UpdatePasswordHash(ctx, "missing-id", "x"), authgate.ErrUserNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		s := factory(t)
		ctx := context.Background()
		u, err := s.Create(ctx, newUser("frank", "frank@example.com"))
		require.NoError(t, err)

		require.NoError(t, s.Delete(ctx, u.ID))
		_, err = s.FindByID(ctx, u.ID)
		assert.ErrorIs(t, err, authgate.ErrUserNotFound)
		assert.ErrorIs(t, s.Delete(ctx, u.ID), authgate.ErrUserNotFound)

		// the username and email are free again
		_, err = s.Create(ctx, newUser("frank", "frank@example.com"))
		assert.NoError(t, err)
	})
}
