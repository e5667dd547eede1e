package ports

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/fieldbot/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunSessionStoreContract runs a suite of tests to verify that a SessionStore implementation
// adheres to the defined interface contract.
func RunSessionStoreContract(t *testing.T, store SessionStore) {
	ctx := context.Background()
	userID := "contract-user-" + time.Now().Format("20060102150405")

	t.Run("Save and Load", func(t *testing.T) {
		session := domain.NewSession(userID, time.Now())
		session.State = domain.StateSearching
		session.Turns = 3

		err := store.Save(ctx, session)
		require.NoError(t, err, "Save should not return error")

		loaded, err := store.Load(ctx, userID)
		require.NoError(t, err, "Load should not return error")
		assert.Equal(t, userID, loaded.UserID)
		assert.Equal(t, domain.StateSearching, loaded.State)
		assert.Equal(t, 3, loaded.Turns)
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := store.Load(ctx, "non-existent-"+userID)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	})

	t.Run("Isolation", func(t *testing.T) {
		session := domain.NewSession(userID+"-iso", time.Now())
		require.NoError(t, store.Save(ctx, session))

		// Mutating the caller's copy must not leak into the store.
		session.State = domain.StateChangingDevice

		loaded, err := store.Load(ctx, userID+"-iso")
		require.NoError(t, err)
		assert.Equal(t, domain.StateIdle, loaded.State)

		loaded.State = domain.StateSearching
		again, err := store.Load(ctx, userID+"-iso")
		require.NoError(t, err)
		assert.Equal(t, domain.StateIdle, again.State)
	})

	t.Run("List", func(t *testing.T) {
		id1 := userID + "-1"
		id2 := userID + "-2"
		require.NoError(t, store.Save(ctx, domain.NewSession(id1, time.Now())))
		require.NoError(t, store.Save(ctx, domain.NewSession(id2, time.Now())))

		sessions, err := store.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, sessions, id1)
		assert.Contains(t, sessions, id2)
	})
}
