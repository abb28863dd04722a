package ports

import (
	"context"
	"testing"
	"time"

	"github.com/acquirelab/threedsflow/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func contractSession(id string) *domain.Session {
	return &domain.Session{
		ID:            id,
		OrderID:       "ORD_TEST_0000001",
		TransactionID: "TXN_TEST_0000001",
		Amount:        "99.00",
		Status:        domain.StatusReady,
		Steps: map[int]*domain.StepState{
			1: {Method: "PUT", URL: "https://gateway.test/1", Body: "{}", BodyValid: true},
			2: {Method: "PUT", URL: "https://gateway.test/2", Body: "{}", BodyValid: true},
			3: {Method: "PUT", URL: "https://gateway.test/3", Body: "{}", BodyValid: true},
		},
		CreatedAt: time.Now().UTC(),
	}
}

// RunSessionStoreContract verifies that a SessionStore implementation adheres
// to the interface contract. Every adapter's test suite runs it.
func RunSessionStoreContract(t *testing.T, store SessionStore) {
	ctx := context.Background()
	sessionID := "contract-session-" + time.Now().Format("20060102150405")

	t.Run("Save and Load", func(t *testing.T) {
		sess := contractSession(sessionID)
		sess.Log.Append(domain.LogInfo, "initialized", nil)

		require.NoError(t, store.Save(ctx, sess), "Save should not return error")

		loaded, err := store.Load(ctx, sessionID)
		require.NoError(t, err, "Load should not return error")
		assert.Equal(t, sess.OrderID, loaded.OrderID)
		assert.Equal(t, sess.Status, loaded.Status)
		assert.Equal(t, "PUT", loaded.Step(1).Method)
		require.Len(t, loaded.Log, 1)
		assert.Equal(t, domain.LogInfo, loaded.Log[0].Kind)
	})

	t.Run("Load Returns Copy", func(t *testing.T) {
		sess := contractSession(sessionID)
		require.NoError(t, store.Save(ctx, sess))

		first, err := store.Load(ctx, sessionID)
		require.NoError(t, err)
		first.Step(1).Body = `{"mutated":true}`

		second, err := store.Load(ctx, sessionID)
		require.NoError(t, err)
		assert.Equal(t, "{}", second.Step(1).Body, "mutating a loaded session must not affect the store")
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := store.Load(ctx, "non-existent-"+sessionID)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, store.Save(ctx, contractSession(sessionID)))
		require.NoError(t, store.Delete(ctx, sessionID))

		_, err := store.Load(ctx, sessionID)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound, "Load after Delete should return ErrSessionNotFound")
	})

	t.Run("List", func(t *testing.T) {
		id1 := sessionID + "-1"
		id2 := sessionID + "-2"
		require.NoError(t, store.Save(ctx, contractSession(id1)))
		require.NoError(t, store.Save(ctx, contractSession(id2)))

		defer func() {
			_ = store.Delete(ctx, id1)
			_ = store.Delete(ctx, id2)
		}()

		sessions, err := store.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, sessions, id1)
		assert.Contains(t, sessions, id2)
	})
}
