package steps

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/carepay/onboarding/storage"
)

const (
	coreURL       = "https://backend.carepay.money"
	enrichmentURL = "https://oculon.carepay.money"
)

func testSessions(t *testing.T) (*storage.SessionStore, string) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := storage.NewSessionStore(client)

	sessionID, err := store.Create(context.Background())
	require.NoError(t, err)
	return store, sessionID
}

func verifiedSession(t *testing.T, subjectID, phone string) (*storage.SessionStore, string) {
	t.Helper()
	store, sessionID := testSessions(t)
	ctx := context.Background()
	require.NoError(t, store.SetSubjectID(ctx, sessionID, subjectID))
	require.NoError(t, store.SetSavedPhone(ctx, sessionID, phone))
	return store, sessionID
}
