package mtproto

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/gotd/td/session"
	"github.com/gotd/td/tgerr"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestFileSessionStorageRoundTrip(t *testing.T) {
	dir := t.TempDir()
	storage, err := NewFileSessionStorage(filepath.Join(dir, "sessions"))
	require.NoError(t, err)

	ctx := context.Background()

	// Fresh storage reports no session
	_, err = storage.LoadSession(ctx)
	require.ErrorIs(t, err, session.ErrNotFound)
	require.False(t, storage.SessionExists())

	require.NoError(t, storage.StoreSession(ctx, []byte(`{"auth":"data"}`)))
	require.True(t, storage.SessionExists())

	data, err := storage.LoadSession(ctx)
	require.NoError(t, err)
	require.Equal(t, []byte(`{"auth":"data"}`), data)
}

func TestFileSessionStorageDelete(t *testing.T) {
	storage, err := NewFileSessionStorage(t.TempDir())
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, storage.StoreSession(ctx, []byte("s")))
	require.NoError(t, storage.DeleteSession())
	require.False(t, storage.SessionExists())

	// Deleting a missing session is not an error
	require.NoError(t, storage.DeleteSession())
}

func TestDropStaleSessionOnRevokedAuth(t *testing.T) {
	storage, err := NewFileSessionStorage(t.TempDir())
	require.NoError(t, err)

	ctx := context.Background()
	u := &Uploader{sessionStorage: storage, logger: zerolog.Nop()}

	require.NoError(t, storage.StoreSession(ctx, []byte("s")))
	u.dropStaleSession(tgerr.New(401, "SESSION_REVOKED"))
	require.False(t, storage.SessionExists())

	// A transport failure must not wipe a valid session
	require.NoError(t, storage.StoreSession(ctx, []byte("s")))
	u.dropStaleSession(errors.New("connection reset"))
	require.True(t, storage.SessionExists())
}

func TestUploaderDisabledWithoutCredentials(t *testing.T) {
	u := &Uploader{}
	require.False(t, u.Enabled())

	_, err := u.Acquire(context.Background())
	require.Error(t, err)
}
