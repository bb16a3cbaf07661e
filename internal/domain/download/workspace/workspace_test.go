package workspace

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCreateNestsUnderChatID(t *testing.T) {
	base := t.TempDir()

	dir, err := Create(base, 123)
	require.NoError(t, err)

	require.DirExists(t, dir)
	require.Equal(t, "123", filepath.Base(filepath.Dir(dir)))
}

func TestCreateNeverCollides(t *testing.T) {
	base := t.TempDir()

	first, err := Create(base, 42)
	require.NoError(t, err)
	second, err := Create(base, 42)
	require.NoError(t, err)

	require.NotEqual(t, first, second)
}

func TestDestroyRemovesEverything(t *testing.T) {
	base := t.TempDir()

	dir, err := Create(base, 7)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.bin"), []byte("x"), 0o644))

	Destroy(dir)

	require.NoDirExists(t, dir)
}

func TestDestroyTwiceIsANoOp(t *testing.T) {
	base := t.TempDir()

	dir, err := Create(base, 7)
	require.NoError(t, err)

	Destroy(dir)
	require.NotPanics(t, func() { Destroy(dir) })
	require.NotPanics(t, func() { Destroy("") })
}
