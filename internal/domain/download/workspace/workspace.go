// Package workspace manages isolated per-job working directories
package workspace

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// Create allocates a fresh working directory for one download job,
// nested under the chat id so concurrent chats never collide and
// repeated jobs for one chat never collide.
func Create(baseDir string, chatID int64) (string, error) {
	token := strings.ReplaceAll(uuid.New().String(), "-", "")[:12]
	dir := filepath.Join(baseDir, fmt.Sprintf("%d", chatID), token)

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create job workspace: %w", err)
	}
	return dir, nil
}

// Destroy removes the workspace recursively. Cleanup is advisory:
// partial or already-missing directories are not an error.
func Destroy(dir string) {
	if dir == "" {
		return
	}
	_ = os.RemoveAll(dir)
}
