package avatars

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// maxAvatarBytes caps a single download; provider avatars are small images.
const maxAvatarBytes = 5 << 20

// FileStore downloads provider profile pictures into a local directory.
// Callers treat every error as non-fatal.
type FileStore struct {
	dir        string
	httpClient *http.Client
}

func NewFileStore(dir string) *FileStore {
	return &FileStore{
		dir: dir,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// Download fetches url and stores the bytes, returning the stored avatar id.
// The id doubles as the filename under the store directory.
func (s *FileStore) Download(ctx context.Context, userID, url string) (string, error) {
	if url == "" {
		return "", fmt.Errorf("avatar: empty url")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("avatar: build request: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("avatar: fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("avatar: fetch: status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxAvatarBytes+1))
	if err != nil {
		return "", fmt.Errorf("avatar: read body: %w", err)
	}
	if len(body) == 0 {
		return "", fmt.Errorf("avatar: empty body")
	}
	if len(body) > maxAvatarBytes {
		return "", fmt.Errorf("avatar: larger than %d bytes", maxAvatarBytes)
	}

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("avatar: ensure dir: %w", err)
	}

	avatarID := uuid.NewString() + extFromContentType(resp.Header.Get("Content-Type"))
	if err := os.WriteFile(filepath.Join(s.dir, avatarID), body, 0o644); err != nil {
		return "", fmt.Errorf("avatar: write file: %w", err)
	}

	return avatarID, nil
}

// Remove deletes a stored avatar. Missing files are not an error.
func (s *FileStore) Remove(avatarID string) error {
	if avatarID == "" || avatarID != filepath.Base(avatarID) {
		return fmt.Errorf("avatar: bad id %q", avatarID)
	}
	err := os.Remove(filepath.Join(s.dir, avatarID))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("avatar: remove: %w", err)
	}
	return nil
}

func extFromContentType(ct string) string {
	ct = strings.ToLower(strings.TrimSpace(ct))
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = strings.TrimSpace(ct[:i])
	}
	switch ct {
	case "image/png":
		return ".png"
	case "image/gif":
		return ".gif"
	case "image/webp":
		return ".webp"
	default:
		// providers overwhelmingly serve jpeg
		return ".jpg"
	}
}
