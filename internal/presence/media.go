package presence

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
)

// MediaStore keeps AFK photos on local disk, one file per user.
type MediaStore struct {
	dir string
}

// NewMediaStore creates the directory if needed.
func NewMediaStore(dir string) (*MediaStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create media dir %s: %w", dir, err)
	}
	return &MediaStore{dir: dir}, nil
}

// Path returns where the user's AFK photo lives.
func (m *MediaStore) Path(userID int64) string {
	return filepath.Join(m.dir, strconv.FormatInt(userID, 10)+".jpg")
}

// Exists reports whether a photo is stored for the user.
func (m *MediaStore) Exists(userID int64) bool {
	_, err := os.Stat(m.Path(userID))
	return err == nil
}

// Save writes r to the user's photo path, replacing any previous photo.
// The file is written to a temp name first so readers never see a partial image.
func (m *MediaStore) Save(userID int64, r io.Reader) error {
	tmp, err := os.CreateTemp(m.dir, "upload-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		return fmt.Errorf("write photo: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close photo: %w", err)
	}
	if err := os.Rename(tmp.Name(), m.Path(userID)); err != nil {
		return fmt.Errorf("store photo: %w", err)
	}
	return nil
}

// Open returns the stored photo for reading.
func (m *MediaStore) Open(userID int64) (*os.File, error) {
	return os.Open(m.Path(userID))
}
