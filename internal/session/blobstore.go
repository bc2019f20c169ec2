package session

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"syscall"

	"github.com/scraptool/corefetch/pkg/fileutil"
)

// FileBlobStore persists one immutable blob per session under
// <root>/blobs/<id>.bin. Writes go through a temp file in the same
// directory followed by an atomic rename, so a reader never observes a
// partially written blob.
type FileBlobStore struct {
	root string
}

func NewFileBlobStore(root string) (*FileBlobStore, error) {
	if err := fileutil.EnsureDir(root); err != nil {
		return nil, err
	}
	return &FileBlobStore{root: root}, nil
}

func (b *FileBlobStore) path(id string) string {
	return filepath.Join(b.root, id+".bin")
}

func (b *FileBlobStore) Put(id string, data []byte) error {
	tmp, err := os.CreateTemp(b.root, id+".*.tmp")
	if err != nil {
		return classifyWriteErr(err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return classifyWriteErr(err)
	}
	if err := tmp.Close(); err != nil {
		return classifyWriteErr(err)
	}
	if err := os.Rename(tmpPath, b.path(id)); err != nil {
		return classifyWriteErr(err)
	}
	return nil
}

func (b *FileBlobStore) Get(id string) ([]byte, error) {
	data, err := os.ReadFile(b.path(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &SessionError{Message: fmt.Sprintf("blob %s not found", id), Cause: ErrCauseNotFound}
		}
		return nil, &SessionError{Message: err.Error(), Cause: ErrCauseStorageFailure}
	}
	return data, nil
}

func (b *FileBlobStore) Delete(id string) error {
	if err := os.Remove(b.path(id)); err != nil && !os.IsNotExist(err) {
		return &SessionError{Message: err.Error(), Cause: ErrCauseStorageFailure}
	}
	return nil
}

func (b *FileBlobStore) Exists(id string) bool {
	_, err := os.Stat(b.path(id))
	return err == nil
}

func classifyWriteErr(err error) error {
	if errors.Is(err, syscall.ENOSPC) {
		return &SessionError{Message: "disk full writing blob", Cause: ErrCauseStorageFailure}
	}
	return &SessionError{Message: err.Error(), Cause: ErrCauseStorageFailure}
}
