// Package session implements the session store: content-addressed, chunked
// storage of crawl/structure/feed results with a group-scoped ACL, composed
// from a BlobStore and a MetadataIndex capability pair.
package session

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/scraptool/corefetch/pkg/hashutil"
)

// Store is the session store. It never exposes FileBlobStore or
// FileMetadataIndex directly: every operation goes through the capability
// interfaces, so an object-storage-backed BlobStore can be substituted
// without touching this type.
type Store struct {
	blobs BlobStore
	index MetadataIndex
}

func NewStore(blobs BlobStore, index MetadataIndex) *Store {
	return &Store{blobs: blobs, index: index}
}

// Create writes content atomically and registers its metadata, returning
// the new session_id. chunk_size is clamped per ResolveChunkSize.
func (s *Store) Create(content []byte, url string, group *string, chunkSize int, contentType string) (string, *SessionError) {
	id := uuid.NewString()
	resolvedChunkSize := ResolveChunkSize(chunkSize)

	if err := s.blobs.Put(id, content); err != nil {
		if se, ok := err.(*SessionError); ok {
			return "", se
		}
		return "", &SessionError{Message: err.Error(), Cause: ErrCauseStorageFailure}
	}

	contentHash, hashErr := hashutil.HashBytes(content, hashutil.HashAlgoBLAKE3)
	if hashErr != nil {
		_ = s.blobs.Delete(id)
		return "", &SessionError{Message: hashErr.Error(), Cause: ErrCauseStorageFailure}
	}

	record := Session{
		SessionID:      id,
		URL:            url,
		Group:          group,
		CreatedAt:      time.Now().UTC(),
		ChunkSize:      resolvedChunkSize,
		TotalChunks:    TotalChunks(int64(len(content)), resolvedChunkSize),
		TotalSizeBytes: int64(len(content)),
		ContentType:    contentType,
		ContentHash:    contentHash,
	}
	if err := s.index.Upsert(id, record); err != nil {
		_ = s.blobs.Delete(id)
		if se, ok := err.(*SessionError); ok {
			return "", se
		}
		return "", &SessionError{Message: err.Error(), Cause: ErrCauseStorageFailure}
	}
	return id, nil
}

// Info returns a session's metadata, enforcing the read ACL.
func (s *Store) Info(sessionID string, requestingGroups []string) (Session, *SessionError) {
	rec, ok := s.index.Get(sessionID)
	if !ok {
		return Session{}, &SessionError{Message: "session not found", Cause: ErrCauseNotFound}
	}
	if !rec.Readable(requestingGroups) {
		return Session{}, &SessionError{Message: "caller's group does not own this session", Cause: ErrCausePermission}
	}
	return rec, nil
}

// Chunk returns the byte-bounded slice at index, per the deterministic
// boundaries implied by chunk_size.
func (s *Store) Chunk(sessionID string, index int, requestingGroups []string) ([]byte, *SessionError) {
	rec, err := s.Info(sessionID, requestingGroups)
	if err != nil {
		return nil, err
	}
	if index < 0 || index >= rec.TotalChunks {
		return nil, &SessionError{
			Message: fmt.Sprintf("chunk_index %d out of range [0, %d)", index, rec.TotalChunks),
			Cause:   ErrCauseInvalidChunk,
		}
	}
	content, getErr := s.blobs.Get(sessionID)
	if getErr != nil {
		if se, ok := getErr.(*SessionError); ok {
			return nil, se
		}
		return nil, &SessionError{Message: getErr.Error(), Cause: ErrCauseStorageFailure}
	}
	start := index * rec.ChunkSize
	end := start + rec.ChunkSize
	if end > len(content) {
		end = len(content)
	}
	return content[start:end], nil
}

// List returns summaries of every session readable by requestingGroups:
// public sessions plus any owned by a group the caller belongs to.
func (s *Store) List(requestingGroups []string) []Session {
	var out []Session
	for _, rec := range s.index.List() {
		if rec.Readable(requestingGroups) {
			out = append(out, rec)
		}
	}
	return out
}

// SessionURL is one entry returned by Urls: either a direct URL (when
// baseURL is supplied) or a (session_id, chunk_index) pair for the caller
// to resolve itself.
type SessionURL struct {
	URL        string `json:"url,omitempty"`
	SessionID  string `json:"session_id,omitempty"`
	ChunkIndex int    `json:"chunk_index,omitempty"`
}

// Urls enumerates every chunk of a session as either resolvable URLs
// (baseURL != "") or raw (session_id, index) pairs.
func (s *Store) Urls(sessionID string, requestingGroups []string, baseURL string) ([]SessionURL, *SessionError) {
	rec, err := s.Info(sessionID, requestingGroups)
	if err != nil {
		return nil, err
	}
	urls := make([]SessionURL, 0, rec.TotalChunks)
	for i := 0; i < rec.TotalChunks; i++ {
		if baseURL != "" {
			urls = append(urls, SessionURL{URL: fmt.Sprintf("%s/sessions/%s/chunks/%d", baseURL, sessionID, i)})
		} else {
			urls = append(urls, SessionURL{SessionID: sessionID, ChunkIndex: i})
		}
	}
	return urls, nil
}

// GetFull returns the full content, bounded by maxBytes.
func (s *Store) GetFull(sessionID string, requestingGroups []string, maxBytes int64) ([]byte, *SessionError) {
	rec, err := s.Info(sessionID, requestingGroups)
	if err != nil {
		return nil, err
	}
	if rec.TotalSizeBytes > maxBytes {
		return nil, &SessionError{
			Message: fmt.Sprintf("session is %d bytes, exceeds max_bytes %d", rec.TotalSizeBytes, maxBytes),
			Cause:   ErrCauseContentTooBig,
		}
	}
	content, getErr := s.blobs.Get(sessionID)
	if getErr != nil {
		if se, ok := getErr.(*SessionError); ok {
			return nil, se
		}
		return nil, &SessionError{Message: getErr.Error(), Cause: ErrCauseStorageFailure}
	}
	return content, nil
}

// Delete removes a session's blob and metadata entry. Housekeeper-only;
// callers are responsible for enforcing that restriction.
func (s *Store) Delete(sessionID string) *SessionError {
	if err := s.blobs.Delete(sessionID); err != nil {
		if se, ok := err.(*SessionError); ok {
			return se
		}
		return &SessionError{Message: err.Error(), Cause: ErrCauseStorageFailure}
	}
	if err := s.index.Delete(sessionID); err != nil {
		if se, ok := err.(*SessionError); ok {
			return se
		}
		return &SessionError{Message: err.Error(), Cause: ErrCauseStorageFailure}
	}
	return nil
}
