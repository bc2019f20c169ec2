package session

import "time"

const (
	ContentTypeRawCrawl   = "raw_crawl"
	ContentTypeParsedFeed = "parsed_feed"
	ContentTypeStructure  = "structure"

	MinChunkSize     = 256
	MaxChunkSize     = 65536
	DefaultChunkSize = 4000
)

// Session is the persisted metadata record for one stored blob. Content
// itself lives in the blob store, addressed by SessionID. ContentHash is a
// blake3 digest of that content, carried here (rather than recomputed on
// every read) so callers can cheaply tell two sessions apart or notice a
// re-crawl produced byte-identical output.
type Session struct {
	SessionID      string    `json:"session_id"`
	URL            string    `json:"url"`
	Group          *string   `json:"group,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	ChunkSize      int       `json:"chunk_size"`
	TotalChunks    int       `json:"total_chunks"`
	TotalSizeBytes int64     `json:"total_size_bytes"`
	ContentType    string    `json:"content_type"`
	ContentHash    string    `json:"content_hash,omitempty"`
}

// Readable reports whether a caller whose token groups are requestingGroups
// may read this session: public (group=nil) sessions are readable by
// anyone; group-owned sessions require the caller's group set to contain
// the owning group.
func (s Session) Readable(requestingGroups []string) bool {
	if s.Group == nil {
		return true
	}
	for _, g := range requestingGroups {
		if g == *s.Group {
			return true
		}
	}
	return false
}

// Public reports whether list() should surface this session to a
// group-scoped caller regardless of group match: public sessions are
// always included alongside the caller's own.
func (s Session) Public() bool {
	return s.Group == nil
}

// ResolveChunkSize clamps a requested chunk size to [MinChunkSize,
// MaxChunkSize], defaulting to DefaultChunkSize when zero.
func ResolveChunkSize(requested int) int {
	if requested == 0 {
		return DefaultChunkSize
	}
	if requested < MinChunkSize {
		return MinChunkSize
	}
	if requested > MaxChunkSize {
		return MaxChunkSize
	}
	return requested
}

// TotalChunks computes ceil(size / chunkSize).
func TotalChunks(size int64, chunkSize int) int {
	if size == 0 {
		return 0
	}
	total := size / int64(chunkSize)
	if size%int64(chunkSize) != 0 {
		total++
	}
	return int(total)
}

// BlobStore is the capability interface for content-addressed blob
// persistence. Swapping the session store to object storage requires only
// a new implementation of this interface.
type BlobStore interface {
	Put(id string, data []byte) error
	Get(id string) ([]byte, error)
	Delete(id string) error
	Exists(id string) bool
}

// MetadataIndex is the capability interface over the session metadata
// index. Implementations own the single-writer/multi-reader locking over
// that index themselves.
type MetadataIndex interface {
	Upsert(id string, record Session) error
	Get(id string) (Session, bool)
	List() []Session
	Delete(id string) error
	Snapshot() []Session
}
