// Package housekeeper implements a periodic, cross-process-lockable sweep
// that deletes the oldest sessions once the store exceeds its configured
// byte ceiling.
package housekeeper

import (
	"context"
	"path/filepath"
	"time"

	"github.com/scraptool/corefetch/internal/obslog"
	"github.com/scraptool/corefetch/internal/session"
)

const bytesPerMB = 1024 * 1024

// Housekeeper owns the prune lock and drives both the scheduled sweep and
// the manual prune-size/list/stats/purge invocations, which share its
// locking and lifecycle events.
type Housekeeper struct {
	index            session.MetadataIndex
	blobs            session.BlobStore
	maxBytes         int64
	intervalMinutes  int
	staleLockSeconds int
	lock             *fileLock
	logger           *obslog.Logger
}

func New(index session.MetadataIndex, blobs session.BlobStore, storageRoot string, maxBytes int64, intervalMinutes, staleLockSeconds int, logger *obslog.Logger) *Housekeeper {
	if intervalMinutes < 1 {
		intervalMinutes = 1
	}
	if staleLockSeconds < 1 {
		staleLockSeconds = 3600
	}
	return &Housekeeper{
		index:            index,
		blobs:            blobs,
		maxBytes:         maxBytes,
		intervalMinutes:  intervalMinutes,
		staleLockSeconds: staleLockSeconds,
		lock:             newFileLock(filepath.Join(storageRoot, ".prune_size.lock"), time.Duration(staleLockSeconds)*time.Second),
		logger:           logger,
	}
}

// Run sleeps on an interval timer until ctx is cancelled, running one
// PruneOnce cycle each tick. It exits cleanly on cancellation, per the
// REDESIGN FLAGS note that scheduling must be cancellable.
func (h *Housekeeper) Run(ctx context.Context) {
	ticker := time.NewTicker(time.Duration(h.intervalMinutes) * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			h.PruneOnce(ctx)
		}
	}
}

// PruneOnce runs a single prune cycle: acquire the lock, compute total
// bytes from metadata only, delete oldest sessions until under budget (or
// out of sessions, or an anomaly halts progress on that entry), release
// the lock, and emit a summary event.
func (h *Housekeeper) PruneOnce(ctx context.Context) PruneSummary {
	acquired, err := h.lock.acquire()
	if err != nil {
		h.emitEvent(ctx, "error", "prune_error", map[string]string{"cause_type": err.Error()})
		return PruneSummary{ExitCode: exitCodeError}
	}
	if !acquired {
		h.emitEvent(ctx, "warn", "lock_busy", nil)
		return PruneSummary{ExitCode: exitCodeLockBusy}
	}
	defer h.lock.release()

	sessions := h.index.List()
	var total int64
	for _, rec := range sessions {
		total += rec.TotalSizeBytes
	}

	summary := PruneSummary{
		ItemCount: len(sessions),
		TargetMB:  float64(h.maxBytes) / bytesPerMB,
	}

	if total > h.maxBytes {
		for _, rec := range sessions {
			if total <= h.maxBytes {
				break
			}
			if !h.blobs.Exists(rec.SessionID) {
				summary.Anomalies++
				h.emitEvent(ctx, "warn", "prune_anomaly", map[string]string{"session_id": rec.SessionID, "cause_type": "missing_blob"})
				continue
			}
			if err := h.blobs.Delete(rec.SessionID); err != nil {
				summary.Anomalies++
				h.emitEvent(ctx, "warn", "prune_anomaly", map[string]string{"session_id": rec.SessionID, "cause_type": "blob_delete_failed"})
				continue
			}
			if err := h.index.Delete(rec.SessionID); err != nil {
				summary.Anomalies++
				h.emitEvent(ctx, "warn", "prune_anomaly", map[string]string{"session_id": rec.SessionID, "cause_type": "metadata_delete_failed"})
				continue
			}
			total -= rec.TotalSizeBytes
			summary.DeletedCount++
			summary.FreedMB += float64(rec.TotalSizeBytes) / bytesPerMB
		}
	}

	summary.FinalMB = float64(total) / bytesPerMB
	summary.ExitCode = exitCodeOK
	h.emitEvent(ctx, "info", "prune_summary", map[string]string{
		"item_count":    itoa(summary.ItemCount),
		"deleted_count": itoa(summary.DeletedCount),
		"anomalies":     itoa(summary.Anomalies),
	})
	return summary
}

// List shares the housekeeper's lock and lifecycle events for the manual
// `list` invocation.
func (h *Housekeeper) List(ctx context.Context) ([]session.Session, bool) {
	acquired, err := h.lock.acquire()
	if err != nil || !acquired {
		h.emitEvent(ctx, "warn", "lock_busy", nil)
		return nil, false
	}
	defer h.lock.release()
	return h.index.List(), true
}

// Stats reports the current aggregate size without mutating anything.
type Stats struct {
	ItemCount int
	TotalMB   float64
	TargetMB  float64
}

func (h *Housekeeper) Stats(ctx context.Context) (Stats, bool) {
	acquired, err := h.lock.acquire()
	if err != nil || !acquired {
		h.emitEvent(ctx, "warn", "lock_busy", nil)
		return Stats{}, false
	}
	defer h.lock.release()

	sessions := h.index.List()
	var total int64
	for _, rec := range sessions {
		total += rec.TotalSizeBytes
	}
	return Stats{
		ItemCount: len(sessions),
		TotalMB:   float64(total) / bytesPerMB,
		TargetMB:  float64(h.maxBytes) / bytesPerMB,
	}, true
}

// Purge deletes a single named session explicitly, sharing the same
// locking and lifecycle events as the scheduled sweep.
func (h *Housekeeper) Purge(ctx context.Context, sessionID string) bool {
	acquired, err := h.lock.acquire()
	if err != nil || !acquired {
		h.emitEvent(ctx, "warn", "lock_busy", nil)
		return false
	}
	defer h.lock.release()

	_ = h.blobs.Delete(sessionID)
	_ = h.index.Delete(sessionID)
	h.emitEvent(ctx, "info", "purge_complete", map[string]string{"session_id": sessionID})
	return true
}

func (h *Housekeeper) emitEvent(ctx context.Context, level, event string, fields map[string]string) {
	if h.logger == nil {
		return
	}
	h.logger.RecordEvent(ctx, level, event, fields)
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}
