//go:build windows

package journal

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sys/windows"

	"github.com/quietforge/ntfsindex/ntidx/mft"
	"github.com/quietforge/ntfsindex/ntidx/model"
	"github.com/quietforge/ntfsindex/ntidx/usn"
)

// ErrReindexRequired is surfaced when the journal was invalidated
// (deleted, being deleted, deactivated, or rejected the request
// outright) and a full re-index is the only way to recover.
var ErrReindexRequired = fmt.Errorf("journal: changed underneath the index, reindex required")

// Watcher tails a volume's USN journal starting from a JournalPosition
// captured by mft.Scan, applying batches to an index store through an
// Applier. Each Watcher carries an epoch: its owner bumps the shared
// counter to stop it, and the run loop notices at its next iteration boundary and exits without another
// ioctl call.
type Watcher struct {
	drive    byte
	backoff  time.Duration
	bufBytes int
	epoch    *int64
	myEpoch  int64
}

// NewWatcher returns a Watcher for drive, tied to the given epoch
// counter. The caller is expected to increment *epoch before starting a
// newer watcher, which causes this one to exit at its next loop check.
// bufferBytes sizes the FSCTL_READ_USN_JOURNAL read buffer; a
// non-positive value falls back to 1 MiB.
func NewWatcher(drive byte, backoff time.Duration, bufferBytes int, epoch *int64) *Watcher {
	if bufferBytes <= 0 {
		bufferBytes = 1024 * 1024
	}
	return &Watcher{drive: drive, backoff: backoff, bufBytes: bufferBytes, epoch: epoch, myEpoch: *epoch}
}

// Run tails the journal until ctx is cancelled, the epoch advances past
// myEpoch, or the journal reports an unrecoverable condition. pos is
// mutated in place as the position advances, so callers observing the
// watcher's progress can read it between calls.
func (w *Watcher) Run(ctx context.Context, pos *model.JournalPosition, applier *Applier) error {
	vol, err := mft.OpenVolumeHandle(w.drive)
	if err != nil {
		return err
	}
	defer windows.CloseHandle(vol)

	buf := make([]byte, w.bufBytes)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if *w.epoch != w.myEpoch {
			return nil
		}

		returned, ioErr := mft.ReadJournal(vol, pos.NextUSN, pos.JournalID, buf)
		outcome := classifyReadResult(ioErr, returned, 8, ioErr == windows.ERROR_HANDLE_EOF, mft.IsJournalInvalidated(ioErr))

		switch outcome {
		case outcomeReindexRequired:
			return ErrReindexRequired
		case outcomeFatalError:
			return fmt.Errorf("journal: read failed: %w", ioErr)
		case outcomeEndOfData, outcomeBackoff:
			sleep(ctx, w.backoff)
			continue
		case outcomeAdvanceOnly:
			pos.NextUSN = int64(mft.NextStartValue(buf))
			sleep(ctx, w.backoff)
			continue
		case outcomeRecords:
			pos.NextUSN = int64(mft.NextStartValue(buf))
			records := decodeAll(buf[:returned])
			applier.ApplyBatch(records)
			sleep(ctx, w.backoff)
		}
	}
}

func decodeAll(buf []byte) []usn.RawRecord {
	var out []usn.RawRecord
	offset := 8
	for offset+4 <= len(buf) {
		recordLen := int(uint32(buf[offset]) | uint32(buf[offset+1])<<8 | uint32(buf[offset+2])<<16 | uint32(buf[offset+3])<<24)
		if recordLen <= 0 || offset+recordLen > len(buf) {
			break
		}
		if rec, ok := usn.DecodeRecord(buf[offset : offset+recordLen]); ok {
			out = append(out, rec)
		}
		offset += recordLen
	}
	return out
}

func sleep(ctx context.Context, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
