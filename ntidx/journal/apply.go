// Package journal applies decoded USN change-journal records to an
// index store under its exclusive lock, and (on Windows) drives the
// FSCTL_READ_USN_JOURNAL polling loop that produces those records.
package journal

import (
	"github.com/quietforge/ntfsindex/ntidx/index"
	"github.com/quietforge/ntfsindex/ntidx/usn"
)

// Applier mutates an index.Store in response to a batch of decoded USN
// records, following the batch-application rules: ignore an old-rename
// half, remove on delete, overwrite otherwise, and re-project the whole
// flat vector when a directory's identity changed underneath it.
type Applier struct {
	store              *index.Store
	includeDirectories bool
}

// NewApplier returns an Applier writing into store.
func NewApplier(store *index.Store, includeDirectories bool) *Applier {
	return &Applier{store: store, includeDirectories: includeDirectories}
}

// ApplyBatch applies every record in records, in order. A directory
// rename is patched in place through the prefix index's descendant set;
// any other change to a directory's identity falls back to a single
// full re-projection at the end of the batch.
func (a *Applier) ApplyBatch(records []usn.RawRecord) {
	a.store.Lock()
	defer a.store.Unlock()

	fullRebuildRequired := false

	for _, rec := range records {
		if rec.IsOldRenameOnly() {
			continue
		}

		if rec.IsDelete() {
			priorNode, hadNode := a.store.Node(rec.FRN)
			a.store.RemoveLocked(rec.FRN)
			if hadNode && priorNode.IsDirectory {
				fullRebuildRequired = true
			}
			continue
		}

		priorNode, hadNode := a.store.Node(rec.FRN)
		identityChanged := !hadNode ||
			priorNode.ParentFRN != rec.ParentFRN ||
			priorNode.Name != rec.Name ||
			(!priorNode.IsDirectory && rec.IsDirectory)

		// A rename of an already-tracked directory can be patched in
		// place by rewriting its descendants' stored paths; anything
		// else that changes a directory's identity (a brand-new
		// directory, or a file turning into one) needs the full
		// reprojection below, since the prefix index has nothing to
		// walk yet.
		isRename := hadNode && priorNode.IsDirectory && rec.IsDirectory &&
			(priorNode.ParentFRN != rec.ParentFRN || priorNode.Name != rec.Name)

		var oldPath string
		var hadOldPath bool
		if isRename {
			oldPath, hadOldPath = a.store.ResolvePathLocked(rec.FRN)
		}

		a.store.UpsertLocked(rec.FRN, rec.ParentFRN, rec.Name, rec.IsDirectory, a.includeDirectories)

		if !rec.IsDirectory || !identityChanged {
			continue
		}

		if isRename && hadOldPath {
			if newPath, ok := a.store.ResolvePathLocked(rec.FRN); ok {
				if a.store.PatchDirectoryDescendantsLocked(oldPath, newPath) {
					continue
				}
			}
		}
		fullRebuildRequired = true
	}

	if fullRebuildRequired {
		a.store.RebuildIndexedFromNodesLocked(a.includeDirectories)
	}
}

// journalOutcome classifies one FSCTL_READ_USN_JOURNAL call, decoupling
// the Windows-only watcher loop from the pure decision logic below so
// the loop's error handling can be exercised without a real volume.
type journalOutcome int

const (
	outcomeBackoff journalOutcome = iota
	outcomeAdvanceOnly
	outcomeRecords
	outcomeEndOfData
	outcomeReindexRequired
	outcomeFatalError
)

// classifyReadResult maps a raw control-call result to a journalOutcome,
// per the watcher loop's outcome table. bytesReturned and usnSize let
// the "advance only" case (returned == sizeof(USN), no records) be told
// apart from an empty-records success.
func classifyReadResult(err error, bytesReturned, usnSize int, isEndOfData, isJournalInvalidated bool) journalOutcome {
	if err != nil {
		if isJournalInvalidated {
			return outcomeReindexRequired
		}
		if isEndOfData {
			return outcomeEndOfData
		}
		return outcomeFatalError
	}
	if bytesReturned < usnSize {
		return outcomeBackoff
	}
	if bytesReturned == usnSize {
		return outcomeAdvanceOnly
	}
	return outcomeRecords
}
