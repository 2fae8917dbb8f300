// Package dedupe implements the staged, cancellable duplicate scanner:
// size bucketing, a quick FNV-1a signature pass, a full FNV-1a hash
// pass, and a final byte-equal clustering pass, each parallel stage
// bounded by a sourcegraph/conc worker pool sized off host concurrency.
package dedupe

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/sourcegraph/conc/pool"

	"github.com/quietforge/ntfsindex/ntidx/config"
	"github.com/quietforge/ntfsindex/ntidx/ignore"
	"github.com/quietforge/ntfsindex/ntidx/index"
	"github.com/quietforge/ntfsindex/ntidx/model"
)

// ErrCancelled is returned when a caller requests cancellation through
// Status.Cancel while a scan is in flight.
var ErrCancelled = errors.New("duplicate scan cancelled")

// Options configures one duplicate scan, clamped per spec before Scan
// is called: min_size defaults to 1 MiB when zero, max_groups clamps to
// [1, 1000], max_files_per_group clamps to [2, 400].
type Options struct {
	MinSizeBytes     uint64
	MaxGroups        int
	MaxFilesPerGroup int
	ReservedCores    int
}

// Normalize applies the default/clamp rules described in spec to o and
// returns the result.
func (o Options) Normalize(defaults config.DuplicateConfig) Options {
	if o.MinSizeBytes == 0 {
		o.MinSizeBytes = defaults.DefaultMinSizeBytes
		if o.MinSizeBytes == 0 {
			o.MinSizeBytes = 1024 * 1024
		}
	}
	if o.MaxGroups <= 0 {
		o.MaxGroups = defaults.MaxGroups
	}
	o.MaxGroups = clampInt(o.MaxGroups, 1, 1000)

	if o.MaxFilesPerGroup <= 0 {
		o.MaxFilesPerGroup = defaults.MaxFilesPerGroup
	}
	o.MaxFilesPerGroup = clampInt(o.MaxFilesPerGroup, 2, 400)

	if o.ReservedCores <= 0 {
		o.ReservedCores = defaults.ReservedCores
	}
	return o
}

func clampInt(v, min, max int) int {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

// Status is the mutable, atomically-updated progress record a caller
// polls via duplicate_scan_status_json while a scan runs.
type Status struct {
	running         atomic.Bool
	cancelRequested atomic.Bool
	scannedFiles    atomic.Uint64
	totalFiles      atomic.Uint64
	groupsFound     atomic.Uint64
}

// Snapshot returns the current status as the model type the ABI serialises.
func (s *Status) Snapshot() model.DuplicateScanStatus {
	total := s.totalFiles.Load()
	scanned := s.scannedFiles.Load()
	var pct float64
	if total > 0 {
		pct = float64(scanned) / float64(total) * 100
	}
	return model.DuplicateScanStatus{
		Running:         s.running.Load(),
		CancelRequested: s.cancelRequested.Load(),
		ScannedFiles:    scanned,
		TotalFiles:      total,
		GroupsFound:     s.groupsFound.Load(),
		ProgressPercent: pct,
	}
}

// Cancel requests cooperative cancellation; in-flight workers finish
// their current unit of work and exit at the next stage boundary.
func (s *Status) Cancel() {
	s.cancelRequested.Store(true)
}

func (s *Status) cancelled() bool {
	return s.cancelRequested.Load()
}

type fileMeta struct {
	entry model.IndexedFile
	size  uint64
	created, modified int64
}

// Scan runs the full staged pipeline against store's non-directory
// entries and returns groups sorted by reclaimable bytes descending. It
// mutates status throughout so a concurrent poller sees live progress.
func Scan(ctx context.Context, store *index.Store, opts Options, status *Status, statFn func(path string) (size uint64, created, modified int64, ok bool), ignoreList *ignore.List) ([]model.DuplicateGroup, error) {
	status.running.Store(true)
	defer func() {
		status.running.Store(false)
		status.cancelRequested.Store(false)
	}()

	workers := workerCount(opts.ReservedCores)

	metas, err := gatherMetadata(ctx, store, opts, status, statFn, workers, ignoreList)
	if err != nil {
		return nil, err
	}

	bySize := bucketBySize(metas)

	var mu sync.Mutex
	groups := make([]model.DuplicateGroup, 0)
	var serial uint64

	appendGroup := func(g model.DuplicateGroup) bool {
		mu.Lock()
		defer mu.Unlock()
		if len(groups) >= opts.MaxGroups {
			return false
		}
		groups = append(groups, g)
		status.groupsFound.Store(uint64(len(groups)))
		return len(groups) < opts.MaxGroups
	}

	for size, bucket := range bySize {
		if err := cancellationError(status, ctx); err != nil {
			return nil, err
		}
		if reachedLimit(&mu, &groups, opts.MaxGroups) {
			break
		}

		if size == 0 {
			serial++
			appendGroup(zeroSizeGroup(bucket, opts.MaxFilesPerGroup, serial))
			continue
		}

		quickBuckets := quickSignatureStage(ctx, bucket, workers, status)
		for _, qb := range quickBuckets {
			if err := cancellationError(status, ctx); err != nil {
				return nil, err
			}
			if len(qb) < 2 {
				continue
			}
			hashBuckets := fullHashStage(ctx, qb, workers, status)
			for hash, hb := range hashBuckets {
				if len(hb) < 2 {
					continue
				}
				clusters := clusterByBytesEqual(hb)
				for _, cluster := range clusters {
					if len(cluster) < 2 {
						continue
					}
					serial++
					g := buildGroup(size, hash, serial, cluster, opts.MaxFilesPerGroup)
					if !appendGroup(g) {
						sortGroups(groups)
						return groups, nil
					}
				}
			}
		}
	}

	sortGroups(groups)
	return groups, nil
}

func cancellationError(status *Status, ctx context.Context) error {
	if status.cancelled() {
		return ErrCancelled
	}
	return ctx.Err()
}

func reachedLimit(mu *sync.Mutex, groups *[]model.DuplicateGroup, maxGroups int) bool {
	mu.Lock()
	defer mu.Unlock()
	return len(*groups) >= maxGroups
}

func gatherMetadata(ctx context.Context, store *index.Store, opts Options, status *Status, statFn func(string) (uint64, int64, int64, bool), workers int, ignoreList *ignore.List) ([]fileMeta, error) {
	entries := store.Snapshot()
	var candidates []model.IndexedFile
	for _, e := range entries {
		if e.IsDirectory || ignoreList.MatchesPath(e.Path) {
			continue
		}
		candidates = append(candidates, e)
	}
	status.totalFiles.Store(uint64(len(candidates)))

	p := pool.New().WithMaxGoroutines(workerCountFor(len(candidates), workers)).WithContext(ctx)
	var mu sync.Mutex
	var metas []fileMeta

	for _, entry := range candidates {
		entry := entry
		p.Go(func(ctx context.Context) error {
			if status.cancelled() {
				return nil
			}
			size, created, modified, ok := statFn(entry.Path)
			status.scannedFiles.Add(1)
			if !ok || size < opts.MinSizeBytes {
				return nil
			}
			mu.Lock()
			metas = append(metas, fileMeta{entry: entry, size: size, created: created, modified: modified})
			mu.Unlock()
			return nil
		})
	}
	if err := p.Wait(); err != nil {
		return nil, err
	}
	return metas, nil
}

func bucketBySize(metas []fileMeta) map[uint64][]fileMeta {
	out := make(map[uint64][]fileMeta)
	for _, m := range metas {
		out[m.size] = append(out[m.size], m)
	}
	for size, bucket := range out {
		if size != 0 && len(bucket) < 2 {
			delete(out, size)
		}
	}
	return out
}

func zeroSizeGroup(bucket []fileMeta, maxFiles int, serial uint64) model.DuplicateGroup {
	files := make([]model.DuplicateFile, 0, min(len(bucket), maxFiles))
	for i, m := range bucket {
		if i >= maxFiles {
			break
		}
		files = append(files, model.DuplicateFile{
			Name: m.entry.Name, Path: m.entry.Path,
			Size: 0, CreatedUnix: m.created, ModifiedUnix: m.modified,
		})
	}
	return model.DuplicateGroup{
		GroupID:    groupID(0, 0, serial),
		Size:       0,
		TotalBytes: 0,
		FileCount:  len(bucket),
		Files:      files,
	}
}

func quickSignatureStage(ctx context.Context, bucket []fileMeta, workers int, status *Status) [][]fileMeta {
	p := pool.New().WithMaxGoroutines(workerCountFor(len(bucket), workers)).WithContext(ctx)
	var mu sync.Mutex
	subBuckets := make(map[uint64][]fileMeta)

	for _, m := range bucket {
		m := m
		p.Go(func(ctx context.Context) error {
			if status.cancelled() {
				return nil
			}
			sig, err := quickSignature(m.entry.Path, m.size)
			if err != nil {
				return nil
			}
			mu.Lock()
			subBuckets[sig] = append(subBuckets[sig], m)
			mu.Unlock()
			return nil
		})
	}
	_ = p.Wait()

	out := make([][]fileMeta, 0, len(subBuckets))
	for _, sb := range subBuckets {
		if len(sb) >= 2 {
			out = append(out, sb)
		}
	}
	return out
}

func fullHashStage(ctx context.Context, bucket []fileMeta, workers int, status *Status) map[uint64][]fileMeta {
	p := pool.New().WithMaxGoroutines(workerCountFor(len(bucket), workers)).WithContext(ctx)
	var mu sync.Mutex
	subBuckets := make(map[uint64][]fileMeta)

	for _, m := range bucket {
		m := m
		p.Go(func(ctx context.Context) error {
			if status.cancelled() {
				return nil
			}
			h, err := fullHash(m.entry.Path)
			if err != nil {
				return nil
			}
			mu.Lock()
			subBuckets[h] = append(subBuckets[h], m)
			mu.Unlock()
			return nil
		})
	}
	_ = p.Wait()
	return subBuckets
}

// clusterByBytesEqual clusters candidates against a first-encountered
// representative per cluster, serially: this stage does the actual I/O
// comparisons that a false hash collision would otherwise hide, so it
// runs without parallel workers to keep representative selection
// deterministic.
func clusterByBytesEqual(candidates []fileMeta) [][]fileMeta {
	var clusters [][]fileMeta
	for _, cand := range candidates {
		placed := false
		for i, cluster := range clusters {
			rep := cluster[0]
			eq, err := bytesEqual(rep.entry.Path, cand.entry.Path)
			if err == nil && eq {
				clusters[i] = append(clusters[i], cand)
				placed = true
				break
			}
		}
		if !placed {
			clusters = append(clusters, []fileMeta{cand})
		}
	}
	return clusters
}

func buildGroup(size, hash, serial uint64, cluster []fileMeta, maxFiles int) model.DuplicateGroup {
	files := make([]model.DuplicateFile, 0, min(len(cluster), maxFiles))
	for i, m := range cluster {
		if i >= maxFiles {
			break
		}
		files = append(files, model.DuplicateFile{
			Name: m.entry.Name, Path: m.entry.Path,
			Size: m.size, CreatedUnix: m.created, ModifiedUnix: m.modified,
		})
	}
	return model.DuplicateGroup{
		GroupID:    groupID(size, hash, serial),
		Size:       size,
		TotalBytes: size * uint64(len(cluster)),
		FileCount:  len(cluster),
		Files:      files,
	}
}

func groupID(size, hash, serial uint64) string {
	return fmt.Sprintf("%016x:%016x:%08x", size, hash, serial)
}

func sortGroups(groups []model.DuplicateGroup) {
	sort.SliceStable(groups, func(i, j int) bool {
		ri := reclaimable(groups[i])
		rj := reclaimable(groups[j])
		if ri != rj {
			return ri > rj
		}
		return groups[i].FileCount > groups[j].FileCount
	})
}

func reclaimable(g model.DuplicateGroup) uint64 {
	if g.FileCount == 0 {
		return 0
	}
	return g.Size * uint64(g.FileCount-1)
}

// workerCount applies the sizing formula for a stage with itemCount
// items unknown ahead of time. reservedCores is the configured core
// count to hold back for the rest of the system; a non-positive value
// falls back to the built-in reservation (1 core, or 2 above 4 cores).
func workerCount(reservedCores int) int {
	hc := runtime.NumCPU()
	if hc == 0 {
		hc = 4
	}
	reserved := reservedCores
	if reserved <= 0 {
		reserved = 1
		if hc > 4 {
			reserved = 2
		}
	}
	w := hc - reserved
	if w < 1 {
		w = 1
	}
	return w
}

func workerCountFor(items, maxWorkers int) int {
	if items < 1 {
		return 1
	}
	if items < maxWorkers {
		return items
	}
	return maxWorkers
}
