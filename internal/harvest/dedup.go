package harvest

import (
	"errors"
	"fmt"
	"os"
	"sync"

	bloom "github.com/bits-and-blooms/bloom/v3"
	mmap "github.com/edsrzf/mmap-go"
)

// dedupAccelerator is a bloom filter periodically synced to a memory-mapped
// temp file, used by Walk to skip the map lookup for URIs it has certainly
// not seen before. Adapted from the teacher's VisitedTracker: generalized from
// "pages visited during a crawl" to "hyperlink occurrences seen during one
// harvest pass", and trimmed to the two operations Walk needs (MaybeSeen,
// Mark) since harvest never needs to un-mark or report visited-count
// statistics the way a crawler does. As in VisitedTracker, the filter
// itself lives on the Go heap — the mmap holds a periodically flushed
// on-disk snapshot of it that nothing reads back, not a reduction in heap
// residency. The filter's size is fixed at construction; Walk's exact
// links map still grows with the number of distinct URIs.
type dedupAccelerator struct {
	mu        sync.Mutex
	filter    *bloom.BloomFilter
	file      *os.File
	mmap      mmap.MMap
	tmpPath   string
	count     uint64 // marks since last sync
	syncEvery uint64
	lastErr   error
}

// newDedupAccelerator sizes the filter for 500,000 occurrences at a 0.1%
// false-positive rate, comfortably above what a large documentation tree's
// link count looks like, and backs it with a memory-mapped temp file the
// filter is flushed to every syncEvery marks (and on Close), mirroring
// VisitedTracker's syncLocked cadence.
func newDedupAccelerator() (*dedupAccelerator, error) {
	filter := bloom.NewWithEstimates(500_000, 0.001)

	tmpFile, err := os.CreateTemp("", "hyperguard-dedup-*.bloom")
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	size := filter.Cap()
	if err := tmpFile.Truncate(int64(size)); err != nil {
		_ = tmpFile.Close()
		_ = os.Remove(tmpPath)
		return nil, fmt.Errorf("truncate temp file: %w", err)
	}

	mapped, err := mmap.MapRegion(tmpFile, int(size), mmap.RDWR, 0, 0)
	if err != nil {
		_ = tmpFile.Close()
		_ = os.Remove(tmpPath)
		return nil, fmt.Errorf("mmap temp file: %w", err)
	}

	data, err := filter.MarshalBinary()
	if err != nil {
		_ = mapped.Unmap()
		_ = tmpFile.Close()
		_ = os.Remove(tmpPath)
		return nil, fmt.Errorf("marshal bloom filter: %w", err)
	}
	if len(data) > len(mapped) {
		_ = mapped.Unmap()
		_ = tmpFile.Close()
		_ = os.Remove(tmpPath)
		return nil, fmt.Errorf("filter data (%d) exceeds mmap size (%d)", len(data), len(mapped))
	}
	copy(mapped, data)

	return &dedupAccelerator{filter: filter, file: tmpFile, mmap: mapped, tmpPath: tmpPath, syncEvery: 1000}, nil
}

// MaybeSeen reports whether uri might already have been marked. False means
// definitely not seen; true means the caller must fall back to the
// authoritative map to know for sure.
func (d *dedupAccelerator) MaybeSeen(uri string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.filter.TestString(uri)
}

// Mark records uri as seen, flushing the filter's on-disk snapshot every
// syncEvery marks. Sync errors are recorded rather than returned, since a
// failed disk sync shouldn't interrupt the in-memory dedup Walk relies on;
// LastError exposes it for callers that want to surface it.
func (d *dedupAccelerator) Mark(uri string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.filter.AddString(uri)
	d.count++
	if d.count >= d.syncEvery {
		if err := d.syncLocked(); err != nil {
			d.lastErr = err
		}
	}
}

// LastError returns the last error encountered during a periodic sync.
func (d *dedupAccelerator) LastError() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.lastErr
}

// syncLocked flushes the filter's current state to the mmap'd temp file.
// Must be called with mu held.
func (d *dedupAccelerator) syncLocked() error {
	data, err := d.filter.MarshalBinary()
	if err != nil {
		return fmt.Errorf("marshal bloom filter: %w", err)
	}
	if len(data) <= len(d.mmap) {
		copy(d.mmap, data)
	}
	if err := d.mmap.Flush(); err != nil {
		return fmt.Errorf("flush mmap: %w", err)
	}
	d.count = 0
	return nil
}

// Close flushes any pending marks, then unmaps and removes the backing
// temp file, mirroring VisitedTracker's Close. The snapshot is never read
// back (Non-goal: no persistent cache across runs).
func (d *dedupAccelerator) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	var errs []error
	if d.lastErr != nil {
		errs = append(errs, d.lastErr)
	}
	if d.mmap != nil {
		if d.count > 0 {
			if err := d.syncLocked(); err != nil {
				errs = append(errs, err)
			}
		}
		if err := d.mmap.Unmap(); err != nil {
			errs = append(errs, fmt.Errorf("unmap: %w", err))
		}
		d.mmap = nil
	}
	if d.file != nil {
		if err := d.file.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close file: %w", err))
		}
		d.file = nil
	}
	if d.tmpPath != "" {
		if err := os.Remove(d.tmpPath); err != nil && !os.IsNotExist(err) {
			errs = append(errs, fmt.Errorf("remove temp file: %w", err))
		}
		d.tmpPath = ""
	}
	if len(errs) > 0 {
		return fmt.Errorf("close dedup accelerator: %w", errors.Join(errs...))
	}
	return nil
}
