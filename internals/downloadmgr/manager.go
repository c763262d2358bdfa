package downloadmgr

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"golang.org/x/exp/slices"
	"golang.org/x/time/rate"
)

const (
	// big enough to keep syscall overhead low, small enough to notice
	// cancellation quickly
	chunkSize = 65536
	// one keep-alive connection per worker, more gives diminishing returns
	maxThreads = 16
	maxTries   = 3

	progressInterval = 100 * time.Millisecond

	// entries without a known size sort as 1 MiB so they start early
	unknownSortSize = 1048576
)

// Progress is an aggregated snapshot of a running batch.
type Progress struct {
	Count      int
	TotalCount int
	// Size is the verified bytes so far, bytes of failed tries are not counted
	Size      int64
	TotalSize int64
	// Speed is the average download speed in bytes per second
	Speed float64
	// Name of the entry that triggered this update
	Name string
}

// DownloadManager downloads a batch of entries in parallel, verifying
// sizes and hashes while streaming. Failed entries are retried a few
// times and collected, one bad file does not abort the batch.
type DownloadManager struct {
	// Client defaults to http.DefaultClient
	Client *http.Client
	// Threads caps the parallel downloads, 0 picks a default
	Threads int
	// OnProgress is called from a single dispatcher goroutine
	OnProgress func(p Progress)

	queue     []Entry
	totalSize int64
}

// New creates a new downloadmgr
func New() *DownloadManager {
	return &DownloadManager{}
}

// Add adds a new entry to the queue.
func (d *DownloadManager) Add(entry Entry) {
	d.queue = append(d.queue, entry)
	d.totalSize += entry.Size
}

// AddMissing adds an entry unless its target already satisfies it: the
// file exists and matches the expected size. With strict also the sha1
// has to match.
func (d *DownloadManager) AddMissing(entry Entry, strict bool) {
	info, err := os.Stat(entry.Dst)
	if err == nil && info.Mode().IsRegular() {
		sizeOk := entry.Size == 0 || entry.Size == info.Size()
		if sizeOk && (!strict || entry.Sha1 == "" || CheckSha1(entry.Dst, entry.Sha1) == nil) {
			return
		}
	}
	d.Add(entry)
}

// Count returns the number of queued entries.
func (d *DownloadManager) Count() int {
	return len(d.queue)
}

// Size returns the total expected size of all queued entries.
func (d *DownloadManager) Size() int64 {
	return d.totalSize
}

// Clear empties the queue so the manager can be reused for another batch.
func (d *DownloadManager) Clear() {
	d.queue = nil
	d.totalSize = 0
}

// EffectiveThreads returns the number of workers Start will spawn for the
// current queue.
func (d *DownloadManager) EffectiveThreads() int {
	threads := d.Threads
	if threads <= 0 {
		threads = runtime.GOMAXPROCS(0) * 4
	}
	if threads > maxThreads {
		threads = maxThreads
	}
	if threads > len(d.queue) {
		threads = len(d.queue)
	}
	return threads
}

type update struct {
	delta int64
	name  string
	done  bool
	err   *EntryError
}

// Start downloads the whole queue and blocks until every entry either
// succeeded or exhausted its tries. Returns a *BatchError listing the
// failed entries, or the context error when cancelled.
func (d *DownloadManager) Start(ctx context.Context) error {
	if len(d.queue) == 0 {
		return nil
	}

	// Big files first, this parallelizes better at the start and avoids
	// waiting on one big download at the end of the batch.
	slices.SortFunc(d.queue, func(a, b Entry) bool {
		return sortSize(a) > sortSize(b)
	})

	threads := d.EffectiveThreads()

	jobs := make(chan Entry)
	updates := make(chan update, threads*4)

	var wg sync.WaitGroup
	for i := 0; i < threads; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			buf := make([]byte, chunkSize)
			for entry := range jobs {
				err := d.download(ctx, entry, buf, updates)
				updates <- update{name: entry.DisplayName(), done: true, err: err}
			}
		}()
	}

	go func() {
		defer close(jobs)
		for _, entry := range d.queue {
			select {
			case jobs <- entry:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(updates)
	}()

	// A single dispatcher aggregates all updates so progress events come
	// out ordered and rate bound.
	var failed []*EntryError
	progress := Progress{TotalCount: len(d.queue), TotalSize: d.totalSize}
	emit := rate.Sometimes{First: 1, Interval: progressInterval}
	started := time.Now()

	for u := range updates {
		progress.Size += u.delta
		progress.Name = u.name
		if u.done {
			progress.Count++
			if u.err != nil {
				failed = append(failed, u.err)
			}
		}
		if elapsed := time.Since(started).Seconds(); elapsed > 0 {
			progress.Speed = float64(progress.Size) / elapsed
		}

		if d.OnProgress != nil {
			snapshot := progress
			if u.done && progress.Count == progress.TotalCount {
				// the final state is always delivered
				d.OnProgress(snapshot)
			} else {
				emit.Do(func() {
					d.OnProgress(snapshot)
				})
			}
		}
	}

	if err := ctx.Err(); err != nil {
		return err
	}
	if len(failed) != 0 {
		return &BatchError{failed}
	}
	return nil
}

func sortSize(e Entry) int64 {
	if e.Size == 0 {
		return unknownSortSize
	}
	return e.Size
}

// download tries a single entry up to maxTries times. A nil return with
// a cancelled context means the entry was aborted, not completed.
func (d *DownloadManager) download(ctx context.Context, entry Entry, buf []byte, updates chan<- update) *EntryError {
	client := d.Client
	if client == nil {
		client = http.DefaultClient
	}

	var last *EntryError
	for try := 0; try < maxTries; try++ {
		if ctx.Err() != nil {
			return nil
		}
		last = d.tryDownload(ctx, client, entry, buf, updates)
		if last == nil {
			return nil
		}
	}
	return last
}

func (d *DownloadManager) tryDownload(ctx context.Context, client *http.Client, entry Entry, buf []byte, updates chan<- update) *EntryError {
	fail := func(code string, err error) *EntryError {
		return &EntryError{Entry: entry, Code: code, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, entry.URL, nil)
	if err != nil {
		return fail(ErrorConnection, err)
	}

	res, err := client.Do(req)
	if err != nil {
		return fail(ErrorConnection, err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return fail(ErrorNotFound, nil)
	}

	if err := os.MkdirAll(filepath.Dir(entry.Dst), os.ModePerm); err != nil {
		return fail(ErrorConnection, err)
	}

	// Stream to a temp sibling and only rename verified files into place,
	// a partial or corrupt file must never shadow a good one.
	part := entry.Dst + ".part"
	dst, err := os.Create(part)
	if err != nil {
		return fail(ErrorConnection, err)
	}

	hasher := sha1.New()
	var size int64

	// rollback undoes the counted bytes of a failed try so the aggregated
	// progress only ever contains verified bytes
	discard := func(entryErr *EntryError) *EntryError {
		dst.Close()
		os.Remove(part)
		if size > 0 {
			updates <- update{delta: -size, name: entry.DisplayName()}
		}
		return entryErr
	}

	for {
		if ctx.Err() != nil {
			discard(nil)
			return nil
		}

		n, readErr := res.Body.Read(buf)
		if n > 0 {
			if _, err := dst.Write(buf[:n]); err != nil {
				return discard(fail(ErrorConnection, err))
			}
			if entry.Sha1 != "" {
				hasher.Write(buf[:n])
			}
			size += int64(n)
			updates <- update{delta: int64(n), name: entry.DisplayName()}
		}
		if readErr != nil {
			if readErr == io.EOF {
				break
			}
			return discard(fail(ErrorConnection, readErr))
		}
	}

	if err := dst.Sync(); err != nil {
		return discard(fail(ErrorConnection, err))
	}
	if err := dst.Close(); err != nil {
		return discard(fail(ErrorConnection, err))
	}

	if entry.Size != 0 && size != entry.Size {
		os.Remove(part)
		updates <- update{delta: -size, name: entry.DisplayName()}
		return fail(ErrorInvalidSize, nil)
	}
	if entry.Sha1 != "" {
		actual := hex.EncodeToString(hasher.Sum(nil))
		if actual != entry.Sha1 {
			os.Remove(part)
			updates <- update{delta: -size, name: entry.DisplayName()}
			return fail(ErrorInvalidSha1, nil)
		}
	}

	if entry.Executable {
		// everyone able to read the file may execute it
		if info, err := os.Stat(part); err == nil {
			mode := info.Mode()
			os.Chmod(part, mode|((mode&0444)>>2))
		}
	}

	if err := os.Rename(part, entry.Dst); err != nil {
		os.Remove(part)
		updates <- update{delta: -size, name: entry.DisplayName()}
		return fail(ErrorConnection, err)
	}
	return nil
}
