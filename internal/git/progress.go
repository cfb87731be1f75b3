package git

import (
	"bytes"
	"context"
	"errors"
	"io"
	"regexp"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/go-git/go-git/v5/plumbing/format/packfile"
	"github.com/go-git/go-git/v5/storage/filesystem"
)

// ErrCancelled is returned by the transfer when a progress callback asks to stop
var ErrCancelled = errors.New("transfer cancelled by progress callback")

// Progress is a snapshot of pack transfer and indexing counters.
// Within one transfer every counter is non-decreasing.
type Progress struct {
	// TotalObjects is the number of objects in the pack being received
	TotalObjects uint32

	// IndexedObjects is the number of received objects that have been indexed
	IndexedObjects uint32

	// ReceivedObjects is the number of objects downloaded so far
	ReceivedObjects uint32

	// LocalObjects is the number of local objects injected to complete a thin pack
	LocalObjects uint32

	// TotalDeltas is the number of deltas in the pack
	TotalDeltas uint32

	// IndexedDeltas is the number of deltas that have been indexed
	IndexedDeltas uint32

	// ReceivedBytes is the size of the pack received so far
	ReceivedBytes uint64
}

// Fraction returns indexed objects over total objects, 0 when the total is unknown
func (p Progress) Fraction() float64 {
	if p.TotalObjects == 0 {
		return 0
	}
	return float64(p.IndexedObjects) / float64(p.TotalObjects)
}

// ReceivedFraction returns received objects over total objects, 0 when the total is unknown
func (p Progress) ReceivedFraction() float64 {
	if p.TotalObjects == 0 {
		return 0
	}
	return float64(p.ReceivedObjects) / float64(p.TotalObjects)
}

// ProgressFunc receives progress snapshots on the transfer goroutine.
// Returning false cancels the transfer.
type ProgressFunc func(Progress) bool

// progressTracker owns the counters of one transfer and relays them to the caller
type progressTracker struct {
	onProgress ProgressFunc
	cancel     context.CancelCauseFunc
	cancelled  atomic.Bool

	mu       sync.Mutex
	progress Progress
}

func newProgressTracker(onProgress ProgressFunc, cancel context.CancelCauseFunc) *progressTracker {
	return &progressTracker{onProgress: onProgress, cancel: cancel}
}

// update applies fn to a copy of the counters and keeps every counter at least at its previous value
func (t *progressTracker) update(fn func(p *Progress)) {
	t.mu.Lock()
	defer t.mu.Unlock()

	next := t.progress
	fn(&next)
	t.progress = Progress{
		TotalObjects:    max(t.progress.TotalObjects, next.TotalObjects),
		IndexedObjects:  max(t.progress.IndexedObjects, next.IndexedObjects),
		ReceivedObjects: max(t.progress.ReceivedObjects, next.ReceivedObjects),
		LocalObjects:    max(t.progress.LocalObjects, next.LocalObjects),
		TotalDeltas:     max(t.progress.TotalDeltas, next.TotalDeltas),
		IndexedDeltas:   max(t.progress.IndexedDeltas, next.IndexedDeltas),
		ReceivedBytes:   max(t.progress.ReceivedBytes, next.ReceivedBytes),
	}
}

func (t *progressTracker) snapshot() Progress {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.progress
}

// report hands a snapshot to the callback and turns a false return into cancellation
func (t *progressTracker) report() error {
	if t.cancelled.Load() {
		return ErrCancelled
	}
	if t.onProgress == nil {
		return nil
	}
	if !t.onProgress(t.snapshot()) {
		t.cancelled.Store(true)
		if t.cancel != nil {
			t.cancel(ErrCancelled)
		}
		return ErrCancelled
	}
	return nil
}

func (t *progressTracker) isCancelled() bool {
	return t.cancelled.Load()
}

// progressStorage is filesystem storage whose pack writes feed a progressTracker
type progressStorage struct {
	*filesystem.Storage
	tracker *progressTracker
}

// PackfileWriter wraps the storage's pack writer so every received chunk is counted and reported
func (s *progressStorage) PackfileWriter() (io.WriteCloser, error) {
	w, err := s.Storage.PackfileWriter()
	if err != nil {
		return nil, err
	}
	return newPackWriter(w, s.tracker), nil
}

// packWriter tees the incoming pack into a scanner that counts objects as they complete
type packWriter struct {
	w       io.WriteCloser
	tracker *progressTracker

	pipe *io.PipeWriter
	done chan struct{}
}

func newPackWriter(w io.WriteCloser, tracker *progressTracker) *packWriter {
	pr, pw := io.Pipe()
	p := &packWriter{
		w:       w,
		tracker: tracker,
		pipe:    pw,
		done:    make(chan struct{}),
	}
	go p.scan(pr)
	return p
}

// Write stores the chunk, feeds the scanner and reports progress
func (p *packWriter) Write(b []byte) (int, error) {
	if p.tracker.isCancelled() {
		return 0, ErrCancelled
	}

	n, err := p.w.Write(b)
	if n > 0 {
		p.tracker.update(func(pr *Progress) {
			pr.ReceivedBytes += uint64(n)
		})
		// The scanner drains the pipe even after a parse error, so this cannot block forever
		_, _ = p.pipe.Write(b[:n])
	}
	if err != nil {
		return n, err
	}
	if err := p.tracker.report(); err != nil {
		return n, err
	}
	return n, nil
}

// Close waits for the scanner, lets the storage index the pack and reports the final counters
func (p *packWriter) Close() error {
	_ = p.pipe.Close()
	<-p.done

	if p.tracker.isCancelled() {
		_ = p.w.Close()
		return ErrCancelled
	}

	if err := p.w.Close(); err != nil {
		return err
	}

	p.tracker.update(func(pr *Progress) {
		pr.ReceivedObjects = pr.TotalObjects
		pr.IndexedObjects = pr.TotalObjects
		pr.IndexedDeltas = pr.TotalDeltas
	})
	return p.tracker.report()
}

func (p *packWriter) scan(r *io.PipeReader) {
	defer close(p.done)
	// Whatever happens below, keep consuming so Write never stalls on the pipe
	defer func() {
		_, _ = io.Copy(io.Discard, r)
	}()

	scanner := packfile.NewScanner(r)
	_, objects, err := scanner.Header()
	if err != nil {
		return
	}
	p.tracker.update(func(pr *Progress) {
		pr.TotalObjects = objects
	})

	// Whole objects are indexed as soon as they are read; deltas are resolved when the pack closes
	var deltas, indexed uint32
	for i := uint32(0); i < objects; i++ {
		header, err := scanner.NextObjectHeader()
		if err != nil {
			return
		}
		if _, _, err := scanner.NextObject(io.Discard); err != nil {
			return
		}
		if header.Type.IsDelta() {
			deltas++
		} else {
			indexed++
		}
		received, seenDeltas, seenIndexed := i+1, deltas, indexed
		p.tracker.update(func(pr *Progress) {
			pr.ReceivedObjects = received
			pr.IndexedObjects = seenIndexed
			pr.TotalDeltas = seenDeltas
		})
	}
}

var (
	sidebandTotal    = regexp.MustCompile(`Total (\d+) \(delta (\d+)\)`)
	sidebandCounting = regexp.MustCompile(`Counting objects:\s+\d+% \((\d+)/(\d+)\)`)
)

// sidebandWriter parses the server's textual progress messages into counters
type sidebandWriter struct {
	tracker *progressTracker
	partial []byte
}

func (s *sidebandWriter) Write(b []byte) (int, error) {
	s.partial = append(s.partial, b...)
	for {
		i := bytes.IndexAny(s.partial, "\r\n")
		if i < 0 {
			break
		}
		s.parseLine(s.partial[:i])
		s.partial = s.partial[i+1:]
	}
	if err := s.tracker.report(); err != nil {
		return len(b), err
	}
	return len(b), nil
}

func (s *sidebandWriter) parseLine(line []byte) {
	if m := sidebandTotal.FindSubmatch(line); m != nil {
		total := parseUint32(m[1])
		deltas := parseUint32(m[2])
		s.tracker.update(func(pr *Progress) {
			pr.TotalObjects = total
			pr.TotalDeltas = deltas
		})
		return
	}
	if m := sidebandCounting.FindSubmatch(line); m != nil {
		total := parseUint32(m[2])
		s.tracker.update(func(pr *Progress) {
			pr.TotalObjects = total
		})
	}
}

func parseUint32(b []byte) uint32 {
	v, err := strconv.ParseUint(string(b), 10, 32)
	if err != nil {
		return 0
	}
	return uint32(v)
}
