package app

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"golang.org/x/term"

	"github.com/stacklok/toolhive-assetsync/internal/git"
)

// progressInterval limits how often the progress line is redrawn
const progressInterval = 100 * time.Millisecond

// progressLine renders transfer progress on a single terminal line
type progressLine struct {
	mu       sync.Mutex
	w        io.Writer
	label    string
	last     time.Time
	rendered bool
}

// newProgress returns a progress callback drawing on stderr, or nil when stderr is not a terminal
func newProgress(label string) (git.ProgressFunc, func()) {
	if !term.IsTerminal(int(os.Stderr.Fd())) {
		return nil, func() {}
	}
	line := &progressLine{w: os.Stderr, label: label}
	return line.report, line.done
}

func (l *progressLine) report(p git.Progress) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	if l.rendered && now.Sub(l.last) < progressInterval && p.IndexedObjects < p.TotalObjects {
		return true
	}
	l.last = now
	l.rendered = true
	_, _ = fmt.Fprintf(l.w, "\r%s", formatProgress(l.label, p))
	return true
}

func (l *progressLine) done() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.rendered {
		_, _ = fmt.Fprintln(l.w)
	}
}

// formatProgress describes p as "<label>: 42% (420/1000 objects, 1.2 MiB)"
func formatProgress(label string, p git.Progress) string {
	if p.TotalObjects == 0 {
		return fmt.Sprintf("%s: %s received", label, humanize.IBytes(p.ReceivedBytes))
	}
	return fmt.Sprintf("%s: %3.0f%% (%d/%d objects, %s)",
		label,
		p.Fraction()*100,
		p.IndexedObjects,
		p.TotalObjects,
		humanize.IBytes(p.ReceivedBytes))
}
