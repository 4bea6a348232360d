package worker

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

const (
	barWidth       = 24
	maxListedFails = 5
)

// Progress accounts finished tasks: images done, maps written and the sources
// that failed. When enabled it redraws a status line on every result.
type Progress struct {
	mu      sync.Mutex
	out     io.Writer
	enabled bool
	start   time.Time

	total   int
	done    int
	maps    int
	failed  []string
	slowest Result
}

// NewProgress creates a tracker for total tasks.
func NewProgress(total int, enabled bool) *Progress {
	return &Progress{
		out:     os.Stderr,
		enabled: enabled,
		start:   time.Now(),
		total:   total,
	}
}

// Record accounts one finished task.
func (p *Progress) Record(r Result) {
	p.mu.Lock()
	p.done++
	if r.Err != nil {
		p.failed = append(p.failed, r.Task.Source)
	} else {
		p.maps += len(r.Written)
	}
	if r.Err == nil && r.Elapsed > p.slowest.Elapsed {
		p.slowest = r
	}
	line := p.statusLocked()
	p.mu.Unlock()

	if p.enabled {
		fmt.Fprint(p.out, line)
	}
}

// Callback adapts Record to Pool.Config.OnProgress.
func (p *Progress) Callback() ProgressFunc {
	return func(_, _ int, r Result) { p.Record(r) }
}

// Failed returns the sources whose tasks failed, in completion order.
func (p *Progress) Failed() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.failed...)
}

func (p *Progress) statusLocked() string {
	filled := 0
	if p.total > 0 {
		filled = min(p.done*barWidth/p.total, barWidth)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "\r[%s%s] %d/%d images, %d maps",
		strings.Repeat("#", filled), strings.Repeat(".", barWidth-filled), p.done, p.total, p.maps)
	if n := len(p.failed); n > 0 {
		fmt.Fprintf(&sb, ", %d failed", n)
	}

	elapsed := time.Since(p.start)
	if p.done > 0 && p.done < p.total {
		perImage := elapsed / time.Duration(p.done)
		fmt.Fprintf(&sb, " - ETA %s", formatDuration(perImage*time.Duration(p.total-p.done)))
	}
	// trailing spaces clear a longer previous line
	sb.WriteString("    ")
	return sb.String()
}

// Done ends the status line.
func (p *Progress) Done() {
	if p.enabled {
		fmt.Fprintln(p.out)
	}
}

// Summary describes the finished batch, naming failed sources and the slowest
// image.
func (p *Progress) Summary() string {
	p.mu.Lock()
	defer p.mu.Unlock()

	ok := p.done - len(p.failed)
	s := fmt.Sprintf("Generated %d maps from %d/%d images in %s",
		p.maps, ok, p.total, formatDuration(time.Since(p.start)))

	if n := len(p.failed); n > 0 {
		names := make([]string, 0, min(n, maxListedFails))
		for _, src := range p.failed[:min(n, maxListedFails)] {
			names = append(names, filepath.Base(src))
		}
		s += fmt.Sprintf("; %d failed: %s", n, strings.Join(names, ", "))
		if n > maxListedFails {
			s += fmt.Sprintf(" and %d more", n-maxListedFails)
		}
	}
	if p.slowest.Task.Source != "" && ok > 1 {
		s += fmt.Sprintf("; slowest %s (%s)", filepath.Base(p.slowest.Task.Source), p.slowest.Elapsed.Round(time.Millisecond))
	}
	return s
}

func formatDuration(d time.Duration) string {
	switch {
	case d < time.Minute:
		return fmt.Sprintf("%.0fs", d.Seconds())
	case d < time.Hour:
		return fmt.Sprintf("%dm%ds", int(d.Minutes()), int(d.Seconds())%60)
	default:
		return fmt.Sprintf("%dh%dm", int(d.Hours()), int(d.Minutes())%60)
	}
}
