package ui

import (
	"fmt"
	"io"
	"sync"

	"github.com/charmbracelet/bubbles/progress"
)

// ProgressBar renders a single-line progress bar that redraws in place.
type ProgressBar struct {
	mu    sync.Mutex
	out   io.Writer
	label string
	bar   progress.Model
	last  int
}

// NewProgressBar returns a bar writing to out. Nothing is drawn until the first update.
func NewProgressBar(out io.Writer, label string) *ProgressBar {
	return &ProgressBar{
		out:   out,
		label: label,
		bar:   progress.New(progress.WithDefaultGradient(), progress.WithWidth(40)),
		last:  -1,
	}
}

// Update redraws the bar when the whole-percent value changes. A total of zero or less draws nothing.
func (p *ProgressBar) Update(done, total int64) {
	if total <= 0 {
		return
	}
	pct := int(done * 100 / total)
	if pct > 100 {
		pct = 100
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if pct == p.last {
		return
	}
	p.last = pct
	fmt.Fprintf(p.out, "\r%s %s %3d%%", p.label, p.bar.ViewAs(float64(pct)/100), pct)
}

// Count adapts Update to item counters.
func (p *ProgressBar) Count(done, total int) {
	p.Update(int64(done), int64(total))
}

// SetLabel switches the label and resets the bar for the next stage.
func (p *ProgressBar) SetLabel(label string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.last >= 0 {
		fmt.Fprintln(p.out)
	}
	p.label = label
	p.last = -1
}

// Done ends the line if anything was drawn.
func (p *ProgressBar) Done() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.last >= 0 {
		fmt.Fprintln(p.out)
	}
	p.last = -1
}
