// Package progressbar implements functionality of printing a progress
// bar to the terminal window
package progressbar

import (
	"fmt"
	"io"
	"strings"
	"time"
)

// ManualProgressBar implement progress bar functionality that must
// be manually managed. That is, the Display() function must be called
// whenever an updated progress bar should be printed to the screen.
//
// ManualProgressBar does not use concurrency.
type ManualProgressBar struct {
	out             io.Writer
	description     string
	postfix         string
	width           float64
	maxProgress     float64
	currentProgress float64
	bar             strings.Builder
	startTime       time.Time
}

// NewManualProgressBar returns a new ManualProgressBar which writes to
// out and reaches 100% after max progress
func NewManualProgressBar(out io.Writer, description string, width,
	max int) *ManualProgressBar {
	return &ManualProgressBar{
		out:             out,
		description:     description,
		width:           float64(width),
		maxProgress:     float64(max),
		currentProgress: 0,
		startTime:       time.Now(),
	}
}

// Add adds n to the internal progress counter, saturating at the
// maximum progress
func (p *ManualProgressBar) Add(n int) {
	p.currentProgress += float64(n)
	if p.currentProgress > p.maxProgress {
		p.currentProgress = p.maxProgress
	}
}

// Increment increments the interal progress counter.
func (p *ManualProgressBar) Increment() {
	p.Add(1)
}

// Progress returns the current progress
func (p *ManualProgressBar) Progress() int {
	return int(p.currentProgress)
}

// SetPostfix sets the text displayed after the bar
func (p *ManualProgressBar) SetPostfix(postfix string) {
	p.postfix = postfix
}

// String returns the current progress bar
func (p *ManualProgressBar) String() string {
	p.bar.Reset()
	if p.description != "" {
		p.bar.WriteString(p.description + " ")
	}
	p.bar.WriteString("|")

	frac := 1.0
	if p.maxProgress > 0 {
		frac = p.currentProgress / p.maxProgress
	}
	currentProg := frac * p.width
	for i := 0.0; i < currentProg; i++ {
		p.bar.WriteString("█")
	}
	for i := currentProg; i < p.width; i++ {
		p.bar.WriteString(" ")
	}
	p.bar.WriteString(fmt.Sprintf("| [%.2f%v | elapsed: %v]", frac*100, "%",
		time.Since(p.startTime).Truncate(time.Second)))
	if p.postfix != "" {
		p.bar.WriteString(" " + p.postfix)
	}

	return p.bar.String()
}

// Display displays the progress bar, overwriting the current line
func (p *ManualProgressBar) Display() {
	fmt.Fprintf(p.out, "\r\033[K%v", p.String())
}

// Finish displays the progress bar and moves to a new line
func (p *ManualProgressBar) Finish() {
	p.Display()
	fmt.Fprintln(p.out)
}
