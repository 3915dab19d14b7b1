package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/schollz/progressbar/v3"

	"github.com/mvp-joe/symtree/internal/batch"
)

// progressReporter draws a progress bar while a batch runs.
type progressReporter struct {
	quiet bool
	w     io.Writer
	bar   *progressbar.ProgressBar
}

func newProgressReporter(w io.Writer, quiet bool) *progressReporter {
	return &progressReporter{quiet: quiet, w: w}
}

// Start prepares a bar for total units.
func (p *progressReporter) Start(total int, description string) {
	if p.quiet || total == 0 {
		return
	}
	w := p.w
	p.bar = progressbar.NewOptions(total,
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetDescription(description),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("files/s"),
		progressbar.OptionThrottle(65*time.Millisecond),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprintln(w)
		}),
	)
}

// OnProgress advances the bar. Batch serializes calls.
func (p *progressReporter) OnProgress() batch.ProgressFunc {
	return func(done, total int, path string) {
		if p.bar != nil {
			_ = p.bar.Add(1)
		}
	}
}

// Finish completes the bar if one is drawn.
func (p *progressReporter) Finish() {
	if p.bar != nil {
		_ = p.bar.Finish()
		p.bar = nil
	}
}

// formatNumber adds thousands separators.
func formatNumber(n int) string {
	if n < 1000 && n > -1000 {
		return fmt.Sprintf("%d", n)
	}

	str := fmt.Sprintf("%d", n)
	sign := ""
	if str[0] == '-' {
		sign, str = "-", str[1:]
	}
	var result []byte
	for i := range len(str) {
		if i > 0 && (len(str)-i)%3 == 0 {
			result = append(result, ',')
		}
		result = append(result, str[i])
	}
	return sign + string(result)
}
