package tui

import (
	"io"
	"time"

	"github.com/schollz/progressbar/v3"
)

// NewProgress creates a byte progress bar writing to w.
func NewProgress(w io.Writer, total int64, description string) *progressbar.ProgressBar {
	return progressbar.NewOptions64(total,
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetDescription(description),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowBytes(true),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "█",
			SaucerHead:    "█",
			SaucerPadding: "░",
			BarStart:      "",
			BarEnd:        "",
		}),
		progressbar.OptionThrottle(100*time.Millisecond),
		progressbar.OptionClearOnFinish(),
	)
}

// ProgressReader wraps r so reads advance a progress bar of size bytes.
// The returned func finishes the bar.
func ProgressReader(r io.Reader, w io.Writer, size int64, description string) (io.Reader, func()) {
	bar := NewProgress(w, size, description)
	pr := progressbar.NewReader(r, bar)
	return &pr, func() { _ = bar.Finish() }
}
