package main

import (
	"io"

	"github.com/fatih/color"
	"github.com/schollz/progressbar/v3"
)

var (
	successColor = color.New(color.FgGreen, color.Bold)
	warnColor    = color.New(color.FgYellow)
)

// barProgress renders pipeline progress as a terminal progress bar.
type barProgress struct {
	bar *progressbar.ProgressBar
}

// newBarProgress creates a bar for total rows; total <= 0 renders a spinner.
func newBarProgress(w io.Writer, total int, description string) *barProgress {
	if total <= 0 {
		total = -1
	}
	bar := progressbar.NewOptions(total,
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetDescription(color.BlueString(description)),
		progressbar.OptionSetItsString("rows"),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "█",
			SaucerHead:    "█",
			SaucerPadding: "░",
			BarStart:      "[",
			BarEnd:        "]",
		}),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetPredictTime(true),
		progressbar.OptionSetRenderBlankState(true),
	)
	return &barProgress{bar: bar}
}

func (p *barProgress) Start() {
	p.bar.Reset()
}

func (p *barProgress) Increment(delta int) {
	_ = p.bar.Add(delta)
}

func (p *barProgress) Finish() {
	_ = p.bar.Finish()
}
