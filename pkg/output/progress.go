package output

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/cheggaaa/pb/v3"
	"golang.org/x/term"

	"github.com/sdejongh/diffnorris/pkg/models"
)

const progressTemplate = `{{counters . }} {{bar . "[" "=" ">" " " "]"}} {{percent . }} {{string . "status"}} {{etime . }}`

// defaultTermWidth is used when the writer is not a terminal
const defaultTermWidth = 100

// ProgressFormatter renders a progress bar while the batch runs and the
// human summary once it completes
type ProgressFormatter struct {
	mu        sync.Mutex
	writer    io.Writer
	bar       *pb.ProgressBar
	termWidth int
	startTime time.Time
}

// NewProgressFormatter creates a new progress bar formatter
func NewProgressFormatter() *ProgressFormatter {
	return &ProgressFormatter{}
}

// Start initializes the bar
func (f *ProgressFormatter) Start(writer io.Writer, totalPairs int, fingerprint string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if writer == nil {
		writer = os.Stdout
	}
	f.writer = writer
	f.startTime = time.Now()

	// Detect terminal width to prevent line wrapping
	f.termWidth = 0
	if file, ok := writer.(*os.File); ok {
		if width, _, err := term.GetSize(int(file.Fd())); err == nil && width > 0 {
			f.termWidth = width
		}
	}
	if f.termWidth == 0 {
		f.termWidth = defaultTermWidth
	}

	fmt.Fprintf(writer, "Comparing %d document pairs (config %s)\n", totalPairs, fingerprint)

	f.bar = pb.New(totalPairs)
	f.bar.SetTemplateString(progressTemplate)
	f.bar.SetWriter(writer)
	f.bar.SetWidth(f.termWidth)
	f.bar.SetRefreshRate(200 * time.Millisecond)
	f.bar.Set("status", string(models.StatusSubmitted))
	f.bar.Start()

	return nil
}

// Progress moves the bar
func (f *ProgressFormatter) Progress(update ProgressUpdate) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.bar == nil {
		return nil
	}
	f.bar.SetCurrent(int64(update.Completed))
	f.bar.Set("status", update.Status)
	return nil
}

// Complete stops the bar and prints the summary
func (f *ProgressFormatter) Complete(result *models.BatchResult) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.bar != nil {
		f.bar.SetCurrent(int64(len(result.Items)))
		f.bar.Set("status", string(result.Status))
		f.bar.Finish()
		f.bar = nil
	}

	if f.writer == nil {
		f.writer = io.Discard
	}
	fmt.Fprintf(f.writer, "Compared %d of %d pairs in %s\n", len(result.Items), result.TotalPairs, formatDuration(time.Since(f.startTime)))
	writeSummary(f.writer, result)
	return nil
}

// Error prints an error below the bar
func (f *ProgressFormatter) Error(err error) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.writer != nil {
		fmt.Fprintf(f.writer, "\nError: %v\n", err)
	}
	return nil
}

// Name returns the formatter name
func (f *ProgressFormatter) Name() string {
	return "progress"
}
