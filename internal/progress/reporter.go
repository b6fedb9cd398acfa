package progress

import (
	"fmt"
	"io"
	"os"

	"github.com/schollz/progressbar/v3"

	"github.com/ziadkadry99/propwise/internal/rag"
)

// Reporter provides progress feedback during ingestion.
type Reporter interface {
	Start(total int)
	Update(current int, message string)
	Finish()
}

// NewReporter returns a CIReporter if the CI environment variable is set,
// or a TerminalReporter otherwise.
func NewReporter() Reporter {
	if os.Getenv("CI") != "" || os.Getenv("GITHUB_ACTIONS") != "" {
		return &CIReporter{w: os.Stderr}
	}
	return &TerminalReporter{}
}

// TerminalReporter displays a progress bar in the terminal.
type TerminalReporter struct {
	bar *progressbar.ProgressBar
}

func (r *TerminalReporter) Start(total int) {
	r.bar = progressbar.NewOptions(total,
		progressbar.OptionSetDescription("Ingesting"),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
	)
}

func (r *TerminalReporter) Update(current int, message string) {
	if r.bar != nil {
		r.bar.Describe(message)
		_ = r.bar.Set(current)
	}
}

func (r *TerminalReporter) Finish() {
	if r.bar != nil {
		_ = r.bar.Finish()
	}
}

// CIReporter prints line-by-line progress suitable for CI logs.
type CIReporter struct {
	w     io.Writer
	total int
}

// NewCIReporter returns a CIReporter writing to w.
func NewCIReporter(w io.Writer) *CIReporter {
	return &CIReporter{w: w}
}

func (r *CIReporter) Start(total int) {
	r.total = total
}

func (r *CIReporter) Update(current int, message string) {
	fmt.Fprintf(r.w, "[%d/%d] %s\n", current, r.total, message)
}

func (r *CIReporter) Finish() {}

// stageSteps numbers the ingestion milestones for the bar.
var stageSteps = map[rag.Stage]int{
	rag.StageInitializing: 1,
	rag.StageResetting:    2,
	rag.StageLoading:      3,
	rag.StageSplitting:    4,
	rag.StageEmbedding:    5,
	rag.StageDone:         6,
}

// Steps is the number of milestones in a successful ingestion.
const Steps = 6

// Milestones adapts a Reporter to the pipeline's event callback. The
// reporter is started on the first event and finished on the terminal one.
func Milestones(r Reporter) func(rag.Event) {
	started := false
	last := 0
	return func(e rag.Event) {
		if !started {
			r.Start(Steps)
			started = true
		}
		step, ok := stageSteps[e.Stage]
		if !ok {
			step = last
		}
		last = step
		msg := e.Message
		if e.Stage == rag.StageFailed && e.Error != "" {
			msg = e.Message + ": " + e.Error
		}
		r.Update(step, msg)
		if e.Stage.Terminal() {
			r.Finish()
		}
	}
}
