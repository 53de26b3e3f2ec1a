package cli

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/codemap-dev/codemapd/internal/model"
)

// stageReporter paints pipeline progress on stderr. It stays silent when
// stderr is not a terminal or when machine-readable output was requested.
type stageReporter struct {
	enabled bool
	start   time.Time
	lastLen int
	done    bool
}

func newStageReporter(asJSON bool) *stageReporter {
	stat, err := os.Stderr.Stat()
	enabled := err == nil && (stat.Mode()&os.ModeCharDevice) != 0 && !asJSON
	return &stageReporter{enabled: enabled, start: time.Now()}
}

func (r *stageReporter) Update(p model.Progress) {
	if !r.enabled {
		return
	}
	status := fmt.Sprintf("[%3d%%] %s", p.ProgressPercent, p.CurrentStep)
	if p.FilesAnalyzed > 0 {
		status += fmt.Sprintf(" (%d files)", p.FilesAnalyzed)
	}
	if p.NodesFound > 0 {
		status += fmt.Sprintf(" (%d nodes, %d edges)", p.NodesFound, p.EdgesFound)
	}
	r.printStatus(status)
}

func (r *stageReporter) Done() {
	if !r.enabled || r.done {
		return
	}
	r.done = true
	elapsed := time.Since(r.start).Round(time.Millisecond)
	r.printStatus(fmt.Sprintf("finished in %s", elapsed))
	fmt.Fprintln(os.Stderr)
}

func (r *stageReporter) printStatus(status string) {
	if r.lastLen > len(status) {
		status = status + strings.Repeat(" ", r.lastLen-len(status))
	}
	r.lastLen = len(status)
	fmt.Fprintf(os.Stderr, "\r%s", status)
}
