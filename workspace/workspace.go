// Package workspace lays out the directories of a GenFlow run.
package workspace

import (
	"fmt"
	"os"
	"path/filepath"
)

// Directory names below the run root.
const (
	LogsDir         = "logs"
	IntermediateDir = "Intermediate"
	ResultsDir      = "results"
)

// Layout holds the absolute paths of a run's directories. Every step takes
// its paths from a Layout instead of changing the process working directory.
type Layout struct {
	Root         string
	Logs         string
	Intermediate string
	Results      string
}

func New(root string) Layout {
	return Layout{
		Root:         root,
		Logs:         filepath.Join(root, LogsDir),
		Intermediate: filepath.Join(root, IntermediateDir),
		Results:      filepath.Join(root, ResultsDir),
	}
}

// Prepare creates the directories. Existing directories are left alone.
func (l Layout) Prepare() error {
	for _, dir := range []string{l.Logs, l.Intermediate, l.Results} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("creating %s: %w", dir, err)
		}
	}
	return nil
}

// ToolLog is the log file collecting the output of one step's tools.
func (l Layout) ToolLog(step string) string {
	return filepath.Join(l.Logs, step+".log")
}

// RunLog is the structured JSON log of the whole run.
func (l Layout) RunLog() string {
	return filepath.Join(l.Logs, "genflow.log")
}
