package utils

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	slogmulti "github.com/samber/slog-multi"
)

// Step statuses recorded in the run log.
const (
	StatusStarted  = "STARTED"
	StatusFinished = "FINISHED"
	StatusFailed   = "FAILED"
	StatusSkipped  = "SKIPPED"
)

// LogEntry is one JSON record of the run log.
type LogEntry struct {
	Timestamp time.Time `json:"time"`
	Level     string    `json:"level"`
	Msg       string    `json:"msg"`
	Step      string    `json:"STEP"`
	Genome    string    `json:"GENOME"`
	Status    string    `json:"STATUS"`
	Cmd       string    `json:"CMD"`
}

// NewRunLogger opens (appending) the JSON run log at logPath and returns a
// logger writing to it and, in text form, to console.
func NewRunLogger(logPath string, console io.Writer) (*slog.Logger, io.Closer, error) {
	logFile, err := os.OpenFile(logPath, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
	if err != nil {
		return nil, nil, err
	}
	handler := slogmulti.Fanout(
		slog.NewJSONHandler(logFile, &slog.HandlerOptions{Level: slog.LevelDebug}),
		slog.NewTextHandler(console, &slog.HandlerOptions{Level: slog.LevelInfo}),
	)
	return slog.New(handler), logFile, nil
}

// ParseLogFile reads every well-formed record of a JSON run log. Lines that
// are not JSON are ignored.
func ParseLogFile(logPath string) ([]LogEntry, error) {
	f, err := os.Open(logPath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var entries []LogEntry
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64<<10), 1<<20)
	for scanner.Scan() {
		var e LogEntry
		if err := json.Unmarshal(scanner.Bytes(), &e); err != nil {
			continue
		}
		entries = append(entries, e)
	}
	return entries, scanner.Err()
}

// StageHasCompleted reports whether the latest record for step (and genome,
// when given) is FINISHED.
func StageHasCompleted(entries []LogEntry, step, genome string) bool {
	completed := false
	for _, e := range entries {
		if e.Step != step || (genome != "" && e.Genome != genome) {
			continue
		}
		switch e.Status {
		case StatusFinished:
			completed = true
		case StatusStarted, StatusFailed:
			completed = false
		}
	}
	return completed
}

// RunLogged runs cmd, recording STARTED and then FINISHED or FAILED for it
// in logger. The step is named after the program.
func RunLogged(ctx context.Context, runner Runner, logger *slog.Logger, genome string, cmd Command) error {
	step := filepath.Base(cmd.Name)
	if genome == "" {
		genome = "ALL"
	}
	logger.Info("GenFlow", "STEP", step, "GENOME", genome, "STATUS", StatusStarted, "CMD", cmd.String())
	if err := runner.Run(ctx, cmd); err != nil {
		logger.Error("GenFlow", "STEP", step, "GENOME", genome, "STATUS", StatusFailed, "error", err)
		return err
	}
	logger.Info("GenFlow", "STEP", step, "GENOME", genome, "STATUS", StatusFinished)
	return nil
}
