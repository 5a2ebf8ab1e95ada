package utils

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
)

// Command is a single external program invocation. Every argument is passed
// to the program as a discrete element; nothing goes through a shell.
type Command struct {
	Name string
	Args []string
	Dir  string

	// Stdin and Stdout name files standing in for shell redirections.
	// Relative paths are resolved against Dir.
	Stdin  string
	Stdout string

	// Log receives the program's output (stdout unless redirected, and stderr).
	Log string
}

func (c Command) String() string {
	parts := make([]string, 0, len(c.Args)+1)
	parts = append(parts, quoteArg(c.Name))
	for _, a := range c.Args {
		parts = append(parts, quoteArg(a))
	}
	s := strings.Join(parts, " ")
	if c.Stdin != "" {
		s += " < " + quoteArg(c.Stdin)
	}
	if c.Stdout != "" {
		s += " > " + quoteArg(c.Stdout)
	}
	return s
}

func quoteArg(a string) string {
	if a == "" || strings.ContainsAny(a, " \t\n'\"") {
		return strconv.Quote(a)
	}
	return a
}

func (c Command) path(p string) string {
	if p == "" || filepath.IsAbs(p) || c.Dir == "" {
		return p
	}
	return filepath.Join(c.Dir, p)
}

// Runner executes external commands. The workflow only talks to external
// tools through a Runner so tests can substitute a recording fake.
type Runner interface {
	// Run executes c and waits for it to exit.
	Run(ctx context.Context, c Command) error
	// Output runs cmds as a pipeline, each stdout feeding the next stdin,
	// and returns the stdout of the last command.
	Output(ctx context.Context, cmds ...Command) ([]byte, error)
}

// CommandError reports a failed external command together with the tail of
// what it printed.
type CommandError struct {
	Cmd    string
	Output string
	Err    error
}

func (e *CommandError) Error() string {
	msg := fmt.Sprintf("command failed: %s: %v", e.Cmd, e.Err)
	if out := strings.TrimSpace(e.Output); out != "" {
		msg += "\n" + out
	}
	return msg
}

func (e *CommandError) Unwrap() error { return e.Err }

// ExitCode is the exit status of the failed process, or 1 when the process
// never started.
func (e *CommandError) ExitCode() int {
	var exitErr *exec.ExitError
	if errors.As(e.Err, &exitErr) && exitErr.ExitCode() > 0 {
		return exitErr.ExitCode()
	}
	return 1
}

const outputTail = 8 << 10

// ExecRunner runs commands with os/exec.
type ExecRunner struct {
	// Verbose mirrors tool output on stderr.
	Verbose bool
}

func (r ExecRunner) Run(ctx context.Context, c Command) error {
	cmd := exec.CommandContext(ctx, c.Name, c.Args...)
	cmd.Dir = c.Dir

	tail := &tailBuffer{max: outputTail}
	sinks := []io.Writer{tail}
	if c.Log != "" {
		logFile, err := os.OpenFile(c.path(c.Log), os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0644)
		if err != nil {
			return fmt.Errorf("opening tool log %s: %w", c.Log, err)
		}
		defer logFile.Close()
		fmt.Fprintf(logFile, "$ %s\n", c)
		sinks = append(sinks, logFile)
	}
	if r.Verbose {
		sinks = append(sinks, os.Stderr)
	}
	out := io.MultiWriter(sinks...)
	cmd.Stdout = out
	cmd.Stderr = out

	if c.Stdin != "" {
		in, err := os.Open(c.path(c.Stdin))
		if err != nil {
			return &CommandError{Cmd: c.String(), Err: err}
		}
		defer in.Close()
		cmd.Stdin = in
	}
	if c.Stdout != "" {
		f, err := os.Create(c.path(c.Stdout))
		if err != nil {
			return &CommandError{Cmd: c.String(), Err: err}
		}
		defer f.Close()
		cmd.Stdout = f
	}

	if err := cmd.Run(); err != nil {
		return &CommandError{Cmd: c.String(), Output: tail.String(), Err: err}
	}
	return nil
}

func (r ExecRunner) Output(ctx context.Context, cmds ...Command) ([]byte, error) {
	if len(cmds) == 0 {
		return nil, errors.New("empty pipeline")
	}
	procs := make([]*exec.Cmd, len(cmds))
	tails := make([]*tailBuffer, len(cmds))
	for i, c := range cmds {
		p := exec.CommandContext(ctx, c.Name, c.Args...)
		p.Dir = c.Dir
		tails[i] = &tailBuffer{max: outputTail}
		p.Stderr = tails[i]
		procs[i] = p
	}
	for i := 1; i < len(procs); i++ {
		pipe, err := procs[i-1].StdoutPipe()
		if err != nil {
			return nil, err
		}
		procs[i].Stdin = pipe
	}
	var out bytes.Buffer
	procs[len(procs)-1].Stdout = &out

	for i, p := range procs {
		if err := p.Start(); err != nil {
			for _, started := range procs[:i] {
				_ = started.Process.Kill()
				_ = started.Wait()
			}
			return nil, &CommandError{Cmd: cmds[i].String(), Err: err}
		}
	}
	var firstErr error
	for i, p := range procs {
		if err := p.Wait(); err != nil && firstErr == nil {
			firstErr = &CommandError{Cmd: cmds[i].String(), Output: tails[i].String(), Err: err}
		}
	}
	if firstErr != nil {
		return nil, firstErr
	}
	return out.Bytes(), nil
}

// tailBuffer keeps the last max bytes written to it.
type tailBuffer struct {
	max int
	buf []byte
}

func (t *tailBuffer) Write(p []byte) (int, error) {
	t.buf = append(t.buf, p...)
	if over := len(t.buf) - t.max; over > 0 {
		t.buf = append(t.buf[:0], t.buf[over:]...)
	}
	return len(p), nil
}

func (t *tailBuffer) String() string { return string(t.buf) }
