package utils

import (
	"context"
	"sync"
)

// RecordingRunner records every command instead of executing it. OnRun and
// OnOutput, when set, stand in for the program's side effects.
type RecordingRunner struct {
	OnRun    func(c Command) error
	OnOutput func(cmds []Command) ([]byte, error)

	mu       sync.Mutex
	commands []Command
}

func (r *RecordingRunner) Run(ctx context.Context, c Command) error {
	r.mu.Lock()
	r.commands = append(r.commands, c)
	r.mu.Unlock()
	if r.OnRun != nil {
		return r.OnRun(c)
	}
	return nil
}

func (r *RecordingRunner) Output(ctx context.Context, cmds ...Command) ([]byte, error) {
	r.mu.Lock()
	r.commands = append(r.commands, cmds...)
	r.mu.Unlock()
	if r.OnOutput != nil {
		return r.OnOutput(cmds)
	}
	return nil, nil
}

// Commands returns a copy of the recorded commands in call order.
func (r *RecordingRunner) Commands() []Command {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Command(nil), r.commands...)
}

// Names returns the program names of the recorded commands.
func (r *RecordingRunner) Names() []string {
	var names []string
	for _, c := range r.Commands() {
		names = append(names, c.Name)
	}
	return names
}
