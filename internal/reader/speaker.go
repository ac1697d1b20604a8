package reader

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
)

// ErrNoSpeaker is returned when no speech command is installed.
var ErrNoSpeaker = errors.New("no speech synthesizer found (install espeak or use macOS say)")

// speechCommands are tried in order.
var speechCommands = []string{"espeak-ng", "espeak", "say"}

// ExecSpeaker speaks through an external command, passing the text as the
// last argument. Cancelling the context kills the process.
type ExecSpeaker struct {
	Command string
	Args    []string
}

// NewExecSpeaker returns a speaker for the first speech command on PATH.
func NewExecSpeaker() (*ExecSpeaker, error) {
	for _, name := range speechCommands {
		if path, err := exec.LookPath(name); err == nil {
			return &ExecSpeaker{Command: path}, nil
		}
	}
	return nil, ErrNoSpeaker
}

// Speak implements Speaker.
func (s *ExecSpeaker) Speak(ctx context.Context, text string) error {
	args := append(append([]string{}, s.Args...), text)
	cmd := exec.CommandContext(ctx, s.Command, args...)
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("running %s: %w", s.Command, err)
	}
	return nil
}

// Silent is a Speaker that plays nothing and runs until cancelled. It backs
// the terminal client when no speech command is installed.
type Silent struct{}

// Speak implements Speaker.
func (Silent) Speak(ctx context.Context, _ string) error {
	<-ctx.Done()
	return ctx.Err()
}
