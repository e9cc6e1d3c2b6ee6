package notify

import (
	"context"
	"fmt"
	"os/exec"
	"sync"
)

// CommandExecutor runs an external program.
type CommandExecutor interface {
	LookPath(name string) (string, error)
	Run(ctx context.Context, name string, args ...string) error
}

type execExecutor struct{}

func (execExecutor) LookPath(name string) (string, error) { return exec.LookPath(name) }

func (execExecutor) Run(ctx context.Context, name string, args ...string) error {
	out, err := exec.CommandContext(ctx, name, args...).CombinedOutput()
	if err != nil {
		return fmt.Errorf("%s: %w: %s", name, err, out)
	}
	return nil
}

// ExecExecutor runs commands with os/exec.
func ExecExecutor() CommandExecutor { return execExecutor{} }

// CommandSender shows notifications with a notify-send compatible command.
// The tag is passed as the synchronous hint so the desktop replaces an older
// bubble for the same task instead of stacking a new one. The notification id
// travels as a custom hint so desktop logs can be matched to stm.log.
type CommandSender struct {
	Command  string
	AppName  string
	Executor CommandExecutor
}

func (s CommandSender) Send(ctx context.Context, n Notification) error {
	args := []string{
		"--app-name=" + s.appName(),
		"--hint=string:x-canonical-private-synchronous:" + n.Tag,
		"--hint=string:x-dunst-stack-tag:" + n.Tag,
		"--hint=string:x-stm-notification-id:" + n.ID.String(),
		n.Title,
		n.Body,
	}
	return s.executor().Run(ctx, s.Command, args...)
}

func (s CommandSender) appName() string {
	if s.AppName == "" {
		return "stm"
	}
	return s.AppName
}

func (s CommandSender) executor() CommandExecutor {
	if s.Executor == nil {
		return ExecExecutor()
	}
	return s.Executor
}

// ModeNegotiator resolves permission from the configured mode: "on" grants,
// "off" denies, "auto" grants only when the command is installed.
type ModeNegotiator struct {
	Mode     string
	Command  string
	Executor CommandExecutor
}

func (m ModeNegotiator) Request(context.Context) (Permission, error) {
	switch m.Mode {
	case "on":
		return PermissionGranted, nil
	case "off":
		return PermissionDenied, nil
	}
	exe := m.Executor
	if exe == nil {
		exe = ExecExecutor()
	}
	if _, err := exe.LookPath(m.Command); err != nil {
		return PermissionDenied, nil
	}
	return PermissionGranted, nil
}

// RecordingExecutor captures commands instead of running them.
type RecordingExecutor struct {
	mu       sync.Mutex
	Calls    [][]string
	Missing  bool
	RunError error
}

func (r *RecordingExecutor) LookPath(name string) (string, error) {
	if r.Missing {
		return "", exec.ErrNotFound
	}
	return "/usr/bin/" + name, nil
}

func (r *RecordingExecutor) Run(_ context.Context, name string, args ...string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Calls = append(r.Calls, append([]string{name}, args...))
	return r.RunError
}
