package transport

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"

	"github.com/dshills/oxbow/internal/logging"
)

// ProcessConfig describes a plugin host executable.
type ProcessConfig struct {
	Command string
	Args    []string
	Env     map[string]string
	WorkDir string
}

// Process is a Channel to a plugin host running as a child process over
// its stdin and stdout. Stderr lines are logged.
type Process struct {
	*Channel

	cmd    *exec.Cmd
	stdin  io.WriteCloser
	exitCh chan error
}

// SpawnProcess starts the plugin host described by cfg.
func SpawnProcess(ctx context.Context, cfg ProcessConfig, logger *logging.Logger) (*Process, error) {
	if logger == nil {
		logger = logging.Nop()
	}
	logger = logger.WithField("command", cfg.Command)

	cmd := exec.CommandContext(ctx, cfg.Command, cfg.Args...)
	cmd.Env = os.Environ()
	for k, v := range cfg.Env {
		cmd.Env = append(cmd.Env, k+"="+v)
	}
	cmd.Dir = cfg.WorkDir

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		stdin.Close()
		return nil, fmt.Errorf("stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		stdin.Close()
		stdout.Close()
		return nil, fmt.Errorf("stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		stdin.Close()
		stdout.Close()
		stderr.Close()
		return nil, fmt.Errorf("start process: %w", err)
	}

	go func() {
		scanner := bufio.NewScanner(stderr)
		for scanner.Scan() {
			logger.Debug("plugin host: %s", scanner.Text())
		}
	}()

	p := &Process{
		Channel: NewChannel(NewStreamConn(stdout, stdin, stdin), WithLogger(logger)),
		cmd:     cmd,
		stdin:   stdin,
		exitCh:  make(chan error, 1),
	}
	go func() {
		// Wait closes stdout, so it runs only after the read loop ends.
		<-p.Done()
		p.exitCh <- cmd.Wait()
		close(p.exitCh)
	}()
	return p, nil
}

// Pid returns the process id of the plugin host.
func (p *Process) Pid() int {
	return p.cmd.Process.Pid
}

// Close closes the host's stdin and waits for it to exit.
func (p *Process) Close() error {
	closeErr := p.Channel.Close()
	waitErr := <-p.exitCh

	var exitErr *exec.ExitError
	if errors.As(waitErr, &exitErr) {
		// Killed by context cancellation or exited non-zero after stdin closed.
		waitErr = nil
	}
	return errors.Join(closeErr, waitErr)
}
