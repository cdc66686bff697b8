// File path: internal/common/process/process.go
package process

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/ai-financer/nlquery/internal/common"
)

// ServiceConfig describes a helper process to supervise, such as the bundled
// ChromaDB server. ReadyURL, when set, is polled until the service answers.
type ServiceConfig struct {
	Name          string
	Command       string
	Args          []string
	Env           []string
	WorkDir       string
	ReadyURL      string
	ReadyTimeout  time.Duration
	ReadyInterval time.Duration
	StopTimeout   time.Duration
}

// ManagedService is a launched helper process. Its stdout and stderr are
// forwarded into the service log under a per-service component key.
type ManagedService struct {
	cfg ServiceConfig
	cmd *exec.Cmd

	done    chan struct{}
	waitErr error
	mu      sync.RWMutex
}

// Start launches the helper and blocks until its readiness probe answers or
// times out. On probe failure the process is stopped before returning.
func Start(ctx context.Context, cfg ServiceConfig) (*ManagedService, error) {
	if strings.TrimSpace(cfg.Command) == "" {
		return nil, errors.New("process: command required")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	logger := common.Logger()
	logger.Info("process: launching helper", "service", cfg.Name, "command", cfg.Command, "args", strings.Join(cfg.Args, " "))

	cmd := exec.CommandContext(ctx, cfg.Command, cfg.Args...)
	if cfg.WorkDir != "" {
		cmd.Dir = cfg.WorkDir
	}
	if len(cfg.Env) > 0 {
		cmd.Env = append(os.Environ(), cfg.Env...)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("process: stdout pipe %s: %w", cfg.Name, err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		stdout.Close()
		return nil, fmt.Errorf("process: stderr pipe %s: %w", cfg.Name, err)
	}
	if err := cmd.Start(); err != nil {
		stdout.Close()
		stderr.Close()
		return nil, fmt.Errorf("process: start %s: %w", cfg.Name, err)
	}

	svc := &ManagedService{cfg: cfg, cmd: cmd, done: make(chan struct{})}
	var streams sync.WaitGroup
	svc.forward(&streams, logger, stdout, "stdout", slog.LevelInfo)
	svc.forward(&streams, logger, stderr, "stderr", slog.LevelWarn)
	go func() {
		err := cmd.Wait()
		streams.Wait()
		svc.mu.Lock()
		svc.waitErr = err
		svc.mu.Unlock()
		close(svc.done)
	}()

	if err := svc.waitForReady(ctx); err != nil {
		svc.Stop(context.Background())
		return nil, err
	}
	logger.Info("process: helper ready", "service", cfg.Name, "url", cfg.ReadyURL)
	return svc, nil
}

func (s *ManagedService) componentKey() string {
	name := strings.TrimSpace(s.cfg.Name)
	if name == "" {
		name = filepath.Base(strings.TrimSpace(s.cfg.Command))
	}
	return "service/" + strings.ReplaceAll(strings.ToLower(name), " ", "_")
}

func (s *ManagedService) forward(wg *sync.WaitGroup, logger *slog.Logger, pipe io.ReadCloser, stream string, level slog.Level) {
	wg.Add(1)
	go func() {
		defer wg.Done()
		defer pipe.Close()
		scanner := bufio.NewScanner(pipe)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			// Prefixing keeps forwarded lines on the "component: message"
			// convention the log sink parses.
			logger.LogAttrs(context.Background(), level, s.componentKey()+": "+scanner.Text(),
				slog.String("service", s.cfg.Name),
				slog.String("stream", stream))
		}
	}()
}

// Stop interrupts the helper and escalates to a kill when the stop timeout
// elapses.
func (s *ManagedService) Stop(ctx context.Context) error {
	if s == nil {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	logger := common.Logger()
	logger.Info("process: stopping helper", "service", s.cfg.Name)
	if s.cmd != nil && s.cmd.Process != nil {
		if err := s.cmd.Process.Signal(os.Interrupt); err != nil && !errors.Is(err, os.ErrProcessDone) {
			logger.Warn("process: interrupt failed", "service", s.cfg.Name, "error", err)
		}
	}
	stopTimeout := s.cfg.StopTimeout
	if stopTimeout <= 0 {
		stopTimeout = 5 * time.Second
	}
	timer := time.NewTimer(stopTimeout)
	defer timer.Stop()

	select {
	case <-s.done:
		return s.normalizeWaitErr()
	case <-timer.C:
		logger.Warn("process: forcing helper kill", "service", s.cfg.Name)
		if s.cmd != nil && s.cmd.Process != nil {
			if err := s.cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
				logger.Error("process: kill failed", "service", s.cfg.Name, "error", err)
				return err
			}
		}
		<-s.done
		return s.normalizeWaitErr()
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *ManagedService) waitForReady(ctx context.Context) error {
	cfg := s.cfg
	if strings.TrimSpace(cfg.ReadyURL) == "" {
		return nil
	}
	readyTimeout := cfg.ReadyTimeout
	if readyTimeout <= 0 {
		readyTimeout = 30 * time.Second
	}
	interval := cfg.ReadyInterval
	if interval <= 0 {
		interval = 500 * time.Millisecond
	}

	client := &http.Client{Timeout: 2 * time.Second}
	readyCtx, cancel := context.WithTimeout(ctx, readyTimeout)
	defer cancel()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var lastErr error
	for {
		select {
		case <-readyCtx.Done():
			if lastErr != nil {
				return fmt.Errorf("process: waiting for %s ready timed out after %s: last error: %w", cfg.Name, readyTimeout, lastErr)
			}
			return fmt.Errorf("process: waiting for %s ready timed out after %s: %w", cfg.Name, readyTimeout, readyCtx.Err())
		case <-s.done:
			return fmt.Errorf("process: %s exited before reporting ready: %w", cfg.Name, s.waitError())
		case <-ticker.C:
			req, err := http.NewRequestWithContext(readyCtx, http.MethodGet, cfg.ReadyURL, nil)
			if err != nil {
				return fmt.Errorf("process: build readiness request for %s: %w", cfg.Name, err)
			}
			resp, err := client.Do(req)
			if err != nil {
				lastErr = err
				continue
			}
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
			if resp.StatusCode >= http.StatusOK && resp.StatusCode < http.StatusInternalServerError {
				return nil
			}
			lastErr = fmt.Errorf("unexpected status %d", resp.StatusCode)
		}
	}
}

func (s *ManagedService) waitError() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.waitErr
}

func (s *ManagedService) normalizeWaitErr() error {
	err := s.waitError()
	if err == nil {
		return nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && exitErr.Exited() {
		// Interrupt-driven exits are expected during shutdown.
		return nil
	}
	return err
}

// BinaryPath resolves an executable via the system PATH.
func BinaryPath(name string) (string, error) {
	if strings.TrimSpace(name) == "" {
		return "", errors.New("process: binary name required")
	}
	path, err := exec.LookPath(name)
	if err != nil {
		return "", fmt.Errorf("process: locate %s: %w", name, err)
	}
	return filepath.Clean(path), nil
}
