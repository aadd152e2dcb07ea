package iface

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"syscall"
	"time"

	"github.com/kwheelans/pass-it-on/internal/notification"
	"github.com/kwheelans/pass-it-on/internal/wire"
)

// PipeConfig configures a named-pipe (FIFO) interface, Unix-only per
// spec §6.
type PipeConfig struct {
	Path                 string `toml:"path"`
	GroupReadPermission  bool   `toml:"group_read_permission"`
	GroupWritePermission bool   `toml:"group_write_permission"`
	OtherReadPermission  bool   `toml:"other_read_permission"`
	OtherWritePermission bool   `toml:"other_write_permission"`
}

// NewPipeConfig validates raw and returns a ready-to-use PipeConfig.
func NewPipeConfig(raw PipeConfig) (PipeConfig, error) {
	if raw.Path == "" {
		return PipeConfig{}, fmt.Errorf("pipe interface requires a path")
	}
	return raw, nil
}

func (c PipeConfig) mode() os.FileMode {
	mode := os.FileMode(0o700)
	if c.GroupReadPermission {
		mode |= 0o040
	}
	if c.GroupWritePermission {
		mode |= 0o020
	}
	if c.OtherReadPermission {
		mode |= 0o004
	}
	if c.OtherWritePermission {
		mode |= 0o002
	}
	return mode
}

// PipeInterface implements Interface over a Unix named pipe.
type PipeInterface struct {
	cfg PipeConfig
}

// NewPipeInterface constructs a PipeInterface from a validated config.
func NewPipeInterface(cfg PipeConfig) *PipeInterface {
	return &PipeInterface{cfg: cfg}
}

func (p *PipeInterface) Name() string {
	return fmt.Sprintf("pipe(%s)", p.cfg.Path)
}

// Receive creates the FIFO (mode 0700 plus configured group/other
// bits), reads from it in a loop until ctx is cancelled, and removes
// it on the way out. Each read is forwarded to out as-is; it may
// contain more than one concatenated Notification frame.
func (p *PipeInterface) Receive(ctx context.Context, out chan<- string, logger *slog.Logger) error {
	if err := os.Remove(p.cfg.Path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("pipe interface: clear stale fifo: %w", err)
	}
	if err := syscall.Mkfifo(p.cfg.Path, uint32(p.cfg.mode())); err != nil {
		return fmt.Errorf("pipe interface: create fifo: %w", err)
	}
	defer func() {
		if err := os.Remove(p.cfg.Path); err != nil && !os.IsNotExist(err) {
			logger.Warn("pipe interface: remove fifo on shutdown", "error", err)
		}
	}()

	logger.Info("pipe interface listening", "path", p.cfg.Path)

	for {
		if ctx.Err() != nil {
			return nil
		}

		// O_RDWR (rather than O_RDONLY) keeps at least one writer open
		// from this process's own point of view, so the read below
		// never observes EOF between writers and busy-loops.
		f, err := os.OpenFile(p.cfg.Path, os.O_RDWR, 0)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("pipe interface: open fifo: %w", err)
		}

		if err := p.drain(ctx, f, out, logger); err != nil {
			_ = f.Close()
			return err
		}
		_ = f.Close()
	}
}

func (p *PipeInterface) drain(ctx context.Context, f *os.File, out chan<- string, logger *slog.Logger) error {
	type readResult struct {
		line string
		err  error
	}
	lines := make(chan readResult)
	go func() {
		r := bufio.NewReaderSize(f, 64*1024)
		for {
			chunk, err := r.ReadString('\n')
			if len(chunk) > 0 {
				lines <- readResult{line: chunk}
			}
			if err != nil {
				close(lines)
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case res, ok := <-lines:
			if !ok {
				return nil
			}
			select {
			case out <- res.line:
			default:
				logger.Warn("pipe interface: notification channel full, dropping read")
			}
		}
	}
}

// Send marshals each Notification read from in and writes it to the
// FIFO, opening for write on first use and reopening if the reader
// side goes away.
func (p *PipeInterface) Send(ctx context.Context, in <-chan notification.Notification, logger *slog.Logger) error {
	var f *os.File
	defer func() {
		if f != nil {
			_ = f.Close()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case n, ok := <-in:
			if !ok {
				return nil
			}
			if f == nil {
				var err error
				f, err = openForWriteRetrying(ctx, p.cfg.Path, logger)
				if err != nil {
					return err
				}
				if f == nil {
					return nil // ctx cancelled while waiting for a reader
				}
			}
			if err := p.write(f, n); err != nil {
				logger.Warn("pipe interface send failed, will reopen", "error", err)
				_ = f.Close()
				f = nil
			}
		}
	}
}

func (p *PipeInterface) write(f *os.File, n notification.Notification) error {
	body, err := wire.Encode(n)
	if err != nil {
		return fmt.Errorf("encode notification: %w", err)
	}
	_, err = f.Write(append(body, '\n'))
	return err
}

// openForWriteRetrying opens path for writing. A bare O_WRONLY open
// blocks in the kernel until the FIFO's reader side has been opened by
// the server, so the single open runs in a goroutine and this function
// waits on it or on ctx, logging a warning after 30s of waiting. It
// returns (nil, nil) if ctx is cancelled first; the open is not retried.
func openForWriteRetrying(ctx context.Context, path string, logger *slog.Logger) (*os.File, error) {
	type openResult struct {
		f   *os.File
		err error
	}
	resCh := make(chan openResult, 1)
	go func() {
		f, err := os.OpenFile(path, os.O_WRONLY, 0)
		resCh <- openResult{f, err}
	}()

	select {
	case <-ctx.Done():
		return nil, nil
	case res := <-resCh:
		if res.err != nil {
			return nil, fmt.Errorf("pipe interface: open fifo for write: %w", res.err)
		}
		return res.f, nil
	case <-time.After(30 * time.Second):
		logger.Warn("pipe interface: still waiting for a reader to open the fifo")
		select {
		case <-ctx.Done():
			return nil, nil
		case res := <-resCh:
			if res.err != nil {
				return nil, fmt.Errorf("pipe interface: open fifo for write: %w", res.err)
			}
			return res.f, nil
		}
	}
}
