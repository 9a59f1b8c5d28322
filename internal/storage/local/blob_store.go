// Package local writes vault items into the destination folder tree.
package local

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/JakeFAU/vaultdl/internal/pathsafe"
	"github.com/JakeFAU/vaultdl/internal/vault"
)

// DefaultChunkSize is the copy buffer used when streaming bodies to disk.
const DefaultChunkSize = 1 << 20

// Config captures the parameters for the destination tree.
type Config struct {
	// BaseDir is the destination root.
	BaseDir   string `mapstructure:"base_dir" yaml:"base_dir"`
	ChunkSize int    `mapstructure:"chunk_size" yaml:"chunk_size"`
}

// Store reserves and writes destination files under BaseDir.
type Store struct {
	baseDir   string
	chunkSize int
	claims    *pathsafe.Claims
}

// New creates the destination root if needed and checks it is a writable
// directory.
func New(cfg Config) (*Store, error) {
	if strings.TrimSpace(cfg.BaseDir) == "" {
		return nil, fmt.Errorf("base directory is required")
	}
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = DefaultChunkSize
	}

	info, err := os.Stat(cfg.BaseDir)
	if err != nil {
		if os.IsNotExist(err) {
			if mkErr := os.MkdirAll(cfg.BaseDir, 0o750); mkErr != nil {
				return nil, fmt.Errorf("failed to create base directory: %w", mkErr)
			}
		} else {
			return nil, fmt.Errorf("failed to stat base directory: %w", err)
		}
	} else if !info.IsDir() {
		return nil, fmt.Errorf("base directory path is not a directory")
	}

	probe, err := os.CreateTemp(cfg.BaseDir, ".vaultdl-writable-*")
	if err != nil {
		return nil, fmt.Errorf("base directory is not writable: %w", err)
	}
	name := probe.Name()
	if err := errors.Join(probe.Close(), os.Remove(name)); err != nil {
		return nil, fmt.Errorf("failed to clean up probe file: %w", err)
	}

	return &Store{
		baseDir:   cfg.BaseDir,
		chunkSize: cfg.ChunkSize,
		claims:    pathsafe.NewClaims(),
	}, nil
}

// BaseDir returns the destination root.
func (s *Store) BaseDir() string {
	return s.baseDir
}

// Reserve claims segments for key and resolves them against the tree. Errors
// wrap vault.ErrConflict (or vault.ErrIO when the tree cannot be inspected).
func (s *Store) Reserve(key string, segments []string) (string, error) {
	if err := s.claims.Claim(key, segments); err != nil {
		return "", err
	}
	target, err := pathsafe.Resolve(s.baseDir, segments)
	if err != nil {
		return "", err
	}
	return target, nil
}

// Write streams r into target in fixed-size chunks, creating parents as
// needed. Read failures keep their own classification; local failures wrap
// vault.ErrIO. A partially written file is removed.
func (s *Store) Write(ctx context.Context, target string, r io.Reader) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, fmt.Errorf("write %s canceled: %w: %w", target, vault.ErrNetwork, err)
	}
	if err := os.MkdirAll(filepath.Dir(target), 0o750); err != nil {
		return 0, fmt.Errorf("create parent directories for %s: %w: %w", target, vault.ErrIO, err)
	}
	// #nosec G304 -- target was produced by Reserve under baseDir.
	f, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return 0, fmt.Errorf("open %s: %w: %w", target, vault.ErrIO, err)
	}

	src := &trackedReader{r: r}
	buf := make([]byte, s.chunkSize)
	n, copyErr := io.CopyBuffer(writerOnly{f}, src, buf)
	closeErr := f.Close()

	switch {
	case copyErr != nil && src.err != nil:
		err = fmt.Errorf("read body for %s: %w: %w", target, vault.ErrNetwork, src.err)
	case copyErr != nil:
		err = fmt.Errorf("write %s: %w: %w", target, vault.ErrIO, copyErr)
	case closeErr != nil:
		err = fmt.Errorf("close %s: %w: %w", target, vault.ErrIO, closeErr)
	}
	if err != nil {
		_ = os.Remove(target)
		return n, err
	}
	return n, nil
}

// trackedReader remembers the first non-EOF read error so Write can tell a
// broken download from a broken disk.
type trackedReader struct {
	r   io.Reader
	err error
}

func (t *trackedReader) Read(p []byte) (int, error) {
	n, err := t.r.Read(p)
	if err != nil && !errors.Is(err, io.EOF) && t.err == nil {
		t.err = err
	}
	return n, err //nolint:wrapcheck // io.Reader contract
}

// writerOnly hides ReadFrom so io.CopyBuffer uses the fixed buffer.
type writerOnly struct {
	w io.Writer
}

func (w writerOnly) Write(p []byte) (int, error) {
	return w.w.Write(p) //nolint:wrapcheck // io.Writer contract
}
