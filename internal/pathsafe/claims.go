package pathsafe

import (
	"fmt"
	"strings"
	"sync"

	"github.com/JakeFAU/vaultdl/internal/vault"
)

type claimKind uint8

const (
	claimDir claimKind = iota + 1
	claimFile
)

// Claims records destinations reserved during a run so that two manifest keys
// sanitizing onto the same (or a file-vs-directory overlapping) path are
// detected without relying on the filesystem. It is safe for concurrent use.
type Claims struct {
	mu      sync.Mutex
	entries map[string]claimEntry
}

type claimEntry struct {
	kind  claimKind
	owner string
}

// NewClaims returns an empty claim table.
func NewClaims() *Claims {
	return &Claims{entries: make(map[string]claimEntry)}
}

// Claim reserves segments as a file owned by key and every prefix as a
// directory. It fails with vault.ErrConflict when an earlier claim disagrees.
func (c *Claims) Claim(key string, segments []string) error {
	if len(segments) == 0 {
		return fmt.Errorf("claim %q: no segments: %w", key, vault.ErrConflict)
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	for i := 1; i < len(segments); i++ {
		dir := strings.Join(segments[:i], "/")
		if e, ok := c.entries[dir]; ok && e.kind == claimFile {
			return fmt.Errorf("claim %q: %s already claimed as a file by %q: %w", key, dir, e.owner, vault.ErrConflict)
		}
	}
	file := strings.Join(segments, "/")
	if e, ok := c.entries[file]; ok {
		if e.kind == claimDir {
			return fmt.Errorf("claim %q: %s already claimed as a directory: %w", key, file, vault.ErrConflict)
		}
		return fmt.Errorf("claim %q: %s already claimed by %q: %w", key, file, e.owner, vault.ErrConflict)
	}

	for i := 1; i < len(segments); i++ {
		dir := strings.Join(segments[:i], "/")
		if _, ok := c.entries[dir]; !ok {
			c.entries[dir] = claimEntry{kind: claimDir}
		}
	}
	c.entries[file] = claimEntry{kind: claimFile, owner: key}
	return nil
}

func (c *Claims) size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
