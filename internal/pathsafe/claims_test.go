package pathsafe

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/vaultdl/internal/vault"
)

func TestClaimsDetectCollisions(t *testing.T) {
	t.Parallel()

	c := NewClaims()
	require.NoError(t, c.Claim("notes/a?.md", []string{"notes", "a_.md"}))

	err := c.Claim("notes/a*.md", []string{"notes", "a_.md"})
	require.ErrorIs(t, err, vault.ErrConflict)
	assert.Contains(t, err.Error(), "notes/a?.md")

	// A claimed file cannot become a parent directory.
	require.ErrorIs(t, c.Claim("notes/a_.md/x", []string{"notes", "a_.md", "x"}), vault.ErrConflict)

	// A claimed directory cannot become a file.
	require.ErrorIs(t, c.Claim("notes", []string{"notes"}), vault.ErrConflict)

	// Siblings sharing a directory are fine.
	require.NoError(t, c.Claim("notes/b.md", []string{"notes", "b.md"}))
	assert.Equal(t, 3, c.size())
}

func TestClaimsConcurrentSamePath(t *testing.T) {
	t.Parallel()

	c := NewClaims()
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		winners int
	)
	for i := range 32 {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if err := c.Claim(fmt.Sprintf("key-%d", i), []string{"same", "file.md"}); err == nil {
				mu.Lock()
				winners++
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 1, winners)
}
