package pathsafe

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/JakeFAU/vaultdl/internal/vault"
)

// Resolve joins segments under root and checks the existing tree for
// conflicts: a file where a parent directory is needed, or a directory where
// the final file must be written. Missing entries are not an error; callers
// create them afterwards.
func Resolve(root string, segments []string) (string, error) {
	if len(segments) == 0 {
		return "", fmt.Errorf("resolve: no segments: %w", vault.ErrConflict)
	}
	current := root
	for i, seg := range segments {
		if seg == "" || seg == "." || seg == ".." || filepath.Base(seg) != seg {
			return "", fmt.Errorf("resolve: unsafe segment %q: %w", seg, vault.ErrConflict)
		}
		current = filepath.Join(current, seg)
		info, err := os.Lstat(current)
		if errors.Is(err, fs.ErrNotExist) {
			// Nothing below a missing entry can exist either.
			return filepath.Join(root, filepath.Join(segments...)), nil
		}
		if err != nil {
			return "", fmt.Errorf("resolve: stat %s: %w: %w", current, vault.ErrIO, err)
		}
		last := i == len(segments)-1
		switch {
		case !last && !info.IsDir():
			return "", fmt.Errorf("resolve: %s is a file, needed a directory: %w", current, vault.ErrConflict)
		case last && info.IsDir():
			return "", fmt.Errorf("resolve: %s is a directory, needed a file: %w", current, vault.ErrConflict)
		case last && info.Mode()&fs.ModeSymlink != 0:
			return "", fmt.Errorf("resolve: %s is a symlink: %w", current, vault.ErrConflict)
		}
	}
	return current, nil
}
