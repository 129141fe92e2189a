package platform

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/aretw0/sparti/pkg/adapters/fs"
)

// ErrRootNotFound is returned by FindRoot when no store root is found.
var ErrRootNotFound = fmt.Errorf("store root not found")

// FindRoot walks up from startDir looking for a store root: a directory
// holding the system directory (.sparti) or a .git directory.
func FindRoot(startDir string) (string, error) {
	abs, err := filepath.Abs(startDir)
	if err != nil {
		return "", err
	}

	for dir := abs; ; {
		if hasFile(dir, fs.DefaultSystemDir) || hasFile(dir, ".git") {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", fmt.Errorf("%w from %s", ErrRootNotFound, abs)
}

func hasFile(dir, name string) bool {
	_, err := os.Stat(filepath.Join(dir, name))
	return err == nil
}
