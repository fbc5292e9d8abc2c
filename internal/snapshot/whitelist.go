package snapshot

import (
	"fmt"
	"path/filepath"
	"strings"
)

// DefaultWhitelist returns the compiled-in list of paths to snapshot for the given home directory.
func DefaultWhitelist(home string) []string {
	return []string{
		filepath.Join(home, ".config", "nvim"),
		filepath.Join(home, ".config", "zellij"),
		filepath.Join(home, ".zshrc"),
	}
}

// ValidateWhitelist cleans the entries and rejects relative, duplicate or nested paths.
// The returned slice keeps the input order.
func ValidateWhitelist(paths []string) ([]string, error) {
	cleaned := make([]string, 0, len(paths))
	for _, path := range paths {
		if !filepath.IsAbs(path) {
			return nil, fmt.Errorf("%w: %q is not an absolute path", ErrInvalidWhitelist, path)
		}
		cleaned = append(cleaned, filepath.Clean(path))
	}
	for i := range cleaned {
		for j := i + 1; j < len(cleaned); j++ {
			if isWithin(cleaned[i], cleaned[j]) || isWithin(cleaned[j], cleaned[i]) {
				return nil, fmt.Errorf("%w: %q and %q overlap", ErrInvalidWhitelist, cleaned[i], cleaned[j])
			}
		}
	}
	return cleaned, nil
}

// isWithin reports whether path equals ancestor or lies below it.
func isWithin(path, ancestor string) bool {
	if path == ancestor {
		return true
	}
	prefix := ancestor
	if !strings.HasSuffix(prefix, string(filepath.Separator)) {
		prefix += string(filepath.Separator)
	}
	return strings.HasPrefix(path, prefix)
}

// DestinationFor re-roots an absolute source path under resultsDir.
func DestinationFor(resultsDir, source string) string {
	return filepath.Join(resultsDir, strings.TrimLeft(source, string(filepath.Separator)))
}
