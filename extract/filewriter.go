package extract

import (
	"fmt"
	"os"
	"path/filepath"
)

// OSFileWriter is the default FileWriter: it writes files under a base
// directory with os.WriteFile, suffixing " (1)", " (2)", ... onto the
// name until it finds a path that doesn't already exist.
type OSFileWriter struct {
	// Perm is the file mode new files are created with. Zero defaults to
	// 0o644.
	Perm os.FileMode
}

// Write implements FileWriter.
func (w OSFileWriter) Write(path string, data []byte) (string, error) {
	perm := w.Perm
	if perm == 0 {
		perm = 0o644
	}

	final, err := nonCollidingPath(path)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(final), 0o755); err != nil {
		return "", fmt.Errorf("extract: creating output directory: %w", err)
	}
	if err := os.WriteFile(final, data, perm); err != nil {
		return "", fmt.Errorf("extract: writing %s: %w", final, err)
	}
	return final, nil
}

// nonCollidingPath returns path unchanged if nothing exists there yet,
// otherwise the first "name (n).ext" variant that is free.
func nonCollidingPath(path string) (string, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return path, nil
	} else if err != nil {
		return "", err
	}

	ext := filepath.Ext(path)
	base := path[:len(path)-len(ext)]
	for n := 1; ; n++ {
		candidate := fmt.Sprintf("%s (%d)%s", base, n, ext)
		if _, err := os.Stat(candidate); os.IsNotExist(err) {
			return candidate, nil
		} else if err != nil {
			return "", err
		}
	}
}
