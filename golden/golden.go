package golden

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/flanksource/commons/logger"
	"github.com/flanksource/fixturegate/fixtures"
)

// Path returns the golden file for a fixture and suffix:
// errors/a.kt with ".fir.txt" is errors/a.fir.txt.
func Path(fixturePath, suffix string) string {
	dir, name := filepath.Split(fixturePath)
	return filepath.Join(dir, fixtures.StripExtension(name)+suffix)
}

// Find returns the first existing golden file for the suffixes, in order.
func Find(fixturePath string, suffixes []string) (string, bool) {
	for _, suffix := range suffixes {
		p := Path(fixturePath, suffix)
		if info, err := os.Stat(p); err == nil && info.Mode().IsRegular() {
			return p, true
		}
	}
	return "", false
}

// Target is where regeneration writes: the existing golden file, otherwise the path
// for the first suffix.
func Target(fixturePath string, suffixes []string) (string, error) {
	if p, ok := Find(fixturePath, suffixes); ok {
		return p, nil
	}
	if len(suffixes) == 0 {
		return "", fmt.Errorf("no golden suffix configured for %s", fixturePath)
	}
	return Path(fixturePath, suffixes[0]), nil
}

// Write replaces the golden file atomically. Only regeneration writes goldens.
func Write(path string, content []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("failed to write golden %s: %w", path, err)
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck

	if _, err := tmp.Write(content); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write golden %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write golden %s: %w", path, err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to write golden %s: %w", path, err)
	}
	logger.V(2).Infof("wrote %s", path)
	return nil
}
