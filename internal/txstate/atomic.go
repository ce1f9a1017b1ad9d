package txstate

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// tempSuffix distinguishes in-flight writes. A crash between temp creation
// and rename can leave one of these behind; that is harmless because the
// target itself is never touched until the rename.
const tempSuffix = ".sidekick-tmp"

// atomicWriteFile writes data to path via a temp file in the same directory
// (same filesystem, so the final rename is atomic) and renames it into
// place. On any failure the temp file is removed best-effort and the
// original target is left byte-for-byte unchanged.
func atomicWriteFile(path string, data []byte, durable bool) (err error) {
	dir := filepath.Dir(path)
	if mkErr := os.MkdirAll(dir, 0o755); mkErr != nil {
		return fmt.Errorf("create directory %s: %w", dir, mkErr)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+"-*"+tempSuffix)
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		if err != nil {
			// Cleanup must not mask the primary failure.
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if durable {
		if err = tmp.Sync(); err != nil {
			return fmt.Errorf("sync temp file: %w", err)
		}
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err = os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("rename into place: %w", err)
	}
	return nil
}

// marshalState serializes a value the way every state file is stored:
// pretty-printed UTF-8 JSON with a trailing newline, for human debuggability.
func marshalState(value any) ([]byte, error) {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal state: %w", err)
	}
	return append(data, '\n'), nil
}
