package publisher

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// WriteText writes content as UTF-8, creating parent directories and
// overwriting any existing file. The write is not atomic.
func WriteText(path, content string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("publisher: ensure dir for %s: %w", path, err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("publisher: write %s: %w", path, err)
	}
	return nil
}

// WriteJSON writes data as indented JSON. Non-ASCII text and HTML-significant
// characters are written as-is rather than escaped.
func WriteJSON(path string, data any) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(data); err != nil {
		return fmt.Errorf("publisher: encode %s: %w", path, err)
	}
	return WriteText(path, buf.String())
}
