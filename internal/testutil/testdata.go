package testutil

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
)

// LoadJSON reads testdata/filename next to this package and unmarshals it
// into target.
func LoadJSON(filename string, target any) error {
	_, currentFile, _, _ := runtime.Caller(0)
	dir := filepath.Join(filepath.Dir(currentFile), "testdata")

	data, err := os.ReadFile(filepath.Join(dir, filename))
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, target); err != nil {
		return fmt.Errorf("decode %s: %w", filename, err)
	}
	return nil
}

// LoadRows loads a fixture holding a JSON array of rows.
func LoadRows(filename string) ([]map[string]any, error) {
	var rows []map[string]any
	if err := LoadJSON(filename, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}
