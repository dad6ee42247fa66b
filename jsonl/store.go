// Package jsonl persists analysis history as JSON Lines.
package jsonl

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fwojciec/jsaudit"
)

// Compile-time interface verification.
var _ jsaudit.HistoryStore = (*Store)(nil)

// maxLineSize is the maximum size for a single JSONL line (16MB).
// Reports for large bundles can run long.
const maxLineSize = 16 * 1024 * 1024

// Store persists and retrieves Record values as JSONL.
type Store struct{}

// NewStore creates a new Store.
func NewStore() *Store {
	return &Store{}
}

// Append writes records to the end of a JSONL file, creating the file and
// its parent directories if needed.
func (s *Store) Append(path string, records []jsaudit.Record) error {
	if len(records) == 0 {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}

	w := bufio.NewWriter(f)
	for _, r := range records {
		data, err := json.Marshal(r)
		if err != nil {
			f.Close()
			return err
		}
		w.Write(data)
		w.WriteByte('\n')
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return err
	}

	return f.Close()
}

// Load reads records from a JSONL file. Returns an empty slice if the file
// doesn't exist.
func (s *Store) Load(path string) ([]jsaudit.Record, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()

	var records []jsaudit.Record
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var r jsaudit.Record
		if err := json.Unmarshal([]byte(line), &r); err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNum, err)
		}
		records = append(records, r)
	}

	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return records, nil
}
