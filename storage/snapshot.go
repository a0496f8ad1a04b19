package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/google/renameio/v2"
	"github.com/shopspring/decimal"
	"github.com/zeu5/snake-rl/types"
)

// WriteSnapshot stores entries as a JSON object of decimal strings.
// The file is replaced atomically, a crash never leaves a partial snapshot behind.
func WriteSnapshot(path string, entries map[string]types.Weight) error {
	if entries == nil {
		entries = make(map[string]types.Weight)
	}
	bs, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return renameio.WriteFile(path, bs, 0o644)
}

// ReadSnapshot decodes a file written by WriteSnapshot.
// Bare JSON numbers are accepted as weights too.
func ReadSnapshot(path string) (map[string]types.Weight, error) {
	bs, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	if err != nil {
		return nil, err
	}
	entries := make(map[string]decimal.Decimal)
	if err := json.Unmarshal(bs, &entries); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorruptFormat, path, err)
	}
	return entries, nil
}
