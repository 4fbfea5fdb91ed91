// Shared helpers for fieldstore CLI commands.
package main

import (
	"encoding/json"
	"fmt"

	"github.com/fieldstack/fieldstore/internal/attach"
	"github.com/fieldstack/fieldstore/internal/sqlite"
	"github.com/fieldstack/fieldstore/pkg/types"
)

// openStore resolves the data directory and opens the store plus the
// attachment manager rooted at it. The caller must defer store.Close().
func openStore() (*sqlite.Store, *attach.Manager, error) {
	dataDir, err := resolveDataDir()
	if err != nil {
		return nil, nil, fmt.Errorf("resolve data dir: %w", err)
	}

	cfg := types.Config{
		DataDir:    dataDir,
		ActiveUser: firstNonEmpty(flagUser, configActiveUser),
		Locale:     firstNonEmpty(flagLocale, configLocale),
	}
	store, err := sqlite.Open(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("open store: %w", err)
	}
	return store, attach.NewManager(dataDir, nil), nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// parseValuesJSON turns a JSON object argument into an ordered value
// bag. Object key order in the input is not significant; admin columns
// may be included alongside user columns.
func parseValuesJSON(data string) (*types.RowValues, error) {
	if data == "" {
		return types.NewRowValues(), nil
	}
	var m map[string]any
	if err := json.Unmarshal([]byte(data), &m); err != nil {
		return nil, fmt.Errorf("parse values JSON: %w", err)
	}
	v := types.NewRowValues()
	for k, val := range m {
		v.Set(k, val)
	}
	return v, nil
}

// parseColumnsJSON parses a JSON array of column specifications.
func parseColumnsJSON(data string) ([]types.ColumnSpec, error) {
	var specs []types.ColumnSpec
	if err := json.Unmarshal([]byte(data), &specs); err != nil {
		return nil, fmt.Errorf("parse columns JSON: %w", err)
	}
	return specs, nil
}

// printJSON writes v as indented JSON to stdout.
func printJSON(v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal output: %w", err)
	}
	fmt.Println(string(out))
	return nil
}
