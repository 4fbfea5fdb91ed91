// Package integration provides CLI integration tests for fieldstore.
package integration

import (
	"bytes"
	"encoding/json"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
)

var (
	// fieldstoreBin is the path to the built fieldstore binary.
	fieldstoreBin string
	// buildErr captures any build error.
	buildErr error
)

// BuildError wraps a build error with output.
type BuildError struct {
	Err    error
	Output string
}

func (e *BuildError) Error() string {
	return e.Err.Error() + ": " + e.Output
}

// FindProjectRoot finds the project root by walking up and looking for go.mod.
func FindProjectRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}

	for {
		goModPath := filepath.Join(dir, "go.mod")
		if _, err := os.Stat(goModPath); err == nil {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", os.ErrNotExist
		}
		dir = parent
	}
}

// SetFieldstoreBin sets the path to the fieldstore binary (called from TestMain).
func SetFieldstoreBin(path string) {
	fieldstoreBin = path
}

// SetBuildErr sets the build error (called from TestMain).
func SetBuildErr(err error) {
	buildErr = err
}

// TestEnv provides an isolated test environment with its own config and data directory.
type TestEnv struct {
	t       *testing.T
	TempDir string
	Config  string
	DataDir string
}

// NewTestEnv creates a new isolated test environment.
func NewTestEnv(t *testing.T) *TestEnv {
	t.Helper()

	if buildErr != nil {
		t.Fatalf("failed to build fieldstore: %v", buildErr)
	}
	if fieldstoreBin == "" {
		t.Fatal("fieldstore binary not built (fieldstoreBin is empty)")
	}

	tempDir := t.TempDir()
	dataDir := filepath.Join(tempDir, "data")
	configDir := filepath.Join(tempDir, "config")

	if err := os.MkdirAll(configDir, 0755); err != nil {
		t.Fatalf("failed to create config dir: %v", err)
	}
	configContent := "data_dir: " + dataDir + "\nactive_user: tester\nlocale: en_US\n"
	if err := os.WriteFile(filepath.Join(configDir, "config.yaml"), []byte(configContent), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	return &TestEnv{
		t:       t,
		TempDir: tempDir,
		Config:  configDir,
		DataDir: dataDir,
	}
}

// CmdResult holds the result of a fieldstore command execution.
type CmdResult struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// RunFieldstore executes the fieldstore CLI with the given arguments.
// Returns stdout, stderr, and exit code.
func (e *TestEnv) RunFieldstore(args ...string) CmdResult {
	e.t.Helper()

	allArgs := append([]string{"--config-dir", e.Config, "--data-dir", e.DataDir}, args...)
	cmd := exec.Command(fieldstoreBin, allArgs...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	exitCode := 0
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			exitCode = exitErr.ExitCode()
		} else {
			e.t.Fatalf("failed to run fieldstore: %v", err)
		}
	}

	return CmdResult{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		ExitCode: exitCode,
	}
}

// MustRunFieldstore executes the fieldstore CLI and fails the test if it returns non-zero.
func (e *TestEnv) MustRunFieldstore(args ...string) CmdResult {
	e.t.Helper()
	result := e.RunFieldstore(args...)
	if result.ExitCode != 0 {
		e.t.Fatalf("fieldstore %v failed with exit code %d:\nstdout: %s\nstderr: %s",
			args, result.ExitCode, result.Stdout, result.Stderr)
	}
	return result
}

// ParseJSON parses JSON output into the target type.
func ParseJSON[T any](t *testing.T, jsonStr string) T {
	t.Helper()
	var result T
	if err := json.Unmarshal([]byte(jsonStr), &result); err != nil {
		t.Fatalf("failed to parse JSON %q: %v", jsonStr, err)
	}
	return result
}

// PhysicalRow mirrors the row JSON printed by "row get".
type PhysicalRow struct {
	ID                 string         `json:"id"`
	RowETag            *string        `json:"rowETag"`
	SyncState          string         `json:"syncState"`
	ConflictType       *int           `json:"conflictType"`
	SavepointType      *string        `json:"savepointType"`
	SavepointTimestamp string         `json:"savepointTimestamp"`
	SavepointCreator   *string        `json:"savepointCreator"`
	Locale             *string        `json:"locale"`
	Values             map[string]any `json:"values"`
}

// KVSEntry mirrors the entry JSON printed by "kvs get --json".
type KVSEntry struct {
	TableID   string `json:"tableId"`
	Partition string `json:"partition"`
	Aspect    string `json:"aspect"`
	Key       string `json:"key"`
	ValueType string `json:"type"`
	Value     string `json:"value"`
}
