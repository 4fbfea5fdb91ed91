// CLI integration tests for fieldstore. Exercises the binary via
// os/exec against an isolated config and data directory per test.
package integration

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
)

// TestMain builds the fieldstore binary once before running tests.
func TestMain(m *testing.M) {
	projectRoot, err := FindProjectRoot()
	if err != nil {
		SetBuildErr(err)
		os.Exit(1)
	}

	tmpDir, err := os.MkdirTemp("", "fieldstore-test-*")
	if err != nil {
		SetBuildErr(err)
		os.Exit(1)
	}
	binPath := filepath.Join(tmpDir, "fieldstore")
	SetFieldstoreBin(binPath)

	cmd := exec.Command("go", "build", "-o", binPath, "./cmd/fieldstore")
	cmd.Dir = projectRoot
	if output, err := cmd.CombinedOutput(); err != nil {
		SetBuildErr(&BuildError{
			Err:    err,
			Output: string(output),
		})
		os.Exit(1)
	}

	code := m.Run()

	os.RemoveAll(tmpDir)

	os.Exit(code)
}

const householdColumns = `[
  {"elementKey": "name", "elementName": "name", "elementType": "string", "listChildElementKeys": "[]"},
  {"elementKey": "members", "elementName": "members", "elementType": "integer", "listChildElementKeys": "[]"},
  {"elementKey": "location", "elementName": "location", "elementType": "geopoint",
   "listChildElementKeys": "[\"location_latitude\",\"location_longitude\",\"location_altitude\",\"location_accuracy\"]"},
  {"elementKey": "location_latitude", "elementName": "latitude", "elementType": "number", "listChildElementKeys": "[]"},
  {"elementKey": "location_longitude", "elementName": "longitude", "elementType": "number", "listChildElementKeys": "[]"},
  {"elementKey": "location_altitude", "elementName": "altitude", "elementType": "number", "listChildElementKeys": "[]"},
  {"elementKey": "location_accuracy", "elementName": "accuracy", "elementType": "number", "listChildElementKeys": "[]"}
]`

// Test1_Initialize verifies store initialization.
func Test1_Initialize(t *testing.T) {
	env := NewTestEnv(t)

	result := env.MustRunFieldstore("init")
	if result.Stdout == "" {
		t.Error("expected init output message")
	}

	if _, err := os.Stat(env.DataDir); os.IsNotExist(err) {
		t.Error("data directory not created")
	}
	if _, err := os.Stat(filepath.Join(env.DataDir, "fieldstore.db")); os.IsNotExist(err) {
		t.Error("fieldstore.db not created")
	}
}

// Test2_TableLifecycle verifies table create, list, show, and drop.
func Test2_TableLifecycle(t *testing.T) {
	env := NewTestEnv(t)
	env.MustRunFieldstore("init")

	env.MustRunFieldstore("table", "create", "households", "--columns", householdColumns)

	listResult := env.MustRunFieldstore("table", "list")
	if !strings.Contains(listResult.Stdout, "households") {
		t.Errorf("table list missing households: %q", listResult.Stdout)
	}

	showResult := env.MustRunFieldstore("table", "show", "households")
	show := ParseJSON[map[string]any](t, showResult.Stdout)
	if show["definition"] == nil {
		t.Error("table show missing definition")
	}
	columns, ok := show["columns"].([]any)
	if !ok || len(columns) != 7 {
		t.Errorf("expected 7 column specs, got %v", show["columns"])
	}

	// Creating an existing table is a no-op, not an error.
	env.MustRunFieldstore("table", "create", "households", "--columns", householdColumns)

	env.MustRunFieldstore("table", "drop", "households")
	listResult = env.MustRunFieldstore("table", "list")
	if strings.Contains(listResult.Stdout, "households") {
		t.Errorf("dropped table still listed: %q", listResult.Stdout)
	}
}

// Test3_RowLifecycle verifies row add, get, update, and delete.
func Test3_RowLifecycle(t *testing.T) {
	env := NewTestEnv(t)
	env.MustRunFieldstore("init")
	env.MustRunFieldstore("table", "create", "households", "--columns", householdColumns)

	addResult := env.MustRunFieldstore("row", "add", "households",
		"--values", `{"name": "mwangi", "members": 5}`)
	rowID := strings.TrimSpace(addResult.Stdout)
	if !strings.HasPrefix(rowID, "uuid:") {
		t.Errorf("expected generated uuid: row id, got %q", rowID)
	}

	getResult := env.MustRunFieldstore("row", "get", "households", rowID)
	rows := ParseJSON[[]PhysicalRow](t, getResult.Stdout)
	if len(rows) != 1 {
		t.Fatalf("expected 1 physical row, got %d", len(rows))
	}
	if rows[0].SyncState != "new_row" {
		t.Errorf("expected new_row state, got %q", rows[0].SyncState)
	}
	if rows[0].SavepointCreator == nil || *rows[0].SavepointCreator != "tester" {
		t.Errorf("expected savepoint creator tester, got %v", rows[0].SavepointCreator)
	}

	env.MustRunFieldstore("row", "update", "households", rowID,
		"--values", `{"members": 6}`)
	getResult = env.MustRunFieldstore("row", "get", "households", rowID)
	rows = ParseJSON[[]PhysicalRow](t, getResult.Stdout)
	if len(rows) != 1 {
		t.Fatalf("expected 1 physical row after update, got %d", len(rows))
	}
	if got := rows[0].Values["members"]; got != float64(6) {
		t.Errorf("expected members 6 after update, got %v", got)
	}

	// A never-synced row is removed outright.
	env.MustRunFieldstore("row", "delete", "households", rowID)
	delResult := env.RunFieldstore("row", "get", "households", rowID)
	if delResult.ExitCode == 0 {
		t.Error("expected non-zero exit for deleted row")
	}
}

// Test4_GeopointDecomposition verifies composite values land in child columns.
func Test4_GeopointDecomposition(t *testing.T) {
	env := NewTestEnv(t)
	env.MustRunFieldstore("init")
	env.MustRunFieldstore("table", "create", "households", "--columns", householdColumns)

	addResult := env.MustRunFieldstore("row", "add", "households",
		"--values", `{"name": "mwangi", "location": "{\"latitude\": -1.29, \"longitude\": 36.82, \"altitude\": 1795, \"accuracy\": 4.5}"}`)
	rowID := strings.TrimSpace(addResult.Stdout)

	getResult := env.MustRunFieldstore("row", "get", "households", rowID)
	rows := ParseJSON[[]PhysicalRow](t, getResult.Stdout)
	if len(rows) != 1 {
		t.Fatalf("expected 1 physical row, got %d", len(rows))
	}
	if got := rows[0].Values["location_latitude"]; got != float64(-1.29) {
		t.Errorf("expected latitude -1.29, got %v", got)
	}
	if got := rows[0].Values["location_longitude"]; got != float64(36.82) {
		t.Errorf("expected longitude 36.82, got %v", got)
	}
	if _, present := rows[0].Values["location"]; present {
		t.Error("container column should not be stored")
	}
}

// Test5_CheckpointWorkflow verifies checkpoint, save, and health reporting.
func Test5_CheckpointWorkflow(t *testing.T) {
	env := NewTestEnv(t)
	env.MustRunFieldstore("init")
	env.MustRunFieldstore("table", "create", "households", "--columns", householdColumns)

	addResult := env.MustRunFieldstore("row", "add", "households",
		"--values", `{"name": "draft", "members": 1}`)
	rowID := strings.TrimSpace(addResult.Stdout)

	env.MustRunFieldstore("row", "checkpoint", "households", rowID,
		"--values", `{"members": 2}`)
	env.MustRunFieldstore("row", "checkpoint", "households", rowID,
		"--values", `{"members": 3}`)

	getResult := env.MustRunFieldstore("row", "get", "households", rowID)
	rows := ParseJSON[[]PhysicalRow](t, getResult.Stdout)
	if len(rows) != 3 {
		t.Fatalf("expected 3 physical rows mid-edit, got %d", len(rows))
	}

	healthResult := env.MustRunFieldstore("health", "households")
	if !strings.Contains(healthResult.Stdout, "HAS_CHECKPOINTS") {
		t.Errorf("expected HAS_CHECKPOINTS, got %q", healthResult.Stdout)
	}

	env.MustRunFieldstore("row", "save", "households", rowID)

	getResult = env.MustRunFieldstore("row", "get", "households", rowID)
	rows = ParseJSON[[]PhysicalRow](t, getResult.Stdout)
	if len(rows) != 1 {
		t.Fatalf("expected 1 physical row after save, got %d", len(rows))
	}
	if rows[0].SavepointType == nil || *rows[0].SavepointType != "COMPLETE" {
		t.Errorf("expected COMPLETE savepoint type, got %v", rows[0].SavepointType)
	}
	if got := rows[0].Values["members"]; got != float64(3) {
		t.Errorf("expected newest checkpoint values to survive, got members %v", got)
	}

	healthResult = env.MustRunFieldstore("health", "households")
	if !strings.Contains(healthResult.Stdout, "CLEAN") {
		t.Errorf("expected CLEAN after save, got %q", healthResult.Stdout)
	}
}

// Test6_KVSMetadata verifies metadata set and filtered get.
func Test6_KVSMetadata(t *testing.T) {
	env := NewTestEnv(t)
	env.MustRunFieldstore("init")
	env.MustRunFieldstore("table", "create", "households", "--columns", householdColumns)

	env.MustRunFieldstore("kvs", "set", "households", "displayName", "Household Register",
		"--type", "string")

	getResult := env.MustRunFieldstore("--json", "kvs", "get", "households",
		"--partition", "Table", "--key", "displayName")
	entries := ParseJSON[[]KVSEntry](t, getResult.Stdout)
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	if entries[0].Value != "Household Register" {
		t.Errorf("value mismatch: got %q", entries[0].Value)
	}

	// Table creation seeds column metadata too.
	colResult := env.MustRunFieldstore("--json", "kvs", "get", "households",
		"--partition", "Column")
	colEntries := ParseJSON[[]KVSEntry](t, colResult.Stdout)
	if len(colEntries) == 0 {
		t.Error("expected seeded column metadata entries")
	}
}

// Test7_ConfigPrecedence verifies the data-dir flag wins over config.yaml.
func Test7_ConfigPrecedence(t *testing.T) {
	env := NewTestEnv(t)

	otherData := filepath.Join(env.TempDir, "other-data")
	result := env.RunFieldstore("--data-dir", otherData, "init")
	if result.ExitCode != 0 {
		t.Fatalf("init with explicit data dir failed: %s", result.Stderr)
	}

	if _, err := os.Stat(filepath.Join(otherData, "fieldstore.db")); os.IsNotExist(err) {
		t.Error("flag data dir not used")
	}
}
