package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/zulandar/foreman/internal/generator"
)

const cliTasks = "# Task 1: Import\n## Subtasks\n- Parse header\n\n# Task 2: Export\n"

func TestVersionCmd(t *testing.T) {
	cmd := newRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{"version"})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("version command failed: %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "foreman dev") {
		t.Errorf("expected output to contain 'foreman dev', got: %s", out)
	}
	if !strings.Contains(out, "commit: none") {
		t.Errorf("expected output to contain 'commit: none', got: %s", out)
	}
}

func TestVersionCmdWithCustomValues(t *testing.T) {
	origVersion, origCommit, origDate := Version, Commit, Date
	Version, Commit, Date = "1.0.0", "abc123", "2026-01-01"
	defer func() { Version, Commit, Date = origVersion, origCommit, origDate }()

	cmd := newRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"version"})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("version command failed: %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "foreman 1.0.0") || !strings.Contains(out, "built: 2026-01-01") {
		t.Errorf("unexpected version output: %s", out)
	}
}

func TestRootCmdHelp(t *testing.T) {
	cmd := newRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"--help"})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("help command failed: %v", err)
	}

	out := buf.String()
	for _, want := range []string{"Foreman", "build", "subproject", "note", "--config", "--log-level"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected help output to contain %q, got: %s", want, out)
		}
	}
}

func TestRootCmd_BadLogLevel(t *testing.T) {
	cmd := newRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{"--log-level", "loud", "version"})

	if err := cmd.Execute(); err == nil {
		t.Fatal("expected error for unknown log level")
	}
}

func TestCommands_MissingConfig(t *testing.T) {
	tests := [][]string{
		{"db", "init"},
		{"project", "list"},
		{"build", "sp-1"},
	}
	for _, args := range tests {
		t.Run(strings.Join(args, " "), func(t *testing.T) {
			cmd := newRootCmd()
			buf := new(bytes.Buffer)
			cmd.SetOut(buf)
			cmd.SetErr(buf)
			cmd.SetArgs(append([]string{"--config", "/nonexistent/foreman.yaml"}, args...))

			err := cmd.Execute()
			if err == nil || !strings.Contains(err.Error(), "load config") {
				t.Errorf("err = %v, want load config error", err)
			}
		})
	}
}

// generatorServer answers generator requests with a PRD echoing the input
// and a fixed two-task breakdown.
func generatorServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req generator.Request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		md := cliTasks
		if req.Op == generator.OpPRD {
			md = "# PRD\n\n" + req.Input
		}
		json.NewEncoder(w).Encode(map[string]string{"markdown": md})
	}))
	t.Cleanup(srv.Close)
	return srv
}

// writeConfig writes a SQLite config pointing at endpoint.
func writeConfig(t *testing.T, endpoint string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "foreman.yaml")
	body := fmt.Sprintf(`database:
  driver: sqlite
  path: %s
generator:
  backend: http
  endpoint: %s
  max_attempts: 1
lifecycle:
  reconcile_cron: "off"
`, filepath.Join(dir, "foreman.db"), endpoint)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

// run executes one CLI invocation and returns stdout and stderr combined.
func run(t *testing.T, cfgPath, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(append([]string{"--config", cfgPath, "--log-level", "error"}, args...))
	err := cmd.Execute()
	return buf.String(), err
}

func mustRun(t *testing.T, cfgPath string, args ...string) string {
	t.Helper()
	out, err := run(t, cfgPath, "", args...)
	if err != nil {
		t.Fatalf("%v: %v\n%s", args, err, out)
	}
	return out
}

// createdID pulls the id out of "Created <thing> <id> ...".
func createdID(t *testing.T, out string) string {
	t.Helper()
	fields := strings.Fields(out)
	for i, f := range fields {
		if f == "Created" && i+2 < len(fields) {
			return fields[i+2]
		}
	}
	t.Fatalf("no id in %q", out)
	return ""
}

func TestCLI_PlanToBuildFlow(t *testing.T) {
	cfg := writeConfig(t, generatorServer(t).URL)

	out := mustRun(t, cfg, "db", "init")
	if !strings.Contains(out, "Migrated 5 tables") {
		t.Errorf("db init output: %s", out)
	}

	projectID := createdID(t, mustRun(t, cfg, "project", "create", "P1"))
	subID := createdID(t, mustRun(t, cfg, "subproject", "create", projectID, "S1"))

	mustRun(t, cfg, "note", "add", subID, "Users", "import", "CSV")
	if _, err := run(t, cfg, "Export PDF reports\n", "note", "add", subID, "-"); err != nil {
		t.Fatalf("note from stdin: %v", err)
	}
	if out, err := run(t, cfg, "", "note", "add", "--image", subID, "not-a-url"); err == nil {
		t.Errorf("image note with bad url accepted: %s", out)
	}

	out = mustRun(t, cfg, "note", "list", "--aggregated", subID)
	if !strings.HasPrefix(out, "# Subproject Notes\n\n## Note 1 - Text (") || !strings.Contains(out, "Users import CSV") {
		t.Errorf("aggregated notes:\n%s", out)
	}

	out = mustRun(t, cfg, "build", subID)
	for _, want := range []string{"[1/5] Aggregating notes", "[4/5] Saving PRD and tasks", "[5/5]", "in build with 2 tasks", "task-1", "Project status: in_progress"} {
		if !strings.Contains(out, want) {
			t.Errorf("build output missing %q:\n%s", want, out)
		}
	}

	out, err := run(t, cfg, "", "build", subID)
	if err == nil || !strings.Contains(err.Error(), "not planned") {
		t.Errorf("second build err = %v\n%s", err, out)
	}

	out = mustRun(t, cfg, "subproject", "show", "--section", "prd", subID)
	if !strings.Contains(out, "Users import CSV") {
		t.Errorf("prd output: %s", out)
	}

	out = mustRun(t, cfg, "task", "list", subID)
	if !strings.Contains(out, "task-1") || !strings.Contains(out, "0% complete (2 todo") {
		t.Errorf("task list: %s", out)
	}

	if _, err := run(t, cfg, "", "subproject", "complete", subID); err == nil {
		t.Error("complete accepted with open tasks")
	}
	mustRun(t, cfg, "task", "set", subID, "task-1", "done")
	mustRun(t, cfg, "task", "set", subID, "task-2", "done")
	mustRun(t, cfg, "comment", "add", subID, "task-1", "shipped")
	if _, err := run(t, cfg, "", "task", "set", subID, "task-9", "done"); err == nil {
		t.Error("unknown task accepted")
	}

	out = mustRun(t, cfg, "task", "list", "-v", subID)
	if !strings.Contains(out, "100% complete") || !strings.Contains(out, "> ") {
		t.Errorf("task list -v: %s", out)
	}

	mustRun(t, cfg, "subproject", "complete", subID)
	out = mustRun(t, cfg, "project", "list", "--status", "complete")
	if !strings.Contains(out, projectID) {
		t.Errorf("complete projects: %s", out)
	}
}

func TestCLI_BuildWithoutNotes(t *testing.T) {
	cfg := writeConfig(t, generatorServer(t).URL)
	mustRun(t, cfg, "db", "init")
	projectID := createdID(t, mustRun(t, cfg, "project", "create", "P1"))
	subID := createdID(t, mustRun(t, cfg, "subproject", "create", projectID, "S1"))

	out, err := run(t, cfg, "", "build", subID)
	if err == nil {
		t.Fatalf("expected error, got output %s", out)
	}
	if !strings.Contains(out, "[failed]") || !strings.Contains(out, "empty_input") {
		t.Errorf("build output: %s", out)
	}
	out = mustRun(t, cfg, "subproject", "list", projectID)
	if !strings.Contains(out, "planned") {
		t.Errorf("subproject list: %s", out)
	}
}

func TestCLI_DeleteConfirmation(t *testing.T) {
	cfg := writeConfig(t, generatorServer(t).URL)
	mustRun(t, cfg, "db", "init")
	projectID := createdID(t, mustRun(t, cfg, "project", "create", "P1"))

	out, err := run(t, cfg, "no\n", "project", "delete", projectID)
	if err != nil || !strings.Contains(out, "Aborted.") {
		t.Fatalf("declined delete: err %v out %s", err, out)
	}
	if out := mustRun(t, cfg, "project", "list"); !strings.Contains(out, projectID) {
		t.Fatalf("project gone after abort: %s", out)
	}

	if _, err := run(t, cfg, "yes\n", "project", "delete", projectID); err != nil {
		t.Fatal(err)
	}
	if out := mustRun(t, cfg, "project", "list"); !strings.Contains(out, "No projects.") {
		t.Errorf("project list after delete: %s", out)
	}
}

func TestDBResetCmd(t *testing.T) {
	cfg := writeConfig(t, generatorServer(t).URL)
	mustRun(t, cfg, "db", "init")
	mustRun(t, cfg, "project", "create", "P1")

	out, err := run(t, cfg, "nope\n", "db", "reset")
	if err != nil || !strings.Contains(out, "Aborted.") {
		t.Fatalf("reset without confirmation: err %v out %s", err, out)
	}

	out = mustRun(t, cfg, "db", "reset", "--yes")
	if !strings.Contains(out, "reset successfully") {
		t.Errorf("reset output: %s", out)
	}
	if out := mustRun(t, cfg, "project", "list"); !strings.Contains(out, "No projects.") {
		t.Errorf("projects survived reset: %s", out)
	}
}

func TestReadContent(t *testing.T) {
	cmd := newRootCmd()
	cmd.SetIn(strings.NewReader("from stdin\n"))
	got, err := readContent(cmd, []string{"-"})
	if err != nil || got != "from stdin\n" {
		t.Errorf("readContent(-) = %q, %v", got, err)
	}
	got, _ = readContent(cmd, []string{"a", "b"})
	if got != "a b" {
		t.Errorf("readContent(a b) = %q", got)
	}
}
