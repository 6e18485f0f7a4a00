package vaultscm

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/bianoble/vault-scm/internal/state"
	"github.com/bianoble/vault-scm/internal/vault"
)

// scriptedRunner answers each sub-command with canned output.
type scriptedRunner struct {
	output map[string]string
	exit   map[string]int
	runs   []string

	// checkoutEnv holds the environment of every GETVERSION run.
	checkoutEnv [][]string
}

func (r *scriptedRunner) Run(ctx context.Context, inv vault.Invocation) (int, error) {
	sub := inv.Command.Args[1]
	r.runs = append(r.runs, sub)
	if sub == "GETVERSION" {
		r.checkoutEnv = append(r.checkoutEnv, inv.Env)
	}
	if inv.Stdout != nil {
		fmt.Fprint(inv.Stdout, r.output[sub])
	}
	return r.exit[sub], nil
}

func properties(version string) string {
	return fmt.Sprintf(`<vault><objectproperties><version>%s</version><objectid>7</objectid></objectproperties></vault>`, version)
}

const historyReport = `<vault><history>
<item txid="10" user="alice" date="2024-05-01T10:00:00" comment="fix" name="$/proj/a.txt" version="42" typeName="CheckIn" />
</history></vault>`

// setupJob writes a config with a fake client installation and returns its path.
func setupJob(t *testing.T, dir, extra string) string {
	t.Helper()
	exe := filepath.Join(dir, "vault")
	if err := os.WriteFile(exe, []byte("#!/bin/sh\n"), 0755); err != nil {
		t.Fatal(err)
	}
	cfgPath := filepath.Join(dir, "vault-scm.yaml")
	content := fmt.Sprintf(`version: 1
server: vault.example.com
user: builder
repository: Main
path: $/proj
vault: local
installations:
  - name: local
    location: %s
%s`, exe, extra)
	if err := os.WriteFile(cfgPath, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return cfgPath
}

func newTestClient(t *testing.T, dir, cfgPath string, r *scriptedRunner, log *bytes.Buffer) *Client {
	t.Helper()
	client, err := New(Options{
		ConfigPath: cfgPath,
		Workspace:  dir,
		NoInherit:  true,
		Runner:     r,
		Log:        log,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return client
}

func TestNewDefaultPaths(t *testing.T) {
	dir := t.TempDir()
	cfgPath := setupJob(t, dir, "")

	client, err := New(Options{ConfigPath: cfgPath, NoInherit: true})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if client.workspace != dir {
		t.Errorf("workspace = %q, want %q", client.workspace, dir)
	}
	if client.historyPath != filepath.Join(dir, "vault-scm.history") {
		t.Errorf("historyPath = %q", client.historyPath)
	}
	if client.BrowseURL() != "http://vault.example.com" {
		t.Errorf("BrowseURL() = %q", client.BrowseURL())
	}
}

func TestNewInvalidConfig(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "vault-scm.yaml")
	if err := os.WriteFile(cfgPath, []byte("version: 1\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := New(Options{ConfigPath: cfgPath, NoInherit: true}); err == nil {
		t.Fatal("expected error for incomplete config")
	}
}

func TestCheckoutPollCycle(t *testing.T) {
	dir := t.TempDir()
	cfgPath := setupJob(t, dir, "")
	r := &scriptedRunner{output: map[string]string{
		"LISTOBJECTPROPERTIES": properties("42"),
		"HISTORY":              historyReport,
	}}
	var log bytes.Buffer
	client := newTestClient(t, dir, cfgPath, r, &log)
	ctx := context.Background()

	res, err := client.Checkout(ctx, CheckoutOptions{})
	if err != nil {
		t.Fatalf("Checkout: %v\n%s", err, log.String())
	}
	if res.Build != 1 || res.Version != "42" || res.Unchanged {
		t.Errorf("result = %+v", res)
	}
	if res.Changes.Len() != 1 || res.Changes.Entries[0].Author != "alice" {
		t.Errorf("changes = %+v", res.Changes)
	}

	got, err := client.Poll(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if got != NoChanges {
		t.Errorf("Poll() = %s, want NO_CHANGES", got)
	}

	r.output["LISTOBJECTPROPERTIES"] = properties("43")
	if got, _ := client.Poll(ctx); got != BuildNow {
		t.Errorf("Poll() after change = %s, want BUILD_NOW", got)
	}

	env, err := client.EnvVars(0)
	if err != nil {
		t.Fatal(err)
	}
	if env["VAULT_FOLDER_VERSION"] != "42" {
		t.Errorf("env = %v", env)
	}

	h, err := state.Load(client.historyPath)
	if err != nil {
		t.Fatal(err)
	}
	if h.Builds[0].Result != state.ResultSuccess || h.Builds[0].ID != res.BuildID {
		t.Errorf("saved build = %+v", h.Builds[0])
	}
}

func TestCheckoutReceivesPreviousFolderVersion(t *testing.T) {
	dir := t.TempDir()
	cfgPath := setupJob(t, dir, "")
	r := &scriptedRunner{output: map[string]string{
		"LISTOBJECTPROPERTIES": properties("41"),
		"HISTORY":              historyReport,
	}}
	client := newTestClient(t, dir, cfgPath, r, &bytes.Buffer{})
	ctx := context.Background()

	if _, err := client.Checkout(ctx, CheckoutOptions{}); err != nil {
		t.Fatal(err)
	}
	r.output["LISTOBJECTPROPERTIES"] = properties("42")
	if _, err := client.Checkout(ctx, CheckoutOptions{}); err != nil {
		t.Fatal(err)
	}

	if len(r.checkoutEnv) != 2 {
		t.Fatalf("GETVERSION ran %d times, want 2", len(r.checkoutEnv))
	}
	if len(r.checkoutEnv[0]) != 0 {
		t.Errorf("first build env = %v, want none", r.checkoutEnv[0])
	}
	want := []string{"VAULT_FOLDER_VERSION=41"}
	if strings.Join(r.checkoutEnv[1], ",") != strings.Join(want, ",") {
		t.Errorf("second build env = %v, want %v", r.checkoutEnv[1], want)
	}
}

func TestCheckoutWritesChangeLogPerBuild(t *testing.T) {
	dir := t.TempDir()
	cfgPath := setupJob(t, dir, "")
	r := &scriptedRunner{output: map[string]string{
		"LISTOBJECTPROPERTIES": properties("42"),
		"HISTORY":              historyReport,
	}}
	client := newTestClient(t, dir, cfgPath, r, &bytes.Buffer{})

	res, err := client.Checkout(context.Background(), CheckoutOptions{})
	if err != nil {
		t.Fatal(err)
	}
	want := state.ChangeLogPath(client.historyPath, 1)
	if res.ChangeLogFile != want {
		t.Errorf("ChangeLogFile = %q, want %q", res.ChangeLogFile, want)
	}
	data, err := os.ReadFile(want)
	if err != nil {
		t.Fatalf("reading change log: %v", err)
	}
	if !strings.Contains(string(data), `txid="10"`) {
		t.Errorf("change log = %q", data)
	}

	h, err := state.Load(client.historyPath)
	if err != nil {
		t.Fatal(err)
	}
	if h.Builds[0].ChangeLogFile != want {
		t.Errorf("saved ChangeLogFile = %q", h.Builds[0].ChangeLogFile)
	}

	set, err := client.ParseHistory(want)
	if err != nil || set.Len() != 1 {
		t.Errorf("ParseHistory = %+v, %v", set, err)
	}
}

func TestCheckoutFailureIsRecorded(t *testing.T) {
	dir := t.TempDir()
	cfgPath := setupJob(t, dir, "")
	r := &scriptedRunner{
		output: map[string]string{"LISTOBJECTPROPERTIES": properties("42")},
		exit:   map[string]int{"GETVERSION": 1},
	}
	client := newTestClient(t, dir, cfgPath, r, &bytes.Buffer{})

	_, err := client.Checkout(context.Background(), CheckoutOptions{})
	var cerr *vault.CommandError
	if !errors.As(err, &cerr) {
		t.Fatalf("err = %v, want CommandError", err)
	}

	h, err := state.Load(client.historyPath)
	if err != nil {
		t.Fatal(err)
	}
	if h.Builds[0].Result != state.ResultFailure || h.Builds[0].Marker != nil {
		t.Errorf("saved build = %+v", h.Builds[0])
	}
	for _, sub := range r.runs {
		if sub == "HISTORY" {
			t.Error("failed checkout should not capture history")
		}
	}
}

func TestCheckoutSpecificVersion(t *testing.T) {
	dir := t.TempDir()
	cfgPath := setupJob(t, dir, "")
	r := &scriptedRunner{}
	client := newTestClient(t, dir, cfgPath, r, &bytes.Buffer{})

	res, err := client.Checkout(context.Background(), CheckoutOptions{FolderVersion: "12"})
	if err != nil {
		t.Fatal(err)
	}
	if res.Version != "12" || !res.Changes.IsEmpty() {
		t.Errorf("result = %+v", res)
	}
	if strings.Join(r.runs, ",") != "GETVERSION" {
		t.Errorf("runs = %v, want only GETVERSION", r.runs)
	}

	h, _ := state.Load(client.historyPath)
	if h.Builds[0].Parameters["SPECIFIC_VAULT_FOLDER_VERSION"] != "12" {
		t.Errorf("parameters = %v", h.Builds[0].Parameters)
	}
}

func TestPollWithoutHistoryCountsChanges(t *testing.T) {
	dir := t.TempDir()
	cfgPath := setupJob(t, dir, "")
	r := &scriptedRunner{output: map[string]string{"VERSIONHISTORY": `<vault><history></history></vault>`}}
	client := newTestClient(t, dir, cfgPath, r, &bytes.Buffer{})
	client.now = func() time.Time { return time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC) }

	got, err := client.Poll(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if got != NoChanges {
		t.Errorf("Poll() = %s, want NO_CHANGES", got)
	}
	if strings.Join(r.runs, ",") != "VERSIONHISTORY" {
		t.Errorf("runs = %v", r.runs)
	}
}

func TestParseHistory(t *testing.T) {
	dir := t.TempDir()
	cfgPath := setupJob(t, dir, "history:\n  track_deletes: true\n")
	client := newTestClient(t, dir, cfgPath, &scriptedRunner{}, &bytes.Buffer{})

	path := filepath.Join(dir, "changelog.xml")
	report := `<vault><history>
<item txid="1" user="A" name="$/proj/gone.txt" typeName="Deleted" />
</history></vault>`
	if err := os.WriteFile(path, []byte(report), 0644); err != nil {
		t.Fatal(err)
	}

	set, err := client.ParseHistory(path)
	if err != nil {
		t.Fatal(err)
	}
	if set.Len() != 1 || len(set.Entries[0].Files) != 1 || set.Entries[0].Files[0].EditType != "delete" {
		t.Errorf("set = %+v", set)
	}

	if _, err := client.ParseHistory(filepath.Join(dir, "missing.xml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestEnvVarsUnknownBuild(t *testing.T) {
	dir := t.TempDir()
	cfgPath := setupJob(t, dir, "")
	client := newTestClient(t, dir, cfgPath, &scriptedRunner{}, &bytes.Buffer{})

	env, err := client.EnvVars(0)
	if err != nil {
		t.Fatal(err)
	}
	if env["VAULT_FOLDER_VERSION"] != "NOT_SET" {
		t.Errorf("env = %v", env)
	}
	if _, err := client.EnvVars(5); err == nil {
		t.Error("expected error for unknown build")
	}
}
