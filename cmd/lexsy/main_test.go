package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hyperjump/lexsy/internal/extract/extracttest"
	"github.com/hyperjump/lexsy/internal/ingest"
	"github.com/hyperjump/lexsy/internal/models"
	"github.com/hyperjump/lexsy/internal/qa"
)

func isolateEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"EMBEDDING_PROVIDER", "ANSWER_PROVIDER", "STORAGE_BACKEND", "DATABASE_PATH",
		"GMAIL_ACCESS_TOKEN", "INBOX_DIR", "SENTRY_DSN",
	} {
		t.Setenv(key, "")
		t.Setenv("LEXSY_"+key, "")
	}
}

// writeConfig writes an offline config backed by a temporary database.
func writeConfig(t *testing.T) string {
	t.Helper()
	isolateEnv(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `storage:
  backend: sqlite
  database_path: ./knowledge.db
embedding:
  provider: hash
answer:
  provider: extractive
mail:
  provider: none
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestLoadConfig_prefersCwdConfigWhenPathEmpty(t *testing.T) {
	isolateEnv(t)
	dir := t.TempDir()
	content := "server:\n  port: 9123\nembedding:\n  provider: hash\nanswer:\n  provider: extractive\n"
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	wd, _ := os.Getwd()
	t.Cleanup(func() { _ = os.Chdir(wd) })
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}

	cfg, resolved, err := loadConfig("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Port != 9123 {
		t.Errorf("port: got %d", cfg.Server.Port)
	}
	if filepath.Base(resolved) != "config.yaml" {
		t.Errorf("resolved path: got %q", resolved)
	}
}

func TestLoadConfig_usesExplicitPath(t *testing.T) {
	path := writeConfig(t)
	cfg, resolved, err := loadConfig(path)
	if err != nil {
		t.Fatal(err)
	}
	if resolved != path {
		t.Errorf("resolved: got %q want %q", resolved, path)
	}
	if want := filepath.Join(filepath.Dir(path), "knowledge.db"); cfg.Storage.DatabasePath != want {
		t.Errorf("database path: got %q want %q", cfg.Storage.DatabasePath, want)
	}
}

func TestVersionCommand(t *testing.T) {
	out, err := run(t, "version")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "lexsy version") {
		t.Errorf("got %q", out)
	}
}

func TestUploadThenAsk(t *testing.T) {
	cfgPath := writeConfig(t)
	docs := t.TempDir()
	pdfPath := filepath.Join(docs, "agreement.pdf")
	if err := os.WriteFile(pdfPath, extracttest.PDF("The advisor receives 0.5% equity vesting monthly."), 0o644); err != nil {
		t.Fatal(err)
	}

	out, err := run(t, "--config", cfgPath, "upload", "--client", "1", pdfPath)
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if !strings.Contains(out, "agreement.pdf: embedded") {
		t.Errorf("upload output: %q", out)
	}

	out, err = run(t, "--config", cfgPath, "ask", "--client", "1", "--output", "json", "What", "equity", "does", "the", "advisor", "receive?")
	if err != nil {
		t.Fatalf("ask: %v", err)
	}
	var answer models.Answer
	if err := json.Unmarshal([]byte(out), &answer); err != nil {
		t.Fatalf("ask output is not JSON: %v\n%s", err, out)
	}
	if len(answer.Sources) != 1 || answer.Sources[0].Filename != "agreement.pdf" {
		t.Errorf("sources: got %+v", answer.Sources)
	}

	// another client sees nothing
	out, err = run(t, "--config", cfgPath, "ask", "--client", "2", "--output", "json", "equity")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, qa.NoInformationAnswer) {
		t.Errorf("client 2 answer: %q", out)
	}
}

func TestUpload_reportsFailures(t *testing.T) {
	cfgPath := writeConfig(t)
	bad := filepath.Join(t.TempDir(), "notes.xyz")
	if err := os.WriteFile(bad, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := run(t, "--config", cfgPath, "upload", "--client", "1", bad); err == nil {
		t.Error("expected error for unsupported file")
	}
}

func TestUpload_requiresClient(t *testing.T) {
	cfgPath := writeConfig(t)
	if _, err := run(t, "--config", cfgPath, "upload", "some.txt"); err == nil {
		t.Error("expected error without --client")
	}
}

func TestIngestSamplesAndThread(t *testing.T) {
	cfgPath := writeConfig(t)
	out, err := run(t, "--config", cfgPath, "ingest-samples", "--client", "4", "-o", "json")
	if err != nil {
		t.Fatal(err)
	}
	var batch models.BatchResult
	if err := json.Unmarshal([]byte(out), &batch); err != nil {
		t.Fatal(err)
	}
	if batch.Processed != 3 || batch.Total != 3 {
		t.Errorf("batch: got %+v", batch)
	}

	out, err = run(t, "--config", cfgPath, "ingest-thread", "--client", "4", "--thread", "18c2f", "-o", "json")
	if err != nil {
		t.Fatal(err)
	}
	var thread models.ThreadResult
	if err := json.Unmarshal([]byte(out), &thread); err != nil {
		t.Fatal(err)
	}
	if !thread.UsedFallback || thread.ThreadID != ingest.DemoThreadID {
		t.Errorf("thread: got %+v", thread)
	}
}

func TestIngestThread_demo(t *testing.T) {
	cfgPath := writeConfig(t)
	out, err := run(t, "--config", cfgPath, "ingest-thread", "--client", "6", "--demo", "-o", "json")
	if err != nil {
		t.Fatal(err)
	}
	var thread models.ThreadResult
	if err := json.Unmarshal([]byte(out), &thread); err != nil {
		t.Fatal(err)
	}
	if thread.UsedFallback || thread.ThreadID != ingest.DemoThreadID || thread.Processed != len(ingest.DemoThread()) {
		t.Errorf("thread: got %+v", thread)
	}

	if _, err := run(t, "--config", cfgPath, "ingest-thread", "--client", "6"); err == nil {
		t.Error("expected error without --thread or --demo")
	}
	if _, err := run(t, "--config", cfgPath, "ingest-thread", "--client", "6", "--demo", "--thread", "x"); err == nil {
		t.Error("expected error with both --thread and --demo")
	}
}

func TestWatch_requiresDirectory(t *testing.T) {
	cfgPath := writeConfig(t)
	if _, err := run(t, "--config", cfgPath, "watch"); err == nil {
		t.Error("expected error without inbox directory")
	}
}
