package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"

	"github.com/nao1215/wikindex/internal/config"
	"github.com/nao1215/wikindex/internal/model"
	"github.com/nao1215/wikindex/internal/pipeline"
)

// writeConfigFile writes content to a config file in a temp dir.
func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), ".wikindex")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	return path
}

// parseCommand finds the named subcommand and parses args into it.
func parseCommand(t *testing.T, name string, args ...string) *cobra.Command {
	t.Helper()
	cmd, _, err := NewRootCmd().Find([]string{name})
	if err != nil {
		t.Fatalf("subcommand %q not found: %v", name, err)
	}
	if err := cmd.ParseFlags(args); err != nil {
		t.Fatalf("ParseFlags() error = %v", err)
	}
	return cmd
}

func TestBuildConfig(t *testing.T) {
	t.Parallel()

	t.Run("defaults", func(t *testing.T) {
		t.Parallel()
		cfgPath := writeConfigFile(t, "")

		cmd := parseCommand(t, "crawl", "--config", cfgPath)
		cfg, err := buildConfig(cmd, cmd.Flags().Args())
		if err != nil {
			t.Fatalf("buildConfig() error = %v", err)
		}
		if cfg.SeedURL != config.DefaultSeedURL {
			t.Errorf("SeedURL = %q", cfg.SeedURL)
		}
		if cfg.MaxPages != config.DefaultMaxPages || cfg.Workers != config.DefaultWorkers {
			t.Errorf("MaxPages = %d, Workers = %d", cfg.MaxPages, cfg.Workers)
		}
		if err := cfg.Validate(); err != nil {
			t.Errorf("default config is invalid: %v", err)
		}
	})

	t.Run("flags override config file", func(t *testing.T) {
		t.Parallel()
		cfgPath := writeConfigFile(t, `
crawl:
  maxPages: 42
  workers: 7
  delay: 1s
storage:
  redis: localhost:6379
  redisTTL: 1h
`)

		cmd := parseCommand(t, "crawl", "--config", cfgPath, "-p", "10", "--crawl-delay", "0s", "--redis-ttl", "30m")
		cfg, err := buildConfig(cmd, cmd.Flags().Args())
		if err != nil {
			t.Fatalf("buildConfig() error = %v", err)
		}
		if cfg.MaxPages != 10 {
			t.Errorf("MaxPages = %d, want 10 from flag", cfg.MaxPages)
		}
		if cfg.Workers != 7 {
			t.Errorf("Workers = %d, want 7 from file", cfg.Workers)
		}
		if cfg.CrawlDelay != 0 {
			t.Errorf("CrawlDelay = %v, want 0 from flag", cfg.CrawlDelay)
		}
		if cfg.RedisAddr != "localhost:6379" {
			t.Errorf("RedisAddr = %q, want file value", cfg.RedisAddr)
		}
		if cfg.RedisTTL != 30*time.Minute {
			t.Errorf("RedisTTL = %v, want 30m from flag", cfg.RedisTTL)
		}
	})

	t.Run("positional seed wins over seed flag", func(t *testing.T) {
		t.Parallel()
		cfgPath := writeConfigFile(t, "")

		cmd := parseCommand(t, "run", "--config", cfgPath,
			"--seed", "https://en.wikipedia.org/wiki/Flag",
			"https://en.wikipedia.org/wiki/Arg")
		cfg, err := buildConfig(cmd, cmd.Flags().Args())
		if err != nil {
			t.Fatalf("buildConfig() error = %v", err)
		}
		if cfg.SeedURL != "https://en.wikipedia.org/wiki/Arg" {
			t.Errorf("SeedURL = %q", cfg.SeedURL)
		}
	})

	t.Run("report flags", func(t *testing.T) {
		t.Parallel()
		cfgPath := writeConfigFile(t, "")

		cmd := parseCommand(t, "history", "--config", cfgPath, "--json", "--markdown")
		cfg, err := buildConfig(cmd, nil)
		if err != nil {
			t.Fatalf("buildConfig() error = %v", err)
		}
		if !errors.Is(cfg.ValidateReport(), config.ErrConflictingReportFormats) {
			t.Error("expected conflicting report formats")
		}
	})

	t.Run("missing explicit config file", func(t *testing.T) {
		t.Parallel()
		missing := filepath.Join(t.TempDir(), "missing.yaml")

		cmd := parseCommand(t, "index", "--config", missing)
		if _, err := buildConfig(cmd, nil); !errors.Is(err, config.ErrConfigNotFound) {
			t.Errorf("error = %v, want ErrConfigNotFound", err)
		}
	})

	t.Run("malformed config file", func(t *testing.T) {
		t.Parallel()
		cfgPath := writeConfigFile(t, "crawl:\n  delay: soon\n")

		cmd := parseCommand(t, "crawl", "--config", cfgPath)
		if _, err := buildConfig(cmd, nil); err == nil {
			t.Error("expected error for invalid delay")
		}
	})
}

// newTestWiki serves three linked articles. The File: link is never followed.
func newTestWiki(t *testing.T) *httptest.Server {
	t.Helper()
	pages := map[string]string{
		"/wiki/Start":  `<a href="/wiki/Apple">a</a> <a href="/wiki/Banana">b</a> <a href="/wiki/File:X.png">f</a> start page`,
		"/wiki/Apple":  `<a href="/wiki/Start">s</a> apple orchard harvest`,
		"/wiki/Banana": `<a href="/wiki/Apple">a</a> banana plantation harvest`,
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, ok := pages[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprintf(w, "<html><head><title>%s</title></head><body><p>%s</p></body></html>", r.URL.Path, body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

// execute runs the root command with args and returns its stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := NewRootCmd()
	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestRunCommand(t *testing.T) {
	srv := newTestWiki(t)
	dbDir := t.TempDir()
	cfgPath := writeConfigFile(t, "")
	seed := srv.URL + "/wiki/Start"

	common := []string{"--config", cfgPath, "--db-dir", dbDir}

	t.Run("crawls and indexes", func(t *testing.T) {
		args := append([]string{"run", seed, "--crawl-delay", "0", "-w", "2", "-t", "5s", "--json"}, common...)
		out, err := execute(t, args...)
		if err != nil {
			t.Fatalf("run error = %v", err)
		}

		var report model.RunReport
		if err := json.Unmarshal([]byte(out), &report); err != nil {
			t.Fatalf("invalid JSON report: %v\n%s", err, out)
		}
		if report.Visited != 3 || report.Stored != 3 {
			t.Errorf("visited = %d, stored = %d, want 3 and 3", report.Visited, report.Stored)
		}
		if report.Indexed != 3 || report.Entries == 0 {
			t.Errorf("indexed = %d, entries = %d", report.Indexed, report.Entries)
		}
		if strings.Join(report.PerformedSteps, ",") != "crawl,index" {
			t.Errorf("steps = %v", report.PerformedSteps)
		}
		if report.TotalFailures() != 0 {
			t.Errorf("failures = %v", report.Failures)
		}
	})

	t.Run("refuses a visited seed", func(t *testing.T) {
		args := append([]string{"crawl", seed, "--crawl-delay", "0"}, common...)
		out, err := execute(t, args...)
		if !errors.Is(err, pipeline.ErrSeedVisited) {
			t.Fatalf("error = %v, want ErrSeedVisited", err)
		}
		if !strings.Contains(out, "failed") {
			t.Errorf("report should show the failed status:\n%s", out)
		}
	})

	t.Run("index with nothing new", func(t *testing.T) {
		args := append([]string{"index", "--json"}, common...)
		out, err := execute(t, args...)
		if err != nil {
			t.Fatalf("index error = %v", err)
		}
		var report model.RunReport
		if err := json.Unmarshal([]byte(out), &report); err != nil {
			t.Fatalf("invalid JSON report: %v", err)
		}
		if report.Indexed != 0 || report.SeedURL != "" {
			t.Errorf("indexed = %d, seed = %q", report.Indexed, report.SeedURL)
		}
	})

	t.Run("history lists every run", func(t *testing.T) {
		// Runs started within the same instant would tie on ordering.
		time.Sleep(10 * time.Millisecond)

		args := append([]string{"history", "--json"}, common...)
		out, err := execute(t, args...)
		if err != nil {
			t.Fatalf("history error = %v", err)
		}
		var runs []*model.RunReport
		if err := json.Unmarshal([]byte(out), &runs); err != nil {
			t.Fatalf("invalid JSON history: %v\n%s", err, out)
		}
		if len(runs) != 3 {
			t.Fatalf("runs = %d, want 3", len(runs))
		}

		args = append([]string{"history", "--id", runs[len(runs)-1].ID}, common...)
		out, err = execute(t, args...)
		if err != nil {
			t.Fatalf("history --id error = %v", err)
		}
		if !strings.Contains(out, "WIKINDEX RUN REPORT") || !strings.Contains(out, seed) {
			t.Errorf("unexpected run report:\n%s", out)
		}
	})

	t.Run("history text includes corpus summary", func(t *testing.T) {
		args := append([]string{"history"}, common...)
		out, err := execute(t, args...)
		if err != nil {
			t.Fatalf("history error = %v", err)
		}
		if !strings.Contains(out, "Corpus: 3 documents") {
			t.Errorf("missing corpus summary:\n%s", out)
		}
	})

	t.Run("unknown run id", func(t *testing.T) {
		args := append([]string{"history", "--id", "nope"}, common...)
		if _, err := execute(t, args...); err == nil {
			t.Error("expected error for unknown id")
		}
	})

	t.Run("report file", func(t *testing.T) {
		reportPath := filepath.Join(t.TempDir(), "reports", "index.md")
		args := append([]string{"index", "--markdown", "-o", reportPath}, common...)
		out, err := execute(t, args...)
		if err != nil {
			t.Fatalf("index error = %v", err)
		}
		if out != "" {
			t.Errorf("stdout should be empty when writing to a file, got %q", out)
		}
		content, err := os.ReadFile(reportPath)
		if err != nil {
			t.Fatalf("report file not written: %v", err)
		}
		if !strings.Contains(string(content), "# wikindex Run Report") {
			t.Errorf("unexpected report file:\n%s", content)
		}
	})
}

func TestRunCommandRejectsInvalidConfig(t *testing.T) {
	t.Parallel()
	cfgPath := writeConfigFile(t, "")

	_, err := execute(t, "crawl", "--config", cfgPath, "--db-dir", t.TempDir(), "-w", "0")
	if !errors.Is(err, config.ErrInvalidWorkers) {
		t.Errorf("error = %v, want ErrInvalidWorkers", err)
	}

	_, err = execute(t, "crawl", "--config", cfgPath, "--db-dir", t.TempDir(), "not a url")
	if !errors.Is(err, config.ErrInvalidSeed) {
		t.Errorf("error = %v, want ErrInvalidSeed", err)
	}
}
