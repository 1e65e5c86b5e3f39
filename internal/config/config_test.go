package config

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/spf13/pflag"
)

func testFlags() *pflag.FlagSet {
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("input", "input/mnemonics.txt", "")
	flags.String("output", "output/valid_mnemonics.txt", "")
	flags.Int("concurrency", 0, "")
	flags.String("checkpoint", "", "")
	flags.Int64("checkpoint-interval", 10000, "")
	flags.Bool("dedup", false, "")
	flags.String("dedup-index", "", "")
	flags.String("metrics-addr", "", "")
	flags.Bool("show-progress", true, "")
	flags.String("log-level", "info", "")
	return flags
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("", testFlags())
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Input != "input/mnemonics.txt" {
		t.Errorf("Unexpected input default: %q", cfg.Input)
	}
	if cfg.Output != "output/valid_mnemonics.txt" {
		t.Errorf("Unexpected output default: %q", cfg.Output)
	}
	if cfg.Processing.Concurrency != runtime.NumCPU() {
		t.Errorf("Expected concurrency %d, got %d", runtime.NumCPU(), cfg.Processing.Concurrency)
	}
	if cfg.Processing.CheckpointInterval != 10000 {
		t.Errorf("Expected checkpoint interval 10000, got %d", cfg.Processing.CheckpointInterval)
	}
	if !cfg.Processing.ShowProgress {
		t.Error("Expected show progress on by default")
	}
	if cfg.Dedup.Enabled {
		t.Error("Expected dedup off by default")
	}
	if cfg.Processing.Checkpoint == "" {
		t.Error("Expected a default checkpoint path")
	}
	if !strings.HasSuffix(cfg.Processing.Checkpoint, ".mnemoscan_checkpoint") {
		t.Errorf("Unexpected checkpoint path: %q", cfg.Processing.Checkpoint)
	}
}

func TestLoadFromFile(t *testing.T) {
	content := `
input: data/phrases.txt
output: data/valid.txt
log_level: debug
processing:
  concurrency: 4
  checkpoint_interval: 500
dedup:
  enabled: true
`
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path, testFlags())
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Input != "data/phrases.txt" {
		t.Errorf("Unexpected input: %q", cfg.Input)
	}
	if cfg.Processing.Concurrency != 4 {
		t.Errorf("Expected concurrency 4, got %d", cfg.Processing.Concurrency)
	}
	if cfg.Processing.CheckpointInterval != 500 {
		t.Errorf("Expected interval 500, got %d", cfg.Processing.CheckpointInterval)
	}
	if !cfg.Dedup.Enabled {
		t.Error("Expected dedup enabled")
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("Expected log level debug, got %q", cfg.LogLevel)
	}
}

func TestFlagsOverrideFile(t *testing.T) {
	content := "input: from_file.txt\nprocessing:\n  concurrency: 2\n"
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	flags := testFlags()
	if err := flags.Set("input", "from_flag.txt"); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path, flags)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Input != "from_flag.txt" {
		t.Errorf("Expected flag to win, got %q", cfg.Input)
	}
	if cfg.Processing.Concurrency != 2 {
		t.Errorf("Expected file value preserved, got %d", cfg.Processing.Concurrency)
	}
}

func TestDedupIndexDefaultsNextToOutput(t *testing.T) {
	flags := testFlags()
	if err := flags.Set("output", "results/valid.txt"); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load("", flags)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if filepath.Dir(cfg.Dedup.Index) != "results" {
		t.Errorf("Expected dedup index next to output, got %q", cfg.Dedup.Index)
	}
}

func TestValidation(t *testing.T) {
	tests := []struct {
		name string
		flag string
		val  string
	}{
		{"empty input", "input", ""},
		{"empty output", "output", ""},
		{"zero concurrency", "concurrency", "0"},
		{"negative concurrency", "concurrency", "-1"},
		{"zero interval", "checkpoint-interval", "0"},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			flags := testFlags()
			if err := flags.Set(test.flag, test.val); err != nil {
				t.Fatal(err)
			}
			if _, err := Load("", flags); err == nil {
				t.Error("Expected validation error")
			}
		})
	}
}

func TestMissingConfigFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml"), testFlags()); err == nil {
		t.Error("Expected error for missing config file")
	}
}
