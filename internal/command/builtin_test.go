package command

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/joeycumines/uidriver/internal/config"
)

func TestHelpCommandExecute(t *testing.T) {
	registry := NewRegistry()
	registry.Register(NewVersionCommand("1.0.0"))
	registry.Register(NewConfigCommand(config.NewConfig(), ""))
	registry.Register(NewRunCommand(config.NewConfig()))
	cmd := NewHelpCommand(registry)
	registry.Register(cmd)

	t.Run("general help", func(t *testing.T) {
		var stdout, stderr bytes.Buffer
		if err := cmd.Execute(context.Background(), nil, &stdout, &stderr); err != nil {
			t.Fatalf("Expected no error, got: %v", err)
		}
		for _, part := range []string{
			"Usage: uidriver <command>",
			"Available commands:",
			"run",
			"Run test case scripts",
			"version",
		} {
			if !strings.Contains(stdout.String(), part) {
				t.Errorf("Expected output to contain %q. Output: %s", part, stdout.String())
			}
		}
	})

	t.Run("command help lists flags", func(t *testing.T) {
		var stdout, stderr bytes.Buffer
		if err := cmd.Execute(context.Background(), []string{"run"}, &stdout, &stderr); err != nil {
			t.Fatalf("Expected no error, got: %v", err)
		}
		for _, part := range []string{"Command: run", "Flags:", "-fail-fast", "-objects", "-app"} {
			if !strings.Contains(stdout.String(), part) {
				t.Errorf("Expected output to contain %q. Output: %s", part, stdout.String())
			}
		}
	})

	t.Run("unknown command", func(t *testing.T) {
		var stdout, stderr bytes.Buffer
		if err := cmd.Execute(context.Background(), []string{"nope"}, &stdout, &stderr); err == nil {
			t.Fatal("Expected error for unknown command")
		}
		if !strings.Contains(stderr.String(), "Unknown command: nope") {
			t.Errorf("Unexpected stderr: %s", stderr.String())
		}
	})
}

func TestVersionCommand(t *testing.T) {
	var stdout, stderr bytes.Buffer
	cmd := NewVersionCommand("1.2.3")
	if err := cmd.Execute(context.Background(), nil, &stdout, &stderr); err != nil {
		t.Fatal(err)
	}
	if got := stdout.String(); got != "uidriver version 1.2.3\n" {
		t.Errorf("Unexpected output %q", got)
	}
	if err := cmd.Execute(context.Background(), []string{"x"}, &stdout, &stderr); err == nil {
		t.Error("Expected error for extra arguments")
	}
}

func TestConfigCommand(t *testing.T) {
	t.Setenv("UIDRIVER_LOG_LEVEL", "")
	path := filepath.Join(t.TempDir(), "config")
	cfg := config.NewConfig()
	cmd := NewConfigCommand(cfg, path)
	ctx := context.Background()

	var stdout, stderr bytes.Buffer
	if err := cmd.Execute(ctx, []string{"wait.timeout"}, &stdout, &stderr); err != nil {
		t.Fatal(err)
	}
	if got := stdout.String(); got != "wait.timeout: 20s\n" {
		t.Errorf("Unexpected default: %q", got)
	}

	stdout.Reset()
	if err := cmd.Execute(ctx, []string{"wait.timeout", "45s"}, &stdout, &stderr); err != nil {
		t.Fatal(err)
	}
	if v, _ := cfg.GetGlobalOption("wait.timeout"); v != "45s" {
		t.Errorf("Expected in-memory update, got %q", v)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "wait.timeout 45s\n" {
		t.Errorf("Unexpected file content %q", data)
	}

	cmd.section = "run"
	stdout.Reset()
	if err := cmd.Execute(ctx, []string{"report.format", "json"}, &stdout, &stderr); err != nil {
		t.Fatal(err)
	}
	data, _ = os.ReadFile(path)
	if string(data) != "wait.timeout 45s\n\n[run]\nreport.format json\n" {
		t.Errorf("Unexpected file content %q", data)
	}

	stdout.Reset()
	cmd.section = ""
	cmd.showAll = true
	if err := cmd.Execute(ctx, nil, &stdout, &stderr); err != nil {
		t.Fatal(err)
	}
	for _, part := range []string{"wait.timeout", "45s", "[run]", "keep-going"} {
		if !strings.Contains(stdout.String(), part) {
			t.Errorf("Expected -all output to contain %q:\n%s", part, stdout.String())
		}
	}
}

func TestConfigCommandValidate(t *testing.T) {
	cfg := config.NewConfig()
	cmd := NewConfigCommand(cfg, "")
	var stdout, stderr bytes.Buffer
	if err := cmd.Execute(context.Background(), []string{"validate"}, &stdout, &stderr); err != nil {
		t.Fatalf("Expected valid config, got %v", err)
	}

	cfg.SetGlobalOption("terminal.rows", "many")
	stdout.Reset()
	err := cmd.Execute(context.Background(), []string{"validate"}, &stdout, &stderr)
	var exit *ExitError
	if !errors.As(err, &exit) || exit.Code != 1 {
		t.Fatalf("Expected exit code 1, got %v", err)
	}
	if !strings.Contains(stdout.String(), `terminal.rows": expected int`) {
		t.Errorf("Unexpected output: %s", stdout.String())
	}
}

func TestInitCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config")
	cmd := NewInitCommand(path)
	var stdout, stderr bytes.Buffer
	if err := cmd.Execute(context.Background(), nil, &stdout, &stderr); err != nil {
		t.Fatal(err)
	}
	cfg, err := config.LoadFromPath(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.HasWarnings() {
		t.Errorf("Starter config has warnings: %v", cfg.Warnings)
	}

	stdout.Reset()
	if err := cmd.Execute(context.Background(), nil, &stdout, &stderr); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(stdout.String(), "already exists") {
		t.Errorf("Expected existing config notice, got %q", stdout.String())
	}
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	r.Register(NewVersionCommand("1"))
	r.Register(NewLintCommand(nil))
	if got := strings.Join(r.List(), ","); got != "lint,version" {
		t.Errorf("Unexpected list %q", got)
	}
	if _, err := r.Get("missing"); err == nil {
		t.Error("Expected error for missing command")
	}
}
