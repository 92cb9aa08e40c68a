package deps

import (
	"os"
	"path/filepath"
	"testing"

	"recsync/internal/config"
)

func TestCheckBinaries(t *testing.T) {
	binDir := t.TempDir()
	present := filepath.Join(binDir, "present")
	script := []byte("#!/bin/sh\nexit 0\n")
	if err := os.WriteFile(present, script, 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}
	reqs := []Requirement{
		{Name: "Present", Command: present},
		{Name: "Missing", Command: "clearly-not-present-binary"},
	}

	results := CheckBinaries(reqs)
	if len(results) != len(reqs) {
		t.Fatalf("expected %d results, got %d", len(reqs), len(results))
	}

	if !results[0].Available {
		t.Fatalf("expected first requirement to be available, got %#v", results[0])
	}
	if results[0].Detail != "" {
		t.Fatalf("unexpected detail for available dependency: %s", results[0].Detail)
	}

	if results[1].Available {
		t.Fatalf("expected missing binary to be unavailable")
	}
	if results[1].Detail == "" {
		t.Fatalf("expected detail message for missing binary")
	}
}

func TestCheckBinariesUnconfigured(t *testing.T) {
	results := CheckBinaries([]Requirement{{Name: "Empty", Command: "  "}})
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	if results[0].Available {
		t.Fatalf("expected unconfigured command to be unavailable")
	}
	if results[0].Detail != "command not configured" {
		t.Fatalf("unexpected detail: %s", results[0].Detail)
	}
}

func TestMissingRequired(t *testing.T) {
	statuses := []Status{
		{Name: "A", Available: true},
		{Name: "B", Available: false, Optional: true},
		{Name: "C", Available: false},
	}
	missing := MissingRequired(statuses)
	if len(missing) != 1 || missing[0].Name != "C" {
		t.Fatalf("expected only C to be missing, got %#v", missing)
	}
}

func TestRequirementsUsesConfiguredBinary(t *testing.T) {
	cfg := config.Default()
	cfg.Metadata.FFprobeBinary = "/opt/ffmpeg/bin/ffprobe"
	reqs := Requirements(&cfg)
	if len(reqs) != 1 {
		t.Fatalf("expected 1 requirement, got %d", len(reqs))
	}
	if reqs[0].Command != cfg.Metadata.FFprobeBinary {
		t.Fatalf("unexpected command: %s", reqs[0].Command)
	}
}
