package cli

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/matzehuels/coinstack/pkg/buildinfo"
	"github.com/matzehuels/coinstack/pkg/observability"
)

func TestSetVersion(t *testing.T) {
	v, c, d := buildinfo.Version, buildinfo.Commit, buildinfo.Date
	t.Cleanup(func() { buildinfo.Version, buildinfo.Commit, buildinfo.Date = v, c, d })

	SetVersion("1.0.0", "abc123", "2024-01-01")
	if buildinfo.Version != "1.0.0" || buildinfo.Commit != "abc123" || buildinfo.Date != "2024-01-01" {
		t.Errorf("SetVersion did not update buildinfo: %s", buildinfo.String())
	}

	SetVersion("", "", "")
	if buildinfo.Version != "1.0.0" {
		t.Errorf("empty values should keep the current version, got %q", buildinfo.Version)
	}
}

func TestExecuteVersion(t *testing.T) {
	v := buildinfo.Version
	t.Cleanup(func() { buildinfo.Version = v })
	t.Cleanup(observability.Reset)
	SetVersion("2.3.4", "", "")

	var out, errb bytes.Buffer
	if err := Execute(context.Background(), []string{"--version"}, &out, &errb); err != nil {
		t.Fatalf("Execute(--version) error: %v", err)
	}
	if !strings.Contains(out.String(), "2.3.4") {
		t.Errorf("version output %q should contain 2.3.4", out.String())
	}
}

func TestExecuteReportsErrors(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("XDG_DATA_HOME", t.TempDir())
	t.Cleanup(observability.Reset)

	var out, errb bytes.Buffer
	err := Execute(context.Background(), []string{"add", "bitcoin", "lots"}, &out, &errb)
	if err == nil {
		t.Fatal("expected an error for a non-numeric quantity")
	}
	if !strings.Contains(errb.String(), `quantity "lots" is not a number`) {
		t.Errorf("stderr %q should carry the user message", errb.String())
	}
}

func TestExecuteCancelled(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("XDG_DATA_HOME", t.TempDir())
	t.Cleanup(observability.Reset)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var out, errb bytes.Buffer
	err := Execute(ctx, []string{"serve", "--addr", "127.0.0.1:0"}, &out, &errb)
	if err != context.Canceled {
		t.Errorf("Execute on a cancelled context = %v, want context.Canceled", err)
	}
}
