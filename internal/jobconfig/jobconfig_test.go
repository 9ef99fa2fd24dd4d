package jobconfig

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/netvigil/tnmcore/internal/scheduler"
)

func writeFile(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "jobs.yaml")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	return path
}

func TestLoadEmptyPath(t *testing.T) {
	f, err := Load("")
	if err != nil {
		t.Fatalf("Load(\"\") error = %v", err)
	}
	if len(f.Jobs) != 0 {
		t.Errorf("Jobs = %v, want empty", f.Jobs)
	}
}

func TestLoadParsesDurationsAndTags(t *testing.T) {
	path := writeFile(t, `
jobs:
  - name: ping-sweep
    interval: 30s
    iterations: 0
    tags: ["icmp", "sweep"]
    hook: icmp.sweep
`)
	f, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(f.Jobs) != 1 {
		t.Fatalf("len(Jobs) = %d, want 1", len(f.Jobs))
	}
	j := f.Jobs[0]
	if j.Name != "ping-sweep" || j.Hook != "icmp.sweep" {
		t.Errorf("job = %+v", j)
	}
	if time.Duration(j.Interval) != 30*time.Second {
		t.Errorf("Interval = %v, want 30s", time.Duration(j.Interval))
	}
	if len(j.Tags) != 2 {
		t.Errorf("Tags = %v, want 2 entries", j.Tags)
	}
}

func TestLoadRejectsMissingName(t *testing.T) {
	path := writeFile(t, `
jobs:
  - interval: 10s
    hook: icmp.sweep
`)
	if _, err := Load(path); err == nil {
		t.Error("expected error for job missing name")
	}
}

func TestLoadRejectsMissingHook(t *testing.T) {
	path := writeFile(t, `
jobs:
  - name: ping-sweep
    interval: 10s
`)
	if _, err := Load(path); err == nil {
		t.Error("expected error for job missing hook")
	}
}

func TestBootstrapCreatesJobs(t *testing.T) {
	f := File{Jobs: []JobDef{
		{Name: "ping-sweep", Interval: Duration(30 * time.Second), Hook: "icmp.sweep", Tags: []string{"icmp"}},
	}}

	var ran bool
	hooks := HookRegistry{
		"icmp.sweep": func(scheduler.Handle) error { ran = true; return nil },
	}

	s := scheduler.New(zap.NewNop(), scheduler.NewRealTimer(), nil)
	handles, err := Bootstrap(s, f, hooks)
	if err != nil {
		t.Fatalf("Bootstrap: %v", err)
	}
	if len(handles) != 1 {
		t.Fatalf("len(handles) = %d, want 1", len(handles))
	}
	_ = ran
}

func TestBootstrapUnknownHook(t *testing.T) {
	f := File{Jobs: []JobDef{{Name: "x", Hook: "missing"}}}
	s := scheduler.New(zap.NewNop(), scheduler.NewRealTimer(), nil)
	if _, err := Bootstrap(s, f, HookRegistry{}); err == nil {
		t.Error("expected error for unknown hook")
	}
}
