package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()
	if cfg.Port != "8810" {
		t.Errorf("Port = %q", cfg.Port)
	}
	if cfg.DatastoreKey != "heimdall_cron_enforcements" {
		t.Errorf("DatastoreKey = %q", cfg.DatastoreKey)
	}
	if cfg.TriggerRef != "errors.cron_event" {
		t.Errorf("TriggerRef = %q", cfg.TriggerRef)
	}
	if cfg.RetentionDays != 90 {
		t.Errorf("RetentionDays = %d", cfg.RetentionDays)
	}
	if len(cfg.IgnoredTasks) != 1 || cfg.IgnoredTasks[0] != "send_error_email" {
		t.Errorf("IgnoredTasks = %v", cfg.IgnoredTasks)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("HEIMDALL_PORT", "9000")
	t.Setenv("HEIMDALL_RETENTION_DAYS", "7")
	t.Setenv("HEIMDALL_IGNORED_TASKS", "send_error_email, notify_oncall ,")

	cfg := Load()
	if cfg.Port != "9000" {
		t.Errorf("Port = %q", cfg.Port)
	}
	if cfg.RetentionDays != 7 {
		t.Errorf("RetentionDays = %d", cfg.RetentionDays)
	}
	want := []string{"send_error_email", "notify_oncall"}
	if len(cfg.IgnoredTasks) != len(want) {
		t.Fatalf("IgnoredTasks = %v", cfg.IgnoredTasks)
	}
	for i := range want {
		if cfg.IgnoredTasks[i] != want[i] {
			t.Errorf("IgnoredTasks[%d] = %q, want %q", i, cfg.IgnoredTasks[i], want[i])
		}
	}
}

func TestLoadBadIntFallsBack(t *testing.T) {
	t.Setenv("HEIMDALL_RETENTION_DAYS", "ninety")
	cfg := Load()
	if cfg.RetentionDays != 90 {
		t.Errorf("RetentionDays = %d, want default 90", cfg.RetentionDays)
	}
}

func TestLoadProfiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "profiles.yaml")
	content := `profiles:
  ticketing:
    htmlTags: true
    ignoredTasks: [send_error_email]
    header: "Workflow failure"
  plain:
    htmlTags: false
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	profiles, err := LoadProfiles(path)
	if err != nil {
		t.Fatalf("LoadProfiles: %v", err)
	}
	if len(profiles) != 2 {
		t.Fatalf("got %d profiles, want 2", len(profiles))
	}
	tk := profiles["ticketing"]
	if !tk.HTMLTags || tk.Header != "Workflow failure" {
		t.Errorf("ticketing = %+v", tk)
	}
	if len(tk.IgnoredTasks) != 1 || tk.IgnoredTasks[0] != "send_error_email" {
		t.Errorf("IgnoredTasks = %v", tk.IgnoredTasks)
	}
	if profiles["plain"].HTMLTags {
		t.Error("plain profile should not use HTML tags")
	}
}

func TestLoadProfilesEmptyPath(t *testing.T) {
	profiles, err := LoadProfiles("")
	if err != nil {
		t.Fatalf("LoadProfiles: %v", err)
	}
	if len(profiles) != 0 {
		t.Errorf("got %d profiles, want 0", len(profiles))
	}
}

func TestLoadProfilesMissingFile(t *testing.T) {
	if _, err := LoadProfiles("/nonexistent/profiles.yaml"); err == nil {
		t.Error("expected error for missing file")
	}
}
