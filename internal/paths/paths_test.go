package paths

import (
	"os"
	"path/filepath"
	"testing"
)

func TestBaseDirOverride(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("DANUU_HOME", dir)

	got, err := BaseDir()
	if err != nil {
		t.Fatalf("BaseDir: %v", err)
	}
	if got != dir {
		t.Errorf("BaseDir = %q, want %q", got, dir)
	}

	status, err := StatusPath()
	if err != nil {
		t.Fatalf("StatusPath: %v", err)
	}
	if status != filepath.Join(dir, "status.json") {
		t.Errorf("StatusPath = %q", status)
	}
}

func TestConfigPathPrefersLocal(t *testing.T) {
	home := t.TempDir()
	work := t.TempDir()
	t.Setenv("DANUU_HOME", home)
	t.Chdir(work)

	got, err := ConfigPath()
	if err != nil {
		t.Fatalf("ConfigPath: %v", err)
	}
	if got != "" {
		t.Fatalf("expected no config, got %q", got)
	}

	if err := os.WriteFile(filepath.Join(home, configFile), []byte("{}"), 0600); err != nil {
		t.Fatal(err)
	}
	got, _ = ConfigPath()
	if got != filepath.Join(home, configFile) {
		t.Errorf("ConfigPath = %q, want global", got)
	}

	if err := os.WriteFile(filepath.Join(work, configFile), []byte("{}"), 0600); err != nil {
		t.Fatal(err)
	}
	got, _ = ConfigPath()
	if filepath.Base(got) != configFile || filepath.Dir(got) == home {
		t.Errorf("ConfigPath = %q, want local", got)
	}
}

func TestExpandTilde(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}
	tests := []struct {
		in, want string
	}{
		{"", ""},
		{"/abs/path", "/abs/path"},
		{"~", home},
		{"~/x/y", filepath.Join(home, "x/y")},
	}
	for _, tt := range tests {
		got, err := ExpandTilde(tt.in)
		if err != nil {
			t.Fatalf("ExpandTilde(%q): %v", tt.in, err)
		}
		if got != tt.want {
			t.Errorf("ExpandTilde(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
