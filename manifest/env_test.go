package manifest

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadEnvFile(t *testing.T) {
	t.Setenv(EnvPath, "")
	t.Setenv(EnvLog, "")
	os.Unsetenv(EnvPath)
	os.Unsetenv(EnvLog)

	dir := t.TempDir()
	content := EnvPath + "=" + "/a" + string(filepath.ListSeparator) + "/b\n" + EnvLog + "=2\n"
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	env, err := LoadEnv(dir)
	if err != nil {
		t.Fatalf("LoadEnv: %v", err)
	}
	if len(env.Path) != 2 || env.Path[0] != "/a" || env.Path[1] != "/b" {
		t.Errorf("path = %v, want [/a /b]", env.Path)
	}
	if env.Log != 2 {
		t.Errorf("log = %d, want 2", env.Log)
	}
}

func TestLoadEnvProcessWins(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte(EnvLog+"=1\n"), 0644); err != nil {
		t.Fatal(err)
	}
	t.Setenv(EnvLog, "3")
	t.Setenv(EnvPath, "")

	env, err := LoadEnv(dir)
	if err != nil {
		t.Fatalf("LoadEnv: %v", err)
	}
	if env.Log != 3 {
		t.Errorf("log = %d, want 3", env.Log)
	}
	if len(env.Path) != 0 {
		t.Errorf("path = %v, want empty", env.Path)
	}
}

func TestLoadEnvMissingFile(t *testing.T) {
	t.Setenv(EnvLog, "")
	t.Setenv(EnvPath, "")

	env, err := LoadEnv(t.TempDir())
	if err != nil {
		t.Fatalf("LoadEnv: %v", err)
	}
	if env.Log != 0 || len(env.Path) != 0 {
		t.Errorf("env = %+v, want zero", env)
	}
}

func TestLoadEnvBadLevel(t *testing.T) {
	t.Setenv(EnvLog, "loud")
	if _, err := LoadEnv(""); err == nil {
		t.Fatal("expected error for non-numeric log level")
	}
}
