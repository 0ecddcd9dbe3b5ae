package config

import (
	"flag"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// isolate clears the variables Load reads and moves into an empty directory.
func isolate(t *testing.T) string {
	t.Helper()
	for _, key := range []string{"HOST", "PORT", "TASKS_FILE", "TASKS_DRIVER", "LOG_LEVEL", "LOG_FORMAT", "SHUTDOWN_TIMEOUT", "TASKAPI_CONFIG"} {
		t.Setenv(key, "")
	}
	dir := t.TempDir()
	oldwd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Chdir(oldwd) })
	return dir
}

func newFlagSet() *flag.FlagSet {
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return fs
}

func TestDefaults(t *testing.T) {
	cfg := &Config{}
	setDefaults(cfg)

	if cfg.Port != DefaultPort {
		t.Errorf("Port: got %d, want %d", cfg.Port, DefaultPort)
	}
	if cfg.StoreDriver != "json" {
		t.Errorf("StoreDriver: got %q, want json", cfg.StoreDriver)
	}
	if filepath.Base(cfg.StorePath) != DefaultStoreFile {
		t.Errorf("StorePath: got %q, want file named %s", cfg.StorePath, DefaultStoreFile)
	}
	if cfg.ShutdownTimeout != DefaultShutdownTimeout {
		t.Errorf("ShutdownTimeout: got %v", cfg.ShutdownTimeout)
	}
}

func TestLoad_NoSources(t *testing.T) {
	isolate(t)

	cfg, err := Load(newFlagSet(), nil)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Addr() != ":3000" {
		t.Errorf("Addr: got %q, want :3000", cfg.Addr())
	}
	if cfg.ConfigFile != "" {
		t.Errorf("expected no config file, got %q", cfg.ConfigFile)
	}
}

func TestLoad_Precedence(t *testing.T) {
	dir := isolate(t)

	configPath := filepath.Join(dir, "taskapi.toml")
	contents := `
port = 4000
store_path = "from-file.json"
log_level = "debug"
shutdown_timeout = "3s"
`
	if err := os.WriteFile(configPath, []byte(contents), 0o644); err != nil {
		t.Fatal(err)
	}

	t.Setenv("PORT", "5000")
	t.Setenv("TASKS_DRIVER", "SQLITE")

	cfg, err := Load(newFlagSet(), []string{"-log-level", "warn"})
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.ConfigFile != "taskapi.toml" {
		t.Errorf("ConfigFile: got %q", cfg.ConfigFile)
	}
	if cfg.StorePath != "from-file.json" {
		t.Errorf("StorePath from file: got %q", cfg.StorePath)
	}
	if cfg.ShutdownTimeout != 3*time.Second {
		t.Errorf("ShutdownTimeout from file: got %v", cfg.ShutdownTimeout)
	}
	if cfg.Port != 5000 {
		t.Errorf("Port from env: got %d, want 5000", cfg.Port)
	}
	if cfg.StoreDriver != "sqlite" {
		t.Errorf("StoreDriver from env: got %q", cfg.StoreDriver)
	}
	if cfg.LogLevel != "warn" {
		t.Errorf("LogLevel from flag: got %q, want warn", cfg.LogLevel)
	}
}

func TestLoad_YAMLConfigFlag(t *testing.T) {
	dir := isolate(t)

	configPath := filepath.Join(dir, "custom.yaml")
	contents := "port: 8081\nstore_driver: sqlite\nstore_path: tasks.db\nlog_format: json\n"
	if err := os.WriteFile(configPath, []byte(contents), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(newFlagSet(), []string{"-config=" + configPath})
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Port != 8081 || cfg.StoreDriver != "sqlite" || cfg.StorePath != "tasks.db" || cfg.LogFormat != "json" {
		t.Errorf("unexpected config: %+v", cfg)
	}
	if cfg.ConfigFile != configPath {
		t.Errorf("ConfigFile: got %q", cfg.ConfigFile)
	}
}

func TestLoad_ConfigFromEnv(t *testing.T) {
	dir := isolate(t)

	configPath := filepath.Join(dir, "elsewhere.toml")
	if err := os.WriteFile(configPath, []byte("port = 7000\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("TASKAPI_CONFIG", configPath)

	cfg, err := Load(newFlagSet(), []string{"--file", "x.json"})
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Port != 7000 {
		t.Errorf("Port: got %d, want 7000", cfg.Port)
	}
	if cfg.StorePath != "x.json" {
		t.Errorf("StorePath: got %q", cfg.StorePath)
	}
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		args []string
	}{
		{name: "bad port env", env: map[string]string{"PORT": "abc"}},
		{name: "port out of range", args: []string{"-port", "70000"}},
		{name: "unknown driver", args: []string{"-driver", "postgres"}},
		{name: "empty file", args: []string{"-file", " "}},
		{name: "bad duration", env: map[string]string{"SHUTDOWN_TIMEOUT": "soon"}},
		{name: "unknown flag", args: []string{"-verbose"}},
		{name: "missing config file", args: []string{"-config", "nope.toml"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			isolate(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			if _, err := Load(newFlagSet(), tt.args); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestLoad_EnumsAreCaseInsensitive(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		args []string
	}{
		{name: "flags", args: []string{"-driver", "SQLite", "-log-level", "DEBUG", "-log-format", "JSON"}},
		{name: "env", env: map[string]string{"TASKS_DRIVER": "SQLite", "LOG_LEVEL": "DEBUG", "LOG_FORMAT": "JSON"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			isolate(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			cfg, err := Load(newFlagSet(), tt.args)
			if err != nil {
				t.Fatalf("Load failed: %v", err)
			}
			if cfg.StoreDriver != "sqlite" || cfg.LogLevel != "debug" || cfg.LogFormat != "json" {
				t.Errorf("expected lowercased values, got driver=%q level=%q format=%q", cfg.StoreDriver, cfg.LogLevel, cfg.LogFormat)
			}
		})
	}
}
