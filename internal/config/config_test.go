package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Name != "qestudio" {
		t.Errorf("expected Name=qestudio, got %s", cfg.Name)
	}
	if cfg.DOS.DefaultDegauss != 0.01 {
		t.Errorf("expected DefaultDegauss=0.01, got %v", cfg.DOS.DefaultDegauss)
	}
	if cfg.Pseudo.ScanWorkers < 2 || cfg.Pseudo.ScanWorkers > 8 {
		t.Errorf("ScanWorkers out of clamp range: %d", cfg.Pseudo.ScanWorkers)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestConfig_SaveLoad(t *testing.T) {
	t.Setenv("QESTUDIO_PSEUDO_DIR", "")
	t.Setenv("QESTUDIO_PSEUDO_DB", "")
	t.Setenv("QESTUDIO_DEBUG", "")

	path := filepath.Join(t.TempDir(), ".qestudio", "config.yaml")

	cfg := DefaultConfig()
	cfg.Pseudo.Dirs = []string{"/opt/sssp", "/opt/pslib"}
	cfg.DOS.DefaultDegauss = 0.02

	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"/opt/sssp", "/opt/pslib"}, loaded.Pseudo.Dirs)
	assert.Equal(t, 0.02, loaded.DOS.DefaultDegauss)
}

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	t.Setenv("QESTUDIO_PSEUDO_DIR", "")
	t.Setenv("QESTUDIO_PSEUDO_DB", "")
	t.Setenv("QESTUDIO_DEBUG", "")

	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoad_BadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("pseudo: [unterminated"), 0644))
	_, err := Load(path)
	assert.Error(t, err)
}

func TestEnvOverrides(t *testing.T) {
	t.Run("pseudo dir is prepended once", func(t *testing.T) {
		t.Setenv("QESTUDIO_PSEUDO_DIR", "/env/pseudo")

		cfg := &Config{Pseudo: PseudoConfig{Dirs: []string{"a", "/env/pseudo", "b"}}}
		cfg.applyEnvOverrides()

		assert.Equal(t, []string{"/env/pseudo", "a", "b"}, cfg.Pseudo.Dirs)
	})

	t.Run("index path", func(t *testing.T) {
		t.Setenv("QESTUDIO_PSEUDO_DB", "/tmp/idx.db")

		cfg := &Config{}
		cfg.applyEnvOverrides()

		assert.Equal(t, "/tmp/idx.db", cfg.Pseudo.IndexPath)
	})

	t.Run("debug switch", func(t *testing.T) {
		t.Setenv("QESTUDIO_DEBUG", "true")

		cfg := &Config{}
		cfg.applyEnvOverrides()

		assert.True(t, cfg.Logging.DebugMode)
		assert.Equal(t, "debug", cfg.Logging.Level)
	})
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero degauss", func(c *Config) { c.DOS.DefaultDegauss = 0 }},
		{"unknown ngauss", func(c *Config) { c.DOS.DefaultNgauss = 7 }},
		{"missing index", func(c *Config) { c.Pseudo.IndexPath = "" }},
		{"extension without dot", func(c *Config) { c.Pseudo.Extensions = []string{"upf"} }},
		{"no extensions", func(c *Config) { c.Pseudo.Extensions = nil }},
		{"zero workers", func(c *Config) { c.Pseudo.ScanWorkers = 0 }},
		{"bad level", func(c *Config) { c.Logging.Level = "verbose" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalid))
		})
	}
}

func TestLoggingConfig_IsCategoryEnabled(t *testing.T) {
	c := LoggingConfig{}
	assert.False(t, c.IsCategoryEnabled("tracer"))

	c.DebugMode = true
	assert.True(t, c.IsCategoryEnabled("tracer"))

	c.Categories = map[string]bool{"tracer": false}
	assert.False(t, c.IsCategoryEnabled("tracer"))
	assert.True(t, c.IsCategoryEnabled("pseudo"))
}

func TestFindWorkspaceRoot_PrefersStudioDir(t *testing.T) {
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, ".qestudio"), 0o755); err != nil {
		t.Fatalf("mkdir .qestudio: %v", err)
	}
	nested := filepath.Join(root, "a", "b")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatalf("mkdir nested: %v", err)
	}

	origWD, _ := os.Getwd()
	if err := os.Chdir(nested); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	t.Cleanup(func() { _ = os.Chdir(origWD) })

	got, err := FindWorkspaceRoot()
	if err != nil {
		t.Fatalf("FindWorkspaceRoot: %v", err)
	}
	want, _ := filepath.EvalSymlinks(root)
	gotEval, _ := filepath.EvalSymlinks(got)
	if gotEval != want {
		t.Fatalf("FindWorkspaceRoot=%q, want %q", got, root)
	}
}

func TestResolve(t *testing.T) {
	assert.Equal(t, "", Resolve("/ws", ""))
	assert.Equal(t, "/abs/x.db", Resolve("/ws", "/abs/x.db"))
	assert.Equal(t, filepath.Join("/ws", ".qestudio", "pseudo.db"), Resolve("/ws", ".qestudio/pseudo.db"))
}
