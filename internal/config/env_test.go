package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadEnv(t *testing.T) {
	// Создаем временный каталог для тестов
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, ".env")

	content := `
# Comment line
TEST_ENV_KEY1=value1
export TEST_ENV_KEY2="quoted value"
TEST_ENV_KEY3='single'
TEST_ENV_PRESET=from-file
not a pair
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	t.Setenv("TEST_ENV_PRESET", "from-shell")
	for _, key := range []string{"TEST_ENV_KEY1", "TEST_ENV_KEY2", "TEST_ENV_KEY3"} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}

	if err := LoadEnv(path); err != nil {
		t.Fatalf("LoadEnv() error = %v", err)
	}

	want := map[string]string{
		"TEST_ENV_KEY1":   "value1",
		"TEST_ENV_KEY2":   "quoted value",
		"TEST_ENV_KEY3":   "single",
		"TEST_ENV_PRESET": "from-shell",
	}
	for key, val := range want {
		if got := os.Getenv(key); got != val {
			t.Errorf("%s = %q, want %q", key, got, val)
		}
	}
}

func TestLoadEnvOptional(t *testing.T) {
	if err := LoadEnvOptional(filepath.Join(t.TempDir(), "missing.env")); err != nil {
		t.Errorf("missing file should not be an error, got %v", err)
	}

	if err := LoadEnv(filepath.Join(t.TempDir(), "missing.env")); err == nil {
		t.Error("LoadEnv should fail for a missing file")
	}
}
