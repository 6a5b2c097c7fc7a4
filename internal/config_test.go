package internal

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	pkgconfig "github.com/starford/siyuanflow/pkg/config"
)

func TestAuthConfig_DisabledMode(t *testing.T) {
	cfg := AuthConfig{Mode: "disabled", Token: ""}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("disabled mode should pass: %v", err)
	}
	if cfg.AuthEnabled() {
		t.Error("disabled mode should not be enabled")
	}
}

func TestAuthConfig_EmptyModeDefaultsDisabled(t *testing.T) {
	cfg := AuthConfig{Mode: "", Token: ""}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("empty mode should default to disabled: %v", err)
	}
	if cfg.Mode != AuthModeDisabled {
		t.Errorf("mode = %q, want %q", cfg.Mode, AuthModeDisabled)
	}
}

func TestAuthConfig_TokenModeValid(t *testing.T) {
	cfg := AuthConfig{Mode: "token", Token: "mysecret"}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("token mode with token should pass: %v", err)
	}
	if !cfg.AuthEnabled() {
		t.Error("token mode should be enabled")
	}
}

func TestAuthConfig_TokenModeEmptyToken(t *testing.T) {
	cfg := AuthConfig{Mode: "token", Token: ""}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("token mode with empty token should fail")
	}
	if !strings.Contains(err.Error(), "token is empty") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestAuthConfig_InvalidMode(t *testing.T) {
	cfg := AuthConfig{Mode: "magic", Token: "x"}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("invalid mode should fail validation")
	}
}

func TestFullConfig_AuthValidationCalled(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Auth.Mode = "token"
	cfg.Auth.Token = ""
	err := cfg.Validate()
	if err == nil {
		t.Fatal("full config validate should catch auth error")
	}
}

func TestDefaultConfig_Valid(t *testing.T) {
	if err := NewDefaultConfig().Validate(); err != nil {
		t.Fatalf("default config should be valid: %v", err)
	}
}

func TestSiYuanConfig_URL(t *testing.T) {
	for _, u := range []string{"", "ftp://host", "not a url", "http://"} {
		cfg := SiYuanConfig{URL: u}
		if err := cfg.Validate(); err == nil {
			t.Errorf("url %q should fail validation", u)
		}
	}
	cfg := SiYuanConfig{URL: "https://notes.example.com:6806"}
	if err := cfg.Validate(); err != nil {
		t.Errorf("valid url rejected: %v", err)
	}
}

func TestImporterConfig_NotebookRequiredWithVault(t *testing.T) {
	cfg := ImporterConfig{Vault: "./vault"}
	if err := cfg.Validate(); err == nil {
		t.Fatal("vault without notebook should fail")
	}
	cfg.Notebook = "20210817205410-2kvfpfn"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("vault with notebook should pass: %v", err)
	}
	if !cfg.Enabled() {
		t.Error("importer with vault should be enabled")
	}
}

func TestLoad_FromYAMLWithEnv(t *testing.T) {
	t.Setenv("TEST_SIYUAN_TOKEN", "abc123")
	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := `app:
  log_level: debug
  http:
    port: 9090
siyuan:
  url: http://siyuan:6806
  token: ${TEST_SIYUAN_TOKEN}
  timeout: 15s
importer:
  vault: ./notes
  notebook: nb1
  watch: true
`
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := NewDefaultConfig()
	if err := pkgconfig.Load(path, cfg); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.SiYuan.Token != "abc123" {
		t.Errorf("token = %q", cfg.SiYuan.Token)
	}
	if cfg.SiYuan.Timeout != 15*time.Second {
		t.Errorf("timeout = %v", cfg.SiYuan.Timeout)
	}
	if cfg.App.HTTP.Port != 9090 || !cfg.Importer.Watch {
		t.Errorf("config = %+v", cfg)
	}
	if !cfg.Policy.ReadOnlySQL {
		t.Error("defaults should survive a partial file")
	}
}

func TestLoadOptional_MissingFileKeepsDefaults(t *testing.T) {
	cfg := NewDefaultConfig()
	if err := pkgconfig.LoadOptional(filepath.Join(t.TempDir(), "absent.yaml"), cfg); err != nil {
		t.Fatalf("LoadOptional: %v", err)
	}
	if cfg.SiYuan.URL != "http://127.0.0.1:6806" {
		t.Errorf("url = %q", cfg.SiYuan.URL)
	}
}
