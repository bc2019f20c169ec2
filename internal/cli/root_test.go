package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/scraptool/corefetch/internal/config"
)

func resetFlagsForTest() {
	cfgFile = ""
	storageRoot = ""
	listenAddr = ""
	jwtSecret = ""
	tokenGroups = nil
	purgeSession = ""
}

func TestLoadConfig_Defaults(t *testing.T) {
	resetFlagsForTest()

	cfg, err := loadConfig()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	def, err := config.WithDefault().Build()
	if err != nil {
		t.Fatalf("should not error: %v", err)
	}
	if cfg.StorageRoot() != def.StorageRoot() {
		t.Errorf("expected StorageRoot %s, got %s", def.StorageRoot(), cfg.StorageRoot())
	}
	if cfg.ListenAddr() != def.ListenAddr() {
		t.Errorf("expected ListenAddr %s, got %s", def.ListenAddr(), cfg.ListenAddr())
	}
	if cfg.DefaultProfile() != def.DefaultProfile() {
		t.Errorf("expected DefaultProfile %s, got %s", def.DefaultProfile(), cfg.DefaultProfile())
	}
}

func TestLoadConfig_FlagOverridesWinOverDefault(t *testing.T) {
	resetFlagsForTest()
	storageRoot = "/tmp/custom-root"
	listenAddr = ":9090"
	defer resetFlagsForTest()

	cfg, err := loadConfig()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.StorageRoot() != "/tmp/custom-root" {
		t.Errorf("expected overridden StorageRoot, got %s", cfg.StorageRoot())
	}
	if cfg.ListenAddr() != ":9090" {
		t.Errorf("expected overridden ListenAddr, got %s", cfg.ListenAddr())
	}
}

func TestLoadConfig_FromConfigFile(t *testing.T) {
	resetFlagsForTest()
	defer resetFlagsForTest()

	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "config.json")
	body, _ := json.Marshal(map[string]interface{}{
		"storageRoot":    "/tmp/file-root",
		"defaultProfile": "stealth",
	})
	if err := os.WriteFile(path, body, 0o644); err != nil {
		t.Fatalf("writing test config file: %v", err)
	}
	cfgFile = path

	cfg, err := loadConfig()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.StorageRoot() != "/tmp/file-root" {
		t.Errorf("expected StorageRoot from file, got %s", cfg.StorageRoot())
	}
	if cfg.DefaultProfile() != "stealth" {
		t.Errorf("expected DefaultProfile from file, got %s", cfg.DefaultProfile())
	}
}

func TestLoadConfig_NonExistentConfigFile(t *testing.T) {
	resetFlagsForTest()
	defer resetFlagsForTest()
	cfgFile = "/path/that/does/not/exist/config.json"

	if _, err := loadConfig(); err == nil {
		t.Error("expected error for non-existent config file, got nil")
	}
}

func TestBuildVerifier_NilWithoutSecret(t *testing.T) {
	resetFlagsForTest()
	v, err := buildVerifier()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != nil {
		t.Errorf("expected nil verifier without a jwt secret, got %v", v)
	}
}

func TestBuildVerifier_JWTWithSecret(t *testing.T) {
	resetFlagsForTest()
	jwtSecret = "test-secret"
	defer resetFlagsForTest()

	v, err := buildVerifier()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v == nil {
		t.Fatal("expected a non-nil verifier when jwt secret is set")
	}
}

func TestRootCmd_RegistersSubcommands(t *testing.T) {
	names := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"serve", "prune-size", "list", "stats", "purge", "issue-token"} {
		if !names[want] {
			t.Errorf("expected rootCmd to register subcommand %q, got %v", want, names)
		}
	}
}
