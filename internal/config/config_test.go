package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

// isolateHome points every config lookup at a fresh temp home.
func isolateHome(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(home, ".config"))
	t.Setenv("APPDATA", filepath.Join(home, "AppData"))
	t.Setenv(envDataDir, "")
	t.Setenv(envDBPath, "")
	t.Setenv(envDisplayCurrency, "")
	t.Setenv(envCategoryDir, "")
	return home
}

func TestRuntimeDataDirAndEnv(t *testing.T) {
	isolateHome(t)
	SetRuntimeDataDir("")
	defer SetRuntimeDataDir("")

	tmp := t.TempDir()
	SetRuntimeDataDir(tmp)
	dir, err := GetDataDir()
	if err != nil {
		t.Fatalf("GetDataDir: %v", err)
	}
	if dir != tmp {
		t.Fatalf("expected runtime dir %q, got %q", tmp, dir)
	}

	SetRuntimeDataDir("")
	tmpEnv := filepath.Join(t.TempDir(), "data")
	t.Setenv(envDataDir, tmpEnv)
	dir, err = GetDataDir()
	if err != nil {
		t.Fatalf("GetDataDir env: %v", err)
	}
	if dir != tmpEnv {
		t.Fatalf("expected env dir %q, got %q", tmpEnv, dir)
	}
	if _, err := os.Stat(tmpEnv); err != nil {
		t.Fatalf("expected env dir to be created: %v", err)
	}
}

func TestGetDBPathEnv(t *testing.T) {
	isolateHome(t)
	path := filepath.Join(t.TempDir(), "db.sqlite")
	t.Setenv(envDBPath, path)
	got, err := GetDBPath()
	if err != nil {
		t.Fatalf("GetDBPath: %v", err)
	}
	if got != path {
		t.Fatalf("expected %q, got %q", path, got)
	}
}

func TestIsMacOSWindows(t *testing.T) {
	if IsMacOS() != (runtime.GOOS == "darwin") {
		t.Fatalf("IsMacOS mismatch")
	}
	if IsWindows() != (runtime.GOOS == "windows") {
		t.Fatalf("IsWindows mismatch")
	}
}

func TestIsFirstRunAndLoadSaveConfig(t *testing.T) {
	home := isolateHome(t)

	if !IsFirstRun() {
		t.Fatalf("expected first run with no config")
	}

	cfg := UserConfig{
		DBName:          "my.db",
		DataDir:         filepath.Join(home, "data"),
		DisplayCurrency: "USD",
		Currencies:      []string{"CAD", "USD"},
		SetupComplete:   true,
	}
	if err := SaveUserConfig(cfg, true); err != nil {
		t.Fatalf("SaveUserConfig: %v", err)
	}

	if IsFirstRun() {
		t.Fatalf("expected not first run after save")
	}

	loaded := LoadUserConfig()
	if loaded.DBName != cfg.DBName || loaded.DataDir != cfg.DataDir || loaded.DisplayCurrency != "USD" || !loaded.SetupComplete {
		t.Fatalf("loaded config mismatch: %+v", loaded)
	}
	if len(loaded.Currencies) != 2 {
		t.Fatalf("expected 2 currencies, got %v", loaded.Currencies)
	}
}

func TestLoadUserConfigDefaults(t *testing.T) {
	isolateHome(t)
	cwd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Getwd: %v", err)
	}
	if err := os.Chdir(t.TempDir()); err != nil {
		t.Fatalf("Chdir: %v", err)
	}
	defer func() {
		_ = os.Chdir(cwd)
	}()

	cfg := LoadUserConfig()
	if cfg.DBName != defaultDBName {
		t.Fatalf("expected default db name, got %q", cfg.DBName)
	}
}

func TestLegacyConfigPath(t *testing.T) {
	isolateHome(t)
	cwd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Getwd: %v", err)
	}
	tmp := t.TempDir()
	if err := os.Chdir(tmp); err != nil {
		t.Fatalf("Chdir: %v", err)
	}
	defer func() {
		_ = os.Chdir(cwd)
	}()

	path := filepath.Join(tmp, "config.json")
	if err := os.WriteFile(path, []byte(`{"db_name":"legacy.db"}`), 0o644); err != nil {
		t.Fatalf("write legacy config: %v", err)
	}

	legacy := legacyConfigPath()
	if legacy == "" {
		t.Fatalf("expected legacy path, got empty")
	}
	legacyEval, legacyErr := filepath.EvalSymlinks(legacy)
	pathEval, pathErr := filepath.EvalSymlinks(path)
	if legacyErr == nil && pathErr == nil {
		if legacyEval != pathEval {
			t.Fatalf("expected legacy path %q, got %q", pathEval, legacyEval)
		}
	} else if legacy != path {
		t.Fatalf("expected legacy path %q, got %q", path, legacy)
	}

	if got := LoadUserConfig().DBName; got != "legacy.db" {
		t.Fatalf("expected legacy db name, got %q", got)
	}
}

func TestCompleteSetupCustomDirAndExistingDB(t *testing.T) {
	isolateHome(t)

	existing := filepath.Join(t.TempDir(), "existing.db")
	if err := os.WriteFile(existing, []byte("data"), 0o644); err != nil {
		t.Fatalf("write existing db: %v", err)
	}
	customDir := filepath.Join(t.TempDir(), "custom")

	dataDir, err := CompleteSetup(customDir, existing, "custom.db")
	if err != nil {
		t.Fatalf("CompleteSetup: %v", err)
	}
	if dataDir != customDir {
		t.Fatalf("expected data dir %q, got %q", customDir, dataDir)
	}
	if _, err := os.Stat(filepath.Join(customDir, "existing.db")); err != nil {
		t.Fatalf("expected copied db: %v", err)
	}
	if got := LoadUserConfig(); got.DBName != "existing.db" || !got.SetupComplete {
		t.Fatalf("unexpected saved config: %+v", got)
	}
}

func TestCompleteSetupVariants(t *testing.T) {
	isolateHome(t)

	existingDir := t.TempDir()
	existing := filepath.Join(existingDir, "existing.db")
	if err := os.WriteFile(existing, []byte("data"), 0o644); err != nil {
		t.Fatalf("write existing: %v", err)
	}
	dir, err := CompleteSetup("", existing, "")
	if err != nil {
		t.Fatalf("CompleteSetup existing: %v", err)
	}
	if dir != existingDir {
		t.Fatalf("expected dir %q, got %q", existingDir, dir)
	}

	custom := filepath.Join(t.TempDir(), "custom")
	dir, err = CompleteSetup(custom, "", "")
	if err != nil {
		t.Fatalf("CompleteSetup custom: %v", err)
	}
	if dir != custom {
		t.Fatalf("expected custom dir %q, got %q", custom, dir)
	}

	dir, err = CompleteSetup("", "", "")
	if err != nil {
		t.Fatalf("CompleteSetup default: %v", err)
	}
	if dir == "" {
		t.Fatalf("expected default dir")
	}

	if _, err := CompleteSetup("", t.TempDir(), ""); err == nil {
		t.Fatalf("expected error for directory path")
	}
}

func TestGetDBPathFromConfig(t *testing.T) {
	home := isolateHome(t)

	cfg := UserConfig{DBName: "config.db", DataDir: filepath.Join(home, "data"), SetupComplete: true}
	if err := SaveUserConfig(cfg, true); err != nil {
		t.Fatalf("SaveUserConfig: %v", err)
	}
	path, err := GetDBPath()
	if err != nil {
		t.Fatalf("GetDBPath: %v", err)
	}
	if path != filepath.Join(cfg.DataDir, cfg.DBName) {
		t.Fatalf("expected db path %q, got %q", filepath.Join(cfg.DataDir, cfg.DBName), path)
	}
}

func TestLoadSettings(t *testing.T) {
	home := isolateHome(t)
	dataDir := filepath.Join(home, "data")

	cfg := UserConfig{DBName: "n.db", DataDir: dataDir, PivotCurrency: "usd", CheckpointDays: 0}
	if err := SaveUserConfig(cfg, true); err != nil {
		t.Fatalf("SaveUserConfig: %v", err)
	}

	settings, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if settings.DBPath != filepath.Join(dataDir, "n.db") {
		t.Fatalf("unexpected db path %q", settings.DBPath)
	}
	if settings.DisplayCurrency != "CAD" || settings.PivotCurrency != "USD" {
		t.Fatalf("unexpected currencies: %+v", settings)
	}
	if settings.CheckpointDays != defaultCheckpointDays {
		t.Fatalf("expected default checkpoint days, got %d", settings.CheckpointDays)
	}
	if settings.CategoryDir != filepath.Join(dataDir, "config") {
		t.Fatalf("unexpected category dir %q", settings.CategoryDir)
	}

	categories := filepath.Join(home, "lists")
	t.Setenv(envDisplayCurrency, " eur ")
	t.Setenv(envCategoryDir, categories)
	settings, err = Load()
	if err != nil {
		t.Fatalf("Load env: %v", err)
	}
	if settings.DisplayCurrency != "EUR" || settings.CategoryDir != categories {
		t.Fatalf("env overrides not applied: %+v", settings)
	}
}

func TestSettingsCoreOptions(t *testing.T) {
	settings := Settings{
		DBPath:          "/tmp/n.db",
		DisplayCurrency: "USD",
		PivotCurrency:   "CAD",
		Currencies:      []string{"CAD", "USD"},
		CheckpointDays:  7,
		CategoryDir:     "/tmp/config",
	}
	opts := settings.CoreOptions(slog.Default())
	if opts.DBPath != settings.DBPath || opts.DisplayCurrency != "USD" || opts.CheckpointDays != 7 || opts.CategoryDir != "/tmp/config" {
		t.Fatalf("unexpected options: %+v", opts)
	}
	if len(opts.Currencies) != 2 || opts.Logger == nil {
		t.Fatalf("unexpected options: %+v", opts)
	}
}
