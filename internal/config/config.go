package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"networth/pkg/networth"
)

const (
	defaultDBName         = "finance.db"
	defaultCurrency       = "CAD"
	defaultCheckpointDays = 10
	defaultCategorySubdir = "config"
	envDataDir            = "NETWORTH_DATA_DIR"
	envDBPath             = "NETWORTH_DB_PATH"
	envDisplayCurrency    = "NETWORTH_DISPLAY_CURRENCY"
	envCategoryDir        = "NETWORTH_CATEGORY_DIR"
	appName               = "NetWorth"
	appNameLower          = "networth"
	configFileName        = "config.json"
)

type UserConfig struct {
	DBName          string   `json:"db_name"`
	DataDir         string   `json:"data_dir"`
	DisplayCurrency string   `json:"display_currency,omitempty"`
	PivotCurrency   string   `json:"pivot_currency,omitempty"`
	Currencies      []string `json:"currencies,omitempty"`
	CheckpointDays  int      `json:"checkpoint_days,omitempty"`
	CategoryDir     string   `json:"category_dir,omitempty"`
	SetupComplete   bool     `json:"setup_complete"`
}

// Settings is the effective configuration after config file, environment
// and runtime overrides are applied.
type Settings struct {
	DataDir         string
	DBPath          string
	DisplayCurrency string
	PivotCurrency   string
	Currencies      []string
	CheckpointDays  int
	CategoryDir     string
}

// CoreOptions returns the options to open the store with these settings.
func (s Settings) CoreOptions(logger *slog.Logger) networth.Options {
	return networth.Options{
		DBPath:          s.DBPath,
		Logger:          logger,
		DisplayCurrency: s.DisplayCurrency,
		PivotCurrency:   s.PivotCurrency,
		Currencies:      s.Currencies,
		CheckpointDays:  s.CheckpointDays,
		CategoryDir:     s.CategoryDir,
	}
}

var runtimeDataDir string

func IsMacOS() bool {
	return runtime.GOOS == "darwin"
}

func IsWindows() bool {
	return runtime.GOOS == "windows"
}

func SetRuntimeDataDir(dir string) {
	runtimeDataDir = dir
}

func appConfigDir() (string, error) {
	if IsMacOS() {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, "Library", "Application Support", appName), nil
	}
	if IsWindows() {
		appData := os.Getenv("APPDATA")
		if appData == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", err
			}
			appData = home
		}
		return filepath.Join(appData, appName), nil
	}
	configDir, err := os.UserConfigDir()
	if err != nil {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, ".config", appNameLower), nil
	}
	return filepath.Join(configDir, appNameLower), nil
}

func appConfigPath() (string, error) {
	dir, err := appConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, configFileName), nil
}

func legacyConfigPath() string {
	if cwd, err := os.Getwd(); err == nil {
		candidate := filepath.Join(cwd, configFileName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	if exe, err := os.Executable(); err == nil {
		candidate := filepath.Join(filepath.Dir(exe), configFileName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	return ""
}

// IsFirstRun reports whether no config file has been saved yet.
func IsFirstRun() bool {
	path, err := appConfigPath()
	if err != nil {
		return true
	}
	_, err = os.Stat(path)
	return err != nil
}

func LoadUserConfig() UserConfig {
	defaults := UserConfig{DBName: defaultDBName}
	configPath, err := appConfigPath()
	if err != nil {
		return defaults
	}
	pathToUse := ""
	if _, err := os.Stat(configPath); err == nil {
		pathToUse = configPath
	} else if legacy := legacyConfigPath(); legacy != "" {
		pathToUse = legacy
	}
	if pathToUse == "" {
		return defaults
	}
	file, err := os.Open(pathToUse)
	if err != nil {
		return defaults
	}
	defer file.Close()

	decoder := json.NewDecoder(file)
	if err := decoder.Decode(&defaults); err != nil {
		return UserConfig{DBName: defaultDBName}
	}
	if defaults.DBName == "" {
		defaults.DBName = defaultDBName
	}
	return defaults
}

func SaveUserConfig(cfg UserConfig, useAppConfig bool) error {
	path := ""
	if useAppConfig {
		appPath, err := appConfigPath()
		if err != nil {
			return err
		}
		path = appPath
	} else {
		path = legacyConfigPath()
		if path == "" {
			cwd, err := os.Getwd()
			if err != nil {
				return errors.New("cannot determine config path")
			}
			path = filepath.Join(cwd, configFileName)
		}
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func copyFile(src, dst string) error {
	srcFile, err := os.Open(src)
	if err != nil {
		return err
	}
	defer srcFile.Close()

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, srcFile); err != nil {
		return err
	}
	return out.Sync()
}

// CompleteSetup records where the database lives and returns the data
// directory. An existing database is copied into customDataDir when one is
// given, otherwise it is used in place. With neither, the app config
// directory is used.
func CompleteSetup(customDataDir, existingDBPath, dbName string) (string, error) {
	cfg := LoadUserConfig()
	selectedName := strings.TrimSpace(dbName)
	if selectedName == "" {
		selectedName = cfg.DBName
	}
	if selectedName == "" {
		selectedName = defaultDBName
	}

	var dataDir string
	switch {
	case existingDBPath != "":
		existingDBPath = filepath.Clean(existingDBPath)
		info, err := os.Stat(existingDBPath)
		if err != nil {
			return "", err
		}
		if info.IsDir() {
			return "", fmt.Errorf("database path is a directory")
		}
		selectedName = filepath.Base(existingDBPath)
		if customDataDir == "" {
			dataDir = filepath.Dir(existingDBPath)
			break
		}
		dataDir = filepath.Clean(customDataDir)
		if err := copyFile(existingDBPath, filepath.Join(dataDir, selectedName)); err != nil {
			return "", err
		}
	case customDataDir != "":
		dataDir = filepath.Clean(customDataDir)
	default:
		dir, err := appConfigDir()
		if err != nil {
			return "", err
		}
		dataDir = dir
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return "", err
	}

	cfg.DataDir = dataDir
	cfg.DBName = selectedName
	cfg.SetupComplete = true
	if err := SaveUserConfig(cfg, true); err != nil {
		return "", err
	}
	return dataDir, nil
}

func GetDataDir() (string, error) {
	dir := runtimeDataDir
	if dir == "" {
		dir = os.Getenv(envDataDir)
	}
	if dir == "" {
		dir = LoadUserConfig().DataDir
	}
	if dir == "" {
		defaultDir, err := appConfigDir()
		if err != nil {
			return "", err
		}
		dir = defaultDir
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	return dir, nil
}

func GetDBPath() (string, error) {
	if envPath := os.Getenv(envDBPath); envPath != "" {
		return envPath, nil
	}
	cfg := LoadUserConfig()
	dataDir, err := GetDataDir()
	if err != nil {
		return "", err
	}
	name := cfg.DBName
	if name == "" {
		name = defaultDBName
	}
	return filepath.Join(dataDir, name), nil
}

// Load resolves the effective settings. Environment variables win over the
// config file; the runtime data dir wins over both.
func Load() (Settings, error) {
	cfg := LoadUserConfig()
	dataDir, err := GetDataDir()
	if err != nil {
		return Settings{}, err
	}
	dbPath, err := GetDBPath()
	if err != nil {
		return Settings{}, err
	}

	settings := Settings{
		DataDir:         dataDir,
		DBPath:          dbPath,
		DisplayCurrency: firstNonEmpty(os.Getenv(envDisplayCurrency), cfg.DisplayCurrency, defaultCurrency),
		PivotCurrency:   firstNonEmpty(cfg.PivotCurrency, defaultCurrency),
		Currencies:      cfg.Currencies,
		CheckpointDays:  cfg.CheckpointDays,
		CategoryDir:     firstNonEmpty(os.Getenv(envCategoryDir), cfg.CategoryDir, filepath.Join(dataDir, defaultCategorySubdir)),
	}
	settings.DisplayCurrency = strings.ToUpper(strings.TrimSpace(settings.DisplayCurrency))
	settings.PivotCurrency = strings.ToUpper(strings.TrimSpace(settings.PivotCurrency))
	if settings.CheckpointDays <= 0 {
		settings.CheckpointDays = defaultCheckpointDays
	}
	return settings, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
