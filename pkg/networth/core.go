package networth

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// Options controls Core initialization.
type Options struct {
	DBPath string
	Logger *slog.Logger

	// DisplayCurrency is the currency every series is reported in.
	DisplayCurrency string
	// PivotCurrency routes cross-currency conversions.
	PivotCurrency string
	// Currencies lists the codes records may carry. Defaults to DefaultCurrencies.
	Currencies []string
	// CheckpointDays spaces the synthetic dates on the global axis.
	CheckpointDays int

	// CategoryDir holds the category list files. It is re-read on every
	// build so edits apply on the next reload. Ignored when Categories is set.
	CategoryDir string
	Categories  *CategoryConfig

	// CurrencyResolver, when set, supplies the currency of records stored
	// without one.
	CurrencyResolver AccountCurrencyResolver

	// DisableLookupCache turns off memoization of nearest-date lookups.
	DisableLookupCache bool
	HTTPTimeout        time.Duration
}

// Core provides access to the balance, rate and price stores and builds
// normalized series from them.
type Core struct {
	db     *sql.DB
	logger *slog.Logger
	cache  *lookupCache
	dbPath string

	mu              sync.RWMutex
	displayCurrency string
	pivotCurrency   string
	currencies      CurrencySet
	checkpointDays  int
	categoryDir     string
	categories      *CategoryConfig
	resolver        AccountCurrencyResolver
	httpTimeout     time.Duration
}

// Open initializes a Core using the provided database path.
func Open(dbPath string) (*Core, error) {
	return OpenWithOptions(Options{DBPath: dbPath})
}

// OpenWithOptions initializes a Core using the provided options.
func OpenWithOptions(opts Options) (*Core, error) {
	if opts.DBPath == "" {
		return nil, errors.New("db path is required")
	}
	cleanPath := filepath.Clean(opts.DBPath)
	if err := os.MkdirAll(filepath.Dir(cleanPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	db, err := sql.Open("sqlite", cleanPath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// SQLite performs best with a single writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		logger.Warn("pragma busy_timeout failed", "err", err)
	}

	if err := initDatabase(db, defaultString(normalizeCurrency(opts.PivotCurrency), DefaultPivotCurrency)); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init database: %w", err)
	}

	currencies := opts.Currencies
	if len(currencies) == 0 {
		currencies = DefaultCurrencies
	}
	c := &Core{
		db:              db,
		logger:          logger,
		dbPath:          cleanPath,
		displayCurrency: defaultString(normalizeCurrency(opts.DisplayCurrency), DefaultDisplayCurrency),
		pivotCurrency:   defaultString(normalizeCurrency(opts.PivotCurrency), DefaultPivotCurrency),
		currencies:      NewCurrencySet(currencies),
		checkpointDays:  defaultInt(opts.CheckpointDays, DefaultCheckpointDays),
		categoryDir:     opts.CategoryDir,
		categories:      opts.Categories,
		resolver:        opts.CurrencyResolver,
		httpTimeout:     defaultDuration(opts.HTTPTimeout, 15*time.Second),
	}
	if !opts.DisableLookupCache {
		c.cache = newLookupCache()
	}
	for _, code := range []string{c.displayCurrency, c.pivotCurrency} {
		if !c.currencies.Contains(code) {
			logger.Warn("currency not in configured set", "currency", code)
		}
		if !IsISOCurrency(code) {
			logger.Warn("currency is not an ISO 4217 code", "currency", code)
		}
	}
	return c, nil
}

// Close releases database resources.
func (c *Core) Close() error {
	if c == nil || c.db == nil {
		return nil
	}
	return c.db.Close()
}

// DBPath returns the underlying database path.
func (c *Core) DBPath() string {
	return c.dbPath
}

// Logger returns the logger the core reports to.
func (c *Core) Logger() *slog.Logger {
	if c == nil || c.logger == nil {
		return slog.Default()
	}
	return c.logger
}

// DisplayCurrency returns the currency series are reported in by default.
func (c *Core) DisplayCurrency() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.displayCurrency
}

// SetDisplayCurrency changes the default display currency for later builds.
// Builds already running keep the currency they started with.
func (c *Core) SetDisplayCurrency(code string) error {
	code, err := c.ValidateDisplayCurrency(code)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.displayCurrency = code
	c.mu.Unlock()
	c.logger.Info("display currency changed", "currency", code)
	return nil
}

// ValidateDisplayCurrency normalizes code and checks that it is a configured
// ISO 4217 currency.
func (c *Core) ValidateDisplayCurrency(code string) (string, error) {
	code = normalizeCurrency(code)
	if code == "" {
		return "", NewError(ErrCodeInvalidInput, "currency is required")
	}
	if !IsISOCurrency(code) || !c.currencies.Contains(code) {
		return "", NewError(ErrCodeUnknownCurrency, fmt.Sprintf("unsupported display currency: %s", code))
	}
	return code, nil
}

// Currencies returns the configured currency codes.
func (c *Core) Currencies() []string {
	return c.currencies.Codes()
}

// CategoryConfig returns the category configuration currently in effect,
// re-reading the list files when a directory is configured.
func (c *Core) CategoryConfig() (*CategoryConfig, error) {
	if c.categories != nil {
		return c.categories, nil
	}
	cfg, err := LoadCategoryConfig(c.categoryDir)
	if err != nil {
		return nil, WrapError(ErrCodeInternal, "load category lists", err)
	}
	return cfg, nil
}

func defaultDuration(v time.Duration, fallback time.Duration) time.Duration {
	if v <= 0 {
		return fallback
	}
	return v
}

func defaultInt(v int, fallback int) int {
	if v <= 0 {
		return fallback
	}
	return v
}

func defaultString(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}
