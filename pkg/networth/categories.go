package networth

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Category names a configurable grouping of accounts.
type Category string

const (
	CategoryOperating Category = "operating"
	CategoryInvesting Category = "investing"
	CategoryCrypto    Category = "crypto"
	CategoryEquity    Category = "equity"
	CategorySummary   Category = "summary"
)

// Categories lists every category in evaluation order. Summary comes last
// because its members may name the other category series.
var Categories = []Category{
	CategoryOperating,
	CategoryInvesting,
	CategoryCrypto,
	CategoryEquity,
	CategorySummary,
}

// IgnoreForTotalFile holds the accounts excluded from the "total" series.
const IgnoreForTotalFile = "ignoreForTotal.txt"

// ParseCategory validates a category name.
func ParseCategory(name string) (Category, error) {
	c := Category(strings.ToLower(strings.TrimSpace(name)))
	for _, known := range Categories {
		if c == known {
			return c, nil
		}
	}
	return "", NewError(ErrCodeInvalidInput, fmt.Sprintf("unknown category: %s", name))
}

// AccountSet is a set of account names.
type AccountSet map[string]struct{}

// NewAccountSet builds a set from names.
func NewAccountSet(names ...string) AccountSet {
	set := make(AccountSet, len(names))
	for _, name := range names {
		name = normalizeAccount(name)
		if name == "" {
			continue
		}
		set[name] = struct{}{}
	}
	return set
}

// Contains reports whether name is a member.
func (s AccountSet) Contains(name string) bool {
	_, ok := s[name]
	return ok
}

// Sorted returns the members in lexical order.
func (s AccountSet) Sorted() []string {
	out := make([]string, 0, len(s))
	for name := range s {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// CategoryConfig holds category membership and the ignore-for-total list.
// A category absent from the config is disabled, which is different from a
// configured category whose list is empty. The zero value has every
// category disabled and ignores nothing.
type CategoryConfig struct {
	lists  map[Category]AccountSet
	ignore AccountSet
}

// NewCategoryConfig builds a config. Only categories present as keys of
// lists are enabled; a nil slice still enables the category.
func NewCategoryConfig(lists map[Category][]string, ignore []string) *CategoryConfig {
	cfg := &CategoryConfig{
		lists:  make(map[Category]AccountSet, len(lists)),
		ignore: NewAccountSet(ignore...),
	}
	for c, names := range lists {
		cfg.lists[c] = NewAccountSet(names...)
	}
	return cfg
}

// LoadCategoryConfig reads <category>.txt files and ignoreForTotal.txt from
// dir. A missing file leaves that category disabled; a missing directory
// disables everything.
func LoadCategoryConfig(dir string) (*CategoryConfig, error) {
	cfg := &CategoryConfig{lists: map[Category]AccountSet{}, ignore: AccountSet{}}
	if dir == "" {
		return cfg, nil
	}
	for _, c := range Categories {
		names, ok, err := readNameList(filepath.Join(dir, string(c)+".txt"))
		if err != nil {
			return nil, err
		}
		if ok {
			cfg.lists[c] = NewAccountSet(names...)
		}
	}
	names, _, err := readNameList(filepath.Join(dir, IgnoreForTotalFile))
	if err != nil {
		return nil, err
	}
	cfg.ignore = NewAccountSet(names...)
	return cfg, nil
}

func readNameList(path string) ([]string, bool, error) {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	var names []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		names = append(names, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, false, fmt.Errorf("read %s: %w", path, err)
	}
	return names, true, nil
}

// Members returns the members of c and whether c is configured at all.
func (c *CategoryConfig) Members(cat Category) (AccountSet, bool) {
	if c == nil {
		return nil, false
	}
	set, ok := c.lists[cat]
	return set, ok
}

// Ignored reports whether account is excluded from the total.
func (c *CategoryConfig) Ignored(account string) bool {
	if c == nil {
		return false
	}
	return c.ignore.Contains(account)
}

// Enabled returns the configured categories in evaluation order.
func (c *CategoryConfig) Enabled() []Category {
	var out []Category
	for _, cat := range Categories {
		if _, ok := c.Members(cat); ok {
			out = append(out, cat)
		}
	}
	return out
}

// Groups returns the configured categories with sorted members.
func (c *CategoryConfig) Groups() map[Category][]string {
	out := map[Category][]string{}
	for _, cat := range c.Enabled() {
		set, _ := c.Members(cat)
		out[cat] = set.Sorted()
	}
	return out
}

// IgnoredAccounts returns the ignore-for-total list in lexical order.
func (c *CategoryConfig) IgnoredAccounts() []string {
	if c == nil {
		return nil
	}
	return c.ignore.Sorted()
}
