package networth

import (
	"sort"
	"strings"
)

func normalizeSymbol(symbol string) string {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "NAN" {
		return ""
	}
	return symbol
}

func normalizeCurrency(currency string) string {
	return strings.ToUpper(strings.TrimSpace(currency))
}

func normalizeAccount(name string) string {
	return strings.TrimSpace(name)
}

// CurrencySet is the set of currency codes records may carry.
type CurrencySet map[string]struct{}

// NewCurrencySet builds a set from codes, normalizing case and whitespace.
func NewCurrencySet(codes []string) CurrencySet {
	set := make(CurrencySet, len(codes))
	for _, code := range codes {
		code = normalizeCurrency(code)
		if code == "" {
			continue
		}
		set[code] = struct{}{}
	}
	return set
}

// Contains reports whether code is in the set.
func (s CurrencySet) Contains(code string) bool {
	_, ok := s[normalizeCurrency(code)]
	return ok
}

// Codes returns the codes in lexical order.
func (s CurrencySet) Codes() []string {
	codes := make([]string, 0, len(s))
	for code := range s {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}
