package utils

import (
	"fmt"
	"strconv"
	"strings"
)

// PriceToSubUnits converts a decimal price string (e.g. "12.50") to an
// integer amount of minor currency units (1250). The input is parsed as
// an exact decimal; anything that would lose a fractional remainder is
// an error rather than a silent truncation.
func PriceToSubUnits(price string) (int64, error) {
	s := strings.TrimSpace(price)
	if s == "" {
		return 0, fmt.Errorf("empty price")
	}

	neg := false
	if strings.HasPrefix(s, "-") {
		neg = true
		s = s[1:]
	}

	whole, frac := s, ""
	if i := strings.IndexByte(s, '.'); i >= 0 {
		whole, frac = s[:i], s[i+1:]
	}
	if whole == "" {
		whole = "0"
	}

	w, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid price %q: %w", price, err)
	}

	// Pad or reject the fraction: at most two significant digits.
	switch {
	case len(frac) == 0:
		frac = "00"
	case len(frac) == 1:
		frac += "0"
	case len(frac) > 2:
		if strings.Trim(frac[2:], "0") != "" {
			return 0, fmt.Errorf("price %q has sub-cent precision", price)
		}
		frac = frac[:2]
	}

	f, err := strconv.ParseInt(frac, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid price %q: %w", price, err)
	}

	sub := w*100 + f
	if neg {
		sub = -sub
	}
	return sub, nil
}
