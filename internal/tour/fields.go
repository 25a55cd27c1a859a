package tour

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	durationPattern = regexp.MustCompile(`(?i)\b(\d+)[ \t]*-?[ \t]*(?:days?|nights?)\b`)
	pricePattern    = regexp.MustCompile(`(?:\bUSD|\bEGP|\$|\bL\.?E\.?)\s*(\d[\d,]*(?:\.\d+)?)`)
	wasPattern      = regexp.MustCompile(`(?i)\bwas\s*:?\s*(?:USD|EGP|\$|L\.?E\.?)?\s*(\d[\d,]*(?:\.\d+)?)`)
	tierPattern     = regexp.MustCompile(`^([^:]{1,60}?)\s*:\s*(?:USD|EGP|\$|L\.?E\.?)?\s*(\d[\d,]*(?:\.\d+)?)`)
	paxPattern      = regexp.MustCompile(`(?i)(\d+\s*-\s*\d+|\d+\+?)\s*pax\b`)
)

// extractDuration returns the number in front of the first "day"/"night"
// token in document order, or 0.
func extractDuration(lines []string) int {
	for _, line := range lines {
		m := durationPattern.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		n, err := strconv.Atoi(m[1])
		if err != nil || n < 1 {
			return 0
		}
		return n
	}
	return 0
}

// extractPrice scans lines in document order and returns the first currency
// amount. When that line also carries a "was X" clause, X is the discount.
func extractPrice(lines []string) (price float64, discount *float64, ok bool) {
	for _, line := range lines {
		m := pricePattern.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		price, ok = parseAmount(m[1])
		if !ok {
			continue
		}
		if was := wasPattern.FindStringSubmatch(line); was != nil {
			if v, vok := parseAmount(was[1]); vok {
				return price, &v, true
			}
		}
		return price, nil, true
	}
	return 0, nil, false
}

// parseTier reads a "category: amount" pricing line.
func parseTier(line string) (PricingTier, bool) {
	m := tierPattern.FindStringSubmatch(line)
	if m == nil {
		return PricingTier{}, false
	}
	price, ok := parseAmount(m[2])
	if !ok {
		return PricingTier{}, false
	}
	tier := PricingTier{
		Category: strings.TrimSpace(m[1]),
		Price:    price,
	}
	if pm := paxPattern.FindStringSubmatch(line); pm != nil {
		tier.PaxRange = strings.ReplaceAll(pm[1], " ", "") + " pax"
	}
	return tier, true
}

func parseAmount(s string) (float64, bool) {
	s = strings.ReplaceAll(s, ",", "")
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v < 0 {
		return 0, false
	}
	return v, true
}
