package util

import "strings"

// NormalizeSymbol trims and upper-cases a ticker ("408920.kq" -> "408920.KQ").
func NormalizeSymbol(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}
