package utils

import (
	"strings"
	"time"
)

// ParseDuration safely parses a duration string like "5m"
func ParseDuration(d string) time.Duration {
	if d == "" {
		return 5 * time.Minute
	}
	duration, err := time.ParseDuration(d)
	if err != nil {
		return 5 * time.Minute
	}
	return duration
}

// BalancedParens reports whether an expression's parentheses pair up.
func BalancedParens(expression string) bool {
	depth := 0
	for _, c := range expression {
		switch c {
		case '(':
			depth++
		case ')':
			depth--
			if depth < 0 {
				return false
			}
		}
	}
	return depth == 0
}

// commonOperators are spotted in any plausible alpha expression
var commonOperators = []string{"rank", "ts_", "divide", "subtract", "add", "multiply"}

// LooksLikeAlpha is a lightweight local sanity check run before
// spending a platform call on an expression.
func LooksLikeAlpha(expression string) bool {
	if len(expression) < 5 {
		return false
	}
	if !BalancedParens(expression) {
		return false
	}
	for _, op := range commonOperators {
		if strings.Contains(expression, op) {
			return true
		}
	}
	return false
}

// FormatExpression renders a nested expression with one argument depth
// per line for readability in reports.
func FormatExpression(expression string) string {
	var b strings.Builder
	depth := 0
	for _, c := range expression {
		switch c {
		case '(':
			depth++
			b.WriteRune(c)
			if depth > 1 {
				b.WriteString("\n" + strings.Repeat("  ", depth-1))
			}
		case ')':
			depth--
			if depth > 0 {
				b.WriteString("\n" + strings.Repeat("  ", depth))
			}
			b.WriteRune(c)
		default:
			b.WriteRune(c)
		}
	}
	return b.String()
}
