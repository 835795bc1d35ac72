package format

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
	"unicode"
)

var builtins = map[string]Formatter{
	"upper":      upper,
	"lower":      lower,
	"capitalize": capitalize,
	"trim":       trim,
	"truncate":   truncate,
	"round":      round,
	"currency":   currency,
	"percent":    percent,
	"date":       date,
}

func asString(v any) (string, error) {
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("expected string, got %T", v)
	}
	return s, nil
}

func asFloat(v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int:
		return float64(n), nil
	case int32:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case uint:
		return float64(n), nil
	case uint64:
		return float64(n), nil
	case string:
		return strconv.ParseFloat(n, 64)
	default:
		return 0, fmt.Errorf("expected number, got %T", v)
	}
}

func upper(v any, _ string) (any, error) {
	s, err := asString(v)
	if err != nil {
		return nil, err
	}
	return strings.ToUpper(s), nil
}

func lower(v any, _ string) (any, error) {
	s, err := asString(v)
	if err != nil {
		return nil, err
	}
	return strings.ToLower(s), nil
}

func capitalize(v any, _ string) (any, error) {
	s, err := asString(v)
	if err != nil {
		return nil, err
	}
	if s == "" {
		return s, nil
	}
	runes := []rune(s)
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes), nil
}

func trim(v any, _ string) (any, error) {
	s, err := asString(v)
	if err != nil {
		return nil, err
	}
	return strings.TrimSpace(s), nil
}

// truncate shortens a string to arg runes, appending an ellipsis when cut.
func truncate(v any, arg string) (any, error) {
	s, err := asString(v)
	if err != nil {
		return nil, err
	}
	n, err := strconv.Atoi(arg)
	if err != nil || n < 0 {
		return nil, fmt.Errorf("truncate requires a non-negative integer argument, got %q", arg)
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s, nil
	}
	return string(runes[:n]) + "…", nil
}

// round rounds a number to arg decimal digits (0 when no argument is given).
func round(v any, arg string) (any, error) {
	f, err := asFloat(v)
	if err != nil {
		return nil, err
	}
	digits := 0
	if arg != "" {
		digits, err = strconv.Atoi(arg)
		if err != nil || digits < 0 {
			return nil, fmt.Errorf("round requires a non-negative integer argument, got %q", arg)
		}
	}
	pow := math.Pow10(digits)
	return math.Round(f*pow) / pow, nil
}

// currency renders a number as "<symbol><amount>" with two decimal digits.
// arg overrides the default "$" symbol.
func currency(v any, arg string) (any, error) {
	f, err := asFloat(v)
	if err != nil {
		return nil, err
	}
	symbol := arg
	if symbol == "" {
		symbol = "$"
	}
	return symbol + strconv.FormatFloat(f, 'f', 2, 64), nil
}

func percent(v any, _ string) (any, error) {
	f, err := asFloat(v)
	if err != nil {
		return nil, err
	}
	return strconv.FormatFloat(f*100, 'f', 1, 64) + "%", nil
}

// date formats a time.Time (or an RFC 3339 string) using the Go layout in
// arg, defaulting to RFC 3339.
func date(v any, arg string) (any, error) {
	layout := arg
	if layout == "" {
		layout = time.RFC3339
	}
	switch t := v.(type) {
	case time.Time:
		return t.Format(layout), nil
	case string:
		parsed, err := time.Parse(time.RFC3339, t)
		if err != nil {
			return nil, fmt.Errorf("date: %w", err)
		}
		return parsed.Format(layout), nil
	default:
		return nil, fmt.Errorf("date expects time.Time or RFC 3339 string, got %T", v)
	}
}
