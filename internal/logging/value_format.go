package logging

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"
)

func formatValue(value slog.Value) string {
	switch value.Kind() {
	case slog.KindString:
		return quoteIfNeeded(value.String())
	case slog.KindInt64:
		return strconv.FormatInt(value.Int64(), 10)
	case slog.KindUint64:
		return strconv.FormatUint(value.Uint64(), 10)
	case slog.KindFloat64:
		return strconv.FormatFloat(value.Float64(), 'g', -1, 64)
	case slog.KindBool:
		return strconv.FormatBool(value.Bool())
	case slog.KindDuration:
		return value.Duration().String()
	case slog.KindTime:
		return value.Time().UTC().Format(time.RFC3339)
	default:
		return quoteIfNeeded(fmt.Sprintf("%v", value.Any()))
	}
}

func quoteIfNeeded(raw string) string {
	if raw == "" {
		return `""`
	}
	if needsQuotes(raw) {
		return strconv.Quote(raw)
	}
	return raw
}

func needsQuotes(raw string) bool {
	return strings.ContainsAny(raw, " \t\n\"=")
}
