package common

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"
)

// Version is set at build time with -ldflags "-X .../common.Version=x.y.z".
var Version = "0.1.0"

// Truncate cuts s to at most limit bytes without splitting a rune.
// Invalid UTF-8 and NUL bytes are dropped, Postgres text rejects both.
func Truncate(s string, limit int) string {
	s = strings.ToValidUTF8(s, "")
	s = strings.ReplaceAll(s, "\x00", "")
	if limit <= 0 || len(s) <= limit {
		return s
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

func SleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer func() {
		if !t.Stop() {
			select {
			case <-t.C:
			default:
			}
		}
	}()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
