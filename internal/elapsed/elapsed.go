// Package elapsed parses the "minutes:seconds.milliseconds" duration text
// used by claim event logs into normalized elapsed values.
package elapsed

import (
	"bytes"
	"fmt"
	"math"
	"time"

	"github.com/logflow/claimflow/internal/model"
)

// Parse converts s into an elapsed duration. It never fails loudly: any
// malformed input yields model.Missing.
func Parse(s string) model.Elapsed {
	return ParseBytes([]byte(s))
}

// ParseBytes is Parse operating on raw field bytes.
//
// The value must hold exactly one ':' and, after it, exactly one '.'.
// Each of the three fragments is a decimal integer that may carry
// surrounding whitespace, a leading sign and '_' between digits.
func ParseBytes(b []byte) model.Elapsed {
	colon := bytes.IndexByte(b, ':')
	if colon < 0 || bytes.IndexByte(b[colon+1:], ':') >= 0 {
		return model.Missing
	}
	rest := b[colon+1:]
	dot := bytes.IndexByte(rest, '.')
	if dot < 0 || bytes.IndexByte(rest[dot+1:], '.') >= 0 {
		return model.Missing
	}

	minutes, ok := parseInt(b[:colon])
	if !ok {
		return model.Missing
	}
	seconds, ok := parseInt(rest[:dot])
	if !ok {
		return model.Missing
	}
	millis, ok := parseInt(rest[dot+1:])
	if !ok {
		return model.Missing
	}

	total, ok := combine(minutes, seconds, millis)
	if !ok {
		return model.Missing
	}
	return model.Some(time.Duration(total) * time.Millisecond)
}

// maxMillis bounds the magnitude of a result so it fits a time.Duration.
const maxMillis = math.MaxInt64 / int64(time.Millisecond)

// combine computes minutes*60000 + seconds*1000 + millis, reporting results
// outside the time.Duration range.
func combine(minutes, seconds, millis int64) (int64, bool) {
	total, ok := scale(minutes, 60000)
	if !ok {
		return 0, false
	}
	sec, ok := scale(seconds, 1000)
	if !ok {
		return 0, false
	}
	if total, ok = add(total, sec); !ok {
		return 0, false
	}
	return add(total, millis)
}

func scale(v, factor int64) (int64, bool) {
	if v > maxMillis/factor || v < -maxMillis/factor {
		return 0, false
	}
	return v * factor, true
}

func add(a, b int64) (int64, bool) {
	if b > maxMillis || b < -maxMillis {
		return 0, false
	}
	// |a| <= maxMillis and |b| <= maxMillis, so a+b cannot overflow int64.
	sum := a + b
	if sum > maxMillis || sum < -maxMillis {
		return 0, false
	}
	return sum, true
}

// parseInt parses one fragment: optional whitespace, optional sign, digits
// with single '_' separators between them, optional whitespace.
func parseInt(b []byte) (int64, bool) {
	b = bytes.TrimSpace(b)
	neg := false
	if len(b) > 0 && (b[0] == '+' || b[0] == '-') {
		neg = b[0] == '-'
		b = b[1:]
	}
	if len(b) == 0 || b[0] == '_' || b[len(b)-1] == '_' {
		return 0, false
	}

	var n int64
	prevUnderscore := false
	for _, c := range b {
		if c == '_' {
			if prevUnderscore {
				return 0, false
			}
			prevUnderscore = true
			continue
		}
		prevUnderscore = false
		if c < '0' || c > '9' {
			return 0, false
		}
		if n > (math.MaxInt64-int64(c-'0'))/10 {
			return 0, false
		}
		n = n*10 + int64(c-'0')
	}
	if neg {
		n = -n
	}
	return n, true
}

// Stats summarizes a normalization pass.
type Stats struct {
	Total   int
	Missing int
	// Samples holds up to MaxSamples raw values that failed to parse.
	Samples []string
}

// MaxSamples bounds Stats.Samples.
const MaxSamples = 5

// Normalize parses the timestamp of every event in table order.
func Normalize(t *model.Table) ([]model.Elapsed, Stats) {
	out := make([]model.Elapsed, t.Len())
	stats := Stats{Total: t.Len()}
	for i := range t.Events {
		v := Parse(t.Events[i].Timestamp)
		if !v.Valid {
			stats.Missing++
			if len(stats.Samples) < MaxSamples {
				stats.Samples = append(stats.Samples, t.Events[i].Timestamp)
			}
		}
		out[i] = v
	}
	return out, stats
}

// Format renders a defined value back as "M:SS.mmm".
func Format(e model.Elapsed) string {
	if !e.Valid {
		return ""
	}
	ms := e.Value.Milliseconds()
	sign := ""
	if ms < 0 {
		sign = "-"
		ms = -ms
	}
	return fmt.Sprintf("%s%d:%02d.%03d", sign, ms/60000, (ms/1000)%60, ms%1000)
}
