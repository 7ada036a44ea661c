// Package relativedate converts "posted" phrases such as "5d ago" or
// "3 hours ago" into absolute timestamps.
package relativedate

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/jobstreet-scraper/internal/crawler"
)

var phrasePattern = regexp.MustCompile(`(?i)(\d+)\+?\s*([a-z]*)\s+ago`)

var units = map[string]time.Duration{
	"d":       24 * time.Hour,
	"day":     24 * time.Hour,
	"days":    24 * time.Hour,
	"h":       time.Hour,
	"hr":      time.Hour,
	"hrs":     time.Hour,
	"hour":    time.Hour,
	"hours":   time.Hour,
	"m":       time.Minute,
	"min":     time.Minute,
	"mins":    time.Minute,
	"minute":  time.Minute,
	"minutes": time.Minute,
}

// Normalizer implements crawler.DateNormalizer against an injected clock.
type Normalizer struct {
	clock  crawler.Clock
	logger *zap.Logger
}

// New builds a Normalizer. A nil logger discards warnings.
func New(clock crawler.Clock, logger *zap.Logger) *Normalizer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Normalizer{clock: clock, logger: logger}
}

// Normalize returns now minus the phrase's offset, or nil when the phrase
// does not match "<n> <unit> ago", names an unknown unit, or overflows a Duration.
func (n *Normalizer) Normalize(text string) *time.Time {
	match := phrasePattern.FindStringSubmatch(text)
	if match == nil {
		return nil
	}
	value, err := strconv.Atoi(match[1])
	if err != nil {
		n.logger.Warn("invalid time value", zap.String("posted", text), zap.Error(err))
		return nil
	}
	unit, ok := units[strings.ToLower(match[2])]
	if !ok {
		n.logger.Warn("invalid time unit", zap.String("posted", text), zap.String("unit", match[2]))
		return nil
	}
	if int64(value) > math.MaxInt64/int64(unit) {
		n.logger.Warn("invalid time value", zap.String("posted", text), zap.Int("value", value))
		return nil
	}
	at := n.clock.Now().Add(-time.Duration(value) * unit)
	return &at
}

// Format renders t as MM/DD/YYYY, or nil when t is nil.
func Format(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(crawler.DateLayout)
	return &s
}
