package service

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// TimezoneResolver turns a user's stored zone name into a location and
// combines due dates with clock times in that zone.
type TimezoneResolver struct {
	logger *zap.Logger

	mu    sync.RWMutex
	cache map[string]*time.Location
}

// NewTimezoneResolver constructs a resolver with an empty location cache.
func NewTimezoneResolver(logger *zap.Logger) *TimezoneResolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TimezoneResolver{logger: logger, cache: make(map[string]*time.Location)}
}

// Resolve returns the named IANA zone. Empty, unknown and host-dependent
// ("Local") names fall back to UTC, so resolution never fails.
func (r *TimezoneResolver) Resolve(name string) *time.Location {
	name = strings.TrimSpace(name)
	if name == "" || name == "UTC" {
		return time.UTC
	}
	if strings.EqualFold(name, "local") {
		r.logger.Warn("host-local timezone is not a valid user zone, using UTC")
		return time.UTC
	}

	r.mu.RLock()
	loc, ok := r.cache[name]
	r.mu.RUnlock()
	if ok {
		return loc
	}

	// Only successful lookups are cached so every fallback is logged.
	loc, err := time.LoadLocation(name)
	if err != nil {
		r.logger.Warn("unknown timezone, using UTC", zap.String("timezone", name), zap.Error(err))
		return time.UTC
	}

	r.mu.Lock()
	r.cache[name] = loc
	r.mu.Unlock()
	return loc
}

// Valid reports whether name is a loadable, host-independent IANA zone.
func (r *TimezoneResolver) Valid(name string) bool {
	name = strings.TrimSpace(name)
	if name == "" || strings.EqualFold(name, "local") {
		return false
	}
	r.mu.RLock()
	_, ok := r.cache[name]
	r.mu.RUnlock()
	if ok {
		return true
	}
	_, err := time.LoadLocation(name)
	return err == nil
}

// Localize combines a calendar date with an "HH:MM" (or "HH:MM:SS") clock
// in loc. An empty clock means end of day, 23:59.
func (r *TimezoneResolver) Localize(date time.Time, clock string, loc *time.Location) (time.Time, error) {
	hour, minute, err := ParseClock(clock)
	if err != nil {
		return time.Time{}, err
	}
	if loc == nil {
		loc = time.UTC
	}
	y, m, d := date.Date()
	return time.Date(y, m, d, hour, minute, 0, 0, loc), nil
}

// ParseClock parses "HH:MM" or "HH:MM:SS" into hour and minute.
func ParseClock(clock string) (int, int, error) {
	clock = strings.TrimSpace(clock)
	if clock == "" {
		return 23, 59, nil
	}
	for _, layout := range []string{"15:04", "15:04:05"} {
		if t, err := time.Parse(layout, clock); err == nil {
			return t.Hour(), t.Minute(), nil
		}
	}
	return 0, 0, fmt.Errorf("invalid clock time %q", clock)
}
