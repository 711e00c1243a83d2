package game

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode"
)

const (
	// UntimedDuration is the per-turn time sentinel meaning "no turn timer".
	UntimedDuration = 600

	DefaultTurns    = 4
	DefaultTime     = 400
	MinTurnDuration = 15
)

// DefaultCategories is the category set of a fresh session.
var DefaultCategories = []string{
	"Pays",
	"Ville",
	"Prénom masculin",
	"Prénom féminin",
	"Métier",
	"Objet",
	"Animal",
	"Végétal",
	"Couleur",
}

// Configuration is the normalized game configuration of a session.
type Configuration struct {
	Categories            []string `json:"categories" yaml:"categories"`
	StopOnFirstCompletion bool     `json:"stopOnFirstCompletion" yaml:"stop_on_first_completion"`
	Turns                 int      `json:"turns" yaml:"turns"`
	Time                  int      `json:"time" yaml:"time"`
}

// DefaultConfiguration returns the configuration a new session starts with.
func DefaultConfiguration() Configuration {
	return Configuration{
		Categories:            append([]string(nil), DefaultCategories...),
		StopOnFirstCompletion: true,
		Turns:                 DefaultTurns,
		Time:                  UntimedDuration,
	}
}

// Untimed reports whether turns run without a timer.
func (c Configuration) Untimed() bool {
	return c.Time == UntimedDuration
}

// HasCategory reports whether category is part of the configuration.
func (c Configuration) HasCategory(category string) bool {
	for _, existing := range c.Categories {
		if existing == category {
			return true
		}
	}
	return false
}

func (c Configuration) clone() Configuration {
	c.Categories = append([]string(nil), c.Categories...)
	return c
}

// ConfigurationRequest is a configuration edit as sent by a client. Values are
// loosely typed because clients may send numbers as strings and vice versa.
type ConfigurationRequest struct {
	Categories            []any `json:"categories"`
	StopOnFirstCompletion any   `json:"stopOnFirstCompletion"`
	Turns                 any   `json:"turns"`
	Time                  any   `json:"time"`
}

// Normalize clamps and defaults a requested configuration. It never fails.
func (r ConfigurationRequest) Normalize() Configuration {
	return Configuration{
		Categories:            normalizeCategories(r.Categories),
		StopOnFirstCompletion: truthy(r.StopOnFirstCompletion),
		Turns:                 coerceCount(r.Turns, DefaultTurns, 1),
		Time:                  coerceCount(r.Time, DefaultTime, MinTurnDuration),
	}
}

// Request converts a configuration back into a request, e.g. to normalize
// defaults read from a file.
func (c Configuration) Request() ConfigurationRequest {
	categories := make([]any, 0, len(c.Categories))
	for _, category := range c.Categories {
		categories = append(categories, category)
	}
	return ConfigurationRequest{
		Categories:            categories,
		StopOnFirstCompletion: c.StopOnFirstCompletion,
		Turns:                 c.Turns,
		Time:                  c.Time,
	}
}

// normalizeCategories trims every category and keeps the first occurrence of each.
func normalizeCategories(raw []any) []string {
	seen := make(map[string]bool, len(raw))
	categories := make([]string, 0, len(raw))
	for _, value := range raw {
		if value == nil {
			continue
		}
		category := strings.TrimSpace(stringify(value))
		if category == "" || seen[category] {
			continue
		}
		seen[category] = true
		categories = append(categories, category)
	}
	return categories
}

func stringify(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case json.Number:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}

// coerceCount parses value as an integer the lenient way: zero or unparsable
// values fall back to def, negatives are made positive, and the result is at
// least floor.
func coerceCount(value any, def, floor int) int {
	n, ok := parseLeadingInt(value)
	if !ok || n == 0 {
		n = def
	}
	if n < 0 {
		n = -n
	}
	if n < floor {
		n = floor
	}
	return n
}

// maxCount bounds coerced counts so they fit any platform int.
const maxCount = math.MaxInt32

func clampCount(n int64) int {
	return int(max(-maxCount, min(n, maxCount)))
}

func parseLeadingInt(value any) (int, bool) {
	switch v := value.(type) {
	case int:
		return clampCount(int64(v)), true
	case int64:
		return clampCount(v), true
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return 0, false
		}
		return clampCount(int64(max(-maxCount, min(v, maxCount)))), true
	case json.Number:
		return parseLeadingInt(v.String())
	case string:
		s := strings.TrimSpace(v)
		end := 0
		if end < len(s) && (s[end] == '-' || s[end] == '+') {
			end++
		}
		digits := end
		for end < len(s) && unicode.IsDigit(rune(s[end])) {
			end++
		}
		if end == digits {
			return 0, false
		}
		// Out-of-range input yields ±MaxInt64 with ErrRange, which clamps.
		n, err := strconv.ParseInt(s[:end], 10, 64)
		if err != nil && !errors.Is(err, strconv.ErrRange) {
			return 0, false
		}
		return clampCount(n), true
	default:
		return 0, false
	}
}

func truthy(value any) bool {
	switch v := value.(type) {
	case nil:
		return false
	case bool:
		return v
	case float64:
		return v != 0 && !math.IsNaN(v)
	case int:
		return v != 0
	case string:
		return v != ""
	default:
		return true
	}
}
