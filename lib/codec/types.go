package codec

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// --------------------------------------------------------------------------
// Collections
// --------------------------------------------------------------------------

// Tuple is an immutable sequence ("tuple").
type Tuple []any

// Set is an unordered collection of distinct comparable values ("set").
type Set map[any]struct{}

// NewSet creates a set containing the given items.
// It panics if an item is not comparable, like a map key would.
func NewSet(items ...any) Set {
	s := make(Set, len(items))
	for _, item := range items {
		s[item] = struct{}{}
	}
	return s
}

// Add adds an item to the set.
func (s Set) Add(item any) {
	s[item] = struct{}{}
}

// Has reports whether the item is in the set.
func (s Set) Has(item any) bool {
	_, ok := s[item]
	return ok
}

// Items returns the items of the set in a deterministic order.
func (s Set) Items() []any {
	return sortedItems(s)
}

// FrozenSet is the immutable variant of Set ("frozenset").
type FrozenSet map[any]struct{}

// NewFrozenSet creates a frozen set containing the given items.
func NewFrozenSet(items ...any) FrozenSet {
	return FrozenSet(NewSet(items...))
}

// Has reports whether the item is in the set.
func (s FrozenSet) Has(item any) bool {
	_, ok := s[item]
	return ok
}

// Items returns the items of the set in a deterministic order.
func (s FrozenSet) Items() []any {
	return sortedItems(s)
}

// sortedItems orders the items by type and then by their text form, so encoding a set twice
// yields the same payload
func sortedItems(m map[any]struct{}) []any {
	items := make([]any, 0, len(m))
	for item := range m {
		items = append(items, item)
	}
	sort.Slice(items, func(i, j int) bool {
		ti, tj := fmt.Sprintf("%T", items[i]), fmt.Sprintf("%T", items[j])
		if ti != tj {
			return ti < tj
		}
		return fmt.Sprint(items[i]) < fmt.Sprint(items[j])
	})
	return items
}

// Pair is one entry of an OrderedMap.
type Pair struct {
	Key   string
	Value any
}

// OrderedMap is a mapping that remembers the insertion order of its keys ("OrderedDict").
type OrderedMap []Pair

// Get returns the value of a key.
func (m OrderedMap) Get(key string) (any, bool) {
	for _, p := range m {
		if p.Key == key {
			return p.Value, true
		}
	}
	return nil, false
}

// Set updates the value of an existing key in place or appends a new pair.
func (m *OrderedMap) Set(key string, value any) {
	for i := range *m {
		if (*m)[i].Key == key {
			(*m)[i].Value = value
			return
		}
	}
	*m = append(*m, Pair{Key: key, Value: value})
}

// Keys returns the keys in insertion order.
func (m OrderedMap) Keys() []string {
	keys := make([]string, len(m))
	for i, p := range m {
		keys[i] = p.Key
	}
	return keys
}

// DefaultDict is a mapping that returns nil for missing keys ("defaultdict").
type DefaultDict map[string]any

// Get returns the value of a key or nil.
func (d DefaultDict) Get(key string) any {
	return d[key]
}

// --------------------------------------------------------------------------
// Calendar types
// --------------------------------------------------------------------------

// Date is a calendar date without a time of day ("date").
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// DateOf returns the date of t in the location of t.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

// String returns the ISO-8601 form YYYY-MM-DD.
func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

// ParseDate parses a date in the ISO-8601 form YYYY-MM-DD.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return Date{}, err
	}
	return DateOf(t), nil
}

// TimeOfDay is a wall clock time without a date, with microsecond precision ("time").
type TimeOfDay struct {
	Hour        int
	Minute      int
	Second      int
	Microsecond int
}

// String returns the ISO-8601 form HH:MM:SS, followed by .ffffff if the microseconds are not zero.
func (t TimeOfDay) String() string {
	s := fmt.Sprintf("%02d:%02d:%02d", t.Hour, t.Minute, t.Second)
	if t.Microsecond != 0 {
		s += fmt.Sprintf(".%06d", t.Microsecond)
	}
	return s
}

// ParseTimeOfDay parses HH:MM, HH:MM:SS or HH:MM:SS.ffffff (one to six fraction digits).
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	var t TimeOfDay
	clock, frac, hasFrac := strings.Cut(s, ".")
	parts := strings.Split(clock, ":")
	if len(parts) < 2 || len(parts) > 3 {
		return t, fmt.Errorf("invalid isoformat time %q", s)
	}

	fields := []*int{&t.Hour, &t.Minute, &t.Second}
	limits := []int{23, 59, 59}
	for i, part := range parts {
		n, err := strconv.Atoi(part)
		if err != nil || len(part) != 2 || n < 0 || n > limits[i] {
			return t, fmt.Errorf("invalid isoformat time %q", s)
		}
		*fields[i] = n
	}

	if hasFrac {
		if len(parts) != 3 || len(frac) == 0 || len(frac) > 6 {
			return t, fmt.Errorf("invalid isoformat time %q", s)
		}
		us, err := strconv.Atoi(frac + strings.Repeat("0", 6-len(frac)))
		if err != nil {
			return t, fmt.Errorf("invalid isoformat time %q", s)
		}
		t.Microsecond = us
	}
	return t, nil
}
