package remote

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/iancoleman/orderedmap"
)

// Arguments is an ordered string-keyed mapping sent along with a command.
// Keys are unique; the first value stored under a key wins.
//
// Copies share storage. Use Clone before adding to a mapping owned elsewhere.
type Arguments struct {
	entries *orderedmap.OrderedMap
}

// NewArguments builds a single-entry mapping.
func NewArguments(key string, value any) Arguments {
	var args Arguments
	args.Add(key, value)
	return args
}

// PrepareArguments zips names and values in order.
// Both slices are literals owned by the caller, so a length mismatch is a bug.
func PrepareArguments(names []string, values []any) Arguments {
	if len(names) != len(values) {
		panic(fmt.Sprintf("remote: %d argument names for %d values", len(names), len(values)))
	}
	args := Arguments{entries: orderedmap.New()}
	for i, name := range names {
		args.Add(name, values[i])
	}
	return args
}

// Add stores value under key unless key is already present.
func (a *Arguments) Add(key string, value any) bool {
	if a.entries == nil {
		a.entries = orderedmap.New()
	}
	if _, exists := a.entries.Get(key); exists {
		return false
	}
	a.entries.Set(key, value)
	return true
}

func (a Arguments) Get(key string) (any, bool) {
	if a.entries == nil {
		return nil, false
	}
	return a.entries.Get(key)
}

func (a Arguments) Has(key string) bool {
	_, ok := a.Get(key)
	return ok
}

func (a Arguments) Len() int {
	if a.entries == nil {
		return 0
	}
	return len(a.entries.Keys())
}

// Keys returns keys in insertion order.
func (a Arguments) Keys() []string {
	if a.entries == nil {
		return nil
	}
	return append([]string(nil), a.entries.Keys()...)
}

// Range calls fn for each entry in insertion order until fn returns false.
func (a Arguments) Range(fn func(key string, value any) bool) {
	for _, key := range a.Keys() {
		value, _ := a.entries.Get(key)
		if !fn(key, value) {
			return
		}
	}
}

// Clone returns an independent copy. Nested Arguments are cloned as well.
func (a Arguments) Clone() Arguments {
	out := Arguments{entries: orderedmap.New()}
	a.Range(func(key string, value any) bool {
		if nested, ok := value.(Arguments); ok {
			value = nested.Clone()
		}
		out.Add(key, value)
		return true
	})
	return out
}

// Map converts the mapping into a plain map, recursively.
func (a Arguments) Map() map[string]any {
	out := make(map[string]any, a.Len())
	a.Range(func(key string, value any) bool {
		if nested, ok := value.(Arguments); ok {
			value = nested.Map()
		}
		out[key] = value
		return true
	})
	return out
}

// Equal reports whether both mappings hold the same keys in the same order
// with equal JSON encodings of their values.
func (a Arguments) Equal(other Arguments) bool {
	left, err := json.Marshal(a)
	if err != nil {
		return false
	}
	right, err := json.Marshal(other)
	if err != nil {
		return false
	}
	return bytes.Equal(left, right)
}

func (a Arguments) String() string {
	encoded, err := json.Marshal(a)
	if err != nil {
		return fmt.Sprintf("arguments(%v)", a.Keys())
	}
	return string(encoded)
}

// MarshalJSON encodes entries as a JSON object in insertion order. An empty
// mapping encodes as {}.
func (a Arguments) MarshalJSON() ([]byte, error) {
	if a.entries == nil {
		return []byte("{}"), nil
	}
	return a.entries.MarshalJSON()
}
