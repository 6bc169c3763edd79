package cache

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Key is an ordered tuple identifying a cached read, e.g.
// K("orders", 0, 10, "PACKED", "", "", "").
type Key []interface{}

func K(parts ...interface{}) Key {
	return Key(parts)
}

func (k Key) String() string {
	parts := make([]string, len(k))
	for i, p := range k {
		parts[i] = partString(p)
	}
	return "[" + strings.Join(parts, ",") + "]"
}

// HasPrefix reports whether every element of prefix equals the element of k
// at the same position. An empty prefix matches every key.
func (k Key) HasPrefix(prefix Key) bool {
	if len(prefix) > len(k) {
		return false
	}
	for i := range prefix {
		if partString(k[i]) != partString(prefix[i]) {
			return false
		}
	}
	return true
}

func (k Key) Equal(other Key) bool {
	return len(k) == len(other) && k.HasPrefix(other)
}

func partString(p interface{}) string {
	b, err := json.Marshal(p)
	if err != nil {
		return fmt.Sprintf("%q", fmt.Sprint(p))
	}
	return string(b)
}
