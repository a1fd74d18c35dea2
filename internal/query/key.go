package query

import (
	"encoding/json"
	"fmt"
)

// Key identifies one logical query, most general element first:
// Key{"customers", "search", params}.
type Key []any

func (k Key) String() string {
	raw, err := json.Marshal([]any(k))
	if err != nil {
		return fmt.Sprint([]any(k))
	}
	return string(raw)
}

// HasPrefix reports whether every element of prefix equals the element of k
// at the same position. Elements compare by their JSON form.
func (k Key) HasPrefix(prefix Key) bool {
	if len(prefix) > len(k) {
		return false
	}
	for i := range prefix {
		if element(k[i]) != element(prefix[i]) {
			return false
		}
	}
	return true
}

func (k Key) Equal(other Key) bool {
	return len(k) == len(other) && k.HasPrefix(other)
}

func element(v any) string {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(raw)
}
