package orders

import (
	"fmt"
	"time"
)

const DefaultOrderNumberPrefix = "ORD"

// FormatOrderNumber renders PREFIX-YYYYMMDD-NNNN using the UTC date of
// createdAt. Sequences past 9999 widen rather than wrap.
func FormatOrderNumber(prefix string, createdAt time.Time, seq int) string {
	if prefix == "" {
		prefix = DefaultOrderNumberPrefix
	}
	return fmt.Sprintf("%s-%s-%04d", prefix, createdAt.UTC().Format("20060102"), seq)
}
