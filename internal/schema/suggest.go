package schema

import "strings"

// preferredKeyNames are tried first when suggesting a join key, in order.
var preferredKeyNames = []string{
	"id",
	"item_id",
	"key",
	"sku",
	"code",
	"customer_id",
	"order_id",
}

// SuggestJoinKeys guesses a join key pair between two schemas by matching
// normalized column names. Returns ok=false when no plausible match exists.
func SuggestJoinKeys(leftCols, rightCols []string) (left, right string, ok bool) {
	if len(leftCols) == 0 || len(rightCols) == 0 {
		return "", "", false
	}

	leftNorm := normalizedIndex(leftCols)
	rightNorm := normalizedIndex(rightCols)

	for _, cand := range preferredKeyNames {
		key := normalizeName(cand)
		l, lok := leftNorm[key]
		r, rok := rightNorm[key]
		if lok && rok {
			return l, r, true
		}
	}

	// Fall back to any shared normalized name, keeping left-column order.
	for _, c := range leftCols {
		if r, rok := rightNorm[normalizeName(c)]; rok {
			return c, r, true
		}
	}

	return "", "", false
}

func normalizedIndex(cols []string) map[string]string {
	idx := make(map[string]string, len(cols))
	for _, c := range cols {
		key := normalizeName(c)
		if _, exists := idx[key]; !exists && key != "" {
			idx[key] = c
		}
	}
	return idx
}

// normalizeName lowercases and strips everything but letters and digits, so
// "Item ID", "item_id" and "itemId" all compare equal.
func normalizeName(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}
