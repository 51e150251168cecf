package strings

import (
	"fmt"
	"strings"
)

// DefaultDescriptionMaxLen is the default width of description columns in
// table output.
const DefaultDescriptionMaxLen = 60

// MinTruncateLen is the smallest useful maxLen: one character plus "...".
const MinTruncateLen = 4

// TruncateDescription collapses all whitespace in s to single spaces and cuts
// the result to maxLen runes, ending in "..." when something was dropped.
// maxLen values below MinTruncateLen are raised to MinTruncateLen.
func TruncateDescription(s string, maxLen int) string {
	if maxLen < MinTruncateLen {
		maxLen = MinTruncateLen
	}

	s = strings.Join(strings.Fields(s), " ")

	runes := []rune(s)
	if len(runes) > maxLen {
		return string(runes[:maxLen-3]) + "..."
	}
	return s
}

// SummarizeList joins items with ", " and, when there are more than max items,
// replaces the tail with a "(+N more)" marker. max <= 0 shows every item.
func SummarizeList(items []string, max int) string {
	if len(items) == 0 {
		return "-"
	}
	if max <= 0 || len(items) <= max {
		return strings.Join(items, ", ")
	}
	return fmt.Sprintf("%s (+%d more)", strings.Join(items[:max], ", "), len(items)-max)
}
