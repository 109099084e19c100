package utils

import "strings"

// JoinStringsWithCommas joins names for prose: "a", "a and b",
// "a, b, and c".
func JoinStringsWithCommas(names []string) string {
	switch len(names) {
	case 0:
		return ""
	case 1:
		return names[0]
	case 2:
		return names[0] + " and " + names[1]
	default:
		return strings.Join(names[:len(names)-1], ", ") + ", and " + names[len(names)-1]
	}
}
