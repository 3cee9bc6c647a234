package validators

import "strings"

// MaxIdentifierLength bounds free-form identifiers read from query strings.
const MaxIdentifierLength = 128

func SanitizeString(input string, maxLen int) string {
	trimmed := strings.TrimSpace(input)
	if maxLen > 0 && len(trimmed) > maxLen {
		return trimmed[:maxLen]
	}
	return trimmed
}
