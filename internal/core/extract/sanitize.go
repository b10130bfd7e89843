package extract

import "strings"

// sanitizeUTF8 drops any byte sequence that cannot round-trip through UTF-8
// encode/decode. Malformed upstream content (unpaired surrogates, truncated
// multi-byte runes) would otherwise poison the stored chunk text.
func sanitizeUTF8(s string) string {
	return strings.ToValidUTF8(s, "")
}

// collapseLines trims every line, drops blank ones and re-joins with newlines.
func collapseLines(s string) string {
	var out []string
	for _, line := range strings.Split(s, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n")
}
