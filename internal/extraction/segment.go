package extraction

import "strings"

// SegmentLines splits raw text into trimmed, non-empty lines in their
// original order.
func SegmentLines(text string) []string {
	lines := make([]string, 0)
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		lines = append(lines, line)
	}
	return lines
}
