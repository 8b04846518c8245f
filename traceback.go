package fiber

import "strings"

// formatTraceback drops the first level-1 lines of trace and prefixes
// message on its own line when it is not empty.
func formatTraceback(trace, message string, level int) string {
	if level > 1 && trace != "" {
		lines := strings.SplitAfter(trace, "\n")
		skip := min(level-1, len(lines))
		trace = strings.Join(lines[skip:], "")
	}
	if message == "" {
		return trace
	}
	if trace == "" {
		return message
	}
	return message + "\n" + trace
}
