package judge

import (
	"io"
	"strings"
)

// ReadLines splits r into lines the way a text file is read line by line.
// "\r\n" and a lone "\r" end a line like "\n" and are returned as "\n".
// A trailing newline does not produce an extra empty line.
func ReadLines(r io.Reader) ([]string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, nil
	}

	text := strings.ReplaceAll(string(data), "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	lines := strings.SplitAfter(text, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines, nil
}

// Compare reports whether produced matches expected: equal line counts and,
// for every line, the same whitespace-separated tokens.
//
// When the outputs differ, line is the 1-based index of the first differing
// line, or zero when only the line counts differ.
func Compare(produced, expected []string) (match bool, line int) {
	if len(produced) != len(expected) {
		return false, 0
	}
	for i := range produced {
		if !equalTokens(strings.Fields(produced[i]), strings.Fields(expected[i])) {
			return false, i + 1
		}
	}
	return true, 0
}

func equalTokens(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
