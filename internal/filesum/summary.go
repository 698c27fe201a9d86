// Package filesum builds the compact, token-cheap summary of a single file
// that the context pack attaches for every candidate file it selects.
package filesum

import (
	"bufio"
	"fmt"
	"strings"
)

const (
	maxFirstLine   = 120
	maxSymbols     = 900
	maxSymbolLines = 12
)

// symbolPrefixes are the trimmed-line prefixes that mark a symbol/export
// declaration worth surfacing in a summary.
var symbolPrefixes = []string{
	"export ",
	"module.exports",
	"class ",
	"function ",
	"interface ",
	"type ",
}

// Build produces the summary block for path given its raw contents:
//
//	file: <path>
//	lines: <n>
//	first_line: <first non-blank line, truncated to 120 chars>   (if any)
//	symbols: <up to 12 matching lines, joined by " | ", clamped to 900 chars>  (if any)
func Build(path string, contents []byte) string {
	lines := strings.Split(string(contents), "\n")
	lineCount := len(lines)
	if lineCount > 0 && lines[lineCount-1] == "" {
		lineCount--
	}

	var b strings.Builder
	fmt.Fprintf(&b, "file: %s\n", path)
	fmt.Fprintf(&b, "lines: %d\n", lineCount)

	if first := firstNonBlank(lines); first != "" {
		if r := []rune(first); len(r) > maxFirstLine {
			first = string(r[:maxFirstLine])
		}
		fmt.Fprintf(&b, "first_line: %s\n", first)
	}

	if symbols := matchSymbols(contents); len(symbols) > 0 {
		joined := strings.Join(symbols, " | ")
		if r := []rune(joined); len(r) > maxSymbols {
			joined = string(r[:maxSymbols])
		}
		fmt.Fprintf(&b, "symbols: %s\n", joined)
	}

	return strings.TrimRight(b.String(), "\n")
}

func firstNonBlank(lines []string) string {
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed != "" {
			return trimmed
		}
	}
	return ""
}

func matchSymbols(contents []byte) []string {
	var matches []string
	scanner := bufio.NewScanner(strings.NewReader(string(contents)))
	scanner.Buffer(make([]byte, 64*1024), 1<<20)

	for scanner.Scan() && len(matches) < maxSymbolLines {
		trimmed := strings.TrimSpace(scanner.Text())
		for _, prefix := range symbolPrefixes {
			if strings.HasPrefix(trimmed, prefix) {
				matches = append(matches, trimmed)
				break
			}
		}
	}
	return matches
}
