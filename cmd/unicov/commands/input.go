// Package commands implements CLI command handlers for unicov.
package commands

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// maxLineBytes bounds one input line; a whole sequence sits on one line.
const maxLineBytes = 64 << 20

// ReadSequences parses newline-delimited raw sequences from r. Blank
// lines are skipped.
func ReadSequences(r io.Reader) ([]string, error) {
	var sequences []string

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		sequences = append(sequences, line)
	}

	scanErr := scanner.Err()
	if scanErr != nil {
		return nil, fmt.Errorf("read sequences: %w", scanErr)
	}

	return sequences, nil
}
