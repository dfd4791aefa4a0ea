package pathway

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// LoadEdges loads pathway relations from a TSV file with columns
// from, to and an optional relation type. Lines starting with # are
// skipped.
func LoadEdges(path string) ([]Edge, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open relations file: %w", err)
	}
	defer f.Close()

	return ParseEdges(f)
}

// ParseEdges parses pathway relations from TSV.
func ParseEdges(reader io.Reader) ([]Edge, error) {
	var edges []Edge

	scanner := bufio.NewScanner(reader)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := scanner.Text()
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Split(line, "\t")
		if len(fields) < 2 {
			return nil, fmt.Errorf("relations file line %d: need from and to columns", lineNum)
		}
		e := Edge{
			From: strings.TrimSpace(fields[0]),
			To:   strings.TrimSpace(fields[1]),
		}
		if e.From == "" || e.To == "" {
			return nil, fmt.Errorf("relations file line %d: empty gene id", lineNum)
		}
		if len(fields) > 2 {
			e.Type = strings.TrimSpace(fields[2])
		}
		edges = append(edges, e)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading relations file: %w", err)
	}

	return edges, nil
}
