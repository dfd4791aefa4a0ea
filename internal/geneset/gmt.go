package geneset

import (
	"bufio"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// LoadGMT reads a gene set collection from a GMT file. Each line holds
// a set identifier, a description, and one or more gene identifiers,
// all tab-separated. Gzipped files are detected from their magic bytes.
// The collection is named after the file, minus extensions.
func LoadGMT(path string) (*Collection, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open gene sets: %w", err)
	}
	defer f.Close()

	r, closeGz, err := maybeGzip(f)
	if err != nil {
		return nil, fmt.Errorf("open gene sets: %w", err)
	}
	defer closeGz()

	name := filepath.Base(path)
	name = strings.TrimSuffix(name, ".gz")
	name = strings.TrimSuffix(name, ".gmt")

	return ParseGMT(r, name)
}

// ParseGMT parses GMT content from a reader into a named collection.
func ParseGMT(r io.Reader, name string) (*Collection, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	c := &Collection{Name: name}
	seen := make(map[string]bool)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimRight(scanner.Text(), "\r\n")
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		fields := strings.Split(line, "\t")
		if len(fields) < 3 {
			return nil, &ParseError{Line: lineNum, Message: "need a set id, a description, and at least one gene"}
		}

		id := strings.TrimSpace(fields[0])
		if id == "" {
			return nil, &ParseError{Line: lineNum, Message: "empty set identifier"}
		}
		if seen[id] {
			return nil, &ParseError{Line: lineNum, Message: fmt.Sprintf("duplicate set identifier %q", id)}
		}
		seen[id] = true

		set := Set{ID: id, Name: strings.TrimSpace(fields[1])}
		if set.Name == "" {
			set.Name = id
		}
		members := make(map[string]bool)
		for _, fieldVal := range fields[2:] {
			gene := strings.TrimSpace(fieldVal)
			if gene == "" || members[gene] {
				continue
			}
			members[gene] = true
			set.Genes = append(set.Genes, gene)
		}
		if len(set.Genes) == 0 {
			return nil, &ParseError{Line: lineNum, Message: fmt.Sprintf("set %q has no genes", id)}
		}
		c.Sets = append(c.Sets, set)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan gene sets: %w", err)
	}
	if len(c.Sets) == 0 {
		return nil, &ParseError{Line: lineNum, Message: "no gene sets found"}
	}

	return c, nil
}

// WriteGMT writes the collection to a GMT file.
func WriteGMT(c *Collection, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("write gene sets: %w", err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	for _, s := range c.Sets {
		name := s.Name
		if name == "" {
			name = s.ID
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n", s.ID, name, strings.Join(s.Genes, "\t"))
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("write gene sets: %w", err)
	}
	return nil
}

// maybeGzip wraps f in a gzip reader when the file starts with the gzip
// magic number. The returned closer is a no-op for plain files.
func maybeGzip(f *os.File) (io.Reader, func(), error) {
	buf := make([]byte, 2)
	n, err := f.Read(buf)
	if err != nil && err != io.EOF {
		return nil, nil, err
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, nil, err
	}
	if n == 2 && buf[0] == 0x1f && buf[1] == 0x8b {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return nil, nil, err
		}
		return gz, func() { gz.Close() }, nil
	}
	return f, func() {}, nil
}

// ParseError reports a GMT input error with line context.
type ParseError struct {
	Line    int
	Message string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error at line %d: %s", e.Line, e.Message)
}
