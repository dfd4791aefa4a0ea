package counts

import (
	"bufio"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// LoadMatrix reads a count matrix from a delimited text file. The first
// column holds gene identifiers, the header row holds sample names, and
// every remaining cell is a non-negative integer count. Comma and tab
// delimiters are detected from the header; gzipped files are detected
// from their magic bytes.
func LoadMatrix(path string) (*Matrix, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open count matrix: %w", err)
	}
	defer f.Close()

	r, closeGz, err := maybeGzip(f)
	if err != nil {
		return nil, fmt.Errorf("open count matrix: %w", err)
	}
	defer closeGz()

	return ParseMatrix(r)
}

// ParseMatrix parses count matrix content from a reader.
func ParseMatrix(r io.Reader) (*Matrix, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	lineNum := 0

	// Header: first field is the gene id column label, the rest are samples.
	var samples []string
	var sep string
	for scanner.Scan() {
		lineNum++
		line := strings.TrimRight(scanner.Text(), "\r\n")
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		sep = detectSeparator(line)
		fields := strings.Split(line, sep)
		if len(fields) < 2 {
			return nil, &ParseError{Line: lineNum, Message: "header needs a gene id column and at least one sample"}
		}
		samples = fields[1:]
		break
	}
	if samples == nil {
		return nil, &ParseError{Line: lineNum, Message: "no header line found"}
	}

	var genes []string
	var data []float64
	seen := make(map[string]bool)

	for scanner.Scan() {
		lineNum++
		line := strings.TrimRight(scanner.Text(), "\r\n")
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		fields := strings.Split(line, sep)
		if len(fields) != len(samples)+1 {
			return nil, &ParseError{
				Line:    lineNum,
				Message: fmt.Sprintf("expected %d fields, got %d", len(samples)+1, len(fields)),
			}
		}

		gene := strings.TrimSpace(fields[0])
		if gene == "" {
			return nil, &ParseError{Line: lineNum, Message: "empty gene identifier"}
		}
		if seen[gene] {
			return nil, &ParseError{Line: lineNum, Message: fmt.Sprintf("duplicate gene identifier %q", gene)}
		}
		seen[gene] = true

		for _, fieldVal := range fields[1:] {
			v, err := strconv.ParseFloat(strings.TrimSpace(fieldVal), 64)
			if err != nil {
				return nil, &ParseError{
					Line:    lineNum,
					Message: fmt.Sprintf("gene %q: invalid count %q", gene, fieldVal),
				}
			}
			data = append(data, v)
		}
		genes = append(genes, gene)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan count matrix: %w", err)
	}
	if len(genes) == 0 {
		return nil, &ParseError{Line: lineNum, Message: "no count rows found"}
	}

	return NewMatrix(genes, samples, data)
}

// detectSeparator picks tab when the line contains one, comma otherwise.
func detectSeparator(line string) string {
	if strings.ContainsRune(line, '\t') {
		return "\t"
	}
	return ","
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

// ParseError reports a tabular input error with line context.
type ParseError struct {
	Line    int
	Message string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error at line %d: %s", e.Line, e.Message)
}
