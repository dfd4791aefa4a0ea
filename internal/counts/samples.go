package counts

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// Sample metadata column names.
const (
	ColSample    = "sample"
	ColCondition = "condition"
	ColReplicate = "replicate"
	ColBatch     = "batch"
)

// Sample holds the metadata for one sequencing library.
type Sample struct {
	Name      string
	Condition string
	Replicate string
	Batch     string
}

// SampleTable is the ordered sample metadata; row order must match the
// count matrix column order.
type SampleTable struct {
	Samples []Sample
}

// LoadSamples reads sample metadata from a delimited file with a header.
// The sample and condition columns are required; replicate and batch are
// optional.
func LoadSamples(path string) (*SampleTable, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open sample metadata: %w", err)
	}
	defer f.Close()

	return ParseSamples(f)
}

// ParseSamples parses sample metadata content from a reader.
func ParseSamples(r io.Reader) (*SampleTable, error) {
	scanner := bufio.NewScanner(r)

	lineNum := 0
	idx := map[string]int{ColSample: -1, ColCondition: -1, ColReplicate: -1, ColBatch: -1}
	var sep string
	var nCols int

	for scanner.Scan() {
		lineNum++
		line := strings.TrimRight(scanner.Text(), "\r\n")
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		sep = detectSeparator(line)
		fields := strings.Split(line, sep)
		nCols = len(fields)
		for i, col := range fields {
			col = strings.ToLower(strings.TrimSpace(col))
			if _, ok := idx[col]; ok {
				idx[col] = i
			}
		}
		break
	}
	if nCols == 0 {
		return nil, &ParseError{Line: lineNum, Message: "no header line found"}
	}
	if idx[ColSample] == -1 {
		return nil, &ParseError{Line: lineNum, Message: "required column 'sample' not found in header"}
	}
	if idx[ColCondition] == -1 {
		return nil, &ParseError{Line: lineNum, Message: "required column 'condition' not found in header"}
	}

	table := &SampleTable{}
	seen := make(map[string]bool)

	for scanner.Scan() {
		lineNum++
		line := strings.TrimRight(scanner.Text(), "\r\n")
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Split(line, sep)
		if len(fields) != nCols {
			return nil, &ParseError{
				Line:    lineNum,
				Message: fmt.Sprintf("expected %d fields, got %d", nCols, len(fields)),
			}
		}

		s := Sample{
			Name:      strings.TrimSpace(fields[idx[ColSample]]),
			Condition: strings.TrimSpace(fields[idx[ColCondition]]),
		}
		if i := idx[ColReplicate]; i != -1 {
			s.Replicate = strings.TrimSpace(fields[i])
		}
		if i := idx[ColBatch]; i != -1 {
			s.Batch = strings.TrimSpace(fields[i])
		}

		if s.Name == "" {
			return nil, &ParseError{Line: lineNum, Message: "empty sample name"}
		}
		if seen[s.Name] {
			return nil, &ParseError{Line: lineNum, Message: fmt.Sprintf("duplicate sample %q", s.Name)}
		}
		if s.Condition == "" {
			return nil, &ParseError{Line: lineNum, Message: fmt.Sprintf("sample %q has no condition", s.Name)}
		}
		seen[s.Name] = true
		table.Samples = append(table.Samples, s)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan sample metadata: %w", err)
	}
	if len(table.Samples) == 0 {
		return nil, &ParseError{Line: lineNum, Message: "no sample rows found"}
	}

	return table, nil
}

// Align verifies that the metadata rows match the count matrix columns
// one-to-one and in order.
func (t *SampleTable) Align(m *Matrix) error {
	if len(t.Samples) != m.NSamples() {
		return fmt.Errorf("sample metadata has %d rows but count matrix has %d columns",
			len(t.Samples), m.NSamples())
	}
	for j, s := range t.Samples {
		if s.Name != m.Samples[j] {
			return fmt.Errorf("sample metadata row %d is %q but count matrix column %d is %q",
				j, s.Name, j, m.Samples[j])
		}
	}
	return nil
}

// Values returns the per-sample values of the named covariate, in table
// order. Valid names are condition, replicate and batch.
func (t *SampleTable) Values(covariate string) ([]string, error) {
	vals := make([]string, len(t.Samples))
	for i, s := range t.Samples {
		switch covariate {
		case ColCondition:
			vals[i] = s.Condition
		case ColReplicate:
			vals[i] = s.Replicate
		case ColBatch:
			vals[i] = s.Batch
		default:
			return nil, fmt.Errorf("unknown covariate %q", covariate)
		}
	}
	return vals, nil
}

// Levels returns the distinct values of the named covariate in first-seen
// order.
func (t *SampleTable) Levels(covariate string) ([]string, error) {
	vals, err := t.Values(covariate)
	if err != nil {
		return nil, err
	}
	var levels []string
	seen := make(map[string]bool)
	for _, v := range vals {
		if v != "" && !seen[v] {
			seen[v] = true
			levels = append(levels, v)
		}
	}
	return levels, nil
}
