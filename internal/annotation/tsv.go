package annotation

import (
	"bufio"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

// TSV column layout for annotation mapping files (biomart-export style):
// gene_id, symbol, entrez_id, description, biotype. Only gene_id and
// symbol are required in the header; the rest default to empty.
const (
	colGeneID      = "gene_id"
	colSymbol      = "symbol"
	colEntrezID    = "entrez_id"
	colDescription = "description"
	colBiotype     = "biotype"
)

// LoadTSV loads an annotation mapping table from a TSV file.
func LoadTSV(path string) (Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open annotation table: %w", err)
	}
	defer f.Close()

	return ParseTSV(f)
}

// ParseTSV parses an annotation mapping table.
// The header must contain gene_id and symbol columns; entrez_id,
// description and biotype are optional.
func ParseTSV(reader io.Reader) (Table, error) {
	scanner := bufio.NewScanner(reader)

	if !scanner.Scan() {
		return nil, fmt.Errorf("annotation table: empty file")
	}
	header := strings.Split(scanner.Text(), "\t")

	idx := map[string]int{
		colGeneID:      -1,
		colSymbol:      -1,
		colEntrezID:    -1,
		colDescription: -1,
		colBiotype:     -1,
	}
	for i, col := range header {
		name := strings.TrimSpace(strings.ToLower(col))
		if _, ok := idx[name]; ok {
			idx[name] = i
		}
	}
	if idx[colGeneID] < 0 {
		return nil, fmt.Errorf("annotation table: missing %q column", colGeneID)
	}
	if idx[colSymbol] < 0 {
		return nil, fmt.Errorf("annotation table: missing %q column", colSymbol)
	}

	field := func(fields []string, col string) string {
		i := idx[col]
		if i < 0 || i >= len(fields) {
			return ""
		}
		return strings.TrimSpace(fields[i])
	}

	table := make(Table)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		fields := strings.Split(line, "\t")

		geneID := field(fields, colGeneID)
		if geneID == "" {
			continue
		}
		table[geneID] = &Record{
			GeneID:      geneID,
			Symbol:      field(fields, colSymbol),
			Description: field(fields, colDescription),
			EntrezID:    field(fields, colEntrezID),
			Biotype:     field(fields, colBiotype),
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading annotation table: %w", err)
	}

	return table, nil
}

// WriteTSV writes the table to a TSV file in the mapping-file layout.
// Rows are written in sorted gene ID order.
func WriteTSV(table Table, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create annotation table: %w", err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", colGeneID, colSymbol, colEntrezID, colDescription, colBiotype)
	for _, id := range table.GeneIDs() {
		r := table[id]
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", r.GeneID, r.Symbol, r.EntrezID, r.Description, r.Biotype)
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("write annotation table: %w", err)
	}
	return nil
}

// DownloadTable downloads a prepared annotation mapping file to destPath.
// The file is written to a temp path first and renamed on success.
func DownloadTable(url, destPath string) error {
	client := &http.Client{Timeout: 5 * time.Minute}
	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("download annotation table: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download annotation table: HTTP %s", resp.Status)
	}

	f, err := os.Create(destPath + ".tmp")
	if err != nil {
		return fmt.Errorf("create file: %w", err)
	}

	if _, err := io.Copy(f, resp.Body); err != nil {
		f.Close()
		os.Remove(destPath + ".tmp")
		return fmt.Errorf("write annotation table: %w", err)
	}
	f.Close()

	if err := os.Rename(destPath+".tmp", destPath); err != nil {
		os.Remove(destPath + ".tmp")
		return fmt.Errorf("rename annotation table: %w", err)
	}

	return nil
}
