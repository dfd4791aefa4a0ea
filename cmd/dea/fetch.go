package main

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/IrinAnnPaul/Differential-Expression-Analysis/internal/annotation"
	"github.com/IrinAnnPaul/Differential-Expression-Analysis/internal/counts"
	"github.com/IrinAnnPaul/Differential-Expression-Analysis/internal/store"
)

type fetchOptions struct {
	fromCounts  string
	entrez      bool
	url         string
	geneSetURLs []string
	dest        string
	save        bool
}

func newFetchCmd(a *app) *cobra.Command {
	opts := &fetchOptions{}

	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Fetch gene annotation and gene set collections",
		Long: `Build a gene annotation table from the Ensembl REST API for the genes
in a count matrix, or download a prepared annotation TSV and GMT
collections by URL. Files land under ~/.dea/ unless --dest is given.

Examples:
  # Annotate the genes of a count matrix via Ensembl
  dea fetch --from-counts counts.tsv

  # Also resolve Entrez cross-references for the fetched genes
  dea fetch --from-counts counts.tsv --entrez

  # Download a prepared annotation table and hallmark collection
  dea fetch --url https://example.org/annotation.tsv \
    --gene-sets-url https://example.org/h.all.symbols.gmt`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFetch(a, opts)
		},
	}

	cmd.Flags().StringVar(&opts.fromCounts, "from-counts", "", "count matrix whose gene IDs are looked up via Ensembl")
	cmd.Flags().BoolVar(&opts.entrez, "entrez", false, "also resolve Entrez IDs for fetched genes")
	cmd.Flags().StringVar(&opts.url, "url", "", "download a prepared annotation TSV from this URL")
	cmd.Flags().StringSliceVar(&opts.geneSetURLs, "gene-sets-url", nil, "download a GMT collection from this URL (repeatable)")
	cmd.Flags().StringVar(&opts.dest, "dest", "", "destination directory (default: ~/.dea)")
	cmd.Flags().BoolVar(&opts.save, "save", false, "record the annotation table in the results store")

	cmd.Flags().String("organism", "homo_sapiens", "organism for annotation lookups")
	addOutFlag(cmd)
	addStoreFlag(cmd)

	return cmd
}

func runFetch(a *app, opts *fetchOptions) error {
	cfg := a.cfg
	if opts.fromCounts != "" && opts.url != "" {
		return fmt.Errorf("choose one annotation source: --from-counts or --url")
	}
	if opts.fromCounts == "" && opts.url == "" && len(opts.geneSetURLs) == 0 {
		return fmt.Errorf("nothing to fetch: give --from-counts, --url or --gene-sets-url")
	}

	destDir := opts.dest
	if destDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("cannot determine home directory: %w", err)
		}
		destDir = filepath.Join(home, ".dea")
	}
	if err := os.MkdirAll(destDir, 0755); err != nil {
		return fmt.Errorf("create directory %s: %w", destDir, err)
	}

	var table annotation.Table
	annPath := filepath.Join(destDir, "annotation.tsv")

	switch {
	case opts.fromCounts != "":
		m, err := counts.LoadMatrix(opts.fromCounts)
		if err != nil {
			return err
		}
		fmt.Printf("Looking up %d genes for %s...\n", m.NGenes(), cfg.Organism)
		loader := annotation.NewRESTLoader(cfg.Organism)
		table, err = loader.FetchTable(m.Genes)
		if err != nil {
			return err
		}
		if opts.entrez {
			loader.FetchEntrez(table)
		}
		fmt.Printf("Resolved %d of %d genes\n", len(table), m.NGenes())
		if err := annotation.WriteTSV(table, annPath); err != nil {
			return err
		}
		fmt.Printf("Annotation written to %s\n", annPath)

	case opts.url != "":
		if err := downloadFile(opts.url, annPath); err != nil {
			return fmt.Errorf("download annotation: %w", err)
		}
		var err error
		table, err = annotation.LoadTSV(annPath)
		if err != nil {
			return err
		}
	}

	for _, u := range opts.geneSetURLs {
		dest := filepath.Join(destDir, filepath.Base(u))
		if err := downloadFile(u, dest); err != nil {
			return fmt.Errorf("download gene sets: %w", err)
		}
	}

	if opts.save && len(table) > 0 {
		st, err := store.Open(cfg.StorePath())
		if err != nil {
			return err
		}
		defer st.Close()
		if err := st.SaveAnnotation(table); err != nil {
			return err
		}
		fmt.Printf("Annotation recorded in %s\n", cfg.StorePath())
	}
	return nil
}

// downloadFile downloads a file from URL to the destination path with progress.
func downloadFile(url, destPath string) error {
	if info, err := os.Stat(destPath); err == nil {
		fmt.Printf("  %s already exists (%s), skipping\n", filepath.Base(destPath), formatSize(info.Size()))
		return nil
	}

	fmt.Printf("  Downloading %s...\n", filepath.Base(destPath))

	client := &http.Client{
		Timeout: 30 * time.Minute,
	}

	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("HTTP error: %s", resp.Status)
	}

	tmpPath := destPath + ".tmp"
	f, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("create file: %w", err)
	}

	var downloaded int64
	pw := &progressWriter{
		total:      resp.ContentLength,
		downloaded: &downloaded,
		lastPrint:  time.Now(),
	}

	_, err = io.Copy(f, io.TeeReader(resp.Body, pw))
	f.Close()

	if err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("download failed: %w", err)
	}

	if err := os.Rename(tmpPath, destPath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename file: %w", err)
	}

	fmt.Printf("    Done: %s\n", formatSize(downloaded))
	return nil
}

// progressWriter tracks download progress.
type progressWriter struct {
	total      int64
	downloaded *int64
	lastPrint  time.Time
}

func (pw *progressWriter) Write(p []byte) (int, error) {
	n := len(p)
	*pw.downloaded += int64(n)

	// Print progress every second
	if time.Since(pw.lastPrint) > time.Second {
		if pw.total > 0 {
			pct := float64(*pw.downloaded) / float64(pw.total) * 100
			fmt.Printf("\r    Progress: %s / %s (%.1f%%)  ",
				formatSize(*pw.downloaded), formatSize(pw.total), pct)
		} else {
			fmt.Printf("\r    Progress: %s  ", formatSize(*pw.downloaded))
		}
		pw.lastPrint = time.Now()
	}

	return n, nil
}

// formatSize formats bytes as human-readable size.
func formatSize(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
