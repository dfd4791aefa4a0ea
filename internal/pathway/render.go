package pathway

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/goccy/go-graphviz"
)

// Render lays out the DOT source with Graphviz and writes the chosen
// format.
func Render(ctx context.Context, dot string, format graphviz.Format, w io.Writer) error {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, format, &buf); err != nil {
		return fmt.Errorf("render: %w", err)
	}
	_, err = w.Write(buf.Bytes())
	return err
}

// WriteFile renders the diagram to a file, picking SVG or PNG from the
// extension. Other extensions get the raw DOT source.
func (d *Diagram) WriteFile(ctx context.Context, path string) error {
	var format graphviz.Format
	switch {
	case strings.HasSuffix(path, ".svg"):
		format = graphviz.SVG
	case strings.HasSuffix(path, ".png"):
		format = graphviz.PNG
	default:
		return os.WriteFile(path, []byte(d.DOT()), 0644)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create diagram file: %w", err)
	}
	defer f.Close()

	return Render(ctx, d.DOT(), format, f)
}
