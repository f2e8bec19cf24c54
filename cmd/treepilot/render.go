package main

import (
	"bytes"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"treepilot/core"
	"treepilot/export"
	"treepilot/family"
	"treepilot/importer"
	"treepilot/layout"
	"treepilot/source"
)

type renderOptions struct {
	mode        string
	ancestors   int
	descendants int
	width       int
	height      int
	format      string
	output      string
	title       string
}

func newRenderCommand(a *app) *cobra.Command {
	opts := renderOptions{}
	cmd := &cobra.Command{
		Use:   "render <person-id>",
		Short: "Render the tree around a person to a file",
		Long: `Lays out the tree around a person and writes it in one of the export formats.
The format defaults to the extension of --output, or SVG.`,
		Example: `  treepilot render I1 -o jane.svg
  treepilot render I1 --mode ancestors --ancestors 4 -o jane.png
  treepilot render I1 --format mermaid`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.render(cmd, args[0], opts)
		},
	}
	f := cmd.Flags()
	f.StringVarP(&opts.mode, "mode", "m", "bidirectional", "Tree kind: bidirectional, ancestors, descendants")
	f.IntVarP(&opts.ancestors, "ancestors", "a", 1, "Ancestor generations to show")
	f.IntVarP(&opts.descendants, "descendants", "D", 2, "Descendant generations to show")
	f.IntVar(&opts.width, "width", 1200, "Drawing width")
	f.IntVar(&opts.height, "height", 800, "Drawing height")
	f.StringVarP(&opts.format, "format", "f", "", "Export format (see 'treepilot formats')")
	f.StringVarP(&opts.output, "output", "o", "", "Output file (default: stdout)")
	f.StringVar(&opts.title, "title", "", "Drawing title (default: the person's name)")
	return cmd
}

func (a *app) render(cmd *cobra.Command, id string, opts renderOptions) error {
	format, err := renderFormat(opts)
	if err != nil {
		return err
	}
	if opts.width <= 0 || opts.height <= 0 {
		return fmt.Errorf("width and height must be positive")
	}
	kind, err := source.ParseKind(opts.mode)
	if err != nil {
		return err
	}
	p, _, err := a.provider(nil)
	if err != nil {
		return err
	}

	q := source.TreeQuery{Kind: kind, Ancestors: opts.ancestors, Descendants: opts.descendants}.Normalize()
	rec, err := p.Tree(cmd.Context(), id, q)
	if err != nil {
		return err
	}
	tree := family.Shape(rec, family.ShapeOptions{
		Mode:            kind.Mode(),
		Depth:           q.Depth(),
		AncestorDepth:   q.Ancestors,
		DescendantDepth: q.Descendants,
	})

	start := time.Now()
	res, err := layout.NewTreeLayout(a.cfg.View.Layout).Layout(tree, core.Size{Width: float64(opts.width), Height: float64(opts.height)})
	if err != nil {
		return err
	}
	a.logger.Debug("layout done", zap.Int("nodes", len(res.Positions)), zap.Duration("took", time.Since(start)))

	exporter, err := export.NewExporter(format)
	if err != nil {
		return err
	}
	scene := export.NewScene(res, a.cfg.View.Viewport.Padding)
	scene.Title = opts.title
	if scene.Title == "" {
		scene.Title = rec.Name()
	}

	var buf bytes.Buffer
	if err := exporter.Export(cmd.Context(), scene, &buf); err != nil {
		return err
	}
	if opts.output == "" {
		_, err := cmd.OutOrStdout().Write(buf.Bytes())
		return err
	}
	if err := os.WriteFile(opts.output, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("write %s: %w", opts.output, err)
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "%s %s (%d people, %s)\n",
		Good.Sprint("wrote"), opts.output, len(res.Positions), exporter.GetFormatName())
	return nil
}

// renderFormat picks the --format flag, then the output extension, then SVG.
func renderFormat(opts renderOptions) (export.Format, error) {
	if opts.format != "" {
		return export.ParseFormat(opts.format)
	}
	if ext := source.FormatOf(opts.output); ext != "" {
		return export.ParseFormat(ext)
	}
	return export.FormatSVG, nil
}

func newFormatsCommand() *cobra.Command {
	return &cobra.Command{
		Use:         "formats",
		Short:       "List the export and import formats",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{annotateNoConfig: ""},
		Run: func(cmd *cobra.Command, args []string) {
			desc := export.GetFormatDescriptions()
			var rows [][]string
			for _, f := range export.GetAvailableFormats() {
				e, _ := export.NewExporter(f)
				rows = append(rows, []string{string(f), e.GetFileExtension(), desc[f]})
			}
			table(cmd.OutOrStdout(), []string{"FORMAT", "EXT", "DESCRIPTION"}, rows)

			rows = rows[:0]
			for _, imp := range importer.NewImporterRegistry().Importers() {
				rows = append(rows, []string{strings.ToLower(imp.GetFormatName()), strings.Join(imp.GetFileExtensions(), " ")})
			}
			fmt.Fprintln(cmd.OutOrStdout())
			table(cmd.OutOrStdout(), []string{"CONVERT FROM", "EXT"}, rows)
		},
	}
}
