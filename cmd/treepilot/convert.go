package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"treepilot/importer"
	"treepilot/source"
)

func newConvertCommand() *cobra.Command {
	var inputFormat, outputFormat, output string
	cmd := &cobra.Command{
		Use:   "convert <family-file>",
		Short: "Check a family file and convert it to JSON or YAML",
		Long: `Reads a family file, checks that every parent exists and that nobody is their
own ancestor, and writes it back as JSON or YAML.

Besides JSON and YAML, the Mermaid and Graphviz files written by "render" can be
read back: nodes become people and edges run from parent to child. Formats
default to the file extensions, and the input format is detected from the
content when the extension is unknown.`,
		Example: `  treepilot convert family.yaml -o family.json
  treepilot convert family.json --to yaml
  treepilot convert tree.mmd -o family.json`,
		Args:        cobra.ExactArgs(1),
		Annotations: map[string]string{annotateNoConfig: ""},
		RunE: func(cmd *cobra.Command, args []string) error {
			in := args[0]
			content, err := os.ReadFile(in)
			if err != nil {
				return fmt.Errorf("read input file: %w", err)
			}
			registry := importer.NewImporterRegistry()
			var doc *source.Document
			if inputFormat == "" {
				doc, err = registry.ImportFile(in, string(content))
			} else {
				doc, err = registry.ImportWithFormat(string(content), inputFormat)
			}
			if err != nil {
				return err
			}
			if _, err := source.NewMemoryStore(doc, nil, nil); err != nil {
				return err
			}

			if outputFormat == "" {
				outputFormat = source.FormatOf(output)
			}
			data, err := encodeDocument(doc, outputFormat)
			if err != nil {
				return err
			}

			if output == "" {
				_, err := cmd.OutOrStdout().Write(data)
				return err
			}
			if err := os.WriteFile(output, data, 0644); err != nil {
				return fmt.Errorf("write output file: %w", err)
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "%s %d people to %s\n", Good.Sprint("converted"), len(doc.Individuals), output)
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&inputFormat, "from", "", "Input format: json, yaml, mermaid or dot")
	f.StringVar(&outputFormat, "to", "", "Output format: json or yaml (default json)")
	f.StringVarP(&output, "output", "o", "", "Output file (default: stdout)")
	return cmd
}

func encodeDocument(doc *source.Document, format string) ([]byte, error) {
	switch format {
	case "yaml", "yml":
		return yaml.Marshal(doc)
	case "json", "":
		data, err := json.MarshalIndent(doc, "", "  ")
		if err != nil {
			return nil, err
		}
		return append(data, '\n'), nil
	default:
		return nil, fmt.Errorf("unsupported output format %q", format)
	}
}
