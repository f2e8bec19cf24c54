package importer

import (
	"bytes"
	"context"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"treepilot/core"
	"treepilot/export"
	"treepilot/family"
	"treepilot/family/familytest"
	"treepilot/layout"
	"treepilot/source"
)

func exported(t *testing.T, format export.Format) string {
	t.Helper()
	tree := family.Shape(familytest.JaneDoe(), family.ShapeOptions{
		Mode:            family.ModeBidirectional,
		AncestorDepth:   1,
		DescendantDepth: 2,
	})
	res, err := layout.NewTreeLayout(layout.DefaultOptions()).Layout(tree, core.Size{Width: 800, Height: 600})
	require.NoError(t, err)
	exporter, err := export.NewExporter(format)
	require.NoError(t, err)
	var buf bytes.Buffer
	require.NoError(t, exporter.Export(context.Background(), export.NewScene(res, 40), &buf))
	return buf.String()
}

func byID(doc *source.Document) map[string]source.Individual {
	out := make(map[string]source.Individual, len(doc.Individuals))
	for _, in := range doc.Individuals {
		out[in.ID] = in
	}
	return out
}

func assertJaneDoe(t *testing.T, doc *source.Document) {
	t.Helper()
	people := byID(doc)
	require.Len(t, people, 9)

	jane := people["@I1@"]
	assert.Equal(t, "Jane Doe", jane.FullName)
	assert.Equal(t, "F", jane.Gender)
	require.NotNil(t, jane.BirthYear)
	assert.Equal(t, 1950, *jane.BirthYear)
	assert.Nil(t, jane.DeathYear)
	assert.ElementsMatch(t, []string{"@I2@", "@I3@"}, jane.Parents)

	assert.Equal(t, "M", people["@I2@"].Gender)
	assert.Empty(t, people["@I2@"].Parents, "grandparents were outside the exported depth")
	assert.Equal(t, []string{"@I10@"}, people["@I20@"].Parents)
	assert.Equal(t, []string{"@I11@"}, people["@I22@"].Parents)

	// The imported graph is a valid store that rebuilds the same tree.
	store, err := source.NewMemoryStore(doc, nil, nil)
	require.NoError(t, err)
	rec, err := store.Tree(context.Background(), "I1", source.TreeQuery{Kind: source.Bidirectional, Ancestors: 1, Descendants: 2})
	require.NoError(t, err)
	assert.Equal(t, family.Extent{Ancestors: 1, Descendants: 2}, family.Measure(rec))
}

func TestMermaidRoundTrip(t *testing.T) {
	content := exported(t, export.FormatMermaid)
	imp := NewMermaidImporter()
	require.True(t, imp.CanImport(content))

	doc, err := imp.Import(content)
	require.NoError(t, err)
	assertJaneDoe(t, doc)
}

func TestGraphvizRoundTrip(t *testing.T) {
	content := exported(t, export.FormatGraphviz)
	imp := NewGraphvizImporter()
	require.True(t, imp.CanImport(content))

	doc, err := imp.Import(content)
	require.NoError(t, err)
	assertJaneDoe(t, doc)
}

func TestMermaidHandwritten(t *testing.T) {
	content := `%% a small family
flowchart TD
    A["Ada #quot;Countess#quot; Byron<br/>(1815-1852)"]
    B(George Byron)
    A --> C --> D
    B --> C
    class A female
`
	doc, err := NewMermaidImporter().Import(content)
	require.NoError(t, err)
	people := byID(doc)
	require.Len(t, people, 4)

	ada := people["@A@"]
	assert.Equal(t, `Ada "Countess" Byron`, ada.FullName)
	require.NotNil(t, ada.DeathYear)
	assert.Equal(t, 1852, *ada.DeathYear)
	assert.Equal(t, "F", ada.Gender)
	assert.Equal(t, "George Byron", people["@B@"].FullName)
	assert.ElementsMatch(t, []string{"@A@", "@B@"}, people["@C@"].Parents)
	assert.Equal(t, []string{"@C@"}, people["@D@"].Parents)
	assert.Empty(t, people["@C@"].FullName)
}

func TestMermaidRejectsUnknownStatements(t *testing.T) {
	_, err := NewMermaidImporter().Import("graph LR\n    sequenceDiagram nonsense here\n")
	assert.ErrorContains(t, err, "line 2")

	_, err = NewMermaidImporter().Import("graph LR\n")
	assert.ErrorContains(t, err, "no people")
}

func TestGraphvizEscapes(t *testing.T) {
	content := `digraph g {
  P1 [label="Tom \"Tiny\" Thumb\n(b. 1840)", class="male"];
  P2 [class="F"];
  P2 -> P1;
}`
	doc, err := NewGraphvizImporter().Import(content)
	require.NoError(t, err)
	people := byID(doc)
	assert.Equal(t, `Tom "Tiny" Thumb`, people["@P1@"].FullName)
	assert.Equal(t, "M", people["@P1@"].Gender)
	assert.Equal(t, "F", people["@P2@"].Gender)
	assert.Equal(t, []string{"@P2@"}, people["@P1@"].Parents)
}

func TestRegistryDetectFormat(t *testing.T) {
	r := NewImporterRegistry()
	data, err := os.ReadFile("../source/testdata/family.json")
	require.NoError(t, err)

	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"json", string(data), "JSON"},
		{"mermaid", exported(t, export.FormatMermaid), "Mermaid"},
		{"dot", exported(t, export.FormatGraphviz), "Graphviz"},
		{"yaml", "individuals:\n  - id: I1\n", "YAML"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			imp, err := r.DetectFormat(tt.content)
			require.NoError(t, err)
			assert.Equal(t, tt.want, imp.GetFormatName())
		})
	}

	_, err = r.DetectFormat("hello")
	assert.Error(t, err)
}

func TestRegistryImportWithFormat(t *testing.T) {
	r := NewImporterRegistry()
	content := exported(t, export.FormatMermaid)

	for _, format := range []string{"mermaid", "Mermaid", "mmd", ".mmd"} {
		doc, err := r.ImportWithFormat(content, format)
		require.NoError(t, err, format)
		assert.Len(t, doc.Individuals, 9)
	}
	_, err := r.ImportWithFormat(content, "gedcom")
	assert.ErrorContains(t, err, "unknown format")

	doc, err := r.ImportFile("tree.txt", content)
	require.NoError(t, err, "falls back to detection")
	assert.Len(t, doc.Individuals, 9)

	doc, err = r.ImportFile("family.yml", "individuals:\n  - id: I1\n    full_name: Solo\n")
	require.NoError(t, err)
	assert.Equal(t, "Solo", doc.Individuals[0].FullName)

	assert.Equal(t, []string{"JSON", "Mermaid", "Graphviz", "YAML"}, r.GetAvailableFormats())
}

type csvImporter struct{}

func (csvImporter) CanImport(content string) bool { return strings.HasPrefix(content, "id,") }

func (csvImporter) Import(string) (*source.Document, error) {
	return &source.Document{Individuals: []source.Individual{{ID: "@I1@"}}}, nil
}

func (csvImporter) GetFormatName() string { return "CSV" }

func (csvImporter) GetFileExtensions() []string { return []string{".csv"} }

func TestRegistryRegister(t *testing.T) {
	r := NewImporterRegistry()
	r.Register(csvImporter{})

	doc, err := r.Import("id,name\nI1,Jane\n")
	require.NoError(t, err)
	assert.Len(t, doc.Individuals, 1)

	_, err = r.ImportWithFormat("", "csv")
	assert.NoError(t, err)
	assert.Len(t, r.Importers(), 5)
}
