package source

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"treepilot/core"
	"treepilot/family"
	"treepilot/validation"
)

func openTestStore(t *testing.T) *FileStore {
	t.Helper()
	s, err := Open(filepath.Join("testdata", "family.json"), nil, nil)
	require.NoError(t, err)
	return s
}

func ids(list []*family.Record) []string {
	out := make([]string, 0, len(list))
	for _, r := range list {
		out = append(out, r.ID)
	}
	return out
}

func TestFileStoreBidirectionalTree(t *testing.T) {
	s := openTestStore(t)
	rec, err := s.Tree(context.Background(), "I1", TreeQuery{Kind: Bidirectional, Ancestors: 1, Descendants: 2})
	require.NoError(t, err)

	assert.Equal(t, "@I1@", rec.ID)
	assert.Equal(t, "Jane Doe", rec.Name())
	assert.Equal(t, core.DirectionRoot, rec.Direction)
	assert.Empty(t, rec.Children)

	require.Len(t, rec.Ancestors, 2)
	for _, a := range rec.Ancestors {
		assert.Equal(t, core.DirectionAncestor, a.Direction)
		assert.Empty(t, a.Children, "ancestor depth 1 stops at the parents")
	}

	require.Len(t, rec.Descendants, 3)
	assert.Equal(t, []string{"@I10@", "@I11@", "@I12@"}, ids(rec.Descendants))
	anna := rec.Descendants[0]
	assert.Equal(t, []string{"@I20@", "@I21@"}, ids(anna.Children))
	assert.Empty(t, anna.Children[0].Children, "great-grandchild is beyond depth 2")

	ext := family.Measure(rec)
	assert.Equal(t, 1, ext.Ancestors)
	assert.Equal(t, 2, ext.Descendants)
}

func TestFileStoreSingleDirectionTrees(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	up, err := s.Tree(ctx, "@I1@", TreeQuery{Kind: AncestorTree, Ancestors: 10})
	require.NoError(t, err)
	assert.Equal(t, []string{"@I2@", "@I3@"}, ids(up.Children))
	assert.Equal(t, []string{"@I4@", "@I5@"}, ids(up.Children[0].Children))
	assert.Equal(t, 2, family.Measure(up).Children)

	down, err := s.Tree(ctx, "@I1@", TreeQuery{Kind: DescendantTree, Descendants: 1})
	require.NoError(t, err)
	assert.Equal(t, []string{"@I10@", "@I11@", "@I12@"}, ids(down.Children))
	assert.Equal(t, 1, family.Measure(down).Children)
}

func TestFileStoreZeroDepthHidesSide(t *testing.T) {
	s := openTestStore(t)
	rec, err := s.Tree(context.Background(), "@I1@", TreeQuery{Kind: Bidirectional, Ancestors: 0, Descendants: 3})
	require.NoError(t, err)
	assert.Empty(t, rec.Ancestors)
	assert.Len(t, rec.Descendants, 3)
}

func TestFileStoreNotFound(t *testing.T) {
	s := openTestStore(t)
	_, err := s.Tree(context.Background(), "@NOPE@", DefaultQuery())
	assert.ErrorIs(t, err, family.ErrPersonNotFound)
	_, err = s.PersonDetail(context.Background(), "NOPE")
	assert.ErrorIs(t, err, family.ErrPersonNotFound)
}

func TestFileStorePersonDetail(t *testing.T) {
	s := openTestStore(t)
	d, err := s.PersonDetail(context.Background(), "I1")
	require.NoError(t, err)
	assert.Equal(t, "Jane Doe", d.FullName)
	assert.Equal(t, "Schoolteacher", d.Occupation)
	assert.Equal(t, []string{"Kept the family bible."}, d.Notes)
	assert.Equal(t, []string{"Boston University"}, d.CustomFacts["EDUC"])
	assert.Contains(t, d.Lines(), "Born: 1950, Boston, Massachusetts")

	john, err := s.PersonDetail(context.Background(), "@I2@")
	require.NoError(t, err)
	assert.Equal(t, "Salem, Massachusetts", john.DeathPlace)
}

func TestFileStoreDirectory(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	all, err := s.Individuals(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 13)
	assert.Equal(t, "@I1@", all[0].ID)

	roots, err := s.RootAncestors(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"@I4@", "@I5@", "@I6@"}, ids(roots))

	young, err := s.Youngest(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"@I12@", "@I21@", "@I22@", "@I30@"}, ids(young))
}

func TestFileStoreYAML(t *testing.T) {
	s, err := Open(filepath.Join("testdata", "small.yaml"), nil, nil)
	require.NoError(t, err)

	rec, err := s.Tree(context.Background(), "I1", DefaultQuery())
	require.NoError(t, err)
	assert.Equal(t, "Ada Lovelace", rec.Name())
	require.Len(t, rec.Ancestors, 1)
	assert.Equal(t, "@I2@", rec.Ancestors[0].ID)

	d, err := s.PersonDetail(context.Background(), "I1")
	require.NoError(t, err)
	assert.Equal(t, []string{"Countess of Lovelace"}, d.CustomFacts["TITL"])
}

func TestLoadRejectsBadDocuments(t *testing.T) {
	tests := []struct {
		name string
		doc  Document
		want error
	}{
		{
			name: "duplicate id",
			doc:  Document{Individuals: []Individual{{ID: "I1"}, {ID: "@I1@"}}},
		},
		{
			name: "missing parent",
			doc:  Document{Individuals: []Individual{{ID: "I1", Parents: []string{"I9"}}}},
		},
		{
			name: "cycle",
			doc: Document{Individuals: []Individual{
				{ID: "I1", Parents: []string{"I2"}},
				{ID: "I2", Parents: []string{"I1"}},
			}},
			want: validation.ErrCycle,
		},
		{
			name: "missing id",
			doc:  Document{Individuals: []Individual{{FullName: "Nobody"}}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewMemoryStore(&tt.doc, nil, nil)
			require.Error(t, err)
			if tt.want != nil {
				assert.True(t, errors.Is(err, tt.want))
			}
		})
	}
}

func TestReloadKeepsPreviousDataOnError(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "family.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"individuals":[{"id":"I1","fullName":"First"}]}`), 0o644))

	s, err := Open(path, nil, nil)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(path, []byte(`{"individuals":[`), 0o644))
	assert.Error(t, s.Reload())

	rec, err := s.Tree(context.Background(), "I1", DefaultQuery())
	require.NoError(t, err)
	assert.Equal(t, "First", rec.Name())
}

func TestWatchReloadsOnChange(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "family.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"individuals":[{"id":"I1","fullName":"Before"}]}`), 0o644))

	s, err := Open(path, nil, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	reloaded := make(chan error, 4)
	done := make(chan error, 1)
	go func() { done <- s.Watch(ctx, 20*time.Millisecond, func(err error) { reloaded <- err }) }()

	// Give the watcher time to register before writing.
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.WriteFile(path, []byte(`{"individuals":[{"id":"I1","fullName":"After"}]}`), 0o644))

	deadline := time.After(5 * time.Second)
	for ok := false; !ok; {
		select {
		case err := <-reloaded:
			// A reload can catch the file half written; the next event fixes it.
			ok = err == nil
		case <-deadline:
			t.Fatal("no reload after file change")
		}
	}
	rec, err := s.Tree(context.Background(), "I1", DefaultQuery())
	require.NoError(t, err)
	assert.Equal(t, "After", rec.Name())

	cancel()
	assert.NoError(t, <-done)
}

func TestParseKindAndQuery(t *testing.T) {
	for in, want := range map[string]Kind{
		"": Bidirectional, "both": Bidirectional, "ancestors": AncestorTree, "down": DescendantTree,
	} {
		got, err := ParseKind(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := ParseKind("sideways")
	assert.Error(t, err)

	q := TreeQuery{Ancestors: -3, Descendants: 99}.Normalize()
	assert.Equal(t, Bidirectional, q.Kind)
	assert.Equal(t, 0, q.Ancestors)
	assert.Equal(t, MaxQueryDepth, q.Descendants)
	assert.Equal(t, family.ModeSingle, AncestorTree.Mode())
	assert.Equal(t, "20", q.Values().Get("descendants"))
	assert.Equal(t, "bidirectional", q.Values().Get("mode"))
}
