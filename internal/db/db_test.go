package db

import (
	"context"
	"database/sql"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ishaan812/treeqa/internal/index"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	conn, err := GetDBForPath("")
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func leaf(path, summary string, vec ...float64) *index.FileNode {
	n := index.NewFile(path)
	n.SetSummary(summary)
	if len(vec) > 0 {
		n.SetEmbedding(vec)
	}
	return n
}

func sampleTree() *index.FolderNode {
	pkg := index.NewFolder("repo/pkg", []index.Child{
		{Name: "b.py", Node: leaf("repo/pkg/b.py", "parses tokens", 1, 0)},
	})
	pkg.SetSummary("the parser package")
	pkg.SetEmbedding([]float64{0.6, 0.8})

	root := index.NewFolder("repo", []index.Child{
		{Name: "a.py", Node: leaf("repo/a.py", "draws windows", 0, 1)},
		{Name: "pkg", Node: pkg},
		{Name: "raw.py", Node: leaf("repo/raw.py", "not embedded")},
	})
	root.SetSummary("a toy compiler")
	root.SetEmbedding([]float64{0.5, 0.5})
	return root
}

func TestFlatten_PreOrderWithParents(t *testing.T) {
	root := sampleTree()
	root.Children = append(root.Children, index.Child{Name: "z.txt"})

	nodes, err := Flatten(root)
	require.NoError(t, err)

	type row struct {
		Path, Name, Parent string
		Kind               index.Kind
		Depth, Position    int
	}
	var got []row
	for _, n := range nodes {
		got = append(got, row{n.Path, n.Name, n.ParentPath, n.Kind, n.Depth, n.Position})
	}
	want := []row{
		{"repo", "repo", "", index.KindFolder, 0, 0},
		{"repo/a.py", "a.py", "repo", index.KindFile, 1, 1},
		{"repo/pkg", "pkg", "repo", index.KindFolder, 1, 2},
		{"repo/pkg/b.py", "b.py", "repo/pkg", index.KindFile, 2, 3},
		{"repo/raw.py", "raw.py", "repo", index.KindFile, 1, 4},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Flatten mismatch (-want +got):\n%s", diff)
	}
}

func TestSaveAndLoadTree(t *testing.T) {
	ctx := context.Background()
	conn := openTestDB(t)

	root := sampleTree()
	snap, err := SaveTree(ctx, conn, "/src/repo", "abc123", root)
	require.NoError(t, err)
	assert.Equal(t, 5, snap.NodeCount)

	latest, err := LatestSnapshot(ctx, conn, "/src/repo")
	require.NoError(t, err)
	assert.Equal(t, snap.ID, latest.ID)
	assert.Equal(t, "abc123", latest.HeadHash)

	loaded, err := LoadTree(ctx, conn, snap.ID)
	require.NoError(t, err)
	if diff := cmp.Diff(index.Node(root), loaded); diff != "" {
		t.Errorf("LoadTree mismatch (-want +got):\n%s", diff)
	}

	snaps, err := ListSnapshots(ctx, conn)
	require.NoError(t, err)
	assert.Len(t, snaps, 1)
}

func TestLatestSnapshot_None(t *testing.T) {
	conn := openTestDB(t)
	_, err := LatestSnapshot(context.Background(), conn, "/nowhere")
	assert.ErrorIs(t, err, ErrNoSnapshot)

	_, err = LoadTree(context.Background(), conn, "missing")
	assert.ErrorIs(t, err, ErrNoSnapshot)
}

func TestSemanticSearch(t *testing.T) {
	ctx := context.Background()
	conn := openTestDB(t)

	snap, err := SaveTree(ctx, conn, "/src/repo", "", sampleTree())
	require.NoError(t, err)

	all := []index.Kind{index.KindFolder, index.KindFile}
	results, err := SemanticSearch(ctx, conn, snap.ID, []float64{1, 0}, all, 3)
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, "repo/pkg/b.py", results[0].Path)
	assert.InDelta(t, 1.0, results[0].Similarity, 1e-6)
	assert.Equal(t, "repo/pkg", results[1].Path)
	assert.Equal(t, "repo", results[2].Path)

	files, err := SemanticSearch(ctx, conn, snap.ID, []float64{1, 0}, []index.Kind{index.KindFile}, 10)
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, []string{"repo/pkg/b.py", "repo/a.py"}, []string{files[0].Path, files[1].Path})

	other, err := SemanticSearch(ctx, conn, snap.ID, []float64{1, 0, 0}, all, 10)
	require.NoError(t, err)
	assert.Empty(t, other)

	_, err = SemanticSearch(ctx, conn, snap.ID, nil, all, 10)
	assert.Error(t, err)
}
