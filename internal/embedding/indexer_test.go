package embedding

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ishaan812/treeqa/internal/index"
	"github.com/ishaan812/treeqa/internal/llm"
)

// fakeEmbedder maps each text to a vector of its length. Texts listed in
// bad fail individually; any batch containing one fails as a whole.
type fakeEmbedder struct {
	mu      sync.Mutex
	bad     map[string]bool
	batches [][]string
	singles []string
}

func (f *fakeEmbedder) vec(text string) []float32 { return []float32{float32(len(text)), 1} }

func (f *fakeEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.singles = append(f.singles, text)
	if f.bad[text] {
		return nil, errors.New("backend refused")
	}
	return f.vec(text), nil
}

func (f *fakeEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.batches = append(f.batches, append([]string(nil), texts...))
	out := make([][]float32, len(texts))
	for i, t := range texts {
		if f.bad[t] {
			return nil, errors.New("batch refused")
		}
		out[i] = f.vec(t)
	}
	return out, nil
}

func (f *fakeEmbedder) Dimensions() int { return 2 }

func file(path, summary string) *index.FileNode {
	n := index.NewFile(path)
	n.SetSummary(summary)
	return n
}

func sampleTree() *index.FolderNode {
	sub := index.NewFolder("r/sub", []index.Child{
		{Name: "c.py", Node: file("r/sub/c.py", "ccc")},
	})
	sub.SetSummary("sub folder")
	root := index.NewFolder("r", []index.Child{
		{Name: "a.py", Node: file("r/a.py", "a")},
		{Name: "b.txt"},
		{Name: "empty.py", Node: index.NewFile("r/empty.py")},
		{Name: "sub", Node: sub},
	})
	root.SetSummary("root folder")
	return root
}

func TestEmbedTree_PreOrderBatches(t *testing.T) {
	emb := &fakeEmbedder{}
	ix := NewIndexer(emb, WithBatchSize(2))

	root := sampleTree()
	stats, err := ix.EmbedTree(context.Background(), root)
	require.NoError(t, err)

	assert.Equal(t, 4, stats.Embedded)
	assert.Zero(t, stats.Failed)
	assert.Equal(t, [][]string{{"root folder", "a"}, {"sub folder", "ccc"}}, emb.batches)
	assert.Empty(t, emb.singles)

	counts, err := index.Count(root)
	require.NoError(t, err)
	assert.Equal(t, 4, counts.Embedded)
}

func TestEmbedTree_FailedBatchFallsBackPerItem(t *testing.T) {
	emb := &fakeEmbedder{bad: map[string]bool{"a": true}}
	ix := NewIndexer(emb)

	root := sampleTree()
	stats, err := ix.EmbedTree(context.Background(), root)
	require.NoError(t, err)

	assert.Equal(t, 3, stats.Embedded)
	assert.Equal(t, 1, stats.Failed)
	require.Len(t, stats.Failures, 1)
	assert.Equal(t, "r/a.py", stats.Failures[0].Path)
	assert.ErrorIs(t, stats.Failures[0], llm.ErrEmbedding)
	assert.Equal(t, []string{"root folder", "a", "sub folder", "ccc"}, emb.singles)

	a, ok := root.Child("a.py")
	require.True(t, ok)
	assert.Nil(t, a.Node.Info().Embedding)
}

func TestEmbedTree_SkipsAlreadyEmbedded(t *testing.T) {
	emb := &fakeEmbedder{}
	ix := NewIndexer(emb)

	root := sampleTree()
	root.SetEmbedding([]float64{9, 9})

	stats, err := ix.EmbedTree(context.Background(), root)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Skipped)
	assert.Equal(t, 3, stats.Embedded)
	assert.Equal(t, []float64{9, 9}, root.Embedding)
}

func TestEmbedTree_CancelledContext(t *testing.T) {
	emb := &fakeEmbedder{}
	ix := NewIndexer(emb)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := ix.EmbedTree(ctx, sampleTree())
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, emb.batches)
}

func TestEmbedText(t *testing.T) {
	ix := NewIndexer(&fakeEmbedder{bad: map[string]bool{"no": true}})

	v, err := ix.EmbedText(context.Background(), "why?")
	require.NoError(t, err)
	assert.Equal(t, []float64{4, 1}, v)

	_, err = ix.EmbedText(context.Background(), "no")
	assert.ErrorIs(t, err, llm.ErrEmbedding)
}

func TestCollect(t *testing.T) {
	root := sampleTree()
	_, err := NewIndexer(&fakeEmbedder{}).EmbedTree(context.Background(), root)
	require.NoError(t, err)

	all, err := Collect(root, AllKinds)
	require.NoError(t, err)

	var paths []string
	for _, c := range all {
		paths = append(paths, c.Path)
	}
	assert.Equal(t, []string{"r", "r/a.py", "r/sub", "r/sub/c.py"}, paths)

	files, err := Collect(root, CollectOptions{Files: true})
	require.NoError(t, err)
	want := []Candidate{
		{Path: "r/a.py", Kind: index.KindFile, Text: "a", Vector: []float64{1, 1}},
		{Path: "r/sub/c.py", Kind: index.KindFile, Text: "ccc", Vector: []float64{3, 1}},
	}
	if diff := cmp.Diff(want, files); diff != "" {
		t.Errorf("Collect(files) mismatch (-want +got):\n%s", diff)
	}

	folders, err := Collect(root, CollectOptions{Folders: true})
	require.NoError(t, err)
	assert.Len(t, folders, 2)

	none, err := Collect(root, CollectOptions{})
	require.NoError(t, err)
	assert.Empty(t, none)
}
