package indexer

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/ishaan812/treeqa/internal/index"
	"github.com/ishaan812/treeqa/internal/llm"
	"github.com/ishaan812/treeqa/internal/prompts"
)

func newTestCrawler(client llm.Client, oracle llm.LengthOracle, opts ...CrawlOption) *Crawler {
	chunker := NewChunker(client, oracle, budgetFor(100000), WithConcurrency(2))
	return NewCrawler(NewSummarizer(chunker, OverflowSkip, nil), opts...)
}

func mustPatterns(t *testing.T, ps ...string) Patterns {
	t.Helper()
	out, err := CompilePatterns(ps)
	require.NoError(t, err)
	return out
}

func fileNode(path, summary string) *index.FileNode {
	n := index.NewFile(path)
	n.Summary = summary
	return n
}

func TestCrawl_PythonFileAndUnhandledText(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{
		"a.py":  "def f(): pass",
		"b.txt": "just notes",
	})
	client := &recordingClient{respond: summaryResponder}

	res, err := newTestCrawler(client, lenOracle).Crawl(context.Background(), root)
	require.NoError(t, err)

	want := &index.FolderNode{
		Base: index.Base{Path: root, Summary: "folder " + filepath.Base(root)},
		Children: []index.Child{
			{Name: "a.py", Node: fileNode(filepath.Join(root, "a.py"), "file a.py")},
			{Name: "b.txt"},
		},
	}
	if diff := cmp.Diff(index.Node(want), res.Root); diff != "" {
		t.Errorf("tree mismatch (-want +got):\n%s", diff)
	}
	assert.Len(t, client.calls(), 2)
	assert.Empty(t, res.Failures)
}

// mixedTree lays out a tree that exercises every pruning rule.
func mixedTree(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	writeFiles(t, root, map[string]string{
		".git/config":       "[core]",
		"a.py":              "print('a')",
		"b.txt":             "notes",
		"bin.py":            "\x00\x01\x02",
		"sub/c.py":          "def c(): pass",
		"sub/skip_test.py":  "def test(): pass",
		"sub/deeper/d.go":   "package deeper",
		"sub/deeper/e.json": "{}",
	})
	return root
}

func TestCrawl_PruningAndFailures(t *testing.T) {
	root := mixedTree(t)
	if err := os.Symlink(filepath.Join(root, "a.py"), filepath.Join(root, "link.py")); err != nil {
		t.Logf("symlinks unavailable: %v", err)
	}
	client := &recordingClient{respond: summaryResponder}
	c := newTestCrawler(client, lenOracle, WithExclude(mustPatterns(t, "*_test.py")))

	res, err := c.Crawl(context.Background(), root)
	require.NoError(t, err)

	rootNode, ok := res.Root.(*index.FolderNode)
	require.True(t, ok)

	for _, name := range []string{".git", "b.txt", "bin.py", "link.py"} {
		if ch, ok := rootNode.Child(name); ok {
			assert.Nil(t, ch.Node, name)
		}
	}

	a, _ := rootNode.Child("a.py")
	assert.Equal(t, "file a.py", a.Node.Info().Summary)

	subChild, _ := rootNode.Child("sub")
	sub, ok := subChild.Node.(*index.FolderNode)
	require.True(t, ok)
	skip, _ := sub.Child("skip_test.py")
	assert.Nil(t, skip.Node)
	deeper, _ := sub.Child("deeper")
	require.NotNil(t, deeper.Node)
	e, _ := deeper.Node.(*index.FolderNode).Child("e.json")
	assert.Nil(t, e.Node)

	require.Len(t, res.Failures, 1)
	assert.Equal(t, filepath.Join(root, "bin.py"), res.Failures[0].Path)
	assert.ErrorIs(t, res.Failures[0], ErrUnsupportedContent)

	assert.Equal(t, CrawlStats{Files: 3, Folders: 3, Pruned: 2, Failed: 1}, res.Stats)

	// Children are finished before their folder, folders bottom-up.
	calls := client.calls()
	require.Len(t, calls, 6)
	assert.Contains(t, calls[0], "'a.py'")
	assert.Contains(t, calls[1], "'c.py'")
	assert.Contains(t, calls[2], "'d.go'")
	assert.True(t, strings.HasPrefix(calls[3], "The folder '"+filepath.Join(root, "sub", "deeper")+"'"))
	assert.True(t, strings.HasPrefix(calls[4], "The folder '"+filepath.Join(root, "sub")+"'"))

	entries := []prompts.FolderEntry{{Name: ".git"}, {Name: "a.py", Summary: "file a.py"}, {Name: "b.txt"}, {Name: "bin.py"}}
	if _, ok := rootNode.Child("link.py"); ok {
		entries = append(entries, prompts.FolderEntry{Name: "link.py"})
	}
	entries = append(entries, prompts.FolderEntry{Name: "sub", Summary: "folder sub"})
	assert.Equal(t, prompts.BuildFolderSummaryPrompt(root, entries), calls[5])
}

func TestCrawl_IncludeAppliesToFilesOnly(t *testing.T) {
	root := mixedTree(t)
	client := &recordingClient{respond: summaryResponder}
	c := newTestCrawler(client, lenOracle, WithInclude(mustPatterns(t, "c.py")))

	res, err := c.Crawl(context.Background(), root)
	require.NoError(t, err)

	rootNode := res.Root.(*index.FolderNode)
	a, _ := rootNode.Child("a.py")
	assert.Nil(t, a.Node)

	subChild, _ := rootNode.Child("sub")
	require.NotNil(t, subChild.Node, "directories are descended even when they do not match")
	cNode, _ := subChild.Node.(*index.FolderNode).Child("c.py")
	require.NotNil(t, cNode.Node)
	assert.Equal(t, "file c.py", cNode.Node.Info().Summary)
}

func TestCrawl_PathFilterPrunesDirectories(t *testing.T) {
	root := mixedTree(t)
	client := &recordingClient{respond: summaryResponder}
	ignoreSub := FilterFunc(func(p string) bool { return filepath.Base(p) == "sub" })

	res, err := newTestCrawler(client, lenOracle, WithPathFilter(ignoreSub)).Crawl(context.Background(), root)
	require.NoError(t, err)

	sub, ok := res.Root.(*index.FolderNode).Child("sub")
	require.True(t, ok)
	assert.Nil(t, sub.Node)
	for _, p := range client.calls() {
		assert.NotContains(t, p, "c.py")
	}
}

func TestCrawl_RelativeRootPaths(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{"a.py": "x = 1", "b.py": "y = 2"})
	t.Chdir(root)

	client := &recordingClient{respond: summaryResponder}
	exclude := mustPatterns(t, "."+string(os.PathSeparator)+"a.py")

	res, err := newTestCrawler(client, lenOracle, WithExclude(exclude)).Crawl(context.Background(), ".")
	require.NoError(t, err)

	rootNode := res.Root.(*index.FolderNode)
	assert.Equal(t, ".", rootNode.Path)
	a, _ := rootNode.Child("a.py")
	assert.Nil(t, a.Node)
	b, _ := rootNode.Child("b.py")
	require.NotNil(t, b.Node)
	assert.Equal(t, "."+string(os.PathSeparator)+"b.py", b.Node.Info().Path)
}

func TestCrawl_SummaryFailureIsRecorded(t *testing.T) {
	root := mixedTree(t)
	boom := errors.New("model unavailable")
	client := &recordingClient{respond: func(p string) (string, error) {
		if strings.Contains(p, "'c.py'") {
			return "", boom
		}
		return summaryResponder(p)
	}}

	res, err := newTestCrawler(client, lenOracle).Crawl(context.Background(), root)
	require.NoError(t, err)

	var failed *Failure
	for i := range res.Failures {
		if errors.Is(res.Failures[i].Err, boom) {
			failed = &res.Failures[i]
		}
	}
	require.NotNil(t, failed)
	assert.Equal(t, StageSummarize, failed.Stage)
	assert.ErrorIs(t, failed.Err, llm.ErrGeneration)

	subChild, _ := res.Root.(*index.FolderNode).Child("sub")
	cNode, _ := subChild.Node.(*index.FolderNode).Child("c.py")
	require.NotNil(t, cNode.Node, "the node survives without a summary")
	assert.Empty(t, cNode.Node.Info().Summary)
}

func TestCrawl_FolderOverflowLeavesSummaryEmpty(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{"a.py": "x = 1"})
	client := &recordingClient{respond: summaryResponder}
	oracle := llm.OracleFunc(func(p string) int {
		if strings.HasPrefix(p, "The folder") {
			return 1 << 30
		}
		return len(p)
	})

	res, err := newTestCrawler(client, oracle).Crawl(context.Background(), root)
	require.NoError(t, err)

	assert.Empty(t, res.Root.Info().Summary)
	require.Len(t, res.Failures, 1)
	assert.ErrorIs(t, res.Failures[0].Err, llm.ErrContextOverflow)
	assert.Len(t, client.calls(), 1)
}

func TestCrawl_MaxDepthAndFileSize(t *testing.T) {
	root := mixedTree(t)
	client := &recordingClient{respond: summaryResponder}
	c := newTestCrawler(client, lenOracle, WithMaxDepth(0), WithMaxFileSize(5))

	res, err := c.Crawl(context.Background(), root)
	require.NoError(t, err)

	rootNode := res.Root.(*index.FolderNode)
	sub, _ := rootNode.Child("sub")
	assert.Nil(t, sub.Node)
	a, _ := rootNode.Child("a.py")
	assert.Nil(t, a.Node)

	var tooDeep, tooBig bool
	for _, f := range res.Failures {
		tooDeep = tooDeep || errors.Is(f, ErrTooDeep)
		tooBig = tooBig || (errors.Is(f, ErrUnsupportedContent) && f.Path == filepath.Join(root, "a.py"))
	}
	assert.True(t, tooDeep)
	assert.True(t, tooBig)
}

func TestCrawl_RootIsNeverPruned(t *testing.T) {
	root := filepath.Join(t.TempDir(), "build")
	writeFiles(t, root, map[string]string{"gen.py": "x = 1"})

	res, err := newTestCrawler(&recordingClient{respond: summaryResponder}, lenOracle,
		WithExclude(mustPatterns(t, "build"))).Crawl(context.Background(), root)
	require.NoError(t, err)
	require.NotNil(t, res.Root)
	assert.Equal(t, root, res.Root.Info().Path)
	assert.Zero(t, res.Stats.Pruned)
	gen, _ := res.Root.(*index.FolderNode).Child("gen.py")
	assert.NotNil(t, gen.Node)
}

func TestCrawl_VendoredDirsKeepPackageNames(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{
		"pkg/build/gen.go":      "package build",
		"pkg/vendor/v.go":       "package vendor",
		"node_modules/x/i.js":   "module.exports = 1",
		"__pycache__/a.cpython": "junk",
	})

	res, err := newTestCrawler(&recordingClient{respond: summaryResponder}, lenOracle,
		WithExclude(mustPatterns(t, VendoredDirs...))).Crawl(context.Background(), root)
	require.NoError(t, err)

	top := res.Root.(*index.FolderNode)
	nm, _ := top.Child("node_modules")
	assert.Nil(t, nm.Node)
	pc, _ := top.Child("__pycache__")
	assert.Nil(t, pc.Node)

	pkgChild, _ := top.Child("pkg")
	require.NotNil(t, pkgChild.Node)
	pkg := pkgChild.Node.(*index.FolderNode)
	for _, name := range []string{"build", "vendor"} {
		c, ok := pkg.Child(name)
		require.True(t, ok)
		assert.NotNil(t, c.Node, name)
	}
	assert.Equal(t, 2, res.Stats.Pruned)
}

func TestCrawl_MissingRoot(t *testing.T) {
	_, err := newTestCrawler(&recordingClient{}, lenOracle).Crawl(context.Background(), filepath.Join(t.TempDir(), "nope"))
	assert.Error(t, err)
}

func TestCrawl_Cancelled(t *testing.T) {
	root := mixedTree(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestCrawler(&recordingClient{}, lenOracle).Crawl(ctx, root)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCrawl_ParallelMatchesSequential(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreTopFunction("go.opencensus.io/stats/view.(*worker).start"))

	root := mixedTree(t)
	writeFiles(t, root, map[string]string{
		"pkg/one.py":         "1",
		"pkg/two.py":         "2",
		"pkg/inner/three.py": "3",
	})

	seq, err := newTestCrawler(&recordingClient{respond: summaryResponder}, lenOracle).
		Crawl(context.Background(), root)
	require.NoError(t, err)

	parClient := &recordingClient{respond: summaryResponder}
	par, err := newTestCrawler(parClient, lenOracle, WithWorkers(4)).Crawl(context.Background(), root)
	require.NoError(t, err)

	if diff := cmp.Diff(seq.Root, par.Root); diff != "" {
		t.Errorf("parallel tree differs (-seq +par):\n%s", diff)
	}
	assert.Equal(t, seq.Stats, par.Stats)
	assert.Equal(t, len(seq.Failures), len(par.Failures))
}

func TestCrawl_ProgressCallback(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{"a.py": "x", "sub/b.py": "y"})

	var seen []string
	c := newTestCrawler(&recordingClient{respond: summaryResponder}, lenOracle,
		WithProgress(func(p string) { seen = append(seen, filepath.Base(p)) }))
	_, err := c.Crawl(context.Background(), root)
	require.NoError(t, err)
	assert.Equal(t, []string{"a.py", "b.py", "sub", filepath.Base(root)}, seen)
}
