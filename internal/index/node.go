// Package index defines the summary tree produced by a crawl: one node per
// recognized file or directory, each carrying an optional summary and an
// optional embedding of that summary.
package index

import "sort"

// Base holds the fields shared by every node. An empty Summary means no
// summary was generated; a nil Embedding means the summary is not embedded.
type Base struct {
	Path      string
	Summary   string
	Embedding []float64
}

// SetSummary replaces the summary and drops any embedding computed from
// the previous text.
func (b *Base) SetSummary(s string) {
	b.Summary = s
	b.Embedding = nil
}

// SetEmbedding attaches a vector for the current summary.
func (b *Base) SetEmbedding(v []float64) {
	b.Embedding = v
}

func (b *Base) HasSummary() bool { return b.Summary != "" }

func (b *Base) info() *Base { return b }

// Node is either a *FileNode or a *FolderNode.
type Node interface {
	Info() *Base
	Accept(v Visitor) error
	sealed()
}

// Kind names a node variant.
type Kind string

const (
	KindFile   Kind = "file"
	KindFolder Kind = "folder"
)

// FileNode is a leaf for one source file.
type FileNode struct {
	Base
}

func (n *FileNode) Info() *Base            { return n.info() }
func (n *FileNode) Accept(v Visitor) error { return v.VisitFile(n) }
func (*FileNode) sealed()                  {}

// Child is a named directory entry. A nil Node records an entry that was
// filtered out or produced nothing.
type Child struct {
	Name string
	Node Node
}

// FolderNode is a directory and its entries, ordered by name.
type FolderNode struct {
	Base
	Children []Child
}

func (n *FolderNode) Info() *Base            { return n.info() }
func (n *FolderNode) Accept(v Visitor) error { return v.VisitFolder(n) }
func (*FolderNode) sealed()                  {}

// NewFile returns a file node with the given path.
func NewFile(path string) *FileNode {
	return &FileNode{Base: Base{Path: path}}
}

// NewFolder returns a folder node whose children are sorted by name.
func NewFolder(path string, children []Child) *FolderNode {
	sort.SliceStable(children, func(i, j int) bool { return children[i].Name < children[j].Name })
	return &FolderNode{Base: Base{Path: path}, Children: children}
}

// Child returns the named entry, if present.
func (n *FolderNode) Child(name string) (Child, bool) {
	i := sort.Search(len(n.Children), func(i int) bool { return n.Children[i].Name >= name })
	if i < len(n.Children) && n.Children[i].Name == name {
		return n.Children[i], true
	}
	return Child{}, false
}

// KindOf reports the variant of n.
func KindOf(n Node) Kind {
	if _, ok := n.(*FolderNode); ok {
		return KindFolder
	}
	return KindFile
}
