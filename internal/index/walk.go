package index

import (
	"errors"
	"fmt"
)

// MaxDepth bounds traversal of a tree.
const MaxDepth = 256

// ErrTooDeep is returned when a tree is nested deeper than MaxDepth.
var ErrTooDeep = errors.New("tree exceeds maximum depth")

// Visitor handles each node variant.
type Visitor interface {
	VisitFile(n *FileNode) error
	VisitFolder(n *FolderNode) error
}

// Funcs adapts a pair of functions to Visitor. A nil function is a no-op.
type Funcs struct {
	File   func(*FileNode) error
	Folder func(*FolderNode) error
}

func (f Funcs) VisitFile(n *FileNode) error {
	if f.File == nil {
		return nil
	}
	return f.File(n)
}

func (f Funcs) VisitFolder(n *FolderNode) error {
	if f.Folder == nil {
		return nil
	}
	return f.Folder(n)
}

// Walk visits root and its descendants in pre-order: a folder before its
// children, children in name order. Nil children are skipped. Walk stops
// at the first error returned by v.
func Walk(root Node, v Visitor) error {
	if root == nil {
		return nil
	}
	return walk(root, v, 0)
}

func walk(n Node, v Visitor, depth int) error {
	if depth > MaxDepth {
		return fmt.Errorf("%w at %s", ErrTooDeep, n.Info().Path)
	}
	if err := n.Accept(v); err != nil {
		return err
	}
	folder, ok := n.(*FolderNode)
	if !ok {
		return nil
	}
	for _, c := range folder.Children {
		if c.Node == nil {
			continue
		}
		if err := walk(c.Node, v, depth+1); err != nil {
			return err
		}
	}
	return nil
}

// Nodes returns every node of the tree in Walk order.
func Nodes(root Node) ([]Node, error) {
	var out []Node
	err := Walk(root, Funcs{
		File:   func(n *FileNode) error { out = append(out, n); return nil },
		Folder: func(n *FolderNode) error { out = append(out, n); return nil },
	})
	return out, err
}

// Stats counts nodes and how many carry summaries and embeddings.
type Stats struct {
	Files      int
	Folders    int
	Summarized int
	Embedded   int
}

// Count tallies the tree.
func Count(root Node) (Stats, error) {
	var s Stats
	tally := func(b *Base) {
		if b.HasSummary() {
			s.Summarized++
		}
		if b.Embedding != nil {
			s.Embedded++
		}
	}
	err := Walk(root, Funcs{
		File:   func(n *FileNode) error { s.Files++; tally(&n.Base); return nil },
		Folder: func(n *FolderNode) error { s.Folders++; tally(&n.Base); return nil },
	})
	return s, err
}
