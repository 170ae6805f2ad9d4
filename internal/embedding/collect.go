package embedding

import "github.com/ishaan812/treeqa/internal/index"

// CollectOptions selects which node kinds enter the candidate pool.
type CollectOptions struct {
	Folders bool
	Files   bool
}

// AllKinds collects both folders and files.
var AllKinds = CollectOptions{Folders: true, Files: true}

// Candidate is one embedded summary.
type Candidate struct {
	Path   string
	Kind   index.Kind
	Text   string
	Vector []float64
}

// Collect flattens root in pre-order into one candidate per node that has
// both a summary and an embedding.
func Collect(root index.Node, opts CollectOptions) ([]Candidate, error) {
	var out []Candidate
	add := func(kind index.Kind, b *index.Base) {
		if b.HasSummary() && b.Embedding != nil {
			out = append(out, Candidate{Path: b.Path, Kind: kind, Text: b.Summary, Vector: b.Embedding})
		}
	}
	err := index.Walk(root, index.Funcs{
		File: func(n *index.FileNode) error {
			if opts.Files {
				add(index.KindFile, &n.Base)
			}
			return nil
		},
		Folder: func(n *index.FolderNode) error {
			if opts.Folders {
				add(index.KindFolder, &n.Base)
			}
			return nil
		},
	})
	return out, err
}
