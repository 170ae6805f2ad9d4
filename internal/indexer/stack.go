package indexer

import (
	"sort"

	"github.com/ishaan812/treeqa/internal/index"
)

// markerFiles name the build or tooling a file's presence implies.
var markerFiles = map[string]string{
	"package.json":       "Node.js",
	"go.mod":             "Go",
	"Cargo.toml":         "Rust",
	"requirements.txt":   "Python",
	"setup.py":           "Python",
	"pyproject.toml":     "Python",
	"Gemfile":            "Ruby",
	"pom.xml":            "Java",
	"build.gradle":       "Java",
	"Dockerfile":         "Docker",
	"docker-compose.yml": "Docker",
	".github":            "GitHub Actions",
}

// StackEntry is one line of a tech stack breakdown.
type StackEntry struct {
	Name  string
	Count int
}

// TechStack counts the summarized files of root by language, plus the
// marker files seen among every folder's children, pruned ones included.
// Entries are sorted by count, then name.
func TechStack(root index.Node) ([]StackEntry, error) {
	counts := make(map[string]int)
	err := index.Walk(root, index.Funcs{
		File: func(n *index.FileNode) error {
			if lang, ok := Language(n.Path); ok {
				counts[lang]++
			}
			return nil
		},
		Folder: func(n *index.FolderNode) error {
			for _, c := range n.Children {
				if tech, ok := markerFiles[c.Name]; ok {
					counts[tech]++
				}
			}
			return nil
		},
	})
	if err != nil {
		return nil, err
	}

	out := make([]StackEntry, 0, len(counts))
	for name, n := range counts {
		out = append(out, StackEntry{Name: name, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}
