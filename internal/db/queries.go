package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ishaan812/treeqa/internal/index"
)

// ErrNoSnapshot is returned when no snapshot matches a lookup.
var ErrNoSnapshot = errors.New("no snapshot found")

// Flatten lists the nodes of root in pre-order with their parent paths and
// depths. Pruned children are not stored.
func Flatten(root index.Node) ([]Node, error) {
	var out []Node
	var visit func(n index.Node, name, parent string, depth int) error
	visit = func(n index.Node, name, parent string, depth int) error {
		if depth > index.MaxDepth {
			return fmt.Errorf("%w at %s", index.ErrTooDeep, n.Info().Path)
		}
		b := n.Info()
		out = append(out, Node{
			Path:       b.Path,
			Name:       name,
			Kind:       index.KindOf(n),
			ParentPath: parent,
			Depth:      depth,
			Position:   len(out),
			Summary:    b.Summary,
			Embedding:  b.Embedding,
		})
		folder, ok := n.(*index.FolderNode)
		if !ok {
			return nil
		}
		for _, c := range folder.Children {
			if c.Node == nil {
				continue
			}
			if err := visit(c.Node, c.Name, b.Path, depth+1); err != nil {
				return err
			}
		}
		return nil
	}
	if root == nil {
		return nil, nil
	}
	if err := visit(root, filepath.Base(root.Info().Path), "", 0); err != nil {
		return nil, err
	}
	return out, nil
}

// SaveTree stores root as a new snapshot.
func SaveTree(ctx context.Context, db *sql.DB, rootPath, headHash string, root index.Node) (*Snapshot, error) {
	nodes, err := Flatten(root)
	if err != nil {
		return nil, err
	}

	snap := &Snapshot{
		ID:        uuid.New().String(),
		RootPath:  rootPath,
		HeadHash:  headHash,
		NodeCount: len(nodes),
		CreatedAt: time.Now(),
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO snapshots (id, root_path, head_hash, node_count, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, snap.ID, snap.RootPath, nullable(snap.HeadHash), snap.NodeCount, snap.CreatedAt); err != nil {
		return nil, fmt.Errorf("failed to insert snapshot: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO nodes (id, snapshot_id, path, name, kind, parent_path, depth, position, summary, embedding)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?::DOUBLE[])
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare node insert: %w", err)
	}
	defer stmt.Close()

	for _, n := range nodes {
		if _, err := stmt.ExecContext(ctx,
			uuid.New().String(), snap.ID, n.Path, n.Name, string(n.Kind), nullable(n.ParentPath),
			n.Depth, n.Position, nullable(n.Summary), embeddingLiteral(n.Embedding),
		); err != nil {
			return nil, fmt.Errorf("failed to insert node %s: %w", n.Path, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit snapshot: %w", err)
	}
	return snap, nil
}

// ListSnapshots returns snapshots newest first.
func ListSnapshots(ctx context.Context, db *sql.DB) ([]Snapshot, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, root_path, head_hash, node_count, created_at
		FROM snapshots
		ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list snapshots: %w", err)
	}
	defer rows.Close()

	var snaps []Snapshot
	for rows.Next() {
		s, err := scanSnapshot(rows)
		if err != nil {
			return nil, err
		}
		snaps = append(snaps, *s)
	}
	return snaps, rows.Err()
}

// LatestSnapshot returns the newest snapshot, restricted to rootPath when
// it is not empty.
func LatestSnapshot(ctx context.Context, db *sql.DB, rootPath string) (*Snapshot, error) {
	query := `SELECT id, root_path, head_hash, node_count, created_at FROM snapshots`
	var args []any
	if rootPath != "" {
		query += ` WHERE root_path = ?`
		args = append(args, rootPath)
	}
	query += ` ORDER BY created_at DESC LIMIT 1`

	s, err := scanSnapshot(db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoSnapshot
	}
	return s, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSnapshot(row scanner) (*Snapshot, error) {
	var s Snapshot
	var head sql.NullString
	if err := row.Scan(&s.ID, &s.RootPath, &head, &s.NodeCount, &s.CreatedAt); err != nil {
		return nil, err
	}
	s.HeadHash = head.String
	return &s, nil
}

// GetNodes returns the nodes of a snapshot in pre-order.
func GetNodes(ctx context.Context, db *sql.DB, snapshotID string) ([]Node, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, snapshot_id, path, name, kind, parent_path, depth, position, summary, embedding
		FROM nodes
		WHERE snapshot_id = ?
		ORDER BY position
	`, snapshotID)
	if err != nil {
		return nil, fmt.Errorf("failed to query nodes: %w", err)
	}
	defer rows.Close()

	var nodes []Node
	for rows.Next() {
		var n Node
		var kind string
		var parent, summary sql.NullString
		var emb any
		if err := rows.Scan(&n.ID, &n.SnapshotID, &n.Path, &n.Name, &kind, &parent, &n.Depth, &n.Position, &summary, &emb); err != nil {
			return nil, err
		}
		n.Kind = index.Kind(kind)
		n.ParentPath = parent.String
		n.Summary = summary.String
		if n.Embedding, err = scanEmbedding(emb); err != nil {
			return nil, fmt.Errorf("node %s: %w", n.Path, err)
		}
		nodes = append(nodes, n)
	}
	return nodes, rows.Err()
}

// LoadTree rebuilds the tree stored under snapshotID. Children that were
// pruned when the tree was pushed are absent.
func LoadTree(ctx context.Context, db *sql.DB, snapshotID string) (index.Node, error) {
	nodes, err := GetNodes(ctx, db, snapshotID)
	if err != nil {
		return nil, err
	}
	if len(nodes) == 0 {
		return nil, ErrNoSnapshot
	}

	type ref struct{ name, path string }
	built := make(map[string]index.Node, len(nodes))
	children := make(map[string][]ref)
	for _, n := range nodes {
		if n.ParentPath != "" {
			children[n.ParentPath] = append(children[n.ParentPath], ref{n.Name, n.Path})
		}
	}

	// Build deepest first so every folder sees finished children.
	for i := len(nodes) - 1; i >= 0; i-- {
		n := nodes[i]
		var node index.Node
		if n.Kind == index.KindFolder {
			refs := children[n.Path]
			kids := make([]index.Child, len(refs))
			for j, r := range refs {
				kids[j] = index.Child{Name: r.name, Node: built[r.path]}
			}
			node = index.NewFolder(n.Path, kids)
		} else {
			node = index.NewFile(n.Path)
		}
		node.Info().SetSummary(n.Summary)
		node.Info().SetEmbedding(n.Embedding)
		built[n.Path] = node
	}
	return built[nodes[0].Path], nil
}

// SemanticSearch ranks the embedded nodes of a snapshot by cosine similarity
// to query. Nodes whose embedding has a different length are skipped.
func SemanticSearch(ctx context.Context, db *sql.DB, snapshotID string, query []float64, kinds []index.Kind, limit int) ([]SearchResult, error) {
	lit := embeddingLiteral(query)
	if lit == nil {
		return nil, fmt.Errorf("query embedding is empty")
	}
	if len(kinds) == 0 || limit <= 0 {
		return nil, nil
	}

	placeholders := make([]string, len(kinds))
	args := []any{*lit, snapshotID, len(query)}
	for i, k := range kinds {
		placeholders[i] = "?"
		args = append(args, string(k))
	}
	args = append(args, limit)

	rows, err := db.QueryContext(ctx, `
		SELECT path, kind, summary,
			list_cosine_similarity(embedding, ?::DOUBLE[]) AS similarity
		FROM nodes
		WHERE snapshot_id = ?
			AND embedding IS NOT NULL
			AND summary IS NOT NULL
			AND len(embedding) = ?
			AND kind IN (`+strings.Join(placeholders, ", ")+`)
		ORDER BY similarity DESC, position
		LIMIT ?
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("semantic search failed: %w", err)
	}
	defer rows.Close()

	var results []SearchResult
	for rows.Next() {
		var r SearchResult
		var kind string
		var sim sql.NullFloat64
		if err := rows.Scan(&r.Path, &kind, &r.Summary, &sim); err != nil {
			return nil, err
		}
		r.Kind = index.Kind(kind)
		r.Similarity = sim.Float64
		results = append(results, r)
	}
	return results, rows.Err()
}
