package archive

import (
	"context"
	"database/sql"
	"strings"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"github.com/FocuswithJustin/Linegra/core/errors"
)

// Tree is one family tree and its entity counts.
type Tree struct {
	ID                string `json:"id"`
	Name              string `json:"name"`
	Description       string `json:"description"`
	CreatedAt         string `json:"createdAt"`
	UpdatedAt         string `json:"updatedAt"`
	PersonCount       int    `json:"personCount"`
	RelationshipCount int    `json:"relationshipCount"`
}

// tables lists every tree-scoped table, children first.
var tables = []string{
	"citations",
	"sources",
	"notes",
	"person_events",
	"relationships",
	"persons",
	"audit_logs",
	"gedcom_imports",
}

func (s *Store) treeSelect() squirrel.SelectBuilder {
	return s.sq.Select(
		"t.id", "t.name", "t.description", "t.created_at", "t.updated_at",
		"(SELECT COUNT(*) FROM persons p WHERE p.tree_id = t.id)",
		"(SELECT COUNT(*) FROM relationships r WHERE r.tree_id = t.id)",
	).From("trees t")
}

func scanTree(sc interface{ Scan(...any) error }) (Tree, error) {
	var t Tree
	err := sc.Scan(&t.ID, &t.Name, &t.Description, &t.CreatedAt, &t.UpdatedAt, &t.PersonCount, &t.RelationshipCount)
	return t, err
}

// CreateTree adds an empty tree.
func (s *Store) CreateTree(ctx context.Context, name, description string) (Tree, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Tree{}, errors.NewValidation("name", "tree name is required")
	}
	now := s.timestamp()
	t := Tree{
		ID:          uuid.NewString(),
		Name:        name,
		Description: description,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	insert := s.sq.Insert("trees").
		Columns("id", "name", "description", "created_at", "updated_at").
		Values(t.ID, t.Name, t.Description, t.CreatedAt, t.UpdatedAt)
	if err := exec(ctx, s.db, insert, "insert", "trees"); err != nil {
		return Tree{}, err
	}
	return t, nil
}

// GetTree returns one tree with its counts.
func (s *Store) GetTree(ctx context.Context, id string) (Tree, error) {
	return s.getTree(ctx, s.db, id)
}

func (s *Store) getTree(ctx context.Context, q execer, id string) (Tree, error) {
	text, args, err := s.treeSelect().Where(squirrel.Eq{"t.id": id}).ToSql()
	if err != nil {
		return Tree{}, errors.NewStore("build select", "trees", err)
	}
	t, err := scanTree(q.QueryRowContext(ctx, text, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return Tree{}, errors.NewNotFound("tree", id)
	}
	if err != nil {
		return Tree{}, errors.NewStore("select", "trees", err)
	}
	return t, nil
}

// ListTrees returns every tree, newest first.
func (s *Store) ListTrees(ctx context.Context) ([]Tree, error) {
	rows, err := query(ctx, s.db, s.treeSelect().OrderBy("t.created_at DESC", "t.name"), "trees")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	trees := []Tree{}
	for rows.Next() {
		t, err := scanTree(rows)
		if err != nil {
			return nil, errors.NewStore("scan", "trees", err)
		}
		trees = append(trees, t)
	}
	return trees, errors.NewStore("select", "trees", rows.Err())
}

// DeleteTree removes a tree and everything imported into it.
func (s *Store) DeleteTree(ctx context.Context, id string) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := s.getTree(ctx, tx, id); err != nil {
			return err
		}
		for _, table := range tables {
			if err := exec(ctx, tx, s.sq.Delete(table).Where(squirrel.Eq{"tree_id": id}), "delete", table); err != nil {
				return err
			}
		}
		return exec(ctx, tx, s.sq.Delete("trees").Where(squirrel.Eq{"id": id}), "delete", "trees")
	})
}

func (s *Store) touchTree(ctx context.Context, q execer, id string) error {
	update := s.sq.Update("trees").Set("updated_at", s.timestamp()).Where(squirrel.Eq{"id": id})
	return exec(ctx, q, update, "update", "trees")
}
