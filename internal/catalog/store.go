// Package catalog implements FeatherBox's metadata store and lake catalog
// (spec §4.1, component C1): one embedded github.com/mattn/go-sqlite3
// database holding both the reserved fbox_* metadata tables and every
// user-data table the executor materializes.
package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/alexisbeaulieu97/featherbox/internal/logger"
	"github.com/alexisbeaulieu97/featherbox/internal/resolver"
	streamyerrors "github.com/alexisbeaulieu97/featherbox/pkg/errors"
)

const timeLayout = time.RFC3339Nano

// nowFunc is indirected so tests can freeze time deterministically.
var nowFunc = time.Now

// Store is the single connection to the embedded catalog database. All
// metadata writes for one logical operation run inside one transaction
// (spec §4.1): a mid-transaction failure rolls back entirely.
type Store struct {
	db  *sql.DB
	log logger.Logger
}

// Open connects to (creating if necessary) the sqlite database at path and
// applies any pending embedded migrations before returning.
func Open(ctx context.Context, path string, log logger.Logger) (*Store, error) {
	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on")
	if err != nil {
		return nil, streamyerrors.NewStoreError("open", err)
	}
	db.SetMaxOpenConns(1) // sqlite: one writer; serializes all catalog access (spec §5).

	if log == nil {
		log = logger.NoOp()
	}
	s := &Store{db: db, log: log}
	if err := s.applyMigrations(ctx); err != nil {
		db.Close()
		return nil, streamyerrors.NewStoreError("migrate", err)
	}
	return s, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// LatestGraphID returns the most recently written graph's id, or ok=false
// if migrate has never run (spec §6 run's NoGraph precondition).
func (s *Store) LatestGraphID(ctx context.Context) (int64, bool, error) {
	var id int64
	err := s.db.QueryRowContext(ctx, `SELECT graph_id FROM fbox_graphs ORDER BY graph_id DESC LIMIT 1`).Scan(&id)
	if err == sql.ErrNoRows {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, streamyerrors.NewStoreError("latest_graph_id", err)
	}
	return id, true, nil
}

// WriteGraph persists a newly resolved graph plus each node's fingerprint,
// returning the new graph_id. Runs in a single transaction per spec §4.1.
func (s *Store) WriteGraph(ctx context.Context, g *resolver.Graph, fingerprints map[string]string) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, streamyerrors.NewStoreError("write_graph", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `INSERT INTO fbox_graphs (created_at) VALUES (?)`, nowFunc().UTC().Format(timeLayout))
	if err != nil {
		return 0, streamyerrors.NewStoreError("write_graph", err)
	}
	graphID, err := res.LastInsertId()
	if err != nil {
		return 0, streamyerrors.NewStoreError("write_graph", err)
	}

	for name, node := range g.Nodes {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO fbox_nodes (graph_id, name, kind, fingerprint) VALUES (?, ?, ?, ?)`,
			graphID, name, string(node.Kind), fingerprints[name]); err != nil {
			return 0, streamyerrors.NewStoreError("write_graph", err)
		}
	}
	for _, e := range g.Edges {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO fbox_edges (graph_id, from_name, to_name) VALUES (?, ?, ?)`,
			graphID, e.From, e.To); err != nil {
			return 0, streamyerrors.NewStoreError("write_graph", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, streamyerrors.NewStoreError("write_graph", err)
	}
	return graphID, nil
}

// LoadGraph reconstructs a previously written graph, along with a
// name → fingerprint map the differ needs for comparison against the
// newly resolved one.
func (s *Store) LoadGraph(ctx context.Context, graphID int64) (*resolver.Graph, map[string]string, error) {
	nodeRows, err := s.db.QueryContext(ctx, `SELECT name, kind, fingerprint FROM fbox_nodes WHERE graph_id = ?`, graphID)
	if err != nil {
		return nil, nil, streamyerrors.NewStoreError("load_graph", err)
	}
	defer nodeRows.Close()

	var nodes []resolver.Node
	fingerprints := make(map[string]string)
	for nodeRows.Next() {
		var name, kind, fp string
		if err := nodeRows.Scan(&name, &kind, &fp); err != nil {
			return nil, nil, streamyerrors.NewStoreError("load_graph", err)
		}
		nodes = append(nodes, resolver.Node{Name: name, Kind: resolver.NodeKind(kind)})
		fingerprints[name] = fp
	}
	if err := nodeRows.Err(); err != nil {
		return nil, nil, streamyerrors.NewStoreError("load_graph", err)
	}

	edgeRows, err := s.db.QueryContext(ctx, `SELECT from_name, to_name FROM fbox_edges WHERE graph_id = ?`, graphID)
	if err != nil {
		return nil, nil, streamyerrors.NewStoreError("load_graph", err)
	}
	defer edgeRows.Close()

	var edges []resolver.Edge
	for edgeRows.Next() {
		var from, to string
		if err := edgeRows.Scan(&from, &to); err != nil {
			return nil, nil, streamyerrors.NewStoreError("load_graph", err)
		}
		edges = append(edges, resolver.Edge{From: from, To: to})
	}
	if err := edgeRows.Err(); err != nil {
		return nil, nil, streamyerrors.NewStoreError("load_graph", err)
	}

	return resolver.FromStored(nodes, edges), fingerprints, nil
}

// CreateOrReplaceTable implements the executor's Engine.CreateOrReplaceTable
// by dropping then creating the table in one transaction, since sqlite has
// no native CREATE OR REPLACE TABLE.
func (s *Store) CreateOrReplaceTable(ctx context.Context, name, selectSQL string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return streamyerrors.NewCatalogWriteError(name, err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, fmt.Sprintf("DROP TABLE IF EXISTS %s", tableIdentifier(name))); err != nil {
		return streamyerrors.NewCatalogWriteError(name, err)
	}
	if _, err := tx.ExecContext(ctx, fmt.Sprintf("CREATE TABLE %s AS %s", tableIdentifier(name), selectSQL)); err != nil {
		return streamyerrors.NewSqlExecutionError(name, err)
	}
	if err := tx.Commit(); err != nil {
		return streamyerrors.NewCatalogWriteError(name, err)
	}
	return nil
}

// DropTable implements the executor's Engine.DropTable.
func (s *Store) DropTable(ctx context.Context, name string) error {
	if _, err := s.db.ExecContext(ctx, fmt.Sprintf("DROP TABLE IF EXISTS %s", tableIdentifier(name))); err != nil {
		return streamyerrors.NewCatalogWriteError(name, err)
	}
	return nil
}

// Query implements the executor's Engine.Query and the external `query`
// operation's read path (spec §6).
func (s *Store) Query(ctx context.Context, sqlText string) (*sql.Rows, error) {
	rows, err := s.db.QueryContext(ctx, sqlText)
	if err != nil {
		return nil, streamyerrors.NewSqlExecutionError("", err)
	}
	return rows, nil
}
