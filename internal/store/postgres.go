package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/zuccone/super-lunch-buddies/internal/apperr"
)

// Postgres keeps documents as JSONB rows in a single table. Merge writes and
// batches run inside one transaction; the full collection snapshot is read
// back after commit and fanned out through the stream hub, so subscribers on
// this instance observe their own writes in commit order.
type Postgres struct {
	db  *sqlx.DB
	hub *streamHub
}

// ConnectPostgres opens the database and runs migrations.
func ConnectPostgres(dsn string) (*Postgres, error) {
	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("connect db: %w", err)
	}

	if err := runMigrations(db); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Postgres{db: db, hub: newStreamHub()}, nil
}

func runMigrations(db *sqlx.DB) error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS documents (
            collection TEXT NOT NULL,
            doc_id TEXT NOT NULL,
            data JSONB NOT NULL,
            updated_at TIMESTAMPTZ DEFAULT NOW(),
            PRIMARY KEY(collection, doc_id)
        );`,
	}

	for _, m := range migrations {
		if _, err := db.Exec(m); err != nil {
			return err
		}
	}
	log.Println("database migrations applied")
	return nil
}

func (p *Postgres) ReadOnce(ctx context.Context, path string) (Document, error) {
	collection, id, err := splitPath(path)
	if err != nil {
		return Document{}, err
	}

	var raw []byte
	err = p.db.GetContext(ctx, &raw,
		`SELECT data FROM documents WHERE collection=$1 AND doc_id=$2`, collection, id)
	if errors.Is(err, sql.ErrNoRows) {
		return Document{}, ErrNotFound
	}
	if err != nil {
		return Document{}, err
	}

	fields := map[string]any{}
	if err := json.Unmarshal(raw, &fields); err != nil {
		return Document{}, fmt.Errorf("decode document %s: %w", path, err)
	}
	return Document{Path: path, Fields: fields}, nil
}

func (p *Postgres) ReadCollection(ctx context.Context, collection string) ([]Document, error) {
	return p.readCollectionWith(ctx, p.db, collection)
}

type queryer interface {
	QueryxContext(ctx context.Context, query string, args ...interface{}) (*sqlx.Rows, error)
}

func (p *Postgres) readCollectionWith(ctx context.Context, q queryer, collection string) ([]Document, error) {
	rows, err := q.QueryxContext(ctx,
		`SELECT doc_id, data FROM documents WHERE collection=$1 ORDER BY doc_id`, collection)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		var id string
		var raw []byte
		if err := rows.Scan(&id, &raw); err != nil {
			return nil, err
		}
		fields := map[string]any{}
		if err := json.Unmarshal(raw, &fields); err != nil {
			return nil, fmt.Errorf("decode document %s/%s: %w", collection, id, err)
		}
		docs = append(docs, Document{Path: collection + "/" + id, Fields: fields})
	}
	return docs, rows.Err()
}

func (p *Postgres) WriteMerge(ctx context.Context, path string, fields map[string]any) error {
	return p.commit(ctx, "merge", []Write{{Path: path, Fields: fields, Merge: true}})
}

func (p *Postgres) WriteReplace(ctx context.Context, path string, fields map[string]any) error {
	return p.commit(ctx, "replace", []Write{{Path: path, Fields: fields}})
}

func (p *Postgres) Delete(ctx context.Context, path string) error {
	return p.commit(ctx, "delete", []Write{{Path: path, Delete: true}})
}

// Batch commits every write in one transaction: all documents update or none
// do. This is what keeps the cross-group roster batch atomic under
// interleaving from other devices.
func (p *Postgres) Batch(ctx context.Context, writes []Write) error {
	return p.commit(ctx, "batch", writes)
}

func (p *Postgres) commit(ctx context.Context, op string, writes []Write) error {
	tx, err := p.db.BeginTxx(ctx, nil)
	if err != nil {
		return &apperr.StoreWriteError{Op: op, Err: err}
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	touched := map[string]bool{}
	for _, w := range writes {
		collection, id, perr := splitPath(w.Path)
		if perr != nil {
			err = perr
			return &apperr.StoreWriteError{Op: op, Err: perr}
		}
		touched[collection] = true

		if w.Delete {
			if _, err = tx.ExecContext(ctx,
				`DELETE FROM documents WHERE collection=$1 AND doc_id=$2`, collection, id); err != nil {
				return &apperr.StoreWriteError{Op: op, Err: err}
			}
			continue
		}

		next := w.Fields
		if w.Merge {
			var raw []byte
			gerr := tx.GetContext(ctx, &raw,
				`SELECT data FROM documents WHERE collection=$1 AND doc_id=$2 FOR UPDATE`, collection, id)
			if gerr != nil && !errors.Is(gerr, sql.ErrNoRows) {
				err = gerr
				return &apperr.StoreWriteError{Op: op, Err: gerr}
			}
			if gerr == nil {
				current := map[string]any{}
				if err = json.Unmarshal(raw, &current); err != nil {
					return &apperr.StoreWriteError{Op: op, Err: err}
				}
				next = mergeFields(current, w.Fields)
			}
		}

		var raw []byte
		if raw, err = json.Marshal(next); err != nil {
			return &apperr.StoreWriteError{Op: op, Err: err}
		}
		if _, err = tx.ExecContext(ctx,
			`INSERT INTO documents (collection, doc_id, data, updated_at) VALUES ($1, $2, $3, NOW())
             ON CONFLICT (collection, doc_id) DO UPDATE SET data=EXCLUDED.data, updated_at=NOW()`,
			collection, id, raw); err != nil {
			return &apperr.StoreWriteError{Op: op, Err: err}
		}
	}

	if err = tx.Commit(); err != nil {
		return &apperr.StoreWriteError{Op: op, Err: err}
	}

	for collection := range touched {
		docs, rerr := p.ReadCollection(ctx, collection)
		if rerr != nil {
			log.Printf("post-commit snapshot of %s failed: %v", collection, rerr)
			continue
		}
		p.hub.publish(collection, docs)
	}
	return nil
}

func (p *Postgres) Subscribe(path string, fn func([]Document), onDrop func(error)) func() {
	cancel := p.hub.subscribe(path, fn, onDrop)

	collection := path
	if c, _, err := splitPath(path); err == nil {
		collection = c
	}
	docs, err := p.ReadCollection(context.Background(), collection)
	if err != nil {
		log.Printf("initial snapshot of %s failed: %v", collection, err)
		return cancel
	}
	if payload, ok := payloadFor(path, collection, docs); ok {
		fn(payload)
	}
	return cancel
}

// Close closes the underlying database.
func (p *Postgres) Close() error {
	return p.db.Close()
}

var _ DocStore = (*Postgres)(nil)
