package docstore

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/georgemunganga/product-manager/internal/obs"
)

// NotifyChannel is the LISTEN/NOTIFY channel fed by the documents trigger.
const NotifyChannel = "docstore_changes"

const schema = `
CREATE TABLE IF NOT EXISTS documents (
	collection TEXT        NOT NULL,
	id         UUID        NOT NULL,
	data       JSONB       NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	PRIMARY KEY (collection, id)
);

CREATE OR REPLACE FUNCTION docstore_notify() RETURNS trigger AS $$
BEGIN
	IF TG_OP = 'DELETE' THEN
		PERFORM pg_notify('docstore_changes', OLD.collection);
	ELSE
		PERFORM pg_notify('docstore_changes', NEW.collection);
	END IF;
	RETURN NULL;
END;
$$ LANGUAGE plpgsql;

DROP TRIGGER IF EXISTS documents_notify ON documents;
CREATE TRIGGER documents_notify AFTER INSERT OR UPDATE OR DELETE ON documents
	FOR EACH ROW EXECUTE FUNCTION docstore_notify();
`

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// PostgresStore keeps documents as JSONB rows and pushes result sets to
// listeners through LISTEN/NOTIFY.
type PostgresStore struct {
	db           *sql.DB
	dsn          string
	minReconnect time.Duration
	maxReconnect time.Duration
}

// NewPostgresStore wraps db. dsn is used to open a dedicated notification
// connection per listener.
func NewPostgresStore(db *sql.DB, dsn string, minReconnect, maxReconnect time.Duration) *PostgresStore {
	return &PostgresStore{db: db, dsn: dsn, minReconnect: minReconnect, maxReconnect: maxReconnect}
}

// Migrate creates the documents table and its notify trigger.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return classify(err)
	}
	return nil
}

func (s *PostgresStore) Add(ctx context.Context, collection string, data Document) (string, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return "", errors.Wrap(err, "encode document")
	}
	id := uuid.New()
	_, err = psql.Insert("documents").
		Columns("collection", "id", "data").
		Values(collection, id, string(raw)).
		RunWith(s.db).
		ExecContext(ctx)
	if err != nil {
		return "", classify(err)
	}
	return id.String(), nil
}

func (s *PostgresStore) Update(ctx context.Context, collection, id string, data Document) error {
	uid, err := uuid.Parse(id)
	if err != nil {
		return ErrNotFound
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return errors.Wrap(err, "encode document")
	}
	res, err := psql.Update("documents").
		Set("data", sq.Expr("data || ?::jsonb", string(raw))).
		Set("updated_at", sq.Expr("NOW()")).
		Where(sq.Eq{"collection": collection, "id": uid}).
		RunWith(s.db).
		ExecContext(ctx)
	if err != nil {
		return classify(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return classify(err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) Delete(ctx context.Context, collection, id string) error {
	uid, err := uuid.Parse(id)
	if err != nil {
		return nil
	}
	_, err = psql.Delete("documents").
		Where(sq.Eq{"collection": collection, "id": uid}).
		RunWith(s.db).
		ExecContext(ctx)
	return classify(err)
}

// Listen opens a notification connection, delivers the current result set
// and re-queries on every change to the collection. A lost connection is
// reported to fn as a terminal error; the listener does not resume.
func (s *PostgresStore) Listen(ctx context.Context, q Query, fn Listener) (Registration, error) {
	lctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	reg := &pgRegistration{cancel: cancel}

	lost := make(chan error, 1)
	listener := pq.NewListener(s.dsn, s.minReconnect, s.maxReconnect, func(ev pq.ListenerEventType, err error) {
		switch ev {
		case pq.ListenerEventDisconnected, pq.ListenerEventConnectionAttemptFailed:
			if err == nil {
				err = ErrListenerClosed
			}
			select {
			case lost <- Unavailable(err):
			default:
			}
		}
	})
	if err := listener.Listen(NotifyChannel); err != nil {
		cancel()
		_ = listener.Close()
		return nil, Unavailable(err)
	}

	go func() {
		defer listener.Close()
		defer cancel()
		deliver := func() bool {
			docs, err := s.query(lctx, q)
			if err != nil {
				if lctx.Err() == nil {
					fn(nil, err)
				}
				return false
			}
			if lctx.Err() != nil {
				return false
			}
			fn(docs, nil)
			return true
		}
		if !deliver() {
			return
		}
		for {
			select {
			case <-lctx.Done():
				return
			case err := <-lost:
				obs.Logger.Warn("docstore_listener_lost", "collection", q.Collection, "error", err)
				fn(nil, err)
				return
			case n := <-listener.Notify:
				// n is nil after a reconnect; the result set may have changed meanwhile.
				if n != nil && n.Extra != q.Collection {
					continue
				}
				if !deliver() {
					return
				}
			}
		}
	}()
	return reg, nil
}

func (s *PostgresStore) query(ctx context.Context, q Query) ([]DocumentSnapshot, error) {
	b := psql.Select("id", "data").
		From("documents").
		Where(sq.Eq{"collection": q.Collection}).
		OrderBy("created_at", "id")
	for _, f := range q.Filters {
		b = b.Where(sq.Expr("data->>? = ?", f.Field, fmt.Sprint(f.Value)))
	}
	rows, err := b.RunWith(s.db).QueryContext(ctx)
	if err != nil {
		return nil, classify(err)
	}
	defer rows.Close()

	docs := []DocumentSnapshot{}
	for rows.Next() {
		var id string
		var raw []byte
		if err := rows.Scan(&id, &raw); err != nil {
			return nil, classify(err)
		}
		d := Document{}
		dec := json.NewDecoder(bytes.NewReader(raw))
		dec.UseNumber()
		if err := dec.Decode(&d); err != nil {
			return nil, errors.Wrapf(err, "decode document %s", id)
		}
		docs = append(docs, DocumentSnapshot{ID: id, Data: d})
	}
	if err := rows.Err(); err != nil {
		return nil, classify(err)
	}
	return docs, nil
}

type pgRegistration struct {
	cancel context.CancelFunc
	once   sync.Once
}

func (r *pgRegistration) Remove() { r.once.Do(r.cancel) }

// classify keeps server-side errors as they are and marks everything else
// (dial failures, dropped connections, timeouts) as Unavailable.
func classify(err error) error {
	if err == nil {
		return nil
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return errors.Wrap(err, "docstore")
	}
	return Unavailable(err)
}
