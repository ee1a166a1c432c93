package docstore

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"testing"
	"time"

	embeddedpostgres "github.com/fergusstrange/embedded-postgres"
	_ "github.com/lib/pq"
)

const itDSN = "host=localhost port=54329 user=postgres password=postgres dbname=postgres sslmode=disable"

// Downloads a PostgreSQL binary on first run, so it is opt-in.
func TestPostgresStoreRoundTrip(t *testing.T) {
	if os.Getenv("DOCSTORE_PG_IT") != "1" {
		t.Skip("set DOCSTORE_PG_IT=1 to run the embedded PostgreSQL test")
	}
	pg := embeddedpostgres.NewDatabase(embeddedpostgres.DefaultConfig().Port(54329))
	if err := pg.Start(); err != nil {
		t.Fatalf("start postgres: %v", err)
	}
	defer pg.Stop()

	db, err := sql.Open("postgres", itDSN)
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	ctx := context.Background()
	s := NewPostgresStore(db, itDSN, 10*time.Millisecond, time.Second)
	if err := s.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	c := newCapture()
	reg, err := s.Listen(ctx, Collection("products").Where("ownerId", "u1"), c.fn)
	if err != nil {
		t.Fatal(err)
	}
	defer reg.Remove()
	if d := c.next(t); d.err != nil || len(d.docs) != 0 {
		t.Fatalf("initial snapshot: %+v", d)
	}

	id, err := s.Add(ctx, "products", Document{"name": "Widget", "price": 9.99, "stock": 3, "ownerId": "u1"})
	if err != nil {
		t.Fatal(err)
	}
	d := c.next(t)
	if len(d.docs) != 1 || d.docs[0].ID != id || d.docs[0].Data["name"] != "Widget" {
		t.Fatalf("after add: %+v", d)
	}

	if err := s.Update(ctx, "products", id, Document{"stock": 4}); err != nil {
		t.Fatal(err)
	}
	c.next(t)
	if err := s.Update(ctx, "products", "00000000-0000-0000-0000-000000000000", Document{}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	for i := 0; i < 2; i++ {
		if err := s.Delete(ctx, "products", id); err != nil {
			t.Fatalf("delete #%d: %v", i+1, err)
		}
	}
	if d := c.next(t); len(d.docs) != 0 {
		t.Fatalf("after delete: %+v", d)
	}
}
