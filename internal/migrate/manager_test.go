package migrate

import (
	"context"
	"errors"
	"strings"
	"testing"
	"testing/fstest"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"bazaar.dev/migrations"
)

func testFS() fstest.MapFS {
	return fstest.MapFS{
		"sql/0001_a.up.sql":      {Data: []byte("create table a (id int);")},
		"sql/0001_a.down.sql":    {Data: []byte("drop table a;")},
		"sql/0002_b.up.sql":      {Data: []byte("create table b (note text default 'x;y'); create index on b (note);")},
		"sql/0002_b.down.sql":    {Data: []byte("drop table b;")},
		"seeds/0001_rows.sql":    {Data: []byte("-- seed; rows\ninsert into a values (1);")},
		"seeds/README.md":        {Data: []byte("not sql")},
		"sql/nested/ignored.sql": {Data: []byte("select 1;")},
	}
}

func newMock(t *testing.T) (*Manager, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() {
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("unmet expectations: %v", err)
		}
		db.Close()
	})
	fixed := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	return NewManager(db, testFS(), "sql", "seeds", WithClock(func() time.Time { return fixed })), mock
}

func expectTables(mock sqlmock.Sqlmock) {
	mock.ExpectExec("create table if not exists schema_migrations").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("create table if not exists schema_seeds").WillReturnResult(sqlmock.NewResult(0, 0))
}

func TestUpAppliesPendingInOrder(t *testing.T) {
	m, mock := newMock(t)
	expectTables(mock)
	mock.ExpectQuery("select name from schema_migrations").
		WillReturnRows(sqlmock.NewRows([]string{"name"}).AddRow("0001_a.up.sql"))
	mock.ExpectBegin()
	mock.ExpectExec("create table b").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("create index on b").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()
	mock.ExpectExec("insert into schema_migrations").WithArgs("0002_b.up.sql", sqlmock.AnyArg()).WillReturnResult(sqlmock.NewResult(1, 1))

	applied, err := m.Up(context.Background())
	if err != nil {
		t.Fatalf("Up: %v", err)
	}
	if len(applied) != 1 || applied[0] != "0002_b.up.sql" {
		t.Fatalf("unexpected applied list: %v", applied)
	}
}

func TestUpRollsBackFailedMigration(t *testing.T) {
	m, mock := newMock(t)
	expectTables(mock)
	mock.ExpectQuery("select name from schema_migrations").WillReturnRows(sqlmock.NewRows([]string{"name"}))
	mock.ExpectBegin()
	mock.ExpectExec("create table a").WillReturnError(errors.New("boom"))
	mock.ExpectRollback()

	if _, err := m.Up(context.Background()); err == nil || !strings.Contains(err.Error(), "0001_a.up.sql") {
		t.Fatalf("expected error naming the migration, got %v", err)
	}
}

func TestDownRollsBackLatest(t *testing.T) {
	m, mock := newMock(t)
	expectTables(mock)
	mock.ExpectQuery("select name from schema_migrations").
		WillReturnRows(sqlmock.NewRows([]string{"name"}).AddRow("0001_a.up.sql").AddRow("0002_b.up.sql"))
	mock.ExpectBegin()
	mock.ExpectExec("drop table b").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()
	mock.ExpectExec("delete from schema_migrations where name = \\$1").WithArgs("0002_b.up.sql").WillReturnResult(sqlmock.NewResult(0, 1))

	name, err := m.Down(context.Background())
	if err != nil {
		t.Fatalf("Down: %v", err)
	}
	if name != "0002_b.up.sql" {
		t.Fatalf("unexpected rollback %q", name)
	}
}

func TestDownWithNothingApplied(t *testing.T) {
	m, mock := newMock(t)
	expectTables(mock)
	mock.ExpectQuery("select name from schema_migrations").WillReturnRows(sqlmock.NewRows([]string{"name"}))
	if _, err := m.Down(context.Background()); !errors.Is(err, ErrNothingApplied) {
		t.Fatalf("expected ErrNothingApplied, got %v", err)
	}
}

func TestSeedSkipsCommentsAndNonSQL(t *testing.T) {
	m, mock := newMock(t)
	expectTables(mock)
	mock.ExpectQuery("select name from schema_seeds").WillReturnRows(sqlmock.NewRows([]string{"name"}))
	mock.ExpectBegin()
	mock.ExpectExec("insert into a values").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()
	mock.ExpectExec("insert into schema_seeds").WithArgs("0001_rows.sql", sqlmock.AnyArg()).WillReturnResult(sqlmock.NewResult(1, 1))

	applied, err := m.Seed(context.Background())
	if err != nil {
		t.Fatalf("Seed: %v", err)
	}
	if len(applied) != 1 {
		t.Fatalf("unexpected seeds: %v", applied)
	}
}

func TestSplitStatements(t *testing.T) {
	got := splitStatements("-- header; note\ncreate table t (v text default 'a;b');\ninsert into t values ('c');")
	if len(got) != 2 {
		t.Fatalf("expected 2 statements, got %d: %q", len(got), got)
	}
	if !strings.Contains(got[0], "'a;b'") || strings.Contains(got[0], "header") {
		t.Fatalf("unexpected first statement %q", got[0])
	}
}

func TestEmbeddedMigrationsArePaired(t *testing.T) {
	m := NewManager(nil, migrations.FS, migrations.MigrationsDir, migrations.SeedsDir)
	ups, err := m.collectSQL(migrations.MigrationsDir, ".up.sql")
	if err != nil {
		t.Fatalf("collectSQL: %v", err)
	}
	if len(ups) == 0 {
		t.Fatalf("no embedded migrations")
	}
	downs, err := m.collectSQL(migrations.MigrationsDir, ".down.sql")
	if err != nil {
		t.Fatalf("collectSQL: %v", err)
	}
	if len(downs) != len(ups) {
		t.Fatalf("every up migration needs a down: %d up, %d down", len(ups), len(downs))
	}
	seeds, err := m.collectSQL(migrations.SeedsDir, ".sql")
	if err != nil || len(seeds) == 0 {
		t.Fatalf("expected embedded seeds, got %v, %v", seeds, err)
	}
}
