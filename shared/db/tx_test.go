package db

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	_ "modernc.org/sqlite"
)

var errAbort = errors.New("abort")

func openMoviesDB(t *testing.T) *sql.DB {
	t.Helper()
	sqlDB, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	// Each connection to :memory: is a separate database.
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	if _, err := sqlDB.Exec(`CREATE TABLE movies (id TEXT PRIMARY KEY, name TEXT NOT NULL)`); err != nil {
		t.Fatalf("Failed to create movies table: %v", err)
	}
	return sqlDB
}

func insertMovie(ctx context.Context, sqlDB *sql.DB, id, name string) error {
	_, err := GetExecutor(ctx, sqlDB).ExecContext(ctx, "INSERT INTO movies (id, name) VALUES (?, ?)", id, name)
	return err
}

func movieNames(t *testing.T, sqlDB *sql.DB) []string {
	t.Helper()
	rows, err := sqlDB.Query("SELECT name FROM movies ORDER BY id")
	if err != nil {
		t.Fatalf("Failed to list movies: %v", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			t.Fatalf("Failed to scan movie: %v", err)
		}
		names = append(names, name)
	}
	return names
}

func TestGetExecutor(t *testing.T) {
	sqlDB := openMoviesDB(t)

	if got := GetExecutor(context.Background(), sqlDB); got != Executor(sqlDB) {
		t.Errorf("GetExecutor() without a transaction = %T, want the *sql.DB", got)
	}

	tx, err := sqlDB.Begin()
	if err != nil {
		t.Fatalf("Failed to begin transaction: %v", err)
	}
	defer tx.Rollback()

	ctx := WithTx(context.Background(), tx)
	if got, ok := GetTx(ctx); !ok || got != tx {
		t.Errorf("GetTx() = %v, %v, want the attached transaction", got, ok)
	}
	if got := GetExecutor(ctx, sqlDB); got != Executor(tx) {
		t.Errorf("GetExecutor() with a transaction = %T, want the *sql.Tx", got)
	}
}

func TestRunInTransaction(t *testing.T) {
	tests := []struct {
		name     string
		fn       func(t *testing.T, ctx context.Context, sqlDB *sql.DB) error
		wantFail bool
		wantErr  error
		want     []string
	}{
		{
			name: "commits on success",
			fn: func(t *testing.T, ctx context.Context, sqlDB *sql.DB) error {
				if err := insertMovie(ctx, sqlDB, "1", "Alien"); err != nil {
					return err
				}
				return insertMovie(ctx, sqlDB, "2", "Aliens")
			},
			want: []string{"Alien", "Aliens"},
		},
		{
			name: "rolls back every write on error",
			fn: func(t *testing.T, ctx context.Context, sqlDB *sql.DB) error {
				if err := insertMovie(ctx, sqlDB, "1", "Alien"); err != nil {
					return err
				}
				return errAbort
			},
			wantFail: true,
			wantErr:  errAbort,
		},
		{
			name: "rolls back when a statement fails",
			fn: func(t *testing.T, ctx context.Context, sqlDB *sql.DB) error {
				if err := insertMovie(ctx, sqlDB, "1", "Alien"); err != nil {
					return err
				}
				return insertMovie(ctx, sqlDB, "1", "Duplicate")
			},
			wantFail: true,
		},
		{
			name: "nested call joins the outer transaction",
			fn: func(t *testing.T, ctx context.Context, sqlDB *sql.DB) error {
				outer, _ := GetTx(ctx)
				return RunInTransaction(ctx, sqlDB, func(inner context.Context) error {
					if tx, _ := GetTx(inner); tx != outer {
						t.Error("nested call started a second transaction")
					}
					return insertMovie(inner, sqlDB, "1", "Alien")
				})
			},
			want: []string{"Alien"},
		},
		{
			name: "outer error discards nested writes",
			fn: func(t *testing.T, ctx context.Context, sqlDB *sql.DB) error {
				err := RunInTransaction(ctx, sqlDB, func(inner context.Context) error {
					return insertMovie(inner, sqlDB, "1", "Alien")
				})
				if err != nil {
					return err
				}
				return errAbort
			},
			wantFail: true,
			wantErr:  errAbort,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sqlDB := openMoviesDB(t)

			err := RunInTransaction(context.Background(), sqlDB, func(ctx context.Context) error {
				return tt.fn(t, ctx, sqlDB)
			})

			switch {
			case tt.wantFail && err == nil:
				t.Error("RunInTransaction() expected error")
			case tt.wantErr != nil && !errors.Is(err, tt.wantErr):
				t.Errorf("RunInTransaction() error = %v, want %v", err, tt.wantErr)
			case !tt.wantFail && err != nil:
				t.Errorf("RunInTransaction() error = %v", err)
			}

			got := movieNames(t, sqlDB)
			if len(got) != len(tt.want) {
				t.Fatalf("movies = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("movies[%d] = %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}
