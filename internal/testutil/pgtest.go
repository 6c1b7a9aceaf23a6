// README: Shared PostgreSQL fixture for DB-backed tests. Tests using it skip
// unless YOAKE_TEST_DSN is set; run them with -p 1 since every test truncates.
package testutil

import (
	"bufio"
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"yoake/internal/types"
)

func DB(t *testing.T) *pgxpool.Pool {
	t.Helper()

	dsn := os.Getenv("YOAKE_TEST_DSN")
	if dsn == "" {
		t.Skip("YOAKE_TEST_DSN not set; skipping DB-backed tests")
	}

	ctx := context.Background()
	db, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("connect db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := applyMigrations(ctx, db); err != nil {
		t.Fatalf("apply migrations: %v", err)
	}

	if _, err := db.Exec(ctx, `TRUNCATE TABLE order_state_events, order_items, orders, order_sequences,
		cash_registers, restaurant_tables, customers, products, settings`); err != nil {
		t.Fatalf("truncate tables: %v", err)
	}
	return db
}

func SeedProduct(t *testing.T, db *pgxpool.Pool, name, price string) types.ID {
	t.Helper()
	id := types.NewID()
	if _, err := db.Exec(context.Background(),
		`INSERT INTO products (id, name, price, category) VALUES ($1, $2, $3, 'test')`,
		string(id), name, decimal.RequireFromString(price),
	); err != nil {
		t.Fatalf("seed product: %v", err)
	}
	return id
}

func SeedTable(t *testing.T, db *pgxpool.Pool, number string) types.ID {
	t.Helper()
	id := types.NewID()
	if _, err := db.Exec(context.Background(),
		`INSERT INTO restaurant_tables (id, number, seats, status) VALUES ($1, $2, 4, 'Livre')`,
		string(id), number,
	); err != nil {
		t.Fatalf("seed table: %v", err)
	}
	return id
}

func SeedCustomer(t *testing.T, db *pgxpool.Pool, name, lat, lng string) types.ID {
	t.Helper()
	id := types.NewID()
	if _, err := db.Exec(context.Background(),
		`INSERT INTO customers (id, name, address, lat, lng) VALUES ($1, $2, 'Rua Teste, 1', $3, $4)`,
		string(id), name, lat, lng,
	); err != nil {
		t.Fatalf("seed customer: %v", err)
	}
	return id
}

// OpenRegister inserts an open register directly, bypassing the ledger service.
func OpenRegister(t *testing.T, db *pgxpool.Pool, openingBalance string) types.ID {
	t.Helper()
	id := types.NewID()
	if _, err := db.Exec(context.Background(),
		`INSERT INTO cash_registers (id, opening_balance, status, user_id) VALUES ($1, $2, 'open', 'test')`,
		string(id), decimal.RequireFromString(openingBalance),
	); err != nil {
		t.Fatalf("open register: %v", err)
	}
	return id
}

func applyMigrations(ctx context.Context, db *pgxpool.Pool) error {
	root, err := repoRoot()
	if err != nil {
		return err
	}
	files, err := filepath.Glob(filepath.Join(root, "migrations", "*.up.sql"))
	if err != nil {
		return err
	}
	sort.Strings(files)
	for _, path := range files {
		content, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		for _, stmt := range splitSQL(stripSQLComments(string(content))) {
			if _, err := db.Exec(ctx, stmt); err != nil {
				return err
			}
		}
	}
	return nil
}

func repoRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}
	for i := 0; i < 6; i++ {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", os.ErrNotExist
}

func stripSQLComments(input string) string {
	var b strings.Builder
	scanner := bufio.NewScanner(strings.NewReader(input))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "--") {
			continue
		}
		b.WriteString(scanner.Text())
		b.WriteString("\n")
	}
	return b.String()
}

func splitSQL(input string) []string {
	parts := strings.Split(input, ";")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		stmt := strings.TrimSpace(p)
		if stmt == "" {
			continue
		}
		out = append(out, stmt)
	}
	return out
}
