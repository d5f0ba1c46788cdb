package testutil

import (
	"context"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/johndosdos/chatroom/internal/store"
	"github.com/joho/godotenv"
)

func ProjectRoot() string {
	_, file, _, _ := runtime.Caller(0)
	root := filepath.Join(filepath.Dir(file), "../../")
	return root
}

// DbInit connects to TEST_DB_URL and migrates a clean schema. The test is
// skipped when no database is configured. Everything is rolled back when
// the test finishes.
func DbInit(t testing.TB) *pgxpool.Pool {
	t.Helper()

	root := ProjectRoot()
	if err := godotenv.Load(filepath.Join(root, ".env")); err != nil {
		log.Printf("failed to load .env file: %+v", err)
	}

	testURL := os.Getenv("TEST_DB_URL")
	if testURL == "" {
		t.Skip("TEST_DB_URL environment variable is not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	dbPool, err := pgxpool.New(ctx, testURL)
	if err != nil {
		t.Fatalf("could not connect to the postgresql database: %v", err)
	}
	if err := dbPool.Ping(ctx); err != nil {
		dbPool.Close()
		t.Skipf("postgresql database is unreachable: %v", err)
	}

	if err := store.Reset(dbPool); err != nil {
		dbPool.Close()
		t.Fatalf("store.Reset() error = %+v", err)
	}
	if err := store.Migrate(dbPool); err != nil {
		dbPool.Close()
		t.Fatalf("store.Migrate() error = %+v", err)
	}

	t.Cleanup(func() {
		if err := store.Reset(dbPool); err != nil {
			t.Errorf("store.Reset() error = %+v", err)
		}
		dbPool.Close()
	})

	return dbPool
}
