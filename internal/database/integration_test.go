//go:build integration

package database

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/itemstack/backend/migrations"
	"github.com/itemstack/backend/pkg/testutil"
)

// newDBFromContainer creates a database connection from a postgres container.
func newDBFromContainer(ctx context.Context, pg *testutil.PostgresContainer) (*DB, error) {
	cfg := DefaultConfig(pg.ConnStr)
	cfg.MaxConns = 5
	cfg.MinConns = 1
	return New(ctx, cfg)
}

// testDB holds the shared database container for tests.
var testDB struct {
	container *testutil.PostgresContainer
	db        *DB
}

func TestMain(m *testing.M) {
	if !testutil.IsDockerAvailable() {
		os.Exit(0)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	pg, err := testutil.NewPostgresContainer(ctx, testutil.DefaultPostgresConfig())
	if err != nil {
		panic("failed to start postgres container: " + err.Error())
	}
	testDB.container = pg

	db, err := newDBFromContainer(ctx, pg)
	if err != nil {
		pg.Terminate(ctx)
		panic("failed to create database connection: " + err.Error())
	}
	testDB.db = db

	migrator, err := NewMigratorFromFS(db, migrations.FS)
	if err != nil {
		db.Close()
		pg.Terminate(ctx)
		panic("failed to create migrator: " + err.Error())
	}
	if _, err := migrator.Up(ctx); err != nil {
		db.Close()
		pg.Terminate(ctx)
		panic("failed to run migrations: " + err.Error())
	}

	code := m.Run()

	db.Close()
	pg.Terminate(context.Background())

	os.Exit(code)
}

func TestMigrations(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	pg, err := testutil.NewPostgresContainer(ctx, testutil.DefaultPostgresConfig())
	require.NoError(t, err)
	defer pg.Terminate(ctx)

	db, err := newDBFromContainer(ctx, pg)
	require.NoError(t, err)
	defer db.Close()

	migrator, err := NewMigratorFromFS(db, migrations.FS)
	require.NoError(t, err)

	pending, err := migrator.Pending(ctx)
	require.NoError(t, err)
	assert.Len(t, pending, 2)

	count, err := migrator.Up(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	version, err := migrator.Version(ctx)
	require.NoError(t, err)
	assert.Equal(t, "20250601000002", version)

	statuses, err := migrator.Status(ctx)
	require.NoError(t, err)
	for _, s := range statuses {
		assert.True(t, s.Applied, "migration %s should be applied", s.Version)
	}

	require.NoError(t, migrator.Down(ctx))
	version, err = migrator.Version(ctx)
	require.NoError(t, err)
	assert.Equal(t, "20250601000001", version)

	count, err = migrator.Up(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestNew_CredentialOverrides(t *testing.T) {
	ctx := context.Background()
	pg := testDB.container

	cfg := DefaultConfig("postgres://wrong-user:wrong-pass@" + pg.Host + ":" + pg.Port + "/wrongdb?sslmode=disable")
	cfg.User = pg.Username
	cfg.Password = pg.Password
	cfg.Database = pg.Database
	cfg.MinConns = 0

	db, err := New(ctx, cfg)
	require.NoError(t, err)
	defer db.Close()

	assert.NoError(t, db.Health(ctx))
}

func TestItemRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewItemRepo(testDB.db)

	t.Run("CreateAndGet", func(t *testing.T) {
		item := &Item{Name: "widget", Description: "a small widget"}
		require.NoError(t, repo.Create(ctx, item))
		t.Cleanup(func() { repo.Delete(ctx, item.ID) })

		assert.NotZero(t, item.ID)
		assert.False(t, item.CreatedAt.IsZero())

		fetched, err := repo.Get(ctx, item.ID)
		require.NoError(t, err)
		assert.Equal(t, "widget", fetched.Name)
		assert.Equal(t, "a small widget", fetched.Description)
	})

	t.Run("Get_NotFound", func(t *testing.T) {
		_, err := repo.Get(ctx, 987654321)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("Update", func(t *testing.T) {
		item := &Item{Name: "before"}
		require.NoError(t, repo.Create(ctx, item))
		t.Cleanup(func() { repo.Delete(ctx, item.ID) })

		item.Name = "after"
		item.Description = "changed"
		require.NoError(t, repo.Update(ctx, item))

		fetched, err := repo.Get(ctx, item.ID)
		require.NoError(t, err)
		assert.Equal(t, "after", fetched.Name)
		assert.Equal(t, "changed", fetched.Description)
	})

	t.Run("Update_NotFound", func(t *testing.T) {
		err := repo.Update(ctx, &Item{ID: 987654321, Name: "ghost"})
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		item := &Item{Name: "doomed"}
		require.NoError(t, repo.Create(ctx, item))

		require.NoError(t, repo.Delete(ctx, item.ID))
		assert.ErrorIs(t, repo.Delete(ctx, item.ID), ErrNotFound)
	})

	t.Run("ListAndCount", func(t *testing.T) {
		before, err := repo.Count(ctx)
		require.NoError(t, err)

		for _, name := range []string{"a", "b", "c"} {
			item := &Item{Name: name}
			require.NoError(t, repo.Create(ctx, item))
			t.Cleanup(func() { repo.Delete(ctx, item.ID) })
		}

		after, err := repo.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, before+3, after)

		items, err := repo.List(ctx, Pagination{Limit: 2})
		require.NoError(t, err)
		assert.Len(t, items, 2)
		assert.Less(t, items[0].ID, items[1].ID)

		empty, err := repo.List(ctx, Pagination{Limit: 10, Offset: int(after) + 10})
		require.NoError(t, err)
		assert.NotNil(t, empty)
		assert.Empty(t, empty)
	})

	t.Run("WithTx_Rollback", func(t *testing.T) {
		var id int64
		err := testDB.db.WithTx(ctx, func(tx pgx.Tx) error {
			if err := tx.QueryRow(ctx, ItemInsert, "rolled-back", "").Scan(&id, new(time.Time), new(time.Time)); err != nil {
				return err
			}
			return assert.AnError
		})
		require.ErrorIs(t, err, assert.AnError)

		_, err = repo.Get(ctx, id)
		assert.ErrorIs(t, err, ErrNotFound)
	})
}
