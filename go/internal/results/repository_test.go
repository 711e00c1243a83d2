package results

import (
	"context"
	"flag"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/mcdev12/petitbac/go/internal/game"
)

var repo *Repository

func TestMain(m *testing.M) {
	flag.Parse()
	if testing.Short() {
		os.Exit(m.Run())
	}

	ctx := context.Background()

	postgresContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("petitbac"),
		postgres.WithUsername("petitbac"),
		postgres.WithPassword("petitbac"),
		testcontainers.WithWaitStrategy(wait.ForLog("database system is ready to accept connections").WithOccurrence(2).WithStartupTimeout(30*time.Second)),
	)
	if err != nil {
		panic(err)
	}

	connString, err := postgresContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		panic(err)
	}

	repo, err = NewRepository(ctx, connString)
	if err != nil {
		panic(err)
	}
	if err := repo.EnsureSchema(ctx); err != nil {
		panic(err)
	}

	code := m.Run()

	repo.Close()
	_ = postgresContainer.Terminate(ctx)
	os.Exit(code)
}

func TestRepository(t *testing.T) {
	if repo == nil {
		t.Skip("postgres container not started in short mode")
	}
	ctx := context.Background()
	alice, bob := uuid.New(), uuid.New()
	endedAt := time.Date(2025, 3, 1, 21, 30, 0, 0, time.UTC)

	result := game.Result{
		Slug:       "friday",
		EndedAt:    endedAt,
		Turns:      4,
		Categories: []string{"Pays", "Ville"},
		Scores: []game.ScoreEntry{
			{UUID: bob, Score: 60, Rank: 1},
			{UUID: alice, Score: 45, Rank: 2},
		},
		Pseudonyms: map[uuid.UUID]string{alice: "Alice", bob: "Bob"},
	}

	t.Run("EnsureSchema is idempotent", func(t *testing.T) {
		assert.NoError(t, repo.EnsureSchema(ctx))
	})

	var first uuid.UUID
	t.Run("Save", func(t *testing.T) {
		id, err := repo.Save(ctx, result)
		require.NoError(t, err)
		assert.NotEqual(t, uuid.Nil, id)
		first = id
	})

	t.Run("Recent", func(t *testing.T) {
		later := result
		later.EndedAt = endedAt.Add(time.Hour)
		later.Scores = []game.ScoreEntry{{UUID: alice, Score: 10, Rank: 1}}
		second, err := repo.Save(ctx, later)
		require.NoError(t, err)

		records, err := repo.Recent(ctx, "friday", 10)
		require.NoError(t, err)
		require.Len(t, records, 2)

		assert.Equal(t, second, records[0].ID)
		assert.Equal(t, first, records[1].ID)
		assert.True(t, endedAt.Equal(records[1].EndedAt))
		assert.Equal(t, 4, records[1].Turns)
		assert.Equal(t, []string{"Pays", "Ville"}, records[1].Categories)
		assert.Equal(t, []ScoreRecord{
			{PlayerUUID: bob, Pseudonym: "Bob", Score: 60, Rank: 1},
			{PlayerUUID: alice, Pseudonym: "Alice", Score: 45, Rank: 2},
		}, records[1].Scores)

		limited, err := repo.Recent(ctx, "friday", 1)
		require.NoError(t, err)
		require.Len(t, limited, 1)
		assert.Equal(t, second, limited[0].ID)
	})

	t.Run("Recent_NotFound", func(t *testing.T) {
		_, err := repo.Recent(ctx, "nobody-played-here", 10)
		assert.ErrorIs(t, err, ErrResultsNotFound)
	})
}
