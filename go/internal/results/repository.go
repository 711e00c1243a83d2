package results

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mcdev12/petitbac/go/internal/game"
	"github.com/mcdev12/petitbac/go/internal/sqlutil"
)

const schema = `
CREATE TABLE IF NOT EXISTS game_results (
	id         UUID PRIMARY KEY,
	slug       TEXT NOT NULL,
	ended_at   TIMESTAMPTZ NOT NULL,
	turns      INTEGER NOT NULL,
	categories TEXT[] NOT NULL
);

CREATE INDEX IF NOT EXISTS game_results_slug_ended_at_idx ON game_results (slug, ended_at DESC);

CREATE TABLE IF NOT EXISTS game_scores (
	game_id     UUID NOT NULL REFERENCES game_results (id) ON DELETE CASCADE,
	player_uuid UUID NOT NULL,
	pseudonym   TEXT NOT NULL,
	score       INTEGER NOT NULL,
	rank        INTEGER NOT NULL,
	PRIMARY KEY (game_id, player_uuid)
);
`

type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(ctx context.Context, connString string) (*Repository, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &Repository{pool: pool}, nil
}

// EnsureSchema creates the archive tables when missing.
func (r *Repository) EnsureSchema(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Save archives a finished game and returns its record ID.
func (r *Repository) Save(ctx context.Context, result game.Result) (uuid.UUID, error) {
	id := uuid.New()
	categories := result.Categories
	if categories == nil {
		categories = []string{}
	}

	err := sqlutil.Run(ctx, r.pool, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx,
			`INSERT INTO game_results (id, slug, ended_at, turns, categories) VALUES ($1, $2, $3, $4, $5)`,
			id.String(), result.Slug, result.EndedAt, result.Turns, categories,
		)
		if err != nil {
			return fmt.Errorf("insert game result: %w", err)
		}

		batch := &pgx.Batch{}
		for _, entry := range result.Scores {
			batch.Queue(
				`INSERT INTO game_scores (game_id, player_uuid, pseudonym, score, rank) VALUES ($1, $2, $3, $4, $5)`,
				id.String(), entry.UUID.String(), result.Pseudonyms[entry.UUID], entry.Score, entry.Rank,
			)
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("insert game scores: %w", err)
		}
		return nil
	})
	if err != nil {
		return uuid.Nil, err
	}
	return id, nil
}

// Recent returns the last archived games of slug, most recent first.
func (r *Repository) Recent(ctx context.Context, slug string, limit int) ([]GameRecord, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id::text, slug, ended_at, turns, categories
		   FROM game_results
		  WHERE slug = $1
		  ORDER BY ended_at DESC
		  LIMIT $2`,
		slug, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query game results: %w", err)
	}

	records, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (GameRecord, error) {
		var (
			record GameRecord
			id     string
		)
		if err := row.Scan(&id, &record.Slug, &record.EndedAt, &record.Turns, &record.Categories); err != nil {
			return record, err
		}
		parsed, err := uuid.Parse(id)
		if err != nil {
			return record, fmt.Errorf("parse game id: %w", err)
		}
		record.ID = parsed
		record.Scores = []ScoreRecord{}
		return record, nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan game results: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%s: %w", slug, ErrResultsNotFound)
	}

	ids := make([]string, 0, len(records))
	index := make(map[uuid.UUID]int, len(records))
	for i, record := range records {
		ids = append(ids, record.ID.String())
		index[record.ID] = i
	}

	scoreRows, err := r.pool.Query(ctx,
		`SELECT game_id::text, player_uuid::text, pseudonym, score, rank
		   FROM game_scores
		  WHERE game_id = ANY($1::uuid[])
		  ORDER BY rank, pseudonym`,
		ids,
	)
	if err != nil {
		return nil, fmt.Errorf("query game scores: %w", err)
	}
	defer scoreRows.Close()

	for scoreRows.Next() {
		var (
			gameID, playerID string
			score            ScoreRecord
		)
		if err := scoreRows.Scan(&gameID, &playerID, &score.Pseudonym, &score.Score, &score.Rank); err != nil {
			return nil, fmt.Errorf("scan game score: %w", err)
		}
		if score.PlayerUUID, err = uuid.Parse(playerID); err != nil {
			return nil, fmt.Errorf("parse player id: %w", err)
		}
		owner, err := uuid.Parse(gameID)
		if err != nil {
			return nil, fmt.Errorf("parse game id: %w", err)
		}
		if i, ok := index[owner]; ok {
			records[i].Scores = append(records[i].Scores, score)
		}
	}
	if err := scoreRows.Err(); err != nil {
		return nil, fmt.Errorf("iterate game scores: %w", err)
	}

	return records, nil
}

func (r *Repository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

func (r *Repository) Close() {
	r.pool.Close()
}
