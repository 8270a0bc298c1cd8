package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cul-it/cular/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const transferStateSchema = `
CREATE TABLE IF NOT EXISTS transfer_state (
	job_id     text NOT NULL,
	platform   text NOT NULL,
	state      text NOT NULL,
	updated_at timestamptz NOT NULL DEFAULT now(),
	PRIMARY KEY (job_id, platform)
)`

// PostgresStore implements TransferStore on Postgres. Each write is a
// single statement, so it is atomic: a crash mid-call leaves either
// the old row or the new row, never an ambiguous one.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore connects and ensures the transfer_state table
// exists.
func NewPostgresStore(databaseURL string) (*PostgresStore, error) {
	ctx, cancel := opCtx()
	defer cancel()
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("cannot connect to transfer state db: %v", err)
	}
	if err = pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("cannot reach transfer state db: %v", err)
	}
	if _, err = pool.Exec(ctx, transferStateSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("cannot create transfer_state table: %v", err)
	}
	return &PostgresStore{pool: pool}, nil
}

func opCtx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 30*time.Second)
}

func (store *PostgresStore) Upsert(state *models.TransferState) error {
	ctx, cancel := opCtx()
	defer cancel()
	_, err := store.pool.Exec(ctx,
		`INSERT INTO transfer_state (job_id, platform, state)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (job_id, platform)
		 DO UPDATE SET state = $3, updated_at = now()`,
		state.JobId, state.Platform, state.State)
	return err
}

func (store *PostgresStore) Update(state *models.TransferState) error {
	ctx, cancel := opCtx()
	defer cancel()
	tag, err := store.pool.Exec(ctx,
		`UPDATE transfer_state SET state = $3, updated_at = now()
		 WHERE job_id = $1 AND platform = $2`,
		state.JobId, state.Platform, state.State)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrStateNotFound
	}
	return nil
}

func (store *PostgresStore) Get(jobId, platform string) (*models.TransferState, error) {
	ctx, cancel := opCtx()
	defer cancel()
	state := &models.TransferState{}
	err := store.pool.QueryRow(ctx,
		`SELECT job_id, platform, state FROM transfer_state
		 WHERE job_id = $1 AND platform = $2`,
		jobId, platform).Scan(&state.JobId, &state.Platform, &state.State)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrStateNotFound
		}
		return nil, err
	}
	return state, nil
}

func (store *PostgresStore) List(jobId string) ([]*models.TransferState, error) {
	ctx, cancel := opCtx()
	defer cancel()
	rows, err := store.pool.Query(ctx,
		`SELECT job_id, platform, state FROM transfer_state
		 WHERE job_id = $1 ORDER BY platform`, jobId)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	states := make([]*models.TransferState, 0)
	for rows.Next() {
		state := &models.TransferState{}
		if err = rows.Scan(&state.JobId, &state.Platform, &state.State); err != nil {
			return nil, err
		}
		states = append(states, state)
	}
	return states, rows.Err()
}

func (store *PostgresStore) Close() error {
	store.pool.Close()
	return nil
}
