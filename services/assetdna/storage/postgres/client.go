// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package postgres implements the storage.Store interface on PostgreSQL.
//
// # Description
//
// PostgreSQL is the authoritative backend. Uniqueness invariants
// (sibling names, URNs, snapshot timestamps per asset) are enforced twice:
// in the service layer and as database constraints, so concurrent writers
// cannot slip past the in-process checks.
//
// # Thread Safety
//
// Safe for concurrent use; pgxpool manages connection concurrency.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/AleutianAI/AssetDNA/services/assetdna/storage"
)

// querier abstracts pgxpool.Pool and pgx.Tx so every query method can run
// either directly or inside a transaction.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Store is the PostgreSQL-backed storage.Store.
type Store struct {
	pool   *pgxpool.Pool
	q      querier
	logger *slog.Logger
}

// Config holds connection settings.
type Config struct {
	// DSN is the PostgreSQL connection string.
	DSN string

	// MaxConns caps the pool size. Default: 10.
	MaxConns int32

	// Logger is used for connection lifecycle messages. Nil uses
	// slog.Default().
	Logger *slog.Logger
}

// New connects to PostgreSQL and ensures the schema exists.
//
// Inputs:
//
//	ctx - Startup context; bounds the initial connect and schema run.
//	cfg - Connection settings.
//
// Outputs:
//
//	*Store - Ready-to-use store.
//	error - Non-nil when the pool cannot be created or the schema fails.
func New(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	poolConfig, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection config: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolConfig.MaxConns = cfg.MaxConns
	} else {
		poolConfig.MaxConns = 10
	}
	poolConfig.MinConns = 1
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.MaxConnIdleTime = 30 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	s := &Store{pool: pool, q: pool, logger: cfg.Logger}
	if err := s.ensureSchema(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ensure schema: %w", err)
	}
	cfg.Logger.Info("connected to PostgreSQL", "max_conns", poolConfig.MaxConns)
	return s, nil
}

// Ping implements storage.Store.
func (s *Store) Ping(ctx context.Context) error {
	if s.pool == nil {
		return storage.ErrClosed
	}
	return s.pool.Ping(ctx)
}

// Close implements storage.Store.
func (s *Store) Close() error {
	if s.pool != nil {
		s.pool.Close()
	}
	return nil
}

// WithTx implements storage.Store.
//
// Runs fn against a transaction-bound view. Commit happens only when fn
// returns nil; any error rolls the whole transaction back.
func (s *Store) WithTx(ctx context.Context, fn func(storage.Store) error) error {
	if s.pool == nil {
		// Already inside a transaction; pgx transactions do not nest here,
		// the outer caller owns commit and rollback.
		return fn(s)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	txStore := &Store{q: tx, logger: s.logger}
	if err := fn(txStore); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			s.logger.Error("rollback failed", "error", rbErr)
		}
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// translateError maps pgx errors onto the storage sentinels.
func translateError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return storage.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return storage.ErrConflict
	}
	return err
}
