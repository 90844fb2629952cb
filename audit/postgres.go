package audit

import (
	"context"

	"github.com/jackc/pgx/v4/pgxpool"

	"github.com/alglobo-systems/coordinator/configs"
)

// PostgresSink writes decided transactions to a single table, one row per
// txn_id; a later decision for the same txn_id overwrites its phase and
// decided_at.
// Grounded on the teacher's storage.SQLDB: pgxpool.Connect + a schema
// bootstrap on init, adapted from a generic KV table to the audit row
// shape this domain needs.
type PostgresSink struct {
	pool *pgxpool.Pool
}

func newPostgresSink(dsn string) (*PostgresSink, error) {
	pool, err := pgxpool.Connect(context.Background(), dsn)
	if err != nil {
		return nil, err
	}
	_, err = pool.Exec(context.Background(), `
		CREATE TABLE IF NOT EXISTS txn_audit (
			txn_id     BIGINT PRIMARY KEY,
			phase      SMALLINT NOT NULL,
			amounts    BIGINT[] NOT NULL,
			decided_at TIMESTAMPTZ NOT NULL
		)`)
	if err != nil {
		pool.Close()
		return nil, err
	}
	return &PostgresSink{pool: pool}, nil
}

func (s *PostgresSink) Record(ctx context.Context, e Entry) error {
	amounts := make([]int64, len(e.Amounts))
	for i, a := range e.Amounts {
		amounts[i] = int64(a)
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO txn_audit (txn_id, phase, amounts, decided_at) VALUES ($1, $2, $3, $4)
		 ON CONFLICT (txn_id) DO UPDATE SET phase = $2, decided_at = $4`,
		e.TxnID, int16(e.Phase), amounts, e.DecidedAt)
	if err != nil {
		configs.DPrintf("audit/postgres: insert failed: %v", err)
	}
	return err
}

func (s *PostgresSink) Close() error {
	s.pool.Close()
	return nil
}
