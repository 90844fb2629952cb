// Package audit implements the SPEC_FULL §4.7 domain-stack addition: an
// optional, best-effort record of each transaction's final decision. It is
// never on the 2PC correctness path — a sink failure is logged and
// swallowed, never turned into an ABORT.
package audit

import (
	"context"
	"time"

	"github.com/alglobo-systems/coordinator/configs"
	"github.com/alglobo-systems/coordinator/wire"
)

// Entry is one decided transaction, as handed to a Sink by the driver.
type Entry struct {
	TxnID     uint32
	Phase     wire.Phase
	Amounts   []uint32
	DecidedAt time.Time
}

// Sink persists decided transactions somewhere outside the cluster's own
// replicated log. Best-effort: callers log and discard errors.
type Sink interface {
	Record(ctx context.Context, e Entry) error
	Close() error
}

// NullSink is the default: configs.AuditNone selects it, and Record is a
// no-op. Grounded on the teacher's pattern of a default in-memory/no-op
// implementation selected by a config string (configs package switches).
type NullSink struct{}

func (NullSink) Record(context.Context, Entry) error { return nil }
func (NullSink) Close() error                         { return nil }

// New builds the Sink named by backend (configs.AuditNone/Postgres/Mongo).
func New(backend, dsn string) (Sink, error) {
	switch backend {
	case configs.AuditPostgres:
		return newPostgresSink(dsn)
	case configs.AuditMongo:
		return newMongoSink(dsn)
	default:
		return NullSink{}, nil
	}
}

// RecordBestEffort calls sink.Record and only warns on failure; it never
// returns an error to the caller, matching spec §4.7's "best-effort"
// framing — an audit-sink outage must not affect 2PC correctness.
func RecordBestEffort(ctx context.Context, sink Sink, e Entry) {
	if err := sink.Record(ctx, e); err != nil {
		configs.Warn(false, "audit: record failed: "+err.Error())
	}
}
