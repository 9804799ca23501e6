package archive

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresIndexSink mirrors every CSV row into a Postgres table via
// pgx/v5's connection pool, for callers who want a queryable evidence
// index instead of (or alongside) the flat CSV file - the CSV remains
// the source of truth per spec.md 6; this sink is purely additive, per
// SPEC_FULL.md 11's domain-stack wiring decision for the otherwise-dead
// jackc/pgx/v5 dependency.
//
// The target table is assumed pre-created by the caller's deployment
// tooling (schema migration is out of this port's scope, matching
// spec.md's "interpreting application-level formats" non-goal); see
// WriteRow's INSERT statement for the expected column set, which matches
// IndexRow/csvHeader exactly.
type PostgresIndexSink struct {
	pool  *pgxpool.Pool
	table string
}

// NewPostgresIndexSink connects to dsn and returns a sink that inserts
// into table (default "archive_index" if empty).
func NewPostgresIndexSink(ctx context.Context, dsn, table string) (*PostgresIndexSink, error) {
	if table == "" {
		table = "archive_index"
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("archive: postgres index sink: connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("archive: postgres index sink: ping: %w", err)
	}
	return &PostgresIndexSink{pool: pool, table: table}, nil
}

func (s *PostgresIndexSink) WriteRow(ctx context.Context, row IndexRow) error {
	sql := fmt.Sprintf(`INSERT INTO %s
		(computer_name, volume_serial, snapshot_guid, parent_frn, frn, full_path,
		 size, md5, sha1, sha256, ssdeep, tlsh, rule_id,
		 creation_time, last_modified_time, last_access_time, mft_change_time,
		 archive_name, status)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19)`, s.table)

	_, err := s.pool.Exec(ctx, sql,
		row.ComputerName, row.VolumeSerial, row.SnapshotGUID, row.ParentFRN, row.FRN, row.FullPath,
		row.Size, row.MD5, row.SHA1, row.SHA256, row.SSDeep, row.TLSH, row.RuleID,
		row.CreationTime, row.LastModifiedTime, row.LastAccessTime, row.MFTChangeTime,
		row.ArchiveName, row.Status,
	)
	if err != nil {
		return fmt.Errorf("archive: postgres index sink: insert: %w", err)
	}
	return nil
}

func (s *PostgresIndexSink) Close() error {
	s.pool.Close()
	return nil
}

var _ IndexSink = (*PostgresIndexSink)(nil)
