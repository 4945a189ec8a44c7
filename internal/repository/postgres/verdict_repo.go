package postgres

/*
Файл verdict_repo.go — журнал вердиктов Guardian в PostgreSQL.
Пишет пачками (multi-values INSERT) из audit.Recorder и отдает последние записи для /guardian/history.
*/

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xela07ax/mindtussle/internal/audit"
	"github.com/xela07ax/mindtussle/internal/infra"
)

const schema = `
CREATE TABLE IF NOT EXISTS guardian_verdicts (
	id             UUID PRIMARY KEY,
	trace_id       TEXT        NOT NULL,
	model          TEXT        NOT NULL DEFAULT '',
	outcome        TEXT        NOT NULL,
	safe           BOOLEAN     NOT NULL,
	verdict        TEXT        NOT NULL DEFAULT '',
	score          INTEGER     NOT NULL DEFAULT 0,
	detected_sites TEXT[]      NOT NULL DEFAULT '{}',
	blocked_sites  TEXT[]      NOT NULL DEFAULT '{}',
	overridden     BOOLEAN     NOT NULL DEFAULT FALSE,
	has_image      BOOLEAN     NOT NULL DEFAULT FALSE,
	duration_ms    BIGINT      NOT NULL DEFAULT 0,
	error          TEXT        NOT NULL DEFAULT '',
	created_at     TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS guardian_verdicts_created_at_idx ON guardian_verdicts (created_at DESC);
`

// Количество колонок, которые пишет WriteBatch
const verdictFields = 14

type VerdictRepo struct {
	pool *pgxpool.Pool
}

// NewVerdictRepo открывает пул соединений и проверяет доступность базы.
func NewVerdictRepo(ctx context.Context, cfg infra.DatabaseConfig) (*VerdictRepo, error) {
	pcfg, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("postgres: parse url: %w", err)
	}
	if cfg.MaxConns > 0 {
		pcfg.MaxConns = int32(cfg.MaxConns)
	}
	if cfg.MinConns > 0 {
		pcfg.MinConns = int32(cfg.MinConns)
	}

	pool, err := pgxpool.NewWithConfig(ctx, pcfg)
	if err != nil {
		return nil, fmt.Errorf("postgres: open pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: ping: %w", err)
	}
	return &VerdictRepo{pool: pool}, nil
}

// EnsureSchema создает таблицу журнала, если ее еще нет.
func (r *VerdictRepo) EnsureSchema(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("postgres: ensure schema: %w", err)
	}
	return nil
}

// WriteBatch вставляет пачку событий одним запросом.
func (r *VerdictRepo) WriteBatch(ctx context.Context, events []audit.VerdictEvent) error {
	if len(events) == 0 {
		return nil
	}

	query, args := buildInsert(events)
	if _, err := r.pool.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("postgres: write verdicts: %w", err)
	}
	return nil
}

func buildInsert(events []audit.VerdictEvent) (string, []any) {
	var sb strings.Builder
	args := make([]any, 0, len(events)*verdictFields)

	for i, e := range events {
		if i > 0 {
			sb.WriteString(",")
		}
		sb.WriteString("(")
		for f := 1; f <= verdictFields; f++ {
			if f > 1 {
				sb.WriteString(",")
			}
			fmt.Fprintf(&sb, "$%d", i*verdictFields+f)
		}
		sb.WriteString(")")

		args = append(args,
			e.ID, e.TraceID, e.Model, e.Outcome, e.Safe, e.Verdict, e.Score,
			nonNil(e.DetectedSites), nonNil(e.BlockedSites), e.Overridden, e.HasImage,
			e.DurationMs, e.Error, e.Timestamp,
		)
	}

	query := "INSERT INTO guardian_verdicts (id, trace_id, model, outcome, safe, verdict, score, " +
		"detected_sites, blocked_sites, overridden, has_image, duration_ms, error, created_at) VALUES " +
		sb.String() + " ON CONFLICT (id) DO NOTHING"
	return query, args
}

// Recent возвращает последние limit вердиктов, новые первыми.
func (r *VerdictRepo) Recent(ctx context.Context, limit int) ([]audit.VerdictEvent, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, trace_id, model, outcome, safe, verdict, score, detected_sites, blocked_sites,
		       overridden, has_image, duration_ms, error, created_at
		FROM guardian_verdicts ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres: query verdicts: %w", err)
	}

	events, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (audit.VerdictEvent, error) {
		var e audit.VerdictEvent
		err := row.Scan(&e.ID, &e.TraceID, &e.Model, &e.Outcome, &e.Safe, &e.Verdict, &e.Score,
			&e.DetectedSites, &e.BlockedSites, &e.Overridden, &e.HasImage, &e.DurationMs, &e.Error, &e.Timestamp)
		return e, err
	})
	if err != nil {
		return nil, fmt.Errorf("postgres: scan verdicts: %w", err)
	}
	return events, nil
}

// Ping проверяет доступность базы (для /healthz)
func (r *VerdictRepo) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

func (r *VerdictRepo) Close() {
	r.pool.Close()
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
