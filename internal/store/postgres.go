package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/amishk599/jobradar/internal/model"
)

// PostgresStore backs the pipeline with a shared Postgres database, for
// deployments where several machines feed one job table.
type PostgresStore struct {
	pool *pgxpool.Pool
}

const postgresSchema = `
CREATE TABLE IF NOT EXISTS jobs (
	content_hash   TEXT PRIMARY KEY,
	title          TEXT NOT NULL,
	company        TEXT NOT NULL,
	location       TEXT,
	work_mode      TEXT,
	description    TEXT,
	url            TEXT,
	source         TEXT,
	salary_min     DOUBLE PRECISION,
	salary_max     DOUBLE PRECISION,
	currency       TEXT,
	posted_at      TIMESTAMPTZ,
	first_seen     TIMESTAMPTZ NOT NULL,
	last_seen      TIMESTAMPTZ NOT NULL,
	times_seen     INTEGER NOT NULL DEFAULT 1,
	match_score    DOUBLE PRECISION,
	score_reasons  JSONB,
	ghost_score    DOUBLE PRECISION,
	ghost_severity TEXT,
	dedup_group_id TEXT
);
CREATE TABLE IF NOT EXISTS source_refs (
	source       TEXT NOT NULL,
	external_id  TEXT NOT NULL,
	content_hash TEXT NOT NULL REFERENCES jobs(content_hash),
	PRIMARY KEY (source, external_id)
);
CREATE TABLE IF NOT EXISTS breaker_cooldowns (
	source     TEXT PRIMARY KEY,
	open_until TIMESTAMPTZ NOT NULL
);
`

// NewPostgresStore connects to databaseURL and ensures the schema exists.
func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connecting to postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging postgres: %w", err)
	}
	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) FindByHash(hash string) (*model.Job, error) {
	ctx := context.Background()
	row := s.pool.QueryRow(ctx, `SELECT `+pgJobColumns+` FROM jobs WHERE content_hash = $1`, hash)
	job, err := scanPgJob(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading job %s: %w", hash, err)
	}
	if job.SourceRefs, err = s.refsFor(ctx, hash); err != nil {
		return nil, err
	}
	return job, nil
}

func (s *PostgresStore) UpsertJobs(jobs []model.Job) error {
	ctx := context.Background()
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning upsert tx: %w", err)
	}
	defer tx.Rollback(ctx)

	const upsert = `INSERT INTO jobs (` + pgJobColumns + `)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20)
		ON CONFLICT (content_hash) DO UPDATE SET
			title = excluded.title,
			company = excluded.company,
			location = excluded.location,
			work_mode = excluded.work_mode,
			description = excluded.description,
			url = excluded.url,
			source = excluded.source,
			salary_min = excluded.salary_min,
			salary_max = excluded.salary_max,
			currency = excluded.currency,
			posted_at = excluded.posted_at,
			first_seen = LEAST(jobs.first_seen, excluded.first_seen),
			last_seen = excluded.last_seen,
			times_seen = excluded.times_seen,
			match_score = excluded.match_score,
			score_reasons = excluded.score_reasons,
			ghost_score = excluded.ghost_score,
			ghost_severity = excluded.ghost_severity,
			dedup_group_id = excluded.dedup_group_id`

	for _, j := range jobs {
		reasons, err := json.Marshal(j.ScoreReasons)
		if err != nil {
			return fmt.Errorf("encoding reasons for %s: %w", j.ContentHash, err)
		}

		_, err = tx.Exec(ctx, upsert,
			j.ContentHash, j.Title, j.Company, j.Location, string(j.WorkMode),
			j.Description, j.URL, j.Source,
			j.SalaryMin, j.SalaryMax, j.Currency,
			j.PostedAt, j.FirstSeen.UTC(), j.LastSeen.UTC(), j.TimesSeen,
			j.MatchScore, reasons, j.GhostScore, string(j.GhostSeverity), j.DedupGroupID,
		)
		if err != nil {
			return fmt.Errorf("upserting job %s: %w", j.ContentHash, err)
		}

		for _, r := range j.SourceRefs {
			if r.ExternalID == "" {
				continue
			}
			_, err = tx.Exec(ctx, `INSERT INTO source_refs (source, external_id, content_hash)
				VALUES ($1,$2,$3)
				ON CONFLICT (source, external_id) DO UPDATE SET content_hash = excluded.content_hash`,
				r.Source, r.ExternalID, j.ContentHash)
			if err != nil {
				return fmt.Errorf("upserting ref %s/%s: %w", r.Source, r.ExternalID, err)
			}
		}
	}

	return tx.Commit(ctx)
}

func (s *PostgresStore) RecentJobs(limit int) ([]model.Job, error) {
	ctx := context.Background()
	rows, err := s.pool.Query(ctx, `SELECT `+pgJobColumns+` FROM jobs
		ORDER BY last_seen DESC, match_score DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying recent jobs: %w", err)
	}
	defer rows.Close()

	var out []model.Job
	for rows.Next() {
		job, err := scanPgJob(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning job row: %w", err)
		}
		out = append(out, *job)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range out {
		if out[i].SourceRefs, err = s.refsFor(ctx, out[i].ContentHash); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (s *PostgresStore) LoadCooldowns() (map[string]time.Time, error) {
	ctx := context.Background()
	rows, err := s.pool.Query(ctx, `SELECT source, open_until FROM breaker_cooldowns WHERE open_until > now()`)
	if err != nil {
		return nil, fmt.Errorf("loading cooldowns: %w", err)
	}
	defer rows.Close()

	out := make(map[string]time.Time)
	for rows.Next() {
		var source string
		var until time.Time
		if err := rows.Scan(&source, &until); err != nil {
			return nil, fmt.Errorf("scanning cooldown row: %w", err)
		}
		out[source] = until
	}
	return out, rows.Err()
}

func (s *PostgresStore) SaveCooldown(source string, openUntil time.Time) error {
	_, err := s.pool.Exec(context.Background(), `INSERT INTO breaker_cooldowns (source, open_until)
		VALUES ($1,$2) ON CONFLICT (source) DO UPDATE SET open_until = excluded.open_until`,
		source, openUntil.UTC())
	if err != nil {
		return fmt.Errorf("saving cooldown for %s: %w", source, err)
	}
	return nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) refsFor(ctx context.Context, hash string) ([]model.SourceRef, error) {
	rows, err := s.pool.Query(ctx, `SELECT source, external_id FROM source_refs
		WHERE content_hash = $1 ORDER BY source, external_id`, hash)
	if err != nil {
		return nil, fmt.Errorf("loading refs for %s: %w", hash, err)
	}
	defer rows.Close()

	var refs []model.SourceRef
	for rows.Next() {
		var r model.SourceRef
		if err := rows.Scan(&r.Source, &r.ExternalID); err != nil {
			return nil, fmt.Errorf("scanning ref row: %w", err)
		}
		refs = append(refs, r)
	}
	return refs, rows.Err()
}

const pgJobColumns = `content_hash, title, company, location, work_mode, description, url, source,
	salary_min, salary_max, currency, posted_at, first_seen, last_seen, times_seen,
	match_score, score_reasons, ghost_score, ghost_severity, dedup_group_id`

func scanPgJob(row pgx.Row) (*model.Job, error) {
	var (
		j        model.Job
		workMode string
		severity string
		reasons  []byte
	)

	err := row.Scan(&j.ContentHash, &j.Title, &j.Company, &j.Location, &workMode,
		&j.Description, &j.URL, &j.Source,
		&j.SalaryMin, &j.SalaryMax, &j.Currency,
		&j.PostedAt, &j.FirstSeen, &j.LastSeen, &j.TimesSeen,
		&j.MatchScore, &reasons, &j.GhostScore, &severity, &j.DedupGroupID)
	if err != nil {
		return nil, err
	}

	j.WorkMode = model.WorkMode(workMode)
	j.GhostSeverity = model.Severity(severity)
	if len(reasons) > 0 {
		if err := json.Unmarshal(reasons, &j.ScoreReasons); err != nil {
			return nil, fmt.Errorf("decoding reasons: %w", err)
		}
	}
	return &j, nil
}
