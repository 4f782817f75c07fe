// Package store persists canonical job records and breaker cool-downs
// between runs. The content hash is the primary key everywhere: re-running
// the pipeline upserts instead of duplicating.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/amishk599/jobradar/internal/model"
)

// SQLiteStore is the default single-file backend.
type SQLiteStore struct {
	db *sql.DB
}

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS jobs (
	content_hash   TEXT PRIMARY KEY,
	title          TEXT NOT NULL,
	company        TEXT NOT NULL,
	location       TEXT,
	work_mode      TEXT,
	description    TEXT,
	url            TEXT,
	source         TEXT,
	salary_min     REAL,
	salary_max     REAL,
	currency       TEXT,
	posted_at      TEXT,
	first_seen     TEXT NOT NULL,
	last_seen      TEXT NOT NULL,
	times_seen     INTEGER NOT NULL DEFAULT 1,
	match_score    REAL,
	score_reasons  TEXT,
	ghost_score    REAL,
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
	open_until TEXT NOT NULL
);
`

// NewSQLiteStore opens (or creates) the database at dbPath and ensures the
// schema exists.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}

	// Verify the connection is alive.
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging sqlite db: %w", err)
	}

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// FindByHash loads one job by content hash, or (nil, nil) when absent.
func (s *SQLiteStore) FindByHash(hash string) (*model.Job, error) {
	row := s.db.QueryRow(`SELECT `+jobColumns+` FROM jobs WHERE content_hash = ?`, hash)
	job, err := scanJob(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading job %s: %w", hash, err)
	}

	if job.SourceRefs, err = s.refsFor(hash); err != nil {
		return nil, err
	}
	return job, nil
}

// UpsertJobs writes the batch in one transaction. An existing row keeps its
// original first_seen; everything else reflects the latest run.
func (s *SQLiteStore) UpsertJobs(jobs []model.Job) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning upsert tx: %w", err)
	}
	defer tx.Rollback()

	const upsert = `INSERT INTO jobs (` + jobColumns + `) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)
		ON CONFLICT(content_hash) DO UPDATE SET
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
			first_seen = MIN(jobs.first_seen, excluded.first_seen),
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

		_, err = tx.Exec(upsert,
			j.ContentHash, j.Title, j.Company, j.Location, string(j.WorkMode),
			j.Description, j.URL, j.Source,
			nullFloat(j.SalaryMin), nullFloat(j.SalaryMax), j.Currency,
			nullTime(j.PostedAt), formatTime(j.FirstSeen), formatTime(j.LastSeen), j.TimesSeen,
			j.MatchScore, string(reasons), j.GhostScore, string(j.GhostSeverity), j.DedupGroupID,
		)
		if err != nil {
			return fmt.Errorf("upserting job %s: %w", j.ContentHash, err)
		}

		for _, r := range j.SourceRefs {
			if r.ExternalID == "" {
				continue
			}
			_, err = tx.Exec(`INSERT INTO source_refs (source, external_id, content_hash) VALUES (?,?,?)
				ON CONFLICT(source, external_id) DO UPDATE SET content_hash = excluded.content_hash`,
				r.Source, r.ExternalID, j.ContentHash)
			if err != nil {
				return fmt.Errorf("upserting ref %s/%s: %w", r.Source, r.ExternalID, err)
			}
		}
	}

	return tx.Commit()
}

// RecentJobs returns up to limit jobs ordered by last_seen descending, then
// match score descending.
func (s *SQLiteStore) RecentJobs(limit int) ([]model.Job, error) {
	rows, err := s.db.Query(`SELECT `+jobColumns+` FROM jobs
		ORDER BY last_seen DESC, match_score DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying recent jobs: %w", err)
	}
	defer rows.Close()

	var out []model.Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning job row: %w", err)
		}
		if job.SourceRefs, err = s.refsFor(job.ContentHash); err != nil {
			return nil, err
		}
		out = append(out, *job)
	}
	return out, rows.Err()
}

// LoadCooldowns returns the breaker cool-downs still in the future.
func (s *SQLiteStore) LoadCooldowns() (map[string]time.Time, error) {
	rows, err := s.db.Query(`SELECT source, open_until FROM breaker_cooldowns`)
	if err != nil {
		return nil, fmt.Errorf("loading cooldowns: %w", err)
	}
	defer rows.Close()

	out := make(map[string]time.Time)
	now := time.Now()
	for rows.Next() {
		var source, raw string
		if err := rows.Scan(&source, &raw); err != nil {
			return nil, fmt.Errorf("scanning cooldown row: %w", err)
		}
		until, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			continue
		}
		if until.After(now) {
			out[source] = until
		}
	}
	return out, rows.Err()
}

// SaveCooldown records when a source's breaker may half-open again.
func (s *SQLiteStore) SaveCooldown(source string, openUntil time.Time) error {
	_, err := s.db.Exec(`INSERT INTO breaker_cooldowns (source, open_until) VALUES (?,?)
		ON CONFLICT(source) DO UPDATE SET open_until = excluded.open_until`,
		source, formatTime(openUntil))
	if err != nil {
		return fmt.Errorf("saving cooldown for %s: %w", source, err)
	}
	return nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) refsFor(hash string) ([]model.SourceRef, error) {
	rows, err := s.db.Query(`SELECT source, external_id FROM source_refs WHERE content_hash = ? ORDER BY source, external_id`, hash)
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

const jobColumns = `content_hash, title, company, location, work_mode, description, url, source,
	salary_min, salary_max, currency, posted_at, first_seen, last_seen, times_seen,
	match_score, score_reasons, ghost_score, ghost_severity, dedup_group_id`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row rowScanner) (*model.Job, error) {
	var (
		j          model.Job
		workMode   string
		salaryMin  sql.NullFloat64
		salaryMax  sql.NullFloat64
		postedAt   sql.NullString
		firstSeen  string
		lastSeen   string
		reasons    string
		severity   string
	)

	err := row.Scan(&j.ContentHash, &j.Title, &j.Company, &j.Location, &workMode,
		&j.Description, &j.URL, &j.Source,
		&salaryMin, &salaryMax, &j.Currency,
		&postedAt, &firstSeen, &lastSeen, &j.TimesSeen,
		&j.MatchScore, &reasons, &j.GhostScore, &severity, &j.DedupGroupID)
	if err != nil {
		return nil, err
	}

	j.WorkMode = model.WorkMode(workMode)
	j.GhostSeverity = model.Severity(severity)
	if salaryMin.Valid {
		j.SalaryMin = &salaryMin.Float64
	}
	if salaryMax.Valid {
		j.SalaryMax = &salaryMax.Float64
	}
	if postedAt.Valid && postedAt.String != "" {
		if t, err := time.Parse(time.RFC3339Nano, postedAt.String); err == nil {
			j.PostedAt = &t
		}
	}
	if j.FirstSeen, err = time.Parse(time.RFC3339Nano, firstSeen); err != nil {
		return nil, fmt.Errorf("bad first_seen %q: %w", firstSeen, err)
	}
	if j.LastSeen, err = time.Parse(time.RFC3339Nano, lastSeen); err != nil {
		return nil, fmt.Errorf("bad last_seen %q: %w", lastSeen, err)
	}
	if reasons != "" {
		if err := json.Unmarshal([]byte(reasons), &j.ScoreReasons); err != nil {
			return nil, fmt.Errorf("decoding reasons: %w", err)
		}
	}

	return &j, nil
}

// timeLayout is fixed-width so MIN/ORDER BY over the text column compare
// chronologically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return formatTime(*t)
}

func nullFloat(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}
