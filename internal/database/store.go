// Package database persists application records in an embedded SQLite
// database. One row per job, keyed by the board's job ID.
package database

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/seekr-cli/seekr/pkg/models"
)

var ErrNotFound = errors.New("application record not found")

// Store wraps the SQLite handle. Safe for use from multiple goroutines;
// SQLite serializes writers and the busy timeout absorbs contention.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the database at path and runs migrations.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dsn := fmt.Sprintf("file:%s?_foreign_keys=on&_busy_timeout=5000&_journal_mode=WAL", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS applications (
		application_id TEXT PRIMARY KEY,
		job_id TEXT NOT NULL UNIQUE,
		title TEXT NOT NULL,
		company TEXT NOT NULL,
		location TEXT,
		work_arrangement TEXT,
		posting_date DATETIME,
		url TEXT,
		description TEXT,
		salary_min INTEGER,
		salary_max INTEGER,
		applied_at DATETIME,
		status TEXT NOT NULL,
		match_score REAL DEFAULT 0,
		matched_skills TEXT,
		notes TEXT,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_applications_applied_at ON applications(applied_at);
	CREATE INDEX IF NOT EXISTS idx_applications_status ON applications(status);
	CREATE INDEX IF NOT EXISTS idx_applications_company ON applications(company);
	CREATE INDEX IF NOT EXISTS idx_applications_score ON applications(match_score DESC);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Upsert inserts a new record for the listing. If a record with the same
// job_id already exists, the existing record is returned unchanged and
// created reports false. A missing application ID is assigned here.
func (s *Store) Upsert(rec *models.ApplicationRecord) (*models.ApplicationRecord, bool, error) {
	if existing, err := s.FindByJobID(rec.JobID); err == nil {
		return existing, false, nil
	} else if !errors.Is(err, ErrNotFound) {
		return nil, false, err
	}

	if rec.ApplicationID == "" {
		rec.ApplicationID = uuid.NewString()
	}
	now := time.Now().UTC()
	rec.CreatedAt = now
	rec.UpdatedAt = now

	skills, err := json.Marshal(rec.MatchedSkills)
	if err != nil {
		return nil, false, err
	}
	var salaryMin, salaryMax *int
	if rec.Salary != nil {
		salaryMin, salaryMax = &rec.Salary.Min, &rec.Salary.Max
	}

	query := `INSERT INTO applications (application_id, job_id, title, company, location,
		work_arrangement, posting_date, url, description, salary_min, salary_max,
		applied_at, status, match_score, matched_skills, notes, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err = s.db.Exec(query, rec.ApplicationID, rec.JobID, rec.Title, rec.Company,
		rec.Location, string(rec.Arrangement), rec.PostingDate, rec.URL, rec.Description,
		salaryMin, salaryMax, rec.AppliedAt, rec.Status, rec.MatchScore, string(skills),
		rec.Notes, rec.CreatedAt, rec.UpdatedAt)
	if err != nil {
		// Lost a race on the unique constraint; hand back the winner.
		if existing, ferr := s.FindByJobID(rec.JobID); ferr == nil {
			return existing, false, nil
		}
		return nil, false, err
	}
	return rec, true, nil
}

func (s *Store) FindByJobID(jobID string) (*models.ApplicationRecord, error) {
	row := s.db.QueryRow(selectColumns+` FROM applications WHERE job_id=?`, jobID)
	return scanRecord(row)
}

// ListByStatus returns records in a status, oldest first. This is the
// resume point after a restart: queued records are re-fed to the apply loop.
func (s *Store) ListByStatus(status string) ([]*models.ApplicationRecord, error) {
	rows, err := s.db.Query(selectColumns+` FROM applications WHERE status=? ORDER BY created_at ASC`, status)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := []*models.ApplicationRecord{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// CountAppliedSince counts submissions after the cutoff. Seeds the daily
// rate-limit counter so restarts cannot bypass the cap.
func (s *Store) CountAppliedSince(cutoff time.Time) (int, error) {
	var n int
	err := s.db.QueryRow(
		`SELECT COUNT(*) FROM applications WHERE applied_at IS NOT NULL AND applied_at > ?`,
		cutoff).Scan(&n)
	return n, err
}

// UpdateStatus moves a record to a new status. The caller is responsible
// for transition legality; the store only guards updated_at monotonicity.
func (s *Store) UpdateStatus(jobID, status, notes string) error {
	res, err := s.db.Exec(
		`UPDATE applications SET status=?, notes=?, updated_at=MAX(updated_at, ?) WHERE job_id=?`,
		status, notes, time.Now().UTC(), jobID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// MarkApplied records a successful submission.
func (s *Store) MarkApplied(jobID string, appliedAt time.Time) error {
	res, err := s.db.Exec(
		`UPDATE applications SET status='applied', applied_at=?, updated_at=MAX(updated_at, ?) WHERE job_id=?`,
		appliedAt.UTC(), time.Now().UTC(), jobID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// SetScore stores the computed match result on the record.
func (s *Store) SetScore(jobID string, score float64, matchedSkills []string) error {
	skills, err := json.Marshal(matchedSkills)
	if err != nil {
		return err
	}
	res, err := s.db.Exec(
		`UPDATE applications SET match_score=?, matched_skills=?, updated_at=MAX(updated_at, ?) WHERE job_id=?`,
		score, string(skills), time.Now().UTC(), jobID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

const selectColumns = `SELECT application_id, job_id, title, company, location,
	work_arrangement, posting_date, url, description, salary_min, salary_max,
	applied_at, status, match_score, matched_skills, notes, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*models.ApplicationRecord, error) {
	rec := &models.ApplicationRecord{}
	var (
		arrangement string
		skills      sql.NullString
		salaryMin   sql.NullInt64
		salaryMax   sql.NullInt64
		location    sql.NullString
		url         sql.NullString
		description sql.NullString
		notes       sql.NullString
	)
	err := row.Scan(&rec.ApplicationID, &rec.JobID, &rec.Title, &rec.Company, &location,
		&arrangement, &rec.PostingDate, &url, &description, &salaryMin, &salaryMax,
		&rec.AppliedAt, &rec.Status, &rec.MatchScore, &skills, &notes,
		&rec.CreatedAt, &rec.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	rec.Arrangement = models.WorkArrangement(arrangement)
	rec.Location = location.String
	rec.URL = url.String
	rec.Description = description.String
	rec.Notes = notes.String
	if salaryMin.Valid || salaryMax.Valid {
		rec.Salary = &models.SalaryBounds{Min: int(salaryMin.Int64), Max: int(salaryMax.Int64)}
	}
	if skills.Valid && skills.String != "" {
		if err := json.Unmarshal([]byte(skills.String), &rec.MatchedSkills); err != nil {
			return nil, fmt.Errorf("decoding matched skills for %s: %w", rec.JobID, err)
		}
	}
	return rec, nil
}
