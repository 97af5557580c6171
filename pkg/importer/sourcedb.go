package importer

import (
	"database/sql"
	"fmt"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// Source is one remote resource of a bundle: a table, a rule file or a manifest.
//
// Validators holds what the last check saw upstream, Imported what the last
// successful import downloaded. Changed is set when the two disagree.
type Source struct {
	BundleID   string
	FileName   string
	SourceURL  string
	License    string
	LastCheck  *int64
	LastStatus *int
	LastError  *string
	UpdatedAt  int64
	Validators Validators
	Imported   Validators
	ImportedAt *int64
	Changed    bool
}

// Validators are the HTTP cache validators of a resource.
type Validators struct {
	ETag         string
	LastModified string
}

// IsZero reports whether no validator is known.
func (v Validators) IsZero() bool { return v.ETag == "" && v.LastModified == "" }

// differs reports whether v and other name different versions. Only a
// validator present on both sides is compared, ETag first.
func (v Validators) differs(other Validators) bool {
	if v.ETag != "" && other.ETag != "" {
		return v.ETag != other.ETag
	}
	if v.LastModified != "" && other.LastModified != "" {
		return v.LastModified != other.LastModified
	}
	return false
}

// SourceDB manages the bundle_sources SQLite table.
type SourceDB struct {
	db *sql.DB
}

// OpenSourceDB opens (or creates) the SQLite database at path and ensures the
// bundle_sources table exists.
func OpenSourceDB(path string) (*SourceDB, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open source db: %w", err)
	}

	const ddl = `CREATE TABLE IF NOT EXISTS bundle_sources (
		bundle_id    TEXT NOT NULL,
		file_name    TEXT NOT NULL,
		source_url   TEXT NOT NULL,
		license      TEXT NOT NULL DEFAULT '',
		last_check   INTEGER,
		last_status  INTEGER,
		last_error   TEXT,
		updated_at   INTEGER NOT NULL,
		etag                  TEXT NOT NULL DEFAULT '',
		last_modified         TEXT NOT NULL DEFAULT '',
		import_etag           TEXT NOT NULL DEFAULT '',
		import_last_modified  TEXT NOT NULL DEFAULT '',
		imported_at           INTEGER,
		changed               INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY (bundle_id, file_name)
	)`
	if _, err := db.Exec(ddl); err != nil {
		db.Close()
		return nil, fmt.Errorf("create bundle_sources table: %w", err)
	}

	return &SourceDB{db: db}, nil
}

// Close closes the database.
func (s *SourceDB) Close() error {
	return s.db.Close()
}

// Add registers a resource. An existing row is left untouched so that manual
// URL overrides survive re-registration.
func (s *SourceDB) Add(src Source) error {
	if src.BundleID == "" || src.SourceURL == "" {
		return fmt.Errorf("add source: bundle id and url are required")
	}
	if src.FileName == "" || filepath.Base(src.FileName) != src.FileName || src.FileName == "." || src.FileName == ".." {
		return fmt.Errorf("add source: invalid file name %q", src.FileName)
	}
	_, err := s.db.Exec(`INSERT OR IGNORE INTO bundle_sources
		(bundle_id, file_name, source_url, license, updated_at)
		VALUES (?, ?, ?, ?, ?)`,
		src.BundleID, src.FileName, src.SourceURL, src.License, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("add %s/%s: %w", src.BundleID, src.FileName, err)
	}
	return nil
}

// GetURL returns the current URL of one resource.
func (s *SourceDB) GetURL(bundleID, fileName string) (string, error) {
	var url string
	err := s.db.QueryRow(`SELECT source_url FROM bundle_sources WHERE bundle_id = ? AND file_name = ?`,
		bundleID, fileName).Scan(&url)
	if err != nil {
		return "", fmt.Errorf("get url for %s/%s: %w", bundleID, fileName, err)
	}
	return url, nil
}

// SetURL updates the URL of one resource and records the change timestamp.
func (s *SourceDB) SetURL(bundleID, fileName, url string) error {
	res, err := s.db.Exec(
		`UPDATE bundle_sources SET source_url = ?, updated_at = ? WHERE bundle_id = ? AND file_name = ?`,
		url, time.Now().Unix(), bundleID, fileName,
	)
	if err != nil {
		return fmt.Errorf("set url for %s/%s: %w", bundleID, fileName, err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("source %s/%s not found in bundle_sources", bundleID, fileName)
	}
	return nil
}

// CheckResult is the outcome of one availability check.
type CheckResult struct {
	Status     int
	Err        string
	Validators Validators
	Changed    bool
}

// UpdateCheck persists the result of an availability check.
func (s *SourceDB) UpdateCheck(bundleID, fileName string, res CheckResult) error {
	var errPtr *string
	if res.Err != "" {
		errPtr = &res.Err
	}
	changed := 0
	if res.Changed {
		changed = 1
	}
	_, err := s.db.Exec(
		`UPDATE bundle_sources SET last_check = ?, last_status = ?, last_error = ?,
			etag = ?, last_modified = ?, changed = ?
		WHERE bundle_id = ? AND file_name = ?`,
		time.Now().Unix(), res.Status, errPtr,
		res.Validators.ETag, res.Validators.LastModified, changed,
		bundleID, fileName,
	)
	if err != nil {
		return fmt.Errorf("update check for %s/%s: %w", bundleID, fileName, err)
	}
	return nil
}

// MarkImported records the validators of a freshly imported resource and
// clears its changed flag.
func (s *SourceDB) MarkImported(bundleID, fileName string, v Validators) error {
	_, err := s.db.Exec(
		`UPDATE bundle_sources SET import_etag = ?, import_last_modified = ?, imported_at = ?, changed = 0
		WHERE bundle_id = ? AND file_name = ?`,
		v.ETag, v.LastModified, time.Now().Unix(), bundleID, fileName,
	)
	if err != nil {
		return fmt.Errorf("mark imported %s/%s: %w", bundleID, fileName, err)
	}
	return nil
}

// ChangedBundles returns the bundles with at least one resource that changed
// upstream since it was imported, sorted.
func (s *SourceDB) ChangedBundles() ([]string, error) {
	rows, err := s.db.Query(`SELECT DISTINCT bundle_id FROM bundle_sources WHERE changed = 1 ORDER BY bundle_id`)
	if err != nil {
		return nil, fmt.Errorf("changed bundles: %w", err)
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan bundle id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// ListSources returns all rows ordered by bundle and file name.
func (s *SourceDB) ListSources() ([]Source, error) {
	return s.query(`SELECT ` + sourceColumns + `
		FROM bundle_sources ORDER BY bundle_id, file_name`)
}

// ListBundle returns the resources of one bundle ordered by file name.
func (s *SourceDB) ListBundle(bundleID string) ([]Source, error) {
	return s.query(`SELECT `+sourceColumns+`
		FROM bundle_sources WHERE bundle_id = ? ORDER BY file_name`, bundleID)
}

const sourceColumns = `bundle_id, file_name, source_url, license,
		last_check, last_status, last_error, updated_at,
		etag, last_modified, import_etag, import_last_modified, imported_at, changed`

func (s *SourceDB) query(q string, args ...any) ([]Source, error) {
	rows, err := s.db.Query(q, args...)
	if err != nil {
		return nil, fmt.Errorf("list sources: %w", err)
	}
	defer rows.Close()

	var sources []Source
	for rows.Next() {
		var src Source
		if err := rows.Scan(&src.BundleID, &src.FileName, &src.SourceURL, &src.License,
			&src.LastCheck, &src.LastStatus, &src.LastError, &src.UpdatedAt,
			&src.Validators.ETag, &src.Validators.LastModified,
			&src.Imported.ETag, &src.Imported.LastModified, &src.ImportedAt, &src.Changed); err != nil {
			return nil, fmt.Errorf("scan source: %w", err)
		}
		sources = append(sources, src)
	}
	return sources, rows.Err()
}
