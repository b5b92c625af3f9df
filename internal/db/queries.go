package db

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Upload is one upload attempt recorded by the console or the CLI
type Upload struct {
	ID         int64
	Directory  string
	FileName   string
	Size       int64
	URL        string // Where the server stored the file, empty on failure
	Error      string // Failure message, empty on success
	UploadedAt time.Time
}

// Succeeded reports whether the server accepted the upload.
func (u Upload) Succeeded() bool {
	return u.Error == ""
}

// RecordUpload stores u and returns its row id. A zero UploadedAt is
// replaced with the current time.
func RecordUpload(u Upload) (int64, error) {
	db, err := GetDB()
	if err != nil {
		return 0, fmt.Errorf("failed to get database connection: %w", err)
	}
	if u.UploadedAt.IsZero() {
		u.UploadedAt = time.Now()
	}

	res, err := db.Exec(
		`INSERT INTO uploads (directory, file_name, size, url, error, uploaded_at) VALUES (?, ?, ?, ?, ?, ?)`,
		u.Directory, u.FileName, u.Size, u.URL, u.Error, u.UploadedAt.UTC(),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to record upload: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read upload id: %w", err)
	}
	return id, nil
}

// RecentUploads returns up to limit uploads, newest first. A limit of zero
// or less returns everything.
func RecentUploads(limit int) ([]Upload, error) {
	db, err := GetDB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database connection: %w", err)
	}

	query := `SELECT id, directory, file_name, size, url, error, uploaded_at
	          FROM uploads
	          ORDER BY uploaded_at DESC, id DESC`
	var args []interface{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query uploads: %w", err)
	}
	defer rows.Close()

	var uploads []Upload
	for rows.Next() {
		var u Upload
		if err := rows.Scan(&u.ID, &u.Directory, &u.FileName, &u.Size, &u.URL, &u.Error, &u.UploadedAt); err != nil {
			return nil, fmt.Errorf("failed to scan upload: %w", err)
		}
		u.UploadedAt = u.UploadedAt.Local()
		uploads = append(uploads, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating uploads: %w", err)
	}
	return uploads, nil
}

// ClearUploads deletes the whole history and returns how many rows went.
func ClearUploads() (int64, error) {
	db, err := GetDB()
	if err != nil {
		return 0, fmt.Errorf("failed to get database connection: %w", err)
	}
	res, err := db.Exec(`DELETE FROM uploads`)
	if err != nil {
		return 0, fmt.Errorf("failed to clear uploads: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count cleared uploads: %w", err)
	}
	return n, nil
}

// dbPathFunc is a variable holding the function to get DB path (for testing)
var dbPathFunc = getDefaultDBPath

// getDefaultDBPath returns the default path to the SQLite database
func getDefaultDBPath() (string, error) {
	// Use XDG_DATA_HOME for database storage (XDG Base Directory spec)
	xdgDataHome := os.Getenv("XDG_DATA_HOME")
	if xdgDataHome == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		xdgDataHome = filepath.Join(homeDir, ".local", "share")
	}

	return filepath.Join(xdgDataHome, "devicelab", "history.db"), nil
}

// getDBPath returns the path to the SQLite database
func getDBPath() (string, error) {
	return dbPathFunc()
}

// UseDBPath points the store at path, closing any open pool. Tests and the
// CLI --db override use it.
func UseDBPath(path string) error {
	if err := CloseDB(); err != nil {
		return err
	}
	dbPathFunc = func() (string, error) { return path, nil }
	return nil
}
