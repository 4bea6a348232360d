package pack

import (
	"database/sql"
	"errors"
	"fmt"
)

// Reader reads maps from a pack database.
type Reader struct {
	db   *sql.DB
	path string
}

// OpenReader opens a pack database for reading.
func OpenReader(path string) (*Reader, error) {
	db, err := sql.Open("sqlite", path+"?mode=ro&immutable=1")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	var count int
	err = db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='maps'").Scan(&count)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to verify schema: %w", err)
	}
	if count == 0 {
		db.Close()
		return nil, fmt.Errorf("database does not contain maps table")
	}

	return &Reader{
		db:   db,
		path: path,
	}, nil
}

// ReadMap returns the stored map for source and kind.
func (r *Reader) ReadMap(source, kind string) (Entry, error) {
	e := Entry{Source: source, Kind: kind}
	err := r.db.QueryRow(
		"SELECT format, width, height, data FROM maps WHERE source=? AND kind=?",
		source, kind,
	).Scan(&e.Format, &e.Width, &e.Height, &e.Data)

	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, fmt.Errorf("%s/%s: %w", source, kind, ErrNotFound)
	}
	if err != nil {
		return Entry{}, fmt.Errorf("failed to query map: %w", err)
	}

	return e, nil
}

// List returns every stored map without its data, ordered by source and kind.
func (r *Reader) List() ([]Entry, error) {
	rows, err := r.db.Query("SELECT source, kind, format, width, height FROM maps ORDER BY source, kind")
	if err != nil {
		return nil, fmt.Errorf("failed to query maps: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.Source, &e.Kind, &e.Format, &e.Width, &e.Height); err != nil {
			return nil, fmt.Errorf("failed to scan map row: %w", err)
		}
		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating maps: %w", err)
	}

	return entries, nil
}

// Metadata reads metadata from the database.
func (r *Reader) Metadata() (Metadata, error) {
	rows, err := r.db.Query("SELECT name, value FROM metadata")
	if err != nil {
		return Metadata{}, fmt.Errorf("failed to query metadata: %w", err)
	}
	defer rows.Close()

	metaMap := make(map[string]string)
	for rows.Next() {
		var name, value string
		if err := rows.Scan(&name, &value); err != nil {
			return Metadata{}, fmt.Errorf("failed to scan metadata row: %w", err)
		}
		metaMap[name] = value
	}

	if err := rows.Err(); err != nil {
		return Metadata{}, fmt.Errorf("error iterating metadata: %w", err)
	}

	return Metadata{
		Name:        metaMap["name"],
		Description: metaMap["description"],
		Version:     metaMap["version"],
		Params:      metaMap["params"],
	}, nil
}

// Close closes the database connection.
func (r *Reader) Close() error {
	if err := r.db.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}
	return nil
}
