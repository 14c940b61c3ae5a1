package index

import (
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"github.com/bidwise/rfp-analyzer/internal/chunker"
)

const schema = `
CREATE TABLE IF NOT EXISTS chunks (
	ord       INTEGER PRIMARY KEY,
	document  TEXT NOT NULL,
	text      TEXT NOT NULL,
	vector    BLOB NOT NULL,
	dimension INTEGER NOT NULL
)`

// persist writes all entries to a SQLite file at location, replacing any
// previous content. The last writer for a location wins.
func persist(location string, entries []entry) error {
	if err := os.MkdirAll(filepath.Dir(location), 0o755); err != nil {
		return fmt.Errorf("creating index directory: %w", err)
	}

	db, err := sql.Open("sqlite", location)
	if err != nil {
		return fmt.Errorf("opening index database: %w", err)
	}
	defer db.Close()

	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM chunks"); err != nil {
		return fmt.Errorf("clearing previous index: %w", err)
	}

	stmt, err := tx.Prepare("INSERT INTO chunks (ord, document, text, vector, dimension) VALUES (?, ?, ?, ?, ?)")
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for _, e := range entries {
		blob := vectorToBlob(e.vector)
		if _, err := stmt.Exec(e.chunk.Ordinal, e.chunk.Document, e.chunk.Text, blob, len(e.vector)); err != nil {
			return fmt.Errorf("inserting chunk %s: %w", e.chunk.ID(), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing index: %w", err)
	}

	return nil
}

// restore reads all entries back from the SQLite file at location in chunk
// order.
func restore(location string) ([]entry, error) {
	db, err := sql.Open("sqlite", location)
	if err != nil {
		return nil, fmt.Errorf("opening index database: %w", err)
	}
	defer db.Close()

	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	rows, err := db.Query("SELECT ord, document, text, vector, dimension FROM chunks ORDER BY ord")
	if err != nil {
		return nil, fmt.Errorf("reading index: %w", err)
	}
	defer rows.Close()

	var entries []entry
	for rows.Next() {
		var (
			ord       int
			docName   string
			text      string
			blob      []byte
			dimension int
		)
		if err := rows.Scan(&ord, &docName, &text, &blob, &dimension); err != nil {
			return nil, fmt.Errorf("scanning chunk row: %w", err)
		}

		vector, err := blobToVector(blob, dimension)
		if err != nil {
			return nil, fmt.Errorf("decoding vector for chunk %d: %w", ord, err)
		}

		entries = append(entries, entry{
			chunk:  chunker.Chunk{Document: docName, Ordinal: ord, Text: text},
			vector: vector,
		})
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating index rows: %w", err)
	}

	return entries, nil
}

// vectorToBlob encodes the vector as little-endian float32 bytes.
func vectorToBlob(vector []float32) []byte {
	blob := make([]byte, 4*len(vector))
	for i, v := range vector {
		binary.LittleEndian.PutUint32(blob[i*4:], math.Float32bits(v))
	}
	return blob
}

func blobToVector(blob []byte, dimension int) ([]float32, error) {
	if len(blob) != 4*dimension {
		return nil, fmt.Errorf("blob size %d does not match dimension %d", len(blob), dimension)
	}

	vector := make([]float32, dimension)
	for i := range vector {
		vector[i] = math.Float32frombits(binary.LittleEndian.Uint32(blob[i*4:]))
	}
	return vector, nil
}
