package database

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/binary"
	"errors"
	"fmt"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
)

type Neighbor struct {
	Key      string
	Distance float32
}

// VectorIndex stores one embedding per saved idea in a sqlite-vec table.
type VectorIndex struct {
	db *DB
}

// toFloat32Slice converts a slice of bytes to a slice of float32.
func toFloat32Slice(data []byte) ([]float32, error) {
	if len(data)%4 != 0 {
		return nil, fmt.Errorf("invalid byte slice length for float32 conversion")
	}
	floats := make([]float32, len(data)/4)
	buf := bytes.NewReader(data)
	err := binary.Read(buf, binary.LittleEndian, &floats)
	return floats, err
}

// Vectors creates the vec0 table for the given dimension if needed.
func (db *DB) Vectors(ctx context.Context, dimensions int) (*VectorIndex, error) {
	if dimensions <= 0 {
		return nil, fmt.Errorf("invalid embedding dimensions %d", dimensions)
	}
	query := fmt.Sprintf(`CREATE VIRTUAL TABLE IF NOT EXISTS vec_ideas USING vec0(embedding float[%d])`, dimensions)
	if _, err := db.conn.ExecContext(ctx, query); err != nil {
		return nil, fmt.Errorf("create vec_ideas: %w", err)
	}
	return &VectorIndex{db: db}, nil
}

// Upsert replaces the embedding stored for key.
func (v *VectorIndex) Upsert(ctx context.Context, key string, embedding []float32) error {
	blob, err := sqlite_vec.SerializeFloat32(embedding)
	if err != nil {
		return err
	}

	tx, err := v.db.conn.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `INSERT INTO idea_embeddings (key) VALUES (?) ON CONFLICT(key) DO NOTHING`, key); err != nil {
		return err
	}
	var rowid int64
	if err := tx.QueryRowContext(ctx, `SELECT id FROM idea_embeddings WHERE key = ?`, key).Scan(&rowid); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM vec_ideas WHERE rowid = ?`, rowid); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO vec_ideas (rowid, embedding) VALUES (?, ?)`, rowid, blob); err != nil {
		return err
	}
	return tx.Commit()
}

// Remove drops the embedding for key, if any.
func (v *VectorIndex) Remove(ctx context.Context, key string) error {
	tx, err := v.db.conn.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM vec_ideas WHERE rowid IN (SELECT id FROM idea_embeddings WHERE key = ?)`, key); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM idea_embeddings WHERE key = ?`, key); err != nil {
		return err
	}
	return tx.Commit()
}

// Embedding returns the stored embedding for key.
func (v *VectorIndex) Embedding(ctx context.Context, key string) ([]float32, bool, error) {
	var raw []byte
	err := v.db.conn.QueryRowContext(ctx, `
		SELECT v.embedding
		FROM vec_ideas v
		JOIN idea_embeddings e ON e.id = v.rowid
		WHERE e.key = ?`, key).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	embedding, err := toFloat32Slice(raw)
	if err != nil {
		return nil, false, err
	}
	return embedding, true, nil
}

// Nearest returns up to limit keys ordered by distance to embedding.
func (v *VectorIndex) Nearest(ctx context.Context, embedding []float32, limit int) ([]Neighbor, error) {
	query := `
		WITH knn AS (
			SELECT
				rowid,
				distance
			FROM vec_ideas
			WHERE embedding MATCH ?
			ORDER BY distance
			LIMIT ?
		)
		SELECT e.key, knn.distance
		FROM knn
		JOIN idea_embeddings e ON e.id = knn.rowid
		ORDER BY knn.distance
	`

	blob, err := sqlite_vec.SerializeFloat32(embedding)
	if err != nil {
		return nil, err
	}

	rows, err := v.db.conn.QueryContext(ctx, query, blob, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var neighbors []Neighbor
	for rows.Next() {
		var n Neighbor
		if err := rows.Scan(&n.Key, &n.Distance); err != nil {
			return nil, err
		}
		neighbors = append(neighbors, n)
	}
	return neighbors, rows.Err()
}
