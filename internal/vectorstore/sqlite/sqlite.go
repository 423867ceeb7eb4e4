package sqlite

import (
	"database/sql"
	"encoding/json"
	"os"
	"strconv"
	"sync"

	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"

	"salescoach/internal/domain"
	"salescoach/internal/vectorstore"
)

const schema = `
CREATE TABLE IF NOT EXISTS meta (
	key TEXT PRIMARY KEY,
	value TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS chunks (
	seq INTEGER PRIMARY KEY AUTOINCREMENT,
	chunk_id TEXT NOT NULL,
	passage_id TEXT NOT NULL,
	product_id INTEGER NOT NULL,
	chunk_index INTEGER NOT NULL,
	content TEXT NOT NULL,
	embedding TEXT NOT NULL
);
`

// Storage persists chunks and their embeddings in a single SQLite file.
type Storage struct {
	mu        sync.RWMutex
	db        *sql.DB
	dimension int
}

// Open opens (or creates) the index file at path for writing.
func Open(path string) (*Storage, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, errors.Wrap(err, "open index")
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "init index schema")
	}
	return attach(db)
}

// OpenReadOnly opens an existing index without creating or altering anything in it.
// A file that is not an index fails here and is left untouched.
func OpenReadOnly(path string) (*Storage, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, errors.Wrap(err, "open index")
	}
	db, err := sql.Open("sqlite3", "file:"+path+"?mode=ro")
	if err != nil {
		return nil, errors.Wrap(err, "open index")
	}
	return attach(db)
}

func attach(db *sql.DB) (*Storage, error) {
	s := &Storage{db: db}
	var dim string
	err := db.QueryRow(`SELECT value FROM meta WHERE key = 'dimension'`).Scan(&dim)
	switch {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		_ = db.Close()
		return nil, errors.Wrap(err, "read index meta")
	default:
		if s.dimension, err = strconv.Atoi(dim); err != nil {
			_ = db.Close()
			return nil, errors.Wrap(err, "bad index dimension")
		}
	}
	return s, nil
}

// Close releases the database handle.
func (s *Storage) Close() error { return s.db.Close() }

// Dimension returns the stored vector size, 0 when uninitialized.
func (s *Storage) Dimension() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dimension
}

func (s *Storage) Init(dimension int) error {
	if dimension <= 0 {
		return errors.New("invalid dimension")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.db.Exec(`DELETE FROM chunks`); err != nil {
		return errors.Wrap(err, "reset chunks")
	}
	if _, err := s.db.Exec(`INSERT OR REPLACE INTO meta (key, value) VALUES ('dimension', ?)`, strconv.Itoa(dimension)); err != nil {
		return errors.Wrap(err, "write index meta")
	}
	s.dimension = dimension
	return nil
}

func (s *Storage) Upsert(chunks []domain.Chunk, vectors [][]float64) error {
	if len(chunks) != len(vectors) {
		return errors.New("chunks and vectors length mismatch")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dimension == 0 {
		return errors.New("index not initialized")
	}
	tx, err := s.db.Begin()
	if err != nil {
		return errors.Wrap(err, "begin upsert")
	}
	stmt, err := tx.Prepare(`INSERT INTO chunks (chunk_id, passage_id, product_id, chunk_index, content, embedding) VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		_ = tx.Rollback()
		return errors.Wrap(err, "prepare upsert")
	}
	defer stmt.Close()
	for i, ch := range chunks {
		if len(vectors[i]) != s.dimension {
			_ = tx.Rollback()
			return errors.Errorf("vector dimension mismatch: %d != %d", len(vectors[i]), s.dimension)
		}
		emb, err := json.Marshal(vectors[i])
		if err != nil {
			_ = tx.Rollback()
			return errors.Wrap(err, "encode embedding")
		}
		if _, err := stmt.Exec(ch.ChunkID, ch.PassageID, ch.ProductID, ch.Index, ch.Text, string(emb)); err != nil {
			_ = tx.Rollback()
			return errors.Wrapf(err, "insert chunk %s", ch.ChunkID)
		}
	}
	return errors.Wrap(tx.Commit(), "commit upsert")
}

// All returns every stored chunk and vector in insertion order.
func (s *Storage) All() ([]domain.Chunk, [][]float64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rows, err := s.db.Query(`SELECT chunk_id, passage_id, product_id, chunk_index, content, embedding FROM chunks ORDER BY seq`)
	if err != nil {
		return nil, nil, errors.Wrap(err, "query chunks")
	}
	defer rows.Close()
	var (
		chunks  []domain.Chunk
		vectors [][]float64
	)
	for rows.Next() {
		var (
			ch  domain.Chunk
			emb string
		)
		if err := rows.Scan(&ch.ChunkID, &ch.PassageID, &ch.ProductID, &ch.Index, &ch.Text, &emb); err != nil {
			return nil, nil, errors.Wrap(err, "scan chunk")
		}
		var v []float64
		if err := json.Unmarshal([]byte(emb), &v); err != nil {
			return nil, nil, errors.Wrapf(err, "decode embedding for %s", ch.ChunkID)
		}
		if len(v) != s.dimension {
			return nil, nil, errors.Errorf("chunk %s has dimension %d, index has %d", ch.ChunkID, len(v), s.dimension)
		}
		chunks = append(chunks, ch)
		vectors = append(vectors, v)
	}
	return chunks, vectors, errors.Wrap(rows.Err(), "iterate chunks")
}

// LoadInto copies the persisted index into dst, usually an in-memory store.
func (s *Storage) LoadInto(dst vectorstore.Storage) error {
	if s.Dimension() == 0 {
		return errors.New("index has no dimension; it was never initialized")
	}
	chunks, vectors, err := s.All()
	if err != nil {
		return err
	}
	if err := dst.Init(s.Dimension()); err != nil {
		return err
	}
	return dst.Upsert(chunks, vectors)
}
