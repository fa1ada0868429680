package filerecord

import (
	"context"
	"database/sql"
	"time"

	_ "github.com/lib/pq"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/extra/bundebug"

	"document-qa/internal/config"
)

// FileRecord tracks one ingested source file. Records are never physically
// removed, only marked deleted. For a record with status "indexed" the
// fingerprint equals the hash computed when its chunks were last written to
// the vector engine.
type FileRecord struct {
	bun.BaseModel `bun:"table:file_records,alias:fr"`

	Path        string    `bun:"path,pk"`
	Fingerprint string    `bun:"fingerprint,notnull"`
	Size        int64     `bun:"size,notnull"`
	ModTime     time.Time `bun:"mod_time,notnull"`
	IndexedAt   time.Time `bun:"indexed_at,notnull"`
	Category    string    `bun:"category,notnull"`
	ChunkCount  int       `bun:"chunk_count,notnull"`
	Status      string    `bun:"status,notnull"`
}

// Store is the persistence contract the indexer depends on.
type Store interface {
	Upsert(ctx context.Context, rec *FileRecord) error
	Get(ctx context.Context, path string) (*FileRecord, error)
	KnownHashes(ctx context.Context) (map[string]string, error)
	MarkDeleted(ctx context.Context, path string) error
}

// PGStore persists file records in postgres through bun.
type PGStore struct {
	db *bun.DB
}

func ConnectDB(cfg *config.DBConfig) (*sql.DB, error) {
	return sql.OpenDB(pgdriver.NewConnector(
		pgdriver.WithDSN(cfg.DSN),
		pgdriver.WithPassword(cfg.Password),
	)), nil
}

func NewStore(sqldb *sql.DB, debug bool) *PGStore {
	db := bun.NewDB(sqldb, pgdialect.New())
	if debug {
		db.AddQueryHook(bundebug.NewQueryHook(bundebug.WithVerbose(true)))
	}
	return &PGStore{db: db}
}

func (s *PGStore) Init(ctx context.Context) error {
	_, err := s.db.NewCreateTable().Model((*FileRecord)(nil)).IfNotExists().Exec(ctx)
	return err
}

func (s *PGStore) Upsert(ctx context.Context, rec *FileRecord) error {
	_, err := s.db.NewInsert().
		Model(rec).
		On("CONFLICT (path) DO UPDATE").
		Set("fingerprint = EXCLUDED.fingerprint").
		Set("size = EXCLUDED.size").
		Set("mod_time = EXCLUDED.mod_time").
		Set("indexed_at = EXCLUDED.indexed_at").
		Set("category = EXCLUDED.category").
		Set("chunk_count = EXCLUDED.chunk_count").
		Set("status = EXCLUDED.status").
		Exec(ctx)
	return err
}

func (s *PGStore) Get(ctx context.Context, path string) (*FileRecord, error) {
	rec := new(FileRecord)
	err := s.db.NewSelect().Model(rec).Where("path = ?", path).Scan(ctx)
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// KnownHashes returns path → fingerprint for every record not marked deleted.
func (s *PGStore) KnownHashes(ctx context.Context) (map[string]string, error) {
	var recs []FileRecord
	err := s.db.NewSelect().
		Model(&recs).
		Column("path", "fingerprint").
		Where("status != ?", "deleted").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	hashes := make(map[string]string, len(recs))
	for _, rec := range recs {
		hashes[rec.Path] = rec.Fingerprint
	}
	return hashes, nil
}

func (s *PGStore) MarkDeleted(ctx context.Context, path string) error {
	_, err := s.db.NewUpdate().
		Model((*FileRecord)(nil)).
		Set("status = ?", "deleted").
		Where("path = ?", path).
		Exec(ctx)
	return err
}

func (s *PGStore) Close() error {
	return s.db.Close()
}
