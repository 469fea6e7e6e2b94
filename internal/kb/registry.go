package kb

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
)

// timeNow returns current time (allows for mock in tests).
var timeNow = time.Now

// SourceVersion is one ingestion of a source document.
type SourceVersion struct {
	Version    int       `json:"version"`
	ChunkCount int       `json:"chunk_count"`
	IngestedAt time.Time `json:"ingested_at"`
	Note       string    `json:"note,omitempty"`
}

// SourceRecord is the ingestion history of one source within a collection.
// The latest version's chunk count mirrors what the vector store holds.
type SourceRecord struct {
	ID             string          `json:"id"`
	Collection     string          `json:"collection"`
	Source         string          `json:"source"`
	CurrentVersion int             `json:"current_version"`
	Versions       []SourceVersion `json:"versions"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// Registry tracks which sources were ingested into which collection, using
// BadgerDB for persistence. It backs the management and statistics surfaces
// so the vector store never has to be scanned.
type Registry struct {
	db *badger.DB
}

// NewRegistry opens the registry database at dirPath.
func NewRegistry(dirPath string) (*Registry, error) {
	opts := badger.DefaultOptions(dirPath).
		WithLoggingLevel(badger.ERROR)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open registry database: %w", err)
	}
	return &Registry{db: db}, nil
}

// Close closes the BadgerDB instance.
func (r *Registry) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func registryKey(collection, source string) []byte {
	return []byte(collection + "/" + source)
}

// RecordIngest appends a new version to the source's ingestion history,
// creating the record on first ingest.
func (r *Registry) RecordIngest(collection, source string, chunkCount int, note string) error {
	return r.db.Update(func(txn *badger.Txn) error {
		rec := &SourceRecord{
			ID:         uuid.NewString(),
			Collection: collection,
			Source:     source,
			CreatedAt:  timeNow(),
		}

		item, err := txn.Get(registryKey(collection, source))
		if err == nil {
			if err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, rec)
			}); err != nil {
				return fmt.Errorf("failed to unmarshal source record: %w", err)
			}
		} else if err != badger.ErrKeyNotFound {
			return err
		}

		version := SourceVersion{
			Version:    len(rec.Versions) + 1,
			ChunkCount: chunkCount,
			IngestedAt: timeNow(),
			Note:       note,
		}
		rec.Versions = append(rec.Versions, version)
		rec.CurrentVersion = version.Version
		rec.UpdatedAt = timeNow()

		data, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("failed to marshal source record: %w", err)
		}
		return txn.Set(registryKey(collection, source), data)
	})
}

// Get returns the ingestion record for a source, or nil if never ingested.
func (r *Registry) Get(collection, source string) (*SourceRecord, error) {
	var rec *SourceRecord

	err := r.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(registryKey(collection, source))
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			rec = &SourceRecord{}
			return json.Unmarshal(val, rec)
		})
	})
	return rec, err
}

// Sources returns source name -> current chunk count for a collection.
func (r *Registry) Sources(collection string) (map[string]int, error) {
	sources := make(map[string]int)

	err := r.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchSize = 10
		prefix := []byte(collection + "/")

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var rec SourceRecord
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &rec)
			})
			if err != nil {
				continue
			}
			if len(rec.Versions) > 0 {
				sources[rec.Source] = rec.Versions[len(rec.Versions)-1].ChunkCount
			}
		}
		return nil
	})
	return sources, err
}

// Records returns the full ingestion history for a collection.
func (r *Registry) Records(collection string) ([]*SourceRecord, error) {
	var records []*SourceRecord

	err := r.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchSize = 10
		prefix := []byte(collection + "/")

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var rec SourceRecord
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &rec)
			})
			if err == nil {
				records = append(records, &rec)
			}
		}
		return nil
	})
	return records, err
}

// Delete removes the ingestion record for a source. Missing records are not
// an error; deletion mirrors an empty-result condition.
func (r *Registry) Delete(collection, source string) error {
	return r.db.Update(func(txn *badger.Txn) error {
		err := txn.Delete(registryKey(collection, source))
		if err == badger.ErrKeyNotFound {
			return nil
		}
		return err
	})
}

// DeleteCollection removes all ingestion records for a collection.
func (r *Registry) DeleteCollection(collection string) error {
	return r.db.Update(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		prefix := []byte(collection + "/")

		it := txn.NewIterator(opts)
		defer it.Close()

		var keys [][]byte
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			keys = append(keys, it.Item().KeyCopy(nil))
		}
		for _, key := range keys {
			if err := txn.Delete(key); err != nil {
				return err
			}
		}
		return nil
	})
}

// sanitizeSource strips path separators so a source name cannot escape its
// collection prefix in the registry keyspace.
func sanitizeSource(name string) string {
	name = strings.ReplaceAll(name, "/", "_")
	return strings.ReplaceAll(name, "\\", "_")
}
