package service

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/famzila/contract-whisperer-backend/config"
	"github.com/famzila/contract-whisperer-backend/model"
)

// ErrCacheMiss is returned when no cached analysis exists for a contract.
var ErrCacheMiss = errors.New("analysis not found in cache")

const analysisKeyPrefix = "analysis:"

// CachedAnalysis is one entry in the persistent cache.
type CachedAnalysis struct {
	ContractID string          `json:"contract_id"`
	Filename   string          `json:"filename"`
	Tenant     string          `json:"tenant"`
	Analysis   *model.Analysis `json:"analysis"`
	CachedAt   time.Time       `json:"cached_at"`
}

// AnalysisCache keeps the last few finished analyses on disk so a reload
// doesn't lose them. The cache is bounded; storing a new entry evicts the
// oldest beyond the limit.
type AnalysisCache struct {
	db         *badger.DB
	maxEntries int
	log        *slog.Logger
}

func NewAnalysisCache(cfg *config.CacheConfig, log *slog.Logger) (*AnalysisCache, error) {
	if log == nil {
		log = slog.Default()
	}
	maxEntries := cfg.MaxEntries
	if maxEntries <= 0 {
		maxEntries = 10
	}

	opts := badger.DefaultOptions(cfg.Path).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open analysis cache: %w", err)
	}

	return &AnalysisCache{db: db, maxEntries: maxEntries, log: log}, nil
}

func (c *AnalysisCache) Close() error {
	return c.db.Close()
}

func analysisKey(contractID string) []byte {
	return []byte(analysisKeyPrefix + contractID)
}

// Put stores an analysis and trims the cache back to its bound.
func (c *AnalysisCache) Put(entry CachedAnalysis) error {
	if entry.CachedAt.IsZero() {
		entry.CachedAt = time.Now()
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal cached analysis: %w", err)
	}

	err = c.db.Update(func(txn *badger.Txn) error {
		return txn.Set(analysisKey(entry.ContractID), data)
	})
	if err != nil {
		return fmt.Errorf("store cached analysis: %w", err)
	}

	return c.trim()
}

// Get fetches one cached analysis by contract id.
func (c *AnalysisCache) Get(contractID string) (*CachedAnalysis, error) {
	var entry CachedAnalysis

	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(analysisKey(contractID))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrCacheMiss
		}
		if err != nil {
			return err
		}
		return item.Value(func(v []byte) error {
			return json.Unmarshal(v, &entry)
		})
	})
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// List returns all cached analyses, newest first.
func (c *AnalysisCache) List() ([]CachedAnalysis, error) {
	var entries []CachedAnalysis

	err := c.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = true
		prefix := []byte(analysisKeyPrefix)

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			err := it.Item().Value(func(v []byte) error {
				var entry CachedAnalysis
				if err := json.Unmarshal(v, &entry); err != nil {
					return fmt.Errorf("unmarshal cached analysis: %w", err)
				}
				entries = append(entries, entry)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].CachedAt.After(entries[j].CachedAt)
	})
	return entries, nil
}

// Delete removes one cached analysis. Deleting a missing entry is not an
// error.
func (c *AnalysisCache) Delete(contractID string) error {
	return c.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(analysisKey(contractID))
	})
}

// trim evicts the oldest entries beyond the bound.
func (c *AnalysisCache) trim() error {
	entries, err := c.List()
	if err != nil {
		return err
	}
	if len(entries) <= c.maxEntries {
		return nil
	}

	for _, entry := range entries[c.maxEntries:] {
		c.log.Info("evicting cached analysis",
			"contract_id", entry.ContractID,
			"cached_at", entry.CachedAt,
		)
		if err := c.Delete(entry.ContractID); err != nil {
			return err
		}
	}
	return nil
}
