package storage

import (
	"encoding/json"
	"os"
	"strconv"
	"time"

	"github.com/dgraph-io/badger/v4"
)

// Storage keys
const (
	keyOptionsPrefix = "options/"
	keyStats         = "stats"
	keyStrength      = "adapt_strength"
)

// GameStats accumulates results across adapter sessions.
type GameStats struct {
	GamesPlayed  int            `json:"games_played"`
	Wins         int            `json:"wins"`
	Losses       int            `json:"losses"`
	Draws        int            `json:"draws"`
	WinsByEngine map[string]int `json:"wins_by_engine"`
	LastPlayed   time.Time      `json:"last_played"`
}

// NewGameStats returns empty statistics.
func NewGameStats() *GameStats {
	return &GameStats{WinsByEngine: make(map[string]int)}
}

// GameResult describes one finished game from the engine's side.
type GameResult struct {
	Engine string
	Won    bool
	Draw   bool
}

// Store wraps BadgerDB for the adapter's persistent state: saved engine
// options, game statistics and the adaptive backend's strength slot.
// A nil *Store is valid and silently drops every operation, so callers
// need not guard against a failed open.
type Store struct {
	db *badger.DB
}

// Open opens (creating if needed) the database under dir.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	opts := badger.DefaultOptions(dir)
	opts.Logger = nil // Disable logging
	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}
	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// SaveOptions persists the option values set for one engine.
func (s *Store) SaveOptions(engine string, options map[string]string) error {
	if s == nil {
		return nil
	}
	data, err := json.Marshal(options)
	if err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(keyOptionsPrefix+engine), data)
	})
}

// LoadOptions returns the saved option values for one engine, or an
// empty map when none were saved.
func (s *Store) LoadOptions(engine string) (map[string]string, error) {
	options := make(map[string]string)
	if s == nil {
		return options, nil
	}
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(keyOptionsPrefix + engine))
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &options)
		})
	})
	return options, err
}

// LoadStats returns accumulated statistics, empty when none exist.
func (s *Store) LoadStats() (*GameStats, error) {
	stats := NewGameStats()
	if s == nil {
		return stats, nil
	}
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(keyStats))
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, stats)
		})
	})
	return stats, err
}

// RecordGame folds one finished game into the statistics.
func (s *Store) RecordGame(result GameResult) error {
	if s == nil {
		return nil
	}
	stats, err := s.LoadStats()
	if err != nil {
		return err
	}
	stats.GamesPlayed++
	stats.LastPlayed = time.Now()
	switch {
	case result.Draw:
		stats.Draws++
	case result.Won:
		stats.Wins++
		stats.WinsByEngine[result.Engine]++
	default:
		stats.Losses++
	}
	data, err := json.Marshal(stats)
	if err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(keyStats), data)
	})
}

// SaveStrength stores the adaptive backend's rolling strength estimate.
func (s *Store) SaveStrength(v float64) error {
	if s == nil {
		return nil
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(keyStrength), []byte(strconv.FormatFloat(v, 'g', -1, 64)))
	})
}

// LoadStrength returns the saved strength estimate, zero when unset.
func (s *Store) LoadStrength() (float64, error) {
	if s == nil {
		return 0, nil
	}
	var v float64
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(keyStrength))
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			parsed, err := strconv.ParseFloat(string(val), 64)
			if err != nil {
				return err
			}
			v = parsed
			return nil
		})
	})
	return v, err
}
