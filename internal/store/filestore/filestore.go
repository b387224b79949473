// Package filestore adds periodic JSON-snapshot persistence on top of
// memstore, following the snapshot-to-disk shape of the teacher's
// internal/persistence package. Only users and markets are snapshotted; no
// audit archive is written.
package filestore

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/ccmarkets/engine/internal/models"
	"github.com/ccmarkets/engine/internal/store"
	"github.com/ccmarkets/engine/internal/store/memstore"
)

// Config controls snapshot cadence and location.
type Config struct {
	Enabled      bool
	DataDir      string
	SaveInterval time.Duration
}

// snapshot holds the users and markets memstore holds, analogous to the
// teacher's DataSnapshot.
type snapshot struct {
	SavedAt time.Time               `json:"saved_at"`
	Users   []*models.User          `json:"users"`
	Markets []*models.Market        `json:"markets"`
}

// Store wraps *memstore.Store and periodically flushes a JSON snapshot of
// the entities that matter for recovery (users, markets — positions/trades/
// reports are reconstructible audit detail in this demo-scale deployment,
// same trade-off the teacher made by snapshotting only primary entities and
// archiving the append-only audit log separately).
type Store struct {
	*memstore.Store

	cfg    Config
	stopCh chan struct{}
	wg     sync.WaitGroup
}

// New builds a filestore.Store, loading the latest snapshot if present and
// enabled, then starting the periodic save loop.
func New(cfg Config) *Store {
	s := &Store{
		Store:  memstore.New(),
		cfg:    cfg,
		stopCh: make(chan struct{}),
	}
	if !cfg.Enabled {
		return s
	}
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		log.Printf("filestore: could not create data dir %s: %v", cfg.DataDir, err)
		return s
	}
	if err := s.loadLatest(); err != nil {
		log.Printf("filestore: no snapshot loaded: %v", err)
	}
	interval := cfg.SaveInterval
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	s.wg.Add(1)
	go s.saveLoop(interval)
	return s
}

func (s *Store) saveLoop(interval time.Duration) {
	defer s.wg.Done()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if err := s.SaveSnapshot(); err != nil {
				log.Printf("filestore: periodic save failed: %v", err)
			}
		case <-s.stopCh:
			return
		}
	}
}

// Stop flushes a final snapshot and halts the background save loop.
func (s *Store) Stop() {
	if !s.cfg.Enabled {
		return
	}
	close(s.stopCh)
	s.wg.Wait()
	if err := s.SaveSnapshot(); err != nil {
		log.Printf("filestore: final save failed: %v", err)
	}
}

// SaveSnapshot writes the current state to a timestamped JSON file.
func (s *Store) SaveSnapshot() error {
	ctx := context.Background()
	users, err := s.ListUsersByBalance(ctx, 0)
	if err != nil {
		return err
	}
	markets, err := s.ListMarkets(ctx, "")
	if err != nil {
		return err
	}
	snap := snapshot{SavedAt: time.Now().UTC(), Users: users, Markets: markets}

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return err
	}
	name := fmt.Sprintf("snapshot-%s.json", snap.SavedAt.Format("20060102-150405"))
	path := filepath.Join(s.cfg.DataDir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return err
	}
	latest := filepath.Join(s.cfg.DataDir, "latest.json")
	return os.WriteFile(latest, data, 0o644)
}

// loadLatest restores users and markets from the latest.json snapshot, if any.
func (s *Store) loadLatest() error {
	path := filepath.Join(s.cfg.DataDir, "latest.json")
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return err
	}
	ctx := context.Background()
	for _, u := range snap.Users {
		if err := s.CreateUser(ctx, u); err != nil {
			log.Printf("filestore: restore user %s: %v", u.ID, err)
		}
	}
	for _, m := range snap.Markets {
		if err := s.CreateMarket(ctx, m); err != nil {
			log.Printf("filestore: restore market %s: %v", m.ID, err)
		}
	}
	log.Printf("filestore: restored %d users, %d markets from %s", len(snap.Users), len(snap.Markets), path)
	return nil
}

var _ store.Store = (*Store)(nil)
