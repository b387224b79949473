// Package memstore is the in-process Store implementation: one map plus one
// sync.RWMutex per entity kind, the same shape the teacher's mock package
// used for its in-memory backend, generalized here to the prediction-market
// domain and with google/uuid standing in for the original's
// timestamp-plus-counter id scheme.
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ccmarkets/engine/internal/apperr"
	"github.com/ccmarkets/engine/internal/models"
	"github.com/ccmarkets/engine/internal/store"
)

// Store is a thread-safe in-memory implementation of store.Store.
type Store struct {
	usersMu sync.RWMutex
	users   map[string]*models.User
	// userLocks serializes WithUserLock per user id so two concurrent
	// bets/settlements against the same balance never interleave.
	userLocksMu sync.Mutex
	userLocks   map[string]*sync.Mutex

	marketsMu sync.RWMutex
	markets   map[string]*models.Market

	marketLocksMu sync.Mutex
	marketLocks   map[string]*sync.Mutex

	positionsMu sync.RWMutex
	positions   map[string]*models.Position

	tradesMu sync.RWMutex
	trades   []*models.Trade

	reportsMu sync.RWMutex
	reports   map[string]*models.OracleReport // keyed by oracleID+":"+marketID

	voteHistoryMu sync.RWMutex
	voteHistory   []*models.OracleVoteHistory

	auditMu sync.RWMutex
	audit   []*models.AuditEntry

	haltsMu sync.RWMutex
	halts   map[string]*models.EmergencyHalt // "" key = global halt
}

// New returns an empty Store ready to use.
func New() *Store {
	return &Store{
		users:       make(map[string]*models.User),
		userLocks:   make(map[string]*sync.Mutex),
		markets:     make(map[string]*models.Market),
		marketLocks: make(map[string]*sync.Mutex),
		positions:   make(map[string]*models.Position),
		reports:     make(map[string]*models.OracleReport),
		halts:       make(map[string]*models.EmergencyHalt),
	}
}

func reportKey(oracleID, marketID string) string { return oracleID + ":" + marketID }

// NewID returns a fresh identifier for any entity kind.
func NewID() string { return uuid.NewString() }

// ---------------------------------------------------------------------------
// Users
// ---------------------------------------------------------------------------

func (s *Store) CreateUser(ctx context.Context, u *models.User) error {
	s.usersMu.Lock()
	defer s.usersMu.Unlock()
	if u.ID == "" {
		u.ID = NewID()
	}
	if _, exists := s.users[u.ID]; exists {
		return apperr.Conflict("user %s already exists", u.ID)
	}
	cp := *u
	s.users[u.ID] = &cp
	return nil
}

func (s *Store) GetUser(ctx context.Context, id string) (*models.User, error) {
	s.usersMu.RLock()
	defer s.usersMu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return nil, apperr.NotFound("user %s not found", id)
	}
	cp := *u
	return &cp, nil
}

func (s *Store) GetUserByPseudonym(ctx context.Context, pseudonym string) (*models.User, error) {
	s.usersMu.RLock()
	defer s.usersMu.RUnlock()
	for _, u := range s.users {
		if u.Pseudonym == pseudonym {
			cp := *u
			return &cp, nil
		}
	}
	return nil, apperr.NotFound("user with pseudonym %q not found", pseudonym)
}

func (s *Store) ListUsersByBalance(ctx context.Context, limit int) ([]*models.User, error) {
	s.usersMu.RLock()
	defer s.usersMu.RUnlock()
	out := make([]*models.User, 0, len(s.users))
	for _, u := range s.users {
		cp := *u
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		bi := out[i].Available + out[i].Locked
		bj := out[j].Available + out[j].Locked
		return bi > bj
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) userLock(id string) *sync.Mutex {
	s.userLocksMu.Lock()
	defer s.userLocksMu.Unlock()
	l, ok := s.userLocks[id]
	if !ok {
		l = &sync.Mutex{}
		s.userLocks[id] = l
	}
	return l
}

// WithUserLock serializes mutation of a single user's balance fields. The
// mutator sees a fresh copy; on success the copy replaces the stored record.
func (s *Store) WithUserLock(ctx context.Context, id string, fn store.UserMutator) error {
	lock := s.userLock(id)
	lock.Lock()
	defer lock.Unlock()

	s.usersMu.RLock()
	u, ok := s.users[id]
	s.usersMu.RUnlock()
	if !ok {
		return apperr.NotFound("user %s not found", id)
	}
	cp := *u
	if err := fn(&cp); err != nil {
		return err
	}
	cp.UpdatedAt = timeNow()
	cp.Version++

	s.usersMu.Lock()
	s.users[id] = &cp
	s.usersMu.Unlock()
	return nil
}

// ---------------------------------------------------------------------------
// Markets
// ---------------------------------------------------------------------------

func (s *Store) CreateMarket(ctx context.Context, m *models.Market) error {
	s.marketsMu.Lock()
	defer s.marketsMu.Unlock()
	if m.ID == "" {
		m.ID = NewID()
	}
	if _, exists := s.markets[m.ID]; exists {
		return apperr.Conflict("market %s already exists", m.ID)
	}
	cp := *m
	s.markets[m.ID] = &cp
	return nil
}

func (s *Store) GetMarket(ctx context.Context, id string) (*models.Market, error) {
	s.marketsMu.RLock()
	defer s.marketsMu.RUnlock()
	m, ok := s.markets[id]
	if !ok {
		return nil, apperr.NotFound("market %s not found", id)
	}
	cp := *m
	return &cp, nil
}

func (s *Store) ListMarkets(ctx context.Context, status models.MarketStatus) ([]*models.Market, error) {
	s.marketsMu.RLock()
	defer s.marketsMu.RUnlock()
	out := make([]*models.Market, 0, len(s.markets))
	for _, m := range s.markets {
		if status != "" && m.Status != status {
			continue
		}
		cp := *m
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) marketLock(id string) *sync.Mutex {
	s.marketLocksMu.Lock()
	defer s.marketLocksMu.Unlock()
	l, ok := s.marketLocks[id]
	if !ok {
		l = &sync.Mutex{}
		s.marketLocks[id] = l
	}
	return l
}

// WithMarketLock serializes the read-modify-write sequence against a single
// market's pools/status: bet placement and settlement both go through here
// so no two trades race on the same pool and settlement can only run once.
func (s *Store) WithMarketLock(ctx context.Context, id string, fn store.MarketMutator) error {
	lock := s.marketLock(id)
	lock.Lock()
	defer lock.Unlock()

	s.marketsMu.RLock()
	m, ok := s.markets[id]
	s.marketsMu.RUnlock()
	if !ok {
		return apperr.NotFound("market %s not found", id)
	}
	cp := *m
	if err := fn(&cp); err != nil {
		return err
	}
	cp.UpdatedAt = timeNow()
	cp.Version++

	s.marketsMu.Lock()
	s.markets[id] = &cp
	s.marketsMu.Unlock()
	return nil
}

// ---------------------------------------------------------------------------
// Positions
// ---------------------------------------------------------------------------

func (s *Store) GetOpenPosition(ctx context.Context, userID, marketID string, side models.Side) (*models.Position, error) {
	s.positionsMu.RLock()
	defer s.positionsMu.RUnlock()
	for _, p := range s.positions {
		if p.UserID == userID && p.MarketID == marketID && p.Side == side && p.Status == models.PositionStatusOpen {
			cp := *p
			return &cp, nil
		}
	}
	return nil, apperr.NotFound("no open position for user %s market %s side %s", userID, marketID, side)
}

func (s *Store) SavePosition(ctx context.Context, p *models.Position) error {
	s.positionsMu.Lock()
	defer s.positionsMu.Unlock()
	if p.ID == "" {
		p.ID = NewID()
	}
	cp := *p
	s.positions[p.ID] = &cp
	return nil
}

func (s *Store) ListPositionsByMarket(ctx context.Context, marketID string, status models.PositionStatus) ([]*models.Position, error) {
	s.positionsMu.RLock()
	defer s.positionsMu.RUnlock()
	out := make([]*models.Position, 0)
	for _, p := range s.positions {
		if p.MarketID != marketID {
			continue
		}
		if status != "" && p.Status != status {
			continue
		}
		cp := *p
		out = append(out, &cp)
	}
	return out, nil
}

func (s *Store) ListPositionsByUser(ctx context.Context, userID string) ([]*models.Position, error) {
	s.positionsMu.RLock()
	defer s.positionsMu.RUnlock()
	out := make([]*models.Position, 0)
	for _, p := range s.positions {
		if p.UserID == userID {
			cp := *p
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// ---------------------------------------------------------------------------
// Trades
// ---------------------------------------------------------------------------

func (s *Store) AppendTrade(ctx context.Context, t *models.Trade) error {
	s.tradesMu.Lock()
	defer s.tradesMu.Unlock()
	if t.ID == "" {
		t.ID = NewID()
	}
	cp := *t
	s.trades = append(s.trades, &cp)
	return nil
}

// ---------------------------------------------------------------------------
// Oracle reports
// ---------------------------------------------------------------------------

func (s *Store) GetOracleReport(ctx context.Context, oracleID, marketID string) (*models.OracleReport, error) {
	s.reportsMu.RLock()
	defer s.reportsMu.RUnlock()
	r, ok := s.reports[reportKey(oracleID, marketID)]
	if !ok {
		return nil, apperr.NotFound("no report from oracle %s for market %s", oracleID, marketID)
	}
	cp := *r
	return &cp, nil
}

func (s *Store) SaveOracleReport(ctx context.Context, r *models.OracleReport) error {
	s.reportsMu.Lock()
	defer s.reportsMu.Unlock()
	if r.ID == "" {
		r.ID = NewID()
	}
	cp := *r
	s.reports[reportKey(r.OracleID, r.MarketID)] = &cp
	return nil
}

func (s *Store) ListOracleReports(ctx context.Context, marketID string) ([]*models.OracleReport, error) {
	s.reportsMu.RLock()
	defer s.reportsMu.RUnlock()
	out := make([]*models.OracleReport, 0)
	for _, r := range s.reports {
		if r.MarketID == marketID {
			cp := *r
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *Store) ListOracleReportsByOracle(ctx context.Context, oracleID string) ([]*models.OracleReport, error) {
	s.reportsMu.RLock()
	defer s.reportsMu.RUnlock()
	out := make([]*models.OracleReport, 0)
	for _, r := range s.reports {
		if r.OracleID == oracleID {
			cp := *r
			out = append(out, &cp)
		}
	}
	return out, nil
}

// ---------------------------------------------------------------------------
// Anti-Sybil vote history
// ---------------------------------------------------------------------------

func (s *Store) AppendVoteHistory(ctx context.Context, v *models.OracleVoteHistory) error {
	s.voteHistoryMu.Lock()
	defer s.voteHistoryMu.Unlock()
	if v.ID == "" {
		v.ID = NewID()
	}
	cp := *v
	s.voteHistory = append(s.voteHistory, &cp)
	return nil
}

func (s *Store) CountVotesSince(ctx context.Context, ipHash string, since time.Time) (int, error) {
	s.voteHistoryMu.RLock()
	defer s.voteHistoryMu.RUnlock()
	count := 0
	for _, v := range s.voteHistory {
		if v.IPHash == ipHash && v.CreatedAt.After(since) {
			count++
		}
	}
	return count, nil
}

// ---------------------------------------------------------------------------
// Audit
// ---------------------------------------------------------------------------

func (s *Store) AppendAudit(ctx context.Context, a *models.AuditEntry) error {
	s.auditMu.Lock()
	defer s.auditMu.Unlock()
	if a.ID == "" {
		a.ID = NewID()
	}
	cp := *a
	s.audit = append(s.audit, &cp)
	return nil
}

func (s *Store) ListAudit(ctx context.Context, limit int) ([]*models.AuditEntry, error) {
	s.auditMu.RLock()
	defer s.auditMu.RUnlock()
	n := len(s.audit)
	if limit <= 0 || limit > n {
		limit = n
	}
	out := make([]*models.AuditEntry, limit)
	for i := 0; i < limit; i++ {
		cp := *s.audit[n-1-i]
		out[i] = &cp
	}
	return out, nil
}

// ---------------------------------------------------------------------------
// Halts
// ---------------------------------------------------------------------------

func (s *Store) SetHalt(ctx context.Context, h *models.EmergencyHalt) error {
	s.haltsMu.Lock()
	defer s.haltsMu.Unlock()
	if h.ID == "" {
		h.ID = NewID()
	}
	cp := *h
	s.halts[h.MarketID] = &cp
	return nil
}

func (s *Store) GetHalt(ctx context.Context, marketID string) (*models.EmergencyHalt, error) {
	s.haltsMu.RLock()
	defer s.haltsMu.RUnlock()
	h, ok := s.halts[marketID]
	if !ok {
		return nil, apperr.NotFound("no halt record for %q", marketID)
	}
	cp := *h
	return &cp, nil
}

func (s *Store) IsHalted(ctx context.Context, marketID string) (bool, error) {
	s.haltsMu.RLock()
	defer s.haltsMu.RUnlock()
	if h, ok := s.halts[""]; ok && h.IsActive {
		return true, nil
	}
	if h, ok := s.halts[marketID]; ok && h.IsActive {
		return true, nil
	}
	return false, nil
}

// ---------------------------------------------------------------------------
// Stats
// ---------------------------------------------------------------------------

func (s *Store) Stats(ctx context.Context) (store.Stats, error) {
	s.usersMu.RLock()
	var lockedTotal, availableTotal float64
	for _, u := range s.users {
		lockedTotal += u.Locked
		availableTotal += u.Available
	}
	totalUsers := len(s.users)
	s.usersMu.RUnlock()

	s.marketsMu.RLock()
	active, resolved := 0, 0
	for _, m := range s.markets {
		switch m.Status {
		case models.MarketStatusActive:
			active++
		case models.MarketStatusResolvedTrue, models.MarketStatusResolvedFalse:
			resolved++
		}
	}
	totalMarkets := len(s.markets)
	s.marketsMu.RUnlock()

	s.tradesMu.RLock()
	totalTrades := len(s.trades)
	s.tradesMu.RUnlock()

	s.voteHistoryMu.RLock()
	totalVotes := len(s.voteHistory)
	s.voteHistoryMu.RUnlock()

	return store.Stats{
		TotalUsers:       totalUsers,
		TotalMarkets:     totalMarkets,
		ActiveMarkets:    active,
		ResolvedMarkets:  resolved,
		TotalCCLocked:    lockedTotal,
		TotalCCAvailable: availableTotal,
		TotalTrades:      totalTrades,
		TotalOracleVotes: totalVotes,
	}, nil
}

// timeNow is indirected so tests could swap it; production uses wall clock.
var timeNow = func() time.Time { return time.Now().UTC() }
