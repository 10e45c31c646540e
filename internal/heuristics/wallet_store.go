package heuristics

import (
	"github.com/rawblock/smurfing-engine/pkg/models"
)

// WalletStore owns the address → Wallet records shared by every analysis
// stage. The suspicion scorer creates entries, later stages enrich them in
// place, and nothing ever removes one. The caller controls its lifetime;
// the store is not safe for concurrent use on its own.
type WalletStore struct {
	wallets map[string]*models.Wallet
	order   []string
}

// NewWalletStore creates an empty store.
func NewWalletStore() *WalletStore {
	return &WalletStore{
		wallets: make(map[string]*models.Wallet),
	}
}

// Get returns the wallet for addr, if it has been scored.
func (s *WalletStore) Get(addr string) (*models.Wallet, bool) {
	w, ok := s.wallets[addr]
	return w, ok
}

// GetOrCreate returns the wallet for addr, creating an empty record on
// first sight.
func (s *WalletStore) GetOrCreate(addr string) *models.Wallet {
	if w, ok := s.wallets[addr]; ok {
		return w
	}
	w := &models.Wallet{
		Address: addr,
		Rhythm:  models.RhythmNormal,
		Role:    models.RoleNormal,
	}
	s.wallets[addr] = w
	s.order = append(s.order, addr)
	return w
}

// All returns every wallet in creation order.
func (s *WalletStore) All() []*models.Wallet {
	out := make([]*models.Wallet, 0, len(s.order))
	for _, addr := range s.order {
		out = append(out, s.wallets[addr])
	}
	return out
}

// Len is the number of wallets in the store.
func (s *WalletStore) Len() int {
	return len(s.order)
}

// SetManualFlag records an investigator verdict. It reports false when the
// wallet is unknown.
func (s *WalletStore) SetManualFlag(addr string, flag models.ManualFlag) bool {
	w, ok := s.wallets[addr]
	if !ok {
		return false
	}
	w.ManualFlag = flag
	return true
}
