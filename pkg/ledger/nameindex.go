package ledger

import (
	"strings"
	"sync"

	"github.com/google/btree"
)

// nameEntry is one key in the name index: a normalized full name and the
// owner ids registered under it, in registration order.
type nameEntry struct {
	name   string
	owners []int64
}

func lessName(a, b *nameEntry) bool { return a.name < b.name }

// NameIndex is an ordered index from normalized full name to the owner ids
// sharing that name. Duplicate names accumulate under one key rather than
// overwriting. Removal is not supported; owner deletion is outside this
// core's scope, so a deleted owner's name would linger (known gap).
type NameIndex struct {
	mu   sync.RWMutex
	tree *btree.BTreeG[*nameEntry]
}

// NewNameIndex creates an empty NameIndex.
func NewNameIndex() *NameIndex {
	return &NameIndex{tree: btree.NewG(2, lessName)}
}

// NormalizeName case-folds and whitespace-collapses a full name into the
// canonical index key.
func NormalizeName(name string) string {
	return strings.ToLower(strings.Join(strings.Fields(name), " "))
}

// Insert records ownerID under the normalized name.
func (n *NameIndex) Insert(name string, ownerID int64) {
	key := NormalizeName(name)
	n.mu.Lock()
	defer n.mu.Unlock()
	if e, ok := n.tree.Get(&nameEntry{name: key}); ok {
		e.owners = append(e.owners, ownerID)
		return
	}
	n.tree.ReplaceOrInsert(&nameEntry{name: key, owners: []int64{ownerID}})
}

// ExactMatch returns every owner id registered under the normalized name,
// in registration order; the slice is empty when none match.
func (n *NameIndex) ExactMatch(name string) []int64 {
	key := NormalizeName(name)
	n.mu.RLock()
	defer n.mu.RUnlock()
	e, ok := n.tree.Get(&nameEntry{name: key})
	if !ok {
		return nil
	}
	return append([]int64(nil), e.owners...)
}

// replace swaps in the tree of a freshly built index, used by the
// load-from-store rebuild.
func (n *NameIndex) replace(fresh *NameIndex) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.tree = fresh.tree
}

// Len returns the number of distinct normalized names.
func (n *NameIndex) Len() int {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.tree.Len()
}
