package codes

import (
	"context"

	"github.com/dmitrijs2005/playkeeper/internal/common"
	"github.com/puzpuzpuz/xsync/v3"
)

// MemoryIndex is an in-process Index for allocator tests. Claims are
// atomic per code.
type MemoryIndex struct {
	owners *xsync.MapOf[string, string]
}

func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{owners: xsync.NewMapOf[string, string]()}
}

func (m *MemoryIndex) Claim(_ context.Context, code, ownerID string) error {
	if _, loaded := m.owners.LoadOrStore(code, ownerID); loaded {
		return common.ErrCodeTaken
	}
	return nil
}

// Owner returns who holds code.
func (m *MemoryIndex) Owner(code string) (string, bool) {
	return m.owners.Load(code)
}

func (m *MemoryIndex) Len() int {
	return m.owners.Size()
}
