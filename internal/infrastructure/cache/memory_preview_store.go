package cache

import (
	"context"
	"sync"
	"time"

	domain "github.com/mohammadpnp/member-import/internal/domain/member"
)

type memoryEntry struct {
	report    domain.PreviewReport
	claimed   bool
	expiresAt time.Time
}

// MemoryPreviewStore is the single-process preview store used when no
// Redis address is configured.
type MemoryPreviewStore struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	entries map[string]memoryEntry
}

func NewMemoryPreviewStore(ttl time.Duration) *MemoryPreviewStore {
	if ttl <= 0 {
		ttl = DefaultPreviewTTL
	}
	return &MemoryPreviewStore{
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]memoryEntry),
	}
}

func (s *MemoryPreviewStore) Save(_ context.Context, report domain.PreviewReport) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[report.FileKey] = memoryEntry{report: report, expiresAt: s.now().Add(s.ttl)}
	return nil
}

func (s *MemoryPreviewStore) Load(_ context.Context, fileKey string) (domain.PreviewReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.live(fileKey)
	if !ok {
		return domain.PreviewReport{}, domain.ErrPreviewNotFound
	}
	return entry.report, nil
}

func (s *MemoryPreviewStore) Claim(_ context.Context, fileKey string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.live(fileKey)
	if !ok {
		return false, domain.ErrPreviewNotFound
	}
	if entry.claimed {
		return false, nil
	}
	entry.claimed = true
	s.entries[fileKey] = entry
	return true, nil
}

func (s *MemoryPreviewStore) Release(_ context.Context, fileKey string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entry, ok := s.live(fileKey); ok {
		entry.claimed = false
		s.entries[fileKey] = entry
	}
	return nil
}

// live must be called with mu held.
func (s *MemoryPreviewStore) live(fileKey string) (memoryEntry, bool) {
	entry, ok := s.entries[fileKey]
	if !ok {
		return memoryEntry{}, false
	}
	if !s.now().Before(entry.expiresAt) {
		delete(s.entries, fileKey)
		return memoryEntry{}, false
	}
	return entry, true
}
