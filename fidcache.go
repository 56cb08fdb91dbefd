package tieba

import "sync"

// FidCache maps forum names to forum ids. Forum ids never change, so
// entries do not expire.
type FidCache interface {
	// Fid returns the cached id of fname, or false if not known.
	Fid(fname string) (uint64, bool)
	// PutFid records the id of fname.
	PutFid(fname string, fid uint64) error
	Close() error
}

// MemFidCache is a FidCache held in memory.
type MemFidCache struct {
	mu   sync.RWMutex
	fids map[string]uint64
}

// NewMemFidCache returns an empty MemFidCache.
func NewMemFidCache() *MemFidCache {
	return &MemFidCache{fids: make(map[string]uint64)}
}

func (mc *MemFidCache) Fid(fname string) (uint64, bool) {
	mc.mu.RLock()
	defer mc.mu.RUnlock()
	fid, ok := mc.fids[fname]
	return fid, ok
}

func (mc *MemFidCache) PutFid(fname string, fid uint64) error {
	mc.mu.Lock()
	mc.fids[fname] = fid
	mc.mu.Unlock()
	return nil
}

func (mc *MemFidCache) Close() error { return nil }
