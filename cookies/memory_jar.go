package cookies

import "sync"

type memoryEntry struct {
	value string
	attrs Attributes
	setAt int64
}

// MemoryJar is a process-local cookie jar, the equivalent of a browser's document cookies.
type MemoryJar struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
}

var _ Jar = (*MemoryJar)(nil)

// NewMemoryJar creates an empty jar.
func NewMemoryJar() *MemoryJar {
	return &MemoryJar{entries: make(map[string]memoryEntry)}
}

func (j *MemoryJar) Get(name string) (string, bool) {
	j.mu.RLock()
	e, ok := j.entries[name]
	j.mu.RUnlock()
	if !ok {
		return "", false
	}
	if e.isExpired() {
		j.evict(name)
		return "", false
	}
	return e.value, true
}

// evict deletes name if it is still expired. A Set since the caller looked is kept.
func (j *MemoryJar) evict(name string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if e, ok := j.entries[name]; ok && e.isExpired() {
		delete(j.entries, name)
	}
}

func (j *MemoryJar) Set(name, value string, attrs Attributes) {
	if attrs.expired() {
		j.Delete(name)
		return
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	j.entries[name] = memoryEntry{value: value, attrs: attrs, setAt: NowTimeFunc().Unix()}
}

func (j *MemoryJar) Delete(name string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	delete(j.entries, name)
}

// Attributes returns the attributes the named cookie was stored with.
func (j *MemoryJar) Attributes(name string) (Attributes, bool) {
	j.mu.RLock()
	defer j.mu.RUnlock()
	e, ok := j.entries[name]
	return e.attrs, ok
}

func (e memoryEntry) isExpired() bool {
	if e.attrs.MaxAge > 0 && NowTimeFunc().Unix() >= e.setAt+int64(e.attrs.MaxAge) {
		return true
	}
	return e.attrs.expired()
}
