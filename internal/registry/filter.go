package registry

import "sync"

// Filter is an in-memory set of tracked addresses. Base58 addresses are
// case-sensitive, so entries are kept exactly as registered.
type Filter struct {
	addresses map[string]struct{}
	mu        sync.RWMutex
}

// NewFilter creates an empty tracked-address filter.
func NewFilter() *Filter {
	return &Filter{
		addresses: make(map[string]struct{}),
	}
}

// Contains checks if an address is tracked.
func (f *Filter) Contains(address string) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	_, exists := f.addresses[address]
	return exists
}

// Add adds an address to the filter.
func (f *Filter) Add(address string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.addresses[address] = struct{}{}
}

// AddBatch adds multiple addresses.
func (f *Filter) AddBatch(addresses []string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, addr := range addresses {
		f.addresses[addr] = struct{}{}
	}
}

// Remove removes an address from the filter.
func (f *Filter) Remove(address string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.addresses, address)
}

// Size returns the number of tracked addresses.
func (f *Filter) Size() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.addresses)
}

// Addresses returns the list of all tracked addresses.
func (f *Filter) Addresses() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	result := make([]string, 0, len(f.addresses))
	for addr := range f.addresses {
		result = append(result, addr)
	}
	return result
}
