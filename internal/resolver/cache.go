package resolver

import (
	"net"
	"sync"
)

// lookupCache memoizes successful forward and reverse lookups for the
// process lifetime. There is no negative caching and no TTL-based expiry.
type lookupCache struct {
	mu      sync.Mutex
	forward map[string]net.IP // name -> address
	reverse map[string]string // address -> name
}

func newLookupCache() *lookupCache {
	return &lookupCache{
		forward: make(map[string]net.IP),
		reverse: make(map[string]string),
	}
}

func (c *lookupCache) getForward(name string) (net.IP, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	ip, ok := c.forward[name]
	return ip, ok
}

func (c *lookupCache) putForward(name string, ip net.IP) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.forward[name] = ip
}

func (c *lookupCache) getReverse(addr string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	name, ok := c.reverse[addr]
	return name, ok
}

func (c *lookupCache) putReverse(addr, name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reverse[addr] = name
}
