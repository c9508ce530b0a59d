package stream

import "sync"

const maxTotalStreams = 1000

// streamLimiter caps concurrent streams per client and overall.
type streamLimiter struct {
	mu       sync.Mutex
	open     map[string]int
	total    int
	maxPerIP int
}

func newStreamLimiter(maxPerIP int) *streamLimiter {
	return &streamLimiter{open: make(map[string]int), maxPerIP: maxPerIP}
}

// acquire reserves a slot for ip, reporting false when either cap is hit.
func (l *streamLimiter) acquire(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.total >= maxTotalStreams || l.open[ip] >= l.maxPerIP {
		return false
	}
	l.open[ip]++
	l.total++
	return true
}

func (l *streamLimiter) release(ip string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.total--
	if l.open[ip]--; l.open[ip] <= 0 {
		delete(l.open, ip)
	}
}

func (l *streamLimiter) count(ip string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.open[ip]
}
