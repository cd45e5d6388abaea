package voice

import "sync"

// Registry 记录每个会话的活跃连接数
type Registry struct {
	mu    sync.Mutex
	conns map[string]int
}

func NewRegistry() *Registry {
	return &Registry{conns: make(map[string]int)}
}

func (r *Registry) add(sessionID string) {
	r.mu.Lock()
	r.conns[sessionID]++
	r.mu.Unlock()
}

func (r *Registry) remove(sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.conns[sessionID] <= 1 {
		delete(r.conns, sessionID)
		return
	}
	r.conns[sessionID]--
}

// Active 返回当前连接总数
func (r *Registry) Active() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	total := 0
	for _, n := range r.conns {
		total += n
	}
	return total
}

// Sessions 返回有活跃连接的会话数
func (r *Registry) Sessions() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.conns)
}
