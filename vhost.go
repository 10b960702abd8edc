package feng

import (
	"sync/atomic"
)

// Vhost is a virtual host: a configuration grouping with its own
// connection policy and count.
type Vhost struct {
	// name of the virtual host.
	Name string

	// maximum number of simultaneous connections. 0 means unlimited.
	MaxConnections int64

	connectionCount int64
}

// ConnectionCount returns the number of clients currently attached to the
// virtual host.
func (v *Vhost) ConnectionCount() int64 {
	return atomic.LoadInt64(&v.connectionCount)
}

// addConn increments the connection count, enforcing MaxConnections.
func (v *Vhost) addConn() bool {
	n := atomic.AddInt64(&v.connectionCount, 1)
	if v.MaxConnections > 0 && n > v.MaxConnections {
		atomic.AddInt64(&v.connectionCount, -1)
		return false
	}
	return true
}

func (v *Vhost) removeConn() {
	atomic.AddInt64(&v.connectionCount, -1)
}
