// Package bufpool reduces per-request allocations on the two hot paths
// that run once per RPC call: tokenization (int32 token slices, one per
// translation) and image decoding (byte buffers, one per OCR request).
//
// Adapted from gittool-Mimir's pkg/pool/pool.go: global enable/disable
// switch, a sync.Pool per object shape, a max-size cutoff so an unusually
// large buffer isn't retained forever. That file pools query-result rows
// and graph-node slices for a Cypher engine; this package keeps the same
// mechanism but pools the two buffer shapes this sidecar actually produces.
package bufpool

import "sync"

// Config controls whether pooling is active and the largest buffer a pool
// will retain before letting the GC reclaim it.
type Config struct {
	Enabled bool
	MaxSize int
}

var globalConfig = Config{Enabled: true, MaxSize: 1 << 20} // 1 MiB

// Configure sets the global pool configuration. Call early during
// bootstrap, before the first request is served.
func Configure(c Config) { globalConfig = c }

var tokenPool = sync.Pool{
	New: func() any { return make([]int32, 0, 256) },
}

// GetTokenSlice returns a zero-length int32 slice for tokenization.
func GetTokenSlice() []int32 {
	if !globalConfig.Enabled {
		return make([]int32, 0, 256)
	}
	return tokenPool.Get().([]int32)[:0]
}

// PutTokenSlice returns a token slice to the pool.
func PutTokenSlice(s []int32) {
	if !globalConfig.Enabled || cap(s) > globalConfig.MaxSize {
		return
	}
	tokenPool.Put(s[:0])
}

var byteBufferPool = sync.Pool{
	New: func() any { return make([]byte, 0, 64*1024) },
}

// GetByteBuffer returns a zero-length byte slice sized for a typical
// screenshot payload.
func GetByteBuffer() []byte {
	if !globalConfig.Enabled {
		return make([]byte, 0, 64*1024)
	}
	return byteBufferPool.Get().([]byte)[:0]
}

// PutByteBuffer returns a byte buffer to the pool. Buffers larger than
// MaxSize are dropped rather than retained, matching the teacher's
// "don't pool very large slices (memory leak prevention)" rule.
func PutByteBuffer(b []byte) {
	if !globalConfig.Enabled || cap(b) > globalConfig.MaxSize {
		return
	}
	byteBufferPool.Put(b[:0])
}

// IsEnabled reports whether pooling is currently active.
func IsEnabled() bool { return globalConfig.Enabled }
