package pagedb

// Option configures a DB at open time.
type Option func(*config)

type config struct {
	linearScan bool
	syncWrites bool
}

// WithLinearScan disables the in-memory index. Every operation resolves
// keys by scanning all allocated pages: O(n) per operation, zero extra
// memory, no rebuild cost at open.
func WithLinearScan() Option {
	return func(c *config) {
		c.linearScan = true
	}
}

// WithSyncWrites fsyncs after every page write instead of only at close
// and checkpoints. Individual puts and deletes become durable at the
// cost of throughput.
func WithSyncWrites() Option {
	return func(c *config) {
		c.syncWrites = true
	}
}
