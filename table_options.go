package kdftable

// TableOption is a functional option for configuring table storage.
type TableOption func(*tableConfig)

type tableConfig struct {
	anonymousMapping bool
	prefault         bool
}

func defaultTableConfig() *tableConfig {
	return &tableConfig{
		prefault: true,
	}
}

// WithAnonymousMapping places the rows in an anonymous memory mapping
// instead of the Go heap. The region is released by Table.Close.
//
// The full keyspace needs about 3.6 GB of rows. Mapped rows are never
// scanned or moved by the garbage collector and are returned to the OS
// as soon as the table is closed.
func WithAnonymousMapping() TableOption {
	return func(c *tableConfig) {
		c.anonymousMapping = true
	}
}

// WithoutPrefault skips asking the kernel to populate mapped pages up
// front. Pages are then faulted in lazily during enumeration.
// Only meaningful together with WithAnonymousMapping.
func WithoutPrefault() TableOption {
	return func(c *tableConfig) {
		c.prefault = false
	}
}
