package fulltext

// Config configures an Index at open/create time.
type Config struct {
	// Populate eagerly faults in every page of every mmap'd file at open,
	// marking the index RAM-resident (IsOnDisk reports false thereafter).
	Populate bool
}

// DefaultConfig returns sensible defaults: no eager population, so a
// freshly opened index is cold and subject to payload-IO accounting until
// the caller opts in.
func DefaultConfig() Config {
	return Config{Populate: false}
}
