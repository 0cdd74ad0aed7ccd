package cachectl

// Op names the store operation behind a CacheError event.
type Op string

const (
	OpRead  Op = "read"
	OpWrite Op = "write"
)

// Observer receives cache events. Implementations must be safe for
// concurrent use and must not block.
type Observer interface {
	CacheHit(url string)
	CacheStored(url string)
	CacheError(op Op, url string, err error)
}

// NopObserver discards every event.
type NopObserver struct{}

func (NopObserver) CacheHit(string) {}

func (NopObserver) CacheStored(string) {}

func (NopObserver) CacheError(Op, string, error) {}
