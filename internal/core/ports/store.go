package ports

// ArtifactStore caches processed file contents keyed by their source content.
//
//go:generate mockgen -source=store.go -destination=mocks/mock_store.go -package=mocks
type ArtifactStore interface {
	// Get returns the cached bytes for key. ok is false on a miss.
	Get(key string) (data []byte, ok bool, err error)
	// Put stores data under key.
	Put(key string, data []byte) error
}
