package vectorstore

import (
	"fmt"
	"path/filepath"
)

// OpenConfig carries the settings Open needs to construct whichever
// backend is selected.
type OpenConfig struct {
	Backend  string
	DataDir  string
	NATSURL  string
	Dims     int
}

// Open constructs the Store named by cfg.Backend. BackendDense requires
// the binary to have been built with -tags sqlite_vec and returns
// errUnsupportedBackend otherwise.
func Open(cfg OpenConfig) (Store, error) {
	switch cfg.Backend {
	case BackendExternal:
		return OpenExternal(cfg.NATSURL)
	case BackendDense:
		return openDenseBackend(filepath.Join(cfg.DataDir, "vectors_dense.db"), cfg.Dims)
	case BackendEmbedded, "":
		return OpenEmbedded(filepath.Join(cfg.DataDir, "vectors_embedded.db"))
	default:
		return nil, fmt.Errorf("vectorstore: unknown backend %q", cfg.Backend)
	}
}
