package workflow

import (
	"fmt"
	"path/filepath"

	"github.com/deixis/fnreport/internal/config"
	"github.com/deixis/fnreport/internal/report"
)

// Default store locations, relative to the repository root.
const (
	DefaultDiskDir    = ".fnreport-runs"
	DefaultSQLitePath = ".fnreport.db"
)

// OpenStore builds the configured run store behind an LRU cache. The
// returned close function releases the backing store.
func OpenStore(cfg *config.Config, root string) (report.Store, func() error, error) {
	path := cfg.Store.Path
	if path != "" && !filepath.IsAbs(path) {
		path = filepath.Join(root, path)
	}

	switch driver := cfg.StoreDriver(); driver {
	case "disk":
		if path == "" {
			path = filepath.Join(root, DefaultDiskDir)
		}
		store := report.NewLRUStore(cfg.CacheSize(), report.NewDiskStore(path))
		return store, func() error { return nil }, nil
	case "sqlite":
		if path == "" {
			path = filepath.Join(root, DefaultSQLitePath)
		}
		db, err := report.OpenSQLiteStore(path)
		if err != nil {
			return nil, nil, err
		}
		return report.NewLRUStore(cfg.CacheSize(), db), db.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown store driver %q", driver)
	}
}
