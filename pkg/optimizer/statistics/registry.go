package statistics

import (
	"sync"

	"tupledb/pkg/config"
	"tupledb/pkg/database"
	"tupledb/pkg/logging"
)

// Registry is a thread-safe mapping from table name to its statistics.
type Registry struct {
	mutex sync.RWMutex
	stats map[string]*TableStats
}

func NewRegistry() *Registry {
	return &Registry{
		stats: make(map[string]*TableStats),
	}
}

// Get returns the statistics for a table name, if computed.
func (r *Registry) Get(tableName string) (*TableStats, bool) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	ts, exists := r.stats[tableName]
	return ts, exists
}

// Set installs statistics for a table name.
func (r *Registry) Set(tableName string, ts *TableStats) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.stats[tableName] = ts
}

// ComputeStatistics scans every table in the catalog and populates the
// registry, using the configured IO cost per page.
func (r *Registry) ComputeStatistics(db *database.Database) error {
	log := logging.WithComponent("Statistics")
	ioCost := config.IOCostPerPage()

	for _, tableID := range db.Catalog().TableIDs() {
		name, err := db.Catalog().GetTableName(tableID)
		if err != nil {
			return err
		}

		ts, err := NewTableStats(db, tableID, ioCost)
		if err != nil {
			return err
		}
		r.Set(name, ts)

		log.WithField("table", name).
			WithField("tuples", ts.TotalTuples()).
			Debug("computed table statistics")
	}
	return nil
}

// defaultRegistry is the process-wide registry consumed by the planner.
var defaultRegistry = NewRegistry()

// GetTableStats returns statistics for a table from the process-wide
// registry.
func GetTableStats(tableName string) (*TableStats, bool) {
	return defaultRegistry.Get(tableName)
}

// SetTableStats installs statistics into the process-wide registry.
func SetTableStats(tableName string, ts *TableStats) {
	defaultRegistry.Set(tableName, ts)
}

// ComputeStatistics populates the process-wide registry from the catalog.
func ComputeStatistics(db *database.Database) error {
	return defaultRegistry.ComputeStatistics(db)
}
