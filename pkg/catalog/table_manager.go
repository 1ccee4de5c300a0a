// Package catalog provides the table catalog consumed by the storage
// engine: the mapping between table names, table ids, and database files.
package catalog

import (
	"sync"

	"github.com/pkg/errors"

	"tupledb/pkg/dberr"
	"tupledb/pkg/storage/page"
	"tupledb/pkg/tuple"
)

// tableInfo ties one database file to its name.
type tableInfo struct {
	file page.DbFile
	name string
}

// TableManager is a thread-safe catalog of tables, keyed both ways: by name
// and by the file's stable table id.
type TableManager struct {
	mutex       sync.RWMutex
	nameToTable map[string]*tableInfo
	idToTable   map[int]*tableInfo
}

func NewTableManager() *TableManager {
	return &TableManager{
		nameToTable: make(map[string]*tableInfo),
		idToTable:   make(map[int]*tableInfo),
	}
}

// AddTable registers a file under the given name. Re-registering a name or
// id replaces the previous entry.
func (tm *TableManager) AddTable(f page.DbFile, name string) error {
	if f == nil {
		return errors.Wrap(dberr.ErrInvalidArgument, "file cannot be nil")
	}
	if name == "" {
		return errors.Wrap(dberr.ErrInvalidArgument, "table name cannot be empty")
	}

	tm.mutex.Lock()
	defer tm.mutex.Unlock()

	info := &tableInfo{file: f, name: name}
	tm.nameToTable[name] = info
	tm.idToTable[f.GetID()] = info
	return nil
}

// GetDbFile returns the database file for a table id.
func (tm *TableManager) GetDbFile(tableID int) (page.DbFile, error) {
	tm.mutex.RLock()
	defer tm.mutex.RUnlock()

	info, exists := tm.idToTable[tableID]
	if !exists {
		return nil, errors.Errorf("table with id %d not found", tableID)
	}
	return info.file, nil
}

// GetTableName returns the registered name for a table id.
func (tm *TableManager) GetTableName(tableID int) (string, error) {
	tm.mutex.RLock()
	defer tm.mutex.RUnlock()

	info, exists := tm.idToTable[tableID]
	if !exists {
		return "", errors.Errorf("table with id %d not found", tableID)
	}
	return info.name, nil
}

// GetTableID returns the table id registered under name.
func (tm *TableManager) GetTableID(name string) (int, error) {
	tm.mutex.RLock()
	defer tm.mutex.RUnlock()

	info, exists := tm.nameToTable[name]
	if !exists {
		return 0, errors.Errorf("table %q not found", name)
	}
	return info.file.GetID(), nil
}

// GetTupleDesc returns the schema of the named table id.
func (tm *TableManager) GetTupleDesc(tableID int) (*tuple.TupleDescription, error) {
	f, err := tm.GetDbFile(tableID)
	if err != nil {
		return nil, err
	}
	return f.GetTupleDesc(), nil
}

// TableIDs returns the ids of every registered table.
func (tm *TableManager) TableIDs() []int {
	tm.mutex.RLock()
	defer tm.mutex.RUnlock()

	ids := make([]int, 0, len(tm.idToTable))
	for id := range tm.idToTable {
		ids = append(ids, id)
	}
	return ids
}

// Close closes every registered file.
func (tm *TableManager) Close() error {
	tm.mutex.Lock()
	defer tm.mutex.Unlock()

	var firstErr error
	for _, info := range tm.idToTable {
		if err := info.file.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
