// Package database assembles the engine: one catalog and one buffer pool,
// wired so that table files acquire pages through the pool.
package database

import (
	"tupledb/pkg/catalog"
	"tupledb/pkg/memory"
	"tupledb/pkg/storage/page"
)

// poolBinder is implemented by files whose mutating operations go through
// the buffer pool, e.g. heap files.
type poolBinder interface {
	BindPool(pool page.PageProvider)
}

// Database owns the catalog and the buffer pool fronting it.
type Database struct {
	catalog *catalog.TableManager
	store   *memory.PageStore
}

func NewDatabase() *Database {
	cat := catalog.NewTableManager()
	return &Database{
		catalog: cat,
		store:   memory.NewPageStore(cat),
	}
}

// Catalog returns the table catalog.
func (d *Database) Catalog() *catalog.TableManager {
	return d.catalog
}

// Store returns the buffer pool.
func (d *Database) Store() *memory.PageStore {
	return d.store
}

// AddTable registers a file under name and binds it to the buffer pool so
// that its insert scans and iterators run under page locks.
func (d *Database) AddTable(f page.DbFile, name string) error {
	if err := d.catalog.AddTable(f, name); err != nil {
		return err
	}
	if binder, ok := f.(poolBinder); ok {
		binder.BindPool(d.store)
	}
	return nil
}

// Close flushes the buffer pool and closes every table file.
func (d *Database) Close() error {
	if err := d.store.Close(); err != nil {
		return err
	}
	return d.catalog.Close()
}
