package page

import (
	"os"
	"path/filepath"
	"sync"

	"github.com/cespare/xxhash/v2"
	"github.com/pkg/errors"

	"tupledb/pkg/dberr"
)

// BaseFile provides the raw page I/O shared by database file types: whole-
// page reads and writes at computed offsets, page counting, and a stable
// file id derived from the absolute path. All operations are safe for
// concurrent use; AllocateNewPage in particular must be atomic so that two
// inserting transactions never receive the same page number.
type BaseFile struct {
	file     *os.File
	fileID   int
	filePath string
	mutex    sync.RWMutex
}

// NewBaseFile opens (creating if absent) the file at path. The file id is
// the xxhash of the absolute path truncated to 32 bits, so the same file
// always maps to the same table id across processes.
func NewBaseFile(path string) (*BaseFile, error) {
	if path == "" {
		return nil, errors.Wrap(dberr.ErrInvalidArgument, "file path cannot be empty")
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to resolve path %s", path)
	}

	file, err := os.OpenFile(absPath, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open file %s", absPath)
	}

	return &BaseFile{
		file:     file,
		fileID:   int(int32(xxhash.Sum64String(absPath))),
		filePath: absPath,
	}, nil
}

// GetID returns the stable file identifier.
func (bf *BaseFile) GetID() int {
	return bf.fileID
}

// FilePath returns the absolute path of the underlying file.
func (bf *BaseFile) FilePath() string {
	return bf.filePath
}

// NumPages returns floor(file length / page size). A trailing partial page
// is not counted; files are only ever extended in whole pages.
func (bf *BaseFile) NumPages() (int, error) {
	bf.mutex.RLock()
	defer bf.mutex.RUnlock()
	return bf.numPagesLocked()
}

// ReadPageData reads exactly one page at the given page number.
func (bf *BaseFile) ReadPageData(pageNo int) ([]byte, error) {
	bf.mutex.RLock()
	defer bf.mutex.RUnlock()

	if bf.file == nil {
		return nil, errors.WithStack(dberr.ErrClosed)
	}

	pageSize := Size()
	data := make([]byte, pageSize)
	if _, err := bf.file.ReadAt(data, int64(pageNo)*int64(pageSize)); err != nil {
		return nil, err
	}
	return data, nil
}

// WritePageData writes exactly one page at the given page number and syncs.
func (bf *BaseFile) WritePageData(pageNo int, data []byte) error {
	bf.mutex.Lock()
	defer bf.mutex.Unlock()
	return bf.writePageDataLocked(pageNo, data)
}

// AllocateNewPage extends the file by one zero-filled page and returns the
// new page number. Writing zeros first makes the size change visible before
// the caller fills the page with data.
func (bf *BaseFile) AllocateNewPage() (int, error) {
	bf.mutex.Lock()
	defer bf.mutex.Unlock()

	numPages, err := bf.numPagesLocked()
	if err != nil {
		return 0, err
	}

	if err := bf.writePageDataLocked(numPages, make([]byte, Size())); err != nil {
		return 0, errors.Wrap(err, "failed to reserve page space")
	}
	return numPages, nil
}

// Close releases the file handle. Further operations fail with ErrClosed.
func (bf *BaseFile) Close() error {
	bf.mutex.Lock()
	defer bf.mutex.Unlock()

	if bf.file == nil {
		return nil
	}

	err := bf.file.Close()
	bf.file = nil
	return err
}

func (bf *BaseFile) numPagesLocked() (int, error) {
	if bf.file == nil {
		return 0, errors.WithStack(dberr.ErrClosed)
	}

	info, err := bf.file.Stat()
	if err != nil {
		return 0, errors.Wrap(err, "failed to stat file")
	}

	return int(info.Size() / int64(Size())), nil
}

func (bf *BaseFile) writePageDataLocked(pageNo int, data []byte) error {
	if bf.file == nil {
		return errors.WithStack(dberr.ErrClosed)
	}

	pageSize := Size()
	if len(data) != pageSize {
		return errors.Errorf("invalid page data size: expected %d, got %d", pageSize, len(data))
	}

	if _, err := bf.file.WriteAt(data, int64(pageNo)*int64(pageSize)); err != nil {
		return errors.Wrapf(err, "failed to write page %d", pageNo)
	}

	if err := bf.file.Sync(); err != nil {
		return errors.Wrap(err, "failed to sync file")
	}
	return nil
}
