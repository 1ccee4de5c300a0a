package tuple

import "fmt"

// PageID identifies one page of one table. It is a value type so that
// equality and map hashing are structural.
type PageID struct {
	TableID int
	PageNo  int
}

func NewPageID(tableID, pageNo int) PageID {
	return PageID{TableID: tableID, PageNo: pageNo}
}

func (pid PageID) Equals(other PageID) bool {
	return pid == other
}

func (pid PageID) String() string {
	return fmt.Sprintf("PageID(table=%d, page=%d)", pid.TableID, pid.PageNo)
}
