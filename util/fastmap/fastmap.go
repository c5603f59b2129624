package fastmap

import (
	"io"
)

// FastMap tracks live connections by id.
type FastMap interface {
	CountNoLock() int
	Set(key int64, value io.Closer)
	Get(key int64) (io.Closer, bool)
	Has(key int64) bool
	Remove(key int64)
	Clear()
	Range(f func(key int64, value io.Closer) bool)
}
