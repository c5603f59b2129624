package smap

import (
	"io"

	"github.com/zhangyunhao116/skipmap"
)

type SkipMap struct {
	m *skipmap.Int64Map
}

func NewSMap() SkipMap {
	s := SkipMap{
		m: skipmap.NewInt64(),
	}
	return s
}

func (s SkipMap) CountNoLock() int {
	return s.m.Len()
}

func (s SkipMap) Set(key int64, value io.Closer) {
	s.m.Store(key, value)
}

func (s SkipMap) Get(key int64) (io.Closer, bool) {
	v, ok := s.m.Load(key)
	if !ok {
		return nil, false
	}
	return v.(io.Closer), true
}

func (s SkipMap) Has(key int64) bool {
	_, ok := s.m.Load(key)
	return ok
}

func (s SkipMap) Remove(key int64) {
	s.m.Delete(key)
}

func (s SkipMap) Clear() {
	s.m.Range(func(key int64, value interface{}) bool {
		s.m.Delete(key)
		return true
	})
}

func (s SkipMap) Range(f func(key int64, value io.Closer) bool) {
	s.m.Range(func(key int64, value interface{}) bool {
		return f(key, value.(io.Closer))
	})
}
