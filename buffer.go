package anagram

import "sync"

// maxPooledBuf keeps unusually large records from pinning memory in the pool.
const maxPooledBuf = 64 << 10

// bufPool menyimpan buffer encoding record agar tidak dialokasikan ulang pada
// setiap Set. Nil bila BufferPoolSize = 0.
type bufPool struct {
	pool *sync.Pool
}

func newBufPool(size int) bufPool {
	if size <= 0 {
		return bufPool{}
	}
	return bufPool{pool: &sync.Pool{New: func() any {
		b := make([]byte, 0, 512)
		return &b
	}}}
}

// get mengambil buffer kosong dari pool atau membuat baru.
func (p bufPool) get() *[]byte {
	if p.pool != nil {
		b := p.pool.Get().(*[]byte)
		*b = (*b)[:0]
		return b
	}
	b := make([]byte, 0, 512)
	return &b
}

// put mengembalikan buffer ke pool. Buffer yang terlalu besar dibuang.
func (p bufPool) put(b *[]byte) {
	if p.pool != nil && cap(*b) <= maxPooledBuf {
		p.pool.Put(b)
	}
}
