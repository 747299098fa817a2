package pool

// ScanBuffer holds the destinations database/sql scans one row into: Values
// receives the column values and Ptrs points at each of them.
type ScanBuffer struct {
	Values []any
	Ptrs   []any
}

// Resize makes the buffer n columns wide, reusing its backing arrays when
// they are large enough.
func (b *ScanBuffer) Resize(n int) {
	if cap(b.Values) < n {
		b.Values = make([]any, n)
		b.Ptrs = make([]any, n)
	}
	b.Values = b.Values[:n]
	b.Ptrs = b.Ptrs[:n]
	for i := range b.Values {
		b.Values[i] = nil
		b.Ptrs[i] = &b.Values[i]
	}
}

// Clear drops references to scanned values so pooled buffers do not keep
// row data alive.
func (b *ScanBuffer) Clear() {
	for i := range b.Values {
		b.Values[i] = nil
	}
}

var scanBuffers = New(
	func() *ScanBuffer { return &ScanBuffer{} },
	func(b *ScanBuffer) { b.Clear() },
)

// GetScanBuffer returns a buffer n columns wide.
func GetScanBuffer(n int) *ScanBuffer {
	b := scanBuffers.Get()
	b.Resize(n)
	return b
}

// PutScanBuffer returns b to the shared pool.
func PutScanBuffer(b *ScanBuffer) {
	scanBuffers.Put(b)
}

