// We enable 64 bit LE platforms:

//go:build (amd64 || arm64 || ppc64le || riscv64) && !nounsafe && !purego && !appengine

package le

import (
	"unsafe"
)

// Load16 will load from b at index i.
// b must hold at least i+2 bytes.
func Load16[I Indexer](b []byte, i I) uint16 {
	return *(*uint16)(unsafe.Pointer(uintptr(unsafe.Pointer(&b[0])) + uintptr(i)*unsafe.Sizeof(b[0])))
}

// Load32 will load from b at index i.
// b must hold at least i+4 bytes.
func Load32[I Indexer](b []byte, i I) uint32 {
	return *(*uint32)(unsafe.Pointer(uintptr(unsafe.Pointer(&b[0])) + uintptr(i)*unsafe.Sizeof(b[0])))
}

// Load64 will load from b at index i.
// b must hold at least i+8 bytes.
func Load64[I Indexer](b []byte, i I) uint64 {
	return *(*uint64)(unsafe.Pointer(uintptr(unsafe.Pointer(&b[0])) + uintptr(i)*unsafe.Sizeof(b[0])))
}

// Store16 will store v at b.
func Store16(b []byte, v uint16) {
	_ = b[1]
	*(*uint16)(unsafe.Pointer(&b[0])) = v
}

// Store32 will store v at b.
func Store32(b []byte, v uint32) {
	_ = b[3]
	*(*uint32)(unsafe.Pointer(&b[0])) = v
}

// Store64 will store v at b.
func Store64(b []byte, v uint64) {
	_ = b[7]
	*(*uint64)(unsafe.Pointer(&b[0])) = v
}
