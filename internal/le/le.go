// Package le provides little-endian loads and stores.
// On 64 bit little-endian platforms the loads skip bounds checks;
// callers must guarantee the index range is valid.
package le

// Indexer is any integer type usable as a slice index.
type Indexer interface {
	int | int8 | int16 | int32 | int64 | uint | uint8 | uint16 | uint32 | uint64
}
