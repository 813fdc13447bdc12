// Package cache persists a resolved composition graph keyed by a content
// fingerprint of the module set.
//
// File layout (little-endian):
//
//	[0, 4)       uint32 offset of segment 2, always >= 4
//	[4, offset)  segment 1: JSON list of sorted module keys (identity + hashes)
//	[offset, EOF) segment 2: zstd-compressed graph blob
//
// A record is usable only when the fingerprint recomputed from segment 1
// equals the fingerprint of the current catalog. Every read problem is a
// cache miss and every write problem leaves no file behind.
package cache
