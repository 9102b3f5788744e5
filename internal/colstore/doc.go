// Package colstore implements the column block that backs a Data3D points
// collection and its group table.
//
// # Layout
//
// A column block is a single blob of concatenated pages. The page index
// (offset, length, record count per page) lives in the manifest as a
// Descriptor, so a reader can seek to any record with one ranged read.
//
//	Page header (20 bytes):
//	  Magic       (4 bytes) - "E57P"
//	  Version     (1 byte)  - page format version (currently 1)
//	  Compression (1 byte)  - chunk compression
//	  Columns     (2 bytes) - number of column chunks
//	  Records     (4 bytes) - records in this page
//	  PayloadLen  (4 bytes) - directory + chunk bytes
//	  Checksum    (4 bytes) - CRC32C of directory + chunks
//
//	Directory entry (12 bytes, one per column):
//	  Ordinal   (2 bytes) - field ordinal in the prototype
//	  Encoding  (1 byte)  - value encoding
//	  Reserved  (1 byte)
//	  RawLen    (4 bytes) - encoded length before compression
//	  StoredLen (4 bytes) - length on disk; equal to RawLen when stored raw
//
// # Value encodings
//
// Float64 and float32 values are little-endian IEEE-754. Integers are
// stored as value-min in the fewest whole bytes that cover the declared
// range; a single-valued range takes no bytes at all. Boolean columns are
// stored as either a dense bitset or a roaring bitmap of true positions,
// whichever is smaller.
//
// All integers are little-endian.
package colstore
