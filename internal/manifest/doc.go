// Package manifest persists the root document of a container.
//
// # Overview
//
// The manifest holds the file header, registered extensions, and one entry
// per Data3D scan and Image2D picture. Scan entries carry the point
// prototype and the page index of the points and groups column blocks, so
// opening a container costs exactly two small reads.
//
// # Envelope
//
// Every manifest blob is framed with the name of the codec that encoded it
// and a CRC32C checksum:
//
//	Magic    (4 bytes) - "E57M"
//	Version  (4 bytes) - envelope version (currently 1)
//	Checksum (4 bytes) - CRC32C of payload
//	Length   (4 bytes) - payload length in bytes
//	Payload: codec name (2-byte length + bytes) followed by the document
//
// Readers pick the codec by name, so containers written with either JSON
// codec open with any build.
//
// # Atomic Protocol
//
// Save writes manifest/<uuid>.json and then replaces CURRENT with that name.
// On local filesystems the CURRENT update is an atomic rename. On S3 the
// s3.CommitStore turns it into a DynamoDB conditional put, so concurrent
// writers cannot both win.
//
// All Store methods are protected by a mutex and safe for concurrent use.
package manifest
