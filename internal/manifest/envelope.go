package manifest

import (
	"encoding/binary"
	"fmt"
	"hash/crc32"
)

const (
	envelopeMagic   = "E57M"
	envelopeVersion = 1
	envelopeHeader  = 16
)

var castagnoli = crc32.MakeTable(crc32.Castagnoli)

// seal frames an encoded manifest with the codec name and a checksum.
//
//	Magic    (4 bytes) - "E57M"
//	Version  (4 bytes) - envelope version (currently 1)
//	Checksum (4 bytes) - CRC32C of payload
//	Length   (4 bytes) - payload length
//	Payload:
//	  CodecLen (2 bytes) + Codec name
//	  Document bytes
func seal(codecName string, doc []byte) ([]byte, error) {
	if len(codecName) > 0xFFFF {
		return nil, fmt.Errorf("codec name too long: %d", len(codecName))
	}
	payload := make([]byte, 0, 2+len(codecName)+len(doc))
	payload = binary.LittleEndian.AppendUint16(payload, uint16(len(codecName)))
	payload = append(payload, codecName...)
	payload = append(payload, doc...)

	out := make([]byte, envelopeHeader, envelopeHeader+len(payload))
	copy(out[0:4], envelopeMagic)
	binary.LittleEndian.PutUint32(out[4:8], envelopeVersion)
	binary.LittleEndian.PutUint32(out[8:12], crc32.Checksum(payload, castagnoli))
	binary.LittleEndian.PutUint32(out[12:16], uint32(len(payload)))
	return append(out, payload...), nil
}

// open verifies an envelope and returns the codec name and document.
func open(data []byte) (string, []byte, error) {
	if len(data) < envelopeHeader {
		return "", nil, fmt.Errorf("%w: envelope of %d bytes", ErrCorrupt, len(data))
	}
	if string(data[0:4]) != envelopeMagic {
		return "", nil, fmt.Errorf("%w: invalid magic %q", ErrCorrupt, data[0:4])
	}
	if v := binary.LittleEndian.Uint32(data[4:8]); v != envelopeVersion {
		return "", nil, fmt.Errorf("%w: envelope version %d", ErrIncompatibleVersion, v)
	}
	checksum := binary.LittleEndian.Uint32(data[8:12])
	length := binary.LittleEndian.Uint32(data[12:16])

	payload := data[envelopeHeader:]
	if uint32(len(payload)) != length {
		return "", nil, fmt.Errorf("%w: payload %d bytes, header says %d", ErrCorrupt, len(payload), length)
	}
	if crc32.Checksum(payload, castagnoli) != checksum {
		return "", nil, fmt.Errorf("%w: checksum mismatch", ErrCorrupt)
	}
	if len(payload) < 2 {
		return "", nil, fmt.Errorf("%w: missing codec name", ErrCorrupt)
	}
	n := int(binary.LittleEndian.Uint16(payload))
	if 2+n > len(payload) {
		return "", nil, fmt.Errorf("%w: codec name exceeds payload", ErrCorrupt)
	}
	return string(payload[2 : 2+n]), payload[2+n:], nil
}
