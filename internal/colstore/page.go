package colstore

import (
	"encoding/binary"
	"fmt"
	"hash/crc32"
)

const (
	pageMagic      = "E57P"
	pageVersion    = 1
	pageHeaderSize = 20
	dirEntrySize   = 12
)

var castagnoli = crc32.MakeTable(crc32.Castagnoli)

// MaxPageRecords bounds the records of one page so every chunk length fits
// in the 32-bit directory fields.
const MaxPageRecords = 1 << 24

// PageInfo locates one page inside the column block blob.
type PageInfo struct {
	Offset  int64  `json:"offset"`
	Length  int64  `json:"length"`
	Records uint32 `json:"records"`
}

type dirEntry struct {
	ordinal   uint16
	encoding  Encoding
	rawLen    uint32
	storedLen uint32
}

type pageHeader struct {
	compression Compression
	columns     int
	records     int
	payloadLen  int
}

// chunk is one encoded column ready to be framed.
type chunk struct {
	ordinal  int
	encoding Encoding
	rawLen   int
	stored   []byte
}

func buildChunk(ordinal int, v *Vector, c Compression) (chunk, error) {
	enc, raw, err := encodeVector(v)
	if err != nil {
		return chunk{}, err
	}
	stored, err := compressChunk(raw, c)
	if err != nil {
		return chunk{}, err
	}
	return chunk{ordinal: ordinal, encoding: enc, rawLen: len(raw), stored: stored}, nil
}

// framePage assembles header, directory and chunks into one page.
func framePage(chunks []chunk, records int, c Compression) []byte {
	payloadLen := dirEntrySize * len(chunks)
	for _, ch := range chunks {
		payloadLen += len(ch.stored)
	}

	page := make([]byte, pageHeaderSize, pageHeaderSize+payloadLen)
	copy(page[0:4], pageMagic)
	page[4] = pageVersion
	page[5] = byte(c)
	binary.LittleEndian.PutUint16(page[6:8], uint16(len(chunks)))
	binary.LittleEndian.PutUint32(page[8:12], uint32(records))
	binary.LittleEndian.PutUint32(page[12:16], uint32(payloadLen))

	for _, ch := range chunks {
		page = binary.LittleEndian.AppendUint16(page, uint16(ch.ordinal))
		page = append(page, byte(ch.encoding), 0)
		page = binary.LittleEndian.AppendUint32(page, uint32(ch.rawLen))
		page = binary.LittleEndian.AppendUint32(page, uint32(len(ch.stored)))
	}
	for _, ch := range chunks {
		page = append(page, ch.stored...)
	}

	binary.LittleEndian.PutUint32(page[16:20], crc32.Checksum(page[pageHeaderSize:], castagnoli))
	return page
}

// parsePage verifies a page and returns its header, directory and the
// byte offset of every chunk within page.
func parsePage(page []byte) (pageHeader, []dirEntry, []int, error) {
	var h pageHeader
	if len(page) < pageHeaderSize {
		return h, nil, nil, fmt.Errorf("%w: %d bytes", ErrCorrupt, len(page))
	}
	if string(page[0:4]) != pageMagic {
		return h, nil, nil, fmt.Errorf("%w: bad magic %q", ErrCorrupt, page[0:4])
	}
	if page[4] != pageVersion {
		return h, nil, nil, fmt.Errorf("%w: unsupported version %d", ErrCorrupt, page[4])
	}

	h.compression = Compression(page[5])
	h.columns = int(binary.LittleEndian.Uint16(page[6:8]))
	h.records = int(binary.LittleEndian.Uint32(page[8:12]))
	h.payloadLen = int(binary.LittleEndian.Uint32(page[12:16]))
	checksum := binary.LittleEndian.Uint32(page[16:20])

	if !h.compression.Valid() {
		return h, nil, nil, fmt.Errorf("%w: unknown compression %d", ErrCorrupt, h.compression)
	}
	if pageHeaderSize+h.payloadLen != len(page) {
		return h, nil, nil, fmt.Errorf("%w: payload length %d in %d byte page", ErrCorrupt, h.payloadLen, len(page))
	}
	if crc32.Checksum(page[pageHeaderSize:], castagnoli) != checksum {
		return h, nil, nil, fmt.Errorf("%w: checksum mismatch", ErrCorrupt)
	}

	dirEnd := pageHeaderSize + dirEntrySize*h.columns
	if dirEnd > len(page) {
		return h, nil, nil, fmt.Errorf("%w: directory exceeds page", ErrCorrupt)
	}

	dir := make([]dirEntry, h.columns)
	offsets := make([]int, h.columns)
	off := dirEnd
	for i := range dir {
		e := page[pageHeaderSize+dirEntrySize*i:]
		dir[i] = dirEntry{
			ordinal:   binary.LittleEndian.Uint16(e[0:2]),
			encoding:  Encoding(e[2]),
			rawLen:    binary.LittleEndian.Uint32(e[4:8]),
			storedLen: binary.LittleEndian.Uint32(e[8:12]),
		}
		offsets[i] = off
		off += int(dir[i].storedLen)
	}
	if off != len(page) {
		return h, nil, nil, fmt.Errorf("%w: chunks cover %d of %d bytes", ErrCorrupt, off, len(page))
	}
	return h, dir, offsets, nil
}
