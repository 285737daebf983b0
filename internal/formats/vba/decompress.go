package vba

import (
	"encoding/binary"
	"fmt"
)

const (
	signatureByte  = 0x01
	chunkSizeMask  = 0x0FFF
	chunkFlagBit   = 0x8000
	minCopyLength  = 3
	maxBitCountLen = 12
)

// Decompress expands a container compressed with the RLE scheme used for
// VBA project streams.
func Decompress(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty compressed container", ErrCorrupt)
	}
	if data[0] != signatureByte {
		return nil, fmt.Errorf("%w: bad signature byte 0x%02x", ErrCorrupt, data[0])
	}

	out := make([]byte, 0, len(data)*2)
	pos := 1
	for pos < len(data) {
		if pos+2 > len(data) {
			return nil, fmt.Errorf("%w: truncated chunk header at %d", ErrCorrupt, pos)
		}
		header := binary.LittleEndian.Uint16(data[pos:])
		size := int(header&chunkSizeMask) + 3
		compressed := header&chunkFlagBit != 0

		end := pos + size
		if end > len(data) {
			end = len(data)
		}
		body := data[pos+2 : end]
		pos = end

		if !compressed {
			// Raw chunk: the body is copied verbatim.
			out = append(out, body...)
			continue
		}

		var err error
		out, err = decompressChunk(out, body)
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

func decompressChunk(out, body []byte) ([]byte, error) {
	chunkStart := len(out)
	i := 0
	for i < len(body) {
		flags := body[i]
		i++
		for bit := 0; bit < 8 && i < len(body); bit++ {
			if flags&(1<<bit) == 0 {
				out = append(out, body[i])
				i++
				continue
			}

			if i+2 > len(body) {
				return nil, fmt.Errorf("%w: truncated copy token", ErrCorrupt)
			}
			token := binary.LittleEndian.Uint16(body[i:])
			i += 2

			length, offset := unpackToken(token, len(out)-chunkStart)
			src := len(out) - offset
			if src < chunkStart {
				return nil, fmt.Errorf("%w: copy token offset %d outside chunk", ErrCorrupt, offset)
			}
			// Source and destination may overlap, so copy byte by byte.
			for k := 0; k < length; k++ {
				out = append(out, out[src+k])
			}
		}
	}
	return out, nil
}

// unpackToken splits a copy token. The split between offset and length
// bits depends on how far into the current chunk decompression has got.
func unpackToken(token uint16, decompressed int) (length, offset int) {
	bitCount := 4
	for bitCount < maxBitCountLen && (1<<bitCount) < decompressed {
		bitCount++
	}
	lengthMask := uint16(0xFFFF) >> bitCount
	length = int(token&lengthMask) + minCopyLength
	offset = int(token>>(16-bitCount)) + 1
	return length, offset
}
