package vba

import (
	"encoding/binary"
	"fmt"
)

// dir stream record ids
const (
	recCodePage          = 0x0003
	recProjectVersion    = 0x0009
	recModuleName        = 0x0019
	recModuleStreamName  = 0x001A
	recModuleTerminator  = 0x002B
	recModuleProcedural  = 0x0021
	recModuleDocument    = 0x0022
	recModuleOffset      = 0x0031
	recModuleStreamNameW = 0x0032
	recModuleNameW       = 0x0047
)

// moduleRecord is one module entry of the decompressed dir stream.
type moduleRecord struct {
	name       string
	streamName string
	offset     uint32
	document   bool
}

// ext is the export extension: .cls for document and class modules,
// .bas for procedural ones.
func (m moduleRecord) ext() string {
	if m.document {
		return ".cls"
	}
	return ".bas"
}

type dirInfo struct {
	codePage uint16
	modules  []moduleRecord
}

// parseDir walks the decompressed dir stream. Records are id/size/data
// triples except PROJECTVERSION, whose size field is followed by six
// bytes it does not count.
func parseDir(data []byte) (*dirInfo, error) {
	info := &dirInfo{codePage: 1252}
	var cur *moduleRecord
	var nameW, streamW []byte

	pos := 0
	for pos+6 <= len(data) {
		id := binary.LittleEndian.Uint16(data[pos:])
		size := int(binary.LittleEndian.Uint32(data[pos+2:]))
		pos += 6

		if id == recProjectVersion {
			size = 6
		}
		if size < 0 || pos+size > len(data) {
			return nil, fmt.Errorf("%w: dir record 0x%04x overruns stream", ErrCorrupt, id)
		}
		body := data[pos : pos+size]
		pos += size

		switch id {
		case recCodePage:
			if len(body) >= 2 {
				info.codePage = binary.LittleEndian.Uint16(body)
			}
		case recModuleName:
			cur = &moduleRecord{}
			nameW, streamW = nil, nil
			cur.name = decodeMBCS(body, info.codePage)
		case recModuleNameW:
			nameW = body
		case recModuleStreamName:
			if cur != nil {
				cur.streamName = decodeMBCS(body, info.codePage)
			}
		case recModuleStreamNameW:
			streamW = body
		case recModuleProcedural, recModuleDocument:
			if cur != nil {
				cur.document = id == recModuleDocument
			}
		case recModuleOffset:
			if cur != nil && len(body) >= 4 {
				cur.offset = binary.LittleEndian.Uint32(body)
			}
		case recModuleTerminator:
			if cur == nil {
				continue
			}
			if s := decodeUTF16(nameW); s != "" {
				cur.name = s
			}
			if s := decodeUTF16(streamW); s != "" {
				cur.streamName = s
			}
			if cur.streamName == "" {
				cur.streamName = cur.name
			}
			info.modules = append(info.modules, *cur)
			cur = nil
		}
	}
	return info, nil
}
