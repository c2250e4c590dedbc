package auxdepth

import (
	"bytes"
	"encoding/binary"

	"github.com/pkg/errors"
)

const (
	markerSOI  = 0xD8
	markerEOI  = 0xD9
	markerSOS  = 0xDA
	markerAPP1 = 0xE1
	markerAPP2 = 0xE2
)

var (
	xmpSignature         = []byte("http://ns.adobe.com/xap/1.0/\x00")
	extendedXMPSignature = []byte("http://ns.adobe.com/xmp/extension/\x00")
	mpfSignature         = []byte("MPF\x00")
)

// segment is one marker segment of a JPEG header.
type segment struct {
	marker byte
	// offset is the position of payload[0] in the file.
	offset  int
	payload []byte
}

// jpegSegments returns the marker segments preceding the first scan.
func jpegSegments(data []byte) ([]segment, error) {
	if len(data) < 4 || data[0] != 0xFF || data[1] != markerSOI {
		return nil, errors.New("missing JPEG start of image marker")
	}
	var segments []segment
	pos := 2
	for pos < len(data) {
		if data[pos] != 0xFF {
			return nil, errors.Errorf("expected JPEG marker at offset %d", pos)
		}
		// markers may be preceded by any number of fill bytes.
		for pos < len(data) && data[pos] == 0xFF {
			pos++
		}
		if pos >= len(data) {
			break
		}
		marker := data[pos]
		pos++
		if marker == markerEOI || marker == markerSOS {
			return segments, nil
		}
		if marker == 0x01 || (marker >= 0xD0 && marker <= 0xD7) {
			continue
		}
		if pos+2 > len(data) {
			return nil, errors.Errorf("truncated JPEG segment 0x%02X", marker)
		}
		length := int(binary.BigEndian.Uint16(data[pos:]))
		if length < 2 || pos+length > len(data) {
			return nil, errors.Errorf("JPEG segment 0x%02X has bad length %d", marker, length)
		}
		segments = append(segments, segment{marker: marker, offset: pos + 2, payload: data[pos+2 : pos+length]})
		pos += length
	}
	return segments, nil
}

// jpegXMP holds the XMP packets found in a JPEG header.
type jpegXMP struct {
	main []byte
	// extended maps an extended XMP GUID to its reassembled packet.
	extended map[string][]byte
}

type extendedChunk struct {
	fullLength uint32
	offset     uint32
	data       []byte
}

func collectXMP(segments []segment) jpegXMP {
	out := jpegXMP{extended: map[string][]byte{}}
	chunks := map[string][]extendedChunk{}
	for _, seg := range segments {
		if seg.marker != markerAPP1 {
			continue
		}
		switch {
		case bytes.HasPrefix(seg.payload, xmpSignature):
			if out.main == nil {
				out.main = seg.payload[len(xmpSignature):]
			}
		case bytes.HasPrefix(seg.payload, extendedXMPSignature):
			rest := seg.payload[len(extendedXMPSignature):]
			if len(rest) < 40 {
				continue
			}
			guid := string(rest[:32])
			chunks[guid] = append(chunks[guid], extendedChunk{
				fullLength: binary.BigEndian.Uint32(rest[32:36]),
				offset:     binary.BigEndian.Uint32(rest[36:40]),
				data:       rest[40:],
			})
		}
	}
	for guid, parts := range chunks {
		if packet, ok := reassemble(parts); ok {
			out.extended[guid] = packet
		}
	}
	return out
}

// reassemble stitches extended XMP chunks back together. Chunks may arrive in any order but must
// agree on the full length and cover it exactly. The declared length is checked against the chunk
// data before anything is allocated.
func reassemble(parts []extendedChunk) ([]byte, bool) {
	full := parts[0].fullLength
	covered := uint64(0)
	for _, part := range parts {
		if part.fullLength != full || uint64(part.offset)+uint64(len(part.data)) > uint64(full) {
			return nil, false
		}
		covered += uint64(len(part.data))
	}
	if covered != uint64(full) {
		return nil, false
	}
	buf := make([]byte, full)
	for _, part := range parts {
		copy(buf[part.offset:], part.data)
	}
	return buf, true
}
