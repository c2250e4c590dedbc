package auxdepth

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"io"

	"github.com/pkg/errors"
	goutils "go.viam.com/utils"
)

const pngXMPKeyword = "XML:com.adobe.xmp"

var pngSignature = []byte("\x89PNG\r\n\x1a\n")

// maxTextChunk bounds the inflated size of a compressed text chunk.
const maxTextChunk = 64 << 20

// pngXMPPackets returns the XMP packets stored in tEXt, zTXt or iTXt chunks, in file order.
func pngXMPPackets(data []byte) ([][]byte, error) {
	if !bytes.HasPrefix(data, pngSignature) {
		return nil, errors.New("missing PNG signature")
	}
	var packets [][]byte
	pos := len(pngSignature)
	for pos+8 <= len(data) {
		length := int(binary.BigEndian.Uint32(data[pos:]))
		kind := string(data[pos+4 : pos+8])
		start := pos + 8
		if start+length+4 > len(data) {
			return packets, errors.Errorf("PNG chunk %q truncated", kind)
		}
		chunk := data[start : start+length]
		pos = start + length + 4

		switch kind {
		case "IEND":
			return packets, nil
		case "tEXt":
			if keyword, text, ok := bytes.Cut(chunk, []byte{0}); ok && string(keyword) == pngXMPKeyword {
				packets = append(packets, text)
			}
		case "zTXt":
			packet, err := ztxtXMP(chunk)
			if err != nil {
				return packets, err
			}
			if packet != nil {
				packets = append(packets, packet)
			}
		case "iTXt":
			packet, err := itxtXMP(chunk)
			if err != nil {
				return packets, err
			}
			if packet != nil {
				packets = append(packets, packet)
			}
		}
	}
	return packets, nil
}

// itxtXMP returns the text of an XMP iTXt chunk, or nil for any other keyword.
func itxtXMP(chunk []byte) ([]byte, error) {
	keyword, rest, ok := bytes.Cut(chunk, []byte{0})
	if !ok || string(keyword) != pngXMPKeyword {
		return nil, nil
	}
	if len(rest) < 2 {
		return nil, errors.New("iTXt chunk truncated")
	}
	compressed := rest[0] == 1
	rest = rest[2:]
	// language tag, then translated keyword.
	for i := 0; i < 2; i++ {
		var found bool
		if _, rest, found = bytes.Cut(rest, []byte{0}); !found {
			return nil, errors.New("iTXt chunk truncated")
		}
	}
	if !compressed {
		return rest, nil
	}
	return inflateText(rest)
}

// ztxtXMP returns the text of an XMP zTXt chunk, or nil for any other keyword.
func ztxtXMP(chunk []byte) ([]byte, error) {
	keyword, rest, ok := bytes.Cut(chunk, []byte{0})
	if !ok || string(keyword) != pngXMPKeyword {
		return nil, nil
	}
	if len(rest) < 1 {
		return nil, errors.New("zTXt chunk truncated")
	}
	return inflateText(rest[1:])
}

func inflateText(compressed []byte) ([]byte, error) {
	r, err := zlib.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return nil, errors.Wrap(err, "text chunk is not zlib compressed")
	}
	defer goutils.UncheckedErrorFunc(r.Close)
	text, err := io.ReadAll(io.LimitReader(r, maxTextChunk+1))
	if err != nil {
		return nil, errors.Wrap(err, "cannot inflate text chunk")
	}
	if len(text) > maxTextChunk {
		return nil, errors.Errorf("text chunk inflates past %d bytes", maxTextChunk)
	}
	return text, nil
}
