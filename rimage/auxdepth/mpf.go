package auxdepth

import (
	"bytes"
	"encoding/binary"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/viam-labs/depthoverlay/rimage"
)

const (
	tagMPFVersion   = 0xB000
	tagNumberImages = 0xB001
	tagMPEntry      = 0xB002

	mpEntrySize = 16
)

// mpImage is one image listed in an MPF index, located by absolute file offset.
type mpImage struct {
	attribute uint32
	offset    int
	size      int
}

// mpfImages parses the MP index of a JPEG's MPF segment and returns every image other than the
// primary one.
func mpfImages(data []byte, segments []segment) ([]mpImage, error) {
	for _, seg := range segments {
		if seg.marker != markerAPP2 || !bytes.HasPrefix(seg.payload, mpfSignature) {
			continue
		}
		// offsets in the index are relative to the TIFF header that follows the signature.
		base := seg.offset + len(mpfSignature)
		return parseMPIndex(data, seg.payload[len(mpfSignature):], base)
	}
	return nil, nil
}

func parseMPIndex(data, tiff []byte, base int) ([]mpImage, error) {
	if len(tiff) < 8 {
		return nil, errors.New("MPF header too short")
	}
	var order binary.ByteOrder
	switch string(tiff[:4]) {
	case "II*\x00":
		order = binary.LittleEndian
	case "MM\x00*":
		order = binary.BigEndian
	default:
		return nil, errors.New("MPF header has no TIFF byte order mark")
	}
	ifd := int(order.Uint32(tiff[4:8]))
	if ifd+2 > len(tiff) {
		return nil, errors.New("MPF index IFD out of range")
	}
	count := int(order.Uint16(tiff[ifd:]))
	var entriesOffset, entriesLength int
	for i := 0; i < count; i++ {
		at := ifd + 2 + i*12
		if at+12 > len(tiff) {
			return nil, errors.New("MPF index IFD truncated")
		}
		if order.Uint16(tiff[at:]) != tagMPEntry {
			continue
		}
		entriesLength = int(order.Uint32(tiff[at+4:]))
		entriesOffset = int(order.Uint32(tiff[at+8:]))
	}
	if entriesLength == 0 || entriesLength%mpEntrySize != 0 {
		return nil, errors.Errorf("MPF index has bad MP entry length %d", entriesLength)
	}
	if entriesOffset+entriesLength > len(tiff) {
		return nil, errors.New("MPF MP entries out of range")
	}

	var images []mpImage
	for i := 0; i < entriesLength/mpEntrySize; i++ {
		entry := tiff[entriesOffset+i*mpEntrySize:]
		img := mpImage{
			attribute: order.Uint32(entry[0:]),
			size:      int(order.Uint32(entry[4:])),
			offset:    int(order.Uint32(entry[8:])),
		}
		// the primary image is listed with offset zero.
		if img.offset == 0 {
			continue
		}
		img.offset += base
		if img.size <= 0 || img.offset+img.size > len(data) {
			return nil, errors.Errorf("MPF image %d out of range", i)
		}
		images = append(images, img)
	}
	return images, nil
}

// apdiKind classifies an MPF image by its Apple pixel data info XMP. ok is false for auxiliary
// images that are neither depth nor disparity, such as portrait mattes.
func apdiKind(props xmpProperties) (rimage.SampleKind, bool) {
	if auxType, ok := props.get(nsAPDI, "AuxiliaryImageType"); ok {
		lower := strings.ToLower(auxType)
		switch {
		case strings.HasSuffix(lower, "aux:depth"):
			return rimage.KindDepth, true
		case strings.HasSuffix(lower, "aux:disparity"):
			return rimage.KindDisparity, true
		}
	}
	if native, ok := props.get(nsAPDI, "NativeFormat"); ok {
		switch fourCC(native) {
		case "hdep", "fdep":
			return rimage.KindDepth, true
		case "hdis", "fdis":
			return rimage.KindDisparity, true
		}
	}
	return 0, false
}

// fourCC accepts either the four characters themselves or their big endian integer value.
func fourCC(v string) string {
	v = strings.TrimSpace(v)
	if n, err := strconv.ParseUint(v, 10, 32); err == nil {
		var b [4]byte
		binary.BigEndian.PutUint32(b[:], uint32(n))
		return string(b[:])
	}
	return v
}
