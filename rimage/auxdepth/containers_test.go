package auxdepth

import (
	"bytes"
	"compress/zlib"
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"

	"go.viam.com/test"
)

const xmpNamespaces = `xmlns:GDepth="http://ns.google.com/photos/1.0/depthmap/" ` +
	`xmlns:xmpNote="http://ns.adobe.com/xmp/note/" ` +
	`xmlns:apdi="http://ns.apple.com/pixeldatainfo/1.0/"`

// xmpPacket wraps description attributes and children into an XMP packet.
func xmpPacket(attrs, children string) []byte {
	return []byte(`<?xpacket begin="" id="W5M0MpCehiHzreSzNTczkc9d"?>` +
		`<x:xmpmeta xmlns:x="adobe:ns:meta/">` +
		`<rdf:RDF xmlns:rdf="http://www.w3.org/1999/02/22-rdf-syntax-ns#">` +
		`<rdf:Description rdf:about="" ` + xmpNamespaces + ` ` + attrs + `>` + children +
		`</rdf:Description></rdf:RDF></x:xmpmeta><?xpacket end="w"?>`)
}

func gdepthAttrs(format string, near, far float64, data []byte) string {
	return fmt.Sprintf(`GDepth:Format=%q GDepth:Near="%v" GDepth:Far="%v" GDepth:Mime="image/png" GDepth:Data=%q`,
		format, near, far, base64.StdEncoding.EncodeToString(data))
}

func colorImage(w, h int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, color.RGBA{R: uint8(x * 7), G: uint8(y * 5), B: 90, A: 255})
		}
	}
	return img
}

func grayLevels(w, h int, levels ...uint8) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, w, h))
	copy(img.Pix, levels)
	return img
}

// halfAndHalf is left half white and right half black, in whole 8x8 blocks so JPEG keeps it exact.
func halfAndHalf(w, h int) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w/2; x++ {
			img.SetGray(x, y, color.Gray{Y: 255})
		}
	}
	return img
}

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	test.That(t, png.Encode(&buf, img), test.ShouldBeNil)
	return buf.Bytes()
}

func encodeJPEG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	test.That(t, jpeg.Encode(&buf, img, &jpeg.Options{Quality: 100}), test.ShouldBeNil)
	return buf.Bytes()
}

func jpegSegment(marker byte, payload []byte) []byte {
	out := []byte{0xFF, marker, 0, 0}
	binary.BigEndian.PutUint16(out[2:], uint16(len(payload)+2))
	return append(out, payload...)
}

func xmpSegment(packet []byte) []byte {
	return jpegSegment(markerAPP1, append(append([]byte{}, xmpSignature...), packet...))
}

// extendedXMPSegments splits packet into chunks of at most chunkSize bytes, last chunk first.
func extendedXMPSegments(guid string, packet []byte, chunkSize int) [][]byte {
	var segs [][]byte
	for offset := 0; offset < len(packet); offset += chunkSize {
		end := min(offset+chunkSize, len(packet))
		payload := append([]byte{}, extendedXMPSignature...)
		payload = append(payload, guid...)
		payload = binary.BigEndian.AppendUint32(payload, uint32(len(packet)))
		payload = binary.BigEndian.AppendUint32(payload, uint32(offset))
		payload = append(payload, packet[offset:end]...)
		segs = append([][]byte{jpegSegment(markerAPP1, payload)}, segs...)
	}
	return segs
}

// withSegments inserts header segments right after a JPEG's start of image marker.
func withSegments(jpg []byte, segs ...[]byte) []byte {
	out := append([]byte{}, jpg[:2]...)
	for _, s := range segs {
		out = append(out, s...)
	}
	return append(out, jpg[2:]...)
}

// withMPF appends secondary images to a primary JPEG and indexes them in an MPF segment.
func withMPF(primary []byte, secondaries ...[]byte) []byte {
	n := len(secondaries) + 1
	order := binary.LittleEndian
	tiff := []byte("II*\x00")
	tiff = order.AppendUint32(tiff, 8)
	tiff = order.AppendUint16(tiff, 3)
	tiff = order.AppendUint16(tiff, tagMPFVersion)
	tiff = order.AppendUint16(tiff, 7)
	tiff = order.AppendUint32(tiff, 4)
	tiff = append(tiff, "0100"...)
	tiff = order.AppendUint16(tiff, tagNumberImages)
	tiff = order.AppendUint16(tiff, 4)
	tiff = order.AppendUint32(tiff, 1)
	tiff = order.AppendUint32(tiff, uint32(n))
	tiff = order.AppendUint16(tiff, tagMPEntry)
	tiff = order.AppendUint16(tiff, 7)
	tiff = order.AppendUint32(tiff, uint32(n*mpEntrySize))
	entriesAt := len(tiff) + 4 + 4
	tiff = order.AppendUint32(tiff, uint32(entriesAt))
	tiff = order.AppendUint32(tiff, 0)
	tiff = append(tiff, make([]byte, n*mpEntrySize)...)

	full := withSegments(primary, jpegSegment(markerAPP2, append(append([]byte{}, mpfSignature...), tiff...)))
	tiffStart := 2 + 4 + len(mpfSignature)
	entries := full[tiffStart+entriesAt:]
	order.PutUint32(entries[0:], 0x20030000)
	order.PutUint32(entries[4:], uint32(len(full)))

	next := len(full)
	for i, sec := range secondaries {
		entry := entries[(i+1)*mpEntrySize:]
		order.PutUint32(entry[0:], 0)
		order.PutUint32(entry[4:], uint32(len(sec)))
		order.PutUint32(entry[8:], uint32(next-tiffStart))
		next += len(sec)
	}
	for _, sec := range secondaries {
		full = append(full, sec...)
	}
	return full
}

func pngChunk(kind string, data []byte) []byte {
	out := binary.BigEndian.AppendUint32(nil, uint32(len(data)))
	out = append(out, kind...)
	out = append(out, data...)
	return binary.BigEndian.AppendUint32(out, crc32.ChecksumIEEE(out[4:]))
}

func itxtChunk(t *testing.T, packet []byte, compressed bool) []byte {
	t.Helper()
	data := append([]byte(pngXMPKeyword), 0)
	if !compressed {
		data = append(data, 0, 0, 0, 0)
		return pngChunk("iTXt", append(data, packet...))
	}
	var buf bytes.Buffer
	zw := zlib.NewWriter(&buf)
	_, err := zw.Write(packet)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, zw.Close(), test.ShouldBeNil)
	data = append(data, 1, 0, 0, 0)
	return pngChunk("iTXt", append(data, buf.Bytes()...))
}

func ztxtChunk(t *testing.T, packet []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zlib.NewWriter(&buf)
	_, err := zw.Write(packet)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, zw.Close(), test.ShouldBeNil)
	data := append([]byte(pngXMPKeyword), 0, 0)
	return pngChunk("zTXt", append(data, buf.Bytes()...))
}

// withChunks inserts chunks right after a PNG's IHDR chunk.
func withChunks(pngData []byte, chunks ...[]byte) []byte {
	ihdrEnd := len(pngSignature) + 8 + 13 + 4
	out := append([]byte{}, pngData[:ihdrEnd]...)
	for _, c := range chunks {
		out = append(out, c...)
	}
	return append(out, pngData[ihdrEnd:]...)
}
