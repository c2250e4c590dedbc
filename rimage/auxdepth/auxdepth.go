// Package auxdepth finds depth and disparity maps embedded as auxiliary data in photo containers.
//
// Recognized layouts are GDepth XMP in JPEG (including extended XMP), MPF secondary images carrying
// Apple pixel data info XMP, and GDepth XMP in PNG text chunks.
package auxdepth

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"os"
	// register jpeg and png decoding for container checks.
	_ "image/jpeg"
	_ "image/png"

	"github.com/pkg/errors"
	"github.com/samber/lo"
	"github.com/samber/mo"

	"github.com/viam-labs/depthoverlay/logging"
	"github.com/viam-labs/depthoverlay/rimage"
	"github.com/viam-labs/depthoverlay/utils"
)

// ErrContainerUnreadable is returned when a file is missing or is not a decodable image.
var ErrContainerUnreadable = errors.New("image container is unreadable")

// Source names where an auxiliary entry was found.
type Source string

const (
	// SourceJPEGGDepth is a GDepth map in the XMP of a JPEG.
	SourceJPEGGDepth Source = "jpeg-xmp-gdepth"
	// SourceJPEGMPF is an MPF secondary image described by Apple pixel data info.
	SourceJPEGMPF Source = "jpeg-mpf-apdi"
	// SourcePNGGDepth is a GDepth map in the XMP text chunk of a PNG.
	SourcePNGGDepth Source = "png-xmp-gdepth"
)

// Entry is one auxiliary depth or disparity map found in a container.
type Entry struct {
	Source Source
	// Index is the entry's position in document order.
	Index int
	// EncodedSize is the size in bytes of the embedded image the sample was decoded from.
	EncodedSize int
	Sample      *rimage.DepthSample
}

// Kind returns whether the entry holds depth or disparity.
func (e Entry) Kind() rimage.SampleKind {
	return e.Sample.Kind()
}

// Extractor reads auxiliary depth from image files. It holds no per-file state.
type Extractor struct {
	logger logging.Logger
}

// NewExtractor returns an extractor that logs skipped entries to logger.
func NewExtractor(logger logging.Logger) *Extractor {
	return &Extractor{logger: logger}
}

// Extract returns the preferred auxiliary sample of the file at path, or an absent value when
// the file has none.
func (e *Extractor) Extract(ctx context.Context, path string) (mo.Option[*rimage.DepthSample], error) {
	data, err := readContainer(path)
	if err != nil {
		return mo.None[*rimage.DepthSample](), err
	}
	return e.ExtractBytes(ctx, data)
}

// ExtractBytes is Extract over an in-memory container.
func (e *Extractor) ExtractBytes(ctx context.Context, data []byte) (mo.Option[*rimage.DepthSample], error) {
	entries, err := e.EntriesBytes(ctx, data)
	if err != nil {
		return mo.None[*rimage.DepthSample](), err
	}
	entry, ok := Preferred(entries).Get()
	if !ok {
		return mo.None[*rimage.DepthSample](), nil
	}
	return mo.Some(entry.Sample), nil
}

// Entries returns every auxiliary depth or disparity entry of the file at path.
func (e *Extractor) Entries(ctx context.Context, path string) ([]Entry, error) {
	data, err := readContainer(path)
	if err != nil {
		return nil, err
	}
	return e.EntriesBytes(ctx, data)
}

// EntriesBytes is Entries over an in-memory container. Malformed auxiliary data is skipped.
func (e *Extractor) EntriesBytes(ctx context.Context, data []byte) ([]Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrContainerUnreadable, err)
	}
	bounds := image.Rect(0, 0, cfg.Width, cfg.Height)

	var entries []Entry
	switch utils.MimeTypeForFormat(format) {
	case utils.MimeTypeJPEG:
		entries = e.jpegEntries(ctx, data)
	case utils.MimeTypePNG:
		entries = e.pngEntries(ctx, data)
	default:
		e.logger.Debugw("container format cannot carry auxiliary depth", "format", format)
		return nil, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	aligned := lo.Filter(entries, func(entry Entry, _ int) bool {
		if entry.Sample.AlignsWith(bounds) {
			return true
		}
		e.logger.Debugw("skipping auxiliary entry not aligned with the photo",
			"source", entry.Source,
			"depth_size", entry.Sample.Bounds().Size(),
			"photo_size", bounds.Size())
		return false
	})
	for i := range aligned {
		aligned[i].Index = i
	}
	return aligned, nil
}

// Preferred picks the entry to use: the first depth entry, otherwise the first disparity entry.
func Preferred(entries []Entry) mo.Option[Entry] {
	if entry, ok := lo.Find(entries, func(e Entry) bool { return e.Kind() == rimage.KindDepth }); ok {
		return mo.Some(entry)
	}
	if entry, ok := lo.Find(entries, func(e Entry) bool { return e.Kind() == rimage.KindDisparity }); ok {
		return mo.Some(entry)
	}
	return mo.None[Entry]()
}

func readContainer(path string) ([]byte, error) {
	//nolint:gosec
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrContainerUnreadable, err)
	}
	return data, nil
}

func (e *Extractor) jpegEntries(ctx context.Context, data []byte) []Entry {
	segments, err := jpegSegments(data)
	if err != nil {
		e.logger.Debugw("cannot walk JPEG header", "error", err)
		return nil
	}

	var entries []Entry
	if entry, ok := e.jpegGDepth(segments); ok {
		entries = append(entries, entry)
	}

	images, err := mpfImages(data, segments)
	if err != nil {
		e.logger.Debugw("skipping malformed MPF index", "error", err)
	}
	for _, img := range images {
		if ctx.Err() != nil {
			return entries
		}
		if entry, ok := e.mpfEntry(data[img.offset : img.offset+img.size]); ok {
			entries = append(entries, entry)
		}
	}
	return entries
}

func (e *Extractor) jpegGDepth(segments []segment) (Entry, bool) {
	packets := collectXMP(segments)
	if packets.main == nil {
		return Entry{}, false
	}
	props, err := parseXMP(packets.main)
	if err != nil {
		e.logger.Debugw("skipping malformed XMP", "error", err)
		return Entry{}, false
	}
	if guid, ok := props.get(nsXMPNote, "HasExtendedXMP"); ok {
		if extended, ok := packets.extended[guid]; ok {
			extendedProps, err := parseXMP(extended)
			if err != nil {
				e.logger.Debugw("skipping malformed extended XMP", "guid", guid, "error", err)
			} else {
				props.merge(extendedProps)
			}
		} else {
			e.logger.Debugw("extended XMP referenced but incomplete", "guid", guid)
		}
	}
	return e.gdepthEntry(SourceJPEGGDepth, props)
}

func (e *Extractor) pngEntries(ctx context.Context, data []byte) []Entry {
	packets, err := pngXMPPackets(data)
	if err != nil {
		e.logger.Debugw("stopped reading PNG chunks", "error", err)
	}
	var entries []Entry
	for _, packet := range packets {
		if ctx.Err() != nil {
			return entries
		}
		props, err := parseXMP(packet)
		if err != nil {
			e.logger.Debugw("skipping malformed XMP", "error", err)
			continue
		}
		if entry, ok := e.gdepthEntry(SourcePNGGDepth, props); ok {
			entries = append(entries, entry)
		}
	}
	return entries
}

func (e *Extractor) gdepthEntry(source Source, props xmpProperties) (Entry, bool) {
	m, found, err := gdepthFromXMP(props)
	if !found {
		return Entry{}, false
	}
	if err != nil {
		e.logger.Debugw("skipping GDepth map", "source", source, "error", err)
		return Entry{}, false
	}
	sample, err := decodeGDepth(m)
	if err != nil {
		e.logger.Debugw("skipping GDepth map", "source", source, "error", err)
		return Entry{}, false
	}
	return Entry{Source: source, EncodedSize: len(m.data), Sample: sample}, true
}

func (e *Extractor) mpfEntry(data []byte) (Entry, bool) {
	segments, err := jpegSegments(data)
	if err != nil {
		e.logger.Debugw("skipping MPF image", "error", err)
		return Entry{}, false
	}
	packets := collectXMP(segments)
	if packets.main == nil {
		return Entry{}, false
	}
	props, err := parseXMP(packets.main)
	if err != nil {
		e.logger.Debugw("skipping MPF image with malformed XMP", "error", err)
		return Entry{}, false
	}
	kind, ok := apdiKind(props)
	if !ok {
		return Entry{}, false
	}
	sample, err := decodeAPDI(kind, props, data)
	if err != nil {
		e.logger.Debugw("skipping MPF image", "kind", kind, "error", err)
		return Entry{}, false
	}
	return Entry{Source: SourceJPEGMPF, EncodedSize: len(data), Sample: sample}, true
}
