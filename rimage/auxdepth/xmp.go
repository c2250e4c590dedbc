package auxdepth

import (
	"bytes"
	"encoding/base64"
	"encoding/xml"
	"io"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cast"
)

const (
	nsXMPNote = "http://ns.adobe.com/xmp/note/"
	nsGDepth  = "http://ns.google.com/photos/1.0/depthmap/"
	nsAPDI    = "http://ns.apple.com/pixeldatainfo/1.0/"
	nsXMLNS   = "xmlns"
)

// xmpProperties holds the simple properties of an XMP packet keyed by namespace URI and local name.
// Properties may come from attributes of any element or from the text of leaf elements.
type xmpProperties map[xml.Name]string

func parseXMP(packet []byte) (xmpProperties, error) {
	props := xmpProperties{}
	dec := xml.NewDecoder(bytes.NewReader(packet))
	dec.Strict = false

	type open struct {
		name        xml.Name
		text        strings.Builder
		hasChildren bool
	}
	var stack []*open
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return props, errors.Wrap(err, "malformed XMP packet")
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if len(stack) > 0 {
				stack[len(stack)-1].hasChildren = true
			}
			for _, attr := range t.Attr {
				if attr.Name.Space == nsXMLNS || attr.Name.Space == "" {
					continue
				}
				props[attr.Name] = attr.Value
			}
			stack = append(stack, &open{name: t.Name})
		case xml.CharData:
			if len(stack) > 0 {
				stack[len(stack)-1].text.Write(t)
			}
		case xml.EndElement:
			if len(stack) == 0 {
				continue
			}
			top := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			if text := strings.TrimSpace(top.text.String()); !top.hasChildren && text != "" {
				props[top.name] = text
			}
		}
	}
	return props, nil
}

func (p xmpProperties) get(space, local string) (string, bool) {
	v, ok := p[xml.Name{Space: space, Local: local}]
	return v, ok
}

func (p xmpProperties) float(space, local string) (float64, bool) {
	v, ok := p.get(space, local)
	if !ok {
		return 0, false
	}
	f, err := cast.ToFloat64E(strings.TrimSpace(v))
	if err != nil {
		return 0, false
	}
	return f, true
}

func (p xmpProperties) merge(other xmpProperties) {
	for k, v := range other {
		if _, ok := p[k]; !ok {
			p[k] = v
		}
	}
}

// gdepthFormat is how a GDepth map encodes distance into its gray levels.
type gdepthFormat string

const (
	gdepthRangeLinear  gdepthFormat = "RangeLinear"
	gdepthRangeInverse gdepthFormat = "RangeInverse"
)

// gdepthMap is a GDepth depth map described by XMP.
type gdepthMap struct {
	format gdepthFormat
	near   float64
	far    float64
	mime   string
	data   []byte
}

// gdepthFromXMP reads the GDepth properties. ok is false when the packet carries no depth map.
func gdepthFromXMP(props xmpProperties) (gdepthMap, bool, error) {
	encoded, ok := props.get(nsGDepth, "Data")
	if !ok {
		return gdepthMap{}, false, nil
	}
	format, _ := props.get(nsGDepth, "Format")
	m := gdepthMap{format: gdepthFormat(format)}
	if m.format != gdepthRangeLinear && m.format != gdepthRangeInverse {
		return m, true, errors.Errorf("unknown GDepth format %q", format)
	}
	var nearOK, farOK bool
	m.near, nearOK = props.float(nsGDepth, "Near")
	m.far, farOK = props.float(nsGDepth, "Far")
	if !nearOK || !farOK || m.near <= 0 || m.far <= m.near {
		return m, true, errors.Errorf("GDepth near/far unusable (%v, %v)", m.near, m.far)
	}
	m.mime, _ = props.get(nsGDepth, "Mime")

	data, err := base64.StdEncoding.DecodeString(strings.Join(strings.Fields(encoded), ""))
	if err != nil {
		return m, true, errors.Wrap(err, "GDepth data is not base64")
	}
	m.data = data
	return m, true, nil
}
