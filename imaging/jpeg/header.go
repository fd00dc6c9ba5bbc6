package jpeg

import (
	"encoding/binary"
	"errors"
)

var (
	// ErrNotJPEG is returned for data that does not start with SOI.
	ErrNotJPEG = errors.New("jpeg: missing SOI marker")

	// ErrNotJPEGLS is returned when a JPEG-LS operation finds no SOF55 frame.
	ErrNotJPEGLS = errors.New("jpeg: not a JPEG-LS stream")

	// ErrTruncated is returned when a segment extends past the end of the data.
	ErrTruncated = errors.New("jpeg: truncated segment")
)

// Transfer syntax UIDs of the JPEG processes, as used by DICOM.
const (
	UIDBaseline           = "1.2.840.10008.1.2.4.50"
	UIDExtended           = "1.2.840.10008.1.2.4.51"
	UIDProgressive        = "1.2.840.10008.1.2.4.55"
	UIDLosslessProcess14  = "1.2.840.10008.1.2.4.57"
	UIDLosslessSV1        = "1.2.840.10008.1.2.4.70"
	UIDJPEGLSLossless     = "1.2.840.10008.1.2.4.80"
	UIDJPEGLSNearLossless = "1.2.840.10008.1.2.4.81"
)

// Header is the marker offset table of a JPEG buffer. Each offset points at
// the marker byte, the one following 0xFF. A Header does not copy data, so
// data must not change while the Header is in use.
type Header struct {
	data    []byte
	offsets []int
}

// NewHeader scans every marker in data. Segment payloads are skipped using
// their length fields; entropy-coded data is scanned byte by byte, so stuffed
// 0xFF00 sequences are not reported.
func NewHeader(data []byte) *Header {
	return scan(data, 0, false)
}

// NewHeaderUntil scans data up to and including the first last marker. Use
// SOS to read only the header of a stream.
func NewHeaderUntil(data []byte, last Marker) *Header {
	return scan(data, last, true)
}

func scan(data []byte, last Marker, stop bool) *Header {
	h := &Header{data: data}
	for off := nextMarker(data, 0); off != -1; {
		h.offsets = append(h.offsets, off)
		m := Marker(data[off])
		if stop && m == last {
			break
		}
		next := off + 1
		if !IsStandalone(m) {
			if next+1 >= len(data) {
				break
			}
			next += int(binary.BigEndian.Uint16(data[next:]))
		}
		off = nextMarker(data, next)
	}
	return h
}

// nextMarker returns the offset of the first marker byte at or after
// from+1, or -1.
func nextMarker(data []byte, from int) int {
	for i := from + 1; i < len(data); i++ {
		if data[i-1] == 0xFF && data[i] != 0xFF && data[i] != 0x00 {
			return i
		}
	}
	return -1
}

// Data returns the buffer the header was built over.
func (h *Header) Data() []byte {
	return h.data
}

// NumberOfMarkers returns the number of markers found.
func (h *Header) NumberOfMarkers() int {
	return len(h.offsets)
}

// Offsets returns a copy of the marker offsets in stream order.
func (h *Header) Offsets() []int {
	return append([]int(nil), h.offsets...)
}

// MarkerAt returns the i-th marker.
func (h *Header) MarkerAt(i int) Marker {
	return Marker(h.data[h.offsets[i]])
}

// OffsetOf returns the offset of the first m marker, or -1.
func (h *Header) OffsetOf(m Marker) int {
	for i, off := range h.offsets {
		if h.MarkerAt(i) == m {
			return off
		}
	}
	return -1
}

// OffsetSOF returns the offset of the first start-of-frame marker, or -1.
func (h *Header) OffsetSOF() int {
	for i, off := range h.offsets {
		if IsSOF(h.MarkerAt(i)) {
			return off
		}
	}
	return -1
}

// OffsetAfterAPP returns the offset of the first marker after SOI that is
// not an APPn marker, or -1. New segments are inserted there.
func (h *Header) OffsetAfterAPP() int {
	for i := 1; i < len(h.offsets); i++ {
		if !IsAPP(h.MarkerAt(i)) {
			return h.offsets[i]
		}
	}
	return -1
}

// SOF decodes the first start-of-frame segment.
func (h *Header) SOF() (*SOFSegment, error) {
	off := h.OffsetSOF()
	if off == -1 {
		return nil, ErrNotJPEG
	}
	return ParseSOF(h.data, off)
}

// SOS decodes the first start-of-scan segment.
func (h *Header) SOS() (*SOSSegment, error) {
	off := h.OffsetOf(SOS)
	if off == -1 {
		return nil, ErrTruncated
	}
	return ParseSOS(h.data, off)
}

// TransferSyntaxUID returns the DICOM transfer syntax matching the frame
// type, or "" when the frame type has none.
func (h *Header) TransferSyntaxUID() string {
	off := h.OffsetSOF()
	if off == -1 {
		return ""
	}
	switch Marker(h.data[off]) {
	case SOF0:
		return UIDBaseline
	case SOF1:
		return UIDExtended
	case SOF2:
		return UIDProgressive
	case SOF3:
		if h.ss() == 1 {
			return UIDLosslessSV1
		}
		return UIDLosslessProcess14
	case SOF55:
		if h.ss() == 0 {
			return UIDJPEGLSLossless
		}
		return UIDJPEGLSNearLossless
	}
	return ""
}

// ss returns the Ss byte of the first scan, which JPEG-LS uses for NEAR and
// lossless JPEG for the predictor, or -1.
func (h *Header) ss() int {
	sos, err := h.SOS()
	if err != nil {
		return -1
	}
	return sos.Ss
}
