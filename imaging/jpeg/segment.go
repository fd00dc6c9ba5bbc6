package jpeg

import (
	"encoding/binary"
	"fmt"
)

// FrameComponent is one component of a frame header.
type FrameComponent struct {
	ID int // Ci
	H  int // horizontal sampling factor
	V  int // vertical sampling factor
	Tq int // quantization table selector
}

// SOFSegment is a decoded start-of-frame header.
type SOFSegment struct {
	Marker         Marker
	Offset         int // offset of the marker byte
	Length         int // Lf, including the length field
	Precision      int // P, bits per sample
	Lines          int // Y
	SamplesPerLine int // X
	Components     []FrameComponent
}

// ParseSOF decodes the frame header whose marker byte is at data[off].
func ParseSOF(data []byte, off int) (*SOFSegment, error) {
	if off < 0 || off+8 >= len(data) {
		return nil, ErrTruncated
	}
	m := Marker(data[off])
	if !IsSOF(m) {
		return nil, fmt.Errorf("jpeg: %s at offset %d is not a start of frame", m, off)
	}

	nf := int(data[off+8])
	if off+8+3*nf >= len(data) {
		return nil, ErrTruncated
	}
	sof := &SOFSegment{
		Marker:         m,
		Offset:         off,
		Length:         int(binary.BigEndian.Uint16(data[off+1:])),
		Precision:      int(data[off+3]),
		Lines:          int(binary.BigEndian.Uint16(data[off+4:])),
		SamplesPerLine: int(binary.BigEndian.Uint16(data[off+6:])),
		Components:     make([]FrameComponent, nf),
	}
	for i := range sof.Components {
		c := off + 9 + 3*i
		sof.Components[i] = FrameComponent{
			ID: int(data[c]),
			H:  int(data[c+1] >> 4),
			V:  int(data[c+1] & 0x0F),
			Tq: int(data[c+2]),
		}
	}
	return sof, nil
}

// NumComponents returns Nf.
func (s *SOFSegment) NumComponents() int {
	return len(s.Components)
}

// ScanComponent is one component of a scan header.
type ScanComponent struct {
	ID int // Cs
	Td int // DC entropy table selector; JPEG-LS mapping table selector
	Ta int // AC entropy table selector
}

// SOSSegment is a decoded start-of-scan header. JPEG-LS reuses Ss as NEAR
// and Se as ILV.
type SOSSegment struct {
	Offset     int
	Length     int // Ls, including the length field
	Components []ScanComponent
	Ss         int
	Se         int
	Ah         int
	Al         int
}

// ParseSOS decodes the scan header whose marker byte is at data[off].
func ParseSOS(data []byte, off int) (*SOSSegment, error) {
	if off < 0 || off+3 >= len(data) {
		return nil, ErrTruncated
	}
	if m := Marker(data[off]); m != SOS {
		return nil, fmt.Errorf("jpeg: %s at offset %d is not a start of scan", m, off)
	}

	ns := int(data[off+3])
	tail := off + 4 + 2*ns
	if tail+2 >= len(data) {
		return nil, ErrTruncated
	}
	sos := &SOSSegment{
		Offset:     off,
		Length:     int(binary.BigEndian.Uint16(data[off+1:])),
		Components: make([]ScanComponent, ns),
		Ss:         int(data[tail]),
		Se:         int(data[tail+1]),
		Ah:         int(data[tail+2] >> 4),
		Al:         int(data[tail+2] & 0x0F),
	}
	for j := range sos.Components {
		c := off + 4 + 2*j
		sos.Components[j] = ScanComponent{
			ID: int(data[c]),
			Td: int(data[c+1] >> 4),
			Ta: int(data[c+1] & 0x0F),
		}
	}
	return sos, nil
}

// Near returns the JPEG-LS NEAR parameter; 0 means lossless.
func (s *SOSSegment) Near() int {
	return s.Ss
}

// ILV returns the JPEG-LS interleave mode: 0 none, 1 line, 2 sample.
func (s *SOSSegment) ILV() int {
	return s.Se
}
