package jpeg

import (
	"encoding/binary"
	"errors"
	"fmt"
	"strings"
)

const (
	lseCodingParamID  = 1
	lseCodingParamLen = 13 // length field value of an ID 1 LSE segment
	defaultReset      = 64
)

// CodingParam holds the JPEG-LS preset coding parameters carried by an LSE
// segment with ID 1.
type CodingParam struct {
	MaxVal int
	T1     int
	T2     int
	T3     int
	Reset  int

	// Offset is where PatchHeader inserts the segment, the 0xFF of SOS.
	Offset int
}

// DefaultCodingParam returns the parameters ITU T.87 defines for precision p
// and the given NEAR value. MAXVAL is clamped to 4095 when deriving the
// thresholds.
func DefaultCodingParam(p, near int) *CodingParam {
	maxVal := 1<<p - 1
	return codingParam(maxVal, min(maxVal, 4095), near)
}

// JAICodingParam returns the parameters the JAI ImageIO codec assumes for
// precision p. It derives the thresholds from the unclamped MAXVAL, which
// differs from T.87 for p > 12.
func JAICodingParam(p int) *CodingParam {
	maxVal := 1<<p - 1
	return codingParam(maxVal, maxVal, 0)
}

func codingParam(maxVal, clampedMaxVal, near int) *CodingParam {
	factor := (clampedMaxVal + 128) >> 8
	t1 := factor + 2 + 3*near
	if t1 > maxVal || t1 < near+1 {
		t1 = near + 1
	}
	t2 := factor*4 + 3 + 5*near
	if t2 > maxVal || t2 < t1 {
		t2 = t1
	}
	t3 := factor*17 + 4 + 7*near
	if t3 > maxVal || t3 < t2 {
		t3 = t2
	}
	return &CodingParam{MaxVal: maxVal, T1: t1, T2: t2, T3: t3, Reset: defaultReset}
}

// Bytes renders the complete LSE segment, marker included.
func (c *CodingParam) Bytes() []byte {
	b := make([]byte, 15)
	b[0], b[1] = 0xFF, byte(LSE)
	binary.BigEndian.PutUint16(b[2:], lseCodingParamLen)
	b[4] = lseCodingParamID
	binary.BigEndian.PutUint16(b[5:], uint16(c.MaxVal))
	binary.BigEndian.PutUint16(b[7:], uint16(c.T1))
	binary.BigEndian.PutUint16(b[9:], uint16(c.T2))
	binary.BigEndian.PutUint16(b[11:], uint16(c.T3))
	binary.BigEndian.PutUint16(b[13:], uint16(c.Reset))
	return b
}

func (c *CodingParam) String() string {
	return fmt.Sprintf("MAXVAL=%d T1=%d T2=%d T3=%d RESET=%d", c.MaxVal, c.T1, c.T2, c.T3, c.Reset)
}

// ParseLSE decodes the LSE segment whose marker byte is at data[off]. It
// returns ErrNotJPEGLS for LSE segments that carry mapping tables instead of
// coding parameters.
func ParseLSE(data []byte, off int) (*CodingParam, error) {
	if off < 0 || off+13 >= len(data) {
		return nil, ErrTruncated
	}
	if Marker(data[off]) != LSE || data[off+3] != lseCodingParamID {
		return nil, ErrNotJPEGLS
	}
	u16 := func(i int) int { return int(binary.BigEndian.Uint16(data[off+i:])) }
	return &CodingParam{
		MaxVal: u16(4),
		T1:     u16(6),
		T2:     u16(8),
		T3:     u16(10),
		Reset:  u16(12),
		Offset: off - 1,
	}, nil
}

// PatchMode selects how JPEG-LS streams are patched for codecs that
// disagree on the default coding parameters of images deeper than 12 bits.
type PatchMode int

const (
	// JAI2ISO makes streams written by JAI ImageIO decode correctly with
	// T.87 conformant decoders by spelling out the thresholds JAI used.
	JAI2ISO PatchMode = iota + 1
	// ISO2JAI makes T.87 conformant streams decode correctly with JAI
	// ImageIO by spelling out the T.87 defaults.
	ISO2JAI
	// ISO2JAIIfAPPOrCOM is ISO2JAI restricted to streams that carry APPn
	// or COM segments, which JAI-written streams never do.
	ISO2JAIIfAPPOrCOM
)

var patchModeNames = map[PatchMode]string{
	JAI2ISO:           "JAI2ISO",
	ISO2JAI:           "ISO2JAI",
	ISO2JAIIfAPPOrCOM: "ISO2JAI_IF_APP_OR_COM",
}

func (m PatchMode) String() string {
	if name, ok := patchModeNames[m]; ok {
		return name
	}
	return fmt.Sprintf("PatchMode(%d)", int(m))
}

// ParsePatchMode parses a mode name as printed by String, ignoring case.
func ParsePatchMode(s string) (PatchMode, error) {
	for m, name := range patchModeNames {
		if strings.EqualFold(s, name) {
			return m, nil
		}
	}
	return 0, fmt.Errorf("jpeg: unknown patch mode %q", s)
}

// CodingParam returns the LSE segment to insert into header, or nil when
// the stream needs no patch: it is not JPEG-LS, already has an LSE, has a
// precision of 12 bits or less, or (for ISO2JAIIfAPPOrCOM) has no segment
// besides SOI, SOF55 and SOS.
func (m PatchMode) CodingParam(header []byte) *CodingParam {
	h := NewHeaderUntil(header, SOS)
	soi := h.OffsetOf(SOI)
	sof55 := h.OffsetOf(SOF55)
	sos := h.OffsetOf(SOS)
	if soi == -1 || sof55 == -1 || sos == -1 || h.OffsetOf(LSE) != -1 {
		return nil
	}
	if m == ISO2JAIIfAPPOrCOM && h.NumberOfMarkers() == 3 {
		return nil
	}

	sof, err := ParseSOF(header, sof55)
	if err != nil || sof.Precision <= 12 {
		return nil
	}

	var param *CodingParam
	if m == JAI2ISO {
		param = JAICodingParam(sof.Precision)
	} else {
		scan, err := ParseSOS(header, sos)
		if err != nil {
			return nil
		}
		param = DefaultCodingParam(sof.Precision, scan.Near())
	}
	param.Offset = sos - 1
	return param
}

// PatchHeader returns a copy of data with an LSE segment inserted before
// SOS, and the inserted parameters. When no patch applies it returns data
// unchanged and a nil CodingParam.
func (m PatchMode) PatchHeader(data []byte) ([]byte, *CodingParam) {
	param := m.CodingParam(data)
	if param == nil {
		return data, nil
	}
	lse := param.Bytes()
	out := make([]byte, 0, len(data)+len(lse))
	out = append(out, data[:param.Offset]...)
	out = append(out, lse...)
	out = append(out, data[param.Offset:]...)
	return out, param
}

// StripLSE returns a copy of data without its first coding-parameter LSE
// segment, and the parameters removed. It returns data unchanged and nil
// when there is no such segment before SOS. LSE segments carrying mapping
// tables are kept.
func StripLSE(data []byte) ([]byte, *CodingParam, error) {
	h := NewHeaderUntil(data, SOS)
	if h.OffsetOf(SOI) == -1 {
		return data, nil, ErrNotJPEG
	}
	off := h.OffsetOf(LSE)
	if off == -1 {
		return data, nil, nil
	}
	param, err := ParseLSE(data, off)
	if errors.Is(err, ErrNotJPEGLS) {
		return data, nil, nil
	}
	if err != nil {
		return data, nil, err
	}

	end := off + 1 + int(binary.BigEndian.Uint16(data[off+1:]))
	if end > len(data) {
		return data, nil, ErrTruncated
	}
	out := make([]byte, 0, len(data)-(end-param.Offset))
	out = append(out, data[:param.Offset]...)
	out = append(out, data[end:]...)
	return out, param, nil
}
