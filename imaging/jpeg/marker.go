// Package jpeg reads JPEG and JPEG-LS marker segments without decoding the
// image data. It builds a marker offset table over a header buffer, decodes
// the frame and scan headers, and patches JPEG-LS streams whose coding
// parameters were written by encoders that disagree on the defaults.
package jpeg

import "fmt"

// Marker is the second byte of a 0xFF-prefixed marker.
type Marker byte

// Markers defined by ITU T.81 and T.87.
const (
	TEM Marker = 0x01

	SOF0  Marker = 0xC0
	SOF1  Marker = 0xC1
	SOF2  Marker = 0xC2
	SOF3  Marker = 0xC3
	DHT   Marker = 0xC4
	SOF5  Marker = 0xC5
	SOF6  Marker = 0xC6
	SOF7  Marker = 0xC7
	JPG   Marker = 0xC8
	SOF9  Marker = 0xC9
	SOF10 Marker = 0xCA
	SOF11 Marker = 0xCB
	DAC   Marker = 0xCC
	SOF13 Marker = 0xCD
	SOF14 Marker = 0xCE
	SOF15 Marker = 0xCF

	RST0 Marker = 0xD0
	RST7 Marker = 0xD7
	SOI  Marker = 0xD8
	EOI  Marker = 0xD9
	SOS  Marker = 0xDA
	DQT  Marker = 0xDB
	DNL  Marker = 0xDC
	DRI  Marker = 0xDD
	DHP  Marker = 0xDE
	EXP  Marker = 0xDF

	APP0  Marker = 0xE0
	APP14 Marker = 0xEE
	APP15 Marker = 0xEF

	SOF55 Marker = 0xF7 // JPEG-LS start of frame
	LSE   Marker = 0xF8 // JPEG-LS preset parameters
	COM   Marker = 0xFE
)

// IsStandalone reports whether m has no length field and no payload.
func IsStandalone(m Marker) bool {
	return m == TEM || m == SOI || m == EOI || (m >= RST0 && m <= RST7)
}

// IsSOF reports whether m starts a frame, including the JPEG-LS SOF55.
func IsSOF(m Marker) bool {
	switch m {
	case SOF0, SOF1, SOF2, SOF3, SOF5, SOF6, SOF7, SOF9, SOF10, SOF11, SOF13, SOF14, SOF15, SOF55:
		return true
	}
	return false
}

// IsSOFLossless reports whether m starts a lossless frame.
func IsSOFLossless(m Marker) bool {
	switch m {
	case SOF3, SOF7, SOF11, SOF15, SOF55:
		return true
	}
	return false
}

// IsAPP reports whether m is one of APP0 to APP15.
func IsAPP(m Marker) bool {
	return m >= APP0 && m <= APP15
}

var markerNames = map[Marker]string{
	TEM: "TEM", DHT: "DHT", JPG: "JPG", DAC: "DAC",
	SOI: "SOI", EOI: "EOI", SOS: "SOS", DQT: "DQT", DNL: "DNL", DRI: "DRI", DHP: "DHP", EXP: "EXP",
	SOF55: "SOF55", LSE: "LSE", COM: "COM",
}

func (m Marker) String() string {
	if name, ok := markerNames[m]; ok {
		return name
	}
	switch {
	case IsSOF(m):
		return fmt.Sprintf("SOF%d", m-SOF0)
	case m >= RST0 && m <= RST7:
		return fmt.Sprintf("RST%d", m-RST0)
	case IsAPP(m):
		return fmt.Sprintf("APP%d", m-APP0)
	}
	return fmt.Sprintf("0x%02X", byte(m))
}

// MarshalText encodes the marker by name.
func (m Marker) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}
