package jpeg

// MarkerOffset is one entry of a marker table.
type MarkerOffset struct {
	Marker Marker `json:"marker"`
	Offset int    `json:"offset"`
}

// Info summarizes the header of a JPEG stream.
type Info struct {
	Markers           []MarkerOffset `json:"markers"`
	TransferSyntaxUID string         `json:"transfer_syntax_uid,omitempty"`
	Frame             *SOFSegment    `json:"frame,omitempty"`
	Scan              *SOSSegment    `json:"scan,omitempty"`
	CodingParam       *CodingParam   `json:"coding_param,omitempty"`
}

// Inspect reads the header of data up to the first SOS. Frame, Scan and
// CodingParam are nil when the segment is absent or malformed.
func Inspect(data []byte) (*Info, error) {
	h := NewHeaderUntil(data, SOS)
	if h.NumberOfMarkers() == 0 || h.MarkerAt(0) != SOI {
		return nil, ErrNotJPEG
	}

	info := &Info{
		Markers:           make([]MarkerOffset, h.NumberOfMarkers()),
		TransferSyntaxUID: h.TransferSyntaxUID(),
	}
	for i, off := range h.offsets {
		info.Markers[i] = MarkerOffset{Marker: h.MarkerAt(i), Offset: off}
	}
	if sof, err := h.SOF(); err == nil {
		info.Frame = sof
	}
	if sos, err := h.SOS(); err == nil {
		info.Scan = sos
	}
	if off := h.OffsetOf(LSE); off != -1 {
		if param, err := ParseLSE(data, off); err == nil {
			info.CodingParam = param
		}
	}
	return info, nil
}
