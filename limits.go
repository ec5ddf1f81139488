package vtu

// Limits bounds the resources a single Decode may allocate.
type Limits struct {
	MaxDocumentBytes int64 // raw document size
	MaxArrayBytes    int64 // decoded bytes of one data array
	MaxBlocks        int   // compression blocks of one data array
	MaxPieces        int
	MaxArrays        int // data arrays stored in a raw AppendedData section
}

func defaultLimits() Limits {
	return Limits{
		MaxDocumentBytes: 4 << 30, // 4 GiB
		MaxArrayBytes:    2 << 30, // 2 GiB
		MaxBlocks:        1 << 20, // 32 GiB of 32 KiB blocks
		MaxPieces:        1 << 16,
		MaxArrays:        1 << 20,
	}
}

func (l Limits) withDefaults() Limits {
	d := defaultLimits()
	if l.MaxDocumentBytes == 0 {
		l.MaxDocumentBytes = d.MaxDocumentBytes
	}
	if l.MaxArrayBytes == 0 {
		l.MaxArrayBytes = d.MaxArrayBytes
	}
	if l.MaxBlocks == 0 {
		l.MaxBlocks = d.MaxBlocks
	}
	if l.MaxPieces == 0 {
		l.MaxPieces = d.MaxPieces
	}
	if l.MaxArrays == 0 {
		l.MaxArrays = d.MaxArrays
	}
	return l
}
