package converter

// ReadMode controls how a source image is decoded.
type ReadMode int

const (
	// ReadColor decodes to three colour channels, dropping alpha.
	ReadColor ReadMode = iota
	// ReadUnchanged keeps the stored channel layout, alpha included.
	ReadUnchanged
)

func (m ReadMode) String() string {
	switch m {
	case ReadColor:
		return "color"
	case ReadUnchanged:
		return "unchanged"
	default:
		return "unknown"
	}
}
