package event

// LayerMask selects the layer number from a composite tracker cell ID.
const LayerMask = 0xFF

// LayerBits is the number of low-order cell ID bits that hold the layer number.
const LayerBits = 8

// MaxLayer is the largest layer number the encoding can represent.
const MaxLayer = LayerMask

// LayerOf decodes the 1-based layer number from a tracker cell ID.
// A result of 0 means the producer did not set a layer.
func LayerOf(cellID int32) int {
	return int(cellID & LayerMask)
}

// EncodeCellID packs a layer number and producer-specific upper bits into a
// cell ID. Layer numbers above MaxLayer are truncated to the low 8 bits.
func EncodeCellID(layer int, upper int32) int32 {
	return upper<<LayerBits | int32(layer&LayerMask)
}
