package detector

// BBox is a face bounding box [x1, y1, x2, y2] in pixels.
type BBox []float64

// Valid reports whether the box has four coordinates.
func (b BBox) Valid() bool {
	return len(b) == 4
}

// Width returns the box width, 0 for invalid boxes.
func (b BBox) Width() float64 {
	if !b.Valid() {
		return 0
	}
	return max(b[2]-b[0], 0)
}

// Height returns the box height, 0 for invalid boxes.
func (b BBox) Height() float64 {
	if !b.Valid() {
		return 0
	}
	return max(b[3]-b[1], 0)
}
