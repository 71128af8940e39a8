package detector

// QualityReason explains the outcome of an enrollment photo check.
type QualityReason int

const (
	QualityOK QualityReason = iota
	LowResolution
	NoFace
	MultipleFaces
	FaceTooSmall
	Undecodable
)

var qualityCodes = map[QualityReason]string{
	QualityOK:     "ok",
	LowResolution: "low_resolution",
	NoFace:        "no_face",
	MultipleFaces: "multiple_faces",
	FaceTooSmall:  "face_too_small",
	Undecodable:   "undecodable",
}

var qualityMessages = map[QualityReason]string{
	QualityOK:     "Face quality is good",
	LowResolution: "Image resolution too low. Please ensure good lighting and camera quality.",
	NoFace:        "No face detected. Please ensure your face is clearly visible.",
	MultipleFaces: "Multiple faces detected. Only one person should be in frame.",
	FaceTooSmall:  "Face too small. Please move closer to the camera.",
	Undecodable:   "Image could not be decoded. Please upload a JPEG, PNG, GIF, WebP or BMP photo.",
}

// String returns the machine readable code.
func (r QualityReason) String() string {
	if s, ok := qualityCodes[r]; ok {
		return s
	}
	return "unknown"
}

// Message returns the user facing explanation.
func (r QualityReason) Message() string {
	return qualityMessages[r]
}

// MarshalText encodes the reason as its code.
func (r QualityReason) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// Quality is the result of an enrollment photo check.
type Quality struct {
	Valid  bool          `json:"valid"`
	Reason QualityReason `json:"reason"`
}

// Message returns the user facing explanation of the result.
func (q Quality) Message() string {
	return q.Reason.Message()
}

// Thresholds are the minimum sizes an enrollment photo must meet.
type Thresholds struct {
	MinImageDim int // photo width and height in pixels
	MinFaceDim  int // face box width and height in pixels
}

// Assess checks an enrollment photo of the given size against th.
// Checks run in order: resolution, face count, face size.
func Assess(width, height int, faces []Face, th Thresholds) Quality {
	if width < th.MinImageDim || height < th.MinImageDim {
		return Quality{Reason: LowResolution}
	}
	switch len(faces) {
	case 0:
		return Quality{Reason: NoFace}
	case 1:
	default:
		return Quality{Reason: MultipleFaces}
	}
	box := faces[0].BBox
	if box.Width() < float64(th.MinFaceDim) || box.Height() < float64(th.MinFaceDim) {
		return Quality{Reason: FaceTooSmall}
	}
	return Quality{Valid: true, Reason: QualityOK}
}
