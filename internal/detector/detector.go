package detector

import (
	"context"
	"errors"
	"fmt"

	"github.com/kozaktomas/class-attendance/internal/facematch"
)

// ErrUndecodableImage is returned for image bytes that no registered decoder accepts.
var ErrUndecodableImage = errors.New("image could not be decoded")

// FaceDetector finds faces in an encoded image.
type FaceDetector interface {
	DetectFaces(ctx context.Context, imageData []byte) ([]Face, error)
}

// Options configure a Detector.
type Options struct {
	EmbeddingDim int     // expected embedding length, not checked when 0
	FrameScale   float64 // attendance frames are resized by this factor, 1 keeps them as is
	Thresholds   Thresholds
}

// Detector turns attendance frames and enrollment photos into embeddings.
type Detector struct {
	faces FaceDetector
	opts  Options
}

// New creates a Detector backed by faces.
func New(faces FaceDetector, opts Options) *Detector {
	return &Detector{faces: faces, opts: opts}
}

// ExtractEmbeddings returns one embedding per face in frame, in detector order.
// The frame is downscaled by FrameScale before detection.
func (d *Detector) ExtractEmbeddings(ctx context.Context, frame []byte) ([]facematch.Embedding, error) {
	if _, _, err := ImageSize(frame); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUndecodableImage, err)
	}
	scaled, err := ScaleImage(frame, d.opts.FrameScale)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUndecodableImage, err)
	}

	faces, err := d.faces.DetectFaces(ctx, scaled)
	if err != nil {
		return nil, fmt.Errorf("detect faces: %w", err)
	}

	out := make([]facematch.Embedding, 0, len(faces))
	for _, f := range faces {
		emb := facematch.Embedding(f.Embedding)
		if err := d.checkDim(emb); err != nil {
			return nil, err
		}
		out = append(out, emb)
	}
	return out, nil
}

// QualityCheck assesses whether img is usable for enrollment.
// A photo that cannot be decoded is reported as invalid, not as an error.
func (d *Detector) QualityCheck(ctx context.Context, img []byte) (Quality, error) {
	q, _, err := d.assess(ctx, img)
	return q, err
}

// EnrollmentEmbedding checks img and returns the embedding of its single face.
// The embedding is nil when the photo fails the quality check.
func (d *Detector) EnrollmentEmbedding(ctx context.Context, img []byte) (facematch.Embedding, Quality, error) {
	q, faces, err := d.assess(ctx, img)
	if err != nil || !q.Valid {
		return nil, q, err
	}
	emb := facematch.Embedding(faces[0].Embedding)
	if err := d.checkDim(emb); err != nil {
		return nil, q, err
	}
	return emb, q, nil
}

func (d *Detector) assess(ctx context.Context, img []byte) (Quality, []Face, error) {
	w, h, err := ImageSize(img)
	if err != nil {
		return Quality{Reason: Undecodable}, nil, nil
	}
	if w < d.opts.Thresholds.MinImageDim || h < d.opts.Thresholds.MinImageDim {
		return Quality{Reason: LowResolution}, nil, nil
	}

	faces, err := d.faces.DetectFaces(ctx, img)
	if err != nil {
		return Quality{}, nil, fmt.Errorf("detect faces: %w", err)
	}
	return Assess(w, h, faces, d.opts.Thresholds), faces, nil
}

func (d *Detector) checkDim(emb facematch.Embedding) error {
	if d.opts.EmbeddingDim > 0 && emb.Dim() != d.opts.EmbeddingDim {
		return &facematch.DimensionMismatchError{Want: d.opts.EmbeddingDim, Got: emb.Dim()}
	}
	return nil
}
