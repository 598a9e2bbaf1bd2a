// Package preprocess turns raw snake photographs into the normalized
// CHW float32 tensors the classifier was trained on.
package preprocess

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"math/rand"
	"os"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
	"github.com/nfnt/resize"
	_ "golang.org/x/image/webp"
)

const (
	// Side is the square input size the MobileNetV2 backbone expects.
	Side = 224

	// Channels is the number of color channels in the model input.
	Channels = 3

	// augmentEdge is the shorter-edge size before a random crop.
	augmentEdge = Side + 32
)

// ImageNet channel statistics baked into the pretrained backbone.
var (
	imagenetMean = [Channels]float32{0.485, 0.456, 0.406}
	imagenetStd  = [Channels]float32{0.229, 0.224, 0.225}
)

var ErrUnsupportedFormat = errors.New("unsupported image format")

// Sample is one raw image, referenced by path or carried in memory,
// with an optional ground-truth class index. Label -1 means unlabeled.
type Sample struct {
	Path  string
	Data  []byte
	Label int
}

// NewSample returns an unlabeled sample for the given image path.
func NewSample(path string) Sample {
	return Sample{Path: path, Label: -1}
}

// Tensor is a normalized CHW float32 image of fixed shape
// [Channels, Side, Side], immutable once produced.
type Tensor struct {
	Sample Sample
	Data   []float32
}

// Preprocessor converts samples into model input tensors. The zero
// value is not usable; construct with New or NewAugmented.
type Preprocessor struct {
	augment bool
	rng     *rand.Rand
}

// New returns the deterministic evaluation preprocessor: shorter edge
// resized to Side, center crop, ImageNet normalization.
func New() *Preprocessor {
	return &Preprocessor{}
}

// NewAugmented returns the training-mode preprocessor, substituting a
// random crop and random horizontal flip for the center crop. The seed
// makes an augmentation sequence reproducible.
func NewAugmented(seed int64) *Preprocessor {
	return &Preprocessor{augment: true, rng: rand.New(rand.NewSource(seed))}
}

// Transform decodes, resizes, crops and normalizes one sample.
// Steps run in a fixed order so the same input always produces the
// same tensor (evaluation mode). Decode failures are reported as
// ErrUnsupportedFormat.
func (p *Preprocessor) Transform(sample Sample) (*Tensor, error) {
	img, err := decode(sample)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrUnsupportedFormat, sample.Path, err)
	}

	var cropped *image.NRGBA
	if p.augment {
		resized := shorterEdge(img, augmentEdge)
		cropped = p.randomCrop(resized)
		if p.rng.Intn(2) == 1 {
			cropped = imaging.FlipH(cropped)
		}
	} else {
		resized := shorterEdge(img, Side)
		cropped = imaging.CropCenter(resized, Side, Side)
	}

	return &Tensor{Sample: sample, Data: normalize(cropped)}, nil
}

// decode reads the sample pixels, trying the registered stdlib and
// x/image decoders first and falling back to the libwebp decoder for
// files the pure-Go decoder rejects.
func decode(sample Sample) (image.Image, error) {
	if sample.Data != nil {
		if img, _, err := image.Decode(bytes.NewReader(sample.Data)); err == nil {
			return img, nil
		}
		if img, err := webp.Decode(bytes.NewReader(sample.Data)); err == nil {
			return img, nil
		}
		return nil, errors.New("unknown image encoding")
	}

	f, err := os.Open(sample.Path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	if img, _, err := image.Decode(f); err == nil {
		return img, nil
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}
	if img, err := webp.Decode(f); err == nil {
		return img, nil
	}
	return nil, errors.New("unknown image encoding")
}

// shorterEdge resizes so the shorter image edge equals target,
// preserving aspect ratio. Lanczos3 matches the resampling used when
// the model was trained.
func shorterEdge(img image.Image, target int) image.Image {
	b := img.Bounds()
	if b.Dx() <= b.Dy() {
		return resize.Resize(uint(target), 0, img, resize.Lanczos3)
	}
	return resize.Resize(0, uint(target), img, resize.Lanczos3)
}

func (p *Preprocessor) randomCrop(img image.Image) *image.NRGBA {
	b := img.Bounds()
	maxX := b.Dx() - Side
	maxY := b.Dy() - Side
	if maxX <= 0 || maxY <= 0 {
		return imaging.CropCenter(img, Side, Side)
	}
	x0 := b.Min.X + p.rng.Intn(maxX+1)
	y0 := b.Min.Y + p.rng.Intn(maxY+1)
	return imaging.Crop(img, image.Rect(x0, y0, x0+Side, y0+Side))
}

// normalize converts the cropped image to float32 in [0,1], applies
// the per-channel ImageNet mean/std and packs the result in CHW order.
func normalize(img *image.NRGBA) []float32 {
	data := make([]float32, Channels*Side*Side)
	plane := Side * Side
	for y := 0; y < Side; y++ {
		for x := 0; x < Side; x++ {
			off := y*img.Stride + x*4
			idx := y*Side + x
			for c := 0; c < Channels; c++ {
				v := float32(img.Pix[off+c]) / 255.0
				data[c*plane+idx] = (v - imagenetMean[c]) / imagenetStd[c]
			}
		}
	}
	return data
}
