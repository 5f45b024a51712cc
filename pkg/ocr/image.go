package ocr

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"

	"golang.org/x/image/draw"

	_ "image/gif"

	_ "golang.org/x/image/webp"
)

// vision models charge by tile; anything larger than this gets
// downscaled before the request
const maxDim = 1000

// encodeDataURL decodes the image, downscales it if either dimension
// exceeds maxDim, and returns a base64 data URL suitable for a chat
// message image part.
func encodeDataURL(raw []byte) (string, error) {
	img, format, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return "", err
	}

	w := img.Bounds().Dx()
	h := img.Bounds().Dy()
	if w > maxDim || h > maxDim {
		scale := float64(maxDim) / float64(max(w, h))
		nw := max(int(float64(w)*scale), 1)
		nh := max(int(float64(h)*scale), 1)

		dst := image.NewRGBA(image.Rect(0, 0, nw, nh))
		draw.ApproxBiLinear.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Over, nil)
		img = dst
		format = "jpeg"
		raw, err = encodeImage(img, format)
		if err != nil {
			return "", err
		}
	} else if format != "png" && format != "jpeg" {
		// gif/webp are not reliably accepted by vision endpoints
		format = "jpeg"
		raw, err = encodeImage(img, format)
		if err != nil {
			return "", err
		}
	}

	return fmt.Sprintf("data:image/%s;base64,%s",
		format, base64.StdEncoding.EncodeToString(raw)), nil
}

func encodeImage(img image.Image, format string) ([]byte, error) {
	var buf bytes.Buffer
	switch format {
	case "png":
		if err := png.Encode(&buf, img); err != nil {
			return nil, err
		}
	default:
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}
