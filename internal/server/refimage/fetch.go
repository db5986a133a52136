package refimage

import (
	"context"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"time"

	"github.com/hashicorp/go-cleanhttp"
	get "github.com/hashicorp/go-getter"
	_ "golang.org/x/image/bmp"
	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// Fetcher downloads and decodes a single image from any go-getter source:
// local paths, http(s), s3::, gcs:: or git:: URLs.
type Fetcher struct {
	timeout time.Duration
	getters map[string]get.Getter
}

// NewFetcher creates a Fetcher whose downloads are bounded by timeout.
func NewFetcher(timeout time.Duration) *Fetcher {
	httpClient := cleanhttp.DefaultPooledClient()
	httpClient.Timeout = timeout
	httpGetter := &get.HttpGetter{Client: httpClient, Netrc: true}

	getters := make(map[string]get.Getter, len(get.Getters))
	for k, g := range get.Getters {
		getters[k] = g
	}
	getters["http"] = httpGetter
	getters["https"] = httpGetter
	// Symlinks into the caller's tree would outlive the scratch dir.
	getters["file"] = &get.FileGetter{Copy: true}

	return &Fetcher{timeout: timeout, getters: getters}
}

// Fetch downloads src into a scratch directory and decodes it.
func (f *Fetcher) Fetch(ctx context.Context, src string) (image.Image, error) {
	dir, err := os.MkdirTemp("", "refimage-")
	if err != nil {
		return nil, fmt.Errorf("create scratch dir: %w", err)
	}
	defer os.RemoveAll(dir)

	pwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("get working dir: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	dst := filepath.Join(dir, "reference")
	client := &get.Client{
		Ctx:     ctx,
		Src:     src,
		Dst:     dst,
		Pwd:     pwd,
		Mode:    get.ClientModeFile,
		Getters: f.getters,
	}
	if err := client.Get(); err != nil {
		return nil, fmt.Errorf("download %s: %w", src, err)
	}

	file, err := os.Open(dst)
	if err != nil {
		return nil, fmt.Errorf("open download: %w", err)
	}
	defer file.Close()

	img, _, err := image.Decode(file)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", src, err)
	}
	return img, nil
}

// Fit returns src as an opaque size x size RGBA raster, scaling with
// Catmull-Rom when the dimensions differ. Alpha is dropped, not composited:
// a translucent pixel keeps its straight color.
func Fit(src image.Image, size int) *image.RGBA {
	dst := image.NewNRGBA(image.Rect(0, 0, size, size))
	sb := src.Bounds()
	if sb.Dx() == size && sb.Dy() == size {
		xdraw.Copy(dst, image.Point{}, src, sb, xdraw.Src, nil)
	} else {
		xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, sb, xdraw.Src, nil)
	}
	for i := 3; i < len(dst.Pix); i += 4 {
		dst.Pix[i] = 255
	}
	// Opaque NRGBA and RGBA share one byte layout.
	return &image.RGBA{Pix: dst.Pix, Stride: dst.Stride, Rect: dst.Rect}
}
