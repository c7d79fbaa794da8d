package videosource

import (
	"context"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/disintegration/imaging"
	"github.com/pkg/errors"
)

var replayExtensions = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".bmp":  true,
	".gif":  true,
	".tif":  true,
	".tiff": true,
}

// ReplayConfig is the attribute struct for a directory replay source.
type ReplayConfig struct {
	Dir  string `json:"dir"`
	Loop bool   `json:"loop,omitempty"`
	// Width and Height resize every frame when both are set.
	Width  int `json:"width_px,omitempty"`
	Height int `json:"height_px,omitempty"`
	// RotateDegrees rotates frames clockwise.
	RotateDegrees float64 `json:"rotate_degrees,omitempty"`
}

// Validate ensures all parts of the config are valid.
func (c ReplayConfig) Validate(path string) error {
	if c.Dir == "" {
		return errors.Errorf("%s: dir is required", path)
	}
	if c.Width < 0 || c.Height < 0 || (c.Width == 0) != (c.Height == 0) {
		return errors.Errorf("%s: width_px and height_px must both be positive or both unset, got (%d, %d)",
			path, c.Width, c.Height)
	}
	return nil
}

// replaySource plays back the images of a directory in file name order.
type replaySource struct {
	mu     sync.Mutex
	conf   ReplayConfig
	files  []string
	next   int
	closed bool
}

// NewReplaySource lists the images in conf.Dir. An empty directory is an error.
func NewReplaySource(conf ReplayConfig) (Source, error) {
	if err := conf.Validate("replay"); err != nil {
		return nil, err
	}
	files, err := listImages(conf.Dir)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, errors.Errorf("no images found in %q", conf.Dir)
	}
	return &replaySource{conf: conf, files: files}, nil
}

func listImages(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot list replay directory %q", dir)
	}
	var files []string
	for _, entry := range entries {
		if entry.IsDir() || !replayExtensions[strings.ToLower(filepath.Ext(entry.Name()))] {
			continue
		}
		files = append(files, filepath.Join(dir, entry.Name()))
	}
	sort.Strings(files)
	return files, nil
}

// Read decodes the next image. Once every image was played it returns ErrFrameUnavailable, unless
// the source loops.
func (rs *replaySource) Read(ctx context.Context) (image.Image, func(), error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	rs.mu.Lock()
	if rs.closed {
		rs.mu.Unlock()
		return nil, nil, errClosed
	}
	if rs.next >= len(rs.files) {
		if !rs.conf.Loop {
			rs.mu.Unlock()
			return nil, nil, errors.Wrap(ErrFrameUnavailable, "end of replay")
		}
		rs.next = 0
	}
	fn := rs.files[rs.next]
	rs.next++
	rs.mu.Unlock()

	img, err := imaging.Open(fn)
	if err != nil {
		return nil, nil, NewFrameUnavailableError(err)
	}
	if rs.conf.RotateDegrees != 0 {
		// imaging.Rotate rotates counter-clockwise.
		img = imaging.Rotate(img, -rs.conf.RotateDegrees, color.Black)
	}
	if rs.conf.Width > 0 && rs.conf.Height > 0 {
		img = imaging.Resize(img, rs.conf.Width, rs.conf.Height, imaging.Lanczos)
	}
	return img, noopRelease, nil
}

func (rs *replaySource) Close(ctx context.Context) error {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	rs.closed = true
	return nil
}
