package shell

import (
	"bytes"
	"fmt"
	"image"
	"image/draw"
	"image/png"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gomono"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"

	"taskbar/theme"
)

const (
	snapshotFontSize = 14
	snapshotPadding  = 4
)

var gomonoFace = sync.OnceValues(func() (font.Face, error) {
	f, err := opentype.Parse(gomono.TTF)
	if err != nil {
		return nil, fmt.Errorf("parse font: %w", err)
	}
	face, err := opentype.NewFace(f, &opentype.FaceOptions{
		Size:    snapshotFontSize,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, fmt.Errorf("create font face: %w", err)
	}
	return face, nil
})

// Snapshot renders every frame into an image, writing it as a PNG to
// Path when one is set. It is useful for previews and screenshots of a
// configuration without a compositor.
type Snapshot struct {
	Path    string
	Width   int
	Palette theme.Palette
}

func (sn *Snapshot) Name() string { return "snapshot" }

func (sn *Snapshot) Acquire(req Request) (Surface, error) {
	if _, ok := fullWidth(req); !ok {
		return nil, fmt.Errorf("snapshot: cannot anchor to %v: %w", req.Edges, ErrUnavailable)
	}
	if sn.Width <= 0 {
		return nil, fmt.Errorf("snapshot: invalid width %d: %w", sn.Width, ErrUnavailable)
	}
	face, err := gomonoFace()
	if err != nil {
		return nil, fmt.Errorf("snapshot: %w: %w", err, ErrUnavailable)
	}

	fg, err := theme.Parse(sn.Palette.Foreground)
	if err != nil {
		return nil, fmt.Errorf("snapshot: foreground: %w", err)
	}
	bg, err := theme.Parse(sn.Palette.Background)
	if err != nil {
		return nil, fmt.Errorf("snapshot: background: %w", err)
	}

	m := face.Metrics()
	height := (m.Ascent + m.Descent).Ceil() + 2*snapshotPadding
	if req.Exclusive != ExclusiveAuto && int(req.Exclusive) > height {
		height = int(req.Exclusive)
	}

	return &SnapshotSurface{
		path:   sn.Path,
		face:   face,
		edges:  req.Edges,
		bounds: image.Rect(0, 0, sn.Width, height),
		fg:     image.NewUniform(fg),
		bg:     image.NewUniform(bg),
		done:   make(chan struct{}),
	}, nil
}

// SnapshotSurface is the surface handed out by Snapshot.
type SnapshotSurface struct {
	mu     sync.Mutex
	path   string
	face   font.Face
	edges  Edges
	bounds image.Rectangle
	fg, bg *image.Uniform
	last   *image.NRGBA
	boxes  []Box
	done   chan struct{}
}

func (s *SnapshotSurface) Anchors() Edges { return s.edges }
func (s *SnapshotSurface) ExclusiveZone() int { return s.bounds.Dy() }
func (s *SnapshotSurface) Input() <-chan Click { return nil }
func (s *SnapshotSurface) Done() <-chan struct{} { return s.done }
func (s *SnapshotSurface) Close() error { return nil }

// Measure returns the width of text in pixels.
func (s *SnapshotSurface) Measure(text string) int {
	return font.MeasureString(s.face, text).Ceil()
}

// Boxes returns where each cell of the last frame was drawn.
func (s *SnapshotSurface) Boxes() []Box {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Box(nil), s.boxes...)
}

// Image returns the last rendered frame.
func (s *SnapshotSurface) Image() image.Image {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

func (s *SnapshotSurface) Present(frame Frame) error {
	img := image.NewNRGBA(s.bounds)
	draw.Draw(img, img.Bounds(), s.bg, image.Point{}, draw.Src)

	boxes := Arrange(frame, s.bounds.Dx(), s.Measure)
	baseline := snapshotPadding + s.face.Metrics().Ascent.Ceil()
	for _, b := range boxes {
		if b.Cell.Background != "" {
			if c, err := theme.Parse(b.Cell.Background); err == nil {
				r := image.Rect(b.X, 0, b.X+b.Width, s.bounds.Dy())
				draw.Draw(img, r, image.NewUniform(c), image.Point{}, draw.Src)
			}
		}

		src := s.fg
		if b.Cell.Color != "" {
			if c, err := theme.Parse(b.Cell.Color); err == nil {
				src = image.NewUniform(c)
			}
		}
		d := font.Drawer{
			Dst:  img,
			Src:  src,
			Face: s.face,
			Dot:  fixed.P(b.X, baseline),
		}
		d.DrawString(b.Cell.Text)
	}

	s.mu.Lock()
	s.last = img
	s.boxes = boxes
	s.mu.Unlock()

	if s.path == "" {
		return nil
	}
	return writePNG(s.path, img)
}

// writePNG replaces path atomically so viewers never see a partial file.
func writePNG(path string, img image.Image) error {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return fmt.Errorf("encode png: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".taskbar-*.png")
	if err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		return fmt.Errorf("write snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	return os.Rename(tmp.Name(), path)
}
