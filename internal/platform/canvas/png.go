package canvas

import (
	"fmt"
	"image/color"
	"io"
	"strconv"
	"strings"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
)

// PNGOptions configures raster output.
type PNGOptions struct {
	Scale      float64
	Background string
}

// DefaultPNGOptions renders at 2x on white.
func DefaultPNGOptions() PNGOptions {
	return PNGOptions{Scale: 2, Background: "#FFFFFF"}
}

// ParseHex converts "#RRGGBB" (or "RRGGBB") into a color with the given
// opacity. Malformed input yields opaque black.
func ParseHex(hex string, opacity float64) color.NRGBA {
	hex = strings.TrimPrefix(hex, "#")
	c := color.NRGBA{A: 255}
	if len(hex) != 6 {
		return c
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return c
	}
	c.R = uint8(v >> 16)
	c.G = uint8(v >> 8)
	c.B = uint8(v)
	if opacity > 0 && opacity < 1 {
		c.A = uint8(opacity * 255)
	}
	return c
}

// EncodePNG rasterises the scene with gg.
func EncodePNG(w io.Writer, s Scene, opts PNGOptions) error {
	if opts.Scale <= 0 {
		opts.Scale = 1
	}
	width := int(s.Width*opts.Scale + 0.5)
	height := int(s.Height*opts.Scale + 0.5)
	if width <= 0 || height <= 0 {
		return fmt.Errorf("empty scene")
	}

	ttf, err := truetype.Parse(goregular.TTF)
	if err != nil {
		return fmt.Errorf("parse font: %w", err)
	}
	faces := map[float64]font.Face{}
	faceFor := func(size float64) font.Face {
		if f, ok := faces[size]; ok {
			return f
		}
		f := truetype.NewFace(ttf, &truetype.Options{Size: size, DPI: 72, Hinting: font.HintingFull})
		faces[size] = f
		return f
	}

	dc := gg.NewContext(width, height)
	if opts.Background != "" {
		dc.SetColor(ParseHex(opts.Background, 1))
		dc.Clear()
	}
	dc.Scale(opts.Scale, opts.Scale)

	for _, c := range s.Commands {
		switch c.Kind {
		case KindPath:
			tracePath(dc, c.Path)
			paintCurrent(dc, c.Style)
		case KindRect:
			dc.DrawRectangle(c.Rect.X, c.Rect.Y, c.Rect.W, c.Rect.H)
			paintCurrent(dc, c.Style)
		case KindText:
			dc.SetFontFace(faceFor(c.FontSize))
			fill := c.Style.Fill
			if fill == "" {
				fill = "#000000"
			}
			dc.SetColor(ParseHex(fill, c.Style.alpha()))
			ax := 0.0
			switch c.Anchor {
			case AnchorMiddle:
				ax = 0.5
			case AnchorEnd:
				ax = 1
			}
			dc.DrawStringAnchored(c.Text, c.At.X, c.At.Y, ax, 0)
		}
	}
	return dc.EncodePNG(w)
}

func tracePath(dc *gg.Context, p Path) {
	dc.NewSubPath()
	for _, s := range p.Segs {
		switch s.Op {
		case OpMove:
			dc.MoveTo(s.Pts[0].X, s.Pts[0].Y)
		case OpLine:
			dc.LineTo(s.Pts[0].X, s.Pts[0].Y)
		case OpQuad:
			dc.QuadraticTo(s.Pts[0].X, s.Pts[0].Y, s.Pts[1].X, s.Pts[1].Y)
		case OpClose:
			dc.ClosePath()
		}
	}
}

func paintCurrent(dc *gg.Context, st Style) {
	a := st.alpha()
	if st.Fill != "" {
		dc.SetColor(ParseHex(st.Fill, a))
		if st.Stroke != "" {
			dc.FillPreserve()
		} else {
			dc.Fill()
		}
	}
	if st.Stroke != "" {
		dc.SetColor(ParseHex(st.Stroke, a))
		dc.SetLineWidth(st.StrokeWidth)
		if st.Dashed {
			dc.SetDash(4, 3)
		}
		dc.Stroke()
		dc.SetDash()
	}
	dc.ClearPath()
}
