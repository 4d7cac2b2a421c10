package canvas

import (
	"bufio"
	"encoding/xml"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// PathData renders p in SVG path syntax.
func PathData(p Path) string {
	var b strings.Builder
	for i, s := range p.Segs {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteByte(byte(s.Op))
		for _, pt := range s.Pts {
			b.WriteByte(' ')
			b.WriteString(num(pt.X))
			b.WriteByte(' ')
			b.WriteString(num(pt.Y))
		}
	}
	return b.String()
}

func num(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func paint(st Style) string {
	var b strings.Builder
	fill := st.Fill
	if fill == "" {
		fill = "none"
	}
	fmt.Fprintf(&b, ` fill="%s"`, fill)
	if st.Stroke != "" {
		fmt.Fprintf(&b, ` stroke="%s" stroke-width="%s"`, st.Stroke, num(st.StrokeWidth))
	}
	if st.Dashed {
		b.WriteString(` stroke-dasharray="4 3"`)
	}
	if a := st.alpha(); a < 1 {
		fmt.Fprintf(&b, ` opacity="%s"`, num(a))
	}
	return b.String()
}

func escape(s string) string {
	var b strings.Builder
	_ = xml.EscapeText(&b, []byte(s))
	return b.String()
}

var anchors = map[Anchor]string{
	AnchorStart:  "start",
	AnchorMiddle: "middle",
	AnchorEnd:    "end",
}

// EncodeSVG writes the scene as a standalone SVG document. Regions are
// emitted last as transparent shapes carrying a data-region attribute so a
// browser client can post the key of whatever the user clicked.
func EncodeSVG(w io.Writer, s Scene) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, `<svg xmlns="http://www.w3.org/2000/svg" width="%s" height="%s" viewBox="0 0 %s %s" font-family="sans-serif">`+"\n",
		num(s.Width), num(s.Height), num(s.Width), num(s.Height))

	for _, c := range s.Commands {
		switch c.Kind {
		case KindPath:
			fmt.Fprintf(bw, `<path d="%s"%s/>`+"\n", PathData(c.Path), paint(c.Style))
		case KindRect:
			fmt.Fprintf(bw, `<rect x="%s" y="%s" width="%s" height="%s"%s/>`+"\n",
				num(c.Rect.X), num(c.Rect.Y), num(c.Rect.W), num(c.Rect.H), paint(c.Style))
		case KindText:
			fill := c.Style.Fill
			if fill == "" {
				fill = "#000000"
			}
			fmt.Fprintf(bw, `<text x="%s" y="%s" font-size="%s" text-anchor="%s" fill="%s">%s</text>`+"\n",
				num(c.At.X), num(c.At.Y), num(c.FontSize), anchors[c.Anchor], fill, escape(c.Text))
		}
	}

	bw.WriteString(`<g fill="transparent" pointer-events="all">` + "\n")
	for _, r := range s.Regions {
		if len(r.Polygon) >= 3 {
			fmt.Fprintf(bw, `<path data-region="%s" d="%s"/>`+"\n", escape(r.Key), PathData(Polygon(r.Polygon...)))
			continue
		}
		fmt.Fprintf(bw, `<rect data-region="%s" x="%s" y="%s" width="%s" height="%s"/>`+"\n",
			escape(r.Key), num(r.Bounds.X), num(r.Bounds.Y), num(r.Bounds.W), num(r.Bounds.H))
	}
	bw.WriteString("</g>\n</svg>\n")
	return bw.Flush()
}
