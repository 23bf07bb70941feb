package cloud

import (
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
)

// Background is the colour the field is composited over.
var Background = RGB{R: 6, G: 8, B: 22}

const halfBlock = "▀"

// Canvas is a grid of cells, each holding two vertically stacked pixels.
type Canvas struct {
	Cols int
	Rows int
	px   []RGB
}

// Overlay is text drawn on top of the canvas, starting at a cell.
type Overlay struct {
	Row   int
	Col   int
	Text  string
	Style lipgloss.Style
}

// Raster composites sprites source-over onto a cols x rows canvas. Each
// cell covers cellW x cellH viewport units.
func Raster(sprites []Sprite, cols, rows int, cellW, cellH float64) *Canvas {
	if cols < 0 {
		cols = 0
	}
	if rows < 0 {
		rows = 0
	}
	c := &Canvas{Cols: cols, Rows: rows, px: make([]RGB, cols*rows*2)}

	bg := [3]float64{float64(Background.R) / 255, float64(Background.G) / 255, float64(Background.B) / 255}
	acc := make([][3]float64, len(c.px))
	for i := range acc {
		acc[i] = bg
	}

	pixH := cellH / 2
	for _, s := range sprites {
		if s.Radius <= 0 {
			continue
		}
		ir, ig, ib := s.Inner.RGB()
		or, og, ob := s.Outer.RGB()
		r0 := s.Radius * innerRatio

		// Only visit pixels inside the sprite's bounding box.
		minCol := clampInt(int(math.Floor((s.X-s.Radius)/cellW)), 0, cols)
		maxCol := clampInt(int(math.Ceil((s.X+s.Radius)/cellW)), 0, cols)
		minRow := clampInt(int(math.Floor((s.Y-s.Radius)/pixH)), 0, rows*2)
		maxRow := clampInt(int(math.Ceil((s.Y+s.Radius)/pixH)), 0, rows*2)

		for py := minRow; py < maxRow; py++ {
			cy := (float64(py) + 0.5) * pixH
			for px := minCol; px < maxCol; px++ {
				cx := (float64(px) + 0.5) * cellW
				d := math.Hypot(cx-s.X, cy-s.Y)
				if d >= s.Radius {
					continue
				}
				w := (d - r0) / (s.Radius - r0)
				w = math.Max(0, math.Min(1, w))

				a := s.Inner.A + (s.Outer.A-s.Inner.A)*w
				if a <= 0 {
					continue
				}
				dst := &acc[py*cols+px]
				dst[0] = lerp(ir, or, w)*a + dst[0]*(1-a)
				dst[1] = lerp(ig, og, w)*a + dst[1]*(1-a)
				dst[2] = lerp(ib, ob, w)*a + dst[2]*(1-a)
			}
		}
	}

	for i, v := range acc {
		c.px[i] = RGB{R: to8(v[0]), G: to8(v[1]), B: to8(v[2])}
	}
	return c
}

// Pixel returns the colour of the pixel at column x and half-row y.
func (c *Canvas) Pixel(x, y int) RGB {
	return c.px[y*c.Cols+x]
}

// Cell returns the top and bottom pixel colours of a cell.
func (c *Canvas) Cell(col, row int) (top, bottom RGB) {
	return c.Pixel(col, row*2), c.Pixel(col, row*2+1)
}

// Render draws the canvas with half blocks and paints overlays on top.
// Overlay cells keep the cloud colour as their background.
func (c *Canvas) Render(overlays []Overlay) string {
	text := make(map[int]map[int]overlayCell)
	for _, o := range overlays {
		if o.Row < 0 || o.Row >= c.Rows {
			continue
		}
		row := text[o.Row]
		if row == nil {
			row = make(map[int]overlayCell)
			text[o.Row] = row
		}
		col := o.Col
		for _, r := range o.Text {
			w := runewidth.RuneWidth(r)
			if w == 0 {
				continue
			}
			if col+w > c.Cols {
				break
			}
			if col >= 0 {
				row[col] = overlayCell{r: r, style: o.Style, width: w}
			}
			col += w
		}
	}

	var b strings.Builder
	for row := 0; row < c.Rows; row++ {
		for col := 0; col < c.Cols; col++ {
			top, bottom := c.Cell(col, row)
			if oc, ok := text[row][col]; ok {
				bg := blend(top, bottom)
				b.WriteString(oc.style.Background(lipgloss.Color(bg.Hex())).Render(string(oc.r)))
				// A wide rune covers the next cell too.
				col += oc.width - 1
				continue
			}
			b.WriteString(lipgloss.NewStyle().
				Foreground(lipgloss.Color(top.Hex())).
				Background(lipgloss.Color(bottom.Hex())).
				Render(halfBlock))
		}
		if row < c.Rows-1 {
			b.WriteByte('\n')
		}
	}
	return b.String()
}

type overlayCell struct {
	r     rune
	style lipgloss.Style
	width int
}

func blend(a, b RGB) RGB {
	return RGB{
		R: uint8((int(a.R) + int(b.R)) / 2),
		G: uint8((int(a.G) + int(b.G)) / 2),
		B: uint8((int(a.B) + int(b.B)) / 2),
	}
}

func lerp(a, b, t float64) float64 {
	return a + (b-a)*t
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
