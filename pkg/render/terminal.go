package render

import (
	"image/color"

	uv "github.com/charmbracelet/ultraviolet"
)

// Draw renders the color plane into area using half-block cells: each
// terminal row shows two buffer rows, the upper as foreground of ▀ and the
// lower as background. The buffer height should be twice area's height.
func (b *BufferSet) Draw(scr uv.Screen, area uv.Rectangle) {
	for row := area.Min.Y; row < area.Max.Y; row++ {
		// buffer row 0 is the bottom of the image
		topY := b.Height - 1 - (row-area.Min.Y)*2
		botY := topY - 1
		if topY < 0 {
			break
		}

		for col := area.Min.X; col < area.Max.X && col-area.Min.X < b.Width; col++ {
			x := col - area.Min.X
			top := b.Color[b.Index(x, topY)]
			var bot Color
			if botY >= 0 {
				bot = b.Color[b.Index(x, botY)]
			}

			scr.SetCell(col, row, &uv.Cell{
				Content: "▀",
				Width:   1,
				Style: uv.Style{
					Fg: cellColor(top),
					Bg: cellColor(bot),
				},
			})
		}
	}
}

// cellColor maps fully transparent pixels to the terminal default.
func cellColor(c Color) color.Color {
	if c.A == 0 {
		return nil
	}
	return c
}
