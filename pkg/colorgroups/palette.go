package colorgroups

import (
	"fmt"
	"image/color"
)

// Palette holds the semi-transparent colors groups are drawn from
var Palette = [...]color.NRGBA{
	{242, 109, 109, 100}, {73, 122, 242, 100}, {157, 242, 36, 100}, {204, 92, 190, 100},
	{61, 204, 180, 100}, {204, 124, 31, 100}, {97, 75, 166, 100}, {55, 166, 50, 100},
	{166, 25, 72, 100}, {109, 192, 242, 100}, {228, 242, 73, 100}, {199, 36, 242, 100},
	{92, 204, 148, 100}, {204, 91, 61, 100}, {31, 45, 204, 100}, {109, 166, 75, 100},
	{166, 50, 127, 100}, {25, 160, 166, 100}, {242, 209, 109, 100}, {150, 73, 242, 100},
	{36, 242, 70, 100}, {204, 92, 106, 100}, {61, 121, 204, 100}, {154, 204, 31, 100},
	{165, 75, 166, 100}, {50, 166, 132, 100}, {166, 83, 25, 100}, {125, 109, 242, 100},
	{102, 242, 73, 100}, {242, 36, 131, 100}, {92, 176, 204, 100}, {204, 197, 61, 100},
	{145, 31, 204, 100}, {75, 166, 108, 100}, {166, 59, 50, 100}, {25, 55, 166, 100},
	{176, 242, 109, 100}, {242, 73, 208, 100}, {36, 242, 224, 100}, {204, 161, 92, 100},
	{108, 61, 204, 100}, {31, 204, 37, 100}, {166, 75, 98, 100}, {50, 113, 166, 100},
	{143, 166, 25, 100}, {225, 109, 242, 100}, {73, 242, 171, 100}, {242, 95, 36, 100},
	{92, 92, 204, 100}, {104, 204, 61, 100}, {204, 31, 133, 100}, {75, 155, 166, 100},
	{166, 146, 50, 100}, {100, 25, 166, 100}, {109, 242, 141, 100}, {242, 73, 81, 100},
	{36, 106, 242, 100}, {163, 204, 92, 100}, {204, 61, 193, 100}, {31, 204, 167, 100},
	{166, 119, 75, 100}, {73, 50, 166, 100}, {38, 166, 25, 100}, {242, 109, 160, 100},
	{73, 187, 242, 100}, {235, 242, 36, 100}, {175, 92, 204, 100}, {61, 204, 125, 100},
	{204, 58, 31, 100}, {75, 87, 166, 100}, {99, 166, 50, 100}, {166, 25, 126, 100},
	{109, 242, 241, 100}, {242, 191, 73, 100}, {120, 36, 242, 100}, {92, 204, 105, 100},
	{204, 61, 86, 100}, {31, 112, 204, 100}, {144, 166, 75, 100}, {160, 50, 166, 100},
	{25, 166, 117, 100}, {242, 158, 109, 100},
}

// PaletteSize is the modulus for color indices
const PaletteSize = len(Palette)

// Hex formats a color as #rrggbbaa
func Hex(c color.NRGBA) string {
	return fmt.Sprintf("#%02x%02x%02x%02x", c.R, c.G, c.B, c.A)
}
