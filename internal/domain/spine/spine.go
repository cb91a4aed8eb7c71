// Package spine holds the color rules used to draw book spines and member
// avatars.
package spine

import (
	"fmt"
	"hash/fnv"
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf16"
)

// Darken is subtracted from each channel of a sampled cover color so light
// spine text stays legible.
const Darken = 40

// Text colors picked by ContrastColor.
const (
	DarkText  = "#1a1a1a"
	LightText = "#F5E6CC"
)

// WarmPalette is used when a cover color cannot be sampled.
var WarmPalette = []string{
	"#8B4513",
	"#A0522D",
	"#6B3A2A",
	"#2F4F4F",
	"#4A3728",
	"#704214",
	"#556B2F",
	"#800020",
	"#191970",
	"#2E1A47",
	"#3C1518",
	"#1B4332",
	"#7C3030",
	"#4A5568",
	"#744210",
}

var avatarPalette = []string{
	"#3C1518",
	"#69381A",
	"#7A8B69",
	"#C49A3B",
	"#8B5E3C",
	"#556B2F",
	"#704214",
	"#800020",
	"#2E1A47",
	"#1B4332",
}

// FromPixel darkens an averaged cover pixel and formats it as rgb(r, g, b).
func FromPixel(r, g, b uint8) string {
	return fmt.Sprintf("rgb(%d, %d, %d)", darken(r), darken(g), darken(b))
}

func darken(c uint8) int {
	v := int(c) - Darken
	if v < 0 {
		return 0
	}
	return v
}

// Fallback picks a palette color for an image that could not be sampled.
// The same URL always maps to the same color.
func Fallback(imageURL string) string {
	h := fnv.New32a()
	_, _ = h.Write([]byte(imageURL))
	return WarmPalette[h.Sum32()%uint32(len(WarmPalette))]
}

var digits = regexp.MustCompile(`\d+`)

// ContrastColor returns the spine text color for a background given as
// rgb(...) or #rrggbb. Unparseable input is treated as black.
func ContrastColor(bg string) string {
	var r, g, b int
	switch {
	case strings.HasPrefix(bg, "rgb"):
		m := digits.FindAllString(bg, 3)
		if len(m) == 3 {
			r, _ = strconv.Atoi(m[0])
			g, _ = strconv.Atoi(m[1])
			b, _ = strconv.Atoi(m[2])
		}
	case strings.HasPrefix(bg, "#"):
		hex := strings.TrimPrefix(bg, "#")
		if len(hex) >= 6 {
			r = hexByte(hex[0:2])
			g = hexByte(hex[2:4])
			b = hexByte(hex[4:6])
		}
	}
	// Perceived brightness above 128, kept in integer thousandths.
	if r*299+g*587+b*114 > 128_000 {
		return DarkText
	}
	return LightText
}

func hexByte(s string) int {
	v, err := strconv.ParseUint(s, 16, 8)
	if err != nil {
		return 0
	}
	return int(v)
}

// AvatarColor maps a member name onto the avatar palette. The hash runs
// over UTF-16 code units as a float64; only the shift wraps to 32 bits, so
// web clients derive the same color for the same name.
func AvatarColor(name string) string {
	var hash float64
	for _, c := range utf16.Encode([]rune(name)) {
		shifted := toInt32(hash) << 5
		hash = float64(c) + (float64(shifted) - hash)
	}
	idx := math.Mod(math.Abs(hash), float64(len(avatarPalette)))
	return avatarPalette[int(idx)]
}

// toInt32 wraps an integral float64 to 32 bits.
func toInt32(x float64) int32 {
	return int32(uint32(int64(x)))
}

// Initials returns up to two upper-cased word initials of a name.
func Initials(name string) string {
	var b strings.Builder
	for _, word := range strings.Fields(name) {
		r := []rune(word)
		b.WriteString(strings.ToUpper(string(r[0])))
	}
	out := []rune(b.String())
	if len(out) > 2 {
		out = out[:2]
	}
	return string(out)
}
