package emailblock

// Size is a semantic size bucket. Styles never carry raw pixel values so every
// rendered email stays inside a range that mail clients handle well.
type Size string

const (
	SizeSmall      Size = "small"
	SizeMedium     Size = "medium"
	SizeLarge      Size = "large"
	SizeExtraLarge Size = "extra-large"
)

var sizes = []Size{SizeSmall, SizeMedium, SizeLarge, SizeExtraLarge}

func (s Size) Valid() bool {
	for _, v := range sizes {
		if s == v {
			return true
		}
	}
	return false
}

// Property names the style properties a block may set.
type Property string

const (
	PropFontSize     Property = "fontSize"
	PropPadding      Property = "padding"
	PropSpacing      Property = "spacing"
	PropBorderRadius Property = "borderRadius"
)

var pixels = map[Property]map[Size]int{
	PropFontSize:     {SizeSmall: 14, SizeMedium: 16, SizeLarge: 20, SizeExtraLarge: 28},
	PropPadding:      {SizeSmall: 8, SizeMedium: 16, SizeLarge: 24, SizeExtraLarge: 32},
	PropSpacing:      {SizeSmall: 8, SizeMedium: 16, SizeLarge: 32, SizeExtraLarge: 48},
	PropBorderRadius: {SizeSmall: 2, SizeMedium: 4, SizeLarge: 8, SizeExtraLarge: 16},
}

// Pixels resolves a bucket for a property. Empty or unknown sizes resolve to
// the medium value.
func Pixels(p Property, s Size) int {
	table, ok := pixels[p]
	if !ok {
		return 0
	}
	if v, ok := table[s]; ok {
		return v
	}
	return table[SizeMedium]
}

type Styles struct {
	FontSize     Size `json:"fontSize,omitempty" validate:"omitempty,oneof=small medium large extra-large"`
	Padding      Size `json:"padding,omitempty" validate:"omitempty,oneof=small medium large extra-large"`
	Spacing      Size `json:"spacing,omitempty" validate:"omitempty,oneof=small medium large extra-large"`
	BorderRadius Size `json:"borderRadius,omitempty" validate:"omitempty,oneof=small medium large extra-large"`
}

func (s Styles) FontSizePx() int     { return Pixels(PropFontSize, s.FontSize) }
func (s Styles) PaddingPx() int      { return Pixels(PropPadding, s.Padding) }
func (s Styles) SpacingPx() int      { return Pixels(PropSpacing, s.Spacing) }
func (s Styles) BorderRadiusPx() int { return Pixels(PropBorderRadius, s.BorderRadius) }

// Pairs lists the set properties in a fixed order.
func (s Styles) Pairs() [][2]string {
	var out [][2]string
	add := func(p Property, v Size) {
		if v != "" {
			out = append(out, [2]string{string(p), string(v)})
		}
	}
	add(PropFontSize, s.FontSize)
	add(PropPadding, s.Padding)
	add(PropSpacing, s.Spacing)
	add(PropBorderRadius, s.BorderRadius)
	return out
}

// Set assigns a property by name. Unknown properties are ignored.
func (s *Styles) Set(p Property, v Size) {
	switch p {
	case PropFontSize:
		s.FontSize = v
	case PropPadding:
		s.Padding = v
	case PropSpacing:
		s.Spacing = v
	case PropBorderRadius:
		s.BorderRadius = v
	}
}
