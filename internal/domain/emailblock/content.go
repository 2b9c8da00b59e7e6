package emailblock

import "encoding/json"

// Content is the per-type payload of a block. The concrete type always matches
// the block's BlockType.
type Content interface {
	blockType() BlockType
}

type HeaderContent struct {
	LogoURL     string `json:"logoUrl,omitempty" validate:"omitempty,weburl"`
	LogoAlt     string `json:"logoAlt,omitempty"`
	CompanyName string `json:"companyName" validate:"required_without=LogoURL"`
	Tagline     string `json:"tagline,omitempty"`
}

type HeroContent struct {
	Title    string `json:"title" validate:"required"`
	Subtitle string `json:"subtitle,omitempty"`
	ImageURL string `json:"imageUrl,omitempty" validate:"omitempty,weburl"`
	CTAText  string `json:"ctaText,omitempty" validate:"required_with=CTAURL"`
	CTAURL   string `json:"ctaUrl,omitempty" validate:"required_with=CTAText,omitempty,weburl"`
}

type TextContent struct {
	Text  string `json:"text" validate:"required"`
	Align string `json:"align,omitempty" validate:"omitempty,oneof=left center right"`
}

type ImageContent struct {
	Src     string `json:"src" validate:"required,weburl"`
	Alt     string `json:"alt"`
	Width   int    `json:"width,omitempty" validate:"gte=0,lte=600"`
	Height  int    `json:"height,omitempty" validate:"gte=0"`
	LinkURL string `json:"linkUrl,omitempty" validate:"omitempty,weburl"`
}

const (
	ButtonFilled  = "filled"
	ButtonOutline = "outline"
)

type ButtonContent struct {
	Text            string `json:"text" validate:"required"`
	URL             string `json:"url" validate:"required,weburl"`
	ButtonStyle     string `json:"buttonStyle,omitempty" validate:"omitempty,oneof=filled outline"`
	BackgroundColor string `json:"backgroundColor,omitempty" validate:"omitempty,hexcolor"`
	TextColor       string `json:"textColor,omitempty" validate:"omitempty,hexcolor"`
}

const (
	DividerLine  = "line"
	DividerSpace = "space"
)

type DividerContent struct {
	DividerStyle string `json:"dividerStyle,omitempty" validate:"omitempty,oneof=line space"`
	Color        string `json:"color,omitempty" validate:"omitempty,hexcolor"`
}

type Link struct {
	Label string `json:"label" validate:"required"`
	URL   string `json:"url" validate:"required,weburl"`
}

type FooterContent struct {
	CompanyName    string `json:"companyName,omitempty"`
	Address        string `json:"address,omitempty"`
	UnsubscribeURL string `json:"unsubscribeUrl,omitempty" validate:"omitempty,weburl"`
	Links          []Link `json:"links,omitempty" validate:"dive"`
}

type FeatureItem struct {
	Title       string `json:"title" validate:"required"`
	Description string `json:"description,omitempty"`
	IconURL     string `json:"iconUrl,omitempty" validate:"omitempty,weburl"`
}

type FeaturesContent struct {
	Title string        `json:"title,omitempty"`
	Items []FeatureItem `json:"items" validate:"required,min=1,max=6,dive"`
}

// UnknownContent keeps the raw payload of a block type this version does not
// know about so it survives a decode/encode round trip.
type UnknownContent struct {
	Type BlockType
	Raw  json.RawMessage
}

func (HeaderContent) blockType() BlockType   { return TypeHeader }
func (HeroContent) blockType() BlockType     { return TypeHero }
func (TextContent) blockType() BlockType     { return TypeText }
func (ImageContent) blockType() BlockType    { return TypeImage }
func (ButtonContent) blockType() BlockType   { return TypeButton }
func (DividerContent) blockType() BlockType  { return TypeDivider }
func (FooterContent) blockType() BlockType   { return TypeFooter }
func (FeaturesContent) blockType() BlockType { return TypeFeatures }
func (u UnknownContent) blockType() BlockType {
	return u.Type
}

func (u UnknownContent) MarshalJSON() ([]byte, error) {
	if len(u.Raw) == 0 {
		return []byte("null"), nil
	}
	return u.Raw, nil
}

func newContent(t BlockType) Content {
	switch t {
	case TypeHeader:
		return &HeaderContent{}
	case TypeHero:
		return &HeroContent{}
	case TypeText:
		return &TextContent{}
	case TypeImage:
		return &ImageContent{}
	case TypeButton:
		return &ButtonContent{}
	case TypeDivider:
		return &DividerContent{}
	case TypeFooter:
		return &FooterContent{}
	case TypeFeatures:
		return &FeaturesContent{}
	}
	return nil
}

// deref turns the pointer produced by newContent back into a value so callers
// can type-switch on value types only.
func deref(c Content) Content {
	switch v := c.(type) {
	case *HeaderContent:
		return *v
	case *HeroContent:
		return *v
	case *TextContent:
		return *v
	case *ImageContent:
		return *v
	case *ButtonContent:
		return *v
	case *DividerContent:
		return *v
	case *FooterContent:
		return *v
	case *FeaturesContent:
		return *v
	}
	return c
}
