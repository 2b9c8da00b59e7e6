package emailhtml

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"mailforge/internal/domain/emailblock"
)

// ErrNoBlocks is returned by FromHTML when the document holds no block
// fragments, e.g. HTML that was not produced by ToHTML.
var ErrNoBlocks = errors.New("emailhtml: no block fragments found")

// FromHTML rebuilds a structure from a document produced by ToHTML. Field
// text is kept as rendered, surrounding whitespace included; "\r\n" line
// breaks come back as "\n". Links that failed the URL check come back as "#".
func FromHTML(doc string) (emailblock.Structure, error) {
	root, err := html.Parse(strings.NewReader(doc))
	if err != nil {
		return emailblock.Structure{}, fmt.Errorf("emailhtml: parse: %w", err)
	}

	var s emailblock.Structure
	walk(root, func(n *html.Node) bool {
		switch {
		case n.DataAtom == atom.Title:
			s.Subject = strings.TrimSpace(textContent(n))
			return false
		case hasAttr(n, "data-preheader"):
			s.Preheader = strings.TrimSpace(textContent(n))
			return false
		case getAttr(n, "data-block-type") != "":
			s.Blocks = append(s.Blocks, decodeFragment(n))
			return false
		}
		return true
	})

	if len(s.Blocks) == 0 {
		return s, ErrNoBlocks
	}
	return s, nil
}

// Fragments counts the block fragments in a document.
func Fragments(doc string) int {
	root, err := html.Parse(strings.NewReader(doc))
	if err != nil {
		return 0
	}
	n := 0
	walk(root, func(node *html.Node) bool {
		if getAttr(node, "data-block-type") != "" {
			n++
			return false
		}
		return true
	})
	return n
}

func decodeFragment(n *html.Node) emailblock.Block {
	b := emailblock.Block{
		ID:        getAttr(n, "data-block-id"),
		BlockType: emailblock.BlockType(getAttr(n, "data-block-type")),
		OrderID:   atoi(getAttr(n, "data-order-id")),
		Styles:    parseStyles(getAttr(n, "data-styles")),
	}

	f := fields{}
	walk(n, func(node *html.Node) bool {
		f.collect(node)
		return true
	})
	b.Content = f.content(b.BlockType)
	return b
}

func parseStyles(v string) emailblock.Styles {
	var st emailblock.Styles
	for _, pair := range strings.Split(v, ";") {
		k, val, ok := strings.Cut(pair, ":")
		if !ok {
			continue
		}
		st.Set(emailblock.Property(strings.TrimSpace(k)), emailblock.Size(strings.TrimSpace(val)))
	}
	return st
}

type fields map[string]string

func (f fields) collect(n *html.Node) {
	if n.Type != html.ElementNode {
		return
	}
	for _, a := range n.Attr {
		if key, ok := strings.CutPrefix(a.Key, "data-p-"); ok {
			f[key] = a.Val
		}
	}
	name := getAttr(n, "data-field")
	if name == "" {
		return
	}
	f[name] = textContent(n)
	switch n.DataAtom {
	case atom.A:
		f[name+".href"] = getAttr(n, "href")
	case atom.Img:
		f[name+".src"] = getAttr(n, "src")
		f[name+".alt"] = getAttr(n, "alt")
		f[name+".width"] = getAttr(n, "width")
		f[name+".height"] = getAttr(n, "height")
	}
}

func (f fields) content(t emailblock.BlockType) emailblock.Content {
	switch t {
	case emailblock.TypeHeader:
		return emailblock.HeaderContent{
			LogoURL:     f["logo.src"],
			LogoAlt:     f["logo.alt"],
			CompanyName: f["companyName"],
			Tagline:     f["tagline"],
		}
	case emailblock.TypeHero:
		return emailblock.HeroContent{
			Title:    f["title"],
			Subtitle: f["subtitle"],
			ImageURL: f["image.src"],
			CTAText:  f["cta"],
			CTAURL:   f["cta.href"],
		}
	case emailblock.TypeText:
		return emailblock.TextContent{Text: f["text"], Align: f["align"]}
	case emailblock.TypeImage:
		return emailblock.ImageContent{
			Src:     f["image.src"],
			Alt:     f["image.alt"],
			Width:   atoi(f["width"]),
			Height:  atoi(f["image.height"]),
			LinkURL: f["link.href"],
		}
	case emailblock.TypeButton:
		return emailblock.ButtonContent{
			Text:            f["button"],
			URL:             f["button.href"],
			ButtonStyle:     f["buttonstyle"],
			BackgroundColor: f["backgroundcolor"],
			TextColor:       f["textcolor"],
		}
	case emailblock.TypeDivider:
		return emailblock.DividerContent{DividerStyle: f["dividerstyle"], Color: f["color"]}
	case emailblock.TypeFooter:
		c := emailblock.FooterContent{
			CompanyName:    f["companyName"],
			Address:        f["address"],
			UnsubscribeURL: f["unsubscribe.href"],
		}
		for _, i := range f.indexes("link.") {
			k := "link." + strconv.Itoa(i)
			c.Links = append(c.Links, emailblock.Link{Label: f[k], URL: f[k+".href"]})
		}
		return c
	case emailblock.TypeFeatures:
		c := emailblock.FeaturesContent{Title: f["title"]}
		for _, i := range f.indexes("item.") {
			k := "item." + strconv.Itoa(i) + "."
			c.Items = append(c.Items, emailblock.FeatureItem{
				Title:       f[k+"title"],
				Description: f[k+"description"],
				IconURL:     f[k+"icon.src"],
			})
		}
		return c
	}
	return emailblock.UnknownContent{Type: t}
}

// indexes returns the sorted distinct N found in keys shaped "<prefix>N..."
func (f fields) indexes(prefix string) []int {
	seen := map[int]bool{}
	for k := range f {
		rest, ok := strings.CutPrefix(k, prefix)
		if !ok {
			continue
		}
		num, _, _ := strings.Cut(rest, ".")
		if i, err := strconv.Atoi(num); err == nil {
			seen[i] = true
		}
	}
	out := make([]int, 0, len(seen))
	for i := range seen {
		out = append(out, i)
	}
	sort.Ints(out)
	return out
}

// walk visits n and its descendants depth first. Returning false from fn
// skips the children of the visited node.
func walk(n *html.Node, fn func(*html.Node) bool) {
	if !fn(n) {
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walk(c, fn)
	}
}

func textContent(n *html.Node) string {
	var sb strings.Builder
	var rec func(*html.Node)
	rec = func(n *html.Node) {
		switch {
		case n.Type == html.TextNode:
			sb.WriteString(n.Data)
		case n.DataAtom == atom.Br:
			sb.WriteString("\n")
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			rec(c)
		}
	}
	rec(n)
	return sb.String()
}

func getAttr(n *html.Node, key string) string {
	if n.Type != html.ElementNode {
		return ""
	}
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func hasAttr(n *html.Node, key string) bool {
	if n.Type != html.ElementNode {
		return false
	}
	for _, a := range n.Attr {
		if a.Key == key {
			return true
		}
	}
	return false
}
