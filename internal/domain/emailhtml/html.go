// Package emailhtml converts an email block structure into a table-based HTML
// document that mail clients render consistently, and back.
//
// Every block becomes one <tr> fragment tagged with data-block-id,
// data-block-type and data-order-id. Content fields are tagged with data-field
// and non-visible properties with data-p-* attributes so FromHTML can rebuild
// the structure from a document produced here.
package emailhtml

import (
	"fmt"
	"html"
	"regexp"
	"strconv"
	"strings"

	"mailforge/internal/domain/emailblock"
)

const (
	ContentWidth = 600

	defaultTextColor   = "#1f2937"
	defaultMutedColor  = "#6b7280"
	defaultAccentColor = "#2563eb"
	defaultRuleColor   = "#e5e7eb"
	pageBackground     = "#f4f4f5"
	fontStack          = "Helvetica, Arial, sans-serif"
)

var hexColor = regexp.MustCompile(`^#(?:[0-9a-fA-F]{3}|[0-9a-fA-F]{6})$`)

// ToHTML renders the structure as a complete HTML document. Blocks are
// emitted in ascending OrderID order; unknown block types and blocks whose
// content does not match their type produce nothing.
func ToHTML(s emailblock.Structure) string {
	var body strings.Builder
	for _, b := range s.Sorted() {
		body.WriteString(Fragment(b))
	}
	return document(s.Subject, s.Preheader, body.String())
}

// Fragment renders one block as a table row, or "" for unknown types and for
// content that is not the variant BlockType names.
func Fragment(b emailblock.Block) string {
	inner := renderContent(b)
	if inner == "" {
		return ""
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, `<tr data-block-id="%s" data-block-type="%s" data-order-id="%d"`,
		attr(b.ID), attr(string(b.BlockType)), b.OrderID)
	if pairs := b.Styles.Pairs(); len(pairs) > 0 {
		parts := make([]string, 0, len(pairs))
		for _, p := range pairs {
			parts = append(parts, p[0]+":"+p[1])
		}
		fmt.Fprintf(&sb, ` data-styles="%s"`, attr(strings.Join(parts, ";")))
	}
	sb.WriteString(">")
	sb.WriteString(inner)
	sb.WriteString("</tr>\n")
	return sb.String()
}

func renderContent(b emailblock.Block) string {
	if !b.Consistent() {
		return ""
	}
	st := b.Styles
	switch c := b.Content.(type) {
	case emailblock.HeaderContent:
		return renderHeader(c, st)
	case emailblock.HeroContent:
		return renderHero(c, st)
	case emailblock.TextContent:
		return renderText(c, st)
	case emailblock.ImageContent:
		return renderImage(c, st)
	case emailblock.ButtonContent:
		return renderButton(c, st)
	case emailblock.DividerContent:
		return renderDivider(c, st)
	case emailblock.FooterContent:
		return renderFooter(c, st)
	case emailblock.FeaturesContent:
		return renderFeatures(c, st)
	}
	return ""
}

func cell(st emailblock.Styles, align string, extra string, inner string) string {
	if align == "" {
		align = "left"
	}
	return fmt.Sprintf(`<td align="%s"%s style="padding:%dpx;font-family:%s;">%s</td>`,
		align, extra, st.PaddingPx(), fontStack, inner)
}

func renderHeader(c emailblock.HeaderContent, st emailblock.Styles) string {
	var sb strings.Builder
	if c.LogoURL != "" {
		fmt.Fprintf(&sb, `<img data-field="logo" src="%s" alt="%s" height="40" style="display:block;margin:0 auto;border:0;height:40px;">`,
			attr(safeURL(c.LogoURL)), attr(c.LogoAlt))
	}
	if c.CompanyName != "" {
		fmt.Fprintf(&sb, `<div data-field="companyName" style="font-size:%dpx;font-weight:700;color:%s;">%s</div>`,
			st.FontSizePx()+4, defaultTextColor, text(c.CompanyName))
	}
	if c.Tagline != "" {
		fmt.Fprintf(&sb, `<div data-field="tagline" style="font-size:%dpx;color:%s;">%s</div>`,
			emailblock.Pixels(emailblock.PropFontSize, emailblock.SizeSmall), defaultMutedColor, text(c.Tagline))
	}
	return cell(st, "center", "", sb.String())
}

func renderHero(c emailblock.HeroContent, st emailblock.Styles) string {
	var sb strings.Builder
	if c.ImageURL != "" {
		fmt.Fprintf(&sb, `<img data-field="image" src="%s" alt="%s" width="%d" style="display:block;width:100%%;max-width:%dpx;border:0;">`,
			attr(safeURL(c.ImageURL)), attr(c.Title), ContentWidth, ContentWidth)
	}
	fmt.Fprintf(&sb, `<h1 data-field="title" style="margin:16px 0 8px;font-size:%dpx;color:%s;">%s</h1>`,
		st.FontSizePx()+12, defaultTextColor, text(c.Title))
	if c.Subtitle != "" {
		fmt.Fprintf(&sb, `<p data-field="subtitle" style="margin:0 0 16px;font-size:%dpx;color:%s;">%s</p>`,
			st.FontSizePx(), defaultMutedColor, text(c.Subtitle))
	}
	if c.CTAText != "" && c.CTAURL != "" {
		fmt.Fprintf(&sb, `<a data-field="cta" href="%s" style="display:inline-block;padding:12px 24px;background-color:%s;color:#ffffff;text-decoration:none;border-radius:%dpx;">%s</a>`,
			attr(safeURL(c.CTAURL)), defaultAccentColor, st.BorderRadiusPx(), text(c.CTAText))
	}
	return cell(st, "center", "", sb.String())
}

func renderText(c emailblock.TextContent, st emailblock.Styles) string {
	align := alignOr(c.Align, "left")
	paragraphs := strings.Split(strings.ReplaceAll(c.Text, "\r\n", "\n"), "\n")
	escaped := make([]string, len(paragraphs))
	for i, p := range paragraphs {
		escaped[i] = text(p)
	}
	inner := fmt.Sprintf(`<div data-field="text" style="font-size:%dpx;line-height:1.5;color:%s;">%s</div>`,
		st.FontSizePx(), defaultTextColor, strings.Join(escaped, "<br>"))
	return cell(st, align, fmt.Sprintf(` data-p-align="%s"`, align), inner)
}

func renderImage(c emailblock.ImageContent, st emailblock.Styles) string {
	width := c.Width
	if width <= 0 || width > ContentWidth {
		width = ContentWidth
	}
	dims := fmt.Sprintf(` width="%d"`, width)
	style := fmt.Sprintf("display:block;border:0;width:100%%;max-width:%dpx;", width)
	if c.Height > 0 {
		dims += fmt.Sprintf(` height="%d"`, c.Height)
		style += "height:auto;"
	}
	if c.Width > 0 {
		dims += fmt.Sprintf(` data-p-width="%d"`, c.Width)
	}
	img := fmt.Sprintf(`<img data-field="image" src="%s" alt="%s"%s style="%s">`,
		attr(safeURL(c.Src)), attr(c.Alt), dims, style)
	if c.LinkURL != "" {
		img = fmt.Sprintf(`<a data-field="link" href="%s">%s</a>`, attr(safeURL(c.LinkURL)), img)
	}
	return cell(st, "center", "", img)
}

func renderButton(c emailblock.ButtonContent, st emailblock.Styles) string {
	bg := colorOr(c.BackgroundColor, defaultAccentColor)
	style := c.ButtonStyle
	if style != emailblock.ButtonOutline {
		style = emailblock.ButtonFilled
	}

	var css string
	if style == emailblock.ButtonOutline {
		fg := colorOr(c.TextColor, bg)
		css = fmt.Sprintf("background-color:transparent;color:%s;border:2px solid %s;", fg, bg)
	} else {
		fg := colorOr(c.TextColor, "#ffffff")
		css = fmt.Sprintf("background-color:%s;color:%s;border:2px solid %s;", bg, fg, bg)
	}

	a := fmt.Sprintf(`<a data-field="button" data-p-buttonstyle="%s" data-p-backgroundcolor="%s"%s href="%s" style="display:inline-block;padding:12px 28px;font-size:%dpx;font-weight:600;text-decoration:none;border-radius:%dpx;%s">%s</a>`,
		style, colorOr(c.BackgroundColor, ""), textColorAttr(c.TextColor), attr(safeURL(c.URL)), st.FontSizePx(), st.BorderRadiusPx(), css, text(c.Text))
	return cell(st, "center", "", a)
}

func textColorAttr(v string) string {
	if !hexColor.MatchString(v) {
		return ""
	}
	return fmt.Sprintf(` data-p-textcolor="%s"`, v)
}

func renderDivider(c emailblock.DividerContent, st emailblock.Styles) string {
	if c.DividerStyle == emailblock.DividerSpace {
		h := st.SpacingPx()
		return fmt.Sprintf(`<td data-p-dividerstyle="space" height="%d" style="height:%dpx;line-height:%dpx;font-size:0;">&nbsp;</td>`, h, h, h)
	}
	color := colorOr(c.Color, defaultRuleColor)
	return fmt.Sprintf(`<td data-p-dividerstyle="line" data-p-color="%s" style="padding:%dpx;"><div style="border-top:1px solid %s;font-size:0;line-height:0;">&nbsp;</div></td>`,
		colorOr(c.Color, ""), st.PaddingPx(), color)
}

func renderFooter(c emailblock.FooterContent, st emailblock.Styles) string {
	small := emailblock.Pixels(emailblock.PropFontSize, emailblock.SizeSmall)
	var sb strings.Builder
	if len(c.Links) > 0 {
		links := make([]string, 0, len(c.Links))
		for i, l := range c.Links {
			links = append(links, fmt.Sprintf(`<a data-field="link.%d" href="%s" style="color:%s;">%s</a>`,
				i, attr(safeURL(l.URL)), defaultMutedColor, text(l.Label)))
		}
		fmt.Fprintf(&sb, `<p style="margin:0 0 8px;font-size:%dpx;">%s</p>`, small, strings.Join(links, " &middot; "))
	}
	if c.CompanyName != "" {
		fmt.Fprintf(&sb, `<p data-field="companyName" style="margin:0;font-size:%dpx;color:%s;">%s</p>`, small, defaultMutedColor, text(c.CompanyName))
	}
	if c.Address != "" {
		fmt.Fprintf(&sb, `<p data-field="address" style="margin:0;font-size:%dpx;color:%s;">%s</p>`, small, defaultMutedColor, text(c.Address))
	}
	if c.UnsubscribeURL != "" {
		fmt.Fprintf(&sb, `<p style="margin:8px 0 0;font-size:%dpx;"><a data-field="unsubscribe" href="%s" style="color:%s;">Unsubscribe</a></p>`,
			small, attr(safeURL(c.UnsubscribeURL)), defaultMutedColor)
	}
	return cell(st, "center", "", sb.String())
}

func renderFeatures(c emailblock.FeaturesContent, st emailblock.Styles) string {
	var sb strings.Builder
	if c.Title != "" {
		fmt.Fprintf(&sb, `<h2 data-field="title" style="margin:0 0 16px;font-size:%dpx;color:%s;">%s</h2>`,
			st.FontSizePx()+6, defaultTextColor, text(c.Title))
	}
	sb.WriteString(`<table role="presentation" width="100%" cellpadding="0" cellspacing="0" border="0">`)
	for i, item := range c.Items {
		sb.WriteString(`<tr>`)
		if item.IconURL != "" {
			fmt.Fprintf(&sb, `<td width="48" valign="top"><img data-field="item.%d.icon" src="%s" alt="" width="32" height="32" style="display:block;border:0;"></td>`,
				i, attr(safeURL(item.IconURL)))
		}
		fmt.Fprintf(&sb, `<td valign="top" style="padding-bottom:12px;"><strong data-field="item.%d.title" style="font-size:%dpx;color:%s;">%s</strong>`,
			i, st.FontSizePx(), defaultTextColor, text(item.Title))
		if item.Description != "" {
			fmt.Fprintf(&sb, `<div data-field="item.%d.description" style="font-size:%dpx;color:%s;">%s</div>`,
				i, st.FontSizePx()-2, defaultMutedColor, text(item.Description))
		}
		sb.WriteString(`</td></tr>`)
	}
	sb.WriteString(`</table>`)
	return cell(st, "left", "", sb.String())
}

func document(subject, preheader, rows string) string {
	var sb strings.Builder
	sb.WriteString("<!DOCTYPE html>\n")
	sb.WriteString(`<html lang="en"><head><meta charset="utf-8">`)
	sb.WriteString(`<meta name="viewport" content="width=device-width, initial-scale=1">`)
	fmt.Fprintf(&sb, "<title>%s</title></head>\n", text(subject))
	fmt.Fprintf(&sb, `<body style="margin:0;padding:0;background-color:%s;">`, pageBackground)
	if preheader != "" {
		fmt.Fprintf(&sb, `<div data-preheader style="display:none;max-height:0;overflow:hidden;">%s</div>`, text(preheader))
	}
	fmt.Fprintf(&sb, `<table role="presentation" width="100%%" cellpadding="0" cellspacing="0" border="0" style="background-color:%s;"><tr><td align="center">`, pageBackground)
	fmt.Fprintf(&sb, "<table role=\"presentation\" data-email-body width=\"%d\" cellpadding=\"0\" cellspacing=\"0\" border=\"0\" style=\"max-width:%dpx;width:100%%;background-color:#ffffff;\">\n",
		ContentWidth, ContentWidth)
	sb.WriteString(rows)
	sb.WriteString("</table></td></tr></table></body></html>\n")
	return sb.String()
}

func text(s string) string { return html.EscapeString(s) }
func attr(s string) string { return html.EscapeString(s) }

// safeURL keeps links that pass emailblock.SafeURL. Anything else becomes "#".
func safeURL(raw string) string {
	if u, ok := emailblock.SafeURL(raw); ok {
		return u
	}
	return "#"
}

func colorOr(v, fallback string) string {
	if hexColor.MatchString(v) {
		return v
	}
	return fallback
}

func alignOr(v, fallback string) string {
	switch v {
	case "left", "center", "right":
		return v
	}
	return fallback
}

func atoi(s string) int {
	n, _ := strconv.Atoi(strings.TrimSpace(s))
	return n
}
