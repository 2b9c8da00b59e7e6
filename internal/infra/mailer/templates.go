package mailer

import (
	"mailforge/internal/domain/emailblock"
	"mailforge/internal/domain/emailhtml"
)

const brandName = "Mailforge"

// Notice is a short transactional email: a heading, a paragraph and an
// optional call to action. It renders through the same block converter the
// editor uses.
type Notice struct {
	To        string
	Subject   string
	Preheader string
	Heading   string
	Body      string
	CTAText   string
	CTAURL    string
	Tag       string
}

func (n Notice) Structure() emailblock.Structure {
	s := emailblock.Structure{Subject: n.Subject, Preheader: n.Preheader}
	s.Append(emailblock.HeaderContent{CompanyName: brandName}, emailblock.Styles{Padding: emailblock.SizeMedium})
	s.Append(emailblock.TextContent{Text: n.Heading, Align: "left"}, emailblock.Styles{FontSize: emailblock.SizeLarge})
	s.Append(emailblock.TextContent{Text: n.Body, Align: "left"}, emailblock.Styles{})
	if n.CTAText != "" && n.CTAURL != "" {
		s.Append(emailblock.ButtonContent{
			Text:            n.CTAText,
			URL:             n.CTAURL,
			ButtonStyle:     emailblock.ButtonFilled,
			BackgroundColor: "#4f46e5",
			TextColor:       "#ffffff",
		}, emailblock.Styles{BorderRadius: emailblock.SizeMedium})
	}
	s.Append(emailblock.DividerContent{DividerStyle: emailblock.DividerLine}, emailblock.Styles{})
	s.Append(emailblock.FooterContent{CompanyName: brandName}, emailblock.Styles{FontSize: emailblock.SizeSmall})
	return s
}

func (n Notice) Message() Message {
	return Message{
		To:      n.To,
		Subject: n.Subject,
		HTML:    emailhtml.ToHTML(n.Structure()),
		Tag:     n.Tag,
	}
}

func VerificationNotice(to, name, link string) Notice {
	return Notice{
		To:        to,
		Subject:   "Verify your " + brandName + " account",
		Preheader: "One click and you're in.",
		Heading:   greeting(name),
		Body:      "Confirm your email address to finish creating your account. The link is valid for 48 hours.",
		CTAText:   "Verify email",
		CTAURL:    link,
		Tag:       "verify-email",
	}
}

func PasswordResetNotice(to, name, link string) Notice {
	return Notice{
		To:        to,
		Subject:   "Reset your " + brandName + " password",
		Preheader: "This link expires in one hour.",
		Heading:   greeting(name),
		Body:      "Someone asked to reset the password for this account. If it wasn't you, ignore this email.",
		CTAText:   "Choose a new password",
		CTAURL:    link,
		Tag:       "password-reset",
	}
}

func BetaAcknowledgementNotice(to, name string) Notice {
	return Notice{
		To:        to,
		Subject:   "You're on the " + brandName + " beta list",
		Preheader: "We'll send your access code soon.",
		Heading:   greeting(name),
		Body:      "Thanks for your interest in the beta. We're letting people in gradually and will email you an access code as soon as a spot opens up.",
		Tag:       "beta-ack",
	}
}

func BetaInviteNotice(to, name, code, link string) Notice {
	return Notice{
		To:        to,
		Subject:   "Your " + brandName + " beta access code",
		Preheader: "Your spot is ready.",
		Heading:   greeting(name),
		Body:      "Your access code is " + code + ". Sign in and enter it on the beta page to unlock the editor.",
		CTAText:   "Open " + brandName,
		CTAURL:    link,
		Tag:       "beta-invite",
	}
}

func greeting(name string) string {
	if name == "" {
		return "Hi there,"
	}
	return "Hi " + name + ","
}
