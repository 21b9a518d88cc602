package services

import (
	"bytes"
	"fmt"
	"html/template"
	"net/url"
	"strings"

	"revisitly-backend/models"
)

// CTA is the single call-to-action button of a re-engagement email.
type CTA struct {
	URL   template.URL
	Label string
}

const placeholderURL = template.URL("#")

// chooseCTA prefers the booking website, then a phone link, then the review
// page. With none configured the button points nowhere.
func chooseCTA(b *models.Business) CTA {
	if u := safeURL(b.WebsiteURL); u != "" {
		return CTA{URL: u, Label: "Book My Next Visit"}
	}
	if tel := telURL(b.Phone); tel != "" {
		return CTA{URL: tel, Label: "Call Us to Book"}
	}
	if u := safeURL(b.ReviewURL); u != "" {
		return CTA{URL: u, Label: "Leave Us a Review"}
	}
	return CTA{URL: placeholderURL, Label: "Book My Next Visit"}
}

// safeURL accepts absolute http(s) links only.
func safeURL(raw string) template.URL {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return ""
	}
	return template.URL(u.String())
}

func telURL(phone string) template.URL {
	var b strings.Builder
	for i, r := range strings.TrimSpace(phone) {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '+' && i == 0:
			b.WriteRune(r)
		case r == ' ' || r == '-' || r == '(' || r == ')' || r == '.':
		default:
			return ""
		}
	}
	digits := strings.TrimPrefix(b.String(), "+")
	if len(digits) < 3 {
		return ""
	}
	return template.URL("tel:" + b.String())
}

func reviewLink(b *models.Business) template.URL {
	if u := safeURL(b.ReviewURL); u != "" {
		return u
	}
	return placeholderURL
}

type emailData struct {
	BusinessName string
	CustomerName string
	Service      string
	Days         int
	Offer        string
	ReviewURL    template.URL
	CTA          CTA
	Footer       string
}

const layoutHTML = `{{define "layout"}}<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; background: #f9f9f9; margin: 0; padding: 40px 20px;">
  <div style="max-width: 520px; margin: 0 auto; background: #ffffff; border-radius: 16px; overflow: hidden;">
    <div style="background: #0a0a0f; padding: 32px; text-align: center;">
      <h1 style="color: #00e5a0; font-size: 1.6rem; margin: 0;">{{.BusinessName}}</h1>
    </div>
    <div style="padding: 36px 32px;">
      {{template "body" .}}
      <p style="color: #555; line-height: 1.7;">We look forward to seeing you again soon!</p>
      <p style="color: #555; margin-top: 8px;">Warm regards,<br/><strong>{{.BusinessName}}</strong></p>
    </div>
    <div style="background: #f5f5f5; padding: 20px 32px; text-align: center;">
      <p style="color: #999; font-size: 0.78rem; margin: 0;">{{.Footer}}</p>
    </div>
  </div>
</body>
</html>{{end}}
{{define "button"}}<div style="text-align: center; margin-bottom: 28px;">
  <a href="{{.URL}}" style="background: #00e5a0; color: #000; padding: 14px 32px; border-radius: 100px; text-decoration: none; font-weight: 700; display: inline-block;">{{.Label}}</a>
</div>{{end}}`

const thankYouHTML = `{{define "body"}}<h2 style="color: #1a1a2e; font-size: 1.3rem;">Hi {{.CustomerName}}!</h2>
<p style="color: #555; line-height: 1.7;">Thank you so much for visiting us{{if .Service}} for your {{.Service}}{{end}}! We hope you had a wonderful experience.</p>
<p style="color: #555; line-height: 1.7;">If you enjoyed your visit, we'd love it if you could take 30 seconds to leave us a review. It means the world to a small business like ours!</p>
{{template "button" (cta .ReviewURL "Leave a Review")}}{{end}}`

const rebookHTML = `{{define "body"}}<h2 style="color: #1a1a2e; font-size: 1.3rem;">Hi {{.CustomerName}}!</h2>
<p style="color: #555; line-height: 1.7;">It's been about {{.Days}} days since your last visit and we just wanted to say we miss you!</p>
<p style="color: #555; line-height: 1.7;">{{.Offer}}</p>
{{template "button" .CTA}}{{end}}`

const reminderHTML = `{{define "body"}}<h2 style="color: #1a1a2e; font-size: 1.3rem;">Hi {{.CustomerName}}!</h2>
<p style="color: #555; line-height: 1.7;">Thanks again for choosing us. If you have a moment, a short review helps other people find us.</p>
{{template "button" (cta .ReviewURL "Leave a Review")}}{{end}}`

var templateFuncs = template.FuncMap{
	"cta": func(u template.URL, label string) CTA { return CTA{URL: u, Label: label} },
}

var (
	thankYouTmpl = mustParse("thankyou", thankYouHTML)
	rebookTmpl   = mustParse("rebook", rebookHTML)
	reminderTmpl = mustParse("reminder", reminderHTML)
)

func mustParse(name, body string) *template.Template {
	t := template.Must(template.New(name).Funcs(templateFuncs).Parse(layoutHTML))
	return template.Must(t.Parse(body))
}

func render(t *template.Template, data emailData) (string, error) {
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

const (
	offer30 = "We'd love to see you again! Book your next visit and mention this email for a special welcome back treat."
	offer60 = "It's been 2 months and we miss you! Come back and enjoy an exclusive returning customer offer. Just mention this email when you book."
)

func composeThankYou(b *models.Business, c *models.Customer, service string) (Message, error) {
	data := emailData{
		BusinessName: b.Name,
		CustomerName: c.Name,
		Service:      service,
		ReviewURL:    reviewLink(b),
		Footer:       fmt.Sprintf("You're receiving this because you recently visited %s.", b.Name),
	}
	html, err := render(thankYouTmpl, data)
	if err != nil {
		return Message{}, fmt.Errorf("render thank-you: %w", err)
	}
	text := fmt.Sprintf("Hi %s!\n\nThank you so much for visiting %s. If you enjoyed your visit, please leave us a review: %s\n\nWarm regards,\n%s",
		c.Name, b.Name, data.ReviewURL, b.Name)
	return Message{
		To:      c.Email,
		ToName:  c.Name,
		Subject: fmt.Sprintf("Thank you for visiting %s! ⭐", b.Name),
		HTML:    html,
		Text:    text,
	}, nil
}

func composeRebook(b *models.Business, c *models.Customer, days int) (Message, error) {
	subject := fmt.Sprintf("We miss you at %s! 💛", b.Name)
	offer := offer30
	if days >= 60 {
		subject = fmt.Sprintf("It's been a while, come back to %s! 🌟", b.Name)
		offer = offer60
	}
	data := emailData{
		BusinessName: b.Name,
		CustomerName: c.Name,
		Days:         days,
		Offer:        offer,
		CTA:          chooseCTA(b),
		Footer:       fmt.Sprintf("You're receiving this because you previously visited %s.", b.Name),
	}
	html, err := render(rebookTmpl, data)
	if err != nil {
		return Message{}, fmt.Errorf("render %d-day rebook: %w", days, err)
	}
	text := fmt.Sprintf("Hi %s!\n\nIt's been about %d days since your last visit to %s. %s\n\n%s: %s",
		c.Name, days, b.Name, offer, data.CTA.Label, data.CTA.URL)
	return Message{
		To:      c.Email,
		ToName:  c.Name,
		Subject: subject,
		HTML:    html,
		Text:    text,
	}, nil
}

func composeReminder(b *models.Business, c *models.Customer) (Message, error) {
	data := emailData{
		BusinessName: b.Name,
		CustomerName: c.Name,
		ReviewURL:    reviewLink(b),
		Footer:       fmt.Sprintf("You're receiving this because you recently visited %s.", b.Name),
	}
	html, err := render(reminderTmpl, data)
	if err != nil {
		return Message{}, fmt.Errorf("render reminder: %w", err)
	}
	return Message{
		To:      c.Email,
		ToName:  c.Name,
		Subject: fmt.Sprintf("How was your visit to %s?", b.Name),
		HTML:    html,
		Text:    fmt.Sprintf("Hi %s!\n\nThanks again for choosing %s. Leave us a review: %s", c.Name, b.Name, data.ReviewURL),
	}, nil
}

func thankYouSMS(b *models.Business, c *models.Customer) string {
	return fmt.Sprintf("Hi %s, thanks for visiting %s! Leave us a review: %s", c.Name, b.Name, reviewLink(b))
}
