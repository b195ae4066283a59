package notify

import (
	"bytes"
	"embed"
	"fmt"
	htmltemplate "html/template"
	"strings"
	texttemplate "text/template"

	"github.com/jetriderentals/booking-api/internal/leads"
)

//go:embed templates/submission.html templates/submission.txt
var templateFS embed.FS

const emptyField = "-"

// Notification is a rendered operator email.
type Notification struct {
	Subject string
	HTML    string
	Text    string
}

type field struct {
	Label string
	Value string
	Href  htmltemplate.URL
}

type submissionData struct {
	Heading      string
	BusinessName string
	Fields       []field
}

// Composer renders submissions into operator emails. Rendering is pure: the
// same submission always yields byte-identical output.
type Composer struct {
	businessName string
	phoneRegion  string
	html         *htmltemplate.Template
	text         *texttemplate.Template
}

// NewComposer parses the embedded templates.
func NewComposer(businessName string) *Composer {
	if strings.TrimSpace(businessName) == "" {
		businessName = "Jet Ride Rentals"
	}
	return &Composer{
		businessName: businessName,
		phoneRegion:  defaultPhoneRegion,
		html:         htmltemplate.Must(htmltemplate.ParseFS(templateFS, "templates/submission.html")),
		text:         texttemplate.Must(texttemplate.ParseFS(templateFS, "templates/submission.txt")),
	}
}

// Subject returns the fixed subject line for a submission kind.
func (c *Composer) Subject(kind leads.Kind) string {
	if kind == leads.KindBooking {
		return "New Booking Request - " + c.businessName
	}
	return "New Contact Submission - " + c.businessName
}

// Compose renders sub. Every interpolated value is HTML-escaped in the HTML
// part.
func (c *Composer) Compose(sub leads.Submission) (Notification, error) {
	data := submissionData{
		Heading:      c.Subject(sub.Kind),
		BusinessName: c.businessName,
		Fields:       c.fields(sub),
	}

	var html, text bytes.Buffer
	if err := c.html.ExecuteTemplate(&html, "submission", data); err != nil {
		return Notification{}, fmt.Errorf("notify: render html: %w", err)
	}
	if err := c.text.ExecuteTemplate(&text, "submission", data); err != nil {
		return Notification{}, fmt.Errorf("notify: render text: %w", err)
	}
	return Notification{Subject: data.Heading, HTML: html.String(), Text: text.String()}, nil
}

func (c *Composer) fields(sub leads.Submission) []field {
	phone := field{Label: "Phone", Value: orDash(sub.Phone)}
	if e164, ok := toE164(sub.Phone, c.phoneRegion); ok {
		phone.Href = htmltemplate.URL("tel:" + e164)
	}

	out := []field{
		{Label: "Name", Value: orDash(sub.Name)},
		phone,
		{Label: "Email", Value: orDash(sub.Email)},
		{Label: "Car", Value: orDash(sub.Car)},
	}
	if sub.Kind == leads.KindBooking {
		out = append(out, field{Label: "Pickup From", Value: orDash(sub.PickupFrom)})
	}
	return append(out,
		field{Label: "Pickup Date", Value: orDash(sub.PickupDate)},
		field{Label: "Return Date", Value: orDash(sub.ReturnDate)},
		field{Label: "Message", Value: orDash(sub.Message)},
	)
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return emptyField
	}
	return s
}
