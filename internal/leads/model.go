package leads

import (
	"fmt"
	"strings"
)

// Kind distinguishes the public forms that feed the pipeline.
type Kind string

const (
	// KindInquiry is the free-form contact form.
	KindInquiry Kind = "inquiry"
	// KindBooking is the structured booking form on a car detail page.
	KindBooking Kind = "booking"
)

// ParseKind maps a route or form value to a Kind.
func ParseKind(s string) (Kind, error) {
	switch Kind(strings.ToLower(strings.TrimSpace(s))) {
	case KindInquiry, "contact":
		return KindInquiry, nil
	case KindBooking, "car_booking":
		return KindBooking, nil
	default:
		return "", fmt.Errorf("leads: unknown submission kind %q", s)
	}
}

// Payload is the raw form body as posted by the site.
type Payload struct {
	Name       string `json:"name"`
	Phone      string `json:"phone"`
	Email      string `json:"email"`
	Car        string `json:"car"`
	PickupFrom string `json:"pickupFrom"`
	PickupDate string `json:"pickupDate"`
	ReturnDate string `json:"returnDate"`
	// DropDate is the booking form's name for ReturnDate.
	DropDate string `json:"dropDate,omitempty"`
	Message  string `json:"message"`
}

// Submission is a validated lead. It is only produced by Validator and is
// passed by value from there on.
type Submission struct {
	Kind       Kind   `json:"kind"`
	Name       string `json:"name"`
	Phone      string `json:"phone"`
	Email      string `json:"email"`
	Car        string `json:"car"`
	PickupFrom string `json:"pickupFrom,omitempty"`
	PickupDate string `json:"pickupDate"`
	ReturnDate string `json:"returnDate"`
	Message    string `json:"message"`
}

// Record is a lead as read back from the lead store.
type Record struct {
	Timestamp  string `json:"timestamp"`
	Name       string `json:"name"`
	Car        string `json:"car"`
	Phone      string `json:"phone"`
	Email      string `json:"email"`
	PickupDate string `json:"pickupDate"`
	ReturnDate string `json:"returnDate"`
	Message    string `json:"message"`
}

// Ack is the lead store's acknowledgement of an append.
type Ack struct {
	UpdatedRange string `json:"updatedRange,omitempty"`
	UpdatedRows  int64  `json:"updatedRows"`
}

// Result is what the public forms receive.
type Result struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

const bookingAnnotation = "Booking Type: Car Rental | Pickup From: %s | Booking Type: car_booking"

// bookingMessage appends the booking annotation after any text the customer
// typed so the lead store row carries the pickup location.
func bookingMessage(userText, pickupFrom string) string {
	annotation := fmt.Sprintf(bookingAnnotation, pickupFrom)
	if userText = strings.TrimSpace(userText); userText == "" {
		return annotation
	}
	return userText + " | " + annotation
}
