package leads

import (
	"regexp"
	"strings"
	"time"
	"unicode"

	"github.com/go-playground/validator/v10"
	"github.com/jetriderentals/booking-api/pkg/logging"
)

var phonePattern = regexp.MustCompile(`^\+?[1-9]\d{0,15}$`)

// Accepted date layouts, most specific last. Only the calendar date is used.
var dateLayouts = []string{"2006-01-02", "2006-01-02T15:04", time.RFC3339}

const (
	msgMissingInquiry = "Please fill in all required fields (Name, Phone)"
	msgMissingBooking = "Please fill in all required fields"
	msgInvalidPhone   = "Please enter a valid phone number"
	msgInvalidDate    = "Please enter valid pickup and return dates"
	msgPickupInPast   = "Pickup date cannot be in the past"
	msgInvalidRange   = "Return date must be after pickup date"
	msgInvalidEmail   = "Please enter a valid email address"
)

// Validator turns a raw Payload into a Submission. It performs no I/O.
type Validator struct {
	strictEmail bool
	location    *time.Location
	now         func() time.Time
	tags        *validator.Validate
	logger      *logging.Logger
}

// NewValidator builds a validator. Dates are compared in loc; a nil loc
// means UTC. When strictEmail is false a malformed email is logged and
// accepted, since it is a secondary contact field.
func NewValidator(strictEmail bool, loc *time.Location, logger *logging.Logger) *Validator {
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Validator{
		strictEmail: strictEmail,
		location:    loc,
		now:         time.Now,
		tags:        validator.New(),
		logger:      logger,
	}
}

// WithClock overrides the clock used for the pickup-in-past rule.
func (v *Validator) WithClock(now func() time.Time) *Validator {
	if now != nil {
		v.now = now
	}
	return v
}

// Validate applies the rules in order and returns the first failure.
func (v *Validator) Validate(kind Kind, p Payload) (Submission, error) {
	sub := Submission{
		Kind:       kind,
		Name:       strings.TrimSpace(p.Name),
		Phone:      strings.TrimSpace(p.Phone),
		Email:      strings.TrimSpace(p.Email),
		Car:        strings.TrimSpace(p.Car),
		PickupFrom: strings.TrimSpace(p.PickupFrom),
		PickupDate: strings.TrimSpace(p.PickupDate),
		ReturnDate: strings.TrimSpace(p.ReturnDate),
		Message:    strings.TrimSpace(p.Message),
	}
	if sub.ReturnDate == "" {
		sub.ReturnDate = strings.TrimSpace(p.DropDate)
	}

	if err := v.checkRequired(sub); err != nil {
		return Submission{}, err
	}

	if !phonePattern.MatchString(stripSpace(sub.Phone)) {
		return Submission{}, &ValidationError{Code: InvalidPhone, Message: msgInvalidPhone}
	}

	if sub.PickupDate != "" && sub.ReturnDate != "" {
		if err := v.checkDates(sub.PickupDate, sub.ReturnDate); err != nil {
			return Submission{}, err
		}
	}

	if sub.Email != "" {
		if err := v.tags.Var(sub.Email, "email"); err != nil {
			if v.strictEmail {
				return Submission{}, &ValidationError{Code: InvalidEmail, Message: msgInvalidEmail}
			}
			v.logger.Debug("leads: accepting malformed email", "kind", kind)
		}
	}

	if kind == KindBooking {
		sub.Message = bookingMessage(sub.Message, sub.PickupFrom)
	}
	return sub, nil
}

func (v *Validator) checkRequired(sub Submission) error {
	switch sub.Kind {
	case KindBooking:
		for _, field := range []string{sub.Name, sub.Phone, sub.Car, sub.PickupFrom, sub.PickupDate, sub.ReturnDate} {
			if field == "" {
				return &ValidationError{Code: MissingRequiredField, Message: msgMissingBooking}
			}
		}
	default:
		if sub.Name == "" || sub.Phone == "" {
			return &ValidationError{Code: MissingRequiredField, Message: msgMissingInquiry}
		}
	}
	return nil
}

func (v *Validator) checkDates(pickupRaw, returnRaw string) error {
	pickup, ok := v.parseDate(pickupRaw)
	if !ok {
		return &ValidationError{Code: InvalidDate, Message: msgInvalidDate}
	}
	ret, ok := v.parseDate(returnRaw)
	if !ok {
		return &ValidationError{Code: InvalidDate, Message: msgInvalidDate}
	}
	if pickup.Before(v.today()) {
		return &ValidationError{Code: PickupInPast, Message: msgPickupInPast}
	}
	if !ret.After(pickup) {
		return &ValidationError{Code: InvalidDateRange, Message: msgInvalidRange}
	}
	return nil
}

// today is midnight of the current calendar day in the business timezone,
// expressed as a UTC date so it compares cleanly with parsed form dates.
func (v *Validator) today() time.Time {
	now := v.now().In(v.location)
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
}

func (v *Validator) parseDate(raw string) (time.Time, bool) {
	for _, layout := range dateLayouts {
		t, err := time.ParseInLocation(layout, raw, v.location)
		if err != nil {
			continue
		}
		if layout == time.RFC3339 {
			t = t.In(v.location)
		}
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), true
	}
	return time.Time{}, false
}

func stripSpace(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}
