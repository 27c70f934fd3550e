package domain

import (
	"encoding/json"
	"strings"
	"time"

	dErrors "taskportal/pkg/domain-errors"
)

// Layouts for calendar dates. Forms produce InputLayout (the HTML date input
// format); the project endpoints expect WireLayout.
const (
	InputLayout = "2006-01-02"
	WireLayout  = "02-01-2006"
)

// Date is a calendar date without a time component. The zero Date means unset.
type Date struct {
	t time.Time
}

// NewDate builds a Date from calendar fields.
func NewDate(year int, month time.Month, day int) Date {
	return Date{t: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// ParseInputDate parses a yyyy-mm-dd string.
func ParseInputDate(s string) (Date, error) {
	t, err := time.Parse(InputLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, dErrors.Wrap(err, dErrors.CodeInvalidInput, "date must be yyyy-mm-dd")
	}
	return Date{t: t}, nil
}

// ParseWireDate parses a dd-mm-yyyy string.
func ParseWireDate(s string) (Date, error) {
	t, err := time.Parse(WireLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, dErrors.Wrap(err, dErrors.CodeInvalidInput, "date must be dd-mm-yyyy")
	}
	return Date{t: t}, nil
}

// ReformatInputDate converts a form date (yyyy-mm-dd) to the wire form (dd-mm-yyyy).
// An empty input yields an empty result.
func ReformatInputDate(s string) (string, error) {
	if strings.TrimSpace(s) == "" {
		return "", nil
	}
	d, err := ParseInputDate(s)
	if err != nil {
		return "", err
	}
	return d.Wire(), nil
}

func (d Date) IsZero() bool { return d.t.IsZero() }

// Time returns midnight UTC of the date.
func (d Date) Time() time.Time { return d.t }

// Input formats the date as yyyy-mm-dd, or "" when unset.
func (d Date) Input() string {
	if d.IsZero() {
		return ""
	}
	return d.t.Format(InputLayout)
}

// Wire formats the date as dd-mm-yyyy, or "" when unset.
func (d Date) Wire() string {
	if d.IsZero() {
		return ""
	}
	return d.t.Format(WireLayout)
}

func (d Date) String() string { return d.Input() }

// UnmarshalJSON accepts the wire form, the input form and full ISO timestamps;
// the backend returns the latter for stored dates.
func (d *Date) UnmarshalJSON(b []byte) error {
	*d = Date{}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		if strings.TrimSpace(string(b)) == "null" {
			return nil
		}
		return err
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	for _, layout := range []string{WireLayout, InputLayout} {
		if t, err := time.Parse(layout, s); err == nil {
			d.t = t
			return nil
		}
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInvalidInput, "unrecognised date "+s)
	}
	y, m, day := t.UTC().Date()
	*d = NewDate(y, m, day)
	return nil
}

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(d.Input())
}
