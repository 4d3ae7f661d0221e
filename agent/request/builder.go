package request

import (
	"fmt"
	"strings"
	"time"

	contractx "github.com/tanpawarit/hotel-finder/agent/contract"
)

// LocationPlaceholder is the hint text shown in the empty location field.
const LocationPlaceholder = "e.g., New York, Paris, Tokyo"

// placeholders are hint texts that are never a location. The second one is
// the older field hint, still rejected for clients that submit it.
var placeholders = []string{LocationPlaceholder, "Enter city, area, or landmark"}

const (
	MinAdults = 1
	MaxAdults = 10
)

const dayLayout = "January 02"

// Form is the raw form input. Dates the shell could not parse arrive as the
// zero time.
type Form struct {
	Location string
	CheckIn  time.Time
	CheckOut time.Time
	Adults   int
}

type Builder struct {
	creds *contractx.Credentials
	now   func() time.Time
}

func NewBuilder(creds *contractx.Credentials) *Builder {
	return &Builder{creds: creds, now: time.Now}
}

// Build validates the form and renders the instruction string. Checks run in
// a fixed order and the first failure wins.
func (b *Builder) Build(f Form) (contractx.SearchRequest, contractx.RenderedRequest, error) {
	if !b.creds.HasBrowserbase() {
		return contractx.SearchRequest{}, contractx.RenderedRequest{}, contractx.ErrMissingCredential
	}

	location := strings.TrimSpace(f.Location)
	if location == "" || isPlaceholder(location) {
		return contractx.SearchRequest{}, contractx.RenderedRequest{}, contractx.ErrInvalidLocation
	}

	checkIn, checkOut := dateOf(f.CheckIn), dateOf(f.CheckOut)
	if f.CheckIn.IsZero() || f.CheckOut.IsZero() || !checkOut.After(checkIn) {
		return contractx.SearchRequest{}, contractx.RenderedRequest{}, contractx.ErrInvalidDateRange
	}

	if f.Adults < MinAdults || f.Adults > MaxAdults {
		return contractx.SearchRequest{}, contractx.RenderedRequest{}, contractx.ErrInvalidPartySize
	}

	req := contractx.SearchRequest{
		Location: location,
		CheckIn:  checkIn,
		CheckOut: checkOut,
		Adults:   f.Adults,
	}
	return req, Render(req, b.now()), nil
}

// Render formats a validated request. currentYear is taken from now, not
// from the travel dates.
func Render(req contractx.SearchRequest, now time.Time) contractx.RenderedRequest {
	return contractx.RenderedRequest{
		Text: fmt.Sprintf("hotels in %s from %s to %s for %d adults",
			req.Location,
			req.CheckIn.Format(dayLayout),
			req.CheckOut.Format(dayLayout),
			req.Adults,
		),
		CurrentYear: now.Year(),
	}
}

func dateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func isPlaceholder(location string) bool {
	for _, p := range placeholders {
		if location == p {
			return true
		}
	}
	return false
}
