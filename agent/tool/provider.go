package tool

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	contractx "github.com/tanpawarit/hotel-finder/agent/contract"
	browserbasex "github.com/tanpawarit/hotel-finder/pkg/browserbase"
)

const kayakBaseURL = "https://www.kayak.com/hotels"

var (
	errInvalidQuery = errors.New("invalid hotel query")

	// errPageUnavailable marks a page the model asked for that cannot be
	// loaded. The browser session itself was fine.
	errPageUnavailable = errors.New("page unavailable")
)

// PageFetcher loads a page through a managed browser session.
type PageFetcher interface {
	FetchPage(ctx context.Context, pageURL string) (string, error)
}

var _ contractx.CapabilityProvider = (*Provider)(nil)

// Provider serves hotel search by building Kayak result URLs locally and
// serves page loads through the managed browser.
type Provider struct {
	pages PageFetcher
}

func NewProvider(pages PageFetcher) *Provider {
	return &Provider{pages: pages}
}

func (p *Provider) SearchHotels(_ context.Context, q contractx.HotelQuery) (string, error) {
	location := strings.Join(strings.Fields(q.Location), "-")
	if location == "" {
		return "", fmt.Errorf("%w: location is empty", errInvalidQuery)
	}

	checkIn, err := time.Parse(time.DateOnly, q.CheckIn)
	if err != nil {
		return "", fmt.Errorf("%w: check_in_date must be YYYY-MM-DD", errInvalidQuery)
	}
	checkOut, err := time.Parse(time.DateOnly, q.CheckOut)
	if err != nil {
		return "", fmt.Errorf("%w: check_out_date must be YYYY-MM-DD", errInvalidQuery)
	}
	if !checkOut.After(checkIn) {
		return "", fmt.Errorf("%w: check_out_date must be after check_in_date", errInvalidQuery)
	}

	adults := q.Adults
	if adults <= 0 {
		adults = 2
	}
	rooms := q.Rooms
	if rooms <= 0 {
		rooms = 1
	}

	return fmt.Sprintf("%s/%s/%s/%s/%dadults/%drooms",
		kayakBaseURL,
		url.PathEscape(location),
		checkIn.Format(time.DateOnly),
		checkOut.Format(time.DateOnly),
		adults,
		rooms,
	), nil
}

func (p *Provider) FetchPage(ctx context.Context, pageURL string) (string, error) {
	if p.pages == nil {
		return "", errors.New("browser is not configured")
	}
	text, err := p.pages.FetchPage(ctx, pageURL)
	if errors.Is(err, browserbasex.ErrInvalidPageURL) || errors.Is(err, browserbasex.ErrNavigation) {
		return "", fmt.Errorf("%w: %v", errPageUnavailable, err)
	}
	return text, err
}
