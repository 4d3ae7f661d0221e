package web

import (
	"errors"

	contractx "github.com/tanpawarit/hotel-finder/agent/contract"
)

const failureNotice = "An error occurred during the search"

var troubleshootingHints = []string{
	"1. Make sure LLM_API_KEY is set and the LLM provider is reachable",
	"2. Make sure LLM_MODEL names a model your provider serves",
	"3. Check your Browserbase API key is valid",
	"4. Try a different location or date range",
}

// validationMessage returns the user-facing text for a Request Builder
// failure, or false if err is not one.
func validationMessage(err error) (string, bool) {
	switch {
	case errors.Is(err, contractx.ErrMissingCredential):
		return "Please set your Browserbase API key (BROWSERBASE_API_KEY) first!", true
	case errors.Is(err, contractx.ErrInvalidLocation):
		return "Please enter a valid location!", true
	case errors.Is(err, contractx.ErrInvalidDateRange):
		return "Check-out date must be after check-in date!", true
	case errors.Is(err, contractx.ErrInvalidPartySize):
		return "Number of adults must be between 1 and 10!", true
	default:
		return "", false
	}
}

func validationCode(err error) string {
	switch {
	case errors.Is(err, contractx.ErrMissingCredential):
		return "missing_credential"
	case errors.Is(err, contractx.ErrInvalidLocation):
		return "invalid_location"
	case errors.Is(err, contractx.ErrInvalidDateRange):
		return "invalid_date_range"
	case errors.Is(err, contractx.ErrInvalidPartySize):
		return "invalid_party_size"
	default:
		return "invalid_request"
	}
}
