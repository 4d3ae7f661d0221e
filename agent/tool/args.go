package tool

import (
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"

	contractx "github.com/tanpawarit/hotel-finder/agent/contract"
)

func hotelQueryFromArgs(args map[string]any) (contractx.HotelQuery, error) {
	location, err := stringArg(args, "location", true)
	if err != nil {
		return contractx.HotelQuery{}, err
	}
	checkIn, err := stringArg(args, "check_in_date", true)
	if err != nil {
		return contractx.HotelQuery{}, err
	}
	checkOut, err := stringArg(args, "check_out_date", true)
	if err != nil {
		return contractx.HotelQuery{}, err
	}
	adults, err := intArg(args, "num_adults", 2)
	if err != nil {
		return contractx.HotelQuery{}, err
	}
	rooms, err := intArg(args, "num_rooms", 1)
	if err != nil {
		return contractx.HotelQuery{}, err
	}

	return contractx.HotelQuery{
		Location: location,
		CheckIn:  checkIn,
		CheckOut: checkOut,
		Adults:   adults,
		Rooms:    rooms,
	}, nil
}

func stringArg(args map[string]any, key string, required bool) (string, error) {
	raw, ok := args[key]
	if !ok || raw == nil {
		if required {
			return "", fmt.Errorf("%s is required", key)
		}
		return "", nil
	}
	s, ok := raw.(string)
	if !ok {
		return "", fmt.Errorf("%s must be a string", key)
	}
	s = strings.TrimSpace(s)
	if required && s == "" {
		return "", fmt.Errorf("%s is required", key)
	}
	return s, nil
}

// pageURLArg reads an absolute http(s) URL. A URL without a scheme that
// starts with a host ("www.kayak.com/hotels/x", "kayak.com") gets https.
func pageURLArg(args map[string]any, key string) (string, error) {
	raw, err := stringArg(args, key, true)
	if err != nil {
		return "", err
	}
	if !strings.Contains(raw, "://") && !strings.HasPrefix(raw, "/") {
		raw = "https://" + raw
	}

	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || !strings.Contains(u.Hostname(), ".") {
		return "", fmt.Errorf("%s must be an absolute http(s) url, got %q", key, args[key])
	}
	return u.String(), nil
}

// intArg accepts JSON numbers and numeric strings; models produce both.
func intArg(args map[string]any, key string, def int) (int, error) {
	raw, ok := args[key]
	if !ok || raw == nil {
		return def, nil
	}
	switch v := raw.(type) {
	case float64:
		if v != math.Trunc(v) {
			return 0, fmt.Errorf("%s must be an integer", key)
		}
		return int(v), nil
	case int:
		return v, nil
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return 0, fmt.Errorf("%s must be an integer", key)
		}
		return n, nil
	default:
		return 0, fmt.Errorf("%s must be an integer", key)
	}
}
