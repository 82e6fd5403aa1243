// Package geo resolves cadastral numbers to WGS84 coordinates.
package geo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

const earthRadius = 6378137.0

// CadastralPattern matches a cadastral number such as 50:21:0120114:1234
var CadastralPattern = regexp.MustCompile(`\d{2}:\d{2}:\d{6,7}:\d+`)

// Point is a WGS84 coordinate
type Point struct {
	Lat float64
	Lon float64
}

// Client queries the cadastral map for parcel centers
type Client struct {
	config  *Config
	http    *http.Client
	limiter *rate.Limiter
	logger  *logrus.Logger
}

// NewClient creates a client
func NewClient(config *Config) *Client {
	config.Validate()
	return &Client{
		config:  config,
		http:    &http.Client{Timeout: config.RequestTimeout},
		limiter: rate.NewLimiter(rate.Every(config.RequestInterval), 1),
		logger:  config.Logger,
	}
}

// ExtractCadastralNumbers returns the distinct cadastral numbers found in text in order of appearance
func ExtractCadastralNumbers(text string) []string {
	seen := map[string]bool{}
	var out []string
	for _, m := range CadastralPattern.FindAllString(text, -1) {
		if !seen[m] {
			seen[m] = true
			out = append(out, m)
		}
	}
	return out
}

// Lookup tries each number in turn and returns the first parcel center found.
// ErrNotFound is returned only if every number was answered as unknown; any
// transport or server failure makes the result ErrUnavailable.
func (c *Client) Lookup(ctx context.Context, numbers []string) (Point, error) {
	if len(numbers) == 0 {
		return Point{}, ErrNotFound
	}

	var lastErr error
	for _, number := range numbers {
		point, err := c.lookupOne(ctx, number)
		if err == nil {
			return point, nil
		}
		if ctx.Err() != nil {
			return Point{}, ctx.Err()
		}
		if !errors.Is(err, ErrNotFound) {
			lastErr = err
		}
		c.logger.WithError(err).WithField("cadastral_number", number).Debug("Cadastral lookup failed")
	}

	if lastErr != nil {
		return Point{}, fmt.Errorf("%w: %v", ErrUnavailable, lastErr)
	}
	return Point{}, ErrNotFound
}

type featureResponse struct {
	Feature *struct {
		Center *struct {
			X float64 `json:"x"`
			Y float64 `json:"y"`
		} `json:"center"`
	} `json:"feature"`
}

func (c *Client) lookupOne(ctx context.Context, number string) (Point, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return Point{}, err
	}

	endpoint := strings.TrimRight(c.config.APIEndpoint, "/") + "/api/features/1/" + url.PathEscape(featureID(number))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return Point{}, fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return Point{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return Point{}, ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return Point{}, &APIError{StatusCode: resp.StatusCode, Number: number}
	}

	var body featureResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return Point{}, fmt.Errorf("%w: error decoding response: %v", ErrUnavailable, err)
	}
	if body.Feature == nil || body.Feature.Center == nil {
		return Point{}, ErrNotFound
	}

	point := MercatorToWGS84(body.Feature.Center.X, body.Feature.Center.Y)
	c.logger.WithFields(logrus.Fields{
		"cadastral_number": number,
		"lat":              point.Lat,
		"lon":              point.Lon,
	}).Debug("Resolved parcel center")
	return point, nil
}

// featureID strips leading zeros from every segment, the form the map uses as id
func featureID(number string) string {
	parts := strings.Split(number, ":")
	for i, p := range parts {
		if n, err := strconv.ParseUint(p, 10, 64); err == nil {
			parts[i] = strconv.FormatUint(n, 10)
		}
	}
	return strings.Join(parts, ":")
}

// MercatorToWGS84 converts spherical Web Mercator meters to degrees
func MercatorToWGS84(x, y float64) Point {
	lon := x / earthRadius * 180 / math.Pi
	lat := (2*math.Atan(math.Exp(y/earthRadius)) - math.Pi/2) * 180 / math.Pi
	return Point{Lat: lat, Lon: lon}
}
