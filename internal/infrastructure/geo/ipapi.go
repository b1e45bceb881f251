package geo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/hilthontt/civicreport/internal/domain"
)

const DefaultIPAPIURL = "https://ipapi.co"

var ErrPrivateAddress = errors.New("address is not publicly routable")

// IPAPI resolves a coarse position from the client address. It is only
// used when the device sent no coordinates.
type IPAPI struct {
	client  *http.Client
	baseURL string
}

func NewIPAPI(baseURL string, client *http.Client) *IPAPI {
	if baseURL == "" {
		baseURL = DefaultIPAPIURL
	}
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &IPAPI{client: client, baseURL: strings.TrimRight(baseURL, "/")}
}

type ipapiResponse struct {
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
	Error     bool     `json:"error"`
	Reason    string   `json:"reason"`
}

func (g *IPAPI) Locate(ctx context.Context, clientIP string) (*domain.Location, error) {
	ip := net.ParseIP(strings.TrimSpace(clientIP))
	if ip == nil {
		return nil, fmt.Errorf("invalid client address %q", clientIP)
	}
	if ip.IsLoopback() || ip.IsPrivate() || ip.IsUnspecified() || ip.IsLinkLocalUnicast() {
		return nil, ErrPrivateAddress
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s/%s/json/", g.baseURL, ip.String()), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("geolocation lookup: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	var parsed ipapiResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("parsing geolocation response (status %d): %w", resp.StatusCode, err)
	}
	if parsed.Error {
		return nil, fmt.Errorf("geolocation error: %s", parsed.Reason)
	}
	if parsed.Latitude == nil || parsed.Longitude == nil {
		return nil, fmt.Errorf("geolocation response has no coordinates")
	}

	loc := &domain.Location{Latitude: *parsed.Latitude, Longitude: *parsed.Longitude}
	if !loc.Valid() {
		return nil, fmt.Errorf("geolocation returned out of range coordinates")
	}
	return loc, nil
}
