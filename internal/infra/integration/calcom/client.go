package calcom

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/greenlineai/webhook-reconciler/internal/usecase"
)

const DefaultBaseURL = "https://api.cal.com/v1"

type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
	}
}

// CreateBooking books a slot with the tenant's own API key.
func (c *Client) CreateBooking(ctx context.Context, in usecase.CalendarBookingInput) (*usecase.CalendarBooking, error) {
	payload := createBookingRequest{
		EventTypeID: in.EventTypeID,
		Start:       in.Start,
		Responses: bookingResponses{
			Name:  in.Name,
			Email: in.Email,
			Phone: in.Phone,
			Notes: in.Notes,
		},
		TimeZone: in.TimeZone,
		Language: "en",
		Metadata: in.Metadata,
	}
	if payload.TimeZone == "" {
		payload.TimeZone = "America/New_York"
	}
	if payload.Metadata == nil {
		payload.Metadata = map[string]string{}
	}

	jsonBody, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encoding booking: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint("/bookings", in.APIKey), bytes.NewReader(jsonBody))
	if err != nil {
		return nil, err
	}
	c.setHeaders(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("cal.com request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, apiError(resp)
	}

	var booking bookingResponse
	if err := json.NewDecoder(resp.Body).Decode(&booking); err != nil {
		return nil, fmt.Errorf("decoding cal.com booking: %w", err)
	}

	return &usecase.CalendarBooking{
		ID:        booking.ID,
		UID:       booking.UID,
		StartTime: booking.StartTime,
	}, nil
}

// endpoint appends the API key as Cal.com v1 expects it, in the query string.
func (c *Client) endpoint(path, apiKey string) string {
	q := url.Values{}
	q.Set("apiKey", apiKey)
	return c.baseURL + path + "?" + q.Encode()
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
}

func apiError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	msg := string(body)
	var e errorResponse
	if json.Unmarshal(body, &e) == nil && e.Message != "" {
		msg = e.Message
	}
	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}
	return fmt.Errorf("cal.com API error (status %d): %s", resp.StatusCode, msg)
}
