package calendar

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/nssukenkyu-prog/scc-reservation/internal/booking"
)

const calendarScope = "https://www.googleapis.com/auth/calendar"

// Event color ids: 11 tomato for first visits, 9 blueberry for follow-ups.
const (
	colorFirstVisit = "11"
	colorFollowUp   = "9"
)

// GoogleClient mirrors reservations into a Google calendar over the v3 REST
// API. It implements booking.Calendar and is never treated as authoritative.
type GoogleClient struct {
	calendarID string
	tokens     *tokenSource
	client     *http.Client
	baseURL    string
}

func NewGoogleClient(sa ServiceAccount, calendarID string) *GoogleClient {
	hc := &http.Client{Timeout: 10 * time.Second}
	return &GoogleClient{
		calendarID: calendarID,
		tokens:     newTokenSource(sa, []string{calendarScope}, hc),
		client:     hc,
		baseURL:    "https://www.googleapis.com/calendar/v3",
	}
}

type eventTime struct {
	DateTime string `json:"dateTime"`
}

type attendee struct {
	Email string `json:"email"`
}

type eventPayload struct {
	Summary     string     `json:"summary"`
	Description string     `json:"description"`
	Start       eventTime  `json:"start"`
	End         eventTime  `json:"end"`
	ColorID     string     `json:"colorId,omitempty"`
	Attendees   []attendee `json:"attendees,omitempty"`
}

func buildEvent(resv booking.Reservation) eventPayload {
	label := visitLabel(resv.VisitType)

	ev := eventPayload{
		Summary: fmt.Sprintf("【%s】%s 様", label, resv.Name),
		Description: fmt.Sprintf("電話番号: %s\n来院区分: %s\n予約ID: %s",
			resv.Phone, label, resv.ID),
		// Clinic local time, JST.
		Start: eventTime{DateTime: fmt.Sprintf("%sT%s:00+09:00", resv.Date, resv.StartTime)},
		End:   eventTime{DateTime: fmt.Sprintf("%sT%s:00+09:00", resv.Date, resv.EndTime)},
	}

	switch resv.VisitType {
	case booking.VisitFirst:
		ev.ColorID = colorFirstVisit
	case booking.VisitFollowUp:
		ev.ColorID = colorFollowUp
	}

	// An attendee triggers Google's own invitation mail.
	if resv.Email != "" {
		ev.Attendees = []attendee{{Email: resv.Email}}
	}

	return ev
}

func visitLabel(vt booking.VisitType) string {
	switch vt {
	case booking.VisitFirst:
		return "初診"
	case booking.VisitFollowUp:
		return "再診"
	default:
		return "予約"
	}
}

func (c *GoogleClient) CreateEvent(ctx context.Context, resv booking.Reservation) (string, error) {
	body, err := json.Marshal(buildEvent(resv))
	if err != nil {
		return "", fmt.Errorf("marshal event: %w", err)
	}

	endpoint := fmt.Sprintf("%s/calendars/%s/events?sendUpdates=all",
		c.baseURL, url.PathEscape(c.calendarID))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build event request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.do(ctx, req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return "", fmt.Errorf("create event returned %d: %s", resp.StatusCode, detail)
	}

	var created struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		return "", fmt.Errorf("decode event response: %w", err)
	}

	return created.ID, nil
}

func (c *GoogleClient) DeleteEvent(ctx context.Context, eventID string, mode booking.SendUpdates) error {
	endpoint := fmt.Sprintf("%s/calendars/%s/events/%s?sendUpdates=%s",
		c.baseURL, url.PathEscape(c.calendarID), url.PathEscape(eventID), mode)

	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, endpoint, nil)
	if err != nil {
		return fmt.Errorf("build delete request: %w", err)
	}

	resp, err := c.do(ctx, req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	// 410 means the event is already gone, which is fine.
	if resp.StatusCode >= 300 && resp.StatusCode != http.StatusGone && resp.StatusCode != http.StatusNotFound {
		return fmt.Errorf("delete event returned %d", resp.StatusCode)
	}

	return nil
}

func (c *GoogleClient) do(ctx context.Context, req *http.Request) (*http.Response, error) {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return nil, fmt.Errorf("calendar auth: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calendar request: %w", err)
	}
	return resp, nil
}
