// Package calendar creates and lists Google Calendar events.
package calendar

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"
)

// DefaultCalendarID is used when no calendar is named.
const DefaultCalendarID = "primary"

// DefaultMaxResults is the number of upcoming events listed by default.
const DefaultMaxResults = 5

// NoEvents is returned when the calendar has no upcoming events.
const NoEvents = "No upcoming events found."

// ErrInvalidEvent is returned for missing or malformed event fields.
var ErrInvalidEvent = errors.New("invalid event")

// Client wraps the Calendar API service.
type Client struct {
	service    *calendar.Service
	calendarID string
	limiter    *RateLimiter
	now        func() time.Time
}

// NewClient builds a client from an authorized-user token file.
func NewClient(ctx context.Context, tokenPath, calendarID string) (*Client, error) {
	ts, err := TokenSourceFromFile(ctx, tokenPath)
	if err != nil {
		return nil, err
	}
	svc, err := calendar.NewService(ctx, option.WithTokenSource(ts))
	if err != nil {
		return nil, fmt.Errorf("create calendar service: %w", err)
	}
	return NewClientWithService(svc, calendarID), nil
}

// NewClientWithService wraps an existing service.
func NewClientWithService(svc *calendar.Service, calendarID string) *Client {
	if calendarID == "" {
		calendarID = DefaultCalendarID
	}
	return &Client{
		service:    svc,
		calendarID: calendarID,
		limiter:    NewRateLimiter(defaultRequestsPerSecond, defaultBurst),
		now:        time.Now,
	}
}

// EventInput describes an event to create. Start and End are RFC 3339 date-times.
type EventInput struct {
	Summary     string
	Start       string
	End         string
	Description string
	CalendarID  string
}

// CreateEvent inserts an event and returns "Event created: <link>".
func (c *Client) CreateEvent(ctx context.Context, in EventInput) (string, error) {
	if strings.TrimSpace(in.Summary) == "" {
		return "", fmt.Errorf("%w: summary is required", ErrInvalidEvent)
	}
	start, err := time.Parse(time.RFC3339, in.Start)
	if err != nil {
		return "", fmt.Errorf("%w: start %q is not RFC 3339", ErrInvalidEvent, in.Start)
	}
	end, err := time.Parse(time.RFC3339, in.End)
	if err != nil {
		return "", fmt.Errorf("%w: end %q is not RFC 3339", ErrInvalidEvent, in.End)
	}
	if end.Before(start) {
		return "", fmt.Errorf("%w: end is before start", ErrInvalidEvent)
	}

	event := &calendar.Event{
		Summary:     in.Summary,
		Description: in.Description,
		Start:       &calendar.EventDateTime{DateTime: in.Start},
		End:         &calendar.EventDateTime{DateTime: in.End},
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return "", err
	}
	created, err := c.service.Events.Insert(c.calendar(in.CalendarID), event).Context(ctx).Do()
	if err != nil {
		return "", c.wrap(err)
	}
	return "Event created: " + created.HtmlLink, nil
}

// ListUpcoming returns up to maxResults future events, soonest first, one line
// per event with the start and summary.
func (c *Client) ListUpcoming(ctx context.Context, calendarID string, maxResults int) (string, error) {
	if maxResults <= 0 {
		maxResults = DefaultMaxResults
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return "", err
	}
	events, err := c.service.Events.List(c.calendar(calendarID)).
		TimeMin(c.now().UTC().Format(time.RFC3339)).
		MaxResults(int64(maxResults)).
		SingleEvents(true).
		OrderBy("startTime").
		Context(ctx).
		Do()
	if err != nil {
		return "", c.wrap(err)
	}
	if len(events.Items) == 0 {
		return NoEvents, nil
	}
	lines := make([]string, 0, len(events.Items))
	for _, ev := range events.Items {
		lines = append(lines, fmt.Sprintf("%s — %s", eventStart(ev), ev.Summary))
	}
	return strings.Join(lines, "\n"), nil
}

func (c *Client) calendar(id string) string {
	if id == "" {
		return c.calendarID
	}
	return id
}

func (c *Client) wrap(err error) error {
	err = WrapError(err)
	if errors.Is(err, ErrRateLimited) {
		c.limiter.RecordRateLimitError(0)
	}
	return err
}

// eventStart returns the start date-time, or the date for all-day events.
func eventStart(ev *calendar.Event) string {
	if ev.Start == nil {
		return ""
	}
	if ev.Start.DateTime != "" {
		return ev.Start.DateTime
	}
	return ev.Start.Date
}
