package caldav

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/emersion/go-ical"
	"github.com/emersion/go-webdav/caldav"
	"github.com/google/uuid"

	"github.com/tazhate/familycal/internal/domain"
	"github.com/tazhate/familycal/internal/ics"
)

// Client pushes calendar page events to a CalDAV collection
type Client struct {
	baseURL    string
	username   string
	password   string
	calendarID string // collection path events are written to

	mu     sync.Mutex
	client *caldav.Client
}

// NewClient creates a new CalDAV client
func NewClient(baseURL, username, password, calendarID string) *Client {
	return &Client{
		baseURL:    baseURL,
		username:   username,
		password:   password,
		calendarID: calendarID,
	}
}

// IsConfigured returns true if the client has a server and credentials
func (c *Client) IsConfigured() bool {
	return c != nil && c.baseURL != "" && c.username != "" && c.password != ""
}

// CanPush returns true if events can be written (a target calendar is set)
func (c *Client) CanPush() bool {
	return c.IsConfigured() && c.calendarID != ""
}

// connect establishes connection to CalDAV server
func (c *Client) connect() (*caldav.Client, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.client != nil {
		return c.client, nil
	}

	httpClient := &http.Client{
		Transport: &basicAuthTransport{
			username: c.username,
			password: c.password,
		},
		Timeout: 30 * time.Second,
	}

	client, err := caldav.NewClient(httpClient, c.baseURL)
	if err != nil {
		return nil, fmt.Errorf("connect to CalDAV: %w", err)
	}

	c.client = client
	return client, nil
}

// basicAuthTransport adds Basic Auth to HTTP requests
type basicAuthTransport struct {
	username string
	password string
}

func (t *basicAuthTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.SetBasicAuth(t.username, t.password)
	return http.DefaultTransport.RoundTrip(req)
}

// DiscoverCalendars returns all calendars for the user
func (c *Client) DiscoverCalendars(ctx context.Context) ([]Calendar, error) {
	client, err := c.connect()
	if err != nil {
		return nil, err
	}

	principal, err := client.FindCurrentUserPrincipal(ctx)
	if err != nil {
		return nil, fmt.Errorf("find principal: %w", err)
	}

	homeSet, err := client.FindCalendarHomeSet(ctx, principal)
	if err != nil {
		return nil, fmt.Errorf("find home set: %w", err)
	}

	cals, err := client.FindCalendars(ctx, homeSet)
	if err != nil {
		return nil, fmt.Errorf("find calendars: %w", err)
	}

	result := make([]Calendar, 0, len(cals))
	for _, cal := range cals {
		result = append(result, Calendar{
			ID:          cal.Path,
			DisplayName: cal.Name,
			Description: cal.Description,
			URL:         cal.Path,
		})
	}

	return result, nil
}

// PutEvent creates or replaces the event on the server and returns the UID
// it was stored under. A new UID is generated on first push.
func (c *Client) PutEvent(ctx context.Context, event domain.Event, loc *time.Location) (string, error) {
	if !c.CanPush() {
		return "", fmt.Errorf("calendar path not specified")
	}

	client, err := c.connect()
	if err != nil {
		return "", err
	}

	uid := event.CalDAVUID
	if uid == "" {
		uid = generateUID()
	}

	vevent, err := ics.NewEvent(event, uid, loc)
	if err != nil {
		return "", err
	}

	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, ics.ProductID)
	cal.Children = append(cal.Children, vevent.Component)

	// PUT replaces, so create and update share this path
	if _, err := client.PutCalendarObject(ctx, c.objectPath(uid), cal); err != nil {
		return "", fmt.Errorf("put event: %w", err)
	}

	return uid, nil
}

// DeleteEvent deletes an event by UID
func (c *Client) DeleteEvent(ctx context.Context, uid string) error {
	if !c.CanPush() {
		return fmt.Errorf("calendar path not specified")
	}

	client, err := c.connect()
	if err != nil {
		return err
	}

	if err := client.RemoveAll(ctx, c.objectPath(uid)); err != nil {
		return fmt.Errorf("delete event: %w", err)
	}

	return nil
}

func (c *Client) objectPath(uid string) string {
	path := c.calendarID
	if !strings.HasSuffix(path, "/") {
		path += "/"
	}
	return path + uid + ".ics"
}

// generateUID generates a unique event ID
func generateUID() string {
	return uuid.NewString() + "@familycal"
}
