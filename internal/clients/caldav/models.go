package caldav

// Calendar represents a calendar collection on the CalDAV server
type Calendar struct {
	ID          string // Calendar path
	DisplayName string
	Description string
	URL         string
}
