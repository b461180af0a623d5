package graph

import (
	"context"
	"fmt"
	"net/url"

	"github.com/DaveBieleveld/TrackTime365/core/domain"
	"github.com/DaveBieleveld/TrackTime365/core/port/out"
)

// eventSelect lists the only event fields the mirror consumes.
const eventSelect = "id,subject,body,start,end,categories,lastModifiedDateTime"

// CalendarAdapter implements out.CalendarProviderPort on Microsoft Graph.
type CalendarAdapter struct {
	client *Client
}

var _ out.CalendarProviderPort = (*CalendarAdapter)(nil)

// NewCalendarAdapter creates a calendar adapter over an existing client.
func NewCalendarAdapter(client *Client) *CalendarAdapter {
	return &CalendarAdapter{client: client}
}

// FetchWindow returns all of the mailbox's events inside the window via the
// calendarView endpoint, which expands recurring series into occurrences.
// Pagination is followed until the cursor ends or a page comes back empty;
// any page failure fails the whole fetch.
func (a *CalendarAdapter) FetchWindow(ctx context.Context, mail string, window domain.Window, timeZone string) ([]out.RawEvent, error) {
	endpoint := "/users/" + url.PathEscape(mail) + "/calendarView?" + url.Values{
		"startDateTime": {window.Start.UTC().Format(graphTimeFormat)},
		"endDateTime":   {window.End.UTC().Format(graphTimeFormat)},
		"$select":       {eventSelect},
		"$top":          {"50"},
	}.Encode()

	prefer := ""
	if timeZone != "" {
		prefer = fmt.Sprintf("outlook.timezone=%q", timeZone)
	}

	var events []out.RawEvent
	for endpoint != "" {
		var page struct {
			Value    []out.RawEvent `json:"value"`
			NextLink string         `json:"@odata.nextLink"`
		}
		if err := a.client.getJSON(ctx, endpoint, prefer, &page); err != nil {
			return nil, fmt.Errorf("failed to fetch calendar window for %s: %w", mail, err)
		}
		// An empty page ends the fetch even when a cursor is present,
		// so a misbehaving cursor chain cannot loop forever.
		if len(page.Value) == 0 {
			break
		}
		events = append(events, page.Value...)
		endpoint = page.NextLink
	}

	return events, nil
}
