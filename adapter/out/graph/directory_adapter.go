package graph

import (
	"context"
	"fmt"
	"net/url"

	"github.com/DaveBieleveld/TrackTime365/core/domain"
	"github.com/DaveBieleveld/TrackTime365/core/port/out"
)

// DirectoryAdapter implements out.DirectoryPort on Microsoft Graph.
type DirectoryAdapter struct {
	client *Client
}

var _ out.DirectoryPort = (*DirectoryAdapter)(nil)

// NewDirectoryAdapter creates a directory adapter over an existing client.
func NewDirectoryAdapter(client *Client) *DirectoryAdapter {
	return &DirectoryAdapter{client: client}
}

// Authenticate acquires an application token.
func (a *DirectoryAdapter) Authenticate(ctx context.Context) error {
	return a.client.Authenticate(ctx)
}

// ListMailboxes returns every directory user that has a mail address,
// following pagination to the end.
func (a *DirectoryAdapter) ListMailboxes(ctx context.Context) ([]domain.Mailbox, error) {
	endpoint := "/users?" + url.Values{
		"$select": {"id,displayName,mail"},
		"$top":    {"100"},
	}.Encode()

	var mailboxes []domain.Mailbox
	for endpoint != "" {
		var page struct {
			Value []struct {
				ID          string `json:"id"`
				DisplayName string `json:"displayName"`
				Mail        string `json:"mail"`
			} `json:"value"`
			NextLink string `json:"@odata.nextLink"`
		}
		if err := a.client.getJSON(ctx, endpoint, "", &page); err != nil {
			return nil, fmt.Errorf("failed to list users: %w", err)
		}

		for _, user := range page.Value {
			// Users without a mailbox have no mail address.
			if user.Mail == "" {
				continue
			}
			mailboxes = append(mailboxes, domain.Mailbox{
				ID:          user.ID,
				DisplayName: user.DisplayName,
				Mail:        user.Mail,
			})
		}
		endpoint = page.NextLink
	}

	return mailboxes, nil
}

// MailboxTimezone returns the mailbox's configured platform timezone label.
func (a *DirectoryAdapter) MailboxTimezone(ctx context.Context, mail string) (string, error) {
	endpoint := "/users/" + url.PathEscape(mail) + "/mailboxSettings?$select=timeZone"

	var settings struct {
		TimeZone string `json:"timeZone"`
	}
	if err := a.client.getJSON(ctx, endpoint, "", &settings); err != nil {
		return "", fmt.Errorf("failed to get mailbox settings for %s: %w", mail, err)
	}
	return settings.TimeZone, nil
}
