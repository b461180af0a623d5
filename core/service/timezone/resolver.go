// Package timezone maps platform timezone labels to IANA zone identifiers.
//
// Microsoft Graph reports mailbox timezones as Windows labels
// ("W. Europe Standard Time"); the mirror stores IANA zone ids. Resolution
// walks a fallback chain and never fails: the worst case is the machine's
// local zone.
package timezone

import (
	"context"
	"encoding/xml"
	"io"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/DaveBieleveld/TrackTime365/pkg/httputil"
	"github.com/DaveBieleveld/TrackTime365/pkg/logger"
)

// DefaultCLDRURL is the authoritative Windows-to-IANA mapping table.
const DefaultCLDRURL = "https://raw.githubusercontent.com/unicode-org/cldr/master/common/supplemental/windowsZones.xml"

// worldTerritory selects the territory-independent mapping entry.
const worldTerritory = "001"

// Resolver resolves platform timezone labels. Chain, first match wins:
// hard overrides, the embedded static table, the remote CLDR table (fetched
// once per process, results memoized in a bounded cache), the local zone.
type Resolver struct {
	cache     *AliasCache
	client    *http.Client
	url       string
	localZone func() string
	log       *logger.Logger

	fetchOnce sync.Once
	cldr      map[string]string
}

// Config configures a Resolver. Zero values select defaults.
type Config struct {
	Cache     *AliasCache
	Client    *http.Client
	URL       string
	LocalZone func() string
	Logger    *logger.Logger
}

// NewResolver creates a resolver with an explicitly owned cache.
func NewResolver(cfg *Config) *Resolver {
	if cfg == nil {
		cfg = &Config{}
	}
	r := &Resolver{
		cache:     cfg.Cache,
		client:    cfg.Client,
		url:       cfg.URL,
		localZone: cfg.LocalZone,
		log:       cfg.Logger,
	}
	if r.cache == nil {
		r.cache = NewAliasCache(MinCacheCapacity)
	}
	if r.client == nil {
		r.client = httputil.CLDRClient()
	}
	if r.url == "" {
		r.url = DefaultCLDRURL
	}
	if r.localZone == nil {
		r.localZone = systemZone
	}
	if r.log == nil {
		r.log = logger.Default()
	}
	return r
}

// Resolve maps a platform timezone label to an IANA zone id. It never
// returns an error: every lookup failure degrades to the next tier.
func (r *Resolver) Resolve(ctx context.Context, label string) string {
	if zone, ok := overrides[label]; ok {
		return zone
	}
	if zone, ok := windowsToIANA[label]; ok {
		return zone
	}
	if zone, ok := r.cache.Get(label); ok {
		return zone
	}

	if zone := r.resolveRemote(ctx, label); zone != "" {
		r.cache.Put(label, zone)
		return zone
	}

	return r.localZone()
}

// Location resolves a label to a loadable time.Location. An empty label
// means UTC; labels that are already valid IANA ids are used as-is.
func (r *Resolver) Location(ctx context.Context, label string) *time.Location {
	if label == "" || strings.EqualFold(label, "UTC") {
		return time.UTC
	}
	if loc, err := time.LoadLocation(label); err == nil {
		return loc
	}

	zone := r.Resolve(ctx, label)
	if loc, err := time.LoadLocation(zone); err == nil {
		return loc
	}
	return time.Local
}

// resolveRemote consults the CLDR table, fetching it at most once per
// process lifetime. Returns "" when the label is unknown or the fetch
// failed.
func (r *Resolver) resolveRemote(ctx context.Context, label string) string {
	r.fetchOnce.Do(func() {
		table, err := r.fetchCLDRTable(ctx)
		if err != nil {
			r.log.Warn("failed to fetch CLDR timezone table: %v", err)
			return
		}
		r.cldr = table
	})

	return r.cldr[label]
}

func (r *Resolver) fetchCLDRTable(ctx context.Context) (map[string]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &httpStatusError{status: resp.StatusCode}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	var doc struct {
		Zones []struct {
			Other     string `xml:"other,attr"`
			Territory string `xml:"territory,attr"`
			Type      string `xml:"type,attr"`
		} `xml:"windowsZones>mapTimezones>mapZone"`
	}
	if err := xml.Unmarshal(body, &doc); err != nil {
		return nil, err
	}

	table := make(map[string]string, len(doc.Zones))
	for _, zone := range doc.Zones {
		if zone.Territory != worldTerritory {
			continue
		}
		// The type attribute can carry several ids; the first is canonical.
		if fields := strings.Fields(zone.Type); len(fields) > 0 {
			table[zone.Other] = fields[0]
		}
	}
	return table, nil
}

type httpStatusError struct {
	status int
}

func (e *httpStatusError) Error() string {
	return http.StatusText(e.status)
}

func systemZone() string {
	if tz := os.Getenv("TZ"); tz != "" {
		return tz
	}
	return time.Local.String()
}
