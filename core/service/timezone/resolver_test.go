package timezone

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

const windowsZonesXML = `<?xml version="1.0" encoding="UTF-8"?>
<supplementalData>
  <windowsZones>
    <mapTimezones>
      <mapZone other="Kamchatka Standard Time" territory="001" type="Asia/Kamchatka"/>
      <mapZone other="Kamchatka Standard Time" territory="RU" type="Asia/Kamchatka Asia/Anadyr"/>
      <mapZone other="Tokyo Standard Time" territory="001" type="Asia/NotTokyo"/>
      <mapZone other="Multi Zone Time" territory="001" type="America/Chicago America/Matamoros"/>
    </mapTimezones>
  </windowsZones>
</supplementalData>`

func newTestResolver(t *testing.T, handler http.HandlerFunc) (*Resolver, *atomic.Int32) {
	t.Helper()
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		handler(w, r)
	}))
	t.Cleanup(srv.Close)

	r := NewResolver(&Config{
		Client:    srv.Client(),
		URL:       srv.URL,
		LocalZone: func() string { return "Local/Fallback" },
	})
	return r, &hits
}

func serveZones(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/xml")
	w.Write([]byte(windowsZonesXML))
}

func TestResolveOverrideWinsOverEverything(t *testing.T) {
	r, hits := newTestResolver(t, serveZones)

	got := r.Resolve(context.Background(), "W. Europe Standard Time")
	if got != "Europe/Amsterdam" {
		t.Fatalf("expected Europe/Amsterdam, got %q", got)
	}
	if hits.Load() != 0 {
		t.Fatalf("override resolution must not hit the network, saw %d requests", hits.Load())
	}
}

func TestResolveStaticTableBeforeRemote(t *testing.T) {
	// The served table deliberately maps Tokyo to a bogus zone; the static
	// table must win without a fetch.
	r, hits := newTestResolver(t, serveZones)

	got := r.Resolve(context.Background(), "Tokyo Standard Time")
	if got != "Asia/Tokyo" {
		t.Fatalf("expected Asia/Tokyo, got %q", got)
	}
	if hits.Load() != 0 {
		t.Fatalf("static resolution must not hit the network, saw %d requests", hits.Load())
	}
}

func TestResolveRemoteFetchedOnceAndCached(t *testing.T) {
	r, hits := newTestResolver(t, serveZones)
	ctx := context.Background()

	if got := r.Resolve(ctx, "Kamchatka Standard Time"); got != "Asia/Kamchatka" {
		t.Fatalf("expected Asia/Kamchatka, got %q", got)
	}
	if got := r.Resolve(ctx, "Kamchatka Standard Time"); got != "Asia/Kamchatka" {
		t.Fatalf("expected Asia/Kamchatka on second lookup, got %q", got)
	}
	if got := r.Resolve(ctx, "Multi Zone Time"); got != "America/Chicago" {
		t.Fatalf("expected first id of multi-zone entry, got %q", got)
	}
	if hits.Load() != 1 {
		t.Fatalf("expected exactly one table fetch, saw %d", hits.Load())
	}
}

func TestResolveFallsBackToLocalZone(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"server error", func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}},
		{"malformed xml", func(w http.ResponseWriter, _ *http.Request) {
			w.Write([]byte("<supplementalData"))
		}},
		{"label absent from table", serveZones},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, _ := newTestResolver(t, tt.handler)
			got := r.Resolve(context.Background(), "No Such Standard Time")
			if got != "Local/Fallback" {
				t.Fatalf("expected local fallback, got %q", got)
			}
		})
	}
}

func TestLocation(t *testing.T) {
	r, _ := newTestResolver(t, serveZones)
	ctx := context.Background()

	if loc := r.Location(ctx, ""); loc != time.UTC {
		t.Fatalf("empty label should resolve to UTC, got %v", loc)
	}
	if loc := r.Location(ctx, "utc"); loc != time.UTC {
		t.Fatalf("utc label should resolve to UTC, got %v", loc)
	}
	if loc := r.Location(ctx, "Europe/Amsterdam"); loc.String() != "Europe/Amsterdam" {
		t.Fatalf("IANA label should load directly, got %v", loc)
	}
	if loc := r.Location(ctx, "Romance Standard Time"); loc.String() != "Europe/Paris" {
		t.Fatalf("Windows label should load via the static table, got %v", loc)
	}
	if loc := r.Location(ctx, "Nonsense Zone"); loc != time.Local {
		t.Fatalf("unresolvable label should degrade to the local zone, got %v", loc)
	}
}
