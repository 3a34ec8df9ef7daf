package collectors

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/LexatoBR/lexato-extension-sub001/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSet(server *httptest.Server) *Set {
	s := New(nil)
	if server != nil {
		s.HTTPClient = server.Client()
	}
	return s
}

func TestPageContext(t *testing.T) {
	s := New(nil)

	page, err := s.PageContext(context.Background(), "https://www.example.com/a/b?x=1", "Example Page")
	require.NoError(t, err)
	assert.Equal(t, "https", page.Scheme)
	assert.Equal(t, "www.example.com", page.Host)
	assert.Equal(t, "/a/b", page.Path)
	assert.Equal(t, "x=1", page.Query)
	assert.Equal(t, "Example Page", page.Title)
	assert.False(t, page.CapturedAt.IsZero())
}

func TestPageContextRejectsBadInput(t *testing.T) {
	s := New(nil)

	_, err := s.PageContext(context.Background(), "ftp://example.com/file", "")
	assert.True(t, errors.Is(err, domain.ErrInvalidInput))

	_, err = s.PageContext(context.Background(), "https:///nohost", "")
	assert.True(t, errors.Is(err, domain.ErrInvalidInput))
}

func TestCaptureEnvironment(t *testing.T) {
	s := New(nil)
	s.ServiceTag = "lexatod-test"

	env, err := s.CaptureEnvironment(context.Background())
	require.NoError(t, err)
	assert.NotEmpty(t, env.OS)
	assert.NotEmpty(t, env.Arch)
	assert.NotEmpty(t, env.Runtime)
	assert.Greater(t, env.NumCPU, 0)
	assert.Equal(t, "lexatod-test", env.ServiceTag)
}

func TestHeadersRedactsSensitiveValues(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Server", "nginx/1.25")
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Header().Set("Set-Cookie", "session=secret")
		w.Header().Set("Authorization", "Bearer secret")
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	s := testSet(server)
	headers, err := s.Headers(context.Background(), server.URL)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, headers.StatusCode)
	assert.Equal(t, "nginx/1.25", headers.Server)
	assert.Equal(t, "text/html; charset=utf-8", headers.ContentType)
	assert.NotContains(t, headers.Headers, "Set-Cookie")
	assert.NotContains(t, headers.Headers, "Authorization")
	assert.Contains(t, headers.Headers, "Server")
}

func TestHeadersRecordsFinalURLAfterRedirect(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/start", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/final", http.StatusMovedPermanently)
	})
	mux.HandleFunc("/final", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	s := testSet(server)
	headers, err := s.Headers(context.Background(), server.URL+"/start")
	require.NoError(t, err)
	assert.Equal(t, server.URL+"/final", headers.FinalURL)
}

func TestDNSOverHTTPS(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("type") {
		case "1":
			w.Write([]byte(`{"Status":0,"Answer":[{"name":"example.com.","type":1,"data":"203.0.113.7"}]}`))
		case "16":
			w.Write([]byte(`{"Status":0,"Answer":[{"name":"example.com.","type":16,"data":"\"v=spf1 -all\""}]}`))
		default:
			w.Write([]byte(`{"Status":0,"Answer":[]}`))
		}
	}))
	defer server.Close()

	s := testSet(server)
	s.DoHEndpoint = server.URL

	records, err := s.DNSOverHTTPS(context.Background(), "example.com")
	require.NoError(t, err)
	assert.Equal(t, []string{"203.0.113.7"}, records.A)
	assert.Equal(t, []string{"v=spf1 -all"}, records.TXT)
	assert.False(t, records.Empty())
	assert.Contains(t, records.Provider, "doh:")
}

func TestDNSOverHTTPSEndpointDown(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	s := testSet(server)
	s.DoHEndpoint = server.URL

	_, err := s.DNSOverHTTPS(context.Background(), "example.com")
	require.Error(t, err)
}

func TestIPInfo(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/203.0.113.7", r.URL.Path)
		w.Write([]byte(`{"status":"success","query":"203.0.113.7","country":"Brazil","regionName":"Sao Paulo","city":"Sao Paulo","isp":"Example ISP","org":"Example Org","as":"AS64500 Example","lat":-23.55,"lon":-46.63}`))
	}))
	defer server.Close()

	s := testSet(server)
	s.IPInfoEndpoint = server.URL

	info, err := s.IPInfo(context.Background(), "203.0.113.7")
	require.NoError(t, err)
	assert.Equal(t, "203.0.113.7", info.IP)
	assert.Equal(t, "Brazil", info.Country)
	assert.Equal(t, "AS64500 Example", info.ASN)
	assert.InDelta(t, -23.55, info.Latitude, 0.001)
}

func TestIPInfoFailureStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"fail","message":"private range","query":"10.0.0.1"}`))
	}))
	defer server.Close()

	s := testSet(server)
	s.IPInfoEndpoint = server.URL

	_, err := s.IPInfo(context.Background(), "10.0.0.1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "private range")
}

func TestGeolocation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success":true,"ip":"203.0.113.7","latitude":-23.55,"longitude":-46.63}`))
	}))
	defer server.Close()

	s := testSet(server)
	s.GeoEndpoint = server.URL

	geo, err := s.Geolocation(context.Background(), "203.0.113.7")
	require.NoError(t, err)
	assert.Equal(t, "203.0.113.7", geo.IP)
	assert.InDelta(t, -46.63, geo.Longitude, 0.001)
	assert.NotEmpty(t, geo.Source)
}

func TestArchiveSnapshot(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "https://example.com/page", r.URL.Query().Get("url"))
		w.Write([]byte(`{"archived_snapshots":{"closest":{"available":true,"url":"https://web.archive.org/web/20260801000000/https://example.com/page","timestamp":"20260801000000"}}}`))
	}))
	defer server.Close()

	s := testSet(server)
	s.ArchiveEndpoint = server.URL

	snapshot, err := s.ArchiveSnapshot(context.Background(), "https://example.com/page")
	require.NoError(t, err)
	assert.True(t, snapshot.Available)
	assert.Equal(t, "20260801000000", snapshot.Timestamp)
}

func TestArchiveSnapshotNoneFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"archived_snapshots":{}}`))
	}))
	defer server.Close()

	s := testSet(server)
	s.ArchiveEndpoint = server.URL

	snapshot, err := s.ArchiveSnapshot(context.Background(), "https://example.com/never-archived")
	require.NoError(t, err)
	assert.False(t, snapshot.Available)
	assert.Empty(t, snapshot.SnapshotURL)
}

func TestWhoisParsingHelpers(t *testing.T) {
	assert.Equal(t, "example.com", registrableName("www.sub.example.com"))
	assert.Equal(t, "example.com", registrableName("example.com"))
	assert.Equal(t, "example.com", registrableName("a.example.com."))

	raw := "refer:        whois.verisign-grs.com\n\ndomain:       EXAMPLE.COM\n"
	assert.Equal(t, "whois.verisign-grs.com", referralServer(raw))
	assert.Equal(t, "", referralServer("domain: example.com\n"))
}

func TestRobotsTxt(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/robots.txt" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Write([]byte("User-agent: *\nDisallow: /private"))
	}))
	defer server.Close()

	s := testSet(server)
	file, err := s.RobotsTxt(context.Background(), server.URL+"/some/page?q=1")
	require.NoError(t, err)

	assert.True(t, file.Found)
	assert.Equal(t, http.StatusOK, file.StatusCode)
	assert.Equal(t, server.URL+"/robots.txt", file.URL)
	assert.Contains(t, file.Content, "Disallow: /private")
	assert.False(t, file.Truncated)
}

func TestSecurityTxtMissingIsAFinding(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	defer server.Close()

	s := testSet(server)
	file, err := s.SecurityTxt(context.Background(), server.URL)
	require.NoError(t, err)

	assert.False(t, file.Found)
	assert.Equal(t, http.StatusNotFound, file.StatusCode)
	assert.Empty(t, file.Content)
}

func TestWellKnownFileTruncation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(make([]byte, maxWellKnownBytes+512))
	}))
	defer server.Close()

	s := testSet(server)
	file, err := s.RobotsTxt(context.Background(), server.URL)
	require.NoError(t, err)

	assert.True(t, file.Truncated)
	assert.Len(t, file.Content, maxWellKnownBytes)
}
