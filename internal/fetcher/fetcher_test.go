package fetcher_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"regwatch/internal/config"
	"regwatch/internal/fetcher"

	"github.com/stretchr/testify/require"
)

const feedXML = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
	<channel>
		<title>FDA News Releases</title>
		<item>
			<title>FDA clears &lt;b&gt;novel&lt;/b&gt; cardiac device</title>
			<description>&lt;p&gt;The agency issued a &lt;script&gt;alert(1)&lt;/script&gt;clearance decision.&lt;/p&gt;</description>
			<pubDate>Wed, 03 May 2023 15:04:05 +0000</pubDate>
			<link>https://www.fda.gov/news/1</link>
		</item>
		<item>
			<title>Recall notice</title>
			<description>Class I recall</description>
			<pubDate>Tue, 02 May 2023 10:00:00 +0000</pubDate>
			<link>https://www.fda.gov/news/2</link>
		</item>
	</channel>
</rss>`

func newFeedServer(t *testing.T, handler http.HandlerFunc) (*httptest.Server, *fetcher.Fetcher) {
	t.Helper()
	server := httptest.NewTLSServer(handler)
	t.Cleanup(server.Close)

	f := fetcher.New(config.Source{
		URL:      server.URL,
		Name:     "FDA News",
		Category: "Regulation",
	})
	f.Client = server.Client()
	return server, f
}

func TestFetch_ValidFeed(t *testing.T) {
	_, f := newFeedServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(feedXML))
	})

	items := f.Fetch(context.Background())
	require.Len(t, items, 2)

	first := items[0]
	require.Equal(t, "FDA clears novel cardiac device", first.Title)
	require.Equal(t, "https://www.fda.gov/news/1", first.Link)
	require.Equal(t, "FDA News", first.Source)
	require.Equal(t, "Regulation", first.Category)
	require.Equal(t, "The agency issued a clearance decision.", first.ContentSnippet)

	parsed, err := time.Parse(time.RFC3339, first.PubDate)
	require.NoError(t, err)
	require.Equal(t, 2023, parsed.Year())
}

func TestFetch_SanitizationInvariant(t *testing.T) {
	_, f := newFeedServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(feedXML))
	})

	for _, item := range f.Fetch(context.Background()) {
		require.NotContains(t, item.Title, "<")
		require.NotContains(t, item.Title, ">")
		require.NotContains(t, item.ContentSnippet, "<")
		require.NotContains(t, item.ContentSnippet, ">")
		require.LessOrEqual(t, len([]rune(item.ContentSnippet)), 200)
	}
}

func TestFetch_CapsEntriesPerSource(t *testing.T) {
	var sb strings.Builder
	sb.WriteString(`<?xml version="1.0"?><rss version="2.0"><channel><title>Big Feed</title>`)
	for i := 0; i < 25; i++ {
		fmt.Fprintf(&sb, `<item><title>Item %d</title><link>https://example.com/%d</link><pubDate>Wed, 03 May 2023 15:04:05 +0000</pubDate></item>`, i, i)
	}
	sb.WriteString(`</channel></rss>`)

	_, f := newFeedServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(sb.String()))
	})

	items := f.Fetch(context.Background())
	require.Len(t, items, 10)
}

func TestFetch_NonSuccessStatus(t *testing.T) {
	_, f := newFeedServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	require.Empty(t, f.Fetch(context.Background()))
}

func TestFetch_UnparseableBody(t *testing.T) {
	_, f := newFeedServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("this is not xml"))
	})

	require.Empty(t, f.Fetch(context.Background()))
}

func TestFetch_BlocksInsecureScheme(t *testing.T) {
	var hits atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Write([]byte(feedXML))
	}))
	defer server.Close()

	// Plain httptest server URLs are http://, which must be rejected
	// before any network call is issued.
	f := fetcher.New(config.Source{URL: server.URL, Name: "Insecure"})

	require.Empty(t, f.Fetch(context.Background()))
	require.Zero(t, hits.Load())
}

func TestFetch_MissingLinkAndDate(t *testing.T) {
	const sparse = `<?xml version="1.0"?><rss version="2.0"><channel><title>Sparse</title>
		<item><title>No link, no date</title></item>
	</channel></rss>`

	_, f := newFeedServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(sparse))
	})

	items := f.Fetch(context.Background())
	require.Len(t, items, 1)
	require.Equal(t, "#", items[0].Link)

	parsed, err := time.Parse(time.RFC3339, items[0].PubDate)
	require.NoError(t, err)
	require.WithinDuration(t, time.Now(), parsed, time.Minute)
}

func TestFetch_SetsCrawlerHeaders(t *testing.T) {
	var ua, accept string
	_, f := newFeedServer(t, func(w http.ResponseWriter, r *http.Request) {
		ua = r.Header.Get("User-Agent")
		accept = r.Header.Get("Accept")
		w.Write([]byte(feedXML))
	})

	f.Fetch(context.Background())
	require.Contains(t, ua, "regwatch")
	require.Contains(t, accept, "application/rss+xml")
}
