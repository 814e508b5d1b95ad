package tablo

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"tablotogo/internal/logging"
	"tablotogo/internal/metadata"
)

func testServer(t *testing.T, handler http.Handler) (*Client, string) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	client := New(server.Client(), server.URL, logging.NewNop())
	return client, strings.TrimPrefix(server.URL, "http://")
}

func TestDiscoverParsesDevices(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"cpes": [
			{"private_ip": "192.168.1.60", "name": "Den", "board_type": "quad"},
			{"private_ip": "192.168.1.50", "name": "Attic"},
			{"name": "no address"}
		]}`)
	})
	client, _ := testServer(t, mux)

	devices, err := client.Discover(context.Background())
	if err != nil {
		t.Fatalf("discover: %v", err)
	}
	if len(devices) != 2 {
		t.Fatalf("devices = %d, want 2 (entries without private_ip dropped)", len(devices))
	}
	// Sorted by IP for stable iteration order.
	if devices[0].IP != "192.168.1.50" || devices[0].Name != "Attic" {
		t.Errorf("first device = %+v", devices[0])
	}
	if devices[1].BoardType != "quad" {
		t.Errorf("board type = %q", devices[1].BoardType)
	}
}

func TestDiscoverTransportError(t *testing.T) {
	client := New(http.DefaultClient, "http://127.0.0.1:1/nothing", logging.NewNop())
	if _, err := client.Discover(context.Background()); err == nil {
		t.Fatal("expected transport error")
	}
}

func TestRecordingsParsesDirectoryIndex(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/pvr", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body>
			<a href="../">../</a>
			<a href="130/">130/</a>
			<a href="75/">75/</a>
			<a href="logs/">logs/</a>
		</body></html>`)
	})
	client, host := testServer(t, mux)

	ids, err := client.Recordings(context.Background(), host)
	if err != nil {
		t.Fatalf("recordings: %v", err)
	}
	if len(ids) != 2 || ids[0] != 75 || ids[1] != 130 {
		t.Errorf("ids = %v, want [75 130]", ids)
	}
}

func TestMetadataReturnsRawAndDecoded(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/pvr/75/meta.txt", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"recSeries": {"jsonForClient": {"title": "Show"}}}`)
	})
	client, host := testServer(t, mux)

	raw, doc, err := client.Metadata(context.Background(), host, 75)
	if err != nil {
		t.Fatalf("metadata: %v", err)
	}
	if !strings.Contains(string(raw), "recSeries") {
		t.Errorf("raw = %q", raw)
	}
	if got := doc.Resolve("recSeries.jsonForClient.title", metadata.Null()).Text(""); got != "Show" {
		t.Errorf("decoded title = %q", got)
	}
}

func TestMetadataHTTPErrorStatus(t *testing.T) {
	client, host := testServer(t, http.NotFoundHandler())
	if _, _, err := client.Metadata(context.Background(), host, 75); err == nil {
		t.Fatal("expected error for 404")
	}
}

func TestSegmentCountTakesHighestNumber(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/pvr/75/segs", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<a href="00001.ts">00001.ts</a><a href="00002.ts">00002.ts</a><a href="00017.ts">00017.ts</a>`)
	})
	client, host := testServer(t, mux)

	count, err := client.SegmentCount(context.Background(), host, 75)
	if err != nil {
		t.Fatalf("segment count: %v", err)
	}
	if count != 17 {
		t.Errorf("count = %d, want 17", count)
	}
}

func TestFetchSegmentStreamsBody(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/pvr/75/segs/00003.ts", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "payload")
	})
	client, host := testServer(t, mux)

	var buf bytes.Buffer
	n, err := client.FetchSegment(context.Background(), host, 75, 3, &buf)
	if err != nil {
		t.Fatalf("fetch segment: %v", err)
	}
	if n != int64(len("payload")) || buf.String() != "payload" {
		t.Errorf("got %d bytes %q", n, buf.String())
	}
}

func TestWatchPlaylist(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/recordings/series/episodes/75/watch", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		fmt.Fprint(w, `{"playlist_url": "http://device/stream/pl.m3u8"}`)
	})
	mux.HandleFunc("/recordings/movies/airings/9/watch", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"playlist_url": "http://device/stream/movie.m3u8"}`)
	})
	client, host := testServer(t, mux)

	url, err := client.WatchPlaylist(context.Background(), host, "series", 75)
	if err != nil {
		t.Fatalf("watch: %v", err)
	}
	if url != "http://device/stream/pl.m3u8" {
		t.Errorf("playlist = %q", url)
	}

	url, err = client.WatchPlaylist(context.Background(), host, "movies", 9)
	if err != nil {
		t.Fatalf("watch movie: %v", err)
	}
	if url != "http://device/stream/movie.m3u8" {
		t.Errorf("movie playlist = %q", url)
	}
}

func TestWatchPlaylistMissingURL(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/recordings/series/episodes/75/watch", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"error": "tuner busy"}`)
	})
	client, host := testServer(t, mux)

	if _, err := client.WatchPlaylist(context.Background(), host, "series", 75); err == nil {
		t.Fatal("expected error when playlist_url absent")
	}
}

func TestHostForKeepsExplicitPort(t *testing.T) {
	if got := hostFor("192.168.1.50", 18080); got != "192.168.1.50:18080" {
		t.Errorf("hostFor = %q", got)
	}
	if got := hostFor("127.0.0.1:9999", 18080); got != "127.0.0.1:9999" {
		t.Errorf("hostFor with port = %q", got)
	}
}
