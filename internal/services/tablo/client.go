// Package tablo is the HTTP client for Tablo DVR appliances: device
// discovery, recording listings, metadata documents, media segments, and the
// playlist endpoint.
package tablo

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"tablotogo/internal/logging"
	"tablotogo/internal/metadata"
	"tablotogo/internal/services"
)

// DefaultDiscoveryURL is the vendor association server that reports the
// Tablos registered on the local network.
const DefaultDiscoveryURL = "https://api.tablotv.com/assocserver/getipinfo/"

const (
	defaultMediaPort = 18080
	defaultAPIPort   = 8885
)

// HTTPDoer describes the HTTP client used by the device client.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Device is one discovered appliance.
type Device struct {
	IP        string
	Name      string
	BoardType string
}

// Client talks to one or more Tablo appliances.
type Client struct {
	client       HTTPDoer
	discoveryURL string
	mediaPort    int
	apiPort      int
	logger       *slog.Logger
}

// New constructs a device client. A nil doer falls back to
// http.DefaultClient; an empty discovery URL uses the vendor default.
func New(doer HTTPDoer, discoveryURL string, logger *slog.Logger) *Client {
	if doer == nil {
		doer = http.DefaultClient
	}
	if strings.TrimSpace(discoveryURL) == "" {
		discoveryURL = DefaultDiscoveryURL
	}
	return &Client{
		client:       doer,
		discoveryURL: discoveryURL,
		mediaPort:    defaultMediaPort,
		apiPort:      defaultAPIPort,
		logger:       logging.NewComponentLogger(logger, "tablo"),
	}
}

// Discover queries the association server for appliances on the local
// network. Transport failures yield an error the caller degrades to an empty
// device list.
func (c *Client) Discover(ctx context.Context) ([]Device, error) {
	body, err := c.get(ctx, c.discoveryURL)
	if err != nil {
		return nil, err
	}
	doc, err := metadata.Decode(body)
	if err != nil {
		return nil, services.Wrap(services.ErrMetadata, "tablo", "discover", "undecodable association response", err)
	}
	var devices []Device
	cpes := doc.Resolve("cpes", metadata.Null())
	for _, entry := range cpes.Sequence() {
		ip := entry.Resolve("private_ip", metadata.Null()).Text("")
		if ip == "" {
			continue
		}
		devices = append(devices, Device{
			IP:        ip,
			Name:      entry.Resolve("name", metadata.Null()).Text(""),
			BoardType: entry.Resolve("board_type", metadata.Null()).Text(""),
		})
	}
	sort.Slice(devices, func(i, j int) bool { return devices[i].IP < devices[j].IP })
	return devices, nil
}

var listingHref = regexp.MustCompile(`<a href="([^"./][^"/]*)/?"`)

// Recordings fetches the device's recording directory index and returns the
// numeric recording ids it lists, ascending.
func (c *Client) Recordings(ctx context.Context, ip string) ([]int, error) {
	body, err := c.get(ctx, c.mediaURL(ip, "/pvr"))
	if err != nil {
		return nil, err
	}
	var ids []int
	for _, match := range listingHref.FindAllStringSubmatch(string(body), -1) {
		id, err := strconv.Atoi(match[1])
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids, nil
}

// Metadata fetches and decodes the raw metadata document for one recording.
func (c *Client) Metadata(ctx context.Context, ip string, id int) ([]byte, metadata.Value, error) {
	body, err := c.get(ctx, c.mediaURL(ip, fmt.Sprintf("/pvr/%d/meta.txt", id)))
	if err != nil {
		return nil, metadata.Null(), err
	}
	doc, err := metadata.Decode(body)
	if err != nil {
		return nil, metadata.Null(), services.Wrap(services.ErrMetadata, "tablo", "metadata",
			fmt.Sprintf("recording %d", id), err)
	}
	return body, doc, nil
}

var segmentName = regexp.MustCompile(`(\d+)\.ts`)

// SegmentCount asks the device how many sequential media segments exist for
// a recording by parsing its segment directory index.
func (c *Client) SegmentCount(ctx context.Context, ip string, id int) (int, error) {
	body, err := c.get(ctx, c.mediaURL(ip, fmt.Sprintf("/pvr/%d/segs", id)))
	if err != nil {
		return 0, err
	}
	highest := 0
	for _, match := range segmentName.FindAllStringSubmatch(string(body), -1) {
		n, err := strconv.Atoi(strings.TrimLeft(match[1], "0"))
		if err != nil {
			continue
		}
		if n > highest {
			highest = n
		}
	}
	return highest, nil
}

// FetchSegment streams one numbered segment into w, returning the byte count.
func (c *Client) FetchSegment(ctx context.Context, ip string, id, segment int, w io.Writer) (int64, error) {
	url := c.mediaURL(ip, fmt.Sprintf("/pvr/%d/segs/%05d.ts", id, segment))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, services.Wrap(services.ErrTransport, "tablo", "segment", "build request", err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return 0, services.Wrap(services.ErrTransport, "tablo", "segment", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return 0, services.Wrap(services.ErrTransport, "tablo", "segment",
			fmt.Sprintf("%s returned %d", url, resp.StatusCode), nil)
	}
	return io.Copy(w, resp.Body)
}

// WatchPlaylist starts device-side playback for a recording and returns the
// m3u8 playlist URL the transcoder can consume.
func (c *Client) WatchPlaylist(ctx context.Context, ip string, kind string, id int) (string, error) {
	var path string
	switch kind {
	case "movies":
		path = fmt.Sprintf("/recordings/movies/airings/%d/watch", id)
	default:
		path = fmt.Sprintf("/recordings/series/episodes/%d/watch", id)
	}
	url := fmt.Sprintf("http://%s%s", hostFor(ip, c.apiPort), path)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, nil)
	if err != nil {
		return "", services.Wrap(services.ErrTransport, "tablo", "watch", "build request", err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return "", services.Wrap(services.ErrTransport, "tablo", "watch", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", services.Wrap(services.ErrTransport, "tablo", "watch",
			fmt.Sprintf("%s returned %d", url, resp.StatusCode), nil)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", services.Wrap(services.ErrTransport, "tablo", "watch", "read response", err)
	}
	doc, err := metadata.Decode(body)
	if err != nil {
		return "", services.Wrap(services.ErrMetadata, "tablo", "watch", "undecodable playlist response", err)
	}
	playlist := doc.Resolve("playlist_url", metadata.Null()).Text("")
	if playlist == "" {
		return "", services.Wrap(services.ErrMetadata, "tablo", "watch", "response missing playlist_url", nil)
	}
	return playlist, nil
}

func (c *Client) get(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, services.Wrap(services.ErrTransport, "tablo", "get", "build request", err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, services.Wrap(services.ErrTransport, "tablo", "get", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, services.Wrap(services.ErrTransport, "tablo", "get",
			fmt.Sprintf("%s returned %d", url, resp.StatusCode), nil)
	}
	return io.ReadAll(resp.Body)
}

func (c *Client) mediaURL(ip, path string) string {
	return fmt.Sprintf("http://%s%s", hostFor(ip, c.mediaPort), path)
}

// hostFor treats an address that already carries a port as authoritative;
// bare IPs get the standard device port.
func hostFor(ip string, port int) string {
	if strings.Contains(ip, ":") {
		return ip
	}
	return fmt.Sprintf("%s:%d", ip, port)
}
