// Package catalog is the agent's client for the catalog read surface.
package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/fleetsync/internal/common"
	"github.com/dmitrijs2005/fleetsync/internal/contentapi"
	"github.com/dmitrijs2005/fleetsync/internal/netx"
)

// Client fetches desired content for one device, or the broadcast set when
// DeviceID is empty.
type Client struct {
	BaseURL  string
	DeviceID string
	Timeout  time.Duration
	HTTP     *http.Client
}

func NewClient(baseURL, deviceID string, timeout time.Duration) *Client {
	return &Client{
		BaseURL:  strings.TrimRight(baseURL, "/"),
		DeviceID: deviceID,
		Timeout:  timeout,
		HTTP:     &http.Client{},
	}
}

// DesiredURL builds the desired-content URL. since is sent as a hint only.
func (c *Client) DesiredURL(since *time.Time) string {
	u := c.BaseURL + "/api/content"
	if c.DeviceID != "" {
		u = c.BaseURL + "/api/devices/" + url.PathEscape(c.DeviceID) + "/content"
	}
	if since != nil {
		u += "?since=" + url.QueryEscape(since.UTC().Format(time.RFC3339))
	}
	return u
}

// VideoURL is the catalog endpoint serving the bytes of one video.
func (c *Client) VideoURL(videoID int64) string {
	return c.BaseURL + "/api/videos/" + strconv.FormatInt(videoID, 10) + "/content"
}

// FetchDesired returns the playlists the catalog currently wants on this
// device. Any transport, status or decoding failure wraps
// common.ErrCatalogUnavailable.
func (c *Client) FetchDesired(ctx context.Context, since *time.Time) ([]contentapi.Playlist, error) {
	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	body, _, err := netx.Get(ctx, c.HTTP, c.DesiredURL(since), http.Header{"Accept": {"application/json"}})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrCatalogUnavailable, err)
	}
	defer body.Close()

	var playlists []contentapi.Playlist
	if err := json.NewDecoder(body).Decode(&playlists); err != nil {
		return nil, fmt.Errorf("%w: decode desired content: %w", common.ErrCatalogUnavailable, err)
	}
	if playlists == nil {
		playlists = []contentapi.Playlist{}
	}
	return playlists, nil
}
