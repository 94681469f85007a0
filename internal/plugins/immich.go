package plugins

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/disintegration/imaging"
	"golang.org/x/time/rate"
)

// httpFetchTimeout covers a full-size photo download on a slow uplink.
const httpFetchTimeout = 40 * time.Second

// immichClient talks to an Immich photo server.
type immichClient struct {
	baseURL string
	key     string
	http    *http.Client
	// Immich instances often run on the same small box as the frame;
	// keep the request rate polite.
	limiter *rate.Limiter
}

func newImmichClient(baseURL, key string) *immichClient {
	return &immichClient{
		baseURL: baseURL,
		key:     key,
		http:    &http.Client{Timeout: httpFetchTimeout},
		limiter: rate.NewLimiter(rate.Limit(5), 10),
	}
}

type immichAlbum struct {
	ID        string `json:"id"`
	AlbumName string `json:"albumName"`
}

type immichAsset struct {
	ID string `json:"id"`
}

func (c *immichClient) do(ctx context.Context, method, path string, body, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	var rdr io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		rdr = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rdr)
	if err != nil {
		return err
	}
	req.Header.Set("x-api-key", c.key)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("immich: %s %s: status %d", method, path, resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// albumID resolves an album name to its ID.
func (c *immichClient) albumID(ctx context.Context, album string) (string, error) {
	var albums []immichAlbum
	if err := c.do(ctx, http.MethodGet, "/api/albums", nil, &albums); err != nil {
		return "", fmt.Errorf("immich: list albums: %w", err)
	}
	for _, a := range albums {
		if a.AlbumName == album {
			return a.ID, nil
		}
	}
	return "", fmt.Errorf("immich: album %q not found", album)
}

// assets fetches all asset IDs in an album, paging through the search API.
func (c *immichClient) assets(ctx context.Context, albumID string) ([]immichAsset, error) {
	var all []immichAsset
	for page := 1; ; page++ {
		body := map[string]any{
			"albumIds": []string{albumID},
			"size":     1000,
			"page":     page,
		}
		var result struct {
			Assets struct {
				Items []immichAsset `json:"items"`
			} `json:"assets"`
		}
		if err := c.do(ctx, http.MethodPost, "/api/search/metadata", body, &result); err != nil {
			return nil, fmt.Errorf("immich: search assets: %w", err)
		}
		if len(result.Assets.Items) == 0 {
			break
		}
		all = append(all, result.Assets.Items...)
	}
	slog.Debug("immich: album assets listed", "album_id", albumID, "count", len(all))
	return all, nil
}

// download fetches the original image for an asset and decodes it.
func (c *immichClient) download(ctx context.Context, assetID string) (image.Image, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/api/assets/%s/original", c.baseURL, assetID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("x-api-key", c.key)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("immich: download asset %s: %w", assetID, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("immich: download asset %s: status %d", assetID, resp.StatusCode)
	}

	img, err := imaging.Decode(resp.Body, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("immich: decode asset %s: %w", assetID, err)
	}
	return img, nil
}
