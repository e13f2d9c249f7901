// Package wfs implements the facility-server client: WFS 1.1.0 GetFeature
// requests scoped to a bounding box, with a shared connection pool, retrying
// transport and a process-wide TTL cache.
package wfs

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"golang.org/x/sync/errgroup"

	"github.com/ELBIXishere/aidd/internal/config"
	"github.com/ELBIXishere/aidd/internal/types"
)

// RawLayers maps layer key to the raw features fetched for one bounding box.
type RawLayers map[LayerKey][]*geojson.Feature

// Client fetches layer slices from the facility and base-map WFS servers.
// One Client is shared process-wide; its pool and cache are safe under
// concurrent requests.
type Client struct {
	gisURL      string
	baseURL     string
	http        *retryablehttp.Client
	cache       *Cache
	maxFeatures int
	logger      *slog.Logger
}

// ClientOption customises a Client.
type ClientOption func(*Client)

// WithLogger sets the logger used for fetch diagnostics.
func WithLogger(l *slog.Logger) ClientOption {
	return func(c *Client) { c.logger = l }
}

// WithMaxFeatures bounds the per-layer feature count requested.
func WithMaxFeatures(n int) ClientOption {
	return func(c *Client) { c.maxFeatures = n }
}

// NewClient builds a client from the configuration. The underlying transport
// keeps connections alive with bounded concurrency per host.
func NewClient(cfg *config.Config, opts ...ClientOption) *Client {
	transport := &http.Transport{
		MaxIdleConns:        cfg.PoolSize,
		MaxConnsPerHost:     cfg.PoolPerHost,
		MaxIdleConnsPerHost: cfg.PoolPerHost,
		IdleConnTimeout:     30 * time.Second,
	}

	rc := retryablehttp.NewClient()
	rc.HTTPClient = &http.Client{Transport: transport, Timeout: cfg.HTTPTimeout}
	rc.RetryMax = 3
	rc.RetryWaitMin = 500 * time.Millisecond
	rc.RetryWaitMax = 5 * time.Second
	rc.Logger = nil

	c := &Client{
		gisURL:      cfg.GISWFSURL,
		baseURL:     cfg.BaseWFSURL,
		http:        rc,
		cache:       NewCache(cfg.CacheCapacity, cfg.CacheTTL),
		maxFeatures: 1000,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// CacheStats exposes the tile-cache counters.
func (c *Client) CacheStats() Stats { return c.cache.Stats() }

// ClearCache drops every cached layer slice.
func (c *Client) ClearCache() { c.cache.Purge() }

func (c *Client) serverFor(layer Layer) string {
	if layer.Base {
		return c.baseURL
	}
	return c.gisURL
}

// Fetch retrieves one layer slice for a bounding box, consulting the cache
// first. Network and protocol errors are fatal; the pipeline cannot
// synthesise missing geometry.
func (c *Client) Fetch(ctx context.Context, key LayerKey, bbox types.BoundingBox) ([]*geojson.Feature, error) {
	layer, ok := Layers[key]
	if !ok {
		return nil, fmt.Errorf("unknown layer %q", key)
	}
	serverURL := c.serverFor(layer)

	cacheKey := Key(serverURL, key, bbox)
	if feats, ok := c.cache.Get(cacheKey); ok {
		c.logger.Debug("tile cache hit", "layer", key, "bbox", bbox.String())
		return feats, nil
	}

	start := time.Now()
	feats, err := c.getFeature(ctx, serverURL, layer, bbox)
	fetchDuration.WithLabelValues(string(key)).Observe(time.Since(start).Seconds())
	if err != nil {
		fetchErrors.WithLabelValues(string(key)).Inc()
		return nil, fmt.Errorf("fetch layer %s: %w", key, err)
	}

	c.cache.Set(cacheKey, feats)
	c.logger.Debug("tile fetched", "layer", key, "features", len(feats), "elapsed", time.Since(start))
	return feats, nil
}

// FetchAll retrieves every design layer for a box centred on the given
// point, fanning the per-layer requests out concurrently and awaiting all of
// them. Any hard failure aborts the whole fetch.
func (c *Client) FetchAll(ctx context.Context, center orb.Point, size float64) (RawLayers, error) {
	return c.FetchLayers(ctx, types.BoxAround(center, size), DesignLayers)
}

// FetchLayers retrieves the named layers for an explicit bounding box.
func (c *Client) FetchLayers(ctx context.Context, bbox types.BoundingBox, keys []LayerKey) (RawLayers, error) {
	result := make(RawLayers, len(keys))
	results := make([][]*geojson.Feature, len(keys))

	g, gctx := errgroup.WithContext(ctx)
	for i, key := range keys {
		g.Go(func() error {
			feats, err := c.Fetch(gctx, key, bbox)
			if err != nil {
				if Layers[key].Optional {
					c.logger.Warn("optional layer fetch failed", "layer", key, "error", err)
					return nil
				}
				return err
			}
			results[i] = feats
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for i, key := range keys {
		result[key] = results[i]
	}
	return result, nil
}

func (c *Client) getFeature(ctx context.Context, serverURL string, layer Layer, bbox types.BoundingBox) ([]*geojson.Feature, error) {
	body := buildGetFeatureXML(layer, bbox, c.maxFeatures)

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, serverURL, bytes.NewReader([]byte(body)))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "text/xml")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("server returned %s", resp.Status)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	return parseFeatures(raw)
}

// parseFeatures decodes a GeoJSON FeatureCollection (or bare feature array)
// response body.
func parseFeatures(raw []byte) ([]*geojson.Feature, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, nil
	}

	switch trimmed[0] {
	case '{':
		fc, err := geojson.UnmarshalFeatureCollection(trimmed)
		if err != nil {
			return nil, fmt.Errorf("decode feature collection: %w", err)
		}
		return fc.Features, nil
	case '[':
		var feats []*geojson.Feature
		if err := json.Unmarshal(trimmed, &feats); err != nil {
			return nil, fmt.Errorf("decode feature array: %w", err)
		}
		return feats, nil
	default:
		return nil, fmt.Errorf("response is not JSON: %.80s", string(trimmed))
	}
}

// buildGetFeatureXML renders the WFS 1.1.0 GetFeature request with an OGC
// BBOX filter and an optional property projection. The geometry field is
// always part of the projection.
func buildGetFeatureXML(layer Layer, bbox types.BoundingBox, maxFeatures int) string {
	var props strings.Builder
	if len(layer.Props) > 0 {
		seen := map[string]bool{layer.GeomField: true}
		fmt.Fprintf(&props, "<wfs:PropertyName>%s</wfs:PropertyName>", layer.GeomField)
		for _, p := range layer.Props {
			if seen[p] {
				continue
			}
			seen[p] = true
			fmt.Fprintf(&props, "<wfs:PropertyName>%s</wfs:PropertyName>", p)
		}
	}

	return fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<wfs:GetFeature
    service="WFS"
    version="1.1.0"
    maxFeatures="%d"
    outputFormat="application/json"
    xmlns:wfs="http://www.opengis.net/wfs"
    xmlns:ogc="http://www.opengis.net/ogc"
    xmlns:gml="http://www.opengis.net/gml">
    <wfs:Query typeName="%s" srsName="EPSG:3857">
        %s
        <ogc:Filter>
            <ogc:BBOX>
                <ogc:PropertyName>%s</ogc:PropertyName>
                <gml:Envelope srsName="EPSG:3857">
                    <gml:lowerCorner>%f %f</gml:lowerCorner>
                    <gml:upperCorner>%f %f</gml:upperCorner>
                </gml:Envelope>
            </ogc:BBOX>
        </ogc:Filter>
    </wfs:Query>
</wfs:GetFeature>`,
		maxFeatures, layer.TypeName, props.String(), layer.GeomField,
		bbox.MinX, bbox.MinY, bbox.MaxX, bbox.MaxY)
}
