package wfs

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ELBIXishere/aidd/internal/config"
	"github.com/ELBIXishere/aidd/internal/types"
)

const poleFC = `{
  "type": "FeatureCollection",
  "features": [
    {
      "type": "Feature",
      "geometry": {"type": "Point", "coordinates": [100.0, 200.0]},
      "properties": {"GID": "P1", "FAC_STAT_CD": "EI"}
    }
  ]
}`

func testClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := config.Default()
	cfg.GISWFSURL = srv.URL
	cfg.BaseWFSURL = srv.URL
	return NewClient(cfg), srv
}

func TestFetchParsesFeatureCollection(t *testing.T) {
	var gotBody atomic.Value
	c, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		gotBody.Store(string(body))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(poleFC))
	}))

	feats, err := c.Fetch(context.Background(), LayerPole, types.BoundingBox{MinX: 0, MinY: 0, MaxX: 400, MaxY: 400})
	require.NoError(t, err)
	require.Len(t, feats, 1)

	pt, ok := feats[0].Geometry.(orb.Point)
	require.True(t, ok)
	assert.Equal(t, orb.Point{100, 200}, pt)
	assert.Equal(t, "P1", feats[0].Properties["GID"])

	body := gotBody.Load().(string)
	assert.Contains(t, body, "GetFeature")
	assert.Contains(t, body, "AI_FAC_001.GIS_LOC")
	assert.Contains(t, body, "<ogc:BBOX>")
	assert.Contains(t, body, "GIS_LOC")
}

func TestFetchUsesCacheOnRepeat(t *testing.T) {
	var calls atomic.Int32
	c, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		_, _ = w.Write([]byte(poleFC))
	}))

	bbox := types.BoundingBox{MinX: 0, MinY: 0, MaxX: 400, MaxY: 400}
	_, err := c.Fetch(context.Background(), LayerPole, bbox)
	require.NoError(t, err)
	_, err = c.Fetch(context.Background(), LayerPole, bbox)
	require.NoError(t, err)

	assert.Equal(t, int32(1), calls.Load(), "second fetch must be served from cache")
	stats := c.CacheStats()
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
}

func TestFetchServerErrorIsFatal(t *testing.T) {
	c, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadRequest)
	}))

	_, err := c.Fetch(context.Background(), LayerPole, types.BoundingBox{MaxX: 1, MaxY: 1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fetch layer pole")
}

func TestFetchRejectsNonJSON(t *testing.T) {
	c, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<ServiceExceptionReport/>"))
	}))

	_, err := c.Fetch(context.Background(), LayerPole, types.BoundingBox{MaxX: 1, MaxY: 1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not JSON")
}

func TestFetchAllFansOut(t *testing.T) {
	var layers atomic.Int32
	c, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		layers.Add(1)
		_, _ = w.Write([]byte(`{"type":"FeatureCollection","features":[]}`))
	}))

	raw, err := c.FetchAll(context.Background(), orb.Point{0, 0}, 400)
	require.NoError(t, err)
	assert.Len(t, raw, len(DesignLayers))
	assert.Equal(t, int32(len(DesignLayers)), layers.Load())
}

func TestFetchLayersOptionalFailureTolerated(t *testing.T) {
	c, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		if strings.Contains(string(body), Layers[LayerRailway].TypeName) {
			http.Error(w, "nope", http.StatusBadRequest)
			return
		}
		_, _ = w.Write([]byte(`{"type":"FeatureCollection","features":[]}`))
	}))

	bbox := types.BoundingBox{MinX: 0, MinY: 0, MaxX: 100, MaxY: 100}
	raw, err := c.FetchLayers(context.Background(), bbox, []LayerKey{LayerPole, LayerRailway})
	require.NoError(t, err, "optional layer failure must not abort the fetch")
	assert.NotNil(t, raw)
}

func TestParseFeaturesBareArray(t *testing.T) {
	feats, err := parseFeatures([]byte(`[{"type":"Feature","geometry":{"type":"Point","coordinates":[1,2]},"properties":{}}]`))
	require.NoError(t, err)
	require.Len(t, feats, 1)
}
