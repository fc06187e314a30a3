package nudat_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/factsync/pkg/errors"
	"github.com/agentstation/factsync/pkg/nuclide"
	"github.com/agentstation/factsync/pkg/nudat"
)

func parseFixture(t *testing.T, name string) *nudat.Document {
	t.Helper()
	f, err := os.Open("testdata/" + name)
	require.NoError(t, err)
	defer f.Close()
	doc, err := nudat.Parse(f, "https://example.org/"+name)
	require.NoError(t, err)
	return doc
}

func TestParseLevels(t *testing.T) {
	doc := parseFixture(t, "c14.html")
	require.Len(t, doc.Levels, 2)

	ground := doc.Levels[0]
	assert.True(t, ground.Ground())
	assert.Equal(t, "0+", ground.JPi)
	assert.Equal(t, "5.70E+3 y", ground.HalfLife)
	assert.Equal(t, "3", ground.HalfLifeUnc)
	assert.Equal(t, "β- : 100 %", ground.DecayModes)
	assert.Empty(t, ground.Abundance)

	excited := doc.Levels[1]
	assert.False(t, excited.Ground())
	assert.Equal(t, "6.5894", excited.Energy)
	assert.Equal(t, "3.3 fs", excited.HalfLife)
	assert.Equal(t, "+12-7", excited.HalfLifeUnc)
}

func TestDocumentRaw(t *testing.T) {
	doc := parseFixture(t, "c14.html")
	key := nuclide.Key{Z: 6, N: 8}

	raws := doc.Raw(key)
	require.Len(t, raws, 3)
	assert.Equal(t, nudat.Raw{Key: key, Kind: nudat.HalfLife, Value: "5.70E+3", Uncertainty: "3", Unit: "y", URL: doc.URL}, raws[0])
	assert.Equal(t, nudat.DecayModes, raws[1].Kind)
	assert.Equal(t, nudat.SpinParity, raws[2].Kind)

	isomer := doc.Raw(nuclide.Key{Z: 6, N: 8, Isomer: 1})
	require.NotEmpty(t, isomer)
	assert.Equal(t, "fs", isomer[0].Unit)
	assert.Equal(t, "+12-7", isomer[0].Uncertainty)

	assert.Empty(t, doc.Raw(nuclide.Key{Z: 6, N: 8, Isomer: 2}))
}

func TestDocumentRawStable(t *testing.T) {
	doc := parseFixture(t, "c12.html")
	raws := doc.Raw(nuclide.Key{Z: 6, N: 6})
	require.Len(t, raws, 2)
	assert.Equal(t, nudat.Abundance, raws[0].Kind)
	assert.Equal(t, "98.93", raws[0].Value)
	assert.Equal(t, "8", raws[0].Uncertainty)
	assert.Equal(t, nudat.SpinParity, raws[1].Kind)
}

func TestParseEmptyDocument(t *testing.T) {
	doc, err := nudat.Parse(strings.NewReader("<html><body>No data</body></html>"), "u")
	require.NoError(t, err)
	assert.Empty(t, doc.Levels)
	assert.Nil(t, doc.Raw(nuclide.Key{Z: 1, N: 0}))
}

func TestParseJPi(t *testing.T) {
	plus, minus := 1, -1
	tests := []struct {
		in      string
		spin    float64
		parity  *int
		wantErr bool
	}{
		{in: "0+", spin: 0, parity: &plus},
		{in: "3/2-", spin: 1.5, parity: &minus},
		{in: "9/2−", spin: 4.5, parity: &minus},
		{in: "7", spin: 7},
		{in: "(0+)", wantErr: true},
		{in: "1(-)", wantErr: true},
		{in: "5/2+#", wantErr: true},
		{in: "1/2+,3/2+", wantErr: true},
		{in: "", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := nudat.ParseJPi(tt.in)
			if tt.wantErr {
				assert.True(t, errors.IsMalformed(err))
				return
			}
			require.NoError(t, err)
			assert.IsType(t, nudat.JPi{}, got)
			assert.Equal(t, tt.spin, got.Spin)
			assert.Equal(t, tt.parity, got.Parity)
		})
	}
}

func TestSourceFetchCachesPerRun(t *testing.T) {
	page, err := os.ReadFile("testdata/bi212.html")
	require.NoError(t, err)

	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			http.NotFound(w, r)
			return
		}
		hits.Add(1)
		assert.Equal(t, "83", r.URL.Query().Get("z"))
		assert.Equal(t, "129", r.URL.Query().Get("n"))
		_, _ = w.Write(page)
	}))
	defer srv.Close()

	src := nudat.NewSource(nudat.WithBaseURL(srv.URL+"/nudat2/reCenter.jsp"), nudat.WithDelay(0))
	ctx := context.Background()

	raws, err := src.Measurements(ctx, nuclide.Key{Z: 83, N: 129})
	require.NoError(t, err)
	require.Len(t, raws, 3)
	assert.Equal(t, "m", raws[0].Unit)
	assert.Equal(t, "β- : 64.06 % α : 35.94 %", raws[1].Value)
	assert.Equal(t, src.URL(83, 129), raws[0].URL)

	_, err = src.Fetch(ctx, 83, 129)
	require.NoError(t, err)
	assert.Equal(t, int32(1), hits.Load())
}

func TestSourceHonorsRobots(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			_, _ = w.Write([]byte("User-agent: *\nDisallow: /nudat2/\n"))
			return
		}
		t.Errorf("unexpected fetch of %s", r.URL)
	}))
	defer srv.Close()

	src := nudat.NewSource(nudat.WithBaseURL(srv.URL+"/nudat2/reCenter.jsp"), nudat.WithDelay(0))
	_, err := src.Fetch(context.Background(), 6, 8)
	require.Error(t, err)
	var apiErr *errors.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 403, apiErr.StatusCode)
}

func TestSourceServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	src := nudat.NewSource(nudat.WithBaseURL(srv.URL), nudat.WithDelay(0), nudat.WithoutRobots())
	_, err := src.Fetch(context.Background(), 6, 8)
	assert.ErrorIs(t, err, errors.ErrUnavailable)
}
