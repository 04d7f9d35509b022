package http

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSendAndParseDecodesJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "1d", r.URL.Query().Get("interval"))
		assert.Equal(t, "signaldesk-test", r.Header.Get("User-Agent"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"symbol":"408920.KQ","close":3120.5}`))
	}))
	defer srv.Close()

	var out struct {
		Symbol string  `json:"symbol"`
		Close  float64 `json:"close"`
	}
	c := NewClient(WithUserAgent("signaldesk-test"))
	err := c.SendAndParse(context.Background(), &RequestOptions{
		URL:         srv.URL,
		QueryParams: map[string][]string{"interval": {"1d"}},
	}, &out)
	require.NoError(t, err)
	assert.Equal(t, "408920.KQ", out.Symbol)
	assert.InDelta(t, 3120.5, out.Close, 1e-9)
}

func TestSendAndParseStatusError(t *testing.T) {
	cases := []struct {
		status    int
		temporary bool
	}{
		{http.StatusNotFound, false},
		{http.StatusTooManyRequests, true},
		{http.StatusBadGateway, true},
	}
	for _, tc := range cases {
		t.Run(http.StatusText(tc.status), func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				http.Error(w, "nope", tc.status)
			}))
			defer srv.Close()

			err := NewClient().SendAndParse(context.Background(), &RequestOptions{URL: srv.URL}, nil)
			var se *StatusError
			require.True(t, errors.As(err, &se))
			assert.Equal(t, tc.status, se.Code)
			assert.Equal(t, "nope", se.Body)
			assert.Equal(t, tc.temporary, se.Temporary())
		})
	}
}
