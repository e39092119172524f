package engine

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestScalePostsToScalingEndpoint(t *testing.T) {
	var gotSecret, gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotSecret = r.Header.Get("secret")
		gotPath = r.URL.Path
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := New(Config{
		Host:            srv.URL[len("http://"):],
		ScalingEndpoint: "scale",
		NameEndpoint:    "name",
		Secret:          "topsecret",
		Timeout:         time.Second,
		RateLimitPerSec: 1000,
		Burst:           10,
	})

	require.NoError(t, c.RequestScale(context.Background(), "res-1", 4))
	assert.Equal(t, "topsecret", gotSecret)
	assert.Equal(t, "/scale/res-1", gotPath)
}

func TestRequestScaleReturnsErrorOn5xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := New(Config{Host: srv.URL[len("http://"):], ScalingEndpoint: "scale", Timeout: time.Second, RateLimitPerSec: 1000, Burst: 10})
	err := c.RequestScale(context.Background(), "res-1", 4)
	assert.Error(t, err)
}

func TestHostGetsHttpSchemeWhenMissing(t *testing.T) {
	c := New(Config{Host: "example.com:9000", RateLimitPerSec: 1, Burst: 1})
	assert.Equal(t, "http://example.com:9000", c.host)
}

func TestHostSchemeLeftAloneWhenPresent(t *testing.T) {
	c := New(Config{Host: "https://example.com:9000", RateLimitPerSec: 1, Burst: 1})
	assert.Equal(t, "https://example.com:9000", c.host)
}
