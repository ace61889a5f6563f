package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("FEED_PAGE_SIZE", "15")
	t.Setenv("RATE_LIMIT_GLOBAL", "5s")
	t.Setenv("RATE_LIMIT_POST", "15s")
	t.Setenv("JWT_LIFETIME", "24h")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 15, cfg.FeedPageSize)
	assert.Equal(t, 5*time.Second, cfg.RateLimitGlobal)
	assert.Equal(t, 15*time.Second, cfg.RateLimitPost)
	assert.Equal(t, 24*time.Hour, cfg.JWTLifetime)
}

func TestLoad_ClampsFeedPageSize(t *testing.T) {
	t.Setenv("FEED_PAGE_SIZE", "500")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, maxFeedPageSize, cfg.FeedPageSize)

	t.Setenv("FEED_PAGE_SIZE", "1")
	cfg, err = Load()
	require.NoError(t, err)
	assert.Equal(t, minFeedPageSize, cfg.FeedPageSize)
}

func TestLoad_InvalidValues(t *testing.T) {
	t.Setenv("FEED_PAGE_SIZE", "lots")
	_, err := Load()
	assert.ErrorContains(t, err, "FEED_PAGE_SIZE")

	t.Setenv("FEED_PAGE_SIZE", "10")
	t.Setenv("RATE_LIMIT_POST", "soon")
	_, err = Load()
	assert.ErrorContains(t, err, "RATE_LIMIT_POST")
}
