package main

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	"github.com/xoelrdgz/trafficradar/internal/domain"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zerolog.DebugLevel, parseLevel("debug"))
	assert.Equal(t, zerolog.WarnLevel, parseLevel("WARN"))
	assert.Equal(t, zerolog.ErrorLevel, parseLevel("error"))
	assert.Equal(t, zerolog.InfoLevel, parseLevel("bogus"))
}

func TestRenderStatus(t *testing.T) {
	counts := domain.NewPacketCounts(
		domain.IPCount{IP: "10.0.0.1", Count: 900},
		domain.IPCount{IP: "10.0.0.2", Count: 3},
	)
	snap := domain.NewAggregator().Derive(domain.Snapshot{}, counts, domain.NewBlockedIPs("10.0.0.2"), time.Now())

	out := renderStatus(snap, domain.ClassifyAll(snap))
	assert.Contains(t, out, "903")
	assert.Contains(t, out, "10.0.0.1")
	assert.Contains(t, out, "Warning")
	assert.Contains(t, out, "Blocked")

	empty := renderStatus(domain.Snapshot{}, nil)
	assert.Contains(t, empty, "No traffic recorded")
}
