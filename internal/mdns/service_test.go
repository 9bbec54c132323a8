package mdns

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnnouncementTXT(t *testing.T) {
	txt := Announcement{Name: "Tracker", Port: 8050, Movies: 120, Genres: 9}.txt()

	assert.Contains(t, txt, "name=Tracker")
	assert.Contains(t, txt, "path=/", "empty path advertises the root page")
	assert.Contains(t, txt, "api=v1")
	assert.Contains(t, txt, "movies=120")
	assert.Contains(t, txt, "genres=9")

	assert.Contains(t, Announcement{Path: "/dash"}.txt(), "path=/dash")
}

func TestServiceStop(t *testing.T) {
	service := NewService(nil)

	// Not started; must not panic.
	service.Stop()
	service.Stop()
	assert.False(t, service.Running())
}

func TestServiceStart_InvalidPort(t *testing.T) {
	service := NewService(nil)

	require.Error(t, service.Start(Announcement{Name: "x", Port: 0}))
	require.Error(t, service.Start(Announcement{Name: "x", Port: 70000}))
	assert.False(t, service.Running())
}

func TestServiceLifecycle(t *testing.T) {
	var buf bytes.Buffer
	service := NewService(slog.New(slog.NewTextHandler(&buf, nil)))

	// Multicast is unavailable in many CI containers.
	if err := service.Start(Announcement{Name: "Lifecycle Test", Port: 8050}); err != nil {
		t.Skipf("mDNS not available: %v", err)
	}
	assert.True(t, service.Running())
	assert.Contains(t, buf.String(), "mDNS advertisement started")

	// Restart replaces the responder.
	require.NoError(t, service.Start(Announcement{Name: "Lifecycle Test", Port: 8051}))
	assert.True(t, service.Running())

	done := make(chan struct{})
	for range 5 {
		go func() {
			service.Stop()
			done <- struct{}{}
		}()
	}
	for range 5 {
		<-done
	}

	assert.False(t, service.Running())
	assert.Contains(t, buf.String(), "mDNS advertisement stopped")
}
