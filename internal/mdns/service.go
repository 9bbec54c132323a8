// Package mdns advertises the dashboard on the local network.
package mdns

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"sync"

	"github.com/hashicorp/mdns"
)

const (
	// ServiceType is the DNS-SD type browsers and discovery tools look for.
	ServiceType = "_http._tcp"

	// APIVersion is the JSON API version advertised in TXT records.
	APIVersion = "v1"

	// ServerVersion is advertised in TXT records.
	ServerVersion = "1.0.0"
)

// Announcement describes what gets advertised.
type Announcement struct {
	Name   string // Human readable dashboard name
	Port   int
	Path   string // Page path, "/" when empty
	Movies int
	Genres int
}

func (a Announcement) txt() []string {
	path := a.Path
	if path == "" {
		path = "/"
	}
	return []string{
		"name=" + a.Name,
		"path=" + path,
		"version=" + ServerVersion,
		"api=" + APIVersion,
		"movies=" + strconv.Itoa(a.Movies),
		"genres=" + strconv.Itoa(a.Genres),
	}
}

// Service owns the mDNS responder. Failures are usually non-fatal; multicast
// is often unavailable in containers.
type Service struct {
	server *mdns.Server
	logger *slog.Logger
	mu     sync.Mutex
}

// NewService creates a stopped service.
func NewService(logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Service{logger: logger}
}

// Start advertises a. A running responder is replaced.
func (s *Service) Start(a Announcement) error {
	if a.Port <= 0 || a.Port > 65535 {
		return fmt.Errorf("invalid mDNS port %d", a.Port)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.server != nil {
		_ = s.server.Shutdown()
		s.server = nil
	}

	host, err := os.Hostname()
	if err != nil {
		host = "tracker-server"
	}
	instance := a.Name
	if instance == "" {
		instance = host
	}

	zone, err := mdns.NewMDNSService(instance, ServiceType, "", "", a.Port, nil, a.txt())
	if err != nil {
		return fmt.Errorf("create mDNS service: %w", err)
	}

	server, err := mdns.NewServer(&mdns.Config{Zone: zone})
	if err != nil {
		return fmt.Errorf("start mDNS server: %w", err)
	}
	s.server = server

	s.logger.Info("mDNS advertisement started",
		"service", ServiceType,
		"instance", instance,
		"port", a.Port,
	)
	return nil
}

// Running reports whether a responder is active.
func (s *Service) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.server != nil
}

// Stop stops advertising. Safe to call when not started.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.server != nil {
		_ = s.server.Shutdown()
		s.server = nil
		s.logger.Info("mDNS advertisement stopped")
	}
}
