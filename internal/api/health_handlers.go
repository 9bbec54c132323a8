package api

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/process"
)

const (
	statusHealthy   = "healthy"
	statusDegraded  = "degraded"
	statusUnhealthy = "unhealthy"
)

func (s *Server) registerHealthRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "healthCheck",
		Method:      http.MethodGet,
		Path:        "/health",
		Summary:     "Health check",
		Description: "Returns server health status with component checks",
		Tags:        []string{"Health"},
	}, s.handleHealthCheck)
}

// ComponentHealth describes the health of a single component.
type ComponentHealth struct {
	Status  string `json:"status" doc:"Component status: healthy, degraded, or unhealthy"`
	Latency string `json:"latency,omitempty" doc:"Response time for this component"`
	Message string `json:"message,omitempty" doc:"Additional status information"`
}

// ProcessStats describes the server process.
type ProcessStats struct {
	RSSBytes       uint64  `json:"rss_bytes" doc:"Resident set size"`
	CPUPercent     float64 `json:"cpu_percent" doc:"CPU usage since process start"`
	SystemMemUsed  float64 `json:"system_mem_used_percent" doc:"Host memory in use"`
	Threads        int32   `json:"threads" doc:"OS threads"`
	UptimeSeconds  int64   `json:"uptime_seconds"`
	ActiveSessions int     `json:"active_sessions"`
	SSEClients     int     `json:"sse_clients"`
}

// HealthResponse contains health check data in API responses.
type HealthResponse struct {
	Status     string                     `json:"status" doc:"Overall status: healthy, degraded, or unhealthy"`
	Components map[string]ComponentHealth `json:"components" doc:"Individual component statuses"`
	Process    ProcessStats               `json:"process" doc:"Process resource usage"`
}

// HealthOutput wraps the health response for Huma.
type HealthOutput struct {
	Body HealthResponse
}

func (s *Server) handleHealthCheck(ctx context.Context, _ *struct{}) (*HealthOutput, error) {
	components := map[string]ComponentHealth{
		"dataset":  s.checkDataset(),
		"search":   s.checkSearchIndex(),
		"sse":      s.checkSSEManager(),
		"sessions": s.checkSessions(),
		"cache":    s.checkCache(),
	}

	overall := statusHealthy
	for _, c := range components {
		switch c.Status {
		case statusUnhealthy:
			overall = statusUnhealthy
		case statusDegraded:
			if overall == statusHealthy {
				overall = statusDegraded
			}
		}
	}

	return &HealthOutput{
		Body: HealthResponse{
			Status:     overall,
			Components: components,
			Process:    s.processStats(ctx),
		},
	}, nil
}

// checkDataset reports the shape of the loaded table.
func (s *Server) checkDataset() ComponentHealth {
	if s.Dataset == nil || s.Dataset.Len() == 0 {
		return ComponentHealth{Status: statusUnhealthy, Message: "dataset not loaded"}
	}
	return ComponentHealth{
		Status:  statusHealthy,
		Message: fmt.Sprintf("%d movies, %d genres, %d directors", s.Dataset.Len(), len(s.genres), len(s.directors)),
	}
}

// checkSearchIndex verifies the facet index answers.
func (s *Server) checkSearchIndex() ComponentHealth {
	if s.Facets == nil {
		return ComponentHealth{Status: statusDegraded, Message: "facet search not configured"}
	}

	start := time.Now()
	count, err := s.Facets.DocumentCount()
	latency := time.Since(start)

	if err != nil {
		return ComponentHealth{Status: statusDegraded, Latency: latency.String(), Message: "facet index not accessible"}
	}
	return ComponentHealth{
		Status:  statusHealthy,
		Latency: latency.String(),
		Message: fmt.Sprintf("%d facets indexed", count),
	}
}

func (s *Server) checkSSEManager() ComponentHealth {
	if s.Events == nil {
		return ComponentHealth{Status: statusDegraded, Message: "event stream not configured"}
	}
	return ComponentHealth{Status: statusHealthy, Message: fmt.Sprintf("%d streams across %d sessions", s.Events.ClientCount(), s.Events.SessionCount())}
}

func (s *Server) checkSessions() ComponentHealth {
	if s.Sessions == nil {
		return ComponentHealth{Status: statusUnhealthy, Message: "session registry not configured"}
	}
	return ComponentHealth{Status: statusHealthy, Message: fmt.Sprintf("%d active sessions", s.Sessions.Len())}
}

func (s *Server) checkCache() ComponentHealth {
	if s.Cache == nil {
		return ComponentHealth{Status: statusHealthy, Message: "chart cache disabled"}
	}
	st := s.Cache.Stats()
	return ComponentHealth{
		Status:  statusHealthy,
		Message: fmt.Sprintf("%d entries, %d hits, %d misses", st.Entries, st.Hits, st.Misses),
	}
}

// processStats samples resource usage. Sampling failures leave fields zero.
func (s *Server) processStats(ctx context.Context) ProcessStats {
	st := ProcessStats{UptimeSeconds: int64(time.Since(s.startedAt).Seconds())}
	if s.Sessions != nil {
		st.ActiveSessions = s.Sessions.Len()
	}
	if s.Events != nil {
		st.SSEClients = s.Events.ClientCount()
	}

	if p, err := process.NewProcessWithContext(ctx, int32(os.Getpid())); err == nil { //nolint:gosec // pids fit in int32
		if info, err := p.MemoryInfoWithContext(ctx); err == nil {
			st.RSSBytes = info.RSS
		}
		if cpu, err := p.CPUPercentWithContext(ctx); err == nil {
			st.CPUPercent = cpu
		}
		if n, err := p.NumThreadsWithContext(ctx); err == nil {
			st.Threads = n
		}
	} else {
		s.logger.Debug("process stats unavailable", "error", err)
	}

	if vm, err := mem.VirtualMemoryWithContext(ctx); err == nil {
		st.SystemMemUsed = vm.UsedPercent
	}
	return st
}
