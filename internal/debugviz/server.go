package debugviz

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"nightpath/internal/cv"
	"nightpath/internal/httputil"
)

// TickSample is one tick's worth of fused state, recorded for the live
// debug dashboard.
type TickSample struct {
	Tick        int
	Timestamp   time.Time
	LightLevel  float64
	HazardCount int
	RouteNodes  int
}

const maxHistorySamples = 200

// Server serves an in-process HTML dashboard of recent ticks using
// go-echarts, alongside a snapshot of the most recent brightness
// histogram. It complements the static PNG exports with something that
// can be watched live in a browser while nightpathd runs.
type Server struct {
	address string
	server  *http.Server

	mu        sync.RWMutex
	history   []TickSample
	histogram cv.BrightnessHistogram
}

// NewServer builds a debug dashboard server bound to address (e.g.
// "localhost:6060"). Call Start to begin serving.
func NewServer(address string) *Server {
	return &Server{address: address}
}

// RecordTick appends a sample to the rolling history shown on the
// dashboard, evicting the oldest sample once maxHistorySamples is
// exceeded.
func (s *Server) RecordTick(sample TickSample) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = append(s.history, sample)
	if len(s.history) > maxHistorySamples {
		s.history = s.history[len(s.history)-maxHistorySamples:]
	}
}

// RecordHistogram replaces the histogram shown on the dashboard.
func (s *Server) RecordHistogram(h cv.BrightnessHistogram) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.histogram = h
}

// Start begins the HTTP server in a goroutine and blocks until ctx is
// cancelled, at which point it shuts the server down.
func (s *Server) Start(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/debug/nightpath", s.handleDashboard)
	mux.HandleFunc("/debug/nightpath/history", s.handleHistoryChart)
	mux.HandleFunc("/debug/nightpath/histogram", s.handleHistogramChart)
	mux.HandleFunc("/debug/nightpath/status", s.handleStatus)

	s.server = &http.Server{Addr: s.address, Handler: mux}

	go func() {
		log.Printf("starting debug dashboard on %s", s.address)
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("debug dashboard stopped: %v", err)
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	return s.server.Shutdown(shutdownCtx)
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprint(w, dashboardHTML)
}

// statusResponse is the JSON shape served at /debug/nightpath/status for
// tooling that wants the raw numbers instead of a rendered chart.
type statusResponse struct {
	SampleCount    int     `json:"sample_count"`
	LatestTick     int     `json:"latest_tick"`
	LatestLight    float64 `json:"latest_light_level"`
	LatestHazards  int     `json:"latest_hazard_count"`
	HistogramMean  float64 `json:"histogram_mean"`
	HistogramStdev float64 `json:"histogram_stddev"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.history) == 0 {
		httputil.NotFound(w, "no ticks recorded yet")
		return
	}

	latest := s.history[len(s.history)-1]
	httputil.WriteJSONOK(w, statusResponse{
		SampleCount:    len(s.history),
		LatestTick:     latest.Tick,
		LatestLight:    latest.LightLevel,
		LatestHazards:  latest.HazardCount,
		HistogramMean:  s.histogram.Mean,
		HistogramStdev: s.histogram.StdDev,
	})
}

func (s *Server) handleHistoryChart(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	samples := append([]TickSample(nil), s.history...)
	s.mu.RUnlock()

	ticks := make([]string, len(samples))
	light := make([]opts.LineData, len(samples))
	hazards := make([]opts.LineData, len(samples))
	for i, sample := range samples {
		ticks[i] = fmt.Sprintf("%d", sample.Tick)
		light[i] = opts.LineData{Value: sample.LightLevel}
		hazards[i] = opts.LineData{Value: sample.HazardCount}
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Theme: "dark", Width: "900px", Height: "420px"}),
		charts.WithTitleOpts(opts.Title{Title: "Unified light level and hazard count by tick"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)
	line.SetXAxis(ticks).
		AddSeries("light level", light).
		AddSeries("hazards", hazards)

	var buf bytes.Buffer
	if err := line.Render(&buf); err != nil {
		http.Error(w, fmt.Sprintf("render history chart: %v", err), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) handleHistogramChart(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	h := s.histogram
	s.mu.RUnlock()

	bins := make([]string, len(h.Bins))
	values := make([]opts.BarData, len(h.Bins))
	for i, count := range h.Bins {
		bins[i] = fmt.Sprintf("%d", i)
		values[i] = opts.BarData{Value: count}
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Theme: "dark", Width: "900px", Height: "420px"}),
		charts.WithTitleOpts(opts.Title{Title: fmt.Sprintf("Latest brightness histogram (mean=%.1f)", h.Mean)}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)
	bar.SetXAxis(bins).AddSeries("pixel count", values)

	var buf bytes.Buffer
	if err := bar.Render(&buf); err != nil {
		http.Error(w, fmt.Sprintf("render histogram chart: %v", err), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}

const dashboardHTML = `<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>nightpath debug</title></head>
<body style="background:#1a1a1a;margin:0;">
<iframe src="/debug/nightpath/history" style="width:100%;height:440px;border:0;"></iframe>
<iframe src="/debug/nightpath/histogram" style="width:100%;height:440px;border:0;"></iframe>
</body>
</html>`
