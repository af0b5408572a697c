package telemetry

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

const namespace = "rollcat"

// Metrics counts engine activity. It is itself a Sink.
type Metrics struct {
	Captures      *prometheus.CounterVec
	Timeouts      prometheus.Counter
	Transmissions prometheus.Counter
	JamActive     prometheus.Gauge
	ScanSteps     prometheus.Counter
	ScanHits      *prometheus.CounterVec
	LastRSSI      prometheus.Gauge
}

// NewMetrics creates the collectors and registers them with reg
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Captures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "captures_total",
			Help:      "Receive events by filter result.",
		}, []string{"result"}),
		Timeouts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "receive_timeouts_total",
			Help:      "Receive windows that closed with no packet.",
		}),
		Transmissions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transmissions_total",
			Help:      "Payloads transmitted.",
		}),
		JamActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "jam_active",
			Help:      "1 while the jammer is transmitting.",
		}),
		ScanSteps: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scan_steps_total",
			Help:      "Frequency steps taken by the scanner.",
		}),
		ScanHits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scan_hits_total",
			Help:      "Scan records written, by frequency.",
		}, []string{"frequency"}),
		LastRSSI: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_capture_rssi_dbm",
			Help:      "RSSI of the most recent genuine capture.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.Captures, m.Timeouts, m.Transmissions, m.JamActive,
			m.ScanSteps, m.ScanHits, m.LastRSSI)
	}
	return m
}

// Emit implements Sink
func (m *Metrics) Emit(e Event) {
	switch e.Kind {
	case KindCapture:
		m.Captures.WithLabelValues("genuine").Inc()
		m.LastRSSI.Set(float64(e.RSSI))
	case KindRejected:
		m.Captures.WithLabelValues("rejected").Inc()
	case KindTimeout:
		m.Timeouts.Inc()
	case KindTransmit:
		m.Transmissions.Inc()
	case KindJamStart:
		m.JamActive.Set(1)
	case KindJamStop:
		m.JamActive.Set(0)
	case KindScanStep:
		m.ScanSteps.Inc()
	case KindScanHit:
		m.ScanHits.WithLabelValues(formatHz(e.Frequency)).Inc()
	}
}

// Serve exposes reg on addr at /metrics until ctx is done
func Serve(ctx context.Context, addr string, reg prometheus.Gatherer) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	log.Info().Str("addr", addr).Msg("metrics endpoint listening")
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}
