package cli

import (
	"fmt"
	"net/http"
	"os"

	"github.com/spf13/cobra"

	"github.com/trop-dev/trop/internal/metrics"
	"github.com/trop-dev/trop/internal/model"
)

// NewMetricsCommand creates the "metrics" cobra command group: a
// supplemented feature (SPEC_FULL.md §3) exposing reservation-health
// gauges for scraping.
func NewMetricsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "metrics",
		Short: "Inspect or serve reservation-health metrics",
	}
	cmd.AddCommand(newMetricsPrintCommand())
	cmd.AddCommand(newMetricsServeCommand())
	return cmd
}

func newMetricsPrintCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "print",
		Short: "Print current metrics in Prometheus text format once",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMetricsPrint()
		},
	}
}

func runMetricsPrint() error {
	dataDir, err := resolveDataDir()
	if err != nil {
		return err
	}
	cwd, err := os.Getwd()
	if err != nil {
		return model.WrapTropError(model.KindInternal, "resolving current directory", err)
	}
	cfg, err := loadConfig(dataDir, cwd)
	if err != nil {
		return err
	}
	s, err := openStore(dataDir, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = s.Close() }()

	collector := metrics.NewCollector()
	if err := collector.Refresh(currentContext(), s.DB(), cfg.PortRange); err != nil {
		return err
	}

	req, err := http.NewRequest(http.MethodGet, "/metrics", nil)
	if err != nil {
		return model.WrapTropError(model.KindInternal, "building metrics request", err)
	}
	rec := &responseBodyWriter{header: make(http.Header)}
	collector.Handler().ServeHTTP(rec, req)
	fmt.Print(rec.body)
	return nil
}

func newMetricsServeCommand() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve /metrics over HTTP until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMetricsServe(addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:9399", "address to listen on")
	return cmd
}

func runMetricsServe(addr string) error {
	dataDir, err := resolveDataDir()
	if err != nil {
		return err
	}
	cwd, err := os.Getwd()
	if err != nil {
		return model.WrapTropError(model.KindInternal, "resolving current directory", err)
	}
	cfg, err := loadConfig(dataDir, cwd)
	if err != nil {
		return err
	}
	s, err := openStore(dataDir, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = s.Close() }()

	collector := metrics.NewCollector()
	mux := http.NewServeMux()
	mux.Handle("/metrics", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := collector.Refresh(r.Context(), s.DB(), cfg.PortRange); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		collector.Handler().ServeHTTP(w, r)
	}))

	Log.Infof("serving metrics on http://%s/metrics", addr)
	server := &http.Server{Addr: addr, Handler: mux}
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return model.WrapTropError(model.KindInternal, "metrics server", err)
	}
	return nil
}

// responseBodyWriter is a minimal http.ResponseWriter that just captures
// the body, for rendering promhttp's handler output to stdout once.
type responseBodyWriter struct {
	header http.Header
	body   string
}

func (w *responseBodyWriter) Header() http.Header { return w.header }
func (w *responseBodyWriter) Write(p []byte) (int, error) {
	w.body += string(p)
	return len(p), nil
}
func (w *responseBodyWriter) WriteHeader(statusCode int) {}
