package commands

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/port-experimental/membership-cli/internal/ratelimit"
	"github.com/port-experimental/membership-cli/internal/server"
	"github.com/spf13/cobra"
)

// RegisterServe registers the serve command.
func RegisterServe(rootCmd *cobra.Command) {
	var (
		addr      string
		perMinute float64
		burst     int
	)

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Accept membership applications from an HTML form",
		Long: `Accept membership applications from an HTML form.

POST /apply takes a form-encoded application and answers with a 303
redirect to the configured success or error page. GET /healthz reports
liveness and GET /metrics exposes Prometheus metrics.

Submissions are throttled per email address.`,
		Example: `  membership serve --addr :8080 --per-minute 2 --burst 3`,
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := newSession(cmd.Context(), "info")
			if err != nil {
				return err
			}
			defer sess.Close()

			if !cmd.Flags().Changed("addr") {
				addr = sess.cfg.Server.Addr
			}
			if !cmd.Flags().Changed("per-minute") {
				perMinute = sess.cfg.Server.SubmissionsPerMinute
			}
			if !cmd.Flags().Changed("burst") {
				burst = sess.cfg.Server.Burst
			}

			srv := server.New(sess.workflow(), server.Options{
				Pages:   sess.pages(),
				Limiter: ratelimit.NewKeyedLimiter(perMinute, burst, 30*time.Minute),
				Metrics: sess.recorder.Registry(),
				Logger:  sess.logger,
			})

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return srv.ListenAndServe(ctx, addr)
		},
	}

	serveCmd.Flags().StringVar(&addr, "addr", ":8080", "Listen address")
	serveCmd.Flags().Float64Var(&perMinute, "per-minute", 2, "Submissions allowed per email address per minute (0 disables throttling)")
	serveCmd.Flags().IntVar(&burst, "burst", 3, "Submissions allowed per email address in a burst")

	rootCmd.AddCommand(serveCmd)
}
