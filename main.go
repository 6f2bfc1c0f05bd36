package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/dkhatri/portfolio/internal/config"
	"github.com/dkhatri/portfolio/internal/content"
	"github.com/dkhatri/portfolio/internal/logging"
	"github.com/dkhatri/portfolio/internal/store"
	"github.com/dkhatri/portfolio/internal/typewriter"
)

var (
	cfg    *config.Config
	logger *zap.Logger

	previewCycles  int
	previewPhrases []string
)

var rootCmd = &cobra.Command{
	Use:   "portfolio",
	Short: "Personal portfolio site",
	Long: `portfolio serves a single-page portfolio with a rotating typewriter
headline, scroll-aware navigation and a persisted light/dark theme.

Run without arguments to start the web server.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load()
		if err != nil {
			return err
		}
		logger, err = logging.New(cfg.LogLevel, cfg.GinMode == gin.DebugMode)
		return err
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the web server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
}

var previewCmd = &cobra.Command{
	Use:   "preview",
	Short: "Play the headline typewriter in the terminal",
	RunE: func(cmd *cobra.Command, args []string) error {
		phrases := previewPhrases
		if len(phrases) == 0 {
			p, err := content.Load(cfg.ContentFile)
			if err != nil {
				return err
			}
			phrases = p.Phrases
		}
		return runPreview(cmd.Context(), cmd.OutOrStdout(), typewriter.New(phrases), typewriter.SystemClock, previewCycles)
	},
}

var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Delete visitor records older than VISITOR_RETENTION",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := store.Open(cfg.DBPath)
		if err != nil {
			return err
		}
		defer st.Close()

		n, err := st.DeleteVisitsBefore(cmd.Context(), time.Now().Add(-cfg.VisitorRetention))
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "removed %d visitor records\n", n)
		return nil
	},
}

func init() {
	previewCmd.Flags().IntVar(&previewCycles, "cycles", 1, "number of full phrase cycles to play (0 = until interrupted)")
	previewCmd.Flags().StringSliceVar(&previewPhrases, "phrase", nil, "phrase to cycle through (repeatable, defaults to the site content)")
	rootCmd.AddCommand(serveCmd, previewCmd, cleanupCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func runServe(ctx context.Context) error {
	gin.SetMode(cfg.GinMode)

	p, err := content.Load(cfg.ContentFile)
	if err != nil {
		return err
	}
	st, err := store.Open(cfg.DBPath)
	if err != nil {
		return err
	}
	defer st.Close()

	srv := newServer(cfg, logger, p, st)
	httpServer := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           srv.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("listening", zap.String("addr", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		return srv.runJanitor(ctx, 24*time.Hour)
	})
	g.Go(func() error {
		<-ctx.Done()
		// streams only end when their sessions do
		srv.sessions.CloseAll()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})
	err = g.Wait()
	// the store closes after this returns
	srv.waitTracking()
	return err
}

// runJanitor applies the visitor retention now and then every interval.
func (s *server) runJanitor(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		if err := s.cleanupOldVisitors(ctx); err != nil && ctx.Err() == nil {
			s.logger.Error("privacy cleanup", zap.Error(err))
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// runPreview plays the animator on out. cycles <= 0 plays until ctx ends.
func runPreview(ctx context.Context, out io.Writer, anim *typewriter.Animator, clock typewriter.Clock, cycles int) error {
	frames := make(chan typewriter.State, 1)
	r := typewriter.NewRunner(anim, clock, func(st typewriter.State) {
		// keep only the latest frame
		select {
		case frames <- st:
		default:
			select {
			case <-frames:
			default:
			}
			frames <- st
		}
	})
	if err := r.Start(); err != nil {
		return err
	}
	defer r.Stop()

	var deadline <-chan time.Time
	if cycles > 0 {
		timer := time.NewTimer(time.Duration(cycles) * anim.CycleDuration())
		defer timer.Stop()
		deadline = timer.C
	}

	fmt.Fprint(out, typewriter.Cursor)
	for {
		select {
		case <-ctx.Done():
			fmt.Fprintln(out)
			return nil
		case <-deadline:
			fmt.Fprintln(out)
			return nil
		case st := <-frames:
			// clear the line and redraw
			fmt.Fprint(out, "\r\033[K"+st.Display())
		}
	}
}
