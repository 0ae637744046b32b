package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ivlev/frameforge/internal/compositor"
	"github.com/ivlev/frameforge/internal/driver"
	"github.com/ivlev/frameforge/internal/server"
	"github.com/ivlev/frameforge/internal/timeline"
)

var previewListen string

var previewCmd = &cobra.Command{
	Use:   "preview [project.yaml]",
	Short: "Serve an interactive preview over HTTP",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(cmd, args, true)
		if err != nil {
			return err
		}
		defer s.Close()
		if cmd.Flags().Changed("listen") {
			s.cfg.Listen = previewListen
		}

		duration := timeline.Duration(s.proj.Timeline)
		if duration <= 0 {
			duration = s.decoder.Duration()
		}
		preview := driver.NewPreview(s.comp, driver.PreviewOptions{
			FPS:      s.cfg.FPS,
			Duration: duration,
			Logger:   s.log,
			Metrics:  s.metrics,
			OnFrame: func(f *compositor.Frame) {
				s.log.Debug("frame delivered", "seq", f.Seq, "time", f.Time, "mode", f.Mode)
			},
		})
		defer preview.Close()
		preview.Seek(0)

		h := server.NewHandler(preview, s.proj, s.comp, s.log, s.metrics)
		srv := &http.Server{
			Addr:              s.cfg.Listen,
			Handler:           h.Router(),
			ReadHeaderTimeout: 5 * time.Second,
		}

		errCh := make(chan error, 1)
		go func() {
			fmt.Printf("[*] Preview: http://%s (%.2fs, %v FPS)\n", s.cfg.Listen, duration, s.cfg.FPS)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
			close(errCh)
		}()

		quit := make(chan os.Signal, 1)
		signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
		defer signal.Stop(quit)

		select {
		case err, ok := <-errCh:
			if ok {
				return fmt.Errorf("server: %w", err)
			}
			return nil
		case <-quit:
		}

		s.log.Info("shutting down preview server")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("server forced to shutdown: %w", err)
		}
		return nil
	},
}

func init() {
	previewCmd.Flags().StringVar(&previewListen, "listen", "", "адрес HTTP сервера (по умолчанию 127.0.0.1:8080)")
}
