package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ivlev/frameforge/internal/config"
	"github.com/ivlev/frameforge/internal/driver"
	"github.com/ivlev/frameforge/internal/system"
	"github.com/ivlev/frameforge/internal/timeline"
	"github.com/ivlev/frameforge/internal/video"
)

var (
	exportOutput   string
	exportDuration float64
	exportWorkers  int
	exportWindow   int
	exportEncoder  string
	exportQuality  int
	exportAudio    string
	exportStats    bool
)

var exportCmd = &cobra.Command{
	Use:   "export [project.yaml]",
	Short: "Render every frame of a project into a video file",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(cmd, args, true)
		if err != nil {
			return err
		}
		defer s.Close()
		cfg := s.cfg
		applyExportFlags(cmd, cfg)

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if cfg.OutputVideo == "" {
			cfg.OutputVideo = config.OutputName("output", s.projPath, time.Now())
		}
		if err := os.MkdirAll(filepath.Dir(cfg.OutputVideo), 0755); err != nil {
			return err
		}

		if cfg.VideoEncoder == "" {
			cfg.VideoEncoder = system.GetBestH264Encoder(ctx)
			if cfg.VideoEncoder != "libx264" {
				fmt.Printf("[*] Обнаружено аппаратное ускорение: %s\n", cfg.VideoEncoder)
			}
		}
		if cfg.Quality == 0 {
			cfg.Quality = config.DefaultQuality(cfg.VideoEncoder)
		}

		var audioDur float64
		if cfg.AudioPath != "" {
			if d, err := system.ProbeDuration(ctx, cfg.AudioPath); err == nil {
				audioDur = d
				fmt.Printf("[*] Аудио: %s (%.2fs)\n", cfg.AudioPath, audioDur)
			} else {
				s.log.Warn("не удалось получить длительность аудио", "error", err)
			}
		}
		duration := pickDuration(cfg.Duration, timeline.Duration(s.proj.Timeline), audioDur, s.decoder.Duration())

		total := driver.FrameCount(duration, cfg.FPS)
		fmt.Println("--- [FRAMEFORGE EXPORT] ---")
		fmt.Printf("[*] Проект: %s | Кадров: %d (%.2fs)\n", s.projPath, total, duration)
		fmt.Printf("[*] Разрешение: %dx%d @ %v FPS | Энкодер: %s (%d)\n", cfg.Width, cfg.Height, cfg.FPS, cfg.VideoEncoder, cfg.Quality)
		fmt.Println("-----------------------------")

		enc, err := video.NewFFmpegEncoder(ctx, cfg.OutputVideo, video.Options{
			Width:     cfg.Width,
			Height:    cfg.Height,
			FPS:       cfg.FPS,
			Encoder:   cfg.VideoEncoder,
			Quality:   cfg.Quality,
			AudioPath: cfg.AudioPath,
			Logger:    s.log,
		})
		if err != nil {
			return err
		}

		step := max(1, int(cfg.FPS))
		stats, err := driver.Export(ctx, driver.ExportJob{
			Composer: s.comp,
			Frames:   s.decoder,
			Timeline: s.proj.Timeline,
			Sink:     enc,
			FPS:      cfg.FPS,
			Duration: duration,
			Workers:  cfg.Workers,
			Window:   cfg.Window,
			Logger:   s.log,
			Metrics:  s.metrics,
			Progress: func(done, total int) {
				if done%step == 0 || done == total {
					fmt.Printf("[>] Ready: %d/%d\n", done, total)
				}
			},
		})
		if err != nil {
			return fmt.Errorf("ошибка экспорта: %w", err)
		}

		if cfg.ShowStats {
			fmt.Print(stats.Report(cfg.BuildVersion))
			fmt.Printf("Host: %s\n", system.Host(context.WithoutCancel(ctx)))
		}
		fmt.Printf("[+++] Успех! Результат: %s\n", cfg.OutputVideo)
		return nil
	},
}

func init() {
	f := exportCmd.Flags()
	f.StringVarP(&exportOutput, "output", "o", "", "путь к видео (если пусто, генерируется автоматически в output/)")
	f.Float64Var(&exportDuration, "duration", 0, "длительность в секундах (0 - по таймлайну)")
	f.IntVar(&exportWorkers, "workers", 0, "потоки декодирования")
	f.IntVar(&exportWindow, "window", 0, "глубина очереди декодированных кадров")
	f.StringVar(&exportEncoder, "encoder", "", "энкодер ffmpeg (по умолчанию: лучший доступный H.264)")
	f.IntVar(&exportQuality, "quality", 0, "качество видео (0 - авто, x264: CRF 1-51, VideoToolbox: битрейт = Q*100кбит/с)")
	f.StringVar(&exportAudio, "audio", "", "путь к аудио")
	f.BoolVar(&exportStats, "stats", false, "показать отчет о производительности")
}

func applyExportFlags(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("output") {
		cfg.OutputVideo = exportOutput
	}
	if flags.Changed("duration") {
		cfg.Duration = exportDuration
	}
	if flags.Changed("workers") {
		cfg.Workers = exportWorkers
	}
	if flags.Changed("window") {
		cfg.Window = exportWindow
	}
	if flags.Changed("encoder") {
		cfg.VideoEncoder = exportEncoder
	}
	if flags.Changed("quality") {
		cfg.Quality = exportQuality
	}
	if flags.Changed("audio") {
		cfg.AudioPath = exportAudio
	}
	if flags.Changed("stats") {
		cfg.ShowStats = exportStats
	}
}

// pickDuration chooses the export length: an explicit duration, then the
// timeline, then the soundtrack, then the screen recording.
func pickDuration(explicit, timelineDur, audioDur, sourceDur float64) float64 {
	for _, d := range []float64{explicit, timelineDur, audioDur} {
		if d > 0 {
			return d
		}
	}
	return sourceDur
}
