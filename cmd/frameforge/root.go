package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ivlev/frameforge/internal/captions"
	"github.com/ivlev/frameforge/internal/compositor"
	"github.com/ivlev/frameforge/internal/config"
	"github.com/ivlev/frameforge/internal/glyphs"
	"github.com/ivlev/frameforge/internal/gpu"
	"github.com/ivlev/frameforge/internal/logger"
	"github.com/ivlev/frameforge/internal/metrics"
	"github.com/ivlev/frameforge/internal/project"
	"github.com/ivlev/frameforge/internal/source"
	"github.com/ivlev/frameforge/internal/system"
)

// Set at build time with -ldflags "-X main.buildVersion=...".
var buildVersion = "dev"

const projectsDir = "input/projects"

var (
	envFile   string
	logLevel  string
	logFormat string
	width     int
	height    int
	fps       float64
	preset    string
	fontSans  string
	fontSerif string
	fontMono  string
)

var rootCmd = &cobra.Command{
	Use:           "frameforge",
	Short:         "Compose screen recordings, camera, cursor and captions into video",
	Long:          "frameforge renders a project timeline (screen, camera, cursor, captions) into frames for interactive preview or a deterministic video export.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "[-] Ошибка: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&envFile, "env", ".env", "путь к .env файлу")
	pf.StringVar(&logLevel, "log-level", "", "уровень логов: debug, info, warn, error")
	pf.StringVar(&logFormat, "log-format", "", "формат логов: text или json")
	pf.IntVar(&width, "width", 0, "ширина кадра")
	pf.IntVar(&height, "height", 0, "высота кадра")
	pf.Float64Var(&fps, "fps", 0, "кадров в секунду")
	pf.StringVar(&preset, "preset", "", "пресет формата: 16:9, 9:16 (Shorts/TikTok), 4:5 (Instagram)")
	pf.StringVar(&fontSans, "font-sans", "", "файл шрифта без засечек")
	pf.StringVar(&fontSerif, "font-serif", "", "файл шрифта с засечками")
	pf.StringVar(&fontMono, "font-mono", "", "моноширинный шрифт")

	rootCmd.AddCommand(exportCmd, frameCmd, previewCmd, captionsCmd, zoomCmd)
}

// loadConfig layers defaults, .env, FRAMEFORGE_* variables and flags.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	if err := config.Load(envFile); err != nil {
		return nil, err
	}
	cfg := config.Default()
	cfg.BuildVersion = buildVersion
	cfg.FromEnv()

	flags := cmd.Flags()
	if flags.Changed("log-level") {
		cfg.LogLevel = logLevel
	}
	if flags.Changed("log-format") {
		cfg.LogFormat = logFormat
	}
	if flags.Changed("width") {
		cfg.Width = width
	}
	if flags.Changed("height") {
		cfg.Height = height
	}
	if flags.Changed("fps") {
		cfg.FPS = fps
	}
	if flags.Changed("preset") {
		cfg.Preset = preset
	}
	if flags.Changed("font-sans") {
		cfg.FontSans = fontSans
	}
	if flags.Changed("font-serif") {
		cfg.FontSerif = fontSerif
	}
	if flags.Changed("font-mono") {
		cfg.FontMono = fontMono
	}

	if err := cfg.ApplyPreset(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

// session is everything one command needs to render a project.
type session struct {
	cfg      *config.Config
	log      *slog.Logger
	metrics  *metrics.Metrics
	projPath string
	proj     *project.Configuration
	decoder  *source.Decoder
	comp     *compositor.Compositor
}

// openSession loads the project named by args (or the newest one in
// input/projects) and builds the compositor. Media sources are opened only
// when withMedia is set.
func openSession(cmd *cobra.Command, args []string, withMedia bool) (*session, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	log := logger.New(cfg.LogLevel, cfg.LogFormat, nil)
	logger.Install(log)
	system.InitResourceLimits(log)

	projPath, err := resolveProject(cfg, args)
	if err != nil {
		return nil, err
	}
	proj, err := project.Read(projPath)
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения проекта: %w", err)
	}

	s := &session{cfg: cfg, log: log, metrics: metrics.New(), projPath: projPath, proj: proj}
	if !withMedia {
		return s, nil
	}

	s.decoder, err = source.OpenProject(proj, filepath.Dir(projPath))
	if err != nil {
		return nil, fmt.Errorf("ошибка инициализации источника: %w", err)
	}
	s.comp, err = compositor.New(gpu.NewDevice(gpu.WithLogger(log)), proj,
		captions.OutputSize{Width: cfg.Width, Height: cfg.Height},
		compositor.Options{
			Fonts:         glyphs.FontOptions{SansPath: cfg.FontSans, SerifPath: cfg.FontSerif, MonoPath: cfg.FontMono},
			AtlasCapacity: cfg.AtlasCapacity,
			Frames:        s.decoder,
			Logger:        log,
			Metrics:       s.metrics,
		})
	if err != nil {
		s.decoder.Close()
		return nil, err
	}
	return s, nil
}

func (s *session) Close() {
	if s.comp != nil {
		s.comp.Close()
	}
	if s.decoder != nil {
		s.decoder.Close()
	}
}

func resolveProject(cfg *config.Config, args []string) (string, error) {
	if len(args) > 0 {
		return args[0], nil
	}
	if cfg.ProjectPath != "" {
		return cfg.ProjectPath, nil
	}
	latest, err := system.FindLatest(projectsDir, system.ProjectExtensions...)
	if err != nil {
		return "", fmt.Errorf("%w. Положите проект в %s/", err, projectsDir)
	}
	fmt.Printf("[*] Выбран проект: %s\n", latest)
	return latest, nil
}
