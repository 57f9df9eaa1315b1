package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"palette-porter/internal/algorithms"
	"palette-porter/internal/config"
	"palette-porter/internal/gui"
	"palette-porter/internal/logger"
	"palette-porter/internal/opencv/memory"
	"palette-porter/internal/pipeline"

	fyneapp "fyne.io/fyne/v2/app"
	"github.com/rs/zerolog"
)

const (
	AppName    = "palette-porter"
	AppID      = "io.github.palette-porter"
	AppVersion = "1.0.0"
)

type shutdownHandler interface {
	Shutdown()
}

// Options carry the process-wide settings given on the command line.
type Options struct {
	ConfigPath string
	LogLevel   string
}

// Job is one invocation: run Algorithm on Primary (and Reference), save the
// result to Output and/or show it.
type Job struct {
	Algorithm string
	Primary   string
	Reference string
	Params    map[string]interface{}
	Output    string
	Show      bool
}

type Application struct {
	config        *config.Config
	logger        logger.Logger
	memoryManager *memory.Manager
	algorithms    *algorithms.Manager
	coordinator   *pipeline.Coordinator
	shutdownables []shutdownHandler

	mu         sync.Mutex
	guiManager *gui.Manager
	viewer     func(gui.Display)
	shutdown   chan struct{}
}

func NewApplication(opts Options) (*Application, error) {
	cfg := config.Default()
	if opts.ConfigPath != "" {
		loaded, err := config.Load(opts.ConfigPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	level, err := resolveLogLevel(opts.LogLevel, os.Getenv("LOG_LEVEL"), cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	return newApplication(cfg, logger.NewStderrLogger(level))
}

func newApplication(cfg *config.Config, log logger.Logger) (*Application, error) {
	algMgr := algorithms.NewManager(log)
	for name, params := range map[string]map[string]interface{}{
		algorithms.ColorTransfer:  cfg.TransferParams(),
		algorithms.ColorRangeMask: cfg.MaskParams(),
		algorithms.RegionChange:   cfg.DiffParams(),
	} {
		if err := algMgr.SetParameters(name, params); err != nil {
			return nil, fmt.Errorf("invalid configuration: %w", err)
		}
	}

	memoryManager := memory.NewManager(log, memory.DefaultMaxMemory)
	coordinator := pipeline.NewCoordinator(memoryManager, algMgr, log)

	application := &Application{
		config:        cfg,
		logger:        log,
		memoryManager: memoryManager,
		algorithms:    algMgr,
		coordinator:   coordinator,
		shutdown:      make(chan struct{}),
		shutdownables: []shutdownHandler{
			memoryManager,
			coordinator,
		},
	}
	application.viewer = application.runViewer

	log.Debug("Application", "initialization complete", map[string]interface{}{
		"version": AppVersion,
		"job_id":  coordinator.JobID(),
	})
	return application, nil
}

func (a *Application) Algorithms() *algorithms.Manager {
	return a.algorithms
}

func (a *Application) Config() *config.Config {
	return a.config
}

// Run executes job. Without an output path the result is always shown.
func (a *Application) Run(ctx context.Context, job Job) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	a.setupSignalHandling(ctx, cancel)

	algorithm, err := a.algorithms.GetAlgorithm(job.Algorithm)
	if err != nil {
		return err
	}
	if algorithm.RequiresReference() && job.Reference == "" {
		return fmt.Errorf("%w: %s needs a reference image", algorithms.ErrInvalidInput, job.Algorithm)
	}

	if err := a.coordinator.LoadInputs(ctx, job.Primary, job.Reference); err != nil {
		return err
	}

	result, err := a.coordinator.Process(ctx, job.Algorithm, job.Params)
	if err != nil {
		return err
	}

	if job.Output != "" {
		if err := a.coordinator.Save(job.Output); err != nil {
			return err
		}
	}

	if job.Output == "" || job.Show {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		a.viewer(a.display(job, result))
	}

	return nil
}

func (a *Application) display(job Job, result *pipeline.ImageData) gui.Display {
	primaryTitle, referenceTitle := panelTitles(job.Algorithm)

	var panels []gui.Panel
	if reference := a.coordinator.Reference(); reference != nil {
		panels = append(panels, gui.Panel{Title: referenceTitle, Image: reference.Image})
	}
	if primary := a.coordinator.Primary(); primary != nil {
		panels = append(panels, gui.Panel{Title: primaryTitle, Image: primary.Image})
	}
	panels = append(panels, gui.Panel{Title: "Result", Image: result.Image})

	return gui.Display{
		Title:      fmt.Sprintf("%s - %s", AppName, job.Algorithm),
		Status:     fmt.Sprintf("%s | %dx%d | job %s", job.Algorithm, result.Width, result.Height, a.coordinator.JobID()),
		Panels:     panels,
		Parameters: a.algorithms.GetParameters(job.Algorithm),
	}
}

func panelTitles(algorithm string) (primary, reference string) {
	switch algorithm {
	case algorithms.ColorTransfer:
		return "Target", "Source"
	case algorithms.RegionChange:
		return "Frame", "Baseline"
	default:
		return "Input", "Reference"
	}
}

func (a *Application) runViewer(display gui.Display) {
	fyneApp := fyneapp.NewWithID(AppID)

	manager := gui.NewManager(fyneApp, a.logger, a.config.Viewer.Width)
	a.mu.Lock()
	a.guiManager = manager
	a.mu.Unlock()

	manager.Run(display)

	a.mu.Lock()
	a.guiManager = nil
	a.mu.Unlock()
}

func (a *Application) setupSignalHandling(ctx context.Context, cancel context.CancelFunc) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		defer signal.Stop(sigChan)

		select {
		case sig := <-sigChan:
			a.logger.Info("Application", "shutdown signal received", map[string]interface{}{
				"signal": sig.String(),
			})
			cancel()

			a.mu.Lock()
			manager := a.guiManager
			a.mu.Unlock()
			if manager != nil {
				manager.Shutdown()
			}
		case <-ctx.Done():
		}
	}()
}

// Shutdown releases every component in reverse order of creation.
func (a *Application) Shutdown() {
	select {
	case <-a.shutdown:
		return
	default:
		close(a.shutdown)
	}

	for i := len(a.shutdownables) - 1; i >= 0; i-- {
		component := a.shutdownables[i]

		done := make(chan struct{})
		go func() {
			defer close(done)
			component.Shutdown()
		}()

		select {
		case <-done:
		case <-time.After(10 * time.Second):
			a.logger.Warning("Application", "component shutdown timeout", map[string]interface{}{
				"component_index": i,
			})
		}
	}

	a.logger.Debug("Application", "shutdown sequence completed", nil)
}

// resolveLogLevel picks the first non-empty of flag, env and configured.
func resolveLogLevel(flag, env, configured string) (zerolog.Level, error) {
	for _, candidate := range []string{flag, env, configured} {
		if candidate != "" {
			return logger.ParseLevel(candidate)
		}
	}
	return zerolog.InfoLevel, nil
}
