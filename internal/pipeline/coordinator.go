package pipeline

import (
	"context"
	"fmt"
	"image"
	"io"
	"sync"
	"time"

	"palette-porter/internal/algorithms"
	"palette-porter/internal/logger"
	"palette-porter/internal/opencv/memory"
	"palette-porter/internal/opencv/safe"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

type ImageProcessor interface {
	ProcessImage(ctx context.Context, primary, reference *ImageData, algorithm algorithms.Algorithm, params map[string]interface{}) (*ImageData, error)
}

type ImageLoader interface {
	LoadFromPath(ctx context.Context, path string) (*ImageData, error)
	LoadFromBytes(data []byte, ext string) (*ImageData, error)
}

type ImageSaver interface {
	SaveToWriter(writer io.Writer, imageData *ImageData, format string) error
	SaveToPath(path string, imageData *ImageData) error
}

type ImageData struct {
	Image    image.Image
	Mat      *safe.Mat
	Width    int
	Height   int
	Channels int
	Format   string
	Path     string
}

// Close releases the Mat behind the image.
func (d *ImageData) Close() {
	if d != nil && d.Mat != nil {
		d.Mat.Close()
	}
}

// Coordinator runs one job: load the inputs, process them with a registered
// algorithm, save the result.
type Coordinator struct {
	mu               sync.Mutex
	jobID            string
	primary          *ImageData
	reference        *ImageData
	result           *ImageData
	memoryManager    *memory.Manager
	logger           logger.Logger
	algorithmManager *algorithms.Manager
	loader           ImageLoader
	processor        ImageProcessor
	saver            ImageSaver
}

func NewCoordinator(memMgr *memory.Manager, algMgr *algorithms.Manager, log logger.Logger) *Coordinator {
	coord := &Coordinator{
		jobID:            uuid.NewString(),
		memoryManager:    memMgr,
		logger:           log,
		algorithmManager: algMgr,
	}

	coord.loader = &imageLoader{
		memoryManager: memMgr,
		logger:        log,
	}

	coord.processor = &imageProcessor{
		logger: log,
	}

	coord.saver = &imageSaver{
		logger: log,
	}

	log.Debug("PipelineCoordinator", "initialized", map[string]interface{}{
		"job_id": coord.jobID,
	})
	return coord
}

func (c *Coordinator) JobID() string {
	return c.jobID
}

// LoadInputs decodes the primary and, when referencePath is not empty, the
// reference image concurrently. Previously loaded inputs are released.
func (c *Coordinator) LoadInputs(ctx context.Context, primaryPath, referencePath string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	start := time.Now()
	c.releaseLocked()

	var primary, reference *ImageData
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		data, err := c.loader.LoadFromPath(gctx, primaryPath)
		if err != nil {
			return err
		}
		primary = data
		return nil
	})

	if referencePath != "" {
		g.Go(func() error {
			data, err := c.loader.LoadFromPath(gctx, referencePath)
			if err != nil {
				return err
			}
			reference = data
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		primary.Close()
		reference.Close()
		c.logger.Error("PipelineCoordinator", err, map[string]interface{}{
			"job_id":    c.jobID,
			"operation": "load_inputs",
		})
		return err
	}

	c.primary = primary
	c.reference = reference

	fields := map[string]interface{}{
		"job_id":    c.jobID,
		"primary":   primaryPath,
		"width":     primary.Width,
		"height":    primary.Height,
		"load_time": time.Since(start),
	}
	if reference != nil {
		fields["reference"] = referencePath
	}
	c.logger.Info("PipelineCoordinator", "inputs loaded", fields)

	return nil
}

// Process runs the named algorithm with the registry's current parameters
// overlaid by params.
func (c *Coordinator) Process(ctx context.Context, algorithmName string, params map[string]interface{}) (*ImageData, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.primary == nil {
		return nil, fmt.Errorf("no image loaded")
	}

	algorithm, err := c.algorithmManager.GetAlgorithm(algorithmName)
	if err != nil {
		return nil, fmt.Errorf("failed to get algorithm: %w", err)
	}

	merged := c.algorithmManager.GetParameters(algorithmName)
	for name, value := range params {
		merged[name] = value
	}

	start := time.Now()
	processed, err := c.processor.ProcessImage(ctx, c.primary, c.reference, algorithm, merged)
	if err != nil {
		c.logger.Error("PipelineCoordinator", err, map[string]interface{}{
			"job_id":    c.jobID,
			"algorithm": algorithmName,
		})
		return nil, err
	}

	c.result.Close()
	c.result = processed

	c.logger.Info("PipelineCoordinator", "image processed", map[string]interface{}{
		"job_id":          c.jobID,
		"algorithm":       algorithmName,
		"width":           processed.Width,
		"height":          processed.Height,
		"processing_time": time.Since(start),
	})

	return processed, nil
}

// Save writes the last result to path, choosing the format by extension.
func (c *Coordinator) Save(path string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.result == nil {
		return fmt.Errorf("no processed image to save")
	}

	start := time.Now()
	if err := c.saver.SaveToPath(path, c.result); err != nil {
		c.logger.Error("PipelineCoordinator", err, map[string]interface{}{
			"job_id":    c.jobID,
			"operation": "save_image",
		})
		return err
	}

	c.logger.Info("PipelineCoordinator", "image saved", map[string]interface{}{
		"job_id":    c.jobID,
		"path":      path,
		"save_time": time.Since(start),
	})

	return nil
}

// SaveToWriter encodes the last result in format.
func (c *Coordinator) SaveToWriter(writer io.Writer, format string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.result == nil {
		return fmt.Errorf("no processed image to save")
	}
	return c.saver.SaveToWriter(writer, c.result, format)
}

func (c *Coordinator) Primary() *ImageData {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.primary
}

func (c *Coordinator) Reference() *ImageData {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.reference
}

func (c *Coordinator) Result() *ImageData {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.result
}

func (c *Coordinator) releaseLocked() {
	c.primary.Close()
	c.reference.Close()
	c.result.Close()
	c.primary, c.reference, c.result = nil, nil, nil
}

func (c *Coordinator) Shutdown() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.releaseLocked()
	c.logger.Debug("PipelineCoordinator", "shutdown completed", map[string]interface{}{
		"job_id": c.jobID,
	})
}
