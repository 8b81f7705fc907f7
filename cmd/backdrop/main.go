package main

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"fmt"
	"image"
	_ "image/jpeg"
	"image/png"
	"log"
	"os"
	"os/signal"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/samber/lo"
	"go.uber.org/zap"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
	"golang.org/x/sync/errgroup"

	"github.com/esimov/backdrop"
	"github.com/esimov/backdrop/internal/config"
	"github.com/esimov/backdrop/internal/logging"
	"github.com/esimov/backdrop/utils"
)

// Supported image files.
var extensions = []string{".jpg", ".jpeg", ".png", ".webp", ".bmp"}

var (
	// Flags
	source      = flag.String("in", "", "Source image, directory or URL")
	destination = flag.String("out", "", "Destination file or directory")
	configFile  = flag.String("config", "", "YAML configuration file")
	filterName  = flag.String("filter", "", "Color filter: none, negative, sepia")
	background  = flag.String("bg", "", "Background image placed behind the foreground")
	bgColor     = flag.String("bg-color", "", "Background color name (blue, red, green...) or #rrggbb")
	keyColor    = flag.String("key", "", "Key color removed from the source before compositing")
	tolerance   = flag.Int("tolerance", 40, "Key color tolerance")
	resample    = flag.String("resample", "", "Background resampling: nearest, bilinear, catmullrom")
	workers     = flag.Int("workers", 4, "Number of images processed concurrently")
	debug       = flag.Bool("debug", false, "Enable debug logging")
	logFile     = flag.String("log", "", "Rotating log file")
)

func main() {
	flag.Parse()

	if len(*source) == 0 || len(*destination) == 0 {
		log.Fatal("Usage: backdrop -in input.jpg -out out.png")
	}

	cfg, err := config.Load(*configFile)
	if err != nil {
		log.Fatalf("Unable to load configuration: %v", err)
	}
	if err := applyFlags(&cfg); err != nil {
		log.Fatalf("Invalid options: %v", err)
	}

	logger := logging.New(cfg.Debug, cfg.LogFile)
	defer logger.Sync()

	toProcess, err := collect(*source, *destination)
	if err != nil {
		log.Fatal(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	j, err := newJob(ctx, cfg, logger)
	if err != nil {
		log.Fatal(err)
	}

	s := utils.NewSpinner()
	s.Start("Processing images...")
	start := time.Now()
	failed := j.run(ctx, toProcess)
	s.Stop()

	fmt.Printf("\nProcessed %s images in %s\n",
		utils.SuccessColor.Sprint(len(toProcess)-failed), utils.SuccessColor.Sprint(utils.FormatTime(time.Since(start))))
	if failed > 0 {
		utils.ErrorColor.Printf("%d images failed\n", failed)
		logger.Sync()
		os.Exit(1)
	}
}

// applyFlags overrides the loaded configuration with the flags set on the command line.
func applyFlags(cfg *config.Config) error {
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "filter":
			cfg.Filter = *filterName
		case "bg":
			cfg.Background = *background
		case "bg-color":
			cfg.BackgroundColor = *bgColor
		case "key":
			cfg.KeyColor = *keyColor
		case "tolerance":
			cfg.KeyTolerance = *tolerance
		case "resample":
			cfg.Resample = *resample
		case "workers":
			cfg.Workers = *workers
		case "debug":
			cfg.Debug = *debug
		case "log":
			cfg.LogFile = *logFile
		}
	})
	return cfg.Validate()
}

// collect maps every source image to its destination file.
func collect(src, dst string) (map[string]string, error) {
	toProcess := make(map[string]string)
	if utils.IsURL(src) {
		toProcess[src] = dst
		return toProcess, nil
	}

	fs, err := os.Stat(src)
	if err != nil {
		return nil, fmt.Errorf("unable to open source: %w", err)
	}
	if !fs.IsDir() {
		toProcess[src] = dst
		return toProcess, nil
	}

	files, err := os.ReadDir(src)
	if err != nil {
		return nil, fmt.Errorf("unable to read dir: %w", err)
	}
	if d, err := os.Stat(dst); err == nil && d.Mode().IsRegular() {
		return nil, errors.New("please specify a directory as destination")
	}
	if err := os.MkdirAll(dst, 0o755); err != nil {
		return nil, fmt.Errorf("unable to create destination: %w", err)
	}

	images := lo.Filter(files, func(f os.DirEntry, _ int) bool {
		return !f.IsDir() && lo.Contains(extensions, strings.ToLower(filepath.Ext(f.Name())))
	})
	for _, img := range images {
		name := strings.TrimSuffix(img.Name(), filepath.Ext(img.Name()))
		toProcess[filepath.Join(src, img.Name())] = filepath.Join(dst, name+".png")
	}
	return toProcess, nil
}

type job struct {
	cfg        config.Config
	logger     *zap.Logger
	background *backdrop.Buffer

	mu sync.Mutex
}

func newJob(ctx context.Context, cfg config.Config, logger *zap.Logger) (*job, error) {
	j := &job{cfg: cfg, logger: logger}
	if cfg.Background != "" {
		bg, err := decode(ctx, cfg.Background)
		if err != nil {
			return nil, fmt.Errorf("unable to load background: %w", err)
		}
		j.background = bg
	}
	return j, nil
}

// run processes the images concurrently and returns the number of failures.
func (j *job) run(ctx context.Context, toProcess map[string]string) int {
	var (
		g      errgroup.Group
		failed int
	)
	g.SetLimit(j.cfg.Workers)

	for in, out := range toProcess {
		g.Go(func() error {
			start := time.Now()
			err := j.process(ctx, in, out)

			j.mu.Lock()
			defer j.mu.Unlock()
			if err != nil {
				failed++
				j.logger.Error("image failed", zap.String("in", in), zap.Error(err))
				utils.ErrorColor.Printf("\nError processing image %s: %s\n", path.Base(in), err.Error())
				return nil
			}
			j.logger.Info("image saved", zap.String("in", in), zap.String("out", out), zap.Duration("took", time.Since(start)))
			fmt.Printf("\nSaved as: %s %s\n", path.Base(out), utils.SuccessColor.Sprint("✓"))
			return nil
		})
	}
	g.Wait()

	return failed
}

func (j *job) process(ctx context.Context, in, out string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	src, err := decode(ctx, in)
	if err != nil {
		return err
	}

	p, err := backdrop.NewPipeline(src,
		backdrop.WithLogger(j.logger.With(zap.String("in", in))),
		backdrop.WithRemover(j.cfg.Remover()),
		backdrop.WithResampler(j.cfg.Resampler()),
	)
	if err != nil {
		return err
	}

	var (
		kind    = j.cfg.FilterKind()
		fg      *backdrop.Buffer
		replace = j.background != nil || j.cfg.BackgroundColor != ""
	)
	if replace && j.cfg.KeyColor != "" {
		// The key colour is matched against the unfiltered source, the filter
		// is applied to the extracted foreground afterwards.
		if fg, err = p.RemoveBackground(ctx); err != nil {
			return err
		}
		f, err := backdrop.FilterFor(kind)
		if err != nil {
			return err
		}
		if fg, err = f.Apply(fg); err != nil {
			return err
		}
	}

	if kind != backdrop.FilterNone {
		if _, err := p.ApplyFilter(kind); err != nil {
			return err
		}
	}

	if replace {
		// Without a key colour the source is expected to carry its own transparency.
		if fg == nil {
			fg = p.Working()
		}
		if err := p.SetForeground(fg); err != nil {
			return err
		}
		if j.background != nil {
			_, err = p.SetBackground(ctx, j.background)
		} else {
			c, _ := config.ParseColor(j.cfg.BackgroundColor)
			_, err = p.SetBackgroundColor(ctx, c)
		}
		if err != nil {
			return err
		}
	}

	return encode(p.Working(), out)
}

func decode(ctx context.Context, src string) (*backdrop.Buffer, error) {
	var (
		data []byte
		err  error
	)
	if utils.IsURL(src) {
		data, err = utils.DownloadImage(ctx, src)
	} else {
		data, err = os.ReadFile(src)
	}
	if err != nil {
		return nil, err
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("unable to decode %s: %w", src, err)
	}
	return backdrop.FromImage(img)
}

func encode(img *backdrop.Buffer, out string) error {
	fq, err := os.Create(out)
	if err != nil {
		return err
	}
	if err = png.Encode(fq, img); err != nil {
		fq.Close()
		return err
	}
	return fq.Close()
}
