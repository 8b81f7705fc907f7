package backdrop

import (
	"context"
	"errors"
	"fmt"
	"image/color"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// State is the position of a Pipeline in its state machine.
type State int

const (
	StateClean State = iota
	StateFiltered
	StateBackgroundApplied
)

func (s State) String() string {
	switch s {
	case StateClean:
		return "clean"
	case StateFiltered:
		return "filtered"
	case StateBackgroundApplied:
		return "background"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Pipeline owns the original image of a working session and derives the
// working image from it. Filters are always computed from the original, so
// they never stack. A Pipeline is not safe for concurrent use.
type Pipeline struct {
	original   *Buffer
	working    *Buffer
	foreground *Buffer
	background *Buffer

	kind    FilterKind
	state   State
	session uuid.UUID

	remover   Remover
	resampler Resampler
	logger    *zap.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the logger used for transition diagnostics.
func WithLogger(l *zap.Logger) Option {
	return func(p *Pipeline) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithRemover sets the collaborator used to extract the foreground.
func WithRemover(r Remover) Option {
	return func(p *Pipeline) { p.remover = r }
}

// WithResampler sets the algorithm used to fit backgrounds to the foreground.
func WithResampler(r Resampler) Option {
	return func(p *Pipeline) { p.resampler = r }
}

// NewPipeline starts a session on a copy of original.
func NewPipeline(original *Buffer, opts ...Option) (*Pipeline, error) {
	p := &Pipeline{
		resampler: ResampleNearest,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	if err := p.Load(original); err != nil {
		return nil, err
	}
	return p, nil
}

// Load replaces the original image and starts a new session.
func (p *Pipeline) Load(img *Buffer) error {
	if img == nil {
		return ErrNoImage
	}
	p.original = img.Clone()
	p.session = uuid.New()
	p.clean()

	p.logger.Debug("image loaded",
		zap.Stringer("session", p.session),
		zap.Int("width", img.Width()),
		zap.Int("height", img.Height()),
	)
	return nil
}

func (p *Pipeline) clean() {
	p.working = p.original.Clone()
	p.foreground = nil
	p.background = nil
	p.kind = FilterNone
	p.state = StateClean
}

// ApplyFilter derives the working image from the original with the given
// filter. FilterNone restores the original.
func (p *Pipeline) ApplyFilter(kind FilterKind) (*Buffer, error) {
	f, err := FilterFor(kind)
	if err != nil {
		return nil, err
	}
	start := time.Now()
	out, err := f.Apply(p.original)
	if err != nil {
		return nil, err
	}

	p.clean()
	p.working = out
	if kind != FilterNone {
		p.kind = kind
		p.state = StateFiltered
	}
	p.logger.Debug("filter applied",
		zap.Stringer("session", p.session),
		zap.Stringer("filter", kind),
		zap.Duration("took", time.Since(start)),
	)
	return p.working, nil
}

// SetForeground records the result of a background removal done outside
// of the pipeline.
func (p *Pipeline) SetForeground(fg *Buffer) error {
	if fg == nil {
		return ErrNoImage
	}
	p.foreground = fg.Clone()
	return nil
}

// RemoveBackground runs the configured Remover on the working image and
// keeps the result as foreground. Failures are returned as *UpstreamError.
func (p *Pipeline) RemoveBackground(ctx context.Context) (*Buffer, error) {
	if p.remover == nil {
		return nil, ErrNoRemover
	}
	fg, err := p.remover.Remove(ctx, p.working)
	if err == nil && fg == nil {
		err = errors.New("remover returned no image")
	}
	if err != nil {
		p.logger.Warn("background removal failed",
			zap.Stringer("session", p.session),
			zap.Error(err),
		)
		return nil, &UpstreamError{Err: err}
	}
	p.foreground = fg.Clone()
	return p.foreground, nil
}

func (p *Pipeline) ensureForeground(ctx context.Context) (*Buffer, error) {
	if p.foreground != nil {
		return p.foreground, nil
	}
	if p.remover == nil {
		return nil, ErrNoForeground
	}
	return p.RemoveBackground(ctx)
}

// SetBackground composites the foreground over bg. When no foreground is
// held yet the configured Remover is run first.
func (p *Pipeline) SetBackground(ctx context.Context, bg *Buffer) (*Buffer, error) {
	if bg == nil {
		return nil, ErrNoImage
	}
	fg, err := p.ensureForeground(ctx)
	if err != nil {
		return nil, err
	}
	out, err := compositeWith(fg, bg, p.resampler)
	if err != nil {
		return nil, err
	}
	p.background = bg.Clone()
	p.working = out
	p.state = StateBackgroundApplied

	p.logger.Debug("background applied",
		zap.Stringer("session", p.session),
		zap.Stringer("resampler", p.resampler),
		zap.Int("bg_width", bg.Width()),
		zap.Int("bg_height", bg.Height()),
	)
	return out, nil
}

// SetBackgroundColor composites the foreground over a solid colour.
func (p *Pipeline) SetBackgroundColor(ctx context.Context, c color.Color) (*Buffer, error) {
	fg, err := p.ensureForeground(ctx)
	if err != nil {
		return nil, err
	}
	bg, err := Fill(fg.Width(), fg.Height(), c)
	if err != nil {
		return nil, err
	}
	return p.SetBackground(ctx, bg)
}

// Reset drops filters, foreground and background and returns a copy of
// the original image.
func (p *Pipeline) Reset() *Buffer {
	p.clean()
	p.logger.Debug("pipeline reset", zap.Stringer("session", p.session))
	return p.original.Clone()
}

// ClearBackground drops the background image and restores the original.
func (p *Pipeline) ClearBackground() *Buffer {
	p.background = nil
	return p.Reset()
}

// Working returns the current working image. It must not be modified.
func (p *Pipeline) Working() *Buffer { return p.working }

// Original returns a copy of the original image.
func (p *Pipeline) Original() *Buffer { return p.original.Clone() }

// Foreground returns the foreground produced by background removal, or nil.
func (p *Pipeline) Foreground() *Buffer { return p.foreground }

// Background returns the background image last applied, or nil.
func (p *Pipeline) Background() *Buffer { return p.background }

// Kind returns the active filter. Once a background is applied it keeps
// reporting the filter the composited foreground was derived from.
func (p *Pipeline) Kind() FilterKind { return p.kind }

// State returns the current state.
func (p *Pipeline) State() State { return p.state }

// Session identifies the image currently loaded.
func (p *Pipeline) Session() uuid.UUID { return p.session }
