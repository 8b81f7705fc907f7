package backdrop

import (
	"context"
	"errors"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

// halfKey removes the left half of every image it is given.
var halfKey = RemoverFunc(func(_ context.Context, src *Buffer) (*Buffer, error) {
	dst := src.Clone()
	for y := 0; y < dst.Height(); y++ {
		for x := 0; x < dst.Width()/2; x++ {
			c, _ := dst.Pixel(x, y)
			c.A = 0
			_ = dst.SetPixel(x, y, c)
		}
	}
	return dst, nil
})

func newTestPipeline(t *testing.T, opts ...Option) (*Pipeline, *Buffer) {
	t.Helper()
	src := newTestBuffer(t, 8, 6)
	p, err := NewPipeline(src, opts...)
	require.NoError(t, err)
	return p, src
}

func TestNewPipelineRequiresImage(t *testing.T) {
	_, err := NewPipeline(nil)
	assert.ErrorIs(t, err, ErrNoImage)
}

func TestPipelineInitialState(t *testing.T) {
	p, src := newTestPipeline(t)
	assert.Equal(t, StateClean, p.State())
	assert.Equal(t, FilterNone, p.Kind())
	assert.True(t, p.Working().Equal(src))
	assert.Nil(t, p.Background())
	assert.Nil(t, p.Foreground())
}

func TestPipelineOwnsOriginal(t *testing.T) {
	p, src := newTestPipeline(t)
	want := src.Clone()
	require.NoError(t, src.SetPixel(0, 0, color.NRGBA{R: 1, G: 1, B: 1, A: 1}))

	assert.True(t, p.Original().Equal(want))
}

func TestWorkingDoesNotAliasOriginal(t *testing.T) {
	p, src := newTestPipeline(t)
	marker := color.NRGBA{R: 1, G: 2, B: 3, A: 4}

	require.NoError(t, p.Working().SetPixel(0, 0, marker))
	assert.True(t, p.Original().Equal(src))

	out, err := p.ApplyFilter(FilterNegative)
	require.NoError(t, err)
	assert.True(t, out.Equal(Negative(src)))

	require.NoError(t, p.Reset().SetPixel(0, 0, marker))
	require.NoError(t, p.Working().SetPixel(1, 1, marker))
	assert.True(t, p.Reset().Equal(src))
	assert.True(t, p.Working().Equal(src))
}

func TestApplyFilter(t *testing.T) {
	p, src := newTestPipeline(t)

	out, err := p.ApplyFilter(FilterNegative)
	require.NoError(t, err)
	assert.Equal(t, StateFiltered, p.State())
	assert.Equal(t, FilterNegative, p.Kind())
	assert.True(t, out.Equal(Negative(src)))
	assert.Same(t, out, p.Working())

	out, err = p.ApplyFilter(FilterNone)
	require.NoError(t, err)
	assert.Equal(t, StateClean, p.State())
	assert.True(t, out.Equal(src))

	_, err = p.ApplyFilter(FilterKind(-1))
	assert.ErrorIs(t, err, ErrUnknownFilter)
	assert.Equal(t, StateClean, p.State())
}

func TestFiltersDoNotStack(t *testing.T) {
	p, src := newTestPipeline(t)

	_, err := p.ApplyFilter(FilterSepia)
	require.NoError(t, err)
	out, err := p.ApplyFilter(FilterNegative)
	require.NoError(t, err)

	assert.True(t, out.Equal(Negative(src)))
	assert.Equal(t, FilterNegative, p.Kind())
}

func TestResetRestoresOriginal(t *testing.T) {
	p, src := newTestPipeline(t, WithRemover(halfKey))

	for _, k := range []FilterKind{FilterSepia, FilterNegative, FilterNegative, FilterSepia} {
		_, err := p.ApplyFilter(k)
		require.NoError(t, err)
	}
	_, err := p.SetBackgroundColor(context.Background(), color.NRGBA{B: 255, A: 255})
	require.NoError(t, err)

	out := p.Reset()
	assert.True(t, out.Equal(src))
	assert.True(t, p.Working().Equal(src))
	assert.Equal(t, StateClean, p.State())
	assert.Equal(t, FilterNone, p.Kind())
	assert.Nil(t, p.Background())
	assert.Nil(t, p.Foreground())
}

func TestSetBackgroundWithForeground(t *testing.T) {
	p, src := newTestPipeline(t)
	fg, err := halfKey(context.Background(), src)
	require.NoError(t, err)
	require.NoError(t, p.SetForeground(fg))

	bg := solid(t, 3, 3, color.NRGBA{R: 9, G: 8, B: 7, A: 255})
	out, err := p.SetBackground(context.Background(), bg)
	require.NoError(t, err)

	assert.Equal(t, StateBackgroundApplied, p.State())
	assert.Equal(t, src.Bounds(), out.Bounds())
	assert.True(t, p.Background().Equal(bg))

	left, err := out.Pixel(0, 0)
	require.NoError(t, err)
	assert.Equal(t, color.NRGBA{R: 9, G: 8, B: 7, A: 255}, left)

	right, err := out.Pixel(7, 5)
	require.NoError(t, err)
	want, err := src.Pixel(7, 5)
	require.NoError(t, err)
	assert.Equal(t, want, right)
}

func TestSetBackgroundRunsRemover(t *testing.T) {
	p, src := newTestPipeline(t, WithRemover(halfKey))

	_, err := p.SetBackground(context.Background(), newTestBuffer(t, 2, 2))
	require.NoError(t, err)
	require.NotNil(t, p.Foreground())
	assert.Equal(t, src.Bounds(), p.Foreground().Bounds())
}

func TestSetBackgroundWithoutForeground(t *testing.T) {
	p, _ := newTestPipeline(t)

	_, err := p.SetBackground(context.Background(), newTestBuffer(t, 2, 2))
	assert.ErrorIs(t, err, ErrNoForeground)
	assert.Equal(t, StateClean, p.State())

	_, err = p.RemoveBackground(context.Background())
	assert.ErrorIs(t, err, ErrNoRemover)
}

func TestUpstreamFailureIsPropagated(t *testing.T) {
	boom := errors.New("segmentation model unavailable")
	calls := 0
	failing := RemoverFunc(func(context.Context, *Buffer) (*Buffer, error) {
		calls++
		return nil, boom
	})
	core, logs := observer.New(zap.WarnLevel)
	p, _ := newTestPipeline(t, WithRemover(failing), WithLogger(zap.New(core)))

	_, err := p.ApplyFilter(FilterSepia)
	require.NoError(t, err)
	before := p.Working()

	_, err = p.SetBackground(context.Background(), newTestBuffer(t, 2, 2))
	assert.ErrorIs(t, err, ErrUpstreamFailure)
	assert.ErrorIs(t, err, boom)

	var upstream *UpstreamError
	assert.ErrorAs(t, err, &upstream)
	assert.Equal(t, 1, calls, "upstream failures are not retried")

	assert.Equal(t, StateFiltered, p.State())
	assert.Same(t, before, p.Working())
	assert.Equal(t, 1, logs.FilterMessage("background removal failed").Len())
}

func TestRemoveBackgroundKeepsOwnCopy(t *testing.T) {
	var kept *Buffer
	remover := RemoverFunc(func(ctx context.Context, src *Buffer) (*Buffer, error) {
		fg, err := halfKey(ctx, src)
		kept = fg
		return fg, err
	})
	p, _ := newTestPipeline(t, WithRemover(remover))

	fg, err := p.RemoveBackground(context.Background())
	require.NoError(t, err)
	want := fg.Clone()

	require.NoError(t, kept.SetPixel(7, 5, color.NRGBA{R: 1, A: 1}))
	assert.True(t, p.Foreground().Equal(want))
}

func TestKindSurvivesBackground(t *testing.T) {
	p, _ := newTestPipeline(t, WithRemover(halfKey))

	_, err := p.ApplyFilter(FilterSepia)
	require.NoError(t, err)
	_, err = p.SetBackgroundColor(context.Background(), color.NRGBA{B: 255, A: 255})
	require.NoError(t, err)

	assert.Equal(t, StateBackgroundApplied, p.State())
	assert.Equal(t, FilterSepia, p.Kind())
}

func TestRemoverReturningNothing(t *testing.T) {
	empty := RemoverFunc(func(context.Context, *Buffer) (*Buffer, error) { return nil, nil })
	p, _ := newTestPipeline(t, WithRemover(empty))

	_, err := p.RemoveBackground(context.Background())
	assert.ErrorIs(t, err, ErrUpstreamFailure)
}

func TestClearBackground(t *testing.T) {
	p, src := newTestPipeline(t, WithRemover(halfKey))

	_, err := p.SetBackgroundColor(context.Background(), color.NRGBA{G: 255, A: 255})
	require.NoError(t, err)
	require.Equal(t, StateBackgroundApplied, p.State())
	require.NotNil(t, p.Background())

	out := p.ClearBackground()
	assert.True(t, out.Equal(src))
	assert.Equal(t, StateClean, p.State())
	assert.Nil(t, p.Background())
}

func TestClearBackgroundWithoutBackground(t *testing.T) {
	p, src := newTestPipeline(t)

	out := p.ClearBackground()
	assert.True(t, out.Equal(src))
	assert.Equal(t, StateClean, p.State())

	_, err := p.ApplyFilter(FilterSepia)
	require.NoError(t, err)
	out = p.ClearBackground()
	assert.True(t, out.Equal(src))
	assert.True(t, p.Working().Equal(src))
	assert.Equal(t, StateClean, p.State())
	assert.Equal(t, FilterNone, p.Kind())
}

func TestFilterAfterBackgroundDropsIt(t *testing.T) {
	p, src := newTestPipeline(t, WithRemover(halfKey))

	_, err := p.SetBackgroundColor(context.Background(), color.NRGBA{R: 255, A: 255})
	require.NoError(t, err)

	out, err := p.ApplyFilter(FilterNegative)
	require.NoError(t, err)
	assert.True(t, out.Equal(Negative(src)))
	assert.Nil(t, p.Background())
	assert.Equal(t, StateFiltered, p.State())
}

func TestLoadStartsNewSession(t *testing.T) {
	p, _ := newTestPipeline(t)
	first := p.Session()

	_, err := p.ApplyFilter(FilterSepia)
	require.NoError(t, err)

	next := newTestBuffer(t, 2, 2)
	require.NoError(t, p.Load(next))
	assert.NotEqual(t, first, p.Session())
	assert.Equal(t, StateClean, p.State())
	assert.True(t, p.Working().Equal(next))

	assert.ErrorIs(t, p.Load(nil), ErrNoImage)
}

func TestPipelineLogsTransitions(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	p, _ := newTestPipeline(t, WithLogger(zap.New(core)))

	_, err := p.ApplyFilter(FilterNegative)
	require.NoError(t, err)
	p.Reset()

	assert.Equal(t, 1, logs.FilterMessage("image loaded").Len())
	assert.Equal(t, 1, logs.FilterMessage("filter applied").Len())
	assert.Equal(t, 1, logs.FilterMessage("pipeline reset").Len())
}
