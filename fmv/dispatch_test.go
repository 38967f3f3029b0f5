package fmv

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

// sumLadder declares the AVX2/SSE2/baseline "sum" function. Each variant
// computes a+b but also reports which variant ran.
func sumLadder(r *Registry, ran *atomic.Value) *Func[addFunc] {
	variant := func(name string) addFunc {
		return func(a, b int) int {
			ran.Store(name)
			return a + b
		}
	}
	return Declare[addFunc](r, "sum").
		RegisterNamed("avx2", Of(AVX2), variant("avx2")).
		RegisterNamed("sse2", Of(SSE2), variant("sse2")).
		RegisterNamed("baseline", Baseline, variant("baseline"))
}

func TestDispatchSumScenario(t *testing.T) {
	tests := []struct {
		detected Caps
		want     string
	}{
		{Of(SSE2), "sse2"},
		{Baseline, "baseline"},
		{Of(SSE2, SSE3, AVX, AVX2), "avx2"},
		{Of(NEON), "baseline"},
	}
	for _, tt := range tests {
		t.Run(tt.detected.String(), func(t *testing.T) {
			var ran atomic.Value
			r := newTestRegistry(t, tt.detected)
			sum := sumLadder(r, &ran)
			require.NoError(t, r.Seal())

			for range 5 {
				assert.Equal(t, 3, sum.MustResolve()(1, 2))
				assert.Equal(t, tt.want, ran.Load())
			}
			sel, ok := sum.Selected()
			require.True(t, ok)
			assert.Equal(t, tt.want, sel.Name)
			assert.Equal(t, Resolved, sum.State())
		})
	}
}

func TestDispatchMemoizes(t *testing.T) {
	var selects, probes atomic.Int64
	counting := func(reqs []Caps, detected Caps) int {
		selects.Add(1)
		return SelectIndex(reqs, detected)
	}
	probe := ProbeFunc(func() (Caps, error) {
		probes.Add(1)
		return Of(SSE2), nil
	})
	r, err := New(WithProbe(probe), WithoutEnv(), WithSelector(counting))
	require.NoError(t, err)

	var ran atomic.Value
	sum := sumLadder(r, &ran)
	require.NoError(t, r.Seal())
	assert.Equal(t, Unresolved, sum.State())
	_, ok := sum.Selected()
	assert.False(t, ok)

	for i := range 1000 {
		impl, err := sum.Resolve()
		require.NoError(t, err)
		require.Equal(t, i+1, impl(i, 1))
	}
	assert.Equal(t, int64(1), selects.Load())
	assert.Equal(t, int64(1), probes.Load())
}

func TestDispatchConcurrentFirstUse(t *testing.T) {
	const (
		rounds  = 200
		callers = 128
	)
	for round := range rounds {
		var selects atomic.Int64
		counting := func(reqs []Caps, detected Caps) int {
			selects.Add(1)
			return SelectIndex(reqs, detected)
		}
		r := newTestRegistry(t, DispatchAVX2.Caps(), WithSelector(counting))
		var ran atomic.Value
		sum := sumLadder(r, &ran)
		require.NoError(t, r.Seal())

		var (
			g     errgroup.Group
			start = make(chan struct{})
			seen  = make([]string, callers)
		)
		for i := range callers {
			g.Go(func() error {
				<-start
				impl, err := sum.Resolve()
				if err != nil {
					return err
				}
				if got := impl(i, 1); got != i+1 {
					return fmt.Errorf("caller %d: got %d, want %d", i, got, i+1)
				}
				sel, ok := sum.Selected()
				if !ok {
					return fmt.Errorf("caller %d: resolved but nothing selected", i)
				}
				seen[i] = sel.Name
				return nil
			})
		}
		close(start)
		require.NoError(t, g.Wait(), "round %d", round)

		for i, name := range seen {
			require.Equal(t, "avx2", name, "round %d caller %d", round, i)
		}
		require.GreaterOrEqual(t, selects.Load(), int64(1))
		require.LessOrEqual(t, selects.Load(), int64(callers))
	}
}

// syncBuffer serializes writes from concurrently logging goroutines.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestDispatchLogsOnce(t *testing.T) {
	var logs syncBuffer
	logger := slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug}))
	r := newTestRegistry(t, Of(SSE2), WithLogger(logger))
	var ran atomic.Value
	sum := sumLadder(r, &ran)
	require.NoError(t, r.Seal())

	var wg sync.WaitGroup
	for range 64 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = sum.Resolve()
		}()
	}
	wg.Wait()

	out := logs.String()
	assert.Equal(t, 1, strings.Count(out, "fmv: resolved"), out)
	assert.Contains(t, out, "variant=sse2")
}

func TestDispatchNoViableVariant(t *testing.T) {
	r := newTestRegistry(t, Of(NEON))
	sum := Declare[addFunc](r, "sum").
		Register(Of(AVX2), add).
		Register(Of(SSE2), add)
	require.NoError(t, r.Seal())

	_, err := sum.Resolve()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNoViableVariant)
	assert.Equal(t, Failed, sum.State())

	var ce *ConfigError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, Of(NEON), ce.Detected)

	var g errgroup.Group
	for range 100 {
		g.Go(func() error {
			_, again := sum.Resolve()
			if again != err {
				return fmt.Errorf("got %v, want the memoized error", again)
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())

	panicked := recoverError(t, func() { sum.MustResolve() })
	assert.ErrorIs(t, panicked, ErrNoViableVariant)

	_, ok := sum.Selected()
	assert.False(t, ok)
	assert.Equal(t, err, sum.Info().Err)
}

func TestDispatchBeforeSeal(t *testing.T) {
	r := newTestRegistry(t, Of(SSE2))
	var ran atomic.Value
	sum := sumLadder(r, &ran)

	_, err := sum.Resolve()
	assert.ErrorIs(t, err, ErrNotSealed)
	assert.Equal(t, Unresolved, sum.State(), "not sealed is not a terminal failure")

	require.NoError(t, r.Seal())
	impl, err := sum.Resolve()
	require.NoError(t, err)
	assert.Equal(t, 3, impl(1, 2))
}

func TestDispatchProbeFailure(t *testing.T) {
	boom := errors.New("no cpuid")
	r, err := New(WithProbe(ProbeFunc(func() (Caps, error) { return Baseline, boom })), WithoutEnv())
	require.NoError(t, err)
	sum := Declare[addFunc](r, "sum").Register(Baseline, add)
	require.NoError(t, r.Seal())

	_, err = sum.Resolve()
	assert.ErrorIs(t, err, ErrProbe)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, Failed, sum.State())
}

func TestDispatchVoidSignature(t *testing.T) {
	r := newTestRegistry(t, Of(NEON, NEONFltSP))
	double := Declare[func(dst []int)](r, "double").
		RegisterLevel(DispatchNEON, func(dst []int) {
			for i := range dst {
				dst[i] <<= 1
			}
		}).
		Register(Baseline, func(dst []int) {
			for i := range dst {
				dst[i] *= 2
			}
		})
	require.NoError(t, r.Seal())

	xs := []int{1, 2, 3}
	double.MustResolve()(xs)
	assert.Equal(t, []int{2, 4, 6}, xs)
	sel, _ := double.Selected()
	assert.Equal(t, "neon", sel.Name)
}

func TestResolveAllAndFuncs(t *testing.T) {
	r := newTestRegistry(t, Of(SSE2))
	ok := Declare[addFunc](r, "ok").Register(Of(SSE2), add).Register(Baseline, add)
	bad := Declare[addFunc](r, "bad").Register(Of(AVX2), add)
	require.NoError(t, r.Seal())

	err := r.ResolveAll()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNoViableVariant)
	assert.Contains(t, err.Error(), "bad")
	assert.NotContains(t, err.Error(), "fmv: ok")

	assert.Equal(t, Resolved, ok.State())
	assert.Equal(t, Failed, bad.State())

	infos := r.Funcs()
	require.Len(t, infos, 2)
	assert.Equal(t, "ok", infos[0].Name)
	assert.Equal(t, Resolved, infos[0].State)
	assert.Equal(t, "sse2", infos[0].Selected.Name)
	assert.Len(t, infos[0].Variants, 2)
	assert.Equal(t, "bad", infos[1].Name)
	assert.Equal(t, Failed, infos[1].State)
	assert.ErrorIs(t, infos[1].Err, ErrNoViableVariant)
}

func TestSharedDetector(t *testing.T) {
	var probes atomic.Int64
	d := NewDetector(ProbeFunc(func() (Caps, error) {
		probes.Add(1)
		return Of(SSE2), nil
	}), nil)

	for _, name := range []string{"a", "b", "c"} {
		r, err := New(WithDetector(d))
		require.NoError(t, err)
		f := Declare[addFunc](r, name).Register(Baseline, add)
		require.NoError(t, r.Seal())
		require.NoError(t, r.ResolveAll())
		assert.Same(t, d, r.Detector())
		assert.Equal(t, Resolved, f.State())
	}
	assert.Equal(t, int64(1), probes.Load())
}

func BenchmarkResolveHot(b *testing.B) {
	r, err := New(WithProbe(StaticProbe(Of(SSE2))), WithoutEnv())
	require.NoError(b, err)
	sum := Declare[addFunc](r, "sum").Register(Of(SSE2), add).Register(Baseline, add)
	require.NoError(b, r.Seal())
	sum.MustResolve()

	b.ReportAllocs()
	b.ResetTimer()
	acc := 0
	for i := 0; i < b.N; i++ {
		acc = sum.MustResolve()(acc, i)
	}
	_ = acc
}
