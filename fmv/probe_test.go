package fmv

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/klauspost/cpuid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const cpuinfoX86 = `processor	: 0
vendor_id	: GenuineIntel
model name	: Intel(R) Core(TM) i7-8700 CPU @ 3.20GHz
flags		: fpu vme de pse tsc msr pae sse sse2 ht pni pclmulqdq ssse3 fma cx16 sse4_1 sse4_2 popcnt aes xsave avx f16c rdrand avx2 bmi1 bmi2
bugs		: spectre_v1 spectre_v2

processor	: 1
flags		: fpu vme de pse tsc msr pae sse sse2 ht pni pclmulqdq ssse3 fma cx16 sse4_1 sse4_2 popcnt aes xsave avx f16c rdrand avx2 bmi1 bmi2
`

const cpuinfoARM = `processor	: 0
BogoMIPS	: 50.00
Features	: fp asimd evtstrm aes pmull sha1 sha2 crc32 atomics fphp asimdhp cpuid sve
CPU implementer	: 0x41
`

const cpuinfoPOWER = `processor	: 0
cpu		: POWER9 (raw), altivec supported
clock		: 2166.000000MHz
`

func TestParseCPUInfo(t *testing.T) {
	t.Run("x86", func(t *testing.T) {
		c, err := ParseCPUInfo(strings.NewReader(cpuinfoX86), "amd64")
		require.NoError(t, err)
		assert.True(t, c.Contains(DispatchAVX2.Caps()), "got %s", c)
		assert.True(t, c.Has(POPCNT))
		assert.True(t, c.Has(F16C))
		assert.True(t, c.Has(BMI2))
		assert.False(t, c.Has(AVX512F))
		assert.Equal(t, DispatchAVX2, BestLevel(c))
	})

	t.Run("arm64", func(t *testing.T) {
		c, err := ParseCPUInfo(strings.NewReader(cpuinfoARM), "arm64")
		require.NoError(t, err)
		assert.Equal(t, Of(NEON, NEONFltSP, ASIMDHP, SVE), c)
		assert.Equal(t, DispatchSVE, BestLevel(c))
	})

	t.Run("ppc64le", func(t *testing.T) {
		c, err := ParseCPUInfo(strings.NewReader(cpuinfoPOWER), "ppc64le")
		require.NoError(t, err)
		assert.Equal(t, Of(Altivec), c)
	})

	t.Run("x86 listing read as arm", func(t *testing.T) {
		_, err := ParseCPUInfo(strings.NewReader(cpuinfoX86), "arm64")
		assert.ErrorIs(t, err, errNoFeatureLine)
	})

	t.Run("unknown arch", func(t *testing.T) {
		c, err := ParseCPUInfo(strings.NewReader(cpuinfoX86), "riscv64")
		require.NoError(t, err)
		assert.Equal(t, Baseline, c)
	})
}

func TestCPUInfoProbe(t *testing.T) {
	if _, ok := cpuinfoKey(runtime.GOARCH); !ok {
		t.Skipf("no cpuinfo layout for %s", runtime.GOARCH)
	}
	dir := t.TempDir()

	sample := cpuinfoX86
	if strings.HasPrefix(runtime.GOARCH, "arm") {
		sample = cpuinfoARM
	} else if strings.HasPrefix(runtime.GOARCH, "ppc") {
		sample = cpuinfoPOWER
	}
	path := filepath.Join(dir, "cpuinfo")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0o644))

	c, err := CPUInfoProbe(path).Detect()
	require.NoError(t, err)
	assert.False(t, c.IsBaseline())

	_, err = CPUInfoProbe(filepath.Join(dir, "missing")).Detect()
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestStringListProbe(t *testing.T) {
	args := []string{"--arch=avx2", "--arch=bogus", "avx512f", "--arch=popcnt"}
	c, err := StringListProbe(args, "--arch=").Detect()
	require.NoError(t, err)
	want, _ := Implied("avx2")
	assert.Equal(t, want|Of(POPCNT), c)

	c, err = StringListProbe([]string{"fma"}, "").Detect()
	require.NoError(t, err)
	assert.True(t, c.Has(AVX), "fma implies avx, got %s", c)

	c, err = StringListProbe([]string{"neon"}, "").Detect()
	require.NoError(t, err)
	assert.Equal(t, Of(NEON, NEONFltSP), c)
}

func TestCapsFromCPUID(t *testing.T) {
	oracle := func(ids ...cpuid.FeatureID) func(cpuid.FeatureID) bool {
		return func(id cpuid.FeatureID) bool {
			for _, x := range ids {
				if x == id {
					return true
				}
			}
			return false
		}
	}
	assert.Equal(t, Baseline, capsFromCPUID(oracle()))
	assert.Equal(t, Of(SSE2, SSE41, AVX2), capsFromCPUID(oracle(cpuid.SSE2, cpuid.SSE4, cpuid.AVX2)))
	assert.Equal(t, Of(NEON, NEONFltSP, SVE), capsFromCPUID(oracle(cpuid.ASIMD, cpuid.SVE)))
}

func TestHostProbe(t *testing.T) {
	c, err := HostProbe().Detect()
	require.NoError(t, err)
	switch runtime.GOARCH {
	case "amd64":
		assert.True(t, c.Has(SSE2), "SSE2 is part of the amd64 baseline")
	case "arm64":
		assert.True(t, c.Has(NEON), "NEON is part of ARMv8-A")
	}
}

func TestDetectorMemoizes(t *testing.T) {
	var calls atomic.Int64
	probe := ProbeFunc(func() (Caps, error) {
		calls.Add(1)
		return Of(SSE2, AVX2), nil
	})
	d := NewDetector(probe, nil)
	assert.False(t, d.Detected())

	for range 10 {
		c, err := d.Detect()
		require.NoError(t, err)
		assert.Equal(t, Of(SSE2, AVX2), c)
	}
	assert.Equal(t, int64(1), calls.Load())
	assert.True(t, d.Detected())
}

func TestDetectorConcurrentFirstUse(t *testing.T) {
	for round := range 50 {
		d := NewDetector(StaticProbe(DispatchAVX512.Caps()), &EnvConfig{MaxLevel: DispatchAVX2, HasMaxLevel: true})

		const n = 128
		var (
			wg    sync.WaitGroup
			start = make(chan struct{})
			got   = make([]Caps, n)
		)
		wg.Add(n)
		for i := range n {
			go func() {
				defer wg.Done()
				<-start
				c, err := d.Detect()
				if err == nil {
					got[i] = c
				}
			}()
		}
		close(start)
		wg.Wait()

		for i, c := range got {
			require.Equal(t, DispatchAVX2.Caps(), c, "round %d goroutine %d", round, i)
		}
	}
}

func TestDetectorProbeError(t *testing.T) {
	boom := errors.New("cpuid unavailable")
	var calls atomic.Int64
	d := NewDetector(ProbeFunc(func() (Caps, error) {
		calls.Add(1)
		return Baseline, boom
	}), nil)

	_, err1 := d.Detect()
	require.Error(t, err1)
	assert.ErrorIs(t, err1, ErrProbe)
	assert.ErrorIs(t, err1, boom)

	var pe *ProbeError
	require.ErrorAs(t, err1, &pe)
	assert.Equal(t, "capability", pe.Source)

	_, err2 := d.Detect()
	assert.True(t, err1 == err2, "probe failure must be memoized")
	assert.Equal(t, int64(1), calls.Load())

	_, err := NewDetector(nil, nil).Detect()
	assert.ErrorIs(t, err, ErrProbe)
}

func TestFirstOf(t *testing.T) {
	errA := errors.New("a failed")
	errB := errors.New("b failed")
	failing := func(err error) Probe {
		return ProbeFunc(func() (Caps, error) { return Baseline, err })
	}

	c, err := FirstOf(failing(errA), StaticProbe(Of(NEON)), StaticProbe(Of(SSE2))).Detect()
	require.NoError(t, err)
	assert.Equal(t, Of(NEON), c)

	_, err = FirstOf(failing(errA), failing(errB)).Detect()
	assert.ErrorIs(t, err, errA)
	assert.ErrorIs(t, err, errB)

	_, err = FirstOf().Detect()
	assert.Error(t, err)

	var pe *ProbeError
	_, err = NewDetector(FirstOf(failing(errA), CPUInfoProbe("/nonexistent/cpuinfo")), nil).Detect()
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "capability,cpuinfo", pe.Source)
}
