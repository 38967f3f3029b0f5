package fmv_test

import (
	"errors"
	"fmt"

	"github.com/ajroetker/go-fmv/fmv"
)

func sumAVX2(a, b int) int     { return a + b }
func sumSSE2(a, b int) int     { return a + b }
func sumBaseline(a, b int) int { return a + b }

func newSum(detected fmv.Caps) *fmv.Func[func(a, b int) int] {
	reg, err := fmv.New(fmv.WithProbe(fmv.StaticProbe(detected)), fmv.WithoutEnv())
	if err != nil {
		panic(err)
	}
	sum := fmv.Declare[func(a, b int) int](reg, "sum").
		RegisterNamed("avx2", fmv.Of(fmv.AVX2), sumAVX2).
		RegisterNamed("sse2", fmv.Of(fmv.SSE2), sumSSE2).
		RegisterNamed("baseline", fmv.Baseline, sumBaseline)
	if err := reg.Seal(); err != nil {
		panic(err)
	}
	return sum
}

func Example() {
	for _, detected := range []fmv.Caps{fmv.Of(fmv.SSE2), fmv.Baseline} {
		sum := newSum(detected)
		result := sum.MustResolve()(1, 2)
		v, _ := sum.Selected()
		fmt.Printf("detected=%s variant=%s sum(1,2)=%d\n", detected, v.Name, result)
	}
	// Output:
	// detected=sse2 variant=sse2 sum(1,2)=3
	// detected=baseline variant=baseline sum(1,2)=3
}

func ExampleRegistry_Seal() {
	reg, _ := fmv.New(fmv.WithProbe(fmv.StaticProbe(fmv.Baseline)), fmv.WithoutEnv())
	fmv.Declare[func() int](reg, "answer").
		Register(fmv.Of(fmv.AVX2), func() int { return 42 }).
		Register(fmv.Of(fmv.AVX2), func() int { return 42 })

	err := reg.Seal()
	fmt.Println(errors.Is(err, fmv.ErrAmbiguousVariant))
	// Output:
	// true
}

func ExampleFunc_Resolve() {
	reg, _ := fmv.New(fmv.WithProbe(fmv.StaticProbe(fmv.Of(fmv.NEON))), fmv.WithoutEnv())
	mul := fmv.Declare[func(a, b int) int](reg, "mul").
		RegisterLevel(fmv.DispatchAVX2, func(a, b int) int { return a * b })
	_ = reg.Seal()

	_, err := mul.Resolve()
	fmt.Println(err)
	// Output:
	// fmv: mul: no viable variant for detected capabilities neon
}

func ExampleBestLevel() {
	caps, _ := fmv.ParseCaps("sse2,sse3,ssse3,sse4.1,sse4.2,avx,avx2,fma3")
	fmt.Println(fmv.BestLevel(caps), fmv.BestLevel(caps).Width())
	// Output:
	// avx2 32
}
