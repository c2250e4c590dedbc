package rimage

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/samber/mo"
	"go.viam.com/test"
)

func TestDepthMapMinMax(t *testing.T) {
	inf := float32(math.Inf(1))
	nan := float32(math.NaN())
	dm, err := NewDepthMap(3, 2, []float32{4, nan, 1.5, inf, 9, 2})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, dm.HasData(), test.ShouldBeTrue)

	minD, maxD, ok := dm.MinMax()
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, minD, test.ShouldEqual, 1.5)
	test.That(t, maxD, test.ShouldEqual, 9.0)

	empty, err := NewDepthMap(1, 2, []float32{nan, inf})
	test.That(t, err, test.ShouldBeNil)
	_, _, ok = empty.MinMax()
	test.That(t, ok, test.ShouldBeFalse)

	_, err = NewDepthMap(2, 2, []float32{1})
	test.That(t, err, test.ShouldNotBeNil)
}

func TestDepthMapStats(t *testing.T) {
	values := make([]float32, 0, 11)
	for i := 0; i <= 10; i++ {
		values = append(values, float32(i))
	}
	values[3] = float32(math.NaN())
	dm, err := NewDepthMap(11, 1, values)
	test.That(t, err, test.ShouldBeNil)

	st, err := dm.Stats()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, st.Valid, test.ShouldEqual, 10)
	test.That(t, st.Missing, test.ShouldEqual, 1)
	test.That(t, st.Min, test.ShouldEqual, 0.0)
	test.That(t, st.Max, test.ShouldEqual, 10.0)
	test.That(t, st.Mean, test.ShouldAlmostEqual, 5.2)
	test.That(t, st.Median, test.ShouldEqual, 5.5)
	test.That(t, st.P5, test.ShouldEqual, 0.0)
	test.That(t, st.P95, test.ShouldEqual, 10.0)

	flat, err := NewDepthMap(2, 2, []float32{2.5, 2.5, 2.5, 2.5})
	test.That(t, err, test.ShouldBeNil)
	st, err = flat.Stats()
	test.That(t, err, test.ShouldBeNil)
	want := DepthStats{Valid: 4, Min: 2.5, Max: 2.5, Mean: 2.5, Median: 2.5, P5: 2.5, P95: 2.5}
	test.That(t, cmp.Diff(want, st), test.ShouldBeEmpty)

	nan := float32(math.NaN())
	allMissing, err := NewDepthMap(2, 1, []float32{nan, nan})
	test.That(t, err, test.ShouldBeNil)
	_, err = allMissing.Stats()
	test.That(t, err, test.ShouldNotBeNil)
}

func TestToDepthMapKeepsDepth(t *testing.T) {
	s := mustSample(t, KindDepth, 2, 1, []float32{3, 5})
	dm, ok := ToDepthMap(s).Get()
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, dm.GetDepth(0, 0), test.ShouldEqual, float32(3))
	test.That(t, dm.GetDepth(1, 0), test.ShouldEqual, float32(5))

	test.That(t, ToDepthMap(nil), test.ShouldResemble, mo.None[*DepthMap]())
}
