package utils

import (
	"testing"

	"go.viam.com/test"
)

func TestAttributeMap(t *testing.T) {
	am := AttributeMap{
		"name":  "cam",
		"width": 640.0,
		"depth": true,
		"bad":   []int{1},
	}
	test.That(t, am.Has("name"), test.ShouldBeTrue)
	test.That(t, am.Has("nope"), test.ShouldBeFalse)
	test.That(t, am.String("name"), test.ShouldEqual, "cam")
	test.That(t, am.String("nope"), test.ShouldEqual, "")
	test.That(t, am.Int("width", 1), test.ShouldEqual, 640)
	test.That(t, am.Int("nope", 7), test.ShouldEqual, 7)
	test.That(t, am.Int("bad", 7), test.ShouldEqual, 7)
	test.That(t, am.Bool("depth", false), test.ShouldBeTrue)
	test.That(t, am.Bool("nope", true), test.ShouldBeTrue)
}
