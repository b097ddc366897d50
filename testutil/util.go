// Package testutil contains the common test utilities.
package testutil

import (
	"fmt"
	"math"
	"reflect"
)

func CheckEqual(a, b interface{}) error {
	if !reflect.DeepEqual(a, b) {
		return fmt.Errorf("%+v != %+v", a, b)
	}
	return nil
}

// CheckPctDiff checks to see whether a is within p*100% of b, returning an
// error if not.
func CheckPctDiff(a, b, p float64) error {
	d := math.Abs(a-b) / b
	if d > p {
		return fmt.Errorf("PctDiff between %v and %v is %v > %v", a, b, d, p)
	}
	return nil
}

// CheckClose checks that a and b agree to within tol, relative to the
// magnitude of b (or absolutely, if |b| < 1).
func CheckClose(a, b, tol float64) error {
	if d := math.Abs(a - b); d > tol*math.Max(1, math.Abs(b)) {
		return fmt.Errorf("%v and %v differ by %v > %v", a, b, d, tol)
	}
	return nil
}

// CheckSeriesLen checks that every series has length n.
func CheckSeriesLen(n int, series ...interface{}) error {
	for i, s := range series {
		v := reflect.ValueOf(s)
		if v.Kind() != reflect.Slice {
			return fmt.Errorf("series %d is a %v, not a slice", i, v.Kind())
		}
		if v.Len() != n {
			return fmt.Errorf("series %d has len %d != %d", i, v.Len(), n)
		}
	}
	return nil
}
