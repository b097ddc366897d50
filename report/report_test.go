package report

import (
	"bytes"
	"math"
	"strings"
	"testing"

	"github.com/frankdfr96/MEVresearch/testutil"
	"github.com/frankdfr96/MEVresearch/units"
)

var testInput = Input{
	Title:       "Gas targeting",
	Rewards:     []units.Eth{1, 2, 3, 4},
	GasUsed:     []units.Gas{100, 200, 300, 400},
	Burnt:       []units.Eth{0.5, 0, 1.5, 2},
	PriorityGas: []units.Gas{50, 0, 150, 400},
	GasFee:      []units.Gwei{10, 20, 30, 40},
}

func TestSummarize(t *testing.T) {
	s, err := Summarize(testInput)
	if err != nil {
		t.Fatal(err)
	}
	if err := testutil.CheckEqual(s.Blocks, 4); err != nil {
		t.Error(err)
	}
	if !s.HasGasFee || s.HasOneOffFee {
		t.Errorf("HasGasFee %v, HasOneOffFee %v", s.HasGasFee, s.HasOneOffFee)
	}

	checks := []struct {
		name string
		a, b float64
	}{
		{"mediangasfee", float64(s.MedianGasFee), 25},
		{"meangasfee", float64(s.MeanGasFee), 25},
		{"meanburn", float64(s.MeanBurn), 1},
		{"avgburnpct", s.AvgBurnPct, 37.5},
		{"totalburnpct", s.TotalBurnPct, 40},
		{"gasutilpct", s.GasUtilPct, 50},
		{"missedslotpct", s.MissedSlotPct, 25},
		{"mediangasused", s.MedianGasUsed, 250},
		{"meangasused", s.MeanGasUsed, 250},
		{"medianprioritygas", s.MedianPriorityGas, 100},
		{"meanprioritygas", s.MeanPriorityGas, 150},
		{"avgburnpctnooutliers", s.AvgBurnPctNoOutliers, 100. / 3},
		{"totalburnpctnooutliers", s.TotalBurnPctNoOutliers, 100. / 3},
		{"outlierpct", s.OutlierPct, 25},
	}
	for _, c := range checks {
		if err := testutil.CheckClose(c.a, c.b, 1e-9); err != nil {
			t.Errorf("%s: %v", c.name, err)
		}
	}
}

func TestSummarizeOneOff(t *testing.T) {
	in := testInput
	in.GasFee = nil
	in.OneOffFee = []units.Eth{0.5, 0.25, 0.75, 1}
	s, err := Summarize(in)
	if err != nil {
		t.Fatal(err)
	}
	if s.HasGasFee || !s.HasOneOffFee {
		t.Errorf("HasGasFee %v, HasOneOffFee %v", s.HasGasFee, s.HasOneOffFee)
	}
	if err := testutil.CheckClose(float64(s.MedianOneOffFee), 0.625, 1e-12); err != nil {
		t.Error(err)
	}
	if err := testutil.CheckClose(float64(s.MeanOneOffFee), 0.625, 1e-12); err != nil {
		t.Error(err)
	}
}

func TestSummarizeEmptyBlocks(t *testing.T) {
	in := testInput
	in.GasUsed = []units.Gas{100, 0, 300, 400}
	s, err := Summarize(in)
	if err != nil {
		t.Fatal(err)
	}
	// Blocks with no gas used are left out of the utilization mean
	if err := testutil.CheckClose(s.GasUtilPct, 100*(0.5+0.5+1)/3, 1e-9); err != nil {
		t.Error(err)
	}

	in.GasUsed = make([]units.Gas, 4)
	in.PriorityGas = make([]units.Gas, 4)
	if s, err = Summarize(in); err != nil {
		t.Fatal(err)
	}
	if err := testutil.CheckEqual(s.GasUtilPct, 0.); err != nil {
		t.Error(err)
	}
}

func TestSummarizeErrors(t *testing.T) {
	if _, err := Summarize(Input{Title: "empty"}); err == nil {
		t.Error("empty input should fail")
	}
	in := testInput
	in.Burnt = in.Burnt[:3]
	if _, err := Summarize(in); err == nil {
		t.Error("misaligned input should fail")
	}
	in = testInput
	in.GasFee = []units.Gwei{1}
	if _, err := Summarize(in); err == nil {
		t.Error("misaligned gas fee should fail")
	}
}

func TestPercentile(t *testing.T) {
	x := []float64{4, 1, 3, 2}
	testcases := []struct {
		p, result float64
	}{
		{0, 1},
		{50, 2.5},
		{90, 3.7},
		{100, 4},
	}
	for _, tc := range testcases {
		if err := testutil.CheckClose(percentile(x, tc.p), tc.result, 1e-12); err != nil {
			t.Errorf("p%v: %v", tc.p, err)
		}
	}
	// Input is left unsorted
	if err := testutil.CheckEqual(x, []float64{4, 1, 3, 2}); err != nil {
		t.Error(err)
	}
	if !math.IsNaN(median(nil)) || !math.IsNaN(mean(nil)) {
		t.Error("stats of no values should be NaN")
	}
	if err := testutil.CheckEqual(median([]float64{7}), 7.); err != nil {
		t.Error(err)
	}
}

func TestWrite(t *testing.T) {
	s, err := Summarize(testInput)
	if err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	if err := s.Write(&buf, false); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{
		"Gas targeting (4 blocks)\n",
		"Median priority gas price",
		": 25 gwei\n",
		": 1.000 eth\n",
		": 37.5%\n",
		": 40.0%\n",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("%q not in output:\n%s", want, out)
		}
	}
	if strings.Contains(out, "one-off") || strings.Contains(out, "outliers") {
		t.Errorf("unexpected lines in output:\n%s", out)
	}

	buf.Reset()
	if err := s.Write(&buf, true); err != nil {
		t.Fatal(err)
	}
	if err := testutil.CheckEqual(strings.Count(buf.String(), "\n"), 1+14+1); err != nil {
		t.Error(err)
	}
	if !strings.Contains(buf.String(), "Percentage of outliers") {
		t.Errorf("verbose output:\n%s", buf.String())
	}
}

func TestSummarizeEqualRewards(t *testing.T) {
	in := testInput
	in.Rewards = []units.Eth{2, 2, 2, 2}
	s, err := Summarize(in)
	if err != nil {
		t.Fatal(err)
	}
	// Every block is at the 90th percentile, so all are outliers
	if err := testutil.CheckEqual(s.OutlierPct, 100.); err != nil {
		t.Error(err)
	}
	if err := testutil.CheckEqual([]float64{s.AvgBurnPctNoOutliers, s.TotalBurnPctNoOutliers}, []float64{0, 0}); err != nil {
		t.Error(err)
	}
	if err := testutil.CheckClose(s.TotalBurnPct, 50, 1e-12); err != nil {
		t.Error(err)
	}
}
