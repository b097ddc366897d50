package sim

import (
	"errors"
	"math"
	"testing"

	"github.com/frankdfr96/MEVresearch/testutil"
	"github.com/frankdfr96/MEVresearch/units"
)

var testGasTargetConfig = GasTargetConfig{
	Target:       200000,
	InitFee:      100,
	TimeToDouble: 6,
}

func TestGasTargetSingleBlock(t *testing.T) {
	blocks := []Block{
		newBlock(1, 2, newTx(300000, 150, 0.05)),
	}
	r, err := RunGasTarget(blocks, testGasTargetConfig)
	if err != nil {
		t.Fatal(err)
	}
	if err := testutil.CheckSeriesLen(1, r.Fee, r.Burnt, r.PriorityGas); err != nil {
		t.Fatal(err)
	}
	if err := testutil.CheckEqual(r.PriorityGas[0], units.Gas(300000)); err != nil {
		t.Error(err)
	}
	if err := testutil.CheckClose(float64(r.Burnt[0]), 300000*100*1e-9, 1e-12); err != nil {
		t.Error(err)
	}
	if err := testutil.CheckEqual(r.Fee[0], units.Gwei(100)); err != nil {
		t.Error(err)
	}
	k := math.Pow(2, 1./6) - 1
	if err := testutil.CheckClose(float64(r.NextFee), 100*(1+k*(300000-200000)/200000.), 1e-12); err != nil {
		t.Error(err)
	}
}

func TestGasTargetInclusion(t *testing.T) {
	blocks := []Block{
		newBlock(1, 2,
			newTx(100000, 100, 0.01), // Not strictly above the fee
			newTx(50000, 99, 0.01),
			newTx(70000, 101, 0.01),
			newTx(30000, 500, 0.01),
		),
	}
	r, err := RunGasTarget(blocks, testGasTargetConfig)
	if err != nil {
		t.Fatal(err)
	}
	if err := testutil.CheckEqual(r.PriorityGas[0], units.Gas(100000)); err != nil {
		t.Error(err)
	}
	if err := testutil.CheckClose(float64(r.Burnt[0]), 100000*100*1e-9, 1e-12); err != nil {
		t.Error(err)
	}
}

func TestGasTargetFixedPoint(t *testing.T) {
	blocks := []Block{
		newBlock(1, 2, newTx(150000, 1000, 0.01), newTx(50000, 1000, 0.01)),
		newBlock(2, 2, newTx(200000, 1000, 0.01)),
		newBlock(3, 2),
	}
	r, err := RunGasTarget(blocks, testGasTargetConfig)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 2; i++ {
		if err := testutil.CheckEqual(r.PriorityGas[i], testGasTargetConfig.Target); err != nil {
			t.Fatal(err)
		}
		if err := testutil.CheckEqual(r.Fee[i+1], r.Fee[i]); err != nil {
			t.Error(err)
		}
	}
}

func TestGasTargetDoubling(t *testing.T) {
	cfg := testGasTargetConfig
	n := int(cfg.TimeToDouble)

	// Leading block at target, then n blocks at 2*target
	blocks := []Block{newBlock(1, 2, newTx(cfg.Target, 1e6, 0.01))}
	for i := 0; i < n; i++ {
		blocks = append(blocks, newBlock(uint64(i+2), 2, newTx(2*cfg.Target, 1e6, 0.01)))
	}
	blocks = append(blocks, newBlock(uint64(n+2), 2))

	r, err := RunGasTarget(blocks, cfg)
	if err != nil {
		t.Fatal(err)
	}
	if err := testutil.CheckClose(float64(r.Fee[n+1]), 2*float64(r.Fee[1]), 1e-9); err != nil {
		t.Error(err)
	}

	// The trailing empty block decreases the fee by a factor 1-k
	k := math.Pow(2, 1/cfg.TimeToDouble) - 1
	if err := testutil.CheckClose(float64(r.NextFee), float64(r.Fee[n+1])*(1-k), 1e-9); err != nil {
		t.Error(err)
	}
}

func TestGasTargetFloor(t *testing.T) {
	// With TimeToDouble < 1, k > 1 and an empty block would send the fee
	// negative.
	cfg := testGasTargetConfig
	cfg.TimeToDouble = 0.5
	blocks := []Block{newBlock(1, 2), newBlock(2, 2), newBlock(3, 2)}

	r, err := RunGasTarget(blocks, cfg)
	if err != nil {
		t.Fatal(err)
	}
	if err := testutil.CheckEqual(r.Fee, []units.Gwei{100, 0, 0}); err != nil {
		t.Error(err)
	}

	cfg.MinFee = 5
	r, err = RunGasTarget(blocks, cfg)
	if err != nil {
		t.Fatal(err)
	}
	if err := testutil.CheckEqual(r.Fee, []units.Gwei{100, 5, 5}); err != nil {
		t.Error(err)
	}
}

func TestGasTargetSim(t *testing.T) {
	blocks := randBlocks(500, 3)
	r, err := RunGasTarget(blocks, testGasTargetConfig)
	if err != nil {
		t.Fatal(err)
	}
	if err := testutil.CheckSeriesLen(len(blocks), r.Fee, r.Burnt, r.PriorityGas); err != nil {
		t.Fatal(err)
	}

	// Stepping a sim by hand gives the same series, and so does a reset sim.
	s, err := NewGasTargetSim(testGasTargetConfig)
	if err != nil {
		t.Fatal(err)
	}
	for pass := 0; pass < 2; pass++ {
		for i, b := range blocks {
			fee, burnt, gas := s.NextBlock(b)
			if fee != r.Fee[i] || burnt != r.Burnt[i] || gas != r.PriorityGas[i] {
				t.Fatalf("pass %d block %d: (%v, %v, %v) != (%v, %v, %v)", pass, i,
					fee, burnt, gas, r.Fee[i], r.Burnt[i], r.PriorityGas[i])
			}
			if fee < 0 {
				t.Fatalf("negative fee %v", fee)
			}
		}
		s.Reset()
	}
}

func TestGasTargetErrors(t *testing.T) {
	var cfgErr ConfigError
	badcfgs := []GasTargetConfig{
		{Target: 0, InitFee: 100, TimeToDouble: 6},
		{Target: 1, InitFee: 100, TimeToDouble: 0},
		{Target: 1, InitFee: 100, TimeToDouble: -6},
		{Target: 1, InitFee: 100, TimeToDouble: math.NaN()},
		{Target: 1, InitFee: -1, TimeToDouble: 6},
		{Target: 1, InitFee: 100, TimeToDouble: 6, MinFee: -1},
		{Target: 1, InitFee: 100, TimeToDouble: 1e-4},
	}
	for i, cfg := range badcfgs {
		if _, err := RunGasTarget(randBlocks(2, 1), cfg); !errors.As(err, &cfgErr) {
			t.Errorf("config %d: expected ConfigError, got %v", i, err)
		}
	}

	var inputErr InputError
	if _, err := RunGasTarget(nil, testGasTargetConfig); !errors.As(err, &inputErr) {
		t.Errorf("expected InputError, got %v", err)
	}
}
