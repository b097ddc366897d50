/*
Package sim backtests priority fee (tip) market designs against historical
block data.

The input to a sim is a sequence of blocks, oldest first, each carrying the
transactions which paid the miner directly (through gas price or coinbase
transfers). A fee mechanism decides, block by block, which of those
transactions would still have been included had the mechanism been in force,
and how much of the miner reward it would have burnt. The mechanism then
adjusts its fee parameters for the next block based on the demand it observed.

Three mechanisms are implemented:

	GasTargetSim  a per-gas priority fee steered towards a gas target.
	OneOffSim     a lump-sum fee per block, which grows while blocks can afford
	              it and decays while they can't.
	HybridSim     a per-gas fee floored by a reference gas price, together with
	              a lump-sum fee which is only charged when the block's
	              transaction surplus covers it.

Each sim owns its fee state; sims never share state, and blocks must be fed in
increasing block number order. The Run* functions validate their inputs and
drive a fresh sim over a whole block sequence.
*/
package sim

import (
	"fmt"
	"math"

	"github.com/frankdfr96/MEVresearch/units"
)

type Block struct {
	Number  uint64    `json:"number"`
	GasUsed units.Gas `json:"gasused"`
	Reward  units.Wei `json:"reward"` // Total miner reward
	Txs     []Tx      `json:"txs"`
}

type Tx struct {
	GasUsed  units.Gas `json:"gasused"`
	GasPrice units.Wei `json:"gasprice"`
	Reward   units.Wei `json:"reward"` // Total miner reward attributable to the tx
}

// ConfigError is returned when sim parameters are out of range. It is
// returned before any block is processed.
type ConfigError struct {
	Field  string
	Reason string
}

func (e ConfigError) Error() string {
	return fmt.Sprintf("invalid config %s: %s", e.Field, e.Reason)
}

// InputError is returned for malformed block or reference price data.
type InputError struct {
	Reason string
}

func (e InputError) Error() string {
	return "malformed input: " + e.Reason
}

// ValidateBlocks checks that blocks is non-empty, strictly increasing in block
// number and free of negative (or NaN) amounts.
func ValidateBlocks(blocks []Block) error {
	if len(blocks) == 0 {
		return InputError{"empty block sequence"}
	}
	for i, b := range blocks {
		if i > 0 && b.Number <= blocks[i-1].Number {
			return InputError{fmt.Sprintf("block %d follows block %d", b.Number, blocks[i-1].Number)}
		}
		if !nonNegative(float64(b.Reward)) {
			return InputError{fmt.Sprintf("block %d: reward %v", b.Number, b.Reward)}
		}
		for j, tx := range b.Txs {
			if !nonNegative(float64(tx.GasPrice)) || !nonNegative(float64(tx.Reward)) {
				return InputError{fmt.Sprintf("block %d tx %d: gas price %v, reward %v",
					b.Number, j, tx.GasPrice, tx.Reward)}
			}
		}
	}
	return nil
}

// compound returns the per-block factor which compounds to base after n
// blocks.
func compound(base, n float64) float64 {
	return math.Pow(base, 1/n)
}

// targetAdjust is the gas targeting update: the fee is unchanged when used ==
// target, and grows by 1+k when used == 2*target.
func targetAdjust(k float64, used, target units.Gas) float64 {
	return 1 + k*(float64(used)-float64(target))/float64(target)
}

func nonNegative(x float64) bool {
	return x >= 0 && !math.IsInf(x, 1)
}

func checkPositive(field string, x float64) error {
	if !(x > 0) || math.IsInf(x, 1) {
		return ConfigError{field, fmt.Sprintf("%v is not positive", x)}
	}
	return nil
}

// checkFactor rejects time constants so small that the per-block factor
// derived from them is not a finite positive number.
func checkFactor(field string, base, n float64) error {
	if err := checkPositive(field, n); err != nil {
		return err
	}
	if f := compound(base, n); !(f > 0) || math.IsInf(f, 0) {
		return ConfigError{field, fmt.Sprintf("%v gives a per-block factor of %v", n, f)}
	}
	return nil
}

func checkNonNegative(field string, x float64) error {
	if !nonNegative(x) {
		return ConfigError{field, fmt.Sprintf("%v is negative", x)}
	}
	return nil
}

func checkTarget(target units.Gas) error {
	if target == 0 {
		return ConfigError{"target", "must be > 0"}
	}
	return nil
}
