/*
Package units defines the typed quantities used throughout the backtest.

Three currency scales appear in the data: wei (the smallest unit), gwei (1e9
wei) and eth (1e18 wei). Each scale is a distinct type, so that adding a gwei
amount to an eth amount does not compile. Conversions are explicit methods.
*/
package units

import (
	"fmt"
	"math/big"
	"strconv"

	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/params"
)

type (
	Wei  float64
	Gwei float64
	Eth  float64
	Gas  uint64
)

const (
	weiPerGwei = float64(params.GWei)
	weiPerEth  = float64(params.Ether)
	gweiPerEth = weiPerEth / weiPerGwei
)

func (w Wei) Gwei() Gwei { return Gwei(float64(w) / weiPerGwei) }
func (w Wei) Eth() Eth   { return Eth(float64(w) / weiPerEth) }

func (g Gwei) Wei() Wei { return Wei(float64(g) * weiPerGwei) }
func (g Gwei) Eth() Eth { return Eth(float64(g) / gweiPerEth) }

func (e Eth) Wei() Wei   { return Wei(float64(e) * weiPerEth) }
func (e Eth) Gwei() Gwei { return Gwei(float64(e) * gweiPerEth) }

// Times returns the cost in eth of gas units priced at g per unit.
func (g Gwei) Times(gas Gas) Eth {
	return Eth(float64(gas) * float64(g) / gweiPerEth)
}

// Scale multiplies e by a dimensionless factor.
func (e Eth) Scale(f float64) Eth { return Eth(float64(e) * f) }

// Scale multiplies g by a dimensionless factor.
func (g Gwei) Scale(f float64) Gwei { return Gwei(float64(g) * f) }

// ParseWei parses a decimal or 0x-prefixed hex integer amount of wei.
func ParseWei(s string) (Wei, error) {
	// ParseBig256 accepts "" as zero and allows a sign.
	b, ok := math.ParseBig256(s)
	if !ok || s == "" || b.Sign() < 0 {
		return 0, fmt.Errorf("invalid wei amount %q", s)
	}
	f, _ := new(big.Float).SetInt(b).Float64()
	return Wei(f), nil
}

func ParseGas(s string) (Gas, error) {
	g, err := strconv.ParseUint(s, 0, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid gas amount %q: %v", s, err)
	}
	return Gas(g), nil
}
