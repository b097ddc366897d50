// Package report summarizes the outputs of a backtest run.
package report

import (
	"fmt"
	"io"

	"github.com/frankdfr96/MEVresearch/units"
)

// Rewards at or above this percentile are outliers.
const outlierPercentile = 90

// Input holds the per-block series of one sim run, aligned with the dataset
// blocks. GasFee and OneOffFee are nil for mechanisms which don't have that
// fee.
type Input struct {
	Title       string
	Rewards     []units.Eth
	GasUsed     []units.Gas
	Burnt       []units.Eth
	PriorityGas []units.Gas
	GasFee      []units.Gwei
	OneOffFee   []units.Eth
}

func (in Input) check() error {
	n := len(in.Rewards)
	if n == 0 {
		return fmt.Errorf("%s: no blocks", in.Title)
	}
	lens := map[string]int{
		"gasused":     len(in.GasUsed),
		"burnt":       len(in.Burnt),
		"prioritygas": len(in.PriorityGas),
	}
	if in.GasFee != nil {
		lens["gasfee"] = len(in.GasFee)
	}
	if in.OneOffFee != nil {
		lens["oneofffee"] = len(in.OneOffFee)
	}
	for name, m := range lens {
		if m != n {
			return fmt.Errorf("%s: %d %s values for %d blocks", in.Title, m, name, n)
		}
	}
	return nil
}

type Summary struct {
	Title  string `json:"title"`
	Blocks int    `json:"blocks"`

	HasGasFee       bool       `json:"hasgasfee"`
	MedianGasFee    units.Gwei `json:"mediangasfee"`
	MeanGasFee      units.Gwei `json:"meangasfee"`
	HasOneOffFee    bool       `json:"hasoneofffee"`
	MedianOneOffFee units.Eth  `json:"medianoneofffee"`
	MeanOneOffFee   units.Eth  `json:"meanoneofffee"`

	MeanBurn      units.Eth `json:"meanburn"`
	AvgBurnPct    float64   `json:"avgburnpct"`   // Mean of the per-block burn percentage
	TotalBurnPct  float64   `json:"totalburnpct"` // Total burn as a percentage of total reward
	GasUtilPct    float64   `json:"gasutilpct"`   // Mean priority gas as a percentage of gas used
	MissedSlotPct float64   `json:"missedslotpct"`

	MedianGasUsed          float64 `json:"mediangasused"`
	MeanGasUsed            float64 `json:"meangasused"`
	MedianPriorityGas      float64 `json:"medianprioritygas"`
	MeanPriorityGas        float64 `json:"meanprioritygas"`
	AvgBurnPctNoOutliers   float64 `json:"avgburnpctnooutliers"`
	TotalBurnPctNoOutliers float64 `json:"totalburnpctnooutliers"`
	OutlierPct             float64 `json:"outlierpct"`
}

func Summarize(in Input) (Summary, error) {
	if err := in.check(); err != nil {
		return Summary{}, err
	}
	n := len(in.Rewards)
	s := Summary{Title: in.Title, Blocks: n}

	if in.GasFee != nil {
		fees := make([]float64, n)
		for i, f := range in.GasFee {
			fees[i] = float64(f)
		}
		s.HasGasFee = true
		s.MedianGasFee = units.Gwei(median(fees))
		s.MeanGasFee = units.Gwei(mean(fees))
	}
	if in.OneOffFee != nil {
		fees := make([]float64, n)
		for i, f := range in.OneOffFee {
			fees[i] = float64(f)
		}
		s.HasOneOffFee = true
		s.MedianOneOffFee = units.Eth(median(fees))
		s.MeanOneOffFee = units.Eth(mean(fees))
	}

	rewards := make([]float64, n)
	burnt := make([]float64, n)
	gasUsed := make([]float64, n)
	priorityGas := make([]float64, n)
	var missed int
	for i := range in.Rewards {
		rewards[i] = float64(in.Rewards[i])
		burnt[i] = float64(in.Burnt[i])
		gasUsed[i] = float64(in.GasUsed[i])
		priorityGas[i] = float64(in.PriorityGas[i])
		if burnt[i] == 0 {
			missed++
		}
	}
	s.MeanBurn = units.Eth(mean(burnt))
	s.AvgBurnPct, s.TotalBurnPct = burnPct(rewards, burnt, nil)
	s.MissedSlotPct = 100 * float64(missed) / float64(n)

	var util []float64
	for i := range gasUsed {
		if gasUsed[i] > 0 {
			util = append(util, priorityGas[i]/gasUsed[i])
		}
	}
	if len(util) > 0 {
		s.GasUtilPct = 100 * mean(util)
	}

	s.MedianGasUsed = median(gasUsed)
	s.MeanGasUsed = mean(gasUsed)
	s.MedianPriorityGas = median(priorityGas)
	s.MeanPriorityGas = mean(priorityGas)

	threshold := percentile(rewards, outlierPercentile)
	include := func(i int) bool { return rewards[i] < threshold }
	s.AvgBurnPctNoOutliers, s.TotalBurnPctNoOutliers = burnPct(rewards, burnt, include)
	var outliers int
	for i := range rewards {
		if !include(i) {
			outliers++
		}
	}
	s.OutlierPct = 100 * float64(outliers) / float64(n)
	return s, nil
}

// burnPct returns the mean per-block burn percentage and the total burn
// percentage over the blocks selected by include (all blocks if nil), or zero
// if no rewarded blocks are selected.
func burnPct(rewards, burnt []float64, include func(int) bool) (avg, total float64) {
	var (
		pcts                     []float64
		totalBurnt, totalRewards float64
	)
	for i := range rewards {
		if include != nil && !include(i) {
			continue
		}
		totalBurnt += burnt[i]
		totalRewards += rewards[i]
		if rewards[i] > 0 {
			pcts = append(pcts, burnt[i]/rewards[i])
		}
	}
	if len(pcts) == 0 {
		return 0, 0
	}
	return 100 * mean(pcts), 100 * totalBurnt / totalRewards
}

// Write prints the summary as a console report; verbose adds the gas usage
// and outlier statistics.
func (s Summary) Write(w io.Writer, verbose bool) error {
	lines := [][2]string{}
	add := func(label, format string, a ...interface{}) {
		lines = append(lines, [2]string{label, fmt.Sprintf(format, a...)})
	}
	if s.HasGasFee {
		add("Median priority gas price", "%.0f gwei", s.MedianGasFee)
		add("Mean priority gas price", "%.0f gwei", s.MeanGasFee)
	}
	if s.HasOneOffFee {
		add("Median one-off fee", "%.3f eth", s.MedianOneOffFee)
		add("Mean one-off fee", "%.3f eth", s.MeanOneOffFee)
	}
	add("Mean burn", "%.3f eth", s.MeanBurn)
	add("Average burn percentage", "%.1f%%", s.AvgBurnPct)
	add("Total burn percentage", "%.1f%%", s.TotalBurnPct)
	add("Mean priority gas utilization", "%.1f%%", s.GasUtilPct)
	add("Percentage of missed slots", "%.1f%%", s.MissedSlotPct)
	if verbose {
		add("Median gas used", "%.0f", s.MedianGasUsed)
		add("Median priority gas", "%.0f", s.MedianPriorityGas)
		add("Mean gas used", "%.0f", s.MeanGasUsed)
		add("Mean priority gas", "%.0f", s.MeanPriorityGas)
		add("Average burn percentage without outliers", "%.1f%%", s.AvgBurnPctNoOutliers)
		add("Total burn percentage without outliers", "%.1f%%", s.TotalBurnPctNoOutliers)
		add("Percentage of outliers", "%.1f%%", s.OutlierPct)
	}

	if _, err := fmt.Fprintf(w, "%s (%d blocks)\n", s.Title, s.Blocks); err != nil {
		return err
	}
	for _, l := range lines {
		if _, err := fmt.Fprintf(w, "  %-41s: %s\n", l[0], l[1]); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintln(w)
	return err
}
