package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
)

// Column is a named per-block series.
type Column struct {
	Name   string
	Values []float64
}

// Columns returns the per-block fee, burn and priority gas series of the run.
// Column names are qualified with prefix, if not empty.
func (in Input) Columns(prefix string) []Column {
	name := func(s string) string {
		if prefix == "" {
			return s
		}
		return prefix + "." + s
	}
	var cols []Column
	if in.GasFee != nil {
		c := Column{Name: name("gasfee"), Values: make([]float64, len(in.GasFee))}
		for i, v := range in.GasFee {
			c.Values[i] = float64(v)
		}
		cols = append(cols, c)
	}
	if in.OneOffFee != nil {
		c := Column{Name: name("oneofffee"), Values: make([]float64, len(in.OneOffFee))}
		for i, v := range in.OneOffFee {
			c.Values[i] = float64(v)
		}
		cols = append(cols, c)
	}
	burnt := Column{Name: name("burnt"), Values: make([]float64, len(in.Burnt))}
	for i, v := range in.Burnt {
		burnt.Values[i] = float64(v)
	}
	gas := Column{Name: name("prioritygas"), Values: make([]float64, len(in.PriorityGas))}
	for i, v := range in.PriorityGas {
		gas.Values[i] = float64(v)
	}
	return append(cols, burnt, gas)
}

// BlockColumns returns the reward and gas used series of the dataset.
func BlockColumns(in Input) []Column {
	reward := Column{Name: "reward", Values: make([]float64, len(in.Rewards))}
	for i, v := range in.Rewards {
		reward.Values[i] = float64(v)
	}
	gas := Column{Name: "gasused", Values: make([]float64, len(in.GasUsed))}
	for i, v := range in.GasUsed {
		gas.Values[i] = float64(v)
	}
	return []Column{reward, gas}
}

// WriteSeries writes the columns as CSV, one row per block, for plotting.
func WriteSeries(w io.Writer, numbers []uint64, cols []Column) error {
	for _, c := range cols {
		if len(c.Values) != len(numbers) {
			return fmt.Errorf("column %s has %d values for %d blocks", c.Name, len(c.Values), len(numbers))
		}
	}
	cw := csv.NewWriter(w)
	row := make([]string, len(cols)+1)
	row[0] = "block"
	for i, c := range cols {
		row[i+1] = c.Name
	}
	if err := cw.Write(row); err != nil {
		return err
	}
	for j, number := range numbers {
		row[0] = strconv.FormatUint(number, 10)
		for i, c := range cols {
			row[i+1] = strconv.FormatFloat(c.Values[j], 'f', -1, 64)
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
