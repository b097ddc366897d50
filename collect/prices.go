package collect

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/frankdfr96/MEVresearch/sim"
	"github.com/frankdfr96/MEVresearch/units"
)

const (
	dateColumn  = "Date(UTC)"
	valueColumn = "Value (Wei)"
	csvDate     = "1/2/2006"
	configDate  = "2006-01-02"
)

func LoadPricesFile(name string, start, end time.Time) ([]units.Gwei, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	prices, err := LoadPrices(f, start, end)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return prices, nil
}

// LoadPrices reads an Etherscan daily average gas price export, returning the
// prices of the days in [start, end] in chronological order. Rows must be in
// chronological order.
func LoadPrices(r io.Reader, start, end time.Time) ([]units.Gwei, error) {
	br := bufio.NewReader(r)
	if c, _, err := br.ReadRune(); err == nil && c != '\ufeff' {
		br.UnreadRune()
	}
	cr := csv.NewReader(br)
	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("reading header: %v", err)
	}
	dateIdx, valueIdx := -1, -1
	for i, h := range header {
		switch strings.TrimSpace(h) {
		case dateColumn:
			dateIdx = i
		case valueColumn:
			valueIdx = i
		}
	}
	if dateIdx < 0 || valueIdx < 0 {
		return nil, sim.InputError{Reason: fmt.Sprintf("missing %q or %q column", dateColumn, valueColumn)}
	}

	var (
		prices []units.Gwei
		prev   time.Time
	)
	for line := 2; ; line++ {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		date, err := time.Parse(csvDate, row[dateIdx])
		if err != nil {
			return nil, sim.InputError{Reason: fmt.Sprintf("line %d: %v", line, err)}
		}
		if date.Before(prev) {
			return nil, sim.InputError{Reason: fmt.Sprintf("line %d: %s is out of order", line, row[dateIdx])}
		}
		prev = date
		if date.Before(start) || date.After(end) {
			continue
		}
		wei, err := units.ParseWei(row[valueIdx])
		if err != nil {
			return nil, sim.InputError{Reason: fmt.Sprintf("line %d: %v", line, err)}
		}
		prices = append(prices, wei.Gwei())
	}
	if len(prices) == 0 {
		return nil, sim.InputError{Reason: fmt.Sprintf("no reference prices between %s and %s",
			start.Format(configDate), end.Format(configDate))}
	}
	return prices, nil
}

// parseWindow parses the YYYY-MM-DD bounds of the reference price window.
func parseWindow(start, end string) (time.Time, time.Time, error) {
	s, err := time.Parse(configDate, start)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("pricestart: %v", err)
	}
	e, err := time.Parse(configDate, end)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("priceend: %v", err)
	}
	if e.Before(s) {
		return time.Time{}, time.Time{}, fmt.Errorf("priceend %s is before pricestart %s", end, start)
	}
	return s, e, nil
}
