package transform

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/mehmetymw/banketl/internal/types"
)

// RateTable maps a currency code to its rate against USD.
type RateTable map[string]float64

// Lookup fails with a DataError when code is absent; there is no fallback.
func (r RateTable) Lookup(code string) (float64, error) {
	rate, ok := r[code]
	if !ok {
		return 0, types.ErrData("rate lookup", fmt.Errorf("currency %q not in rate table", code))
	}
	return rate, nil
}

// LoadRates reads a CSV whose header names a Currency and a Rate column.
func LoadRates(path string) (RateTable, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, types.ErrFile("open rates", err)
	}
	defer f.Close()

	rates, err := ReadRates(f)
	if err != nil {
		return nil, err
	}
	return rates, nil
}

func ReadRates(r io.Reader) (RateTable, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, types.ErrParse("rates header", errors.New("empty rate file"))
	}
	if err != nil {
		return nil, types.ErrParse("rates header", err)
	}
	curIdx, rateIdx := -1, -1
	for i, h := range header {
		switch strings.TrimSpace(h) {
		case "Currency":
			curIdx = i
		case "Rate":
			rateIdx = i
		}
	}
	if curIdx < 0 || rateIdx < 0 {
		return nil, types.ErrParse("rates header", fmt.Errorf("want Currency and Rate columns, got %v", header))
	}

	rates := RateTable{}
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, types.ErrParse("rates", err)
		}
		rate, err := strconv.ParseFloat(strings.TrimSpace(rec[rateIdx]), 64)
		if err != nil {
			return nil, types.ErrParse(fmt.Sprintf("rates line %d", line), err)
		}
		rates[strings.TrimSpace(rec[curIdx])] = rate
	}
	return rates, nil
}
