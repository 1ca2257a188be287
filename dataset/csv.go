package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"strconv"

	"github.com/YuminosukeSato/tabprep/pkg/errors"
)

// ReadCSV parses CSV data into a Table. The first record is the header.
// A column is typed numeric when every non-empty cell parses as a float;
// empty cells in a numeric column become NaN. Any other column is categorical.
func ReadCSV(r io.Reader) (*Table, error) {
	reader := csv.NewReader(r)

	header, err := reader.Read()
	if err != nil {
		return nil, errors.Wrap(err, "failed to read CSV header")
	}

	raw := make([][]string, len(header))
	for i := range raw {
		raw[i] = []string{}
	}

	for {
		rec, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrap(err, "failed to read CSV record")
		}
		if len(rec) != len(header) {
			return nil, errors.NewDimensionError("ReadCSV", len(header), len(rec), 1)
		}
		for i, cell := range rec {
			raw[i] = append(raw[i], cell)
		}
	}

	tbl := NewTable()
	for i, name := range header {
		if floats, ok := parseNumericColumn(raw[i]); ok {
			if err := tbl.AddNumeric(name, floats); err != nil {
				return nil, err
			}
			continue
		}
		values := make([]string, len(raw[i]))
		copy(values, raw[i])
		if err := tbl.AddCategorical(name, values); err != nil {
			return nil, err
		}
	}
	return tbl, nil
}

// parseNumericColumn attempts to parse every non-empty cell as float64.
// Returns false when any cell fails to parse, leaving the column categorical.
func parseNumericColumn(cells []string) ([]float64, bool) {
	out := make([]float64, len(cells))
	sawValue := false
	for i, cell := range cells {
		if cell == "" {
			out[i] = math.NaN()
			continue
		}
		v, err := strconv.ParseFloat(cell, 64)
		if err != nil {
			return nil, false
		}
		out[i] = v
		sawValue = true
	}
	return out, sawValue
}

// WriteScoring writes a two-column scoring record set {id, predicted value}.
// Row identifiers never pass through the pipeline: the caller extracts them
// before Apply and reattaches them here, aligned to the prediction order.
func WriteScoring(w io.Writer, idName string, ids []string, predName string, preds []float64) error {
	if len(ids) != len(preds) {
		return errors.NewDimensionError("WriteScoring", len(ids), len(preds), 0)
	}

	cw := csv.NewWriter(w)
	if err := cw.Write([]string{idName, predName}); err != nil {
		return errors.Wrap(err, "failed to write scoring header")
	}
	for i, id := range ids {
		rec := []string{id, fmt.Sprintf("%g", preds[i])}
		if err := cw.Write(rec); err != nil {
			return errors.Wrap(err, "failed to write scoring record")
		}
	}
	cw.Flush()
	return errors.WithStack(cw.Error())
}
