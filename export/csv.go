package export

import (
	"encoding/csv"
	"io"
	"math"
	"strconv"

	"github.com/c360/plotstream/errors"
	"github.com/c360/plotstream/pkg/timestamp"
	"github.com/c360/plotstream/store"
)

// TimestampMode selects how the optional timestamp column is rendered.
type TimestampMode int

const (
	// TimestampAbsolute renders RFC3339 calendar timestamps.
	TimestampAbsolute TimestampMode = iota
	// TimestampRelative renders seconds since the first-ever sample.
	TimestampRelative
	// TimestampRaw renders the stored numeric value verbatim.
	TimestampRaw
)

// CSVOptions configures delimited-text export.
type CSVOptions struct {
	IncludeTimestamp bool
	Mode             TimestampMode
	Comma            rune // 0 selects ','
}

// WriteCSV renders a snapshot as delimited text: one header row, then one
// row per sample in chronological order. Columns follow series insertion
// order. No-sample sentinels render as empty fields.
func WriteCSV(w io.Writer, sn *store.Snapshot, opts CSVOptions) error {
	cw := csv.NewWriter(w)
	if opts.Comma != 0 {
		cw.Comma = opts.Comma
	}

	header := make([]string, 0, len(sn.Series)+1)
	if opts.IncludeTimestamp {
		header = append(header, "Timestamp")
	}
	for _, sr := range sn.Series {
		header = append(header, sr.Info.Name)
	}
	if err := cw.Write(header); err != nil {
		return errors.Wrap(err, "export", "WriteCSV", "header write")
	}

	row := make([]string, len(header))
	for i := 0; i < sn.Len(); i++ {
		row = row[:0]
		if opts.IncludeTimestamp {
			row = append(row, formatTimestamp(sn.Times[i], sn.FirstTimestamp, opts.Mode))
		}
		for _, sr := range sn.Series {
			v := sr.Values[i]
			if math.IsNaN(v) || math.IsInf(v, 0) {
				row = append(row, "")
				continue
			}
			row = append(row, strconv.FormatFloat(v, 'g', -1, 64))
		}
		if err := cw.Write(row); err != nil {
			return errors.Wrap(err, "export", "WriteCSV", "row write")
		}
	}

	cw.Flush()
	return errors.Wrap(cw.Error(), "export", "WriteCSV", "flush")
}

func formatTimestamp(ts, epoch int64, mode TimestampMode) string {
	switch mode {
	case TimestampRelative:
		return timestamp.FormatRelative(ts, epoch)
	case TimestampRaw:
		return timestamp.FormatRaw(ts)
	default:
		return timestamp.Format(ts)
	}
}
