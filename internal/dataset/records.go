package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/jszwec/csvutil"

	"github.com/relabs-tech/myo_landmarks/internal/emg"
	"github.com/relabs-tech/myo_landmarks/internal/session"
)

// Row is one line of a collection file:
// id, time, pose_name, s1..s8, then the 63 landmark columns.
type Row struct {
	ID   string  `csv:"id"`
	Time float64 `csv:"time"`
	Pose string  `csv:"pose_name"`
	S1   int32   `csv:"s1"`
	S2   int32   `csv:"s2"`
	S3   int32   `csv:"s3"`
	S4   int32   `csv:"s4"`
	S5   int32   `csv:"s5"`
	S6   int32   `csv:"s6"`
	S7   int32   `csv:"s7"`
	S8   int32   `csv:"s8"`
	Hand `csv:",inline"`
}

// RowFrom converts a record to its CSV row.
func RowFrom(r session.Record) Row {
	e := r.EMG
	return Row{
		ID: r.ID, Time: r.Time, Pose: r.Pose,
		S1: e[0], S2: e[1], S3: e[2], S4: e[3], S5: e[4], S6: e[5], S7: e[6], S8: e[7],
		Hand: HandFrom(r.Landmarks),
	}
}

// Record converts the row back.
func (row Row) Record() session.Record {
	return session.Record{
		ID:        row.ID,
		Time:      row.Time,
		Pose:      row.Pose,
		EMG:       [emg.Channels]int32{row.S1, row.S2, row.S3, row.S4, row.S5, row.S6, row.S7, row.S8},
		Landmarks: row.Hand.Frame(),
	}
}

// Header returns the column names of a collection file.
func Header() []string {
	h, err := csvutil.Header(Row{}, "csv")
	if err != nil {
		panic(err) // static type, cannot fail
	}
	return h
}

// plain floats keep full precision without exponents, so epoch seconds
// stay readable.
var floatMarshaler = csvutil.MarshalFunc(func(f float64) ([]byte, error) {
	return strconv.AppendFloat(nil, f, 'f', -1, 64), nil
})

// EncodeRecords writes records with a header line.
func EncodeRecords(w io.Writer, records []session.Record) error {
	cw := csv.NewWriter(w)
	enc := csvutil.NewEncoder(cw)
	enc.WithMarshalers(floatMarshaler)
	if err := enc.EncodeHeader(Row{}); err != nil {
		return err
	}
	for i, r := range records {
		if err := enc.Encode(RowFrom(r)); err != nil {
			return fmt.Errorf("record %d: %w", i, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteRecords writes the collection file at path through a temporary
// file, so a failed write never leaves a truncated CSV behind.
func WriteRecords(path string, records []session.Record) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if err := EncodeRecords(tmp, records); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// DecodeRecords reads a collection file.
func DecodeRecords(r io.Reader) ([]session.Record, error) {
	dec, err := csvutil.NewDecoder(csv.NewReader(r))
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, err
	}
	dec.DisallowMissingColumns = true

	var out []session.Record
	for {
		var row Row
		if err := dec.Decode(&row); err == io.EOF {
			break
		} else if err != nil {
			return nil, fmt.Errorf("row %d: %w", len(out)+1, err)
		}
		out = append(out, row.Record())
	}
	return out, nil
}

// ReadRecords reads the collection file at path.
func ReadRecords(path string) ([]session.Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	recs, err := DecodeRecords(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return recs, nil
}
