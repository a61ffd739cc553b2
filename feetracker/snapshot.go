package feetracker

import (
	"bytes"
	"encoding/binary"
	"io"

	"github.com/pkg/errors"
)

const snapshotVersion uint32 = 1

// Snapshot serializes the tracker's bucket history so a process restart
// does not discard fee estimation history. It is optional infrastructure:
// nothing in the admission path depends on it.
func (t *Tracker) Snapshot() ([]byte, error) {
	var buf bytes.Buffer
	if err := binary.Write(&buf, binary.BigEndian, snapshotVersion); err != nil {
		return nil, errors.Wrap(err, "writing snapshot version")
	}
	if err := binary.Write(&buf, binary.BigEndian, t.latestSeenHeight); err != nil {
		return nil, errors.Wrap(err, "writing latest seen height")
	}
	if err := binary.Write(&buf, binary.BigEndian, t.firstRecordedHeight); err != nil {
		return nil, errors.Wrap(err, "writing first recorded height")
	}

	for _, fs := range []*feeStat{t.short, t.medium, t.long} {
		if err := writeFeeStat(&buf, fs); err != nil {
			return nil, err
		}
	}

	return buf.Bytes(), nil
}

// RestoreSnapshot rebuilds a Tracker from bytes produced by Snapshot.
func RestoreSnapshot(data []byte) (*Tracker, error) {
	r := bytes.NewReader(data)

	var version uint32
	if err := binary.Read(r, binary.BigEndian, &version); err != nil {
		return nil, errors.Wrap(err, "reading snapshot version")
	}
	if version != snapshotVersion {
		return nil, errors.Errorf("unsupported fee tracker snapshot version %d", version)
	}

	t := New()
	if err := binary.Read(r, binary.BigEndian, &t.latestSeenHeight); err != nil {
		return nil, errors.Wrap(err, "reading latest seen height")
	}
	if err := binary.Read(r, binary.BigEndian, &t.firstRecordedHeight); err != nil {
		return nil, errors.Wrap(err, "reading first recorded height")
	}

	for _, fs := range []*feeStat{t.short, t.medium, t.long} {
		if err := readFeeStat(r, fs); err != nil {
			return nil, err
		}
	}

	return t, nil
}

func writeFeeStat(w io.Writer, fs *feeStat) error {
	if err := writeFloatSlice(w, fs.txCtAvg); err != nil {
		return err
	}
	if err := writeFloatSlice(w, fs.feeRateAvg); err != nil {
		return err
	}
	for _, row := range fs.confirmedAverage {
		if err := writeFloatSlice(w, row); err != nil {
			return err
		}
	}
	for _, row := range fs.failedAverage {
		if err := writeFloatSlice(w, row); err != nil {
			return err
		}
	}
	for _, row := range fs.unconfirmedTxs {
		if err := writeIntSlice(w, row); err != nil {
			return err
		}
	}
	return writeIntSlice(w, fs.oldUnconfTxs)
}

func readFeeStat(r io.Reader, fs *feeStat) error {
	if err := readFloatSlice(r, fs.txCtAvg); err != nil {
		return err
	}
	if err := readFloatSlice(r, fs.feeRateAvg); err != nil {
		return err
	}
	for _, row := range fs.confirmedAverage {
		if err := readFloatSlice(r, row); err != nil {
			return err
		}
	}
	for _, row := range fs.failedAverage {
		if err := readFloatSlice(r, row); err != nil {
			return err
		}
	}
	for _, row := range fs.unconfirmedTxs {
		if err := readIntSlice(r, row); err != nil {
			return err
		}
	}
	return readIntSlice(r, fs.oldUnconfTxs)
}

func writeFloatSlice(w io.Writer, s []float64) error {
	return binary.Write(w, binary.BigEndian, s)
}

func readFloatSlice(r io.Reader, s []float64) error {
	return binary.Read(r, binary.BigEndian, s)
}

func writeIntSlice(w io.Writer, s []int) error {
	converted := make([]int64, len(s))
	for i, v := range s {
		converted[i] = int64(v)
	}
	return binary.Write(w, binary.BigEndian, converted)
}

func readIntSlice(r io.Reader, s []int) error {
	converted := make([]int64, len(s))
	if err := binary.Read(r, binary.BigEndian, converted); err != nil {
		return err
	}
	for i, v := range converted {
		s[i] = int(v)
	}
	return nil
}
