package channel

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"
)

// Command bytes sent from the command console to an axis.
const (
	CommandIncrease byte = '+'
	CommandDecrease byte = '-'
	CommandStop     byte = '0'
)

// Fixed record sizes. Records are NUL padded text.
const (
	PositionRecordSize = 6
	ReadingRecordSize  = 12
)

var (
	// ErrRecordTooWide reports a value whose text does not fit its record.
	ErrRecordTooWide = errors.New("channel: value does not fit record")
	// ErrMalformedRecord reports a record that cannot be decoded.
	ErrMalformedRecord = errors.New("channel: malformed record")
)

// EncodePosition renders v as "%.2f" in a PositionRecordSize record.
func EncodePosition(v float64) ([]byte, error) {
	return pad(strconv.FormatFloat(v, 'f', 2, 64), PositionRecordSize)
}

// DecodePosition parses a position record.
func DecodePosition(rec []byte) (float64, error) {
	v, err := strconv.ParseFloat(string(trim(rec)), 64)
	if err != nil {
		return 0, fmt.Errorf("%w: position %q", ErrMalformedRecord, rec)
	}
	return v, nil
}

// EncodeReading renders "X.XX,Z.ZZ" in a ReadingRecordSize record.
func EncodeReading(x, z float64) ([]byte, error) {
	text := strconv.FormatFloat(x, 'f', 2, 64) + "," + strconv.FormatFloat(z, 'f', 2, 64)
	return pad(text, ReadingRecordSize)
}

// DecodeReading parses a combined reading record.
func DecodeReading(rec []byte) (x, z float64, err error) {
	xs, zs, ok := bytes.Cut(trim(rec), []byte{','})
	if !ok {
		return 0, 0, fmt.Errorf("%w: reading %q", ErrMalformedRecord, rec)
	}
	if x, err = strconv.ParseFloat(string(xs), 64); err != nil {
		return 0, 0, fmt.Errorf("%w: reading %q", ErrMalformedRecord, rec)
	}
	if z, err = strconv.ParseFloat(string(zs), 64); err != nil {
		return 0, 0, fmt.Errorf("%w: reading %q", ErrMalformedRecord, rec)
	}
	return x, z, nil
}

// pad copies text into a NUL filled record, keeping at least one trailing NUL.
func pad(text string, size int) ([]byte, error) {
	if len(text) > size-1 {
		return nil, fmt.Errorf("%w: %q exceeds %d bytes", ErrRecordTooWide, text, size-1)
	}
	rec := make([]byte, size)
	copy(rec, text)
	return rec, nil
}

func trim(rec []byte) []byte {
	if i := bytes.IndexByte(rec, 0); i >= 0 {
		return rec[:i]
	}
	return rec
}
