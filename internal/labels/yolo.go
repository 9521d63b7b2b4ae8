/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package labels

// YOLO text format: one box per line,
//
//	<class_id> <x_center> <y_center> <width> <height>
//
// separated by whitespace. Lines with a field count other than five are
// skipped on read. Floats are written with six decimals and clamped to [0,1].

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
)

const fieldCount = 5

var (
	// ErrMalformedRecord marks a line with the wrong number of fields.
	// Read skips such lines; ParseLine reports them.
	ErrMalformedRecord = errors.New("malformed record")
	// ErrUnparseableNumber marks a non-numeric or non-finite field.
	ErrUnparseableNumber = errors.New("unparseable number")
	// ErrInvalidClassID marks a negative class id.
	ErrInvalidClassID = errors.New("invalid class id")
)

// ParseError describes a record that has five fields but cannot be decoded.
type ParseError struct {
	Line  int // 1-based line number in the source
	Field string
	Value string
	Err   error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("line %d: %s %q: %v", e.Line, e.Field, e.Value, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

var fieldNames = [fieldCount]string{"class_id", "x_center", "y_center", "width", "height"}

// ParseLine decodes a single record. The returned box has ID 0.
func ParseLine(line string) (Box, error) {
	return parseFields(strings.Fields(line), 0)
}

func parseFields(parts []string, lineNo int) (Box, error) {
	if len(parts) != fieldCount {
		return Box{}, ErrMalformedRecord
	}
	cls, err := strconv.Atoi(parts[0])
	if err != nil {
		return Box{}, &ParseError{Line: lineNo, Field: fieldNames[0], Value: parts[0], Err: ErrUnparseableNumber}
	}
	if cls < 0 {
		return Box{}, &ParseError{Line: lineNo, Field: fieldNames[0], Value: parts[0], Err: ErrInvalidClassID}
	}
	var vals [4]float64
	for i := range vals {
		v, err := strconv.ParseFloat(parts[i+1], 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			return Box{}, &ParseError{Line: lineNo, Field: fieldNames[i+1], Value: parts[i+1], Err: ErrUnparseableNumber}
		}
		vals[i] = v
	}
	return Box{ClassID: cls, XCenter: vals[0], YCenter: vals[1], Width: vals[2], Height: vals[3]}, nil
}

// Read decodes all records from r. Ids are assigned in the order records are
// successfully parsed, so skipped lines leave no gap. A ParseError aborts the
// whole read; no partial result is returned.
func Read(r io.Reader) ([]Box, error) {
	var boxes []Box
	sc := bufio.NewScanner(r)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		b, err := parseFields(strings.Fields(sc.Text()), lineNo)
		if errors.Is(err, ErrMalformedRecord) {
			continue
		}
		if err != nil {
			return nil, err
		}
		b.ID = len(boxes)
		boxes = append(boxes, b)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read labels: %w", err)
	}
	return boxes, nil
}

// FormatLine encodes one record with clamped coordinates, without newline.
func FormatLine(b Box) string {
	c := b.Clamped()
	return fmt.Sprintf("%d %.6f %.6f %.6f %.6f", c.ClassID, c.XCenter, c.YCenter, c.Width, c.Height)
}

// Write encodes boxes to w, one line each, in collection order.
func Write(w io.Writer, boxes []Box) error {
	bw := bufio.NewWriter(w)
	for _, b := range boxes {
		if _, err := bw.WriteString(FormatLine(b)); err != nil {
			return err
		}
		if err := bw.WriteByte('\n'); err != nil {
			return err
		}
	}
	return bw.Flush()
}
