// Package results turns the dataset rows of a finished run into either a
// table or a raw JSON dump, and exports the rows for download.
package results

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Download file names.
const (
	JSONFilename = "actor_results.json"
	CSVFilename  = "actor_results.csv"
)

// Undefined is shown for a column the row does not have.
const Undefined = "undefined"

// ErrNotTabular is returned when a table export is requested for a raw view.
var ErrNotTabular = errors.New("results are not tabular")

// Mode is how a result set is presented.
type Mode string

const (
	ModeTable Mode = "table"
	ModeRaw   Mode = "raw"
)

// Cell is one rendered table cell.
type Cell struct {
	Text    string `json:"text"`
	Missing bool   `json:"missing,omitempty"`
	Nested  bool   `json:"nested,omitempty"`
}

// View is the presentation of one result set. Columns come from the first
// row only; keys that appear only in later rows are not shown.
type View struct {
	Mode    Mode     `json:"mode"`
	Columns []string `json:"columns,omitempty"`
	Rows    [][]Cell `json:"rows,omitempty"`
	Raw     string   `json:"raw,omitempty"`
	Count   int      `json:"count"`

	original []json.RawMessage
}

// Interpret builds the view for rows. Table mode is used when rows is
// non-empty and its first row is a JSON object or array; otherwise the rows
// are shown as indented JSON.
func Interpret(rows []json.RawMessage) *View {
	v := &View{Count: len(rows), original: append([]json.RawMessage(nil), rows...)}

	columns, ok := firstRowColumns(rows)
	if !ok {
		v.Mode = ModeRaw
		v.Raw = string(v.indented())
		return v
	}

	v.Mode = ModeTable
	v.Columns = columns
	v.Rows = make([][]Cell, len(rows))
	for i, row := range rows {
		v.Rows[i] = rowCells(row, columns)
	}
	return v
}

// Original returns the rows exactly as received.
func (v *View) Original() []json.RawMessage {
	return append([]json.RawMessage(nil), v.original...)
}

// DownloadJSON returns the original rows as an indented JSON array.
func (v *View) DownloadJSON() []byte {
	return v.indented()
}

// WriteCSV writes the table view, header first.
func (v *View) WriteCSV(w io.Writer) error {
	if v.Mode != ModeTable {
		return ErrNotTabular
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(v.Columns); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	record := make([]string, len(v.Columns))
	for _, row := range v.Rows {
		for i, c := range row {
			record[i] = c.Text
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func (v *View) indented() []byte {
	var arr bytes.Buffer
	arr.WriteByte('[')
	for i, r := range v.original {
		if i > 0 {
			arr.WriteByte(',')
		}
		arr.Write(r)
	}
	arr.WriteByte(']')

	var out bytes.Buffer
	if err := json.Indent(&out, arr.Bytes(), "", "  "); err != nil {
		return arr.Bytes()
	}
	return out.Bytes()
}

func firstRowColumns(rows []json.RawMessage) ([]string, bool) {
	if len(rows) == 0 {
		return nil, false
	}
	first := bytes.TrimSpace(rows[0])
	if len(first) == 0 {
		return nil, false
	}
	switch first[0] {
	case '{':
		om := orderedmap.New[string, json.RawMessage]()
		if err := json.Unmarshal(first, om); err != nil {
			return nil, false
		}
		cols := make([]string, 0, om.Len())
		for p := om.Oldest(); p != nil; p = p.Next() {
			cols = append(cols, p.Key)
		}
		return cols, true
	case '[':
		var items []json.RawMessage
		if err := json.Unmarshal(first, &items); err != nil {
			return nil, false
		}
		cols := make([]string, len(items))
		for i := range items {
			cols[i] = strconv.Itoa(i)
		}
		return cols, true
	}
	return nil, false
}

func rowCells(row json.RawMessage, columns []string) []Cell {
	lookup := rowLookup(row)
	cells := make([]Cell, len(columns))
	for i, col := range columns {
		val, ok := lookup(col)
		if !ok {
			cells[i] = Cell{Text: Undefined, Missing: true}
			continue
		}
		cells[i] = cellFor(val)
	}
	return cells
}

func rowLookup(row json.RawMessage) func(string) (json.RawMessage, bool) {
	trimmed := bytes.TrimSpace(row)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		var m map[string]json.RawMessage
		if json.Unmarshal(trimmed, &m) == nil {
			return func(k string) (json.RawMessage, bool) {
				v, ok := m[k]
				return v, ok
			}
		}
	}
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var items []json.RawMessage
		if json.Unmarshal(trimmed, &items) == nil {
			return func(k string) (json.RawMessage, bool) {
				i, err := strconv.Atoi(k)
				if err != nil || i < 0 || i >= len(items) {
					return nil, false
				}
				return items[i], true
			}
		}
	}
	return func(string) (json.RawMessage, bool) { return nil, false }
}

// cellFor renders a JSON value: strings bare, numbers and booleans as
// literals, null as "null", objects and arrays as compact JSON.
func cellFor(raw json.RawMessage) Cell {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return Cell{Text: Undefined, Missing: true}
	}
	switch trimmed[0] {
	case '{', '[':
		var buf bytes.Buffer
		if err := json.Compact(&buf, trimmed); err != nil {
			return Cell{Text: string(trimmed), Nested: true}
		}
		return Cell{Text: buf.String(), Nested: true}
	case '"':
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return Cell{Text: string(trimmed)}
		}
		return Cell{Text: s}
	case 't', 'f', 'n':
		return Cell{Text: string(trimmed)}
	default:
		return Cell{Text: numberText(string(trimmed))}
	}
}

// numberText prints a JSON number the way a browser would show it, so
// "1.50" reads "1.5" and "1e3" reads "1000".
func numberText(s string) string {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return s
	}
	if math.Abs(f) >= 1e21 || (f != 0 && math.Abs(f) < 1e-6) {
		return strconv.FormatFloat(f, 'g', -1, 64)
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}
