package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

type Cell struct {
	Column string
	Value  Value
}

// Row is one record of a result set. Cells keep the order in which columns were
// set, and column lookup ignores case.
type Row struct {
	cells []Cell
	index map[string]int
}

func NewRow(capacity int) *Row {
	return &Row{
		cells: make([]Cell, 0, capacity),
		index: make(map[string]int, capacity),
	}
}

// Set adds a column to the end of the row. If the column already exists under
// any casing, its value is replaced in place and the original name is kept.
func (row *Row) Set(column string, value Value) {
	if row.index == nil {
		row.index = make(map[string]int)
	}

	key := strings.ToLower(column)
	if i, ok := row.index[key]; ok {
		row.cells[i].Value = value
		return
	}

	row.index[key] = len(row.cells)
	row.cells = append(row.cells, Cell{Column: column, Value: value})
}

func (row *Row) Get(column string) (Value, bool) {
	i, ok := row.index[strings.ToLower(column)]
	if !ok {
		return Null(), false
	}
	return row.cells[i].Value, true
}

func (row *Row) Columns() []string {
	columns := make([]string, len(row.cells))
	for i, cell := range row.cells {
		columns[i] = cell.Column
	}
	return columns
}

func (row *Row) Cells() []Cell {
	return row.cells
}

func (row *Row) Len() int {
	return len(row.cells)
}

func (row Row) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')

	for i, cell := range row.cells {
		if i > 0 {
			buf.WriteByte(',')
		}

		key, err := json.Marshal(cell.Column)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')

		value, err := cell.Value.MarshalJSON()
		if err != nil {
			return nil, fmt.Errorf("failed to marshal column '%s': %w", cell.Column, err)
		}
		buf.Write(value)
	}

	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads a JSON object into the row, keeping the key order of the
// document.
func (row *Row) UnmarshalJSON(data []byte) error {
	decoder := json.NewDecoder(bytes.NewReader(data))

	token, err := decoder.Token()
	if err != nil {
		return err
	}
	if delim, ok := token.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("expected JSON object for row, got %v", token)
	}

	*row = Row{index: make(map[string]int)}

	for decoder.More() {
		token, err := decoder.Token()
		if err != nil {
			return err
		}
		column, ok := token.(string)
		if !ok {
			return fmt.Errorf("expected column name, got %v", token)
		}

		var raw json.RawMessage
		if err := decoder.Decode(&raw); err != nil {
			return fmt.Errorf("failed to read value of column '%s': %w", column, err)
		}

		var value Value
		if err := value.UnmarshalJSON(raw); err != nil {
			return fmt.Errorf("failed to parse value of column '%s': %w", column, err)
		}

		row.Set(column, value)
	}

	_, err = decoder.Token()
	return err
}
