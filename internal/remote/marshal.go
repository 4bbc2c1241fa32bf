package remote

import (
	"bytes"
	"encoding/json"
)

// TabularResult is the raw shape of a remote result set: ordered column
// names and positional value tuples.
type TabularResult struct {
	Columns []string
	Rows    [][]Value
}

// Row is one result row keyed by column name. It serializes as a JSON object
// whose keys follow the column order of the result set.
type Row struct {
	columns []string
	values  []Value
}

func (r Row) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, c := range r.columns {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(c)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')

		val, err := r.values[i].MarshalJSON()
		if err != nil {
			return nil, err
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Marshal zips column names with each positional tuple. A column name that
// repeats keeps its first position and takes the last value. Missing trailing
// values are null. Zero rows yield an empty, non-nil slice.
func Marshal(columns []string, rows [][]Value) []Row {
	keys := make([]string, 0, len(columns))
	slot := make([]int, len(columns))
	seen := make(map[string]int, len(columns))
	for i, c := range columns {
		pos, ok := seen[c]
		if !ok {
			pos = len(keys)
			seen[c] = pos
			keys = append(keys, c)
		}
		slot[i] = pos
	}

	out := make([]Row, 0, len(rows))
	for _, tuple := range rows {
		values := make([]Value, len(keys))
		for i := range columns {
			if i < len(tuple) {
				values[slot[i]] = tuple[i]
			}
		}
		out = append(out, Row{columns: keys, values: values})
	}
	return out
}
