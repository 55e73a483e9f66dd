package main

import (
	"encoding/json"
	"io"
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"
)

// print 以 JSON 或两列表格输出结果。空值行被省略。
func (s *session) print(v any, rows [][2]string) error {
	if s.flags.asJSON {
		return writeJSON(s.out, v)
	}
	t := table.NewWriter()
	t.SetOutputMirror(s.out)
	t.SetStyle(table.StyleLight)
	for _, row := range rows {
		if row[1] == "" {
			continue
		}
		t.AppendRow(table.Row{row[0], row[1]})
	}
	t.Render()
	return nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func intString(v int32) string { return strconv.FormatInt(int64(v), 10) }

func uintString(v uint32) string { return strconv.FormatUint(uint64(v), 10) }
