package cmd

import (
	"io"

	"github.com/goccy/go-json"
)

// writeJSON 向 out 输出一行 JSON
func writeJSON(out io.Writer, v any) error {
	return json.NewEncoder(out).Encode(v)
}
