package fileutil

import (
	"encoding/json"
	"io"
	"os"
)

// PrintJSON writes value to stdout as indented JSON.
func PrintJSON(value any) error {
	return WriteJSON(os.Stdout, value)
}

// WriteJSON writes value as indented JSON. Markdown text such as "R&D" or
// "<br>" is kept as written rather than HTML-escaped.
func WriteJSON(w io.Writer, value any) error {
	encoder := json.NewEncoder(w)
	encoder.SetEscapeHTML(false)
	encoder.SetIndent("", "  ")
	return encoder.Encode(value)
}
