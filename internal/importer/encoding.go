package importer

import (
	"bytes"
	"fmt"
	"io"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// ReadText reads an uploaded file and returns it as UTF-8 text.
//
// A leading UTF-8 byte order mark is dropped. Spreadsheet exports that are
// not valid UTF-8 are decoded as Windows-1252, which is what Excel writes
// for "CSV" on French-locale machines. When limit is positive, input
// longer than limit bytes returns ErrFileTooLarge.
func ReadText(r io.Reader, limit int64) (string, error) {
	if limit > 0 {
		r = io.LimitReader(r, limit+1)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("read upload: %w", err)
	}
	if limit > 0 && int64(len(data)) > limit {
		return "", fmt.Errorf("%w: limit is %d bytes", ErrFileTooLarge, limit)
	}
	return DecodeText(data), nil
}

// DecodeText converts raw file bytes to UTF-8 text, stripping a BOM.
func DecodeText(data []byte) string {
	data = bytes.TrimPrefix(data, utf8BOM)
	if utf8.Valid(data) {
		return string(data)
	}
	decoded, err := charmap.Windows1252.NewDecoder().Bytes(data)
	if err != nil {
		return string(bytes.ToValidUTF8(data, []byte("\uFFFD")))
	}
	return string(decoded)
}
