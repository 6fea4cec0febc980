package scanners

import (
	"errors"
	"io"

	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/afero"

	"github.com/yorozuya-cybersecurity/vulnbrief/internal/fault"
	"github.com/yorozuya-cybersecurity/vulnbrief/internal/schema"
)

var errInvalidJSON = errors.New("not a valid JSON document")

// Codec decodes reports and re-encodes them for prompts. Numbers keep their
// original text and object keys are sorted, so encoding is deterministic.
var Codec = jsoniter.Config{
	EscapeHTML:  false,
	SortMapKeys: true,
	UseNumber:   true,
}.Froze()

// LoadReport reads path from fs and parses it as an arbitrary JSON value.
// The document is never inspected beyond syntax.
func LoadReport(fs afero.Fs, source schema.Source, path string) (schema.ScanReport, error) {
	res := schema.ScanReport{Source: source, Path: path}

	f, err := fs.Open(path)
	if err != nil {
		return res, fault.FileAccess("open "+string(source)+" report", path, err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return res, fault.FileAccess("read "+string(source)+" report", path, err)
	}
	res.Size = len(data)

	// Unmarshal can report a truncated document as a clean EOF, so the
	// syntax is checked on its own first.
	if !Codec.Valid(data) {
		return res, fault.Parse("parse "+string(source)+" report", path, errInvalidJSON)
	}
	var doc interface{}
	if err := Codec.Unmarshal(data, &doc); err != nil {
		return res, fault.Parse("parse "+string(source)+" report", path, err)
	}
	res.Document = doc
	return res, nil
}

// Encode serializes a report document as compact JSON.
func Encode(doc interface{}) (string, error) {
	return Codec.MarshalToString(doc)
}
