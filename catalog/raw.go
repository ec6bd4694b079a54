package catalog

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"strconv"

	gojson "github.com/goccy/go-json"
)

// RawEntity is one line of extraction output.
type RawEntity struct {
	Title           string     `json:"title"`
	Text            string     `json:"text"`
	Types           []string   `json:"types"`
	WikipediaPageID FlexString `json:"wikipedia_page_id"`
	KBIdx           FlexString `json:"kb_idx"`
}

// Partial projects the raw line onto a catalog record: text becomes the
// description, missing types become empty.
func (e RawEntity) Partial() Partial {
	types := e.Types
	if types == nil {
		types = []string{}
	}
	return Partial{
		Title:           e.Title,
		Description:     e.Text,
		Types:           types,
		WikipediaPageID: string(e.WikipediaPageID),
		KBID:            string(e.KBIdx),
	}
}

// FlexString accepts a JSON string, number or null.
type FlexString string

func (s *FlexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case len(b) == 0 || bytes.Equal(b, []byte("null")):
		*s = ""
	case b[0] == '"':
		var v string
		if err := gojson.Unmarshal(b, &v); err != nil {
			return err
		}
		*s = FlexString(v)
	default:
		n, err := strconv.ParseFloat(string(b), 64)
		if err != nil {
			return fmt.Errorf("catalog: expected string or number, got %s", b)
		}
		*s = FlexString(strconv.FormatFloat(n, 'f', -1, 64))
	}
	return nil
}

const maxRawLine = 64 << 20

// RawEntityReader streams raw entities from JSON lines. Blank lines are skipped.
type RawEntityReader struct {
	sc   *bufio.Scanner
	line int
}

// NewRawEntityReader returns a reader over r.
func NewRawEntityReader(r io.Reader) *RawEntityReader {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), maxRawLine)
	return &RawEntityReader{sc: sc}
}

// Next returns the next entity, or io.EOF at the end of input.
func (r *RawEntityReader) Next() (RawEntity, error) {
	for r.sc.Scan() {
		r.line++
		b := bytes.TrimSpace(r.sc.Bytes())
		if len(b) == 0 {
			continue
		}
		var e RawEntity
		if err := gojson.Unmarshal(b, &e); err != nil {
			return RawEntity{}, fmt.Errorf("catalog: line %d: %w", r.line, err)
		}
		return e, nil
	}
	if err := r.sc.Err(); err != nil {
		return RawEntity{}, fmt.Errorf("catalog: line %d: %w", r.line+1, err)
	}
	return RawEntity{}, io.EOF
}

// ReadRawEntities reads all entities from r in order.
func ReadRawEntities(r io.Reader) ([]RawEntity, error) {
	rr := NewRawEntityReader(r)
	var out []RawEntity
	for {
		e, err := rr.Next()
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
}
