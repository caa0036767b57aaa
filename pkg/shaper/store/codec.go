package store

import (
	"encoding/json"
	"fmt"

	"github.com/cognicore/shaper/pkg/shaper/internalerr"
	"github.com/cognicore/shaper/pkg/shaper/shape"
)

// element kinds on the wire
const (
	wireLiteral = "l"
	wireChar    = "c"
)

// elementJSON is the stored form of a run element. Char references are
// stored by ID only.
type elementJSON struct {
	Kind  string `json:"k"`
	Rune  int32  `json:"r,omitempty"`
	Char  string `json:"c,omitempty"`
	Count int    `json:"n"`
}

// EncodeElements serializes run elements for storage.
func EncodeElements(elements []shape.RunElement) ([]byte, error) {
	wire := make([]elementJSON, len(elements))
	for i, e := range elements {
		switch e.Symbol.Kind {
		case shape.KindLiteral:
			wire[i] = elementJSON{Kind: wireLiteral, Rune: e.Symbol.Rune, Count: e.Count}
		case shape.KindChar:
			if e.Symbol.Char == "" {
				return nil, fmt.Errorf("element %d: char reference without id: %w", i, internalerr.ErrInvalidInput)
			}
			wire[i] = elementJSON{Kind: wireChar, Char: string(e.Symbol.Char), Count: e.Count}
		default:
			return nil, fmt.Errorf("element %d: unsupported symbol kind %d: %w", i, e.Symbol.Kind, internalerr.ErrInvalidInput)
		}
	}
	return json.Marshal(wire)
}

// DecodeElements parses stored run elements. Anything malformed is reported
// as internalerr.ErrCorrupt.
func DecodeElements(data []byte) ([]shape.RunElement, error) {
	var wire []elementJSON
	if err := json.Unmarshal(data, &wire); err != nil {
		return nil, fmt.Errorf("decode elements: %v: %w", err, internalerr.ErrCorrupt)
	}
	out := make([]shape.RunElement, len(wire))
	for i, w := range wire {
		if w.Count <= 0 {
			return nil, fmt.Errorf("element %d: count %d: %w", i, w.Count, internalerr.ErrCorrupt)
		}
		switch w.Kind {
		case wireLiteral:
			out[i] = shape.RunElement{Symbol: shape.Literal(w.Rune), Count: w.Count}
		case wireChar:
			if w.Char == "" {
				return nil, fmt.Errorf("element %d: empty char id: %w", i, internalerr.ErrCorrupt)
			}
			out[i] = shape.RunElement{Symbol: shape.Ref(shape.CharID(w.Char)), Count: w.Count}
		default:
			return nil, fmt.Errorf("element %d: unknown kind %q: %w", i, w.Kind, internalerr.ErrCorrupt)
		}
	}
	return out, nil
}

// EncodeLabels serializes a label histogram.
func EncodeLabels(byLabel map[string]int) ([]byte, error) {
	if byLabel == nil {
		byLabel = map[string]int{}
	}
	return json.Marshal(byLabel)
}

// DecodeLabels parses a stored label histogram and checks it against total.
func DecodeLabels(data []byte, total int) (shape.SampleCount, error) {
	sc := shape.SampleCount{Total: total, ByLabel: map[string]int{}}
	if err := json.Unmarshal(data, &sc.ByLabel); err != nil {
		return shape.SampleCount{}, fmt.Errorf("decode labels: %v: %w", err, internalerr.ErrCorrupt)
	}
	sum := 0
	for _, n := range sc.ByLabel {
		sum += n
	}
	if sum != total {
		return shape.SampleCount{}, fmt.Errorf("label counts sum to %d, total is %d: %w", sum, total, internalerr.ErrCorrupt)
	}
	return sc, nil
}

// CharRecord is the serialized form of a Char, used by key-value stores.
type CharRecord struct {
	ID      string          `json:"id"`
	Level   int             `json:"level"`
	Cluster json.RawMessage `json:"cluster"`
}

// PatternJSON is the serialized form of a pattern record, used by key-value
// stores.
type PatternJSON struct {
	ID         string          `json:"id"`
	Level      int             `json:"level"`
	Elements   json.RawMessage `json:"pattern"`
	CountTotal int             `json:"countTotal"`
	ByLabel    map[string]int  `json:"countByLabel"`
}

// MarshalChar encodes c with the given ID.
func MarshalChar(id shape.CharID, c shape.Char) ([]byte, error) {
	cluster, err := EncodeElements(c.Cluster)
	if err != nil {
		return nil, err
	}
	return json.Marshal(CharRecord{ID: string(id), Level: c.Level, Cluster: cluster})
}

// UnmarshalChar decodes a char written by MarshalChar.
func UnmarshalChar(data []byte) (shape.Char, error) {
	var rec CharRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return shape.Char{}, fmt.Errorf("decode char: %v: %w", err, internalerr.ErrCorrupt)
	}
	cluster, err := DecodeElements(rec.Cluster)
	if err != nil {
		return shape.Char{}, fmt.Errorf("char %s: %w", rec.ID, err)
	}
	c := shape.NewChar(rec.Level, cluster)
	c.ID = shape.CharID(rec.ID)
	return c, nil
}

// MarshalPattern encodes a pattern record with the given ID.
func MarshalPattern(id string, p shape.Pattern, sc shape.SampleCount) ([]byte, error) {
	elements, err := EncodeElements(p.Elements)
	if err != nil {
		return nil, err
	}
	byLabel := sc.ByLabel
	if byLabel == nil {
		byLabel = map[string]int{}
	}
	return json.Marshal(PatternJSON{
		ID:         id,
		Level:      p.Level,
		Elements:   elements,
		CountTotal: sc.Total,
		ByLabel:    byLabel,
	})
}

// UnmarshalPattern decodes a record written by MarshalPattern.
func UnmarshalPattern(data []byte) (PatternRecord, error) {
	var rec PatternJSON
	if err := json.Unmarshal(data, &rec); err != nil {
		return PatternRecord{}, fmt.Errorf("decode pattern: %v: %w", err, internalerr.ErrCorrupt)
	}
	elements, err := DecodeElements(rec.Elements)
	if err != nil {
		return PatternRecord{}, fmt.Errorf("pattern %s: %w", rec.ID, err)
	}
	labels, err := EncodeLabels(rec.ByLabel)
	if err != nil {
		return PatternRecord{}, err
	}
	sc, err := DecodeLabels(labels, rec.CountTotal)
	if err != nil {
		return PatternRecord{}, fmt.Errorf("pattern %s: %w", rec.ID, err)
	}
	return PatternRecord{
		ID:      rec.ID,
		Pattern: shape.Pattern{Level: rec.Level, Elements: elements},
		Count:   sc,
	}, nil
}
