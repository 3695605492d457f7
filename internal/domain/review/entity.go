package review

import (
	"bytes"
	"encoding/json"
)

// ArtifactKind enum
type ArtifactKind string

const (
	KindPDF        ArtifactKind = "pdf"
	KindOCR        ArtifactKind = "ocr"
	KindIndicators ArtifactKind = "indicators"
	KindAnnotated  ArtifactKind = "annotated"
)

// AnnotationEntry is one reviewer comment tied to one indicator, as submitted
// by the viewer. OriginalValue is informational only; the server re-derives
// values from the stored record and never trusts this field.
type AnnotationEntry struct {
	Indicator     string `json:"indicator"`
	OriginalValue any    `json:"original_value,omitempty"`
	Comment       string `json:"comment"`
}

// IndicatorEdit is the fold-variant wire shape: a comment keyed by indicator name.
type IndicatorEdit struct {
	Comment string `json:"comment"`
}

// IndicatorValue holds one indicator's value. On the wire it is either a bare
// scalar ("grade": 2) or a structured object ("grade": {"value": 2,
// "comment": "borderline"}); attaching a comment upgrades a scalar in place.
type IndicatorValue struct {
	Value   any
	Comment string

	structured bool
}

// Scalar wraps a bare value.
func Scalar(v any) IndicatorValue {
	return IndicatorValue{Value: v}
}

// Structured wraps a value with a reviewer comment attached.
func Structured(v any, comment string) IndicatorValue {
	return IndicatorValue{Value: v, Comment: comment, structured: true}
}

// WithComment returns a copy carrying the comment, upgrading scalar form to
// structured form. The underlying value is never changed.
func (v IndicatorValue) WithComment(comment string) IndicatorValue {
	return IndicatorValue{Value: v.Value, Comment: comment, structured: true}
}

func (v IndicatorValue) IsStructured() bool { return v.structured }

func (v IndicatorValue) MarshalJSON() ([]byte, error) {
	if !v.structured {
		return json.Marshal(v.Value)
	}
	return json.Marshal(struct {
		Value   any    `json:"value"`
		Comment string `json:"comment"`
	}{v.Value, v.Comment})
}

func (v *IndicatorValue) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(trimmed, &obj); err != nil {
			return err
		}
		if raw, ok := obj["value"]; ok {
			var inner any
			if err := json.Unmarshal(raw, &inner); err != nil {
				return err
			}
			var comment string
			if rawC, ok := obj["comment"]; ok {
				if err := json.Unmarshal(rawC, &comment); err != nil {
					return err
				}
			}
			*v = Structured(inner, comment)
			return nil
		}
		// An object without a "value" key is an opaque scalar as far as the
		// merge is concerned.
	}
	var inner any
	if err := json.Unmarshal(data, &inner); err != nil {
		return err
	}
	*v = Scalar(inner)
	return nil
}

// IndicatorRecord maps indicator names to their values. This is both the
// pristine extraction blob and the annotated output persisted after a save.
type IndicatorRecord map[string]IndicatorValue

// ParseIndicatorRecord decodes a stored indicator blob.
func ParseIndicatorRecord(data []byte) (IndicatorRecord, error) {
	var rec IndicatorRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// Encode serializes the record with indentation. Map keys marshal in sorted
// order, so identical records always produce identical bytes.
func (r IndicatorRecord) Encode() ([]byte, error) {
	return json.MarshalIndent(r, "", "    ")
}
