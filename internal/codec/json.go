package codec

import (
	"encoding/json"
	"fmt"
	"io"

	"bactopo/internal/domain"
)

// JSONCodec handles JSON import/export of triple documents.
type JSONCodec struct{}

// NewJSONCodec creates a new JSON codec.
func NewJSONCodec() *JSONCodec {
	return &JSONCodec{}
}

// Format returns the codec format identifier.
func (c *JSONCodec) Format() string {
	return "json"
}

// jsonDocument is the on-disk structure of a serialized snapshot.
type jsonDocument struct {
	Triples []jsonTriple `json:"triples"`
}

type jsonTriple struct {
	Subject   string     `json:"subject"`
	Predicate string     `json:"predicate"`
	Object    jsonObject `json:"object"`
}

type jsonObject struct {
	Type  string `json:"type"`
	Value string `json:"value,omitempty"`
	Int   int64  `json:"int,omitempty"`
}

// Parse imports a triple document from JSON.
func (c *JSONCodec) Parse(r io.Reader) ([]domain.Triple, error) {
	var doc jsonDocument
	decoder := json.NewDecoder(r)
	if err := decoder.Decode(&doc); err != nil {
		return nil, fmt.Errorf("parse snapshot: %w", err)
	}

	triples := make([]domain.Triple, 0, len(doc.Triples))
	for _, jt := range doc.Triples {
		obj, err := decodeObject(jt.Object)
		if err != nil {
			return nil, fmt.Errorf("triple (%s %s): %w", jt.Subject, jt.Predicate, err)
		}
		triples = append(triples, domain.Triple{
			Subject:   jt.Subject,
			Predicate: jt.Predicate,
			Object:    obj,
		})
	}
	return triples, nil
}

// Export writes a triple document as indented JSON.
func (c *JSONCodec) Export(triples []domain.Triple, w io.Writer) error {
	doc := jsonDocument{Triples: make([]jsonTriple, 0, len(triples))}
	for _, t := range triples {
		doc.Triples = append(doc.Triples, jsonTriple{
			Subject:   t.Subject,
			Predicate: t.Predicate,
			Object:    encodeObject(t.Object),
		})
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(doc); err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	return nil
}

func encodeObject(o domain.Object) jsonObject {
	if o.Type == domain.ObjectInteger {
		return jsonObject{Type: string(o.Type), Int: o.Int}
	}
	return jsonObject{Type: string(o.Type), Value: o.Str}
}

func decodeObject(jo jsonObject) (domain.Object, error) {
	switch domain.ObjectType(jo.Type) {
	case domain.ObjectString:
		return domain.String(jo.Value), nil
	case domain.ObjectInteger:
		return domain.Integer(jo.Int), nil
	case domain.ObjectRef:
		return domain.Ref(domain.NodeKey(jo.Value)), nil
	default:
		return domain.Object{}, fmt.Errorf("unknown object type %q", jo.Type)
	}
}
