package pack

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Description types accepted by the repository's descriptive metadata schema.
const (
	DescriptionAbstract        = "abstract"
	DescriptionTableOfContents = "tableOfContents"
)

// Identifier is one typed identifier value (e.g. a DOI or handle).
type Identifier struct {
	Value string `json:"value"`
	Type  string `json:"type,omitempty"`
}

// Description is one descriptive metadata value with an optional type.
type Description struct {
	Value string `json:"value"`
	Type  string `json:"type,omitempty"`
}

// Contributor is a personal or institutional contributor entry.
type Contributor struct {
	Last          string   `json:"last"`
	Rest          string   `json:"rest,omitempty"`
	Roles         []string `json:"roles,omitempty"`
	IsInstitution bool     `json:"is_institution"`
}

// Fields is an insertion-ordered mapping from metadata field names to
// ordered value sequences. Fields are repeatable and value order within a
// field is preserved; serialization emits fields in insertion order and
// omits fields whose value list is empty.
type Fields struct {
	names  []string
	values map[string][]any
}

// Set replaces the value sequence for name. Setting an empty sequence keeps
// the field registered but omits it from serialized output.
func (f *Fields) Set(name string, values ...any) {
	f.ensure(name)
	f.values[name] = append([]any(nil), values...)
}

// Add appends values to the existing sequence for name.
func (f *Fields) Add(name string, values ...any) {
	f.ensure(name)
	f.values[name] = append(f.values[name], values...)
}

// Values returns the value sequence for name, or nil when absent.
func (f *Fields) Values(name string) []any {
	if f.values == nil {
		return nil
	}
	return f.values[name]
}

// Names returns the registered field names in insertion order.
func (f *Fields) Names() []string {
	return append([]string(nil), f.names...)
}

// Len reports the number of registered fields.
func (f *Fields) Len() int {
	return len(f.names)
}

// AddDescription appends a typed description value. The type must be empty,
// "abstract", or "tableOfContents"; anything else is rejected.
func (f *Fields) AddDescription(value, descriptionType string) error {
	switch descriptionType {
	case "", DescriptionAbstract, DescriptionTableOfContents:
	default:
		return fmt.Errorf("description type must be %q or %q, got %q",
			DescriptionAbstract, DescriptionTableOfContents, descriptionType)
	}
	f.Add("description", Description{Value: value, Type: descriptionType})
	return nil
}

// AddPersonalContributor appends a personal contributor with optional roles.
func (f *Fields) AddPersonalContributor(last, rest string, roles ...string) {
	f.Add("contributor", Contributor{Last: last, Rest: rest, Roles: append([]string(nil), roles...)})
}

// AddInstitutionalContributor appends an institutional contributor.
func (f *Fields) AddInstitutionalContributor(name string, roles ...string) {
	f.Add("contributor", Contributor{Last: name, Roles: append([]string(nil), roles...), IsInstitution: true})
}

// AddIdentifier appends a typed identifier value to the identifier field.
func (f *Fields) AddIdentifier(value, identifierType string) {
	f.Add("identifier", Identifier{Value: value, Type: identifierType})
}

func (f *Fields) ensure(name string) {
	if f.values == nil {
		f.values = make(map[string][]any)
	}
	if _, ok := f.values[name]; !ok {
		f.names = append(f.names, name)
	}
}

// MarshalJSON encodes the fields as a JSON object whose keys appear in
// insertion order. Empty fields are skipped.
func (f Fields) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	first := true
	for _, name := range f.names {
		values := f.values[name]
		if len(values) == 0 {
			continue
		}
		if !first {
			buf.WriteByte(',')
		}
		first = false

		key, err := json.Marshal(name)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')

		encoded, err := json.Marshal(values)
		if err != nil {
			return nil, fmt.Errorf("encode field %q: %w", name, err)
		}
		buf.Write(encoded)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a JSON object, registering fields in document order.
func (f *Fields) UnmarshalJSON(data []byte) error {
	f.names = nil
	f.values = nil

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("metadata fields: expected JSON object, got %v", tok)
	}

	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("metadata fields: unexpected key token %v", keyTok)
		}

		var values []any
		if err := dec.Decode(&values); err != nil {
			return fmt.Errorf("metadata field %q: %w", key, err)
		}
		f.Set(key, values...)
	}

	_, err = dec.Token()
	return err
}
