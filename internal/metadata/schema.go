package metadata

// FieldType is the type of a schema field, driving both the underlying
// index engine's field configuration and the sort specialization used by
// the search path.
type FieldType string

const (
	FieldText FieldType = "text"
	FieldI64  FieldType = "i64"
	FieldF64  FieldType = "f64"
	FieldU64  FieldType = "u64"
	FieldDate FieldType = "date"
)

// Field describes one schema field.
type Field struct {
	Name      string    `json:"name"`
	Type      FieldType `json:"type"`
	Stored    bool      `json:"stored"`
	Indexed   bool      `json:"indexed"`
	Fast      bool      `json:"fast,omitempty"`
	Tokenizer string    `json:"tokenizer,omitempty"`
}

// Reserved field names, always present in the schema a writer or reader is
// opened with, never persisted in meta.json.
const (
	ReservedID        = "_id"
	ReservedTimestamp = "_timestamp"
)

// reservedFields returns the two reserved fields with their fixed
// options: _id stored+indexed with the raw tokenizer, _timestamp
// stored+indexed+fast single-value date.
func reservedFields() []Field {
	return []Field{
		{Name: ReservedID, Type: FieldText, Stored: true, Indexed: true, Tokenizer: "raw"},
		{Name: ReservedTimestamp, Type: FieldDate, Stored: true, Indexed: true, Fast: true},
	}
}

// Schema is an ordered list of fields, including the two reserved fields
// while held in memory. Metadata's accessors guarantee the reserved fields
// are present; a Schema built directly as a literal carries only the fields
// it is given.
type Schema struct {
	Fields []Field
}

// IsReserved reports whether name is one of the two reserved field names.
func IsReserved(name string) bool {
	return name == ReservedID || name == ReservedTimestamp
}

// stripReserved returns a copy of fields with any reserved entries
// removed, the form persisted to meta.json on save.
func stripReserved(fields []Field) []Field {
	out := make([]Field, 0, len(fields))
	for _, f := range fields {
		if IsReserved(f.Name) {
			continue
		}
		out = append(out, f)
	}
	return out
}

// withReserved prepends the two reserved fields ahead of user fields,
// replacing any reserved entries already present so the fixed options
// always win — the form used in memory and when opening a writer/reader.
func withReserved(fields []Field) []Field {
	user := stripReserved(fields)
	out := make([]Field, 0, len(user)+2)
	out = append(out, reservedFields()...)
	out = append(out, user...)
	return out
}

// FieldByName finds a field by name, including reserved fields.
func (s Schema) FieldByName(name string) (Field, bool) {
	for _, f := range s.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// AnalyzerPipeline is a tokenizer followed by an ordered list of token
// filters, keyed by analyzer name in Metadata.analyzers.
type AnalyzerPipeline struct {
	Tokenizer    string   `json:"tokenizer"`
	TokenFilters []string `json:"token_filters,omitempty"`
}
