package schema

import "fmt"

// ColumnKind controls how a table cell is formatted.
type ColumnKind uint8

const (
	ColumnText ColumnKind = iota
	ColumnNumber
	ColumnCurrency
	ColumnDate
	ColumnArray
	ColumnRelation
)

var columnKindNames = [...]string{
	ColumnText:     "text",
	ColumnNumber:   "number",
	ColumnCurrency: "currency",
	ColumnDate:     "date",
	ColumnArray:    "array",
	ColumnRelation: "relation",
}

// String returns the configuration name of the kind.
func (k ColumnKind) String() string {
	if int(k) < len(columnKindNames) {
		return columnKindNames[k]
	}
	return fmt.Sprintf("ColumnKind(%d)", uint8(k))
}

// MarshalText implements encoding.TextMarshaler.
func (k ColumnKind) MarshalText() ([]byte, error) {
	if int(k) >= len(columnKindNames) {
		return nil, fmt.Errorf("invalid column type %d", uint8(k))
	}
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
// An empty value means text. Unknown names are rejected.
func (k *ColumnKind) UnmarshalText(b []byte) error {
	s := string(b)
	if s == "" {
		*k = ColumnText
		return nil
	}
	for i, name := range columnKindNames {
		if name == s {
			*k = ColumnKind(i)
			return nil
		}
	}
	return fmt.Errorf("unknown column type %q", s)
}

// FieldKind selects the input control of a form field.
type FieldKind uint8

const (
	FieldText FieldKind = iota
	FieldNumber
	FieldCurrency
	FieldSelect
	FieldMultiSelect
	FieldTextarea
	FieldDate
)

var fieldKindNames = [...]string{
	FieldText:        "text",
	FieldNumber:      "number",
	FieldCurrency:    "currency",
	FieldSelect:      "select",
	FieldMultiSelect: "multi-select",
	FieldTextarea:    "textarea",
	FieldDate:        "date",
}

// String returns the configuration name of the kind.
func (k FieldKind) String() string {
	if int(k) < len(fieldKindNames) {
		return fieldKindNames[k]
	}
	return fmt.Sprintf("FieldKind(%d)", uint8(k))
}

// MarshalText implements encoding.TextMarshaler.
func (k FieldKind) MarshalText() ([]byte, error) {
	if int(k) >= len(fieldKindNames) {
		return nil, fmt.Errorf("invalid field type %d", uint8(k))
	}
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
// An empty value means text; "multiselect" is accepted as an alias.
func (k *FieldKind) UnmarshalText(b []byte) error {
	s := string(b)
	switch s {
	case "":
		*k = FieldText
		return nil
	case "multiselect":
		*k = FieldMultiSelect
		return nil
	}
	for i, name := range fieldKindNames {
		if name == s {
			*k = FieldKind(i)
			return nil
		}
	}
	return fmt.Errorf("unknown field type %q", s)
}

// HasOptions reports whether the kind picks from a list of options.
func (k FieldKind) HasOptions() bool {
	return k == FieldSelect || k == FieldMultiSelect
}

// FieldKindFor maps a column kind to the input used when a module has no
// explicit form and its columns double as fields.
func FieldKindFor(c ColumnKind) FieldKind {
	switch c {
	case ColumnText:
		return FieldText
	case ColumnNumber:
		return FieldNumber
	case ColumnCurrency:
		return FieldCurrency
	case ColumnDate:
		return FieldDate
	case ColumnArray:
		return FieldMultiSelect
	case ColumnRelation:
		return FieldSelect
	default:
		panic(fmt.Sprintf("schema: unhandled column kind %v", c))
	}
}
