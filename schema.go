package feedloader

import (
	"encoding/json"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// ColumnType declares how a source value is coerced into a column.
type ColumnType int

// Column types.
const (
	String ColumnType = iota
	Integer
	Float
)

func (t ColumnType) String() string {
	switch t {
	case String:
		return "string"
	case Integer:
		return "integer"
	case Float:
		return "float"
	default:
		return "unknown"
	}
}

// Row is one tabular record. Fields are already rendered as text.
type Row []string

// Column extracts one output field from a source record.
// Path is the key sequence from the record root, e.g. []string{"rating", "rate"}.
type Column struct {
	Name string
	Path []string
	Type ColumnType
}

// Schema is an ordered set of columns. Its order is the column order of every Row.
type Schema []Column

// ProductSchema flattens a product record with a nested rating object.
var ProductSchema = Schema{
	{Name: "id", Path: []string{"id"}, Type: Integer},
	{Name: "title", Path: []string{"title"}, Type: String},
	{Name: "description", Path: []string{"description"}, Type: String},
	{Name: "category", Path: []string{"category"}, Type: String},
	{Name: "rate", Path: []string{"rating", "rate"}, Type: Float},
	{Name: "count", Path: []string{"rating", "count"}, Type: Integer},
}

// Header returns the column names in order.
func (s Schema) Header() Row {
	h := make(Row, len(s))
	for i, c := range s {
		h[i] = c.Name
	}
	return h
}

// ExtractRow applies the schema to one record. It has no side effects.
//
// The record is expected to be a JSON object decoded into map[string]interface{}
// with numbers kept as json.Number (see JSONParser). Absent keys yield a
// *MissingFieldError and values that cannot be coerced a *TypeMismatchError.
func (s Schema) ExtractRow(record interface{}) (Row, error) {
	obj, ok := record.(map[string]interface{})
	if !ok {
		return nil, &TypeMismatchError{Want: "object", Value: record}
	}

	row := make(Row, len(s))
	for i, c := range s {
		v, err := lookup(obj, c.Path)
		if err != nil {
			return nil, err
		}

		f, err := c.coerce(v)
		if err != nil {
			return nil, err
		}
		row[i] = f
	}

	return row, nil
}

func lookup(obj map[string]interface{}, path []string) (interface{}, error) {
	var cur interface{} = obj
	for i, key := range path {
		m, ok := cur.(map[string]interface{})
		if !ok {
			return nil, &TypeMismatchError{Path: strings.Join(path[:i], "."), Want: "object", Value: cur}
		}

		v, ok := m[key]
		if !ok {
			return nil, &MissingFieldError{Path: strings.Join(path[:i+1], ".")}
		}
		cur = v
	}
	return cur, nil
}

// numberLiteral is the JSON number grammar. Numeric strings must match it too.
var numberLiteral = regexp.MustCompile(`^-?(?:0|[1-9][0-9]*)(?:\.[0-9]+)?(?:[eE][+-]?[0-9]+)?$`)

// maxExactFloat bounds the float64 values that still hold an exact integer.
const maxExactFloat = 1 << 53

func (c Column) coerce(v interface{}) (string, error) {
	mismatch := &TypeMismatchError{Path: strings.Join(c.Path, "."), Want: c.Type.String(), Value: v}

	switch c.Type {
	case String:
		switch v := v.(type) {
		case string:
			return v, nil
		case json.Number:
			return v.String(), nil
		case bool:
			return strconv.FormatBool(v), nil
		}
	case Integer:
		if lit, ok := numericText(v); ok {
			if n, ok := parseInteger(lit); ok {
				return strconv.FormatInt(n, 10), nil
			}
		} else if f, ok := v.(float64); ok {
			if n, ok := integral(f); ok {
				return strconv.FormatInt(n, 10), nil
			}
		}
	case Float:
		if lit, ok := numericText(v); ok {
			if f, err := strconv.ParseFloat(lit, 64); err == nil {
				return formatFloat(f), nil
			}
		} else if f, ok := v.(float64); ok && !math.IsInf(f, 0) && !math.IsNaN(f) {
			return formatFloat(f), nil
		}
	}

	return "", mismatch
}

// numericText returns the literal of a json.Number or of a string holding a
// JSON number. Padding, hex, underscores and Inf/NaN spellings are rejected.
func numericText(v interface{}) (string, bool) {
	var lit string
	switch v := v.(type) {
	case json.Number:
		lit = v.String()
	case string:
		lit = v
	default:
		return "", false
	}
	if !numberLiteral.MatchString(lit) {
		return "", false
	}
	return lit, true
}

// parseInteger converts a number literal to an int64 only when its value is an
// exact integer in range: "10", "10.0" and "1e2" pass, "1.5" and "1e19" do not.
// The digits are shifted as text, so no float rounding happens on the way.
func parseInteger(lit string) (int64, bool) {
	if n, err := strconv.ParseInt(lit, 10, 64); err == nil {
		return n, true
	}

	mant, exp := lit, 0
	if i := strings.IndexAny(lit, "eE"); i >= 0 {
		e, err := strconv.Atoi(lit[i+1:])
		if err != nil {
			return 0, false
		}
		mant, exp = lit[:i], e
	}

	neg := strings.HasPrefix(mant, "-")
	whole, frac, _ := strings.Cut(strings.TrimPrefix(mant, "-"), ".")

	digits := strings.TrimLeft(whole+frac, "0")
	if digits == "" {
		return 0, true
	}
	if exp < -math.MaxInt32 || exp > math.MaxInt32 {
		return 0, false
	}
	exp -= len(frac)

	for strings.HasSuffix(digits, "0") {
		digits = digits[:len(digits)-1]
		exp++
	}
	if exp < 0 || len(digits)+exp > 19 {
		return 0, false
	}

	digits += strings.Repeat("0", exp)
	if neg {
		digits = "-" + digits
	}

	n, err := strconv.ParseInt(digits, 10, 64)
	return n, err == nil
}

func integral(f float64) (int64, bool) {
	if math.IsInf(f, 0) || math.IsNaN(f) || f != math.Trunc(f) {
		return 0, false
	}
	if f < -maxExactFloat || f > maxExactFloat {
		return 0, false
	}
	return int64(f), true
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
