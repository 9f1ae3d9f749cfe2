package graphql

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

// Enum is a value emitted unquoted in query text
type Enum string

// FetchQuery builds the query selecting fields on one entity:
//
//	{ floatValue(id:"x"){ name device{id} } }
func FetchQuery(entityType, id string, fields []FieldKey) string {
	var b strings.Builder
	b.WriteString("{ ")
	b.WriteString(entityType)
	b.WriteString(`(id:`)
	b.WriteString(Quote(id))
	b.WriteString("){ ")
	for _, f := range fields {
		b.WriteString(string(f))
		b.WriteByte(' ')
	}
	b.WriteString("} }")
	return b.String()
}

// MutationQuery builds the mutation updating one field of an entity:
//
//	mutation{ floatValue(id:"x", name:"new"){id} }
func MutationQuery(entityType, id, field string, value interface{}) (string, error) {
	encoded, err := EncodeValue(value)
	if err != nil {
		return "", fmt.Errorf("field %s: %w", field, err)
	}
	return fmt.Sprintf("mutation{ %s(id:%s, %s:%s){id} }", entityType, Quote(id), field, encoded), nil
}

// Quote renders s as a GraphQL string literal. JSON string escapes are a
// subset of GraphQL's, so the encoder's output is used as is.
func Quote(s string) string {
	var b bytes.Buffer
	enc := json.NewEncoder(&b)
	enc.SetEscapeHTML(false)
	// encoding a string cannot fail
	_ = enc.Encode(s)
	return strings.TrimSuffix(b.String(), "\n")
}

// Arg is a named argument of a root mutation. A nil Value omits the argument.
type Arg struct {
	Name  string
	Value interface{}
}

// RootMutation builds a root-level mutation such as
//
//	mutation{logIn(passwordCertificate:"c",){id}}
//
// selection is appended verbatim after the argument list and may be empty.
func RootMutation(name, selection string, args ...Arg) (string, error) {
	var b strings.Builder
	b.WriteString("mutation{")
	b.WriteString(name)
	b.WriteByte('(')
	for _, arg := range args {
		if isNil(arg.Value) {
			continue
		}
		encoded, err := EncodeValue(arg.Value)
		if err != nil {
			return "", fmt.Errorf("argument %s: %w", arg.Name, err)
		}
		b.WriteString(arg.Name)
		b.WriteByte(':')
		b.WriteString(encoded)
		b.WriteByte(',')
	}
	b.WriteByte(')')
	b.WriteString(selection)
	b.WriteByte('}')
	return b.String(), nil
}

// EncodeValue renders a Go value as a GraphQL literal. Strings are quoted;
// enums, numbers and booleans are emitted bare.
func EncodeValue(value interface{}) (string, error) {
	switch v := value.(type) {
	case nil:
		return "null", nil
	case Enum:
		return string(v), nil
	case string:
		return Quote(v), nil
	case bool:
		return strconv.FormatBool(v), nil
	case int:
		return strconv.Itoa(v), nil
	case int32:
		return strconv.FormatInt(int64(v), 10), nil
	case int64:
		return strconv.FormatInt(v, 10), nil
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32), nil
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), nil
	case json.Number:
		return v.String(), nil
	case []string:
		items := make([]interface{}, len(v))
		for i, s := range v {
			items[i] = s
		}
		return encodeList(items)
	case []interface{}:
		return encodeList(v)
	default:
		rv := reflect.ValueOf(value)
		if rv.Kind() == reflect.Ptr {
			if rv.IsNil() {
				return "null", nil
			}
			return EncodeValue(rv.Elem().Interface())
		}
		return "", fmt.Errorf("unsupported value type %T", value)
	}
}

func encodeList(items []interface{}) (string, error) {
	parts := make([]string, 0, len(items))
	for _, item := range items {
		encoded, err := EncodeValue(item)
		if err != nil {
			return "", err
		}
		parts = append(parts, encoded)
	}
	return "[" + strings.Join(parts, ",") + "]", nil
}

func isNil(v interface{}) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Ptr, reflect.Slice, reflect.Map, reflect.Interface:
		return rv.IsNil()
	}
	return false
}
