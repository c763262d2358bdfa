package output

import (
	"fmt"
	"io"
	"reflect"
	"strconv"
	"strings"

	"github.com/stoewer/go-strcase"
)

// Machine writes the line protocol consumed by wrapping tools. Every line
// is "name:arg1,arg2,key=value" and arguments are escaped so a line always
// maps back to one record.
type Machine struct {
	w io.Writer
}

func NewMachine(w io.Writer) *Machine {
	return &Machine{w: w}
}

// Escape protects a record argument against the separators of the line
// protocol.
func Escape(s string) string {
	s = strings.ReplaceAll(s, "\n", "\\n")
	s = strings.ReplaceAll(s, "\r", "\\r")
	s = strings.ReplaceAll(s, ",", "\\,")
	return s
}

// Line writes a raw record. Key-value arguments are appended after the
// positional ones by convention.
func (m *Machine) Line(name string, args ...string) {
	escaped := make([]string, len(args))
	for i, arg := range args {
		escaped[i] = Escape(arg)
	}
	fmt.Fprintf(m.w, "%s:%s\n", name, strings.Join(escaped, ","))
}

func (m *Machine) Task(state, key string, args ...Arg) {
	line := make([]string, 0, len(args)+2)
	line = append(line, state, key)
	for _, arg := range args {
		line = append(line, arg.Key+"="+arg.Value)
	}
	m.Line("task", line...)
}

func (m *Machine) Finish() {}

func (m *Machine) Print(text string) {
	m.Line("print", text)
}

// Event writes an installation event as its own tagged record, one per
// phase transition.
func (m *Machine) Event(event any) {
	args := EventArgs(event)
	line := make([]string, 0, len(args))
	for _, arg := range args {
		line = append(line, arg.Key+"="+arg.Value)
	}
	m.Line(EventTag(event), line...)
}

func (m *Machine) Table() Table {
	return &machineTable{m: m}
}

// machineTable buffers rows so the table record can announce how many
// lines follow. A nil row is a separator.
type machineTable struct {
	m    *Machine
	rows [][]string
}

func (t *machineTable) Add(cells ...string) {
	if cells == nil {
		cells = []string{}
	}
	t.rows = append(t.rows, cells)
}

func (t *machineTable) Separator() {
	t.rows = append(t.rows, nil)
}

func (t *machineTable) Print() {
	t.m.Line("table", strconv.Itoa(len(t.rows)))
	for _, row := range t.rows {
		if row == nil {
			t.m.Line("sep")
		} else {
			t.m.Line("row", row...)
		}
	}
}

// EventTag derives the record tag of an event from its type name, like
// VersionLoadedEvent giving "version_loaded". Consumers rely on these
// tags, not on the rendered messages.
func EventTag(event any) string {
	t := reflect.TypeOf(event)
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return strcase.SnakeCase(strings.TrimSuffix(t.Name(), "Event"))
}

// EventArgs flattens the exported fields of an event into record
// arguments, field names snake cased in declaration order.
func EventArgs(event any) []Arg {
	v := reflect.ValueOf(event)
	if v.Kind() == reflect.Ptr {
		v = v.Elem()
	}
	if v.Kind() != reflect.Struct {
		return nil
	}
	t := v.Type()
	args := make([]Arg, 0, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if field.PkgPath != "" {
			continue
		}
		args = append(args, Arg{
			Key:   strcase.SnakeCase(field.Name),
			Value: formatEventValue(v.Field(i)),
		})
	}
	return args
}

func formatEventValue(v reflect.Value) string {
	switch v.Kind() {
	case reflect.String:
		return v.String()
	case reflect.Bool:
		return strconv.FormatBool(v.Bool())
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(v.Int(), 10)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return strconv.FormatUint(v.Uint(), 10)
	case reflect.Float32, reflect.Float64:
		return strconv.FormatFloat(v.Float(), 'f', -1, 64)
	case reflect.Slice, reflect.Array:
		parts := make([]string, v.Len())
		for i := range parts {
			parts[i] = formatEventValue(v.Index(i))
		}
		return strings.Join(parts, " ")
	default:
		return fmt.Sprint(v.Interface())
	}
}
