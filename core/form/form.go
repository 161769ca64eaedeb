// Package form interprets a list of field definitions as an editable form:
// it loads related options, binds raw input, validates required fields and
// coerces input into the record sent to the backend.
package form

import (
	"context"
	"sync"

	"github.com/artpar/bizadmin/core/formatter"
	"github.com/artpar/bizadmin/core/relation"
	"github.com/artpar/bizadmin/core/schema"
)

// State is the lifecycle state of a form.
type State uint8

const (
	// Loading means related option lists are outstanding; submission is
	// disabled.
	Loading State = iota
	// Ready accepts input and submission.
	Ready
)

func (s State) String() string {
	switch s {
	case Loading:
		return "loading"
	case Ready:
		return "ready"
	default:
		return "unknown"
	}
}

// OptionSource resolves the options of related fields.
type OptionSource interface {
	LoadFields(ctx context.Context, fields []schema.FieldDef) relation.Result
}

// Options configures a form.
type Options struct {
	Relations      OptionSource
	CurrencySymbol string
}

// SubmitFunc receives the coerced record. A nil return clears the form.
type SubmitFunc func(ctx context.Context, record schema.Record) error

// Form holds the input state of one rendering of a field list.
type Form struct {
	mu        sync.Mutex
	fields    []schema.FieldDef
	initial   schema.Record
	values    map[string][]string
	options   map[string][]schema.Option
	warnings  map[string]string
	errs      ValidationErrors
	state     State
	relations OptionSource
	symbol    string
}

// New creates a form over fields, pre-filled from initial (which may be
// nil). Forms with related fields start in Loading until Load completes.
func New(fields []schema.FieldDef, initial schema.Record, opts Options) *Form {
	symbol := opts.CurrencySymbol
	if symbol == "" {
		symbol = formatter.DefaultCells.Symbol
	}
	f := &Form{
		fields:    fields,
		initial:   initial,
		options:   make(map[string][]schema.Option),
		warnings:  make(map[string]string),
		state:     Ready,
		relations: opts.Relations,
		symbol:    symbol,
	}
	for _, fd := range fields {
		if fd.Relation != nil {
			f.state = Loading
		} else if len(fd.Options) > 0 {
			f.options[fd.Key] = fd.Options
		}
	}
	f.values = f.initialValues()
	return f
}

// Fields returns the field definitions.
func (f *Form) Fields() []schema.FieldDef {
	return f.fields
}

// State returns the current state.
func (f *Form) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// Load fetches every related option list in parallel and moves the form to
// Ready once all have settled. A failed list leaves that field without
// options and records a warning. If ctx ends first the form stays Loading.
func (f *Form) Load(ctx context.Context) error {
	f.mu.Lock()
	if f.state == Ready {
		f.mu.Unlock()
		return nil
	}
	f.mu.Unlock()

	var res relation.Result
	if f.relations != nil {
		res = f.relations.LoadFields(ctx, f.fields)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	for _, fd := range f.fields {
		if fd.Relation == nil {
			continue
		}
		switch {
		case res.Errors[fd.Key] != nil:
			f.warnings[fd.Key] = "Options unavailable: " + res.Errors[fd.Key].Error()
		case res.Options == nil:
			f.warnings[fd.Key] = "Options unavailable"
		default:
			f.options[fd.Key] = res.Options[fd.Key]
		}
	}
	f.state = Ready
	return nil
}

// Bind replaces every field's input with posted values. Fields absent from
// values become empty, as an HTML form omits unselected multi-selects.
func (f *Form) Bind(values map[string][]string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	next := make(map[string][]string, len(f.fields))
	for _, fd := range f.fields {
		if v, ok := values[fd.Key]; ok {
			next[fd.Key] = append([]string(nil), v...)
		}
	}
	f.values = next
	f.errs = nil
}

// Set replaces the input of a single field and keeps the others.
func (f *Form) Set(key string, values ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.values[key] = append([]string(nil), values...)
}

// Values returns a copy of the raw input.
func (f *Form) Values() map[string][]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[string][]string, len(f.values))
	for k, v := range f.values {
		out[k] = append([]string(nil), v...)
	}
	return out
}

// Errors returns the validation failures of the last submission.
func (f *Form) Errors() ValidationErrors {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.errs
}

// Validate coerces the current input without submitting it.
func (f *Form) Validate() (schema.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, errs := f.collect()
	f.errs = errs
	if len(errs) > 0 {
		return nil, errs
	}
	return rec, nil
}

// Submit validates and coerces the input and hands the record to
// onSubmit. It returns ErrLoading without calling onSubmit while related
// options are outstanding, and ValidationErrors when any field fails.
// On success the form is cleared; on failure the input is kept and the
// handler's error is returned unchanged.
func (f *Form) Submit(ctx context.Context, onSubmit SubmitFunc) error {
	f.mu.Lock()
	if f.state == Loading {
		f.mu.Unlock()
		return ErrLoading
	}
	rec, errs := f.collect()
	f.errs = errs
	f.mu.Unlock()

	if len(errs) > 0 {
		return errs
	}
	if err := onSubmit(ctx, rec); err != nil {
		return err
	}

	f.mu.Lock()
	f.values = make(map[string][]string)
	f.initial = nil
	f.mu.Unlock()
	return nil
}

// Cancel discards input and returns to the initial values.
func (f *Form) Cancel() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.values = f.initialValues()
	f.errs = nil
}

// Input is one field prepared for rendering.
type Input struct {
	Field    schema.FieldDef
	Kind     schema.FieldKind
	Value    string
	Values   []string
	Options  []Choice
	Error    string
	Warning  string
	Disabled bool
}

// Choice is one select option with its selection state.
type Choice struct {
	Value    string
	Label    string
	Selected bool
}

// Inputs returns render-ready inputs in field order. Currency input is
// shown with its symbol and thousands separators.
func (f *Form) Inputs() []Input {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]Input, 0, len(f.fields))
	for _, fd := range f.fields {
		raw := f.values[fd.Key]
		in := Input{
			Field:    fd,
			Kind:     fd.Type,
			Values:   raw,
			Error:    f.errs.For(fd.Key),
			Warning:  f.warnings[fd.Key],
			Disabled: f.state == Loading && fd.Relation != nil,
		}
		if len(raw) > 0 {
			in.Value = raw[0]
		}
		if fd.Type == schema.FieldCurrency && in.Value != "" {
			if n, err := ParseCurrency(in.Value, f.symbol); err == nil {
				in.Value = formatter.CurrencyString(n, f.symbol)
			}
		}
		if fd.Type.HasOptions() {
			in.Options = f.choices(fd, raw)
		}
		out = append(out, in)
	}
	return out
}

func (f *Form) choices(fd schema.FieldDef, raw []string) []Choice {
	selected := make(map[string]bool, len(raw))
	for _, r := range raw {
		selected[r] = true
	}
	opts := f.options[fd.Key]
	out := make([]Choice, 0, len(opts))
	for _, o := range opts {
		v := schema.FormatID(o.Value)
		label := o.Label
		if label == "" {
			label = v
		}
		out = append(out, Choice{Value: v, Label: label, Selected: selected[v]})
	}
	return out
}

func (f *Form) collect() (schema.Record, ValidationErrors) {
	rec := make(schema.Record, len(f.fields))
	var errs ValidationErrors
	for _, fd := range f.fields {
		v, verr := coerce(fd, f.values[fd.Key], f.options[fd.Key], f.initial[fd.Key], f.symbol)
		if verr != nil {
			errs = append(errs, verr)
			continue
		}
		rec[fd.Key] = v
	}
	return rec, errs
}

func (f *Form) initialValues() map[string][]string {
	values := make(map[string][]string, len(f.fields))
	for _, fd := range f.fields {
		if v := display(fd, f.initial[fd.Key], f.symbol); v != nil {
			values[fd.Key] = v
		}
	}
	return values
}
