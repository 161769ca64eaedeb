package cli

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/artpar/bizadmin/core/form"
	"github.com/artpar/bizadmin/core/schema"
)

// Prompter handles interactive CLI input.
type Prompter struct {
	reader *bufio.Reader
	out    io.Writer
}

// NewPrompter creates a prompter reading lines from in.
func NewPrompter(in io.Reader, out io.Writer) *Prompter {
	return &Prompter{
		reader: bufio.NewReader(in),
		out:    out,
	}
}

// PromptForInputs asks for every required field of f that has no value
// yet. Select fields offer their loaded options.
func (p *Prompter) PromptForInputs(f *form.Form) error {
	for _, in := range f.Inputs() {
		if !in.Field.Required || !isBlank(in.Values) {
			continue
		}

		label := in.Field.Label
		if hint := fieldHint(in.Field); hint != "" && len(in.Options) == 0 {
			label += " " + hint
		}

		var (
			values []string
			err    error
		)
		switch {
		case len(in.Options) > 0 && in.Kind == schema.FieldMultiSelect:
			values, err = p.PromptMultiSelect(label, in.Options)
		case len(in.Options) > 0:
			var v string
			v, err = p.PromptSelect(label, in.Options)
			values = []string{v}
		default:
			var v string
			v, err = p.Prompt(label + " (required): ")
			values = []string{v}
		}
		if err != nil {
			return err
		}
		if isBlank(values) {
			return fmt.Errorf("%s is required", in.Field.Label)
		}
		f.Set(in.Field.Key, values...)
	}
	return nil
}

// Prompt displays a prompt and reads a line of input.
func (p *Prompter) Prompt(prompt string) (string, error) {
	fmt.Fprint(p.out, prompt)
	line, err := p.reader.ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// Confirm prompts for yes/no confirmation.
func (p *Prompter) Confirm(prompt string) (bool, error) {
	response, err := p.Prompt(prompt + " [y/N]: ")
	if err != nil {
		return false, err
	}

	response = strings.ToLower(strings.TrimSpace(response))
	return response == "y" || response == "yes", nil
}

// PromptSelect prompts the user to pick one choice by number, value or
// label and returns its value.
func (p *Prompter) PromptSelect(prompt string, choices []form.Choice) (string, error) {
	fmt.Fprintln(p.out, prompt)
	for i, c := range choices {
		fmt.Fprintf(p.out, "  %d. %s\n", i+1, c.Label)
	}

	for {
		response, err := p.Prompt("Enter number or value: ")
		if err != nil {
			return "", err
		}
		if v, ok := pick(response, choices); ok {
			return v, nil
		}
		fmt.Fprintln(p.out, "Invalid selection. Try again.")
	}
}

// PromptMultiSelect accepts a comma-separated list of numbers, values or
// labels.
func (p *Prompter) PromptMultiSelect(prompt string, choices []form.Choice) ([]string, error) {
	fmt.Fprintln(p.out, prompt)
	for i, c := range choices {
		fmt.Fprintf(p.out, "  %d. %s\n", i+1, c.Label)
	}

next:
	for {
		response, err := p.Prompt("Enter numbers or values, comma separated: ")
		if err != nil {
			return nil, err
		}
		var out []string
		for _, part := range strings.Split(response, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			v, ok := pick(part, choices)
			if !ok {
				fmt.Fprintf(p.out, "Unknown option %q. Try again.\n", part)
				continue next
			}
			out = append(out, v)
		}
		return out, nil
	}
}

func pick(response string, choices []form.Choice) (string, bool) {
	var idx int
	if _, err := fmt.Sscanf(response, "%d", &idx); err == nil && fmt.Sprint(idx) == response {
		if idx >= 1 && idx <= len(choices) {
			return choices[idx-1].Value, true
		}
	}
	for _, c := range choices {
		if c.Value == response || strings.EqualFold(c.Label, response) {
			return c.Value, true
		}
	}
	return "", false
}
