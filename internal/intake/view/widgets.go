// Package view renders the intake field widgets and page containers as HTML.
// The same widgets serve the editable form and the read-only admin view.
package view

// Kind selects the widget template for a field.
type Kind string

const (
	KindText       Kind = "text"
	KindEmail      Kind = "email"
	KindDate       Kind = "date"
	KindTime       Kind = "time"
	KindTextArea   Kind = "textarea"
	KindSelect     Kind = "select"
	KindRadio      Kind = "radio"
	KindCheckboxes Kind = "checkboxes"
)

// Choice is one option of a select, radio group or checkbox group.
type Choice struct {
	Value   string
	Label   string
	Checked bool
}

// Field is one labeled control.
type Field struct {
	Kind        Kind
	Name        string
	Label       string
	Value       string
	Placeholder string
	Error       string
	Required    bool
	Optional    bool
	ReadOnly    bool
	Choices     []Choice
}

// ShowRequired reports whether the required marker is shown.
func (f Field) ShowRequired() bool {
	return f.Required && !f.Optional
}

// Hidden is a name/value pair carried between steps of the form.
type Hidden struct {
	Name  string
	Value string
}

// HiddenValues returns the submitted values of the field as hidden inputs.
func (f Field) HiddenValues() []Hidden {
	switch f.Kind {
	case KindCheckboxes:
		var out []Hidden
		for _, c := range f.Choices {
			if c.Checked {
				out = append(out, Hidden{Name: f.Name, Value: c.Value})
			}
		}
		return out
	case KindRadio, KindSelect:
		for _, c := range f.Choices {
			if c.Checked {
				return []Hidden{{Name: f.Name, Value: c.Value}}
			}
		}
		return nil
	default:
		if f.Value == "" {
			return nil
		}
		return []Hidden{{Name: f.Name, Value: f.Value}}
	}
}

// Section is a titled group of fields. Key tags the section for page splitting.
type Section struct {
	Key    string
	Title  string
	Fields []Field
}

// HiddenValues flattens every field's hidden values.
func (s Section) HiddenValues() []Hidden {
	var out []Hidden
	for _, f := range s.Fields {
		out = append(out, f.HiddenValues()...)
	}
	return out
}

func choices(values []string, selected ...string) []Choice {
	out := make([]Choice, 0, len(values))
	for _, v := range values {
		out = append(out, Choice{Value: v, Label: v, Checked: contains(selected, v)})
	}
	return out
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v != "" && v == s {
			return true
		}
	}
	return false
}
