package schema

import "fmt"

// ValidationError is the single error kind of the schema layer. Its message
// is consumed verbatim by clients.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func Errorf(format string, args ...any) error {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// Validator checks an invariant spanning several fields of one component.
type Validator func(r Record, res Resolver) error

// Component is a named bundle of fields shared by every entity type that
// lists it.
type Component struct {
	Name       string
	Fields     []Field
	validators []Validator
}

func NewComponent(name string, fields ...Field) *Component {
	return &Component{Name: name, Fields: fields}
}

// With appends cross-field validators, run after every field passed.
func (c *Component) With(v ...Validator) *Component {
	c.validators = append(c.validators, v...)
	return c
}

func (c *Component) Field(name string) (Field, bool) {
	for _, f := range c.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

func (c *Component) Validate(r Record, res Resolver) error {
	for _, f := range c.Fields {
		if err := f.Validate(r, res); err != nil {
			return err
		}
	}
	for _, v := range c.validators {
		if err := v(r, res); err != nil {
			return err
		}
	}
	return nil
}

// Serialize validates r and returns the fields of this component present in
// it. Absent optional fields stay absent.
func (c *Component) Serialize(r Record, res Resolver) (Record, error) {
	if err := c.Validate(r, res); err != nil {
		return nil, err
	}
	out := make(Record, len(c.Fields))
	for _, f := range c.Fields {
		if r.Has(f.Name) {
			out[f.Name] = r[f.Name]
		}
	}
	return out, nil
}

// Display is Serialize with each field's display transform applied.
func (c *Component) Display(r Record, res Resolver) (Record, error) {
	out, err := c.Serialize(r, res)
	if err != nil {
		return nil, err
	}
	for _, f := range c.Fields {
		if v, ok := out[f.Name]; ok && f.display != nil {
			out[f.Name] = f.display(v)
		}
	}
	return out, nil
}
