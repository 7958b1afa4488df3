package errorz

import "strings"

// InvalidInput signals that a provided input is invalid due to the wrapped errors.
// Errors that are Keyed can be reported per field.
type InvalidInput []error

func (e InvalidInput) Error() string {
	var b strings.Builder
	b.WriteString("invalid input:\n")
	for _, err := range e {
		b.WriteString(err.Error())
		b.WriteString("\n")
	}
	return b.String()
}

func (e InvalidInput) Unwrap() []error {
	return e
}

// Fields returns the keyed errors as a map of key to message.
// Errors without a key are reported under the empty key.
func (e InvalidInput) Fields() map[string]string {
	out := make(map[string]string, len(e))
	for _, err := range e {
		k, ok := err.(Keyed)
		if !ok {
			out[""] = err.Error()
			continue
		}
		out[k.Key] = k.message()
	}
	return out
}

// Collector accumulates keyed errors while parsing several fields.
// The zero value is ready to use.
type Collector struct {
	errs InvalidInput
}

// Add records err under key, nil errors are ignored.
func (c *Collector) Add(key string, err error) {
	if err == nil {
		return
	}
	c.errs = append(c.errs, Keyed{Key: key, Err: err})
}

// Err returns an InvalidInput if any error was added, otherwise nil.
func (c *Collector) Err() error {
	if len(c.errs) == 0 {
		return nil
	}
	return c.errs
}
