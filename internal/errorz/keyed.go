package errorz

// Keyed attaches the name of an input field to an error, so InvalidInput
// can report it per field.
type Keyed struct {
	Key string
	Err error
}

func (k Keyed) Error() string {
	if k.Err == nil {
		return k.Key + ": invalid"
	}
	return k.Key + ": " + k.Err.Error()
}

func (k Keyed) Unwrap() error {
	return k.Err
}

// message is the text reported for the field.
func (k Keyed) message() string {
	if k.Err == nil {
		return "invalid"
	}
	return k.Err.Error()
}
