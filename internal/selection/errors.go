package selection

// ConstructionErrorKind classifies mistakes made while building a selection.
type ConstructionErrorKind string

const (
	InvalidValue      ConstructionErrorKind = "InvalidValue"
	InvalidName       ConstructionErrorKind = "InvalidName"
	DuplicateField    ConstructionErrorKind = "DuplicateField"
	DuplicateArgument ConstructionErrorKind = "DuplicateArgument"
)

// ConstructionError is a caller mistake detected while building a selection,
// independent of any schema. The fluent builder panics with it.
type ConstructionError struct {
	Kind     ConstructionErrorKind
	Field    string // response key of the field being built, if known
	Argument string
	Message  string
}

func (e *ConstructionError) Error() string {
	msg := "selection: "
	if e.Field != "" {
		msg += e.Field + ": "
	}
	if e.Argument != "" {
		msg += "argument " + e.Argument + ": "
	}
	return msg + e.Message
}
