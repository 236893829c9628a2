package ecoflow

// FieldType identifies the designer-facing widget for a declared input.
type FieldType string

const (
	// FieldTypeString is a plain single-line text input.
	FieldTypeString FieldType = "string"

	// FieldTypeHiddenString is a masked text input for secrets.
	FieldTypeHiddenString FieldType = "hidden-string"

	// FieldTypeSelectPicker is a fixed-choice dropdown.
	FieldTypeSelectPicker FieldType = "select-picker"

	// FieldTypeCheckbox is a boolean toggle.
	FieldTypeCheckbox FieldType = "checkbox"

	// FieldTypeCodeBlock is a multi-line editor, used for JSON blobs.
	FieldTypeCodeBlock FieldType = "code-block"
)

// FieldSpec declares one input a step accepts. The host renders the field in
// its flow designer and delivers the value through Inputs at invocation time.
type FieldSpec struct {
	// Name is the key the value arrives under in Inputs.
	Name string `json:"name"`

	// Label is the human-readable caption shown in the designer.
	Label string `json:"label"`

	// Type selects the widget.
	Type FieldType `json:"type"`

	// Required marks fields the designer must fill before deploying a flow.
	// Steps still re-validate at runtime; designer-side enforcement is advisory.
	Required bool `json:"required,omitempty"`

	// Options enumerates the choices of a select picker.
	Options []string `json:"options,omitempty"`

	// Default is the value used when the designer leaves the field untouched.
	Default any `json:"default,omitempty"`

	// Placeholder is shown in empty text inputs.
	Placeholder string `json:"placeholder,omitempty"`
}
