package fieldtypes

import (
	"github.com/goliatone/go-flexforms/pkg/model"
	"github.com/goliatone/go-flexforms/pkg/widgets"
)

// Built-in field type keys.
const (
	SingleLineText          = "SINGLE_LINE_TEXT"
	MultiLineText           = "MULTI_LINE_TEXT"
	Email                   = "EMAIL"
	URL                     = "URL"
	Sensitive               = "SENSITIVE"
	Integer                 = "INTEGER"
	PositiveInteger         = "POSITIVE_INTEGER"
	Decimal                 = "DECIMAL"
	Date                    = "DATE"
	Time                    = "TIME"
	DateTime                = "DATETIME"
	Duration                = "DURATION"
	Checkbox                = "CHECKBOX"
	YesNoRadio              = "YES_NO_RADIO"
	YesNoUnknownRadio       = "YES_NO_UNKNOWN_RADIO"
	YesNoSelect             = "YES_NO_SELECT"
	YesNoUnknownSelect      = "YES_NO_UNKNOWN_SELECT"
	SingleChoiceSelect      = "SINGLE_CHOICE_SELECT"
	SingleChoiceRadioSelect = "SINGLE_CHOICE_RADIO_SELECT"
	MultipleChoiceSelect    = "MULTIPLE_CHOICE_SELECT"
	MultipleChoiceCheckbox  = "MULTIPLE_CHOICE_CHECKBOX"
	FileUpload              = "FILE_UPLOAD"
	ImageUpload             = "IMAGE_UPLOAD"
)

const (
	int32Min = -2147483648
	int32Max = 2147483647
)

// emptyChoices is the placeholder list choice types start with until a
// definition supplies its own.
func emptyChoices() []any {
	return []any{[]any{"EMPTY", "Select a value."}}
}

func yesNo() []any {
	return []any{
		map[string]any{"value": true, "label": "Yes"},
		map[string]any{"value": false, "label": "No"},
	}
}

func yesNoUnknown() []any {
	return []any{
		map[string]any{"value": nil, "label": "Unknown"},
		map[string]any{"value": true, "label": "Yes"},
		map[string]any{"value": false, "label": "No"},
	}
}

// Builtins returns a fresh copy of the built-in catalog.
func Builtins() []Type {
	return []Type{
		{Key: SingleLineText, Label: "Single-line Text", Kind: model.KindText, Widget: widgets.WidgetText, Coerce: CoerceText},
		{Key: MultiLineText, Label: "Multi-line Text", Kind: model.KindText, Widget: widgets.WidgetTextarea, Coerce: CoerceText},
		{Key: Email, Label: "Email Address", Kind: model.KindText, Widget: widgets.WidgetEmail, Coerce: CoerceText},
		{Key: URL, Label: "URL", Kind: model.KindText, Widget: widgets.WidgetURL, Coerce: CoerceText,
			Options: map[string]any{"max_length": 2083}},
		{Key: Sensitive, Label: "Sensitive text", Kind: model.KindText, Widget: widgets.WidgetPassword, Coerce: CoerceText},
		{Key: Integer, Label: "Integer", Kind: model.KindInteger, Widget: widgets.WidgetNumber, Coerce: CoerceInteger,
			Options: map[string]any{"min_value": int32Min, "max_value": int32Max}},
		{Key: PositiveInteger, Label: "Positive Integer", Kind: model.KindInteger, Widget: widgets.WidgetNumber, Coerce: CoerceInteger,
			Options: map[string]any{"min_value": 0, "max_value": int32Max}},
		{Key: Decimal, Label: "Decimal Number", Kind: model.KindDecimal, Widget: widgets.WidgetNumber, Coerce: CoerceDecimal,
			Options: map[string]any{"max_digits": 15, "decimal_places": 6}},
		{Key: Date, Label: "Date", Kind: model.KindDate, Widget: widgets.WidgetDate, Coerce: CoerceDate},
		{Key: Time, Label: "Time", Kind: model.KindTime, Widget: widgets.WidgetTime, Coerce: CoerceTime},
		{Key: DateTime, Label: "Date & Time", Kind: model.KindDateTime, Widget: widgets.WidgetDateTime, Coerce: CoerceDateTime},
		{Key: Duration, Label: "Duration", Kind: model.KindDuration, Widget: widgets.WidgetDuration, Coerce: CoerceDuration},
		{Key: Checkbox, Label: "Checkbox", Kind: model.KindBoolean, Widget: widgets.WidgetCheckbox, Coerce: CoerceBoolean},
		{Key: YesNoRadio, Label: "Yes/No Radio Buttons", Kind: model.KindBoolean, Widget: widgets.WidgetRadio, Coerce: CoerceBoolean,
			Options: map[string]any{"choices": yesNo()}},
		{Key: YesNoUnknownRadio, Label: "Yes/No/Unknown Radio Buttons", Kind: model.KindNullableBoolean, Widget: widgets.WidgetRadio, Coerce: CoerceNullableBoolean,
			Options: map[string]any{"choices": yesNoUnknown()}},
		{Key: YesNoSelect, Label: "Yes/No Dropdown", Kind: model.KindBoolean, Widget: widgets.WidgetSelect, Coerce: CoerceBoolean,
			Options: map[string]any{"choices": yesNo()}},
		{Key: YesNoUnknownSelect, Label: "Yes/No/Unknown Dropdown", Kind: model.KindNullableBoolean, Widget: widgets.WidgetSelect, Coerce: CoerceNullableBoolean,
			Options: map[string]any{"choices": yesNoUnknown()}},
		{Key: SingleChoiceSelect, Label: "Single-choice Dropdown", Kind: model.KindChoice, Widget: widgets.WidgetSelect, Coerce: CoerceChoice,
			Options: map[string]any{"choices": emptyChoices()}},
		{Key: SingleChoiceRadioSelect, Label: "Radio Buttons", Kind: model.KindChoice, Widget: widgets.WidgetRadio, Coerce: CoerceChoice,
			Options: map[string]any{"choices": emptyChoices()}},
		{Key: MultipleChoiceSelect, Label: "Multiple-choice Dropdown", Kind: model.KindMultiChoice, Widget: widgets.WidgetSelectMultiple, Coerce: CoerceMultiChoice,
			Options: map[string]any{"choices": emptyChoices()}},
		{Key: MultipleChoiceCheckbox, Label: "Multiple-choice Checkboxes", Kind: model.KindMultiChoice, Widget: widgets.WidgetCheckboxMultiple, Coerce: CoerceMultiChoice,
			Options: map[string]any{"choices": emptyChoices()}},
		{Key: FileUpload, Label: "File Upload", Kind: model.KindFile, Widget: widgets.WidgetFile, Coerce: CoerceFile},
		{Key: ImageUpload, Label: "Image Upload", Kind: model.KindFile, Widget: widgets.WidgetImage, Coerce: CoerceFile,
			WidgetOptions: map[string]any{"accept": "image/*"}},
	}
}
