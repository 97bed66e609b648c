package content

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"
)

func itemTypeValues() []any {
	types := ItemTypes()
	out := make([]any, len(types))
	for i, t := range types {
		out[i] = t
	}
	return out
}

// Validate checks the field-level rules enforced on every create and update.
// Failures are reported as a validation error keyed by field name.
func (i *Item) Validate() error {
	err := validation.ValidateStruct(i,
		validation.Field(&i.Title,
			validation.Required.Error("title is required"),
			validation.RuneLength(1, TitleMaxLength).Error("title must be at most 100 characters"),
		),
		validation.Field(&i.Content,
			validation.Required.Error("content is required"),
		),
		validation.Field(&i.ItemType,
			validation.Required.Error("item type is required"),
			validation.In(itemTypeValues()...).Error("invalid item type"),
		),
	)
	if err == nil {
		return nil
	}
	return fromValidation(err)
}
