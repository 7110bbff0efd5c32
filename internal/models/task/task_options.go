package task

type FieldsOption func(*Fields)

// NewFields собирает поля задачи, пустые опции (nil) пропускаются
func NewFields(title string, options ...FieldsOption) Fields {
	f := Fields{Title: title}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(&f)
	}
	return f
}

func WithDescription(description string) FieldsOption {
	if description == "" {
		return nil
	}
	return func(f *Fields) {
		f.Description = &description
	}
}

func WithStatus(status Status) FieldsOption {
	if status == "" {
		return nil
	}
	return func(f *Fields) {
		f.Status = status
	}
}

func WithPriority(priority int) FieldsOption {
	return func(f *Fields) {
		f.Priority = priority
	}
}

func WithDueDate(due Date) FieldsOption {
	if due.IsZero() {
		return nil
	}
	return func(f *Fields) {
		f.DueDate = &due
	}
}
