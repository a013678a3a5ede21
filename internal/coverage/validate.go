package coverage

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// DuplicateMessage is shown when a submission collides with another record.
const DuplicateMessage = "This event_id + IP combination already exists!"

// ValidationError is a local validation failure. It blocks submission and is
// shown inline; no request is sent.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// IsValidation reports whether err is, or wraps, a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// FormMode tags whether the event form creates a record or edits one.
type FormMode int

const (
	FormCreate FormMode = iota
	FormEdit
)

func (m FormMode) String() string {
	if m == FormEdit {
		return "edit"
	}
	return "create"
}

// EditState is the event form: its mode, the record being edited (FormEdit
// only) and the field values.
type EditState struct {
	Mode FormMode
	ID   int64
	Form Form
}

// NewCreate returns an empty form in create mode.
func NewCreate() EditState {
	return EditState{Mode: FormCreate}
}

// EditOf returns a form in edit mode pre-filled from e.
func EditOf(e Event) EditState {
	return EditState{Mode: FormEdit, ID: e.ID, Form: e.Form()}
}

// Validate checks required fields and the threshold range.
func (f Form) Validate() error {
	required := []struct {
		field, value, label string
	}{
		{"event_id", f.EventID, "Event ID"},
		{"event_name", f.EventName, "Event Name"},
		{"event_type", f.EventType, "Event Type"},
		{"ip", f.IP, "IP"},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			return &ValidationError{Field: r.field, Message: r.label + " is required."}
		}
	}
	if f.Threshold < 0 {
		return &ValidationError{Field: "threshold", Message: "Threshold must be 0 or greater."}
	}
	return nil
}

// FindDuplicate returns the first record other than excludeID whose event_id
// and ip match f after trimming and case folding. Pass excludeID 0 when creating.
func FindDuplicate(records []Event, f Form, excludeID int64) (Event, bool) {
	eventID, ip := key(f.EventID), key(f.IP)
	for _, r := range records {
		if r.ID == excludeID && excludeID != 0 {
			continue
		}
		if key(r.EventID) == eventID && key(r.IP) == ip {
			return r, true
		}
	}
	return Event{}, false
}

// Check runs every local validation for st against the currently listed records.
func (st EditState) Check(records []Event) error {
	if st.Mode == FormEdit && st.ID <= 0 {
		return &ValidationError{Field: "id", Message: "Editing requires an existing record."}
	}
	if err := st.Form.Validate(); err != nil {
		return err
	}
	exclude := int64(0)
	if st.Mode == FormEdit {
		exclude = st.ID
	}
	if _, dup := FindDuplicate(records, st.Form, exclude); dup {
		return &ValidationError{Field: "event_id", Message: DuplicateMessage}
	}
	return nil
}

// Upsert validates st locally and then creates or fully updates the record.
// records is the list the user is looking at; a local rejection never
// reaches the store.
func Upsert(ctx context.Context, store Store, records []Event, st EditState) (Event, error) {
	if err := st.Check(records); err != nil {
		return Event{}, err
	}
	form := st.Form
	form.EventID = strings.TrimSpace(form.EventID)
	form.IP = strings.TrimSpace(form.IP)

	if st.Mode == FormEdit {
		e, err := store.UpdateEvent(ctx, st.ID, form)
		if err != nil {
			return Event{}, fmt.Errorf("update event %d: %w", st.ID, err)
		}
		return e, nil
	}
	e, err := store.CreateEvent(ctx, form)
	if err != nil {
		return Event{}, fmt.Errorf("create event: %w", err)
	}
	return e, nil
}
