package actions

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/dukex/autoflow/pkg/models"
	"github.com/dukex/autoflow/pkg/notify"
	"github.com/dukex/autoflow/pkg/persistence"
	"github.com/spf13/cast"
)

// Entity collections written by the record actions.
const (
	EntityReminders    = "reminders"
	EntityAppointments = "appointments"
)

// Binding keys set by the record actions.
const (
	BindingReminderID      = "reminder_id"
	BindingAppointmentID   = "appointment_id"
	BindingUpdatedEntityID = "updated_entity_id"
)

const defaultAppointmentDuration = time.Hour

// CreateReminder stores a reminder and binds its id.
type CreateReminder struct {
	store persistence.EntityStore
}

func NewCreateReminder(store persistence.EntityStore) *CreateReminder {
	return &CreateReminder{store: store}
}

func (a *CreateReminder) Type() models.ActionType { return models.ActionCreateReminder }

func (a *CreateReminder) Schema() map[string]any {
	return map[string]any{
		"type":     "object",
		"required": []string{"title"},
		"properties": map[string]any{
			"title":       stringProperty("Reminder title."),
			"description": stringProperty("Reminder details."),
			"due_date":    stringProperty("RFC 3339 due date."),
			"client_id":   stringProperty("Related client."),
		},
	}
}

func (a *CreateReminder) Execute(ctx context.Context, params map[string]any, ec *models.ExecutionContext) (Outcome, error) {
	title, err := requireString(params, "title")
	if err != nil {
		return Failed(err), nil
	}

	fields := map[string]any{
		"title":        title,
		"description":  stringParam(params, "description"),
		"client_id":    stringParam(params, "client_id"),
		"user_id":      ec.UserID,
		"execution_id": ec.ExecutionID,
		"status":       "pending",
	}

	if due, ok := timeParam(params, "due_date"); ok {
		fields["due_date"] = due.UTC()
	}

	id, err := a.store.Create(ctx, EntityReminders, fields)
	if err != nil {
		return Outcome{}, err
	}

	return Succeeded(map[string]any{BindingReminderID: id}), nil
}

// CreateAppointment stores an appointment, binds its id, and pushes it to the
// user's calendar when one is configured.
type CreateAppointment struct {
	store    persistence.EntityStore
	calendar notify.CalendarSender
	logger   *slog.Logger
}

func NewCreateAppointment(logger *slog.Logger, store persistence.EntityStore, calendar notify.CalendarSender) *CreateAppointment {
	return &CreateAppointment{
		store:    store,
		calendar: calendar,
		logger:   logger.With("module", "create_appointment_action"),
	}
}

func (a *CreateAppointment) Type() models.ActionType { return models.ActionCreateAppointment }

func (a *CreateAppointment) Schema() map[string]any {
	return map[string]any{
		"type":     "object",
		"required": []string{"title", "start_time"},
		"properties": map[string]any{
			"title":            stringProperty("Appointment title."),
			"description":      stringProperty("Appointment details."),
			"start_time":       stringProperty("RFC 3339 start time."),
			"end_time":         stringProperty("RFC 3339 end time."),
			"duration_minutes": map[string]any{"type": []string{"number", "string"}},
			"client_id":        stringProperty("Related client."),
			"attendees":        map[string]any{"type": []string{"string", "array"}},
		},
	}
}

func (a *CreateAppointment) Execute(ctx context.Context, params map[string]any, ec *models.ExecutionContext) (Outcome, error) {
	title, err := requireString(params, "title")
	if err != nil {
		return Failed(err), nil
	}

	start, ok := timeParam(params, "start_time")
	if !ok {
		return Failed(fmt.Errorf("%w: start_time", ErrMissingParam)), nil
	}

	end, ok := timeParam(params, "end_time")
	if !ok {
		duration := defaultAppointmentDuration
		if minutes := cast.ToFloat64(params["duration_minutes"]); minutes > 0 {
			duration = time.Duration(minutes * float64(time.Minute))
		}

		end = start.Add(duration)
	}

	description := stringParam(params, "description")
	attendees := stringList(params, "attendees")

	id, err := a.store.Create(ctx, EntityAppointments, map[string]any{
		"title":        title,
		"description":  description,
		"start_time":   start.UTC(),
		"end_time":     end.UTC(),
		"client_id":    stringParam(params, "client_id"),
		"attendees":    attendees,
		"user_id":      ec.UserID,
		"execution_id": ec.ExecutionID,
		"status":       "scheduled",
	})
	if err != nil {
		return Outcome{}, err
	}

	bindings := map[string]any{BindingAppointmentID: id}

	if channel := ec.CalendarChannel(); channel != nil && a.calendar != nil {
		err := a.calendar.PushEvent(ctx, *channel, notify.CalendarEvent{
			ID:          id,
			Title:       title,
			Description: description,
			Start:       start.UTC(),
			End:         end.UTC(),
			Attendees:   attendees,
		})
		if err != nil {
			a.logger.WarnContext(ctx, "Calendar push failed", "appointment_id", id, "error", err)
		}

		bindings["calendar_synced"] = err == nil
	}

	return Succeeded(bindings), nil
}

// UpdateStatus sets the status field of an existing entity.
type UpdateStatus struct {
	store persistence.EntityStore
}

func NewUpdateStatus(store persistence.EntityStore) *UpdateStatus {
	return &UpdateStatus{store: store}
}

func (a *UpdateStatus) Type() models.ActionType { return models.ActionUpdateStatus }

func (a *UpdateStatus) Schema() map[string]any {
	return map[string]any{
		"type":     "object",
		"required": []string{"entity", "entity_id", "status"},
		"properties": map[string]any{
			"entity":    stringProperty("Entity collection, e.g. invoices."),
			"entity_id": stringProperty("Entity id, usually a {{placeholder}}."),
			"status":    stringProperty("New status value."),
		},
	}
}

func (a *UpdateStatus) Execute(ctx context.Context, params map[string]any, _ *models.ExecutionContext) (Outcome, error) {
	entity, err := requireString(params, "entity")
	if err != nil {
		return Failed(err), nil
	}

	entityID, err := requireString(params, "entity_id")
	if err != nil {
		return Failed(err), nil
	}

	status, err := requireString(params, "status")
	if err != nil {
		return Failed(err), nil
	}

	err = a.store.Update(ctx, entity, entityID, map[string]any{"status": status})
	if persistence.IsEntityNotFound(err) {
		return Failed(err), nil
	}

	if err != nil {
		return Outcome{}, err
	}

	return Succeeded(map[string]any{BindingUpdatedEntityID: entityID}), nil
}
