package service

import (
	"fmt"
	"time"

	"github.com/noah-isme/sma-homework-api/internal/models"
	appErrors "github.com/noah-isme/sma-homework-api/pkg/errors"
)

const (
	eventLeadTime        = time.Hour
	unknownClassName     = "Unknown"
	noDescriptionText    = "No description"
	completedTitlePrefix = "Completed: "
)

// Reminder overrides applied to every homework event.
var defaultEventReminders = []models.EventReminder{
	{Method: "email", Minutes: 24 * 60},
	{Method: "popup", Minutes: 60},
}

// EventPayloadBuilder derives the remote event for a homework record. It is
// pure and performs no I/O.
type EventPayloadBuilder struct{}

// NewEventPayloadBuilder constructs a builder.
func NewEventPayloadBuilder() *EventPayloadBuilder {
	return &EventPayloadBuilder{}
}

// Build produces the event for hw due at due. class may be nil. When
// completed is set the title is marked as done.
func (b *EventPayloadBuilder) Build(hw *models.Homework, class *models.Class, due time.Time, completed bool) (models.EventPayload, error) {
	if hw == nil || hw.DueDate.IsZero() || due.IsZero() {
		return models.EventPayload{}, appErrors.Clone(appErrors.ErrInvalidRecord, "homework has no due date")
	}

	className := unknownClassName
	if class != nil && class.Name != "" {
		className = class.Name
	}
	description := noDescriptionText
	if hw.Description != nil && *hw.Description != "" {
		description = *hw.Description
	}

	summary := fmt.Sprintf("Homework: %s", hw.Title)
	if completed {
		summary = completedTitlePrefix + summary
	}

	reminders := make([]models.EventReminder, len(defaultEventReminders))
	copy(reminders, defaultEventReminders)

	return models.EventPayload{
		Summary:             summary,
		Description:         fmt.Sprintf("Class: %s\nDescription: %s\nPriority: %s", className, description, hw.Priority),
		Start:               due.Add(-eventLeadTime),
		End:                 due,
		TimeZone:            due.Location().String(),
		UseDefaultReminders: false,
		Reminders:           reminders,
	}, nil
}
