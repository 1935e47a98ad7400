// Package logging writes one JSON line per reconciliation step so webhook outcomes can
// be traced by event, session and order id.
package logging

import (
	"encoding/json"
	"log"
	"time"
)

const Service = "checkout-service"

type Fields struct {
	EventID    string
	SessionID  string
	OrderID    string
	UserID     int64
	Step       string
	Status     string
	DurationMS int64
	Message    string
}

func Log(fields Fields) {
	log.Print(encode(fields, time.Now()))
}

func encode(fields Fields, at time.Time) string {
	payload := map[string]any{
		"service":   Service,
		"step":      fields.Step,
		"status":    fields.Status,
		"timestamp": at.UTC().Format(time.RFC3339Nano),
	}
	if fields.EventID != "" {
		payload["event_id"] = fields.EventID
	}
	if fields.SessionID != "" {
		payload["session_id"] = fields.SessionID
	}
	if fields.OrderID != "" {
		payload["order_id"] = fields.OrderID
	}
	if fields.UserID != 0 {
		payload["user_id"] = fields.UserID
	}
	if fields.DurationMS != 0 {
		payload["duration_ms"] = fields.DurationMS
	}
	if fields.Message != "" {
		payload["message"] = fields.Message
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return `{"service":"` + Service + `","status":"log_error"}`
	}
	return string(data)
}
