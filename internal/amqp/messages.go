package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"salesdash/internal/core"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

var validate = validator.New()

// ReportRequestMessage asks the worker to render a report bundle for one
// dashboard selection. Month 0 means all months.
type ReportRequestMessage struct {
	ID          string    `json:"id" validate:"required,uuid"`
	Year        int       `json:"year" validate:"required,min=1900,max=3000"`
	Month       int       `json:"month" validate:"min=0,max=12"`
	RequestedAt time.Time `json:"requested_at" validate:"required"`
}

// NewReportRequest creates a request with a fresh id.
func NewReportRequest(sel core.Selection) *ReportRequestMessage {
	return &ReportRequestMessage{
		ID:          uuid.NewString(),
		Year:        sel.Year,
		Month:       int(sel.Month),
		RequestedAt: time.Now().UTC(),
	}
}

// Selection returns the dashboard selection the report covers.
func (m *ReportRequestMessage) Selection() core.Selection {
	return core.Selection{Year: m.Year, Month: time.Month(m.Month)}
}

// Validate checks the message fields.
func (m *ReportRequestMessage) Validate() error {
	if err := validate.Struct(m); err != nil {
		return fmt.Errorf("invalid report request: %w", err)
	}
	return nil
}

// ToJSON converts the message to JSON bytes
func (m *ReportRequestMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ReportRequestFromJSON decodes and validates a message.
func ReportRequestFromJSON(data []byte) (*ReportRequestMessage, error) {
	var msg ReportRequestMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if err := msg.Validate(); err != nil {
		return nil, err
	}
	return &msg, nil
}
