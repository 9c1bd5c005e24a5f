package ingest

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// JobEvent is the inbound message shape on the jobs channel. Each vacancy
// event carries a single base64 image; everything else is skipped.
type JobEvent struct {
	Type          string        `json:"type"`
	Source        string        `json:"source,omitempty"`
	Timestamp     UnixSeconds   `json:"timestamp,omitempty"`
	Caption       string        `json:"caption,omitempty"`
	ExtractedData ExtractedData `json:"extracted_data"`
	Image         string        `json:"image"`
}

// UnixSeconds is an epoch timestamp that tolerates the loose producer
// formats seen on the channel: a float, a numeric string, or an RFC 3339
// string. Anything else decodes to zero rather than failing the event.
type UnixSeconds float64

func (u *UnixSeconds) UnmarshalJSON(data []byte) error {
	var f float64
	if err := json.Unmarshal(data, &f); err == nil {
		*u = UnixSeconds(f)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		*u = 0
		return nil
	}
	s = strings.TrimSpace(s)
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		*u = UnixSeconds(f)
		return nil
	}
	if ts, err := time.Parse(time.RFC3339, s); err == nil {
		*u = UnixSeconds(float64(ts.UnixMilli()) / 1000)
		return nil
	}
	*u = 0
	return nil
}

// Seconds returns the timestamp as float epoch seconds.
func (u UnixSeconds) Seconds() float64 {
	return float64(u)
}

// ExtractedData carries the classifier verdict and vacancy fields.
type ExtractedData struct {
	IsJobVacancy bool   `json:"is_job_vacancy"`
	Position     string `json:"position"`
	Company      string `json:"company"`
}

// ParseJobEvent decodes an inbound message.
func ParseJobEvent(data []byte) (*JobEvent, error) {
	var event JobEvent
	if err := json.Unmarshal(data, &event); err != nil {
		return nil, fmt.Errorf("decode job event: %w", err)
	}
	return &event, nil
}

// IsVacancy reports whether the event is a classified job vacancy.
func (e *JobEvent) IsVacancy() bool {
	return e != nil && e.Type == "job_vacancy" && e.ExtractedData.IsJobVacancy
}

var titleCaser = cases.Title(language.English)

// Title derives a display title from the vacancy position and company.
func (e *JobEvent) Title() string {
	if e == nil {
		return ""
	}
	position := strings.TrimSpace(e.ExtractedData.Position)
	company := strings.TrimSpace(e.ExtractedData.Company)
	switch {
	case position != "" && company != "":
		return titleCaser.String(strings.ToLower(position)) + " at " + titleCaser.String(strings.ToLower(company))
	case position != "":
		return titleCaser.String(strings.ToLower(position))
	case company != "":
		return titleCaser.String(strings.ToLower(company))
	default:
		return ""
	}
}
