package models

import "time"

// DiscomfortType is the request type that carries a discomfort level.
const DiscomfortType = "Level of Discomfort"

// DisplayTimeLayout matches the dashboard's MM/dd/yyyy HH:mm:ss format.
const DisplayTimeLayout = "01/02/2006 15:04:05"

// RequestRecord is one decoded patient request. Records are only ever built
// from a remote snapshot; ID is the remote child key.
type RequestRecord struct {
	ID              string  `json:"id"`
	Type            string  `json:"type"`
	Timestamp       float64 `json:"timestamp"`
	PatientID       string  `json:"patientID"`
	RoomNumber      string  `json:"roomNumber"`
	DiscomfortLevel *int    `json:"discomfort_level,omitempty"`
}

// Time converts the epoch-millisecond timestamp.
func (r RequestRecord) Time() time.Time {
	return time.UnixMilli(int64(r.Timestamp))
}

func (r RequestRecord) FormattedTime(loc *time.Location) string {
	if loc == nil {
		loc = time.Local
	}
	return r.Time().In(loc).Format(DisplayTimeLayout)
}

// RequestChild is the shape written under the remote collection path.
type RequestChild struct {
	Type            string  `json:"type"`
	Timestamp       float64 `json:"timestamp"`
	PatientID       string  `json:"patientID"`
	RoomNumber      string  `json:"roomNumber"`
	DiscomfortLevel *int    `json:"discomfort_level,omitempty"`
}

// Validate checks the fields a snapshot decoder requires.
func (c RequestChild) Validate() error {
	switch {
	case c.Type == "":
		return ErrInvalidRequest{Field: "type"}
	case c.Timestamp <= 0:
		return ErrInvalidRequest{Field: "timestamp"}
	case c.PatientID == "":
		return ErrInvalidRequest{Field: "patientID"}
	case c.RoomNumber == "":
		return ErrInvalidRequest{Field: "roomNumber"}
	case c.Type == DiscomfortType && c.DiscomfortLevel == nil:
		return ErrInvalidRequest{Field: "discomfort_level"}
	}
	return nil
}

type ErrInvalidRequest struct {
	Field string
}

func (e ErrInvalidRequest) Error() string {
	return "invalid request: missing or bad " + e.Field
}
