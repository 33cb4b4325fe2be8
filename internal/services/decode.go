package services

import (
	"math"

	"github.com/buger/jsonparser"
	"github.com/prudhvinik1/nurseaide/internal/models"
)

// DecodeSnapshot turns every well-formed child into a RequestRecord, in
// snapshot order. Children missing type, timestamp, patientID or roomNumber
// (or carrying them with the wrong JSON type) are dropped.
func DecodeSnapshot(snap models.Snapshot) []models.RequestRecord {
	records := make([]models.RequestRecord, 0, len(snap.Children))
	for _, child := range snap.Children {
		record, ok := DecodeChild(child)
		if !ok {
			continue
		}
		records = append(records, record)
	}
	return records
}

// DecodeChild decodes a single child. discomfort_level is only read when the
// type is the discomfort sentinel and the value is an integral number.
func DecodeChild(child models.SnapshotChild) (models.RequestRecord, bool) {
	data := []byte(child.Value)
	if _, vt, _, err := jsonparser.Get(data); err != nil || vt != jsonparser.Object {
		return models.RequestRecord{}, false
	}

	requestType, ok := stringField(data, "type")
	if !ok {
		return models.RequestRecord{}, false
	}
	timestamp, ok := numberField(data, "timestamp")
	if !ok {
		return models.RequestRecord{}, false
	}
	patientID, ok := stringField(data, "patientID")
	if !ok {
		return models.RequestRecord{}, false
	}
	roomNumber, ok := stringField(data, "roomNumber")
	if !ok {
		return models.RequestRecord{}, false
	}

	record := models.RequestRecord{
		ID:         child.Key,
		Type:       requestType,
		Timestamp:  timestamp,
		PatientID:  patientID,
		RoomNumber: roomNumber,
	}
	if requestType == models.DiscomfortType {
		if level, ok := intField(data, "discomfort_level"); ok {
			record.DiscomfortLevel = &level
		}
	}
	return record, true
}

func stringField(data []byte, key string) (string, bool) {
	value, vt, _, err := jsonparser.Get(data, key)
	if err != nil || vt != jsonparser.String {
		return "", false
	}
	s, err := jsonparser.ParseString(value)
	if err != nil {
		return "", false
	}
	return s, true
}

func numberField(data []byte, key string) (float64, bool) {
	value, vt, _, err := jsonparser.Get(data, key)
	if err != nil || vt != jsonparser.Number {
		return 0, false
	}
	f, err := jsonparser.ParseFloat(value)
	if err != nil {
		return 0, false
	}
	return f, true
}

// intField accepts 7 and 7.0 but not 7.5.
func intField(data []byte, key string) (int, bool) {
	value, vt, _, err := jsonparser.Get(data, key)
	if err != nil || vt != jsonparser.Number {
		return 0, false
	}
	if n, err := jsonparser.ParseInt(value); err == nil {
		if n < math.MinInt32 || n > math.MaxInt32 {
			return 0, false
		}
		return int(n), true
	}
	f, err := jsonparser.ParseFloat(value)
	if err != nil || f != math.Trunc(f) || f < math.MinInt32 || f > math.MaxInt32 {
		return 0, false
	}
	return int(f), true
}
