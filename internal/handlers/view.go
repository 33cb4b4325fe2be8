package handlers

import (
	"net/http"
	"time"

	"github.com/prudhvinik1/nurseaide/internal/models"
)

type recordResponse struct {
	models.RequestRecord
	DisplayTime string `json:"displayTime"`
}

type viewResponse struct {
	Records    []recordResponse       `json:"records"`
	IsLoading  bool                   `json:"isLoading"`
	Connection models.ConnectionState `json:"connection"`
	Revision   uint64                 `json:"revision"`
}

func newViewResponse(view models.CollectionView, loc *time.Location) viewResponse {
	records := make([]recordResponse, 0, len(view.Records))
	for _, record := range view.Records {
		records = append(records, recordResponse{
			RequestRecord: record,
			DisplayTime:   record.FormattedTime(loc),
		})
	}
	return viewResponse{
		Records:    records,
		IsLoading:  view.IsLoading,
		Connection: view.Connection,
		Revision:   view.Revision,
	}
}

// displayLocation reads the optional ?tz= IANA zone; the server zone is the default.
func displayLocation(r *http.Request) (*time.Location, error) {
	tz := r.URL.Query().Get("tz")
	if tz == "" {
		return time.Local, nil
	}
	return time.LoadLocation(tz)
}
