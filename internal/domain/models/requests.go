package models

// Requests for HTTP endpoints and broker messages.

type MoversRequest struct {
	Kind  string `query:"kind" json:"kind" default:"deal" validate:"oneof=deal hike"`
	Limit int    `query:"limit" json:"limit" default:"30" validate:"gte=1,lte=500"`
}

type AnomaliesRequest struct {
	Brand string `query:"brand" json:"brand"`
	Name  string `query:"name" json:"name"`
}

type RunRequest struct {
	CSVOut bool `json:"csv_out"`
}

// ObservationMessage is one scraped row as carried on the observations topic.
// Price is the raw scraped text, e.g. "$1,299.99".
type ObservationMessage struct {
	Brand  string `json:"brand"`
	Name   string `json:"name" validate:"required"`
	Weight string `json:"weight"`
	Price  string `json:"price" validate:"required"`
	Date   string `json:"date" validate:"required"`
}

// ObservationBatch is a scraper snapshot message.
type ObservationBatch struct {
	Store        string               `json:"store"`
	Observations []ObservationMessage `json:"observations" validate:"required,dive"`
}
