package models

// Requests for the ops API endpoints. Defined in domain for consistency and reuse.

type ListSignalsRequest struct {
	Limit int `query:"limit" json:"limit" default:"50" validate:"gte=1,lte=500"`
}

type RateSignalRequest struct {
	Rating int `json:"rating" validate:"required,gte=1,lte=5"`
}
