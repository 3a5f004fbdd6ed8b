// Package dto defines data transfer objects for the labels HTTP API.
package dto

// LabelItem represents a label in the API response.
type LabelItem struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Count       int64  `json:"count"`
}

// LabelListResponse is the body of GET /api/labels.
type LabelListResponse struct {
	Labels []LabelItem `json:"labels"`
}
