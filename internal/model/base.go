package model

import (
	"encoding/json"
)

// Envelope is the JSON body every API endpoint responds with.
type Envelope struct {
	Data    json.RawMessage `json:"data,omitempty"`
	Message string          `json:"message,omitempty"`
	Code    string          `json:"code,omitempty"`
}

// Page is one page of a paginated listing.
type Page[T any] struct {
	Content       []T `json:"content"`
	TotalElements int `json:"totalElements"`
	TotalPages    int `json:"totalPages"`
	Number        int `json:"number"`
	Size          int `json:"size"`
}

// Last reports whether no page follows this one.
func (p Page[T]) Last() bool {
	return p.Number+1 >= p.TotalPages
}

// Pagination represents listing query parameters
type Pagination struct {
	Page         int    `json:"page" form:"page"`
	Size         int    `json:"size" form:"size"`
	SearchString string `json:"searchString" form:"searchString"`
}

// Address is the blank-able postal address block shared by several payloads.
type Address struct {
	Line1   string `json:"line1"`
	Line2   string `json:"line2"`
	City    string `json:"city"`
	State   string `json:"state"`
	Country string `json:"country"`
	Zipcode string `json:"zipcode"`
}
