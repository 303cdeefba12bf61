package model

type APIResponse struct {
	Success bool      `json:"success"`
	Data    any       `json:"data,omitempty"`
	Error   *APIError `json:"error,omitempty"`
	Meta    *Meta     `json:"meta,omitempty"`
}

type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

type Meta struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}

func NewMeta(p Pagination) *Meta {
	totalPages := 0
	if p.Total > 0 && p.PageSize > 0 {
		totalPages = (p.Total + p.PageSize - 1) / p.PageSize
	}
	return &Meta{Page: p.Page, PageSize: p.PageSize, Total: p.Total, TotalPages: totalPages}
}

func Success(data any, meta *Meta) APIResponse {
	return APIResponse{Success: true, Data: data, Meta: meta}
}

func Failure(code, message, details string) APIResponse {
	return APIResponse{Success: false, Error: &APIError{Code: code, Message: message, Details: details}}
}
