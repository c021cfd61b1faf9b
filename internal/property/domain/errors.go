package domain

import "errors"

var (
	ErrPropertyNotFound   = errors.New("property_not_found")
	ErrResidentNotFound   = errors.New("resident_not_found")
	ErrServiceNotFound    = errors.New("service_not_found")
	ErrAttachmentNotFound = errors.New("attachment_not_found")
)
