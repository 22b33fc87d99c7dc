package models

import "time"

type Campaign struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	UploadDate   time.Time `json:"upload_date"`
	ContactCount int       `json:"contact_count"`
}
