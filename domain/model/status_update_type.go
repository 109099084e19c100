package model

import "github.com/google/uuid"

// StatusUpdateType is a per-company category label such as "Risk" or
// "Announce".
type StatusUpdateType struct {
	UUID    string
	Name    string
	Company *Company
	Deleted bool
}

func NewStatusUpdateType(name string, company *Company) *StatusUpdateType {
	return &StatusUpdateType{
		UUID:    uuid.NewString(),
		Name:    name,
		Company: company,
	}
}
