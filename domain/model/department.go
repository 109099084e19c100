package model

import "github.com/google/uuid"

type Department struct {
	UUID    string
	Name    string
	Company *Company
	Deleted bool
}

func NewDepartment(name string, company *Company) *Department {
	return &Department{
		UUID:    uuid.NewString(),
		Name:    name,
		Company: company,
	}
}
