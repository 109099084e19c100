package model

import "github.com/google/uuid"

type Project struct {
	UUID    string
	Name    string
	Company *Company
	Deleted bool
}

func NewProject(name string, company *Company) *Project {
	return &Project{
		UUID:    uuid.NewString(),
		Name:    name,
		Company: company,
	}
}
