package model

import "github.com/google/uuid"

// Team belongs to exactly one Department. Its company is derived through
// the department.
type Team struct {
	UUID       string
	Name       string
	Department *Department
	Deleted    bool
}

func NewTeam(name string, department *Department) *Team {
	return &Team{
		UUID:       uuid.NewString(),
		Name:       name,
		Department: department,
	}
}

func (t *Team) CompanyUUID() string {
	if t.Department == nil || t.Department.Company == nil {
		return ""
	}
	return t.Department.Company.UUID
}
