package infra

import (
	"fmt"

	"github.com/updateme/updateme/domain/model"
)

// Default organizational data for a freshly onboarded company.
var initialTeamNames = map[string][]string{
	"Engineering": {"iOS SDK", "Android SDK", "Backend"},
	"Product":     {"Design", "Research"},
}

var initialProjectNames = []string{
	"Alpha Project",
	"iOS SDK Release",
}

var initialStatusUpdateTypes = []string{
	"Good news",
	"Bad news",
	"Risk",
	"Delay",
	"Announce",
	"Release",
	"Launch",
}

var initialReactions = []struct {
	Name  string
	Emoji string
}{
	{"Party Popper", "🎉"},
	{"Rocket / Launch", "🚀"},
	{"Decision", "⚖️"},
	{"Red Question Mark", "❓"},
	{"Chart Increasing", "📈"},
	{"Chart Decreasing", "📉"},
}

// CreateInitialData seeds default departments, teams, projects, status
// update types and reactions for a new company. Everything is
// find-or-create by name, so calling it again for the same company is a
// no-op.
func CreateInitialData(ds Datastore, company *model.Company) error {
	for departmentName, teamNames := range initialTeamNames {
		departments, err := ds.ReadDepartments(company.UUID, departmentName)
		if err != nil {
			return fmt.Errorf("read departments failed: %w", err)
		}
		var department *model.Department
		if len(departments) > 0 {
			department = &departments[0]
		} else {
			department = model.NewDepartment(departmentName, company)
			if err := ds.InsertDepartment(department); err != nil {
				return fmt.Errorf("insert department %q failed: %w", departmentName, err)
			}
		}

		for _, teamName := range teamNames {
			teams, err := ds.ReadTeams(company.UUID, teamName, department.UUID)
			if err != nil {
				return fmt.Errorf("read teams failed: %w", err)
			}
			if len(teams) == 0 {
				if err := ds.InsertTeam(model.NewTeam(teamName, department)); err != nil {
					return fmt.Errorf("insert team %q failed: %w", teamName, err)
				}
			}
		}
	}

	existingProjects, err := ds.ReadProjects(company.UUID, "")
	if err != nil {
		return fmt.Errorf("read projects failed: %w", err)
	}
	existingProjectNames := map[string]bool{}
	for _, p := range existingProjects {
		existingProjectNames[p.Name] = true
	}
	for _, projectName := range initialProjectNames {
		if !existingProjectNames[projectName] {
			if err := ds.InsertProject(model.NewProject(projectName, company)); err != nil {
				return fmt.Errorf("insert project %q failed: %w", projectName, err)
			}
		}
	}

	existingTypes, err := ds.ReadStatusUpdateTypes(company.UUID, "")
	if err != nil {
		return fmt.Errorf("read status update types failed: %w", err)
	}
	existingTypeNames := map[string]bool{}
	for _, t := range existingTypes {
		existingTypeNames[t.Name] = true
	}
	for _, name := range initialStatusUpdateTypes {
		if !existingTypeNames[name] {
			if err := ds.InsertStatusUpdateType(model.NewStatusUpdateType(name, company)); err != nil {
				return fmt.Errorf("insert status update type %q failed: %w", name, err)
			}
		}
	}

	existingReactions, err := ds.ReadStatusUpdateReactions(company.UUID)
	if err != nil {
		return fmt.Errorf("read status update reactions failed: %w", err)
	}
	for _, reaction := range initialReactions {
		found := false
		for _, existing := range existingReactions {
			if existing.Name == reaction.Name && existing.Emoji == reaction.Emoji {
				found = true
				break
			}
		}
		if !found {
			if err := ds.InsertStatusUpdateReaction(model.NewStatusUpdateReaction(reaction.Emoji, reaction.Name, company)); err != nil {
				return fmt.Errorf("insert status update reaction %q failed: %w", reaction.Name, err)
			}
		}
	}

	return nil
}
