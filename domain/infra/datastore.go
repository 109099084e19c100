package infra

import (
	"fmt"
	"os"
	"time"

	"github.com/updateme/updateme/domain/model"
)

// BoolFilter is a tri-state filter on a boolean column. The zero value
// disables the filter.
type BoolFilter int

const (
	BoolFilterAny BoolFilter = iota
	BoolFilterTrue
	BoolFilterFalse
)

// StatusUpdateFilter narrows ReadStatusUpdates. All fields are optional and
// combine with AND. The zero value matches every update of the company,
// deleted or not; use DefaultStatusUpdateFilter for the display defaults.
type StatusUpdateFilter struct {
	CreatedAfter  *time.Time // inclusive
	CreatedBefore *time.Time // inclusive

	FromTeams       []string // update has at least one of these teams
	FromDepartments []string // update has a team in one of these departments
	FromProjects    []string
	WithTypes       []string

	Published BoolFilter
	Deleted   BoolFilter

	AuthorSlackUserID string
	Source            *model.StatusUpdateSource

	// LastN caps the result to the N most recently created updates.
	LastN int
}

// DefaultStatusUpdateFilter returns the filter used by all display paths:
// published updates only, soft-deleted rows excluded.
func DefaultStatusUpdateFilter() StatusUpdateFilter {
	return StatusUpdateFilter{
		Published: BoolFilterTrue,
		Deleted:   BoolFilterFalse,
	}
}

// PreferenceStore persists per-user UI state. It is a single-key lookup, so
// it can live either in the relational store or in DynamoDB.
type PreferenceStore interface {
	ReadSlackUserPreferences(userID string) (*model.SlackUserPreferences, error)
	InsertSlackUserPreferences(prefs *model.SlackUserPreferences) error
}

// Datastore is the data access layer. All writes are upserts keyed by UUID,
// deletes flip the soft-delete flag, and every read or delete of a
// non-company entity is scoped to the given company: a UUID belonging to
// another tenant behaves exactly like a missing row. Point reads return
// (nil, nil) when nothing qualifies.
type Datastore interface {
	PreferenceStore

	InsertCompany(company *model.Company) error
	ReadCompany(uuid string) (*model.Company, error)
	// ReadCompanies lists companies, optionally narrowed by name and/or
	// Slack team ID. Empty strings disable the respective filter.
	ReadCompanies(name, slackTeamID string) ([]model.Company, error)

	InsertDepartment(department *model.Department) error
	ReadDepartment(companyUUID, uuid string) (*model.Department, error)
	ReadDepartments(companyUUID, name string) ([]model.Department, error)
	DeleteDepartment(companyUUID, uuid string) error

	InsertTeam(team *model.Team) error
	ReadTeam(companyUUID, uuid string) (*model.Team, error)
	ReadTeams(companyUUID, name, departmentUUID string) ([]model.Team, error)
	DeleteTeam(companyUUID, uuid string) error

	InsertProject(project *model.Project) error
	ReadProject(companyUUID, uuid string) (*model.Project, error)
	ReadProjects(companyUUID, name string) ([]model.Project, error)
	DeleteProject(companyUUID, uuid string) error

	InsertStatusUpdateType(t *model.StatusUpdateType) error
	ReadStatusUpdateType(companyUUID, uuid string) (*model.StatusUpdateType, error)
	ReadStatusUpdateTypes(companyUUID, name string) ([]model.StatusUpdateType, error)
	DeleteStatusUpdateType(companyUUID, uuid string) error

	InsertStatusUpdateReaction(reaction *model.StatusUpdateReaction) error
	ReadStatusUpdateReactions(companyUUID string) ([]model.StatusUpdateReaction, error)

	InsertStatusUpdate(update *model.StatusUpdate) error
	ReadStatusUpdate(companyUUID, uuid string) (*model.StatusUpdate, error)
	ReadStatusUpdates(companyUUID string, filter StatusUpdateFilter) ([]model.StatusUpdate, error)
	// PublishStatusUpdate flips the published flag. Reports whether the
	// update exists within the company; re-publishing is a no-op that still
	// reports true.
	PublishStatusUpdate(companyUUID, uuid string) (bool, error)
	// ReadLastUnpublishedStatusUpdate returns the newest unpublished update
	// by the author no older than noOlderThan (48h when zero), optionally
	// restricted to a source. The tie-break between updates sharing a
	// creation timestamp is undefined; any qualifying row may come back.
	ReadLastUnpublishedStatusUpdate(companyUUID, authorSlackUserID string, noOlderThan time.Duration, source *model.StatusUpdateSource) (*model.StatusUpdate, error)
	DeleteStatusUpdate(companyUUID, uuid string) error
	// DeleteTeamStatusUpdates soft-deletes every update associated with the
	// team.
	DeleteTeamStatusUpdates(companyUUID, teamUUID string) error
}

// NewDatastore selects the backing engine from DB_DRIVER. Unsupported
// drivers are a startup error.
func NewDatastore() (Datastore, error) {
	driver := "sqlite3"
	if v := os.Getenv("DB_DRIVER"); v != "" {
		driver = v
	}
	switch driver {
	case "sqlite3", "postgres":
		return NewDataBase(driver)
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER: %s", driver)
	}
}
