package infra

import (
	"path/filepath"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/updateme/updateme/domain/model"
)

func newTestDataBase(t *testing.T) *DataBase {
	t.Setenv("DB_PATH", filepath.Join(t.TempDir(), "test.db"))
	db, err := NewDataBase("sqlite3")
	assert.NoError(t, err)
	return db
}

// newTestCompany inserts a company plus one department, team and project.
func newTestCompany(t *testing.T, db *DataBase, name, slackTeamID string) (*model.Company, *model.Department, *model.Team, *model.Project) {
	company := model.NewCompany(name, slackTeamID)
	assert.NoError(t, db.InsertCompany(company))

	department := model.NewDepartment("Engineering", company)
	assert.NoError(t, db.InsertDepartment(department))

	team := model.NewTeam("Backend", department)
	assert.NoError(t, db.InsertTeam(team))

	project := model.NewProject("Big Migration", company)
	assert.NoError(t, db.InsertProject(project))

	return company, department, team, project
}

func TestDataBase_TenantIsolation(t *testing.T) {
	db := newTestDataBase(t)

	companyA, departmentA, teamA, projectA := newTestCompany(t, db, "Acme", "T0001")
	companyB, _, _, _ := newTestCompany(t, db, "Globex", "T0002")

	update := model.NewStatusUpdate("acme only", model.SourceSlackDialog, companyA)
	update.AuthorSlackUserID = "U0001"
	assert.NoError(t, db.InsertStatusUpdate(update))

	// Point reads with the wrong tenant come back empty without an error.
	department, err := db.ReadDepartment(companyB.UUID, departmentA.UUID)
	assert.NoError(t, err)
	assert.Nil(t, department)

	team, err := db.ReadTeam(companyB.UUID, teamA.UUID)
	assert.NoError(t, err)
	assert.Nil(t, team)

	project, err := db.ReadProject(companyB.UUID, projectA.UUID)
	assert.NoError(t, err)
	assert.Nil(t, project)

	got, err := db.ReadStatusUpdate(companyB.UUID, update.UUID)
	assert.NoError(t, err)
	assert.Nil(t, got)

	// Listings are scoped too.
	updates, err := db.ReadStatusUpdates(companyB.UUID, StatusUpdateFilter{})
	assert.NoError(t, err)
	assert.Empty(t, updates)

	// A cross-tenant delete must not touch the other company's row.
	assert.NoError(t, db.DeleteStatusUpdate(companyB.UUID, update.UUID))
	still, err := db.ReadStatusUpdate(companyA.UUID, update.UUID)
	assert.NoError(t, err)
	assert.NotNil(t, still)
	assert.False(t, still.Deleted)
}

func TestDataBase_UpsertIdempotence(t *testing.T) {
	db := newTestDataBase(t)
	company, department, _, _ := newTestCompany(t, db, "Acme", "T0001")

	// Re-inserting the same entity leaves a single row.
	assert.NoError(t, db.InsertDepartment(department))
	departments, err := db.ReadDepartments(company.UUID, "")
	assert.NoError(t, err)
	assert.Len(t, departments, 1)

	// An update with the same UUID overwrites in place.
	department.Name = "Platform Engineering"
	assert.NoError(t, db.InsertDepartment(department))
	departments, err = db.ReadDepartments(company.UUID, "")
	assert.NoError(t, err)
	assert.Len(t, departments, 1)
	assert.Equal(t, "Platform Engineering", departments[0].Name)
}

func TestDataBase_SoftDelete(t *testing.T) {
	db := newTestDataBase(t)
	company, _, _, _ := newTestCompany(t, db, "Acme", "T0001")

	update := model.NewStatusUpdate("to be deleted", model.SourceSlackDialog, company)
	update.AuthorSlackUserID = "U0001"
	update.Published = true
	assert.NoError(t, db.InsertStatusUpdate(update))

	assert.NoError(t, db.DeleteStatusUpdate(company.UUID, update.UUID))

	// Default listings exclude the row.
	updates, err := db.ReadStatusUpdates(company.UUID, DefaultStatusUpdateFilter())
	assert.NoError(t, err)
	assert.Empty(t, updates)

	// The point read still returns it, flagged as deleted.
	got, err := db.ReadStatusUpdate(company.UUID, update.UUID)
	assert.NoError(t, err)
	assert.NotNil(t, got)
	assert.True(t, got.Deleted)

	// Asking for deleted rows explicitly finds it.
	updates, err = db.ReadStatusUpdates(company.UUID, StatusUpdateFilter{Deleted: BoolFilterTrue})
	assert.NoError(t, err)
	assert.Len(t, updates, 1)

	// The same flag-flip applies to status update types.
	updateType := model.NewStatusUpdateType("Release", company)
	assert.NoError(t, db.InsertStatusUpdateType(updateType))
	assert.NoError(t, db.DeleteStatusUpdateType(company.UUID, updateType.UUID))
	types, err := db.ReadStatusUpdateTypes(company.UUID, "")
	assert.NoError(t, err)
	assert.Empty(t, types)
}

func TestDataBase_PublishStatusUpdate(t *testing.T) {
	db := newTestDataBase(t)
	company, _, _, _ := newTestCompany(t, db, "Acme", "T0001")
	otherCompany, _, _, _ := newTestCompany(t, db, "Globex", "T0002")

	update := model.NewStatusUpdate("draft", model.SourceSlackDialog, company)
	update.AuthorSlackUserID = "U0001"
	assert.NoError(t, db.InsertStatusUpdate(update))

	published, err := db.PublishStatusUpdate(company.UUID, update.UUID)
	assert.NoError(t, err)
	assert.True(t, published)

	got, err := db.ReadStatusUpdate(company.UUID, update.UUID)
	assert.NoError(t, err)
	assert.True(t, got.Published)

	// Publishing again is a no-op that still reports success.
	published, err = db.PublishStatusUpdate(company.UUID, update.UUID)
	assert.NoError(t, err)
	assert.True(t, published)

	// Unknown rows and cross-tenant rows report false without an error.
	published, err = db.PublishStatusUpdate(company.UUID, "no-such-uuid")
	assert.NoError(t, err)
	assert.False(t, published)

	published, err = db.PublishStatusUpdate(otherCompany.UUID, update.UUID)
	assert.NoError(t, err)
	assert.False(t, published)
}

func TestDataBase_FilterConjunction(t *testing.T) {
	db := newTestDataBase(t)
	company, department, team, project := newTestCompany(t, db, "Acme", "T0001")

	otherTeam := model.NewTeam("Mobile", department)
	assert.NoError(t, db.InsertTeam(otherTeam))

	teamOnly := model.NewStatusUpdate("team only", model.SourceSlackDialog, company)
	teamOnly.AuthorSlackUserID = "U0001"
	teamOnly.Published = true
	teamOnly.Teams = []model.Team{*team}
	assert.NoError(t, db.InsertStatusUpdate(teamOnly))

	projectOnly := model.NewStatusUpdate("project only", model.SourceSlackDialog, company)
	projectOnly.AuthorSlackUserID = "U0001"
	projectOnly.Published = true
	projectOnly.Projects = []model.Project{*project}
	assert.NoError(t, db.InsertStatusUpdate(projectOnly))

	both := model.NewStatusUpdate("team and project", model.SourceSlackDialog, company)
	both.AuthorSlackUserID = "U0001"
	both.Published = true
	both.Teams = []model.Team{*team}
	both.Projects = []model.Project{*project}
	assert.NoError(t, db.InsertStatusUpdate(both))

	// Filters combine conjunctively: only the update attached to the team
	// AND the project matches.
	filter := DefaultStatusUpdateFilter()
	filter.FromTeams = []string{team.UUID}
	filter.FromProjects = []string{project.UUID}
	updates, err := db.ReadStatusUpdates(company.UUID, filter)
	assert.NoError(t, err)
	assert.Len(t, updates, 1)
	assert.Equal(t, both.UUID, updates[0].UUID)

	// Department filtering goes through the teams of the department.
	filter = DefaultStatusUpdateFilter()
	filter.FromDepartments = []string{department.UUID}
	updates, err = db.ReadStatusUpdates(company.UUID, filter)
	assert.NoError(t, err)
	assert.Len(t, updates, 2)

	// A type filter joins the conjunction like any other dimension.
	updateType := model.NewStatusUpdateType("Release", company)
	assert.NoError(t, db.InsertStatusUpdateType(updateType))
	both.Type = updateType
	assert.NoError(t, db.InsertStatusUpdate(both))

	filter = DefaultStatusUpdateFilter()
	filter.FromTeams = []string{team.UUID}
	filter.WithTypes = []string{updateType.UUID}
	updates, err = db.ReadStatusUpdates(company.UUID, filter)
	assert.NoError(t, err)
	assert.Len(t, updates, 1)
	assert.Equal(t, both.UUID, updates[0].UUID)
}

func TestDataBase_JoinFanOutDeduplication(t *testing.T) {
	db := newTestDataBase(t)
	company, department, team, project := newTestCompany(t, db, "Acme", "T0001")

	secondTeam := model.NewTeam("API", department)
	assert.NoError(t, db.InsertTeam(secondTeam))

	// Two teams of the same department plus a project: the joins fan the
	// row out, the result must still carry it once.
	update := model.NewStatusUpdate("multi team", model.SourceSlackDialog, company)
	update.AuthorSlackUserID = "U0001"
	update.Published = true
	update.Teams = []model.Team{*team, *secondTeam}
	update.Projects = []model.Project{*project}
	assert.NoError(t, db.InsertStatusUpdate(update))

	filter := DefaultStatusUpdateFilter()
	filter.FromDepartments = []string{department.UUID}
	updates, err := db.ReadStatusUpdates(company.UUID, filter)
	assert.NoError(t, err)
	assert.Len(t, updates, 1)
	assert.Len(t, updates[0].Teams, 2)

	filter = DefaultStatusUpdateFilter()
	filter.FromTeams = []string{team.UUID, secondTeam.UUID}
	updates, err = db.ReadStatusUpdates(company.UUID, filter)
	assert.NoError(t, err)
	assert.Len(t, updates, 1)
}

func TestDataBase_CreatedBoundsInclusive(t *testing.T) {
	db := newTestDataBase(t)
	company, _, _, _ := newTestCompany(t, db, "Acme", "T0001")

	createdAt := time.Now().UTC().Add(-time.Hour).Truncate(time.Second)
	update := model.NewStatusUpdate("boundary", model.SourceSlackDialog, company)
	update.AuthorSlackUserID = "U0001"
	update.Published = true
	update.CreatedAt = createdAt
	assert.NoError(t, db.InsertStatusUpdate(update))

	// Both bounds are inclusive: a filter pinned exactly to CreatedAt
	// still matches.
	filter := DefaultStatusUpdateFilter()
	filter.CreatedAfter = &createdAt
	filter.CreatedBefore = &createdAt
	updates, err := db.ReadStatusUpdates(company.UUID, filter)
	assert.NoError(t, err)
	assert.Len(t, updates, 1)

	// One second earlier the upper bound excludes it.
	earlier := createdAt.Add(-time.Second)
	filter = DefaultStatusUpdateFilter()
	filter.CreatedBefore = &earlier
	updates, err = db.ReadStatusUpdates(company.UUID, filter)
	assert.NoError(t, err)
	assert.Empty(t, updates)

	// One second later the lower bound excludes it.
	later := createdAt.Add(time.Second)
	filter = DefaultStatusUpdateFilter()
	filter.CreatedAfter = &later
	updates, err = db.ReadStatusUpdates(company.UUID, filter)
	assert.NoError(t, err)
	assert.Empty(t, updates)
}

func TestDataBase_ImageOrderDeterministic(t *testing.T) {
	db := newTestDataBase(t)
	company, _, _, _ := newTestCompany(t, db, "Acme", "T0001")

	update := model.NewStatusUpdate("with attachments", model.SourceSlackDialog, company)
	update.AuthorSlackUserID = "U0001"
	update.Images = []model.StatusUpdateImage{
		model.NewStatusUpdateImage("https://example.com/a.png", "a.png", "A", ""),
		model.NewStatusUpdateImage("https://example.com/b.png", "b.png", "B", ""),
		model.NewStatusUpdateImage("https://example.com/c.png", "c.png", "C", ""),
	}
	assert.NoError(t, db.InsertStatusUpdate(update))

	expected := make([]string, 0, len(update.Images))
	for _, image := range update.Images {
		expected = append(expected, image.UUID)
	}
	sort.Strings(expected)

	got, err := db.ReadStatusUpdate(company.UUID, update.UUID)
	assert.NoError(t, err)
	assert.Len(t, got.Images, 3)
	for i, image := range got.Images {
		assert.Equal(t, expected[i], image.UUID)
	}
}

func TestDataBase_LastNOrdering(t *testing.T) {
	db := newTestDataBase(t)
	company, _, _, _ := newTestCompany(t, db, "Acme", "T0001")

	base := time.Now().UTC().Add(-time.Hour)
	uuids := make([]string, 0, 5)
	for i := 0; i < 5; i++ {
		update := model.NewStatusUpdate("update", model.SourceSlackDialog, company)
		update.AuthorSlackUserID = "U0001"
		update.Published = true
		update.CreatedAt = base.Add(time.Duration(i) * time.Minute)
		assert.NoError(t, db.InsertStatusUpdate(update))
		uuids = append(uuids, update.UUID)
	}

	filter := DefaultStatusUpdateFilter()
	filter.LastN = 2
	updates, err := db.ReadStatusUpdates(company.UUID, filter)
	assert.NoError(t, err)
	assert.Len(t, updates, 2)
	assert.Equal(t, uuids[4], updates[0].UUID)
	assert.Equal(t, uuids[3], updates[1].UUID)
}

func TestDataBase_DefaultFilter(t *testing.T) {
	db := newTestDataBase(t)
	company, _, _, _ := newTestCompany(t, db, "Acme", "T0001")

	publishedUpdate := model.NewStatusUpdate("published", model.SourceSlackDialog, company)
	publishedUpdate.AuthorSlackUserID = "U0001"
	publishedUpdate.Published = true
	assert.NoError(t, db.InsertStatusUpdate(publishedUpdate))

	draft := model.NewStatusUpdate("draft", model.SourceSlackDialog, company)
	draft.AuthorSlackUserID = "U0001"
	assert.NoError(t, db.InsertStatusUpdate(draft))

	deleted := model.NewStatusUpdate("deleted", model.SourceSlackDialog, company)
	deleted.AuthorSlackUserID = "U0001"
	deleted.Published = true
	assert.NoError(t, db.InsertStatusUpdate(deleted))
	assert.NoError(t, db.DeleteStatusUpdate(company.UUID, deleted.UUID))

	updates, err := db.ReadStatusUpdates(company.UUID, DefaultStatusUpdateFilter())
	assert.NoError(t, err)
	assert.Len(t, updates, 1)
	assert.Equal(t, publishedUpdate.UUID, updates[0].UUID)

	// The zero filter matches everything.
	updates, err = db.ReadStatusUpdates(company.UUID, StatusUpdateFilter{})
	assert.NoError(t, err)
	assert.Len(t, updates, 3)
}

func TestDataBase_ReadLastUnpublishedStatusUpdate(t *testing.T) {
	db := newTestDataBase(t)
	company, _, _, _ := newTestCompany(t, db, "Acme", "T0001")

	old := model.NewStatusUpdate("too old", model.SourceSlackDialog, company)
	old.AuthorSlackUserID = "U0001"
	old.CreatedAt = time.Now().UTC().Add(-72 * time.Hour)
	assert.NoError(t, db.InsertStatusUpdate(old))

	earlier := model.NewStatusUpdate("earlier draft", model.SourceSlackDialog, company)
	earlier.AuthorSlackUserID = "U0001"
	earlier.CreatedAt = time.Now().UTC().Add(-2 * time.Hour)
	assert.NoError(t, db.InsertStatusUpdate(earlier))

	latest := model.NewStatusUpdate("latest draft", model.SourceSlackDialog, company)
	latest.AuthorSlackUserID = "U0001"
	latest.CreatedAt = time.Now().UTC().Add(-time.Hour)
	assert.NoError(t, db.InsertStatusUpdate(latest))

	fromMessage := model.NewStatusUpdate("from a message", model.SourceSlackMessage, company)
	fromMessage.AuthorSlackUserID = "U0001"
	assert.NoError(t, db.InsertStatusUpdate(fromMessage))

	// Default window is 48h, so the 72h-old draft is ignored; the source
	// filter keeps the captured message out.
	source := model.SourceSlackDialog
	draft, err := db.ReadLastUnpublishedStatusUpdate(company.UUID, "U0001", 0, &source)
	assert.NoError(t, err)
	assert.NotNil(t, draft)
	assert.Equal(t, latest.UUID, draft.UUID)

	// Other authors have no draft.
	draft, err = db.ReadLastUnpublishedStatusUpdate(company.UUID, "U9999", 0, &source)
	assert.NoError(t, err)
	assert.Nil(t, draft)

	// A narrow window excludes everything.
	draft, err = db.ReadLastUnpublishedStatusUpdate(company.UUID, "U0001", time.Minute, &source)
	assert.NoError(t, err)
	assert.Nil(t, draft)

	// Without a source filter the newest draft of any source wins.
	draft, err = db.ReadLastUnpublishedStatusUpdate(company.UUID, "U0001", 0, nil)
	assert.NoError(t, err)
	assert.NotNil(t, draft)
	assert.Equal(t, fromMessage.UUID, draft.UUID)
}

func TestDataBase_DeleteTeamStatusUpdates(t *testing.T) {
	db := newTestDataBase(t)
	company, department, team, _ := newTestCompany(t, db, "Acme", "T0001")

	otherTeam := model.NewTeam("Mobile", department)
	assert.NoError(t, db.InsertTeam(otherTeam))

	teamUpdate := model.NewStatusUpdate("backend news", model.SourceSlackDialog, company)
	teamUpdate.AuthorSlackUserID = "U0001"
	teamUpdate.Published = true
	teamUpdate.Teams = []model.Team{*team}
	assert.NoError(t, db.InsertStatusUpdate(teamUpdate))

	otherUpdate := model.NewStatusUpdate("mobile news", model.SourceSlackDialog, company)
	otherUpdate.AuthorSlackUserID = "U0001"
	otherUpdate.Published = true
	otherUpdate.Teams = []model.Team{*otherTeam}
	assert.NoError(t, db.InsertStatusUpdate(otherUpdate))

	assert.NoError(t, db.DeleteTeamStatusUpdates(company.UUID, team.UUID))

	gone, err := db.ReadStatusUpdate(company.UUID, teamUpdate.UUID)
	assert.NoError(t, err)
	assert.True(t, gone.Deleted)

	kept, err := db.ReadStatusUpdate(company.UUID, otherUpdate.UUID)
	assert.NoError(t, err)
	assert.False(t, kept.Deleted)
}

func TestDataBase_StatusUpdateRoundTrip(t *testing.T) {
	db := newTestDataBase(t)
	company, department, team, project := newTestCompany(t, db, "Acme", "T0001")

	secondTeam := model.NewTeam("API", department)
	assert.NoError(t, db.InsertTeam(secondTeam))

	updateType := model.NewStatusUpdateType("Release", company)
	assert.NoError(t, db.InsertStatusUpdateType(updateType))

	update := model.NewStatusUpdate("the full picture", model.SourceSlackDialog, company)
	update.AuthorSlackUserID = "U0001"
	update.AuthorSlackUserName = "Alice"
	update.DiscussLink = "https://example.com/thread"
	update.IsMarkdown = true
	update.Type = updateType
	update.Teams = []model.Team{*team, *secondTeam}
	update.Projects = []model.Project{*project}
	update.Images = []model.StatusUpdateImage{
		model.NewStatusUpdateImage("https://example.com/chart.png", "chart.png", "Q3 chart", "quarterly numbers"),
	}
	assert.NoError(t, db.InsertStatusUpdate(update))

	got, err := db.ReadStatusUpdate(company.UUID, update.UUID)
	assert.NoError(t, err)
	assert.NotNil(t, got)
	assert.Equal(t, "the full picture", got.Text)
	assert.Equal(t, model.SourceSlackDialog, got.Source)
	assert.Equal(t, "Alice", got.AuthorSlackUserName)
	assert.Equal(t, "https://example.com/thread", got.DiscussLink)
	assert.True(t, got.IsMarkdown)
	assert.Equal(t, updateType.UUID, got.Type.UUID)
	assert.Equal(t, company.UUID, got.Company.UUID)

	// Teams come back sorted by name with their departments populated.
	assert.Len(t, got.Teams, 2)
	assert.Equal(t, "API", got.Teams[0].Name)
	assert.Equal(t, "Backend", got.Teams[1].Name)
	assert.Equal(t, department.UUID, got.Teams[0].Department.UUID)

	assert.Len(t, got.Projects, 1)
	assert.Len(t, got.Images, 1)
	assert.Equal(t, "Q3 chart", got.Images[0].Title)

	// Re-inserting with fewer associations reconciles the join tables.
	got.Teams = []model.Team{*team}
	got.Projects = nil
	got.Images = nil
	assert.NoError(t, db.InsertStatusUpdate(got))

	trimmed, err := db.ReadStatusUpdate(company.UUID, update.UUID)
	assert.NoError(t, err)
	assert.Len(t, trimmed.Teams, 1)
	assert.Empty(t, trimmed.Projects)
	assert.Empty(t, trimmed.Images)
}

func TestDataBase_SlackUserPreferences(t *testing.T) {
	db := newTestDataBase(t)

	prefs, err := db.ReadSlackUserPreferences("U0001")
	assert.NoError(t, err)
	assert.Nil(t, prefs)

	assert.NoError(t, db.InsertSlackUserPreferences(&model.SlackUserPreferences{
		UserID:                 "U0001",
		ActiveTab:              "company_updates",
		ActiveConfigurationTab: "teams",
		ActiveTeamUUID:         "team-uuid",
	}))

	prefs, err = db.ReadSlackUserPreferences("U0001")
	assert.NoError(t, err)
	assert.NotNil(t, prefs)
	assert.Equal(t, "company_updates", prefs.ActiveTab)
	assert.Equal(t, "team-uuid", prefs.ActiveTeamUUID)

	// Upsert keeps a single row per user.
	prefs.ActiveTeamUUID = ""
	assert.NoError(t, db.InsertSlackUserPreferences(prefs))
	prefs, err = db.ReadSlackUserPreferences("U0001")
	assert.NoError(t, err)
	assert.Equal(t, "", prefs.ActiveTeamUUID)
}

func TestCreateInitialData_Idempotent(t *testing.T) {
	db := newTestDataBase(t)
	company := model.NewCompany("Acme", "T0001")
	assert.NoError(t, db.InsertCompany(company))

	assert.NoError(t, CreateInitialData(db, company))

	departments, err := db.ReadDepartments(company.UUID, "")
	assert.NoError(t, err)
	teams, err := db.ReadTeams(company.UUID, "", "")
	assert.NoError(t, err)
	projects, err := db.ReadProjects(company.UUID, "")
	assert.NoError(t, err)
	types, err := db.ReadStatusUpdateTypes(company.UUID, "")
	assert.NoError(t, err)
	reactions, err := db.ReadStatusUpdateReactions(company.UUID)
	assert.NoError(t, err)

	assert.NotEmpty(t, departments)
	assert.NotEmpty(t, teams)
	assert.NotEmpty(t, projects)
	assert.NotEmpty(t, types)
	assert.NotEmpty(t, reactions)

	// Seeding again must not duplicate anything.
	assert.NoError(t, CreateInitialData(db, company))

	departmentsAgain, err := db.ReadDepartments(company.UUID, "")
	assert.NoError(t, err)
	assert.Len(t, departmentsAgain, len(departments))

	teamsAgain, err := db.ReadTeams(company.UUID, "", "")
	assert.NoError(t, err)
	assert.Len(t, teamsAgain, len(teams))

	typesAgain, err := db.ReadStatusUpdateTypes(company.UUID, "")
	assert.NoError(t, err)
	assert.Len(t, typesAgain, len(types))

	reactionsAgain, err := db.ReadStatusUpdateReactions(company.UUID)
	assert.NoError(t, err)
	assert.Len(t, reactionsAgain, len(reactions))
}
