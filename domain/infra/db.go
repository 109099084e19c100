package infra

import (
	"fmt"
	"os"
	"path"
	"sort"
	"time"

	"github.com/jinzhu/gorm"
	_ "github.com/jinzhu/gorm/dialects/postgres"
	_ "github.com/mattn/go-sqlite3"
	"github.com/updateme/updateme/domain/model"
)

type companyRecord struct {
	UUID        string `gorm:"primary_key;type:varchar(256)"`
	SlackTeamID string `gorm:"type:varchar(256);unique_index"`
	Name        string `gorm:"type:varchar(256)"`
}

func (companyRecord) TableName() string { return "companies" }

type departmentRecord struct {
	UUID        string `gorm:"primary_key;type:varchar(256)"`
	Name        string `gorm:"type:varchar(256)"`
	CompanyUUID string `gorm:"type:varchar(256);index"`
	Deleted     bool
}

func (departmentRecord) TableName() string { return "departments" }

type teamRecord struct {
	UUID           string `gorm:"primary_key;type:varchar(256)"`
	Name           string `gorm:"type:varchar(256)"`
	DepartmentUUID string `gorm:"type:varchar(256);index"`
	Deleted        bool
}

func (teamRecord) TableName() string { return "teams" }

type projectRecord struct {
	UUID        string `gorm:"primary_key;type:varchar(256)"`
	CompanyUUID string `gorm:"type:varchar(256);index"`
	Name        string `gorm:"type:varchar(256)"`
	Deleted     bool
}

func (projectRecord) TableName() string { return "projects" }

type statusUpdateTypeRecord struct {
	UUID        string `gorm:"primary_key;type:varchar(256)"`
	Name        string `gorm:"type:varchar(256)"`
	CompanyUUID string `gorm:"type:varchar(256);index"`
	Deleted     bool
}

func (statusUpdateTypeRecord) TableName() string { return "status_update_types" }

type statusUpdateReactionRecord struct {
	UUID        string `gorm:"primary_key;type:varchar(256)"`
	CompanyUUID string `gorm:"type:varchar(256);index"`
	Emoji       string `gorm:"type:varchar(256)"`
	Name        string `gorm:"type:varchar(256)"`
	Deleted     bool
}

func (statusUpdateReactionRecord) TableName() string { return "status_update_reactions" }

type statusUpdateRecord struct {
	UUID                 string `gorm:"primary_key;type:varchar(256)"`
	CompanyUUID          string `gorm:"type:varchar(256);index"`
	Source               string `gorm:"type:varchar(50)"`
	DiscussLink          string `gorm:"type:varchar(1024)"`
	Published            bool
	Deleted              bool
	Text                 string `gorm:"type:text"`
	IsMarkdown           bool
	AuthorSlackUserID    string `gorm:"type:varchar(256)"`
	AuthorSlackUserName  string `gorm:"type:varchar(256)"`
	CreatedAt            time.Time
	StatusUpdateTypeUUID string `gorm:"type:varchar(256)"`
}

func (statusUpdateRecord) TableName() string { return "status_updates" }

type statusUpdateTeamAssociation struct {
	StatusUpdateUUID string `gorm:"type:varchar(256);index"`
	TeamUUID         string `gorm:"type:varchar(256)"`
}

func (statusUpdateTeamAssociation) TableName() string { return "status_update_teams_association" }

type statusUpdateProjectAssociation struct {
	StatusUpdateUUID string `gorm:"type:varchar(256);index"`
	ProjectUUID      string `gorm:"type:varchar(256)"`
}

func (statusUpdateProjectAssociation) TableName() string { return "status_update_projects_association" }

type statusUpdateImageRecord struct {
	UUID             string `gorm:"primary_key;type:varchar(256)"`
	StatusUpdateUUID string `gorm:"type:varchar(256);index"`
	URL              string `gorm:"type:varchar(1024)"`
	Filename         string `gorm:"type:varchar(1024)"`
	Title            string `gorm:"type:varchar(1024)"`
	Description      string `gorm:"type:varchar(1024)"`
}

func (statusUpdateImageRecord) TableName() string { return "status_update_images" }

type slackUserPreferencesRecord struct {
	UserID                 string `gorm:"primary_key;type:varchar(256)"`
	ActiveTab              string `gorm:"type:varchar(256)"`
	ActiveConfigurationTab string `gorm:"type:varchar(256)"`
	ActiveTeamUUID         string `gorm:"type:varchar(256)"`
	ActiveDepartmentUUID   string `gorm:"type:varchar(256)"`
	ActiveProjectUUID      string `gorm:"type:varchar(256)"`
}

func (slackUserPreferencesRecord) TableName() string { return "slack_user_preferences" }

// DataBase is the relational Datastore implementation. Reads return fully
// populated value objects; the necessary joins happen per call and nothing
// is lazily loaded.
type DataBase struct {
	db *gorm.DB
}

func NewDataBase(driver string) (*DataBase, error) {
	var db *gorm.DB
	var err error
	switch driver {
	case "postgres":
		dsn := os.Getenv("DATABASE_URL")
		if dsn == "" {
			return nil, fmt.Errorf("DATABASE_URL is required for the postgres driver")
		}
		db, err = gorm.Open("postgres", dsn)
	default:
		dbpath := "./db/updateme.db"
		if os.Getenv("DB_PATH") != "" {
			dbpath = os.Getenv("DB_PATH")
		}
		if !path.IsAbs(dbpath) {
			dbpath = path.Join(os.Getenv("PWD"), dbpath)
		}
		db, err = gorm.Open("sqlite3", dbpath)
	}
	if err != nil {
		return nil, err
	}
	db.AutoMigrate(
		&companyRecord{},
		&departmentRecord{},
		&teamRecord{},
		&projectRecord{},
		&statusUpdateTypeRecord{},
		&statusUpdateReactionRecord{},
		&statusUpdateRecord{},
		&statusUpdateTeamAssociation{},
		&statusUpdateProjectAssociation{},
		&statusUpdateImageRecord{},
		&slackUserPreferencesRecord{},
	)
	return &DataBase{db: db}, nil
}

// upsert inserts rec when no row matches the key, otherwise overwrites all
// fields of the matching row.
func (d *DataBase) upsert(scope interface{}, keyQuery string, key interface{}, rec interface{}) error {
	var count int
	if err := d.db.Model(scope).Where(keyQuery, key).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return d.db.Create(rec).Error
	}
	return d.db.Save(rec).Error
}

func (d *DataBase) InsertCompany(company *model.Company) error {
	return d.upsert(&companyRecord{}, "uuid = ?", company.UUID, &companyRecord{
		UUID:        company.UUID,
		SlackTeamID: company.SlackTeamID,
		Name:        company.Name,
	})
}

func (d *DataBase) ReadCompany(uuid string) (*model.Company, error) {
	var rec companyRecord
	err := d.db.Where("uuid = ?", uuid).First(&rec).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return companyFromRecord(rec), nil
}

func (d *DataBase) ReadCompanies(name, slackTeamID string) ([]model.Company, error) {
	q := d.db.Model(&companyRecord{})
	if name != "" {
		q = q.Where("name = ?", name)
	}
	if slackTeamID != "" {
		q = q.Where("slack_team_id = ?", slackTeamID)
	}
	var recs []companyRecord
	if err := q.Find(&recs).Error; err != nil {
		return nil, err
	}
	companies := make([]model.Company, 0, len(recs))
	for _, rec := range recs {
		companies = append(companies, *companyFromRecord(rec))
	}
	return companies, nil
}

func companyFromRecord(rec companyRecord) *model.Company {
	return &model.Company{UUID: rec.UUID, SlackTeamID: rec.SlackTeamID, Name: rec.Name}
}

func (d *DataBase) InsertDepartment(department *model.Department) error {
	return d.upsert(&departmentRecord{}, "uuid = ?", department.UUID, &departmentRecord{
		UUID:        department.UUID,
		Name:        department.Name,
		CompanyUUID: department.Company.UUID,
		Deleted:     department.Deleted,
	})
}

func (d *DataBase) ReadDepartment(companyUUID, uuid string) (*model.Department, error) {
	var rec departmentRecord
	err := d.db.Where("uuid = ?", uuid).First(&rec).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if rec.CompanyUUID != companyUUID {
		return nil, nil
	}
	company, err := d.ReadCompany(rec.CompanyUUID)
	if err != nil {
		return nil, err
	}
	return departmentFromRecord(rec, company), nil
}

func (d *DataBase) ReadDepartments(companyUUID, name string) ([]model.Department, error) {
	q := d.db.Where("company_uuid = ? AND deleted = ?", companyUUID, false)
	if name != "" {
		q = q.Where("name = ?", name)
	}
	var recs []departmentRecord
	if err := q.Find(&recs).Error; err != nil {
		return nil, err
	}
	company, err := d.ReadCompany(companyUUID)
	if err != nil {
		return nil, err
	}
	departments := make([]model.Department, 0, len(recs))
	for _, rec := range recs {
		departments = append(departments, *departmentFromRecord(rec, company))
	}
	return departments, nil
}

func (d *DataBase) DeleteDepartment(companyUUID, uuid string) error {
	return d.db.Model(&departmentRecord{}).
		Where("uuid = ? AND company_uuid = ?", uuid, companyUUID).
		Update("deleted", true).Error
}

func departmentFromRecord(rec departmentRecord, company *model.Company) *model.Department {
	return &model.Department{
		UUID:    rec.UUID,
		Name:    rec.Name,
		Company: company,
		Deleted: rec.Deleted,
	}
}

func (d *DataBase) InsertTeam(team *model.Team) error {
	return d.upsert(&teamRecord{}, "uuid = ?", team.UUID, &teamRecord{
		UUID:           team.UUID,
		Name:           team.Name,
		DepartmentUUID: team.Department.UUID,
		Deleted:        team.Deleted,
	})
}

func (d *DataBase) ReadTeam(companyUUID, uuid string) (*model.Team, error) {
	var rec teamRecord
	err := d.db.Where("uuid = ?", uuid).First(&rec).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var depRec departmentRecord
	err = d.db.Where("uuid = ?", rec.DepartmentUUID).First(&depRec).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if depRec.CompanyUUID != companyUUID {
		return nil, nil
	}
	company, err := d.ReadCompany(depRec.CompanyUUID)
	if err != nil {
		return nil, err
	}
	return teamFromRecord(rec, departmentFromRecord(depRec, company)), nil
}

func (d *DataBase) ReadTeams(companyUUID, name, departmentUUID string) ([]model.Team, error) {
	q := d.db.Table("teams").
		Select("teams.*").
		Joins("JOIN departments ON departments.uuid = teams.department_uuid").
		Where("departments.company_uuid = ? AND departments.deleted = ? AND teams.deleted = ?",
			companyUUID, false, false)
	if name != "" {
		q = q.Where("teams.name = ?", name)
	}
	if departmentUUID != "" {
		q = q.Where("departments.uuid = ?", departmentUUID)
	}
	var recs []teamRecord
	if err := q.Find(&recs).Error; err != nil {
		return nil, err
	}
	departments, err := d.departmentsByUUID(companyUUID, nil)
	if err != nil {
		return nil, err
	}
	teams := make([]model.Team, 0, len(recs))
	for _, rec := range recs {
		teams = append(teams, *teamFromRecord(rec, departments[rec.DepartmentUUID]))
	}
	return teams, nil
}

func (d *DataBase) DeleteTeam(companyUUID, uuid string) error {
	return d.db.Model(&teamRecord{}).
		Where("uuid = ? AND department_uuid IN (SELECT uuid FROM departments WHERE company_uuid = ?)",
			uuid, companyUUID).
		Update("deleted", true).Error
}

func teamFromRecord(rec teamRecord, department *model.Department) *model.Team {
	return &model.Team{
		UUID:       rec.UUID,
		Name:       rec.Name,
		Department: department,
		Deleted:    rec.Deleted,
	}
}

// departmentsByUUID loads the company's departments (any deletion state)
// keyed by UUID. When uuids is non-nil only those rows are fetched.
func (d *DataBase) departmentsByUUID(companyUUID string, uuids []string) (map[string]*model.Department, error) {
	q := d.db.Where("company_uuid = ?", companyUUID)
	if uuids != nil {
		q = q.Where("uuid IN (?)", uuids)
	}
	var recs []departmentRecord
	if err := q.Find(&recs).Error; err != nil {
		return nil, err
	}
	company, err := d.ReadCompany(companyUUID)
	if err != nil {
		return nil, err
	}
	departments := make(map[string]*model.Department, len(recs))
	for _, rec := range recs {
		departments[rec.UUID] = departmentFromRecord(rec, company)
	}
	return departments, nil
}

func (d *DataBase) InsertProject(project *model.Project) error {
	return d.upsert(&projectRecord{}, "uuid = ?", project.UUID, &projectRecord{
		UUID:        project.UUID,
		CompanyUUID: project.Company.UUID,
		Name:        project.Name,
		Deleted:     project.Deleted,
	})
}

func (d *DataBase) ReadProject(companyUUID, uuid string) (*model.Project, error) {
	var rec projectRecord
	err := d.db.Where("uuid = ?", uuid).First(&rec).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if rec.CompanyUUID != companyUUID {
		return nil, nil
	}
	company, err := d.ReadCompany(rec.CompanyUUID)
	if err != nil {
		return nil, err
	}
	return projectFromRecord(rec, company), nil
}

func (d *DataBase) ReadProjects(companyUUID, name string) ([]model.Project, error) {
	q := d.db.Where("company_uuid = ? AND deleted = ?", companyUUID, false)
	if name != "" {
		q = q.Where("name = ?", name)
	}
	var recs []projectRecord
	if err := q.Find(&recs).Error; err != nil {
		return nil, err
	}
	company, err := d.ReadCompany(companyUUID)
	if err != nil {
		return nil, err
	}
	projects := make([]model.Project, 0, len(recs))
	for _, rec := range recs {
		projects = append(projects, *projectFromRecord(rec, company))
	}
	return projects, nil
}

func (d *DataBase) DeleteProject(companyUUID, uuid string) error {
	return d.db.Model(&projectRecord{}).
		Where("uuid = ? AND company_uuid = ?", uuid, companyUUID).
		Update("deleted", true).Error
}

func projectFromRecord(rec projectRecord, company *model.Company) *model.Project {
	return &model.Project{
		UUID:    rec.UUID,
		Name:    rec.Name,
		Company: company,
		Deleted: rec.Deleted,
	}
}

func (d *DataBase) InsertStatusUpdateType(t *model.StatusUpdateType) error {
	return d.upsert(&statusUpdateTypeRecord{}, "uuid = ?", t.UUID, &statusUpdateTypeRecord{
		UUID:        t.UUID,
		Name:        t.Name,
		CompanyUUID: t.Company.UUID,
		Deleted:     t.Deleted,
	})
}

func (d *DataBase) ReadStatusUpdateType(companyUUID, uuid string) (*model.StatusUpdateType, error) {
	var rec statusUpdateTypeRecord
	err := d.db.Where("uuid = ?", uuid).First(&rec).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if rec.CompanyUUID != companyUUID {
		return nil, nil
	}
	company, err := d.ReadCompany(rec.CompanyUUID)
	if err != nil {
		return nil, err
	}
	return statusUpdateTypeFromRecord(rec, company), nil
}

func (d *DataBase) ReadStatusUpdateTypes(companyUUID, name string) ([]model.StatusUpdateType, error) {
	q := d.db.Where("company_uuid = ? AND deleted = ?", companyUUID, false)
	if name != "" {
		q = q.Where("name = ?", name)
	}
	var recs []statusUpdateTypeRecord
	if err := q.Find(&recs).Error; err != nil {
		return nil, err
	}
	company, err := d.ReadCompany(companyUUID)
	if err != nil {
		return nil, err
	}
	types := make([]model.StatusUpdateType, 0, len(recs))
	for _, rec := range recs {
		types = append(types, *statusUpdateTypeFromRecord(rec, company))
	}
	return types, nil
}

func (d *DataBase) DeleteStatusUpdateType(companyUUID, uuid string) error {
	return d.db.Model(&statusUpdateTypeRecord{}).
		Where("uuid = ? AND company_uuid = ?", uuid, companyUUID).
		Update("deleted", true).Error
}

func statusUpdateTypeFromRecord(rec statusUpdateTypeRecord, company *model.Company) *model.StatusUpdateType {
	return &model.StatusUpdateType{
		UUID:    rec.UUID,
		Name:    rec.Name,
		Company: company,
		Deleted: rec.Deleted,
	}
}

func (d *DataBase) InsertStatusUpdateReaction(reaction *model.StatusUpdateReaction) error {
	return d.upsert(&statusUpdateReactionRecord{}, "uuid = ?", reaction.UUID, &statusUpdateReactionRecord{
		UUID:        reaction.UUID,
		CompanyUUID: reaction.Company.UUID,
		Emoji:       reaction.Emoji,
		Name:        reaction.Name,
		Deleted:     reaction.Deleted,
	})
}

func (d *DataBase) ReadStatusUpdateReactions(companyUUID string) ([]model.StatusUpdateReaction, error) {
	var recs []statusUpdateReactionRecord
	err := d.db.Where("company_uuid = ? AND deleted = ?", companyUUID, false).Find(&recs).Error
	if err != nil {
		return nil, err
	}
	company, err := d.ReadCompany(companyUUID)
	if err != nil {
		return nil, err
	}
	reactions := make([]model.StatusUpdateReaction, 0, len(recs))
	for _, rec := range recs {
		reactions = append(reactions, model.StatusUpdateReaction{
			UUID:    rec.UUID,
			Emoji:   rec.Emoji,
			Name:    rec.Name,
			Company: company,
			Deleted: rec.Deleted,
		})
	}
	return reactions, nil
}

func (d *DataBase) InsertStatusUpdate(update *model.StatusUpdate) error {
	if update.CreatedAt.IsZero() {
		update.CreatedAt = time.Now().UTC()
	}
	rec := statusUpdateRecord{
		UUID:                update.UUID,
		CompanyUUID:         update.Company.UUID,
		Source:              string(update.Source),
		DiscussLink:         update.DiscussLink,
		Published:           update.Published,
		Deleted:             update.Deleted,
		Text:                update.Text,
		IsMarkdown:          update.IsMarkdown,
		AuthorSlackUserID:   update.AuthorSlackUserID,
		AuthorSlackUserName: update.AuthorSlackUserName,
		CreatedAt:           update.CreatedAt,
	}
	if update.Type != nil {
		rec.StatusUpdateTypeUUID = update.Type.UUID
	}
	if err := d.upsert(&statusUpdateRecord{}, "uuid = ?", update.UUID, &rec); err != nil {
		return err
	}

	// Association rows and images are reconciled wholesale on every write.
	if err := d.db.Where("status_update_uuid = ?", update.UUID).
		Delete(&statusUpdateTeamAssociation{}).Error; err != nil {
		return err
	}
	for _, team := range update.Teams {
		assoc := statusUpdateTeamAssociation{StatusUpdateUUID: update.UUID, TeamUUID: team.UUID}
		if err := d.db.Create(&assoc).Error; err != nil {
			return err
		}
	}
	if err := d.db.Where("status_update_uuid = ?", update.UUID).
		Delete(&statusUpdateProjectAssociation{}).Error; err != nil {
		return err
	}
	for _, project := range update.Projects {
		assoc := statusUpdateProjectAssociation{StatusUpdateUUID: update.UUID, ProjectUUID: project.UUID}
		if err := d.db.Create(&assoc).Error; err != nil {
			return err
		}
	}
	if err := d.db.Where("status_update_uuid = ?", update.UUID).
		Delete(&statusUpdateImageRecord{}).Error; err != nil {
		return err
	}
	for _, image := range update.Images {
		imgRec := statusUpdateImageRecord{
			UUID:             image.UUID,
			StatusUpdateUUID: update.UUID,
			URL:              image.URL,
			Filename:         image.Filename,
			Title:            image.Title,
			Description:      image.Description,
		}
		if err := d.db.Create(&imgRec).Error; err != nil {
			return err
		}
	}
	return nil
}

func (d *DataBase) ReadStatusUpdate(companyUUID, uuid string) (*model.StatusUpdate, error) {
	var rec statusUpdateRecord
	err := d.db.Where("uuid = ?", uuid).First(&rec).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if rec.CompanyUUID != companyUUID {
		return nil, nil
	}
	updates, err := d.hydrateStatusUpdates(companyUUID, []statusUpdateRecord{rec})
	if err != nil {
		return nil, err
	}
	return &updates[0], nil
}

func (d *DataBase) ReadStatusUpdates(companyUUID string, filter StatusUpdateFilter) ([]model.StatusUpdate, error) {
	q := d.db.Table("status_updates").
		Select("DISTINCT status_updates.*").
		Where("status_updates.company_uuid = ?", companyUUID)

	if filter.CreatedAfter != nil {
		q = q.Where("status_updates.created_at >= ?", *filter.CreatedAfter)
	}
	if filter.CreatedBefore != nil {
		q = q.Where("status_updates.created_at <= ?", *filter.CreatedBefore)
	}
	if len(filter.FromTeams) > 0 {
		q = q.Joins("JOIN status_update_teams_association team_assoc ON team_assoc.status_update_uuid = status_updates.uuid").
			Where("team_assoc.team_uuid IN (?)", filter.FromTeams)
	}
	if len(filter.FromDepartments) > 0 {
		q = q.Joins("JOIN status_update_teams_association department_assoc ON department_assoc.status_update_uuid = status_updates.uuid").
			Joins("JOIN teams department_teams ON department_teams.uuid = department_assoc.team_uuid").
			Where("department_teams.department_uuid IN (?)", filter.FromDepartments)
	}
	if len(filter.FromProjects) > 0 {
		q = q.Joins("JOIN status_update_projects_association project_assoc ON project_assoc.status_update_uuid = status_updates.uuid").
			Where("project_assoc.project_uuid IN (?)", filter.FromProjects)
	}
	if len(filter.WithTypes) > 0 {
		q = q.Where("status_updates.status_update_type_uuid IN (?)", filter.WithTypes)
	}
	switch filter.Published {
	case BoolFilterTrue:
		q = q.Where("status_updates.published = ?", true)
	case BoolFilterFalse:
		q = q.Where("status_updates.published = ?", false)
	}
	switch filter.Deleted {
	case BoolFilterTrue:
		q = q.Where("status_updates.deleted = ?", true)
	case BoolFilterFalse:
		q = q.Where("status_updates.deleted = ?", false)
	}
	if filter.AuthorSlackUserID != "" {
		q = q.Where("status_updates.author_slack_user_id = ?", filter.AuthorSlackUserID)
	}
	if filter.Source != nil {
		q = q.Where("status_updates.source = ?", string(*filter.Source))
	}

	q = q.Order("status_updates.created_at DESC")
	if filter.LastN > 0 {
		q = q.Limit(filter.LastN)
	}

	var recs []statusUpdateRecord
	if err := q.Find(&recs).Error; err != nil {
		return nil, err
	}
	return d.hydrateStatusUpdates(companyUUID, recs)
}

func (d *DataBase) PublishStatusUpdate(companyUUID, uuid string) (bool, error) {
	update, err := d.ReadStatusUpdate(companyUUID, uuid)
	if err != nil {
		return false, err
	}
	if update == nil {
		return false, nil
	}
	err = d.db.Model(&statusUpdateRecord{}).
		Where("uuid = ?", uuid).
		Update("published", true).Error
	if err != nil {
		return false, err
	}
	return true, nil
}

func (d *DataBase) ReadLastUnpublishedStatusUpdate(companyUUID, authorSlackUserID string, noOlderThan time.Duration, source *model.StatusUpdateSource) (*model.StatusUpdate, error) {
	if noOlderThan == 0 {
		noOlderThan = 48 * time.Hour
	}
	after := time.Now().UTC().Add(-noOlderThan)
	updates, err := d.ReadStatusUpdates(companyUUID, StatusUpdateFilter{
		CreatedAfter:      &after,
		AuthorSlackUserID: authorSlackUserID,
		Published:         BoolFilterFalse,
		Deleted:           BoolFilterFalse,
		Source:            source,
	})
	if err != nil {
		return nil, err
	}
	if len(updates) == 0 {
		return nil, nil
	}
	// Deliberately a linear scan rather than ORDER BY ... LIMIT 1; the
	// tie-break on equal timestamps is undefined.
	latest := &updates[0]
	for i := range updates {
		if updates[i].CreatedAt.After(latest.CreatedAt) {
			latest = &updates[i]
		}
	}
	return latest, nil
}

func (d *DataBase) DeleteStatusUpdate(companyUUID, uuid string) error {
	return d.db.Model(&statusUpdateRecord{}).
		Where("uuid = ? AND company_uuid = ?", uuid, companyUUID).
		Update("deleted", true).Error
}

func (d *DataBase) DeleteTeamStatusUpdates(companyUUID, teamUUID string) error {
	return d.db.Model(&statusUpdateRecord{}).
		Where("company_uuid = ? AND uuid IN (SELECT status_update_uuid FROM status_update_teams_association WHERE team_uuid = ?)",
			companyUUID, teamUUID).
		Update("deleted", true).Error
}

// hydrateStatusUpdates turns raw rows into fully populated value objects:
// company, type, teams (with departments), projects and images. Referenced
// entities are loaded regardless of their own deletion state so that an
// update pointing at a deleted team still round-trips.
func (d *DataBase) hydrateStatusUpdates(companyUUID string, recs []statusUpdateRecord) ([]model.StatusUpdate, error) {
	if len(recs) == 0 {
		return nil, nil
	}
	company, err := d.ReadCompany(companyUUID)
	if err != nil {
		return nil, err
	}

	uuids := make([]string, 0, len(recs))
	typeUUIDs := make([]string, 0, len(recs))
	for _, rec := range recs {
		uuids = append(uuids, rec.UUID)
		if rec.StatusUpdateTypeUUID != "" {
			typeUUIDs = append(typeUUIDs, rec.StatusUpdateTypeUUID)
		}
	}

	types := map[string]*model.StatusUpdateType{}
	if len(typeUUIDs) > 0 {
		var typeRecs []statusUpdateTypeRecord
		if err := d.db.Where("uuid IN (?)", typeUUIDs).Find(&typeRecs).Error; err != nil {
			return nil, err
		}
		for _, rec := range typeRecs {
			types[rec.UUID] = statusUpdateTypeFromRecord(rec, company)
		}
	}

	var teamAssocs []statusUpdateTeamAssociation
	if err := d.db.Where("status_update_uuid IN (?)", uuids).Find(&teamAssocs).Error; err != nil {
		return nil, err
	}
	teamUUIDs := make([]string, 0, len(teamAssocs))
	for _, assoc := range teamAssocs {
		teamUUIDs = append(teamUUIDs, assoc.TeamUUID)
	}
	teams := map[string]*model.Team{}
	if len(teamUUIDs) > 0 {
		var teamRecs []teamRecord
		if err := d.db.Where("uuid IN (?)", teamUUIDs).Find(&teamRecs).Error; err != nil {
			return nil, err
		}
		departments, err := d.departmentsByUUID(companyUUID, nil)
		if err != nil {
			return nil, err
		}
		for _, rec := range teamRecs {
			teams[rec.UUID] = teamFromRecord(rec, departments[rec.DepartmentUUID])
		}
	}

	var projectAssocs []statusUpdateProjectAssociation
	if err := d.db.Where("status_update_uuid IN (?)", uuids).Find(&projectAssocs).Error; err != nil {
		return nil, err
	}
	projectUUIDs := make([]string, 0, len(projectAssocs))
	for _, assoc := range projectAssocs {
		projectUUIDs = append(projectUUIDs, assoc.ProjectUUID)
	}
	projects := map[string]*model.Project{}
	if len(projectUUIDs) > 0 {
		var projectRecs []projectRecord
		if err := d.db.Where("uuid IN (?)", projectUUIDs).Find(&projectRecs).Error; err != nil {
			return nil, err
		}
		for _, rec := range projectRecs {
			projects[rec.UUID] = projectFromRecord(rec, company)
		}
	}

	// Ordered by uuid so the image list is stable across engines; sqlite
	// happens to return insertion order but postgres makes no promise.
	var imageRecs []statusUpdateImageRecord
	if err := d.db.Where("status_update_uuid IN (?)", uuids).Order("uuid").Find(&imageRecs).Error; err != nil {
		return nil, err
	}

	updates := make([]model.StatusUpdate, 0, len(recs))
	for _, rec := range recs {
		update := model.StatusUpdate{
			UUID:                rec.UUID,
			Text:                rec.Text,
			IsMarkdown:          rec.IsMarkdown,
			Source:              model.StatusUpdateSource(rec.Source),
			DiscussLink:         rec.DiscussLink,
			Published:           rec.Published,
			Deleted:             rec.Deleted,
			AuthorSlackUserID:   rec.AuthorSlackUserID,
			AuthorSlackUserName: rec.AuthorSlackUserName,
			CreatedAt:           rec.CreatedAt,
			Company:             company,
			Type:                types[rec.StatusUpdateTypeUUID],
		}
		for _, assoc := range teamAssocs {
			if assoc.StatusUpdateUUID != rec.UUID {
				continue
			}
			if team := teams[assoc.TeamUUID]; team != nil {
				update.Teams = append(update.Teams, *team)
			}
		}
		for _, assoc := range projectAssocs {
			if assoc.StatusUpdateUUID != rec.UUID {
				continue
			}
			if project := projects[assoc.ProjectUUID]; project != nil {
				update.Projects = append(update.Projects, *project)
			}
		}
		for _, imageRec := range imageRecs {
			if imageRec.StatusUpdateUUID != rec.UUID {
				continue
			}
			update.Images = append(update.Images, model.StatusUpdateImage{
				UUID:        imageRec.UUID,
				URL:         imageRec.URL,
				Filename:    imageRec.Filename,
				Title:       imageRec.Title,
				Description: imageRec.Description,
			})
		}
		sort.Slice(update.Teams, func(i, j int) bool { return update.Teams[i].Name < update.Teams[j].Name })
		sort.Slice(update.Projects, func(i, j int) bool { return update.Projects[i].Name < update.Projects[j].Name })
		updates = append(updates, update)
	}
	return updates, nil
}

func (d *DataBase) ReadSlackUserPreferences(userID string) (*model.SlackUserPreferences, error) {
	var rec slackUserPreferencesRecord
	err := d.db.Where("user_id = ?", userID).First(&rec).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &model.SlackUserPreferences{
		UserID:                 rec.UserID,
		ActiveTab:              rec.ActiveTab,
		ActiveConfigurationTab: rec.ActiveConfigurationTab,
		ActiveTeamUUID:         rec.ActiveTeamUUID,
		ActiveDepartmentUUID:   rec.ActiveDepartmentUUID,
		ActiveProjectUUID:      rec.ActiveProjectUUID,
	}, nil
}

func (d *DataBase) InsertSlackUserPreferences(prefs *model.SlackUserPreferences) error {
	return d.upsert(&slackUserPreferencesRecord{}, "user_id = ?", prefs.UserID, &slackUserPreferencesRecord{
		UserID:                 prefs.UserID,
		ActiveTab:              prefs.ActiveTab,
		ActiveConfigurationTab: prefs.ActiveConfigurationTab,
		ActiveTeamUUID:         prefs.ActiveTeamUUID,
		ActiveDepartmentUUID:   prefs.ActiveDepartmentUUID,
		ActiveProjectUUID:      prefs.ActiveProjectUUID,
	})
}
