package controllers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/orgledger/orgledger/modules/org/domain/jobtitle"
	"github.com/orgledger/orgledger/modules/org/domain/unit"
	"github.com/orgledger/orgledger/modules/org/presentation/mappers"
	"github.com/orgledger/orgledger/modules/org/presentation/viewmodels"
	"github.com/orgledger/orgledger/modules/org/services"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

type OrgAPIController struct {
	assignments *services.AssignmentService
	hierarchy   *services.HierarchyService
	stats       *services.StatsService
	directory   *services.DirectoryService
	basePath    string
}

func NewOrgAPIController(
	assignments *services.AssignmentService,
	hierarchy *services.HierarchyService,
	stats *services.StatsService,
	directory *services.DirectoryService,
) *OrgAPIController {
	return &OrgAPIController{
		assignments: assignments,
		hierarchy:   hierarchy,
		stats:       stats,
		directory:   directory,
		basePath:    "/org/api",
	}
}

func (c *OrgAPIController) Key() string {
	return c.basePath
}

func (c *OrgAPIController) Register(r *mux.Router) {
	api := r.PathPrefix(c.basePath).Subrouter()

	api.HandleFunc("/tree", instrumentAPI("tree", c.GetTree)).Methods(http.MethodGet)

	api.HandleFunc("/units", instrumentAPI("units", c.ListUnits)).Methods(http.MethodGet)
	api.HandleFunc("/units", instrumentAPI("units", c.CreateUnit)).Methods(http.MethodPost)
	api.HandleFunc("/units/{id}", instrumentAPI("units", c.GetUnit)).Methods(http.MethodGet)
	api.HandleFunc("/units/{id}", instrumentAPI("units", c.UpdateUnit)).Methods(http.MethodPatch)
	api.HandleFunc("/units/{id}", instrumentAPI("units", c.DeleteUnit)).Methods(http.MethodDelete)
	api.HandleFunc("/units/{id}:move", instrumentAPI("units_move", c.MoveUnit)).Methods(http.MethodPost)

	api.HandleFunc("/persons", instrumentAPI("persons", c.ListPersons)).Methods(http.MethodGet)
	api.HandleFunc("/persons", instrumentAPI("persons", c.CreatePerson)).Methods(http.MethodPost)
	api.HandleFunc("/persons/{id}", instrumentAPI("persons", c.GetPerson)).Methods(http.MethodGet)
	api.HandleFunc("/persons/{id}", instrumentAPI("persons", c.UpdatePerson)).Methods(http.MethodPatch)
	api.HandleFunc("/persons/{id}", instrumentAPI("persons", c.DeletePerson)).Methods(http.MethodDelete)
	api.HandleFunc("/persons/{id}/timeline", instrumentAPI("timeline", c.GetTimeline)).Methods(http.MethodGet)

	api.HandleFunc("/job-titles", instrumentAPI("job_titles", c.ListJobTitles)).Methods(http.MethodGet)
	api.HandleFunc("/job-titles", instrumentAPI("job_titles", c.CreateJobTitle)).Methods(http.MethodPost)
	api.HandleFunc("/job-titles/{id}", instrumentAPI("job_titles", c.GetJobTitle)).Methods(http.MethodGet)
	api.HandleFunc("/job-titles/{id}", instrumentAPI("job_titles", c.UpdateJobTitle)).Methods(http.MethodPatch)
	api.HandleFunc("/job-titles/{id}", instrumentAPI("job_titles", c.DeleteJobTitle)).Methods(http.MethodDelete)
	api.HandleFunc("/job-titles/{id}/units", instrumentAPI("job_title_units", c.SetAssignableUnits)).Methods(http.MethodPut)

	api.HandleFunc("/assignments", instrumentAPI("assignments", c.GetCurrentAssignments)).Methods(http.MethodGet)
	api.HandleFunc("/assignments", instrumentAPI("assignments", c.CreateAssignment)).Methods(http.MethodPost)
	api.HandleFunc("/assignments/{lineageId}", instrumentAPI("assignments", c.ModifyAssignment)).Methods(http.MethodPatch)
	api.HandleFunc("/assignments/{lineageId}:terminate", instrumentAPI("assignments_terminate", c.TerminateAssignment)).Methods(http.MethodPost)
	api.HandleFunc("/assignments/{lineageId}/history", instrumentAPI("history", c.GetHistory)).Methods(http.MethodGet)
}

func (c *OrgAPIController) GetTree(w http.ResponseWriter, r *http.Request) {
	tree, err := c.hierarchy.BuildTree(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if err := c.stats.AnnotateTree(r.Context(), tree); err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mappers.TreeToViewModel(tree))
}

type unitRequest struct {
	Name       string             `json:"name" validate:"required"`
	ShortName  *string            `json:"short_name"`
	UnitTypeID string             `json:"unit_type_id" validate:"required,uuid"`
	ParentID   *string            `json:"parent_unit_id" validate:"omitempty,uuid"`
	StartDate  *string            `json:"start_date"`
	EndDate    *string            `json:"end_date"`
	Aliases    []viewmodels.Alias `json:"aliases"`
}

func (in unitRequest) toInput() (services.UnitInput, error) {
	unitTypeID, err := uuid.Parse(in.UnitTypeID)
	if err != nil {
		return services.UnitInput{}, err
	}
	var parentID *uuid.UUID
	if in.ParentID != nil {
		id, err := uuid.Parse(*in.ParentID)
		if err != nil {
			return services.UnitInput{}, err
		}
		parentID = &id
	}
	start, err := parseOptionalDate(in.StartDate)
	if err != nil {
		return services.UnitInput{}, err
	}
	end, err := parseOptionalDate(in.EndDate)
	if err != nil {
		return services.UnitInput{}, err
	}
	aliases := make([]unit.Alias, 0, len(in.Aliases))
	for _, a := range in.Aliases {
		aliases = append(aliases, unit.Alias{Value: a.Value, Language: a.Language})
	}
	return services.UnitInput{
		Name:       in.Name,
		ShortName:  in.ShortName,
		UnitTypeID: unitTypeID,
		ParentID:   parentID,
		StartDate:  start,
		EndDate:    end,
		Aliases:    aliases,
	}, nil
}

func (c *OrgAPIController) ListUnits(w http.ResponseWriter, r *http.Request) {
	rows, err := c.directory.ListUnits(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	out := make([]viewmodels.Unit, 0, len(rows))
	for _, row := range rows {
		var parentID *string
		if row.ParentID != nil {
			s := row.ParentID.String()
			parentID = &s
		}
		out = append(out, viewmodels.Unit{
			ID:         row.ID.String(),
			Name:       row.Name,
			ShortName:  row.ShortName,
			UnitTypeID: row.UnitTypeID.String(),
			ParentID:   parentID,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (c *OrgAPIController) CreateUnit(w http.ResponseWriter, r *http.Request) {
	var req unitRequest
	if !c.decodeAndValidate(w, r, &req) {
		return
	}
	in, err := req.toInput()
	if err != nil {
		writeAPIError(w, r, http.StatusBadRequest, "ORG_INVALID_BODY", "invalid unit payload", nil)
		return
	}
	created, err := c.directory.CreateUnit(r.Context(), in)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, mappers.UnitToViewModel(created))
}

func (c *OrgAPIController) GetUnit(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		writeAPIError(w, r, http.StatusBadRequest, "ORG_INVALID_PATH", "id is not a valid uuid", nil)
		return
	}
	u, err := c.directory.GetUnit(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mappers.UnitToViewModel(u))
}

func (c *OrgAPIController) UpdateUnit(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		writeAPIError(w, r, http.StatusBadRequest, "ORG_INVALID_PATH", "id is not a valid uuid", nil)
		return
	}
	var req unitRequest
	if !c.decodeAndValidate(w, r, &req) {
		return
	}
	in, err := req.toInput()
	if err != nil {
		writeAPIError(w, r, http.StatusBadRequest, "ORG_INVALID_BODY", "invalid unit payload", nil)
		return
	}
	updated, err := c.directory.UpdateUnit(r.Context(), id, in)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mappers.UnitToViewModel(updated))
}

func (c *OrgAPIController) DeleteUnit(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		writeAPIError(w, r, http.StatusBadRequest, "ORG_INVALID_PATH", "id is not a valid uuid", nil)
		return
	}
	if err := c.directory.DeleteUnit(r.Context(), id); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type moveUnitRequest struct {
	NewParentID *string `json:"new_parent_id" validate:"omitempty,uuid"`
}

func (c *OrgAPIController) MoveUnit(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		writeAPIError(w, r, http.StatusBadRequest, "ORG_INVALID_PATH", "id is not a valid uuid", nil)
		return
	}
	var req moveUnitRequest
	if !c.decodeAndValidate(w, r, &req) {
		return
	}
	var newParentID *uuid.UUID
	if req.NewParentID != nil {
		parsed, err := uuid.Parse(*req.NewParentID)
		if err != nil {
			writeAPIError(w, r, http.StatusBadRequest, "ORG_INVALID_BODY", "new_parent_id is not a valid uuid", nil)
			return
		}
		newParentID = &parsed
	}
	if err := c.hierarchy.MoveUnit(r.Context(), id, newParentID); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type personRequest struct {
	DisplayName string  `json:"display_name" validate:"required"`
	FirstName   *string `json:"first_name"`
	LastName    *string `json:"last_name"`
	Pernr       *string `json:"pernr"`
	Email       *string `json:"email" validate:"omitempty,email"`
	AvatarURL   *string `json:"avatar_url" validate:"omitempty,url"`
}

func (c *OrgAPIController) ListPersons(w http.ResponseWriter, r *http.Request) {
	persons, err := c.directory.ListPersons(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	out := make([]viewmodels.Person, 0, len(persons))
	for _, p := range persons {
		out = append(out, mappers.PersonToViewModel(p))
	}
	writeJSON(w, http.StatusOK, out)
}

func (c *OrgAPIController) CreatePerson(w http.ResponseWriter, r *http.Request) {
	var req personRequest
	if !c.decodeAndValidate(w, r, &req) {
		return
	}
	created, err := c.directory.CreatePerson(r.Context(), services.PersonInput{
		DisplayName: req.DisplayName,
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		Pernr:       req.Pernr,
		Email:       req.Email,
		AvatarURL:   req.AvatarURL,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, mappers.PersonToViewModel(created))
}

func (c *OrgAPIController) GetPerson(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		writeAPIError(w, r, http.StatusBadRequest, "ORG_INVALID_PATH", "id is not a valid uuid", nil)
		return
	}
	p, err := c.directory.GetPerson(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mappers.PersonToViewModel(p))
}

func (c *OrgAPIController) UpdatePerson(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		writeAPIError(w, r, http.StatusBadRequest, "ORG_INVALID_PATH", "id is not a valid uuid", nil)
		return
	}
	var req personRequest
	if !c.decodeAndValidate(w, r, &req) {
		return
	}
	updated, err := c.directory.UpdatePerson(r.Context(), id, services.PersonInput{
		DisplayName: req.DisplayName,
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		Pernr:       req.Pernr,
		Email:       req.Email,
		AvatarURL:   req.AvatarURL,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mappers.PersonToViewModel(updated))
}

func (c *OrgAPIController) DeletePerson(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		writeAPIError(w, r, http.StatusBadRequest, "ORG_INVALID_PATH", "id is not a valid uuid", nil)
		return
	}
	if err := c.directory.DeletePerson(r.Context(), id); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (c *OrgAPIController) GetTimeline(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		writeAPIError(w, r, http.StatusBadRequest, "ORG_INVALID_PATH", "id is not a valid uuid", nil)
		return
	}
	rows, err := c.assignments.GetTimeline(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	out := make([]viewmodels.AssignmentVersion, 0, len(rows))
	for _, row := range rows {
		out = append(out, mappers.AssignmentToViewModel(row, ""))
	}
	writeJSON(w, http.StatusOK, out)
}

type jobTitleRequest struct {
	Name      string             `json:"name" validate:"required"`
	Code      *string            `json:"code"`
	StartDate *string            `json:"start_date"`
	EndDate   *string            `json:"end_date"`
	Aliases   []viewmodels.Alias `json:"aliases"`
}

func (in jobTitleRequest) toInput() (services.JobTitleInput, error) {
	start, err := parseOptionalDate(in.StartDate)
	if err != nil {
		return services.JobTitleInput{}, err
	}
	end, err := parseOptionalDate(in.EndDate)
	if err != nil {
		return services.JobTitleInput{}, err
	}
	aliases := make([]jobtitle.Alias, 0, len(in.Aliases))
	for _, a := range in.Aliases {
		aliases = append(aliases, jobtitle.Alias{Value: a.Value, Language: a.Language})
	}
	return services.JobTitleInput{
		Name:      in.Name,
		Code:      in.Code,
		StartDate: start,
		EndDate:   end,
		Aliases:   aliases,
	}, nil
}

func (c *OrgAPIController) ListJobTitles(w http.ResponseWriter, r *http.Request) {
	titles, err := c.directory.ListJobTitles(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	out := make([]viewmodels.JobTitle, 0, len(titles))
	for _, j := range titles {
		out = append(out, mappers.JobTitleToViewModel(j))
	}
	writeJSON(w, http.StatusOK, out)
}

func (c *OrgAPIController) CreateJobTitle(w http.ResponseWriter, r *http.Request) {
	var req jobTitleRequest
	if !c.decodeAndValidate(w, r, &req) {
		return
	}
	in, err := req.toInput()
	if err != nil {
		writeAPIError(w, r, http.StatusBadRequest, "ORG_INVALID_BODY", "invalid job title payload", nil)
		return
	}
	created, err := c.directory.CreateJobTitle(r.Context(), in)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, mappers.JobTitleToViewModel(created))
}

func (c *OrgAPIController) GetJobTitle(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		writeAPIError(w, r, http.StatusBadRequest, "ORG_INVALID_PATH", "id is not a valid uuid", nil)
		return
	}
	j, err := c.directory.GetJobTitle(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mappers.JobTitleToViewModel(j))
}

func (c *OrgAPIController) UpdateJobTitle(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		writeAPIError(w, r, http.StatusBadRequest, "ORG_INVALID_PATH", "id is not a valid uuid", nil)
		return
	}
	var req jobTitleRequest
	if !c.decodeAndValidate(w, r, &req) {
		return
	}
	in, err := req.toInput()
	if err != nil {
		writeAPIError(w, r, http.StatusBadRequest, "ORG_INVALID_BODY", "invalid job title payload", nil)
		return
	}
	updated, err := c.directory.UpdateJobTitle(r.Context(), id, in)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mappers.JobTitleToViewModel(updated))
}

func (c *OrgAPIController) DeleteJobTitle(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		writeAPIError(w, r, http.StatusBadRequest, "ORG_INVALID_PATH", "id is not a valid uuid", nil)
		return
	}
	if err := c.directory.DeleteJobTitle(r.Context(), id); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type assignableUnitsRequest struct {
	UnitIDs []string `json:"unit_ids" validate:"required,dive,uuid"`
}

func (c *OrgAPIController) SetAssignableUnits(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		writeAPIError(w, r, http.StatusBadRequest, "ORG_INVALID_PATH", "id is not a valid uuid", nil)
		return
	}
	var req assignableUnitsRequest
	if !c.decodeAndValidate(w, r, &req) {
		return
	}
	unitIDs := make([]uuid.UUID, 0, len(req.UnitIDs))
	for _, raw := range req.UnitIDs {
		parsed, err := uuid.Parse(raw)
		if err != nil {
			writeAPIError(w, r, http.StatusBadRequest, "ORG_INVALID_BODY", "unit_ids contains an invalid uuid", nil)
			return
		}
		unitIDs = append(unitIDs, parsed)
	}
	if err := c.directory.SetAssignableUnits(r.Context(), id, unitIDs); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type createAssignmentRequest struct {
	PersonID    string  `json:"person_id" validate:"required,uuid"`
	UnitID      string  `json:"unit_id" validate:"required,uuid"`
	JobTitleID  string  `json:"job_title_id" validate:"required,uuid"`
	Percentage  float64 `json:"percentage" validate:"required,gt=0,lte=1"`
	IsUnitBoss  bool    `json:"is_unit_boss"`
	IsAdInterim bool    `json:"is_ad_interim"`
	Notes       *string `json:"notes"`
	Flags       *string `json:"flags"`
	ValidFrom   string  `json:"valid_from" validate:"required"`
}

func (c *OrgAPIController) CreateAssignment(w http.ResponseWriter, r *http.Request) {
	var req createAssignmentRequest
	if !c.decodeAndValidate(w, r, &req) {
		return
	}
	validFrom, err := parseDate(req.ValidFrom)
	if err != nil {
		writeAPIError(w, r, http.StatusBadRequest, "ORG_INVALID_BODY", "valid_from is invalid", nil)
		return
	}
	personID, _ := uuid.Parse(req.PersonID)
	unitID, _ := uuid.Parse(req.UnitID)
	jobTitleID, _ := uuid.Parse(req.JobTitleID)

	row, err := c.assignments.Create(r.Context(), services.CreateAssignmentInput{
		PersonID:    personID,
		UnitID:      unitID,
		JobTitleID:  jobTitleID,
		Percentage:  req.Percentage,
		IsUnitBoss:  req.IsUnitBoss,
		IsAdInterim: req.IsAdInterim,
		Notes:       req.Notes,
		Flags:       req.Flags,
		ValidFrom:   validFrom,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, mappers.AssignmentToViewModel(*row, "CURRENT"))
}

func (c *OrgAPIController) GetCurrentAssignments(w http.ResponseWriter, r *http.Request) {
	var filter services.CurrentFilter
	var err error
	if filter.PersonID, err = queryUUID(r, "person_id"); err != nil {
		writeAPIError(w, r, http.StatusBadRequest, "ORG_INVALID_QUERY", "person_id is not a valid uuid", nil)
		return
	}
	if filter.UnitID, err = queryUUID(r, "unit_id"); err != nil {
		writeAPIError(w, r, http.StatusBadRequest, "ORG_INVALID_QUERY", "unit_id is not a valid uuid", nil)
		return
	}
	if filter.JobTitleID, err = queryUUID(r, "job_title_id"); err != nil {
		writeAPIError(w, r, http.StatusBadRequest, "ORG_INVALID_QUERY", "job_title_id is not a valid uuid", nil)
		return
	}
	rows, err := c.assignments.GetCurrent(r.Context(), filter)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	out := make([]viewmodels.CurrentAssignment, 0, len(rows))
	for _, row := range rows {
		out = append(out, mappers.CurrentToViewModel(row))
	}
	writeJSON(w, http.StatusOK, out)
}

type modifyAssignmentRequest struct {
	EffectiveDate string   `json:"effective_date" validate:"required"`
	Percentage    *float64 `json:"percentage" validate:"omitempty,gt=0,lte=1"`
	IsUnitBoss    *bool    `json:"is_unit_boss"`
	IsAdInterim   *bool    `json:"is_ad_interim"`
	// raw so an explicit null (clear) is distinguishable from an absent key
	Notes           json.RawMessage `json:"notes"`
	Flags           json.RawMessage `json:"flags"`
	ExpectedVersion *int            `json:"expected_version" validate:"omitempty,gte=1"`
}

// nullableString maps an optional JSON string field onto the three-state
// service input: absent, set to a value, or cleared with null.
func nullableString(raw json.RawMessage) (**string, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	if string(raw) == "null" {
		var cleared *string
		return &cleared, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, err
	}
	v := &s
	return &v, nil
}

func (c *OrgAPIController) ModifyAssignment(w http.ResponseWriter, r *http.Request) {
	lineageID, err := pathUUID(r, "lineageId")
	if err != nil {
		writeAPIError(w, r, http.StatusBadRequest, "ORG_INVALID_PATH", "lineageId is not a valid uuid", nil)
		return
	}
	var req modifyAssignmentRequest
	if !c.decodeAndValidate(w, r, &req) {
		return
	}
	effective, err := parseDate(req.EffectiveDate)
	if err != nil {
		writeAPIError(w, r, http.StatusBadRequest, "ORG_INVALID_BODY", "effective_date is invalid", nil)
		return
	}
	notes, err := nullableString(req.Notes)
	if err != nil {
		writeAPIError(w, r, http.StatusBadRequest, "ORG_INVALID_BODY", "notes must be a string or null", nil)
		return
	}
	flags, err := nullableString(req.Flags)
	if err != nil {
		writeAPIError(w, r, http.StatusBadRequest, "ORG_INVALID_BODY", "flags must be a string or null", nil)
		return
	}
	row, err := c.assignments.Modify(r.Context(), lineageID, services.ModifyAssignmentInput{
		EffectiveDate:   effective,
		Percentage:      req.Percentage,
		IsUnitBoss:      req.IsUnitBoss,
		IsAdInterim:     req.IsAdInterim,
		Notes:           notes,
		Flags:           flags,
		ExpectedVersion: req.ExpectedVersion,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mappers.AssignmentToViewModel(*row, "CURRENT"))
}

type terminateAssignmentRequest struct {
	EffectiveDate string `json:"effective_date" validate:"required"`
}

func (c *OrgAPIController) TerminateAssignment(w http.ResponseWriter, r *http.Request) {
	lineageID, err := pathUUID(r, "lineageId")
	if err != nil {
		writeAPIError(w, r, http.StatusBadRequest, "ORG_INVALID_PATH", "lineageId is not a valid uuid", nil)
		return
	}
	var req terminateAssignmentRequest
	if !c.decodeAndValidate(w, r, &req) {
		return
	}
	effective, err := parseDate(req.EffectiveDate)
	if err != nil {
		writeAPIError(w, r, http.StatusBadRequest, "ORG_INVALID_BODY", "effective_date is invalid", nil)
		return
	}
	row, err := c.assignments.Terminate(r.Context(), lineageID, effective)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mappers.AssignmentToViewModel(*row, "TERMINATED"))
}

func (c *OrgAPIController) GetHistory(w http.ResponseWriter, r *http.Request) {
	lineageID, err := pathUUID(r, "lineageId")
	if err != nil {
		writeAPIError(w, r, http.StatusBadRequest, "ORG_INVALID_PATH", "lineageId is not a valid uuid", nil)
		return
	}
	views, err := c.assignments.GetHistory(r.Context(), lineageID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	out := make([]viewmodels.AssignmentVersion, 0, len(views))
	for _, v := range views {
		out = append(out, mappers.VersionToViewModel(v))
	}
	writeJSON(w, http.StatusOK, out)
}

func (c *OrgAPIController) decodeAndValidate(w http.ResponseWriter, r *http.Request, out any) bool {
	if err := decodeJSON(r.Body, out); err != nil {
		writeAPIError(w, r, http.StatusBadRequest, "ORG_INVALID_BODY", "request body is not valid JSON", nil)
		return false
	}
	if err := validate.Struct(out); err != nil {
		fields := map[string]string{}
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			for _, fe := range verrs {
				fields[strings.ToLower(fe.Field())] = fe.Tag()
			}
		}
		writeAPIError(w, r, http.StatusBadRequest, "ORG_INVALID_BODY", "request body failed validation", fields)
		return false
	}
	return true
}
