package viewmodels

// API representations. Dates are formatted as 2006-01-02, timestamps as
// RFC3339.

type APIError struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
	Meta    map[string]string `json:"meta,omitempty"`
}

type Alias struct {
	Value    string `json:"value"`
	Language string `json:"language"`
}

type Unit struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	ShortName  *string  `json:"short_name,omitempty"`
	UnitTypeID string   `json:"unit_type_id"`
	ParentID   *string  `json:"parent_unit_id,omitempty"`
	StartDate  *string  `json:"start_date,omitempty"`
	EndDate    *string  `json:"end_date,omitempty"`
	Aliases    []Alias  `json:"aliases,omitempty"`
	CreatedAt  string   `json:"created_at,omitempty"`
	UpdatedAt  string   `json:"updated_at,omitempty"`
}

type Person struct {
	ID          string  `json:"id"`
	DisplayName string  `json:"display_name"`
	FirstName   *string `json:"first_name,omitempty"`
	LastName    *string `json:"last_name,omitempty"`
	Pernr       *string `json:"pernr,omitempty"`
	Email       *string `json:"email,omitempty"`
	AvatarURL   *string `json:"avatar_url,omitempty"`
	CreatedAt   string  `json:"created_at,omitempty"`
	UpdatedAt   string  `json:"updated_at,omitempty"`
}

type JobTitle struct {
	ID              string   `json:"id"`
	Name            string   `json:"name"`
	Code            *string  `json:"code,omitempty"`
	StartDate       *string  `json:"start_date,omitempty"`
	EndDate         *string  `json:"end_date,omitempty"`
	Aliases         []Alias  `json:"aliases,omitempty"`
	AssignableUnits []string `json:"assignable_units,omitempty"`
	CreatedAt       string   `json:"created_at,omitempty"`
	UpdatedAt       string   `json:"updated_at,omitempty"`
}

type TreeNode struct {
	ID               string     `json:"id"`
	Name             string     `json:"name"`
	ShortName        *string    `json:"short_name,omitempty"`
	ParentID         *string    `json:"parent_unit_id,omitempty"`
	Level            int        `json:"level"`
	FullPath         string     `json:"full_path"`
	PersonCount      int        `json:"person_count"`
	ChildrenCount    int        `json:"children_count"`
	TotalPersonCount int        `json:"total_person_count"`
	Children         []TreeNode `json:"children,omitempty"`
}

type Tree struct {
	Roots   []TreeNode `json:"roots"`
	Orphans []TreeNode `json:"orphans,omitempty"`
}

type AssignmentVersion struct {
	ID          string  `json:"id"`
	LineageID   string  `json:"lineage_id"`
	PersonID    string  `json:"person_id"`
	UnitID      string  `json:"unit_id"`
	JobTitleID  string  `json:"job_title_id"`
	Percentage  float64 `json:"percentage"`
	IsUnitBoss  bool    `json:"is_unit_boss"`
	IsAdInterim bool    `json:"is_ad_interim"`
	Notes       *string `json:"notes,omitempty"`
	Flags       *string `json:"flags,omitempty"`
	ValidFrom   string  `json:"valid_from"`
	ValidTo     *string `json:"valid_to,omitempty"`
	Version     int     `json:"version"`
	IsCurrent   bool    `json:"is_current"`
	Status      string  `json:"status,omitempty"`
	CreatedAt   string  `json:"created_at"`
}

type CurrentAssignment struct {
	AssignmentVersion
	PersonName   string `json:"person_name"`
	UnitName     string `json:"unit_name"`
	JobTitleName string `json:"job_title_name"`
}
