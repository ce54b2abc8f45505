package models

import (
	"strings"

	"demeter/internal/attribute"
)

// Page is one page of a list endpoint.
type Page[T any] struct {
	List     []T   `json:"list"`
	Total    int64 `json:"total"`
	Page     int   `json:"page"`
	PageSize int   `json:"pageSize"`
}

// Pagination is the paging state a list view keeps between fetches.
type Pagination struct {
	Page     int   `json:"page"`
	PageSize int   `json:"pageSize"`
	Total    int64 `json:"total"`
}

const (
	DefaultPage     = 1
	DefaultPageSize = 10
	MaxPageSize     = 1000
)

// PageQuery is bound from ?page=&pageSize=.
type PageQuery struct {
	Page     int `form:"page" json:"page,omitempty"`
	PageSize int `form:"pageSize" json:"pageSize,omitempty"`
}

// Normalize applies defaults and bounds.
func (q PageQuery) Normalize() PageQuery {
	if q.Page < 1 {
		q.Page = DefaultPage
	}
	if q.PageSize < 1 {
		q.PageSize = DefaultPageSize
	}
	if q.PageSize > MaxPageSize {
		q.PageSize = MaxPageSize
	}
	return q
}

func (q PageQuery) Offset() int {
	q = q.Normalize()
	return (q.Page - 1) * q.PageSize
}

// BatchDelete is the body of every batch-delete endpoint.
type BatchDelete struct {
	IDs []ID `json:"ids"`
}

// BatchResult reports how many rows a batch touched.
type BatchResult struct {
	Count int64 `json:"count"`
}

type CreateUserParams struct {
	Username string  `json:"username"`
	Password string  `json:"password"`
	FullName string  `json:"fullName"`
	Email    string  `json:"email"`
	Phone    *string `json:"phone"`
	IsActive *bool   `json:"isActive"`
}

type UpdateUserParams struct {
	FullName Optional[string] `json:"fullName,omitzero"`
	Email    Optional[string] `json:"email,omitzero"`
	Phone    Optional[string] `json:"phone,omitzero"`
	IsActive Optional[bool]   `json:"isActive,omitzero"`
	Password Optional[string] `json:"password,omitzero"`
}

type UserQuery struct {
	PageQuery
	Keyword  string `form:"keyword"`
	Username string `form:"username"`
	FullName string `form:"fullName"`
	Email    string `form:"email"`
	IsActive *bool  `form:"isActive"`
}

type CreateDepartmentParams struct {
	DepartmentName string  `json:"departmentName"`
	Description    *string `json:"description"`
}

type UpdateDepartmentParams struct {
	DepartmentName Optional[string] `json:"departmentName,omitzero"`
	Description    Optional[string] `json:"description,omitzero"`
}

type CreateTeamParams struct {
	TeamName    string  `json:"teamName"`
	Description *string `json:"description"`
}

type UpdateTeamParams struct {
	TeamName    Optional[string] `json:"teamName,omitzero"`
	Description Optional[string] `json:"description,omitzero"`
}

// NameQuery filters departments and teams by a name fragment.
type NameQuery struct {
	PageQuery
	Name string `form:"name"`
}

type CreateProjectParams struct {
	ProjectName   string         `json:"projectName"`
	Description   *string        `json:"description"`
	StartDateTime DateTime       `json:"startDateTime"`
	EndDateTime   *DateTime      `json:"endDateTime"`
	ProjectStatus *ProjectStatus `json:"projectStatus"`
	Version       *string        `json:"version"`
	Order         *float64       `json:"order"`
}

type UpdateProjectParams struct {
	ProjectName   Optional[string]        `json:"projectName,omitzero"`
	Description   Optional[string]        `json:"description,omitzero"`
	StartDateTime Optional[DateTime]      `json:"startDateTime,omitzero"`
	EndDateTime   Optional[DateTime]      `json:"endDateTime,omitzero"`
	ProjectStatus Optional[ProjectStatus] `json:"projectStatus,omitzero"`
	Version       Optional[string]        `json:"version,omitzero"`
	Order         Optional[float64]       `json:"order,omitzero"`
}

type ProjectQuery struct {
	PageQuery
	ProjectName   string `form:"projectName"`
	ProjectStatus *int   `form:"projectStatus"`
	StartDateTime string `form:"startDateTime"`
	EndDateTime   string `form:"endDateTime"`
	CreatorID     *ID    `form:"-"`
}

type CreateTaskParams struct {
	TaskName         string        `json:"taskName"`
	ParentID         *ID           `json:"parentId"`
	Order            *float64      `json:"order"`
	CustomAttributes attribute.Bag `json:"customAttributes"`
	StartDateTime    *DateTime     `json:"startDateTime"`
	EndDateTime      *DateTime     `json:"endDateTime"`
	TaskType         *TaskType     `json:"taskType"`
}

type UpdateTaskParams struct {
	TaskName         Optional[string]        `json:"taskName,omitzero"`
	ParentID         Optional[ID]            `json:"parentId,omitzero"`
	Order            Optional[float64]       `json:"order,omitzero"`
	CustomAttributes Optional[attribute.Bag] `json:"customAttributes,omitzero"`
	StartDateTime    Optional[DateTime]      `json:"startDateTime,omitzero"`
	EndDateTime      Optional[DateTime]      `json:"endDateTime,omitzero"`
	TaskType         Optional[TaskType]      `json:"taskType,omitzero"`
}

type TaskQuery struct {
	PageQuery
	TaskName string `form:"taskName"`
	ParentID string `form:"parentId"`
}

// ReorderTasksParams renumbers the children of ParentID (roots when nil) to 1..n.
type ReorderTasksParams struct {
	ParentID *ID `json:"parentId"`
}

type CreateAttributeConfigParams struct {
	AttributeName  string             `json:"attributeName"`
	AttributeLabel string             `json:"attributeLabel"`
	AttributeType  attribute.Type     `json:"attributeType"`
	IsRequired     bool               `json:"isRequired"`
	DefaultValue   *string            `json:"defaultValue"`
	Options        attribute.Options  `json:"options"`
	ValueColorMap  attribute.ColorMap `json:"valueColorMap"`
	Order          *float64           `json:"order"`
}

// Definition projects the request onto the codec's view, trimming names.
func (p CreateAttributeConfigParams) Definition() attribute.Definition {
	var def *string
	if p.DefaultValue != nil {
		if v := strings.TrimSpace(*p.DefaultValue); v != "" {
			def = &v
		}
	}
	return attribute.Definition{
		Name:     strings.TrimSpace(p.AttributeName),
		Label:    strings.TrimSpace(p.AttributeLabel),
		Type:     p.AttributeType,
		Required: p.IsRequired,
		Default:  def,
		Options:  p.Options,
		ColorMap: p.ValueColorMap,
		Order:    p.Order,
	}
}

// UpdateAttributeConfigParams may echo attributeName and attributeType, but
// only with their stored values.
type UpdateAttributeConfigParams struct {
	AttributeName  Optional[string]             `json:"attributeName,omitzero"`
	AttributeType  Optional[attribute.Type]     `json:"attributeType,omitzero"`
	AttributeLabel Optional[string]             `json:"attributeLabel,omitzero"`
	IsRequired     Optional[bool]               `json:"isRequired,omitzero"`
	DefaultValue   Optional[string]             `json:"defaultValue,omitzero"`
	Options        Optional[attribute.Options]  `json:"options,omitzero"`
	ValueColorMap  Optional[attribute.ColorMap] `json:"valueColorMap,omitzero"`
	Order          Optional[float64]            `json:"order,omitzero"`
}

type CreateHolidayParams struct {
	HolidayName string  `json:"holidayName"`
	Description *string `json:"description"`
	HolidayDate Date    `json:"holidayDate"`
	HolidayType int     `json:"holidayType"`
}

type UpdateHolidayParams struct {
	HolidayName Optional[string] `json:"holidayName,omitzero"`
	Description Optional[string] `json:"description,omitzero"`
	HolidayDate Optional[Date]   `json:"holidayDate,omitzero"`
	HolidayType Optional[int]    `json:"holidayType,omitzero"`
}

type BatchCreateHolidays struct {
	Holidays []CreateHolidayParams `json:"holidays"`
}

// BatchUpdateHolidays applies the same changes to every listed holiday.
type BatchUpdateHolidays struct {
	IDs         []ID             `json:"ids"`
	HolidayName Optional[string] `json:"holidayName,omitzero"`
	Description Optional[string] `json:"description,omitzero"`
	HolidayType Optional[int]    `json:"holidayType,omitzero"`
}

type HolidayQuery struct {
	PageQuery
	HolidayName string `form:"holidayName"`
	HolidayType *int   `form:"holidayType"`
	StartDate   string `form:"startDate"`
	EndDate     string `form:"endDate"`
}
