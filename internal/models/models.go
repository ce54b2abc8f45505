package models

import "demeter/internal/attribute"

// Audit carries the creator/updater bookkeeping shared by all entities.
type Audit struct {
	CreatorID      ID        `json:"creatorId"`
	UpdaterID      *ID       `json:"updaterId"`
	CreateDateTime DateTime  `json:"createDateTime"`
	UpdateDateTime *DateTime `json:"updateDateTime"`
}

// User is an account. The password hash never leaves the server.
type User struct {
	ID       ID      `json:"id"`
	Username string  `json:"username"`
	Password string  `json:"-"`
	FullName string  `json:"fullName"`
	Email    string  `json:"email"`
	Phone    *string `json:"phone"`
	IsActive bool    `json:"isActive"`
	Audit
}

// RefreshToken is a persisted refresh JWT.
type RefreshToken struct {
	ID        ID       `json:"id"`
	UserID    ID       `json:"userId"`
	Token     string   `json:"token"`
	ExpiresAt DateTime `json:"expiresAt"`
	CreatedAt DateTime `json:"createdAt"`
}

type Department struct {
	ID             ID      `json:"id"`
	DepartmentName string  `json:"departmentName"`
	Description    *string `json:"description"`
	Audit
}

type Team struct {
	ID          ID      `json:"id"`
	TeamName    string  `json:"teamName"`
	Description *string `json:"description"`
	Audit
}

// ProjectStatus tracks the lifecycle of a project.
type ProjectStatus int

const (
	ProjectPlanning   ProjectStatus = 1
	ProjectInProgress ProjectStatus = 2
	ProjectPaused     ProjectStatus = 3
	ProjectCompleted  ProjectStatus = 4
	ProjectCancelled  ProjectStatus = 5
)

// Valid reports whether s is one of the known statuses.
func (s ProjectStatus) Valid() bool {
	return s >= ProjectPlanning && s <= ProjectCancelled
}

type Project struct {
	ID            ID            `json:"id"`
	ProjectName   string        `json:"projectName"`
	Description   *string       `json:"description"`
	StartDateTime DateTime      `json:"startDateTime"`
	EndDateTime   *DateTime     `json:"endDateTime"`
	ProjectStatus ProjectStatus `json:"projectStatus"`
	Version       *string       `json:"version"`
	Order         *float64      `json:"order"`
	Audit
}

// TaskType partitions tasks on the schedule.
type TaskType int

const (
	TaskTypeUnknown    TaskType = 0
	TaskTypeDefault    TaskType = 1
	TaskTypeMilestone  TaskType = 2
	TaskTypeCheckpoint TaskType = 3
)

func (t TaskType) Valid() bool {
	return t >= TaskTypeUnknown && t <= TaskTypeCheckpoint
}

// Label is the display name of the task type.
func (t TaskType) Label() string {
	switch t {
	case TaskTypeDefault:
		return "Task"
	case TaskTypeMilestone:
		return "Milestone"
	case TaskTypeCheckpoint:
		return "Checkpoint"
	default:
		return "Unspecified"
	}
}

// ProjectTask is one node of a project's task tree.
type ProjectTask struct {
	ID               ID            `json:"id"`
	TaskName         string        `json:"taskName"`
	ParentID         *ID           `json:"parentId"`
	ProjectID        ID            `json:"projectId"`
	Order            *float64      `json:"order"`
	CustomAttributes attribute.Bag `json:"customAttributes"`
	StartDateTime    *DateTime     `json:"startDateTime"`
	EndDateTime      *DateTime     `json:"endDateTime"`
	TaskType         TaskType      `json:"taskType"`
	Audit
}

// AttributeConfig is one custom attribute of a project's task schema.
type AttributeConfig struct {
	ID             ID                 `json:"id"`
	ProjectID      ID                 `json:"projectId"`
	AttributeName  string             `json:"attributeName"`
	AttributeLabel string             `json:"attributeLabel"`
	AttributeType  attribute.Type     `json:"attributeType"`
	IsRequired     bool               `json:"isRequired"`
	DefaultValue   *string            `json:"defaultValue"`
	Options        attribute.Options  `json:"options"`
	ValueColorMap  attribute.ColorMap `json:"valueColorMap"`
	Order          *float64           `json:"order"`
	Audit
}

// Definition projects the config onto what the codec needs.
func (c AttributeConfig) Definition() attribute.Definition {
	return attribute.Definition{
		Name:     c.AttributeName,
		Label:    c.AttributeLabel,
		Type:     c.AttributeType,
		Required: c.IsRequired,
		Default:  c.DefaultValue,
		Options:  c.Options,
		ColorMap: c.ValueColorMap,
		Order:    c.Order,
	}
}

// Definitions converts a config list, keeping its order.
func Definitions(configs []AttributeConfig) []attribute.Definition {
	out := make([]attribute.Definition, 0, len(configs))
	for _, c := range configs {
		out = append(out, c.Definition())
	}
	return out
}

type Holiday struct {
	ID          ID      `json:"id"`
	HolidayName string  `json:"holidayName"`
	Description *string `json:"description"`
	HolidayDate Date    `json:"holidayDate"`
	HolidayType int     `json:"holidayType"`
	Audit
}
