package client

import (
	"net/url"
	"strconv"

	"demeter/internal/models"
)

// values accumulates non-empty query parameters.
type values url.Values

func (v values) str(key, val string) values {
	if val != "" {
		url.Values(v).Set(key, val)
	}
	return v
}

func (v values) intPtr(key string, val *int) values {
	if val != nil {
		url.Values(v).Set(key, strconv.Itoa(*val))
	}
	return v
}

func (v values) boolPtr(key string, val *bool) values {
	if val != nil {
		url.Values(v).Set(key, strconv.FormatBool(*val))
	}
	return v
}

func (v values) page(q models.PageQuery) values {
	if q.Page > 0 {
		url.Values(v).Set("page", strconv.Itoa(q.Page))
	}
	if q.PageSize > 0 {
		url.Values(v).Set("pageSize", strconv.Itoa(q.PageSize))
	}
	return v
}

func projectQuery(q models.ProjectQuery) url.Values {
	return url.Values(values{}.page(q.PageQuery).
		str("projectName", q.ProjectName).
		intPtr("projectStatus", q.ProjectStatus).
		str("startDateTime", q.StartDateTime).
		str("endDateTime", q.EndDateTime))
}

func taskQuery(q models.TaskQuery) url.Values {
	return url.Values(values{}.page(q.PageQuery).
		str("taskName", q.TaskName).
		str("parentId", q.ParentID))
}

func userQuery(q models.UserQuery) url.Values {
	return url.Values(values{}.page(q.PageQuery).
		str("keyword", q.Keyword).
		str("username", q.Username).
		str("fullName", q.FullName).
		str("email", q.Email).
		boolPtr("isActive", q.IsActive))
}

func nameQuery(q models.NameQuery) url.Values {
	return url.Values(values{}.page(q.PageQuery).str("name", q.Name))
}

func holidayQuery(q models.HolidayQuery) url.Values {
	return url.Values(values{}.page(q.PageQuery).
		str("holidayName", q.HolidayName).
		intPtr("holidayType", q.HolidayType).
		str("startDate", q.StartDate).
		str("endDate", q.EndDate))
}
