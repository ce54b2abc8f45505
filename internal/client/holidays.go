package client

import (
	"context"

	"demeter/internal/models"
)

func holidayPath(id models.ID) string {
	return "/holidays/" + id.String()
}

func (c *Client) ListHolidays(ctx context.Context, q models.HolidayQuery) (models.Page[models.Holiday], error) {
	var page models.Page[models.Holiday]
	err := c.get(ctx, "/holidays", holidayQuery(q), &page)
	return page, err
}

func (c *Client) AllHolidays(ctx context.Context, q models.HolidayQuery) ([]models.Holiday, error) {
	var holidays []models.Holiday
	err := c.get(ctx, "/holidays/all", holidayQuery(q), &holidays)
	return holidays, err
}

func (c *Client) GetHoliday(ctx context.Context, id models.ID) (models.Holiday, error) {
	var h models.Holiday
	err := c.get(ctx, holidayPath(id), nil, &h)
	return h, err
}

func (c *Client) CreateHoliday(ctx context.Context, p models.CreateHolidayParams) (models.Holiday, error) {
	var h models.Holiday
	err := c.post(ctx, "/holidays", p, &h)
	return h, err
}

// BatchCreateHolidays inserts all holidays or none.
func (c *Client) BatchCreateHolidays(ctx context.Context, items []models.CreateHolidayParams) ([]models.Holiday, error) {
	var holidays []models.Holiday
	err := c.post(ctx, "/holidays/batch-create", models.BatchCreateHolidays{Holidays: items}, &holidays)
	return holidays, err
}

func (c *Client) BatchUpdateHolidays(ctx context.Context, p models.BatchUpdateHolidays) (int64, error) {
	var out models.BatchResult
	err := c.post(ctx, "/holidays/batch-update", p, &out)
	return out.Count, err
}

func (c *Client) UpdateHoliday(ctx context.Context, id models.ID, p models.UpdateHolidayParams) (models.Holiday, error) {
	var h models.Holiday
	err := c.put(ctx, holidayPath(id), p, &h)
	return h, err
}

func (c *Client) DeleteHoliday(ctx context.Context, id models.ID) error {
	return c.delete(ctx, holidayPath(id))
}

func (c *Client) BatchDeleteHolidays(ctx context.Context, ids []models.ID) (int64, error) {
	return c.batchDelete(ctx, "/holidays/batch-delete", ids)
}
