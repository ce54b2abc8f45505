package client

import (
	"context"

	"demeter/internal/models"
)

func attributeConfigsKey(projectID models.ID) string {
	return "attribute-configs:" + projectID.String()
}

func attributeConfigsPath(projectID models.ID) string {
	return projectPath(projectID) + "/task-attribute-configs"
}

// AttributeConfigs returns the project's task schema, read through the
// cache. Every mutation below invalidates it.
func (c *Client) AttributeConfigs(ctx context.Context, projectID models.ID) ([]models.AttributeConfig, error) {
	return cached(ctx, c, attributeConfigsKey(projectID), func(ctx context.Context) ([]models.AttributeConfig, error) {
		var configs []models.AttributeConfig
		err := c.get(ctx, attributeConfigsPath(projectID), nil, &configs)
		return configs, err
	})
}

func (c *Client) GetAttributeConfig(ctx context.Context, projectID, id models.ID) (models.AttributeConfig, error) {
	var cfg models.AttributeConfig
	err := c.get(ctx, attributeConfigsPath(projectID)+"/"+id.String(), nil, &cfg)
	return cfg, err
}

func (c *Client) CreateAttributeConfig(ctx context.Context, projectID models.ID, p models.CreateAttributeConfigParams) (models.AttributeConfig, error) {
	defer c.invalidate(attributeConfigsKey(projectID))
	var cfg models.AttributeConfig
	err := c.post(ctx, attributeConfigsPath(projectID), p, &cfg)
	return cfg, err
}

func (c *Client) UpdateAttributeConfig(ctx context.Context, projectID, id models.ID, p models.UpdateAttributeConfigParams) (models.AttributeConfig, error) {
	defer c.invalidate(attributeConfigsKey(projectID))
	var cfg models.AttributeConfig
	err := c.put(ctx, attributeConfigsPath(projectID)+"/"+id.String(), p, &cfg)
	return cfg, err
}

func (c *Client) DeleteAttributeConfig(ctx context.Context, projectID, id models.ID) error {
	defer c.invalidate(attributeConfigsKey(projectID))
	return c.delete(ctx, attributeConfigsPath(projectID)+"/"+id.String())
}

func (c *Client) BatchDeleteAttributeConfigs(ctx context.Context, projectID models.ID, ids []models.ID) (int64, error) {
	defer c.invalidate(attributeConfigsKey(projectID))
	return c.batchDelete(ctx, attributeConfigsPath(projectID)+"/batch-delete", ids)
}
