package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"demeter/internal/attribute"
	"demeter/internal/models"
)

const attributeConfigColumns = `id, project_id, attribute_name, attribute_label, attribute_type, is_required, default_value, options, value_color_map, "order", ` + auditColumns

func scanAttributeConfig(row rowScanner) (models.AttributeConfig, error) {
	var (
		c        models.AttributeConfig
		def      sql.NullString
		options  sql.NullString
		colorMap sql.NullString
		order    sql.NullFloat64
		a        auditScan
	)
	dest := append([]any{&c.ID, &c.ProjectID, &c.AttributeName, &c.AttributeLabel, &c.AttributeType, &c.IsRequired, &def, &options, &colorMap, &order}, a.dest()...)
	if err := row.Scan(dest...); err != nil {
		return models.AttributeConfig{}, err
	}
	if options.Valid {
		if err := json.Unmarshal([]byte(options.String), &c.Options); err != nil {
			return models.AttributeConfig{}, fmt.Errorf("decode options: %w", err)
		}
	}
	if colorMap.Valid {
		if err := json.Unmarshal([]byte(colorMap.String), &c.ValueColorMap); err != nil {
			return models.AttributeConfig{}, fmt.Errorf("decode value color map: %w", err)
		}
	}
	audit, err := a.audit()
	if err != nil {
		return models.AttributeConfig{}, err
	}
	c.DefaultValue = stringPtr(def)
	c.Order = floatPtr(order)
	c.Audit = audit
	return c, nil
}

// jsonColumn encodes v for a nullable JSON column; empty values become NULL.
func jsonColumn(v any) (sql.NullString, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return sql.NullString{}, err
	}
	if string(data) == "null" {
		return sql.NullString{}, nil
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}

func validationError(err error) error {
	return fmt.Errorf("%w: %w", ErrInvalid, err)
}

// ListAttributeConfigs returns a project's schema ordered by order, then age.
func (s *Store) ListAttributeConfigs(ctx context.Context, projectID models.ID) ([]models.AttributeConfig, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+attributeConfigColumns+` FROM project_task_attribute_configs
        WHERE project_id = ? ORDER BY "order" ASC NULLS LAST, create_date_time ASC, id ASC`, projectID)
	if err != nil {
		return nil, fmt.Errorf("list attribute configs: %w", err)
	}
	defer rows.Close()

	configs := []models.AttributeConfig{}
	for rows.Next() {
		c, err := scanAttributeConfig(rows)
		if err != nil {
			return nil, fmt.Errorf("scan attribute config: %w", err)
		}
		configs = append(configs, c)
	}
	return configs, rows.Err()
}

func (s *Store) GetAttributeConfig(ctx context.Context, projectID, id models.ID) (models.AttributeConfig, error) {
	c, err := scanAttributeConfig(s.db.QueryRowContext(ctx, `SELECT `+attributeConfigColumns+` FROM project_task_attribute_configs
        WHERE project_id = ? AND id = ?`, projectID, id))
	if err != nil {
		return models.AttributeConfig{}, classify(err, "get attribute config")
	}
	return c, nil
}

func (s *Store) attributeNames(ctx context.Context, projectID models.ID) (map[string]bool, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT attribute_name FROM project_task_attribute_configs WHERE project_id = ?`, projectID)
	if err != nil {
		return nil, fmt.Errorf("list attribute names: %w", err)
	}
	defer rows.Close()

	names := map[string]bool{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names[name] = true
	}
	return names, rows.Err()
}

// CreateAttributeConfig validates and stores a new schema entry. The
// attribute name is generated when p leaves it empty.
func (s *Store) CreateAttributeConfig(ctx context.Context, projectID models.ID, p models.CreateAttributeConfigParams, creator models.ID) (models.AttributeConfig, error) {
	if _, err := s.GetProject(ctx, projectID); err != nil {
		return models.AttributeConfig{}, err
	}

	def := p.Definition()
	if err := attribute.ValidateConfig(def); err != nil {
		return models.AttributeConfig{}, validationError(err)
	}

	names, err := s.attributeNames(ctx, projectID)
	if err != nil {
		return models.AttributeConfig{}, err
	}
	if def.Name == "" {
		def.Name, err = attribute.GenerateName(func(n string) bool { return names[n] })
		if err != nil {
			return models.AttributeConfig{}, err
		}
	} else {
		if err := attribute.ValidateName(def.Name); err != nil {
			return models.AttributeConfig{}, validationError(err)
		}
		if names[def.Name] {
			return models.AttributeConfig{}, fmt.Errorf("attribute %q: %w", def.Name, ErrConflict)
		}
	}

	options, err := jsonColumn(def.Options)
	if err != nil {
		return models.AttributeConfig{}, err
	}
	colorMap, err := jsonColumn(def.ColorMap)
	if err != nil {
		return models.AttributeConfig{}, err
	}

	id := s.ids.Next()
	_, err = s.db.ExecContext(ctx, `INSERT INTO project_task_attribute_configs(id, project_id, attribute_name, attribute_label, attribute_type, is_required,
        default_value, options, value_color_map, "order", creator_id, create_date_time) VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, projectID, def.Name, def.Label, def.Type, def.Required, nullString(def.Default), options, colorMap, def.Order, creator, s.timestamp())
	if err != nil {
		return models.AttributeConfig{}, classify(err, "insert attribute config")
	}
	return s.GetAttributeConfig(ctx, projectID, id)
}

// UpdateAttributeConfig merges p into the stored entry and revalidates the
// result. Name and type may only be echoed back unchanged.
func (s *Store) UpdateAttributeConfig(ctx context.Context, projectID, id models.ID, p models.UpdateAttributeConfigParams, updater models.ID) (models.AttributeConfig, error) {
	current, err := s.GetAttributeConfig(ctx, projectID, id)
	if err != nil {
		return models.AttributeConfig{}, err
	}
	if p.AttributeName.Set && (!p.AttributeName.Valid || p.AttributeName.Value != current.AttributeName) {
		return models.AttributeConfig{}, validationError(&attribute.ValidationError{Field: "attributeName", Err: attribute.ErrImmutable})
	}
	if p.AttributeType.Set && (!p.AttributeType.Valid || p.AttributeType.Value != current.AttributeType) {
		return models.AttributeConfig{}, validationError(&attribute.ValidationError{Field: "attributeType", Err: attribute.ErrImmutable})
	}

	def := current.Definition()
	c := &changes{}
	if p.AttributeLabel.Set && p.AttributeLabel.Valid {
		def.Label = strings.TrimSpace(p.AttributeLabel.Value)
		c.set("attribute_label", def.Label)
	}
	if p.IsRequired.Set && p.IsRequired.Valid {
		def.Required = p.IsRequired.Value
		c.set("is_required", def.Required)
	}
	if p.DefaultValue.Set {
		def.Default = trimmedPtr(p.DefaultValue.Ptr())
		c.set("default_value", nullString(def.Default))
	}
	if p.Options.Set {
		def.Options = p.Options.Value
		options, err := jsonColumn(def.Options)
		if err != nil {
			return models.AttributeConfig{}, err
		}
		c.set("options", options)
	}
	if p.ValueColorMap.Set {
		def.ColorMap = p.ValueColorMap.Value
		colorMap, err := jsonColumn(def.ColorMap)
		if err != nil {
			return models.AttributeConfig{}, err
		}
		c.set("value_color_map", colorMap)
	}
	optional(c, `"order"`, p.Order)

	if c.empty() {
		return current, nil
	}
	if err := attribute.ValidateConfig(def); err != nil {
		return models.AttributeConfig{}, validationError(err)
	}
	if err := s.execUpdate(ctx, "project_task_attribute_configs", id, updater, c, "update attribute config"); err != nil {
		return models.AttributeConfig{}, err
	}
	return s.GetAttributeConfig(ctx, projectID, id)
}

func (s *Store) DeleteAttributeConfig(ctx context.Context, projectID, id models.ID) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM project_task_attribute_configs WHERE project_id = ? AND id = ?`, projectID, id)
	if err != nil {
		return classify(err, "delete attribute config")
	}
	return expectAffected(res, "delete attribute config")
}

func (s *Store) BatchDeleteAttributeConfigs(ctx context.Context, projectID models.ID, ids []models.ID) (int64, error) {
	return s.batchDelete(ctx, "project_task_attribute_configs", ids, " AND project_id = ?", projectID)
}

func trimmedPtr(p *string) *string {
	if p == nil {
		return nil
	}
	v := strings.TrimSpace(*p)
	if v == "" {
		return nil
	}
	return &v
}

// IsValidation reports whether err came from input validation.
func IsValidation(err error) bool {
	var verr *attribute.ValidationError
	return errors.Is(err, ErrInvalid) || errors.As(err, &verr)
}
