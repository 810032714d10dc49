// Package catalog is the management surface over the table read model. The
// engine itself only reads tables; mutations come from the management UI.
package catalog

import (
	"context"

	"github.com/google/uuid"

	"ms-reservations/internal/errs"
	"ms-reservations/internal/logger"
	"ms-reservations/internal/models"
	"ms-reservations/internal/store"
)

type Service struct {
	Store  *store.DB
	Logger *logger.Logger
}

func NewService(st *store.DB, log *logger.Logger) *Service {
	return &Service{Store: st, Logger: log}
}

func (s *Service) validate(table *models.Table) error {
	if table.Number <= 0 {
		return errs.Validation("table number must be positive")
	}
	if table.MinCapacity <= 0 {
		return errs.Validation("min capacity must be positive")
	}
	if table.MaxCapacity < table.MinCapacity {
		return errs.Validation("max capacity must be at least min capacity")
	}
	return nil
}

func (s *Service) CreateTable(ctx context.Context, table *models.Table) error {
	if table.ID == "" {
		table.ID = uuid.NewString()
	}
	if err := s.validate(table); err != nil {
		return err
	}
	if err := s.Store.CreateTable(ctx, table); err != nil {
		return err
	}
	s.Logger.LogDatabase("INSERT", "tables", table.ID)
	return nil
}

func (s *Service) GetTable(ctx context.Context, id string) (*models.Table, error) {
	return s.Store.GetTableByID(ctx, id)
}

func (s *Service) UpdateTable(ctx context.Context, table *models.Table) error {
	if err := s.validate(table); err != nil {
		return err
	}
	if _, err := s.Store.GetTableByID(ctx, table.ID); err != nil {
		return err
	}
	if err := s.Store.UpdateTable(ctx, table); err != nil {
		return err
	}
	s.Logger.LogDatabase("UPDATE", "tables", table.ID)
	return nil
}

func (s *Service) DeleteTable(ctx context.Context, id string) error {
	if _, err := s.Store.GetTableByID(ctx, id); err != nil {
		return err
	}
	if err := s.Store.DeleteTable(ctx, id); err != nil {
		return err
	}
	s.Logger.LogDatabase("DELETE", "tables", id)
	return nil
}

func (s *Service) ListTables(ctx context.Context) ([]models.Table, error) {
	return s.Store.ListTables(ctx)
}

func (s *Service) ListActiveTables(ctx context.Context) ([]models.Table, error) {
	return s.Store.ListActiveTables(ctx)
}
