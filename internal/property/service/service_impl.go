package service

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/propera/internal/property/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB   *gorm.DB
	Log  *zap.Logger
	Repo domain.Repository
}

type Service struct {
	db   *gorm.DB
	log  *zap.Logger
	repo domain.Repository
}

func New(p Params) domain.LookupService {
	return &Service{
		db:   p.DB,
		log:  p.Log.Named("property.service"),
		repo: p.Repo,
	}
}

func (s *Service) GetProperty(ctx context.Context, id snowflake.ID) (*domain.Property, error) {
	property, err := s.repo.FindProperty(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if property == nil {
		return nil, domain.ErrPropertyNotFound
	}
	return property, nil
}

func (s *Service) GetResident(ctx context.Context, id snowflake.ID) (*domain.Resident, error) {
	resident, err := s.repo.FindResident(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if resident == nil {
		return nil, domain.ErrResidentNotFound
	}
	return resident, nil
}

func (s *Service) GetService(ctx context.Context, id snowflake.ID) (*domain.Service, error) {
	svc, err := s.repo.FindService(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if svc == nil {
		return nil, domain.ErrServiceNotFound
	}
	return svc, nil
}
