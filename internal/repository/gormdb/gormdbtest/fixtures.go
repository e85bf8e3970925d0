// Package gormdbtest seeds throwaway sqlite stores for service tests.
package gormdbtest

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/mamadbah2/dairyfarm/internal/domain/models"
	"github.com/mamadbah2/dairyfarm/internal/repository/gormdb"
)

func NewStore(t *testing.T) *gormdb.Store {
	t.Helper()
	s, err := gormdb.OpenSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func Farm(t *testing.T, s *gormdb.Store, name string) *models.Farm {
	t.Helper()
	f := &models.Farm{Name: name, Location: "Nakuru", IsActive: true, EstablishedDate: models.DateOf(2015, 3, 1)}
	require.NoError(t, gormdb.Create(s.Conn(context.Background()), f))
	return f
}

func Cow(t *testing.T, s *gormdb.Store, farm *models.Farm, tag, name string) *models.Cow {
	t.Helper()
	c := &models.Cow{
		FarmID:          farm.ID,
		Name:            name,
		TagNumber:       tag,
		Breed:           models.BreedFriesian,
		DateAcquired:    models.DateOf(2020, 1, 15),
		AcquisitionCost: decimal.NewFromInt(800),
		CurrentStage:    models.StageLactating,
		IsActive:        true,
	}
	require.NoError(t, gormdb.Create(s.Conn(context.Background()), c))
	return c
}

func Batch(t *testing.T, s *gormdb.Store, farm *models.Farm, name string, count int) *models.ChickenBatch {
	t.Helper()
	b := &models.ChickenBatch{
		FarmID:       farm.ID,
		BatchName:    name,
		BatchType:    models.BatchLayers,
		InitialCount: count,
		CurrentCount: count,
		DateAcquired: models.DateOf(2023, 6, 1),
		IsActive:     true,
	}
	require.NoError(t, gormdb.Create(s.Conn(context.Background()), b))
	return b
}

func Milk(t *testing.T, s *gormdb.Store, cow *models.Cow, day models.Date, session models.Session, liters string) *models.MilkProduction {
	t.Helper()
	m := &models.MilkProduction{
		CowID:          cow.ID,
		Date:           day,
		Session:        session,
		QuantityLiters: decimal.RequireFromString(liters),
		QualityGrade:   models.GradeA,
	}
	require.NoError(t, gormdb.Create(s.Conn(context.Background()), m))
	return m
}

func Transaction(t *testing.T, s *gormdb.Store, farm *models.Farm, typ models.TransactionType, cat models.TransactionCategory, day models.Date, amount string) *models.Transaction {
	t.Helper()
	tr := &models.Transaction{
		FarmID:          farm.ID,
		TransactionType: typ,
		Category:        cat,
		Date:            day,
		Amount:          decimal.RequireFromString(amount),
		Description:     string(cat),
		PaymentMethod:   models.PaymentCash,
	}
	require.NoError(t, gormdb.Create(s.Conn(context.Background()), tr))
	return tr
}
