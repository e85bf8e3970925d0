package admin

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mamadbah2/dairyfarm/internal/blob"
	"github.com/mamadbah2/dairyfarm/internal/domain/models"
	"github.com/mamadbah2/dairyfarm/internal/repository/gormdb"
	"github.com/mamadbah2/dairyfarm/internal/repository/gormdb/gormdbtest"
	"github.com/mamadbah2/dairyfarm/internal/service/analytics"
	"github.com/mamadbah2/dairyfarm/internal/service/breeding"
	"github.com/mamadbah2/dairyfarm/internal/service/farms"
	"github.com/mamadbah2/dairyfarm/internal/service/feeds"
	"github.com/mamadbah2/dairyfarm/internal/service/financial"
	"github.com/mamadbah2/dairyfarm/internal/service/health"
	"github.com/mamadbah2/dairyfarm/internal/service/livestock"
	"github.com/mamadbah2/dairyfarm/internal/service/notifications"
	"github.com/mamadbah2/dairyfarm/internal/service/production"
	"github.com/mamadbah2/dairyfarm/internal/service/reports"
	"github.com/mamadbah2/dairyfarm/internal/service/summary"
)

func newRegistry(t *testing.T) (*Registry, *gormdb.Store, Services) {
	t.Helper()
	store := gormdbtest.NewStore(t)
	notes := notifications.NewService(store, nil, nil)
	svc := Services{
		Farms:         farms.NewService(store, nil),
		Livestock:     livestock.NewService(store, nil),
		Production:    production.NewService(store, nil),
		Feeds:         feeds.NewService(store, nil),
		Health:        health.NewService(store, nil),
		Breeding:      breeding.NewService(store, nil),
		Financial:     financial.NewService(store, nil),
		Summary:       summary.NewService(store, nil),
		Reports:       reports.NewService(store, analytics.NewService(store, nil), blob.NewMemory(), notes, nil),
		Notifications: notes,
	}
	return NewDefault(store, svc), store, svc
}

func TestResourcesAreRegistered(t *testing.T) {
	reg, _, _ := newRegistry(t)

	names := []string{}
	for _, r := range reg.Resources() {
		names = append(names, r.Name)
		assert.Contains(t, r.ReadOnly, "id", r.Name)
	}
	assert.Contains(t, names, "cows")
	assert.Contains(t, names, "daily-milk-summaries")
	assert.IsIncreasing(t, names)

	purchases, err := reg.Resource("feed-purchases")
	require.NoError(t, err)
	assert.Equal(t, []string{"mark_as_finished", "soft_delete"}, purchases.Actions)

	daily, err := reg.Resource("daily-milk-summaries")
	require.NoError(t, err)
	assert.Contains(t, daily.Actions, "recalculate_summaries")

	reductions, err := reg.Resource("chicken-reductions")
	require.NoError(t, err)
	assert.Empty(t, reductions.Actions)

	_, err = reg.Resource("barns")
	assert.ErrorIs(t, err, ErrUnknownResource)
}

func TestBrowseProjectsColumns(t *testing.T) {
	reg, store, _ := newRegistry(t)
	farm := gormdbtest.Farm(t, store, "Green Acres")
	gormdbtest.Cow(t, store, farm, "C-001", "Daisy")
	gormdbtest.Cow(t, store, farm, "C-002", "Bella")

	page, err := reg.Browse(context.Background(), "cows", models.ListQuery{Ordering: "-tag_number", Limit: 1})
	require.NoError(t, err)
	assert.EqualValues(t, 2, page.Count)
	require.Len(t, page.Rows, 1)
	assert.Equal(t, "C-002", page.Rows[0]["tag_number"])
	assert.Equal(t, "Bella", page.Rows[0]["name"])
	assert.NotContains(t, page.Rows[0], "notes")
	assert.NotEmpty(t, page.Rows[0]["id"])

	_, err = reg.Browse(context.Background(), "cows", models.ListQuery{Filters: map[string]string{"colour": "black"}})
	var verr *models.ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestRunActions(t *testing.T) {
	reg, store, svc := newRegistry(t)
	ctx := context.Background()
	farm := gormdbtest.Farm(t, store, "Green Acres")
	cow := gormdbtest.Cow(t, store, farm, "C-001", "Daisy")

	n, err := svc.Notifications.Create(ctx, models.NotificationInput{RecipientID: "manager", Title: "Hi", Message: "there"})
	require.NoError(t, err)

	res, err := reg.Run(ctx, "notifications", "mark_as_read", []uuid.UUID{n.ID, uuid.New()})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Succeeded)
	assert.Len(t, res.Failed, 1)
	got, err := svc.Notifications.Get(ctx, n.ID)
	require.NoError(t, err)
	assert.True(t, got.IsRead)

	res, err = reg.Run(ctx, "cows", "soft_delete", []uuid.UUID{cow.ID})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Succeeded)
	_, err = svc.Livestock.GetCow(ctx, cow.ID)
	assert.ErrorIs(t, err, models.ErrNotFound)

	_, err = reg.Run(ctx, "cows", "mark_as_read", []uuid.UUID{cow.ID})
	assert.ErrorIs(t, err, ErrUnknownAction)
	_, err = reg.Run(ctx, "cows", "soft_delete", nil)
	var verr *models.ValidationError
	assert.ErrorAs(t, err, &verr)
}
