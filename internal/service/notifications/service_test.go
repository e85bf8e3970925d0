package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mamadbah2/dairyfarm/internal/domain/models"
	"github.com/mamadbah2/dairyfarm/internal/repository/gormdb/gormdbtest"
)

type fakeDeliverer struct {
	got []models.Notification
	err error
}

func (f *fakeDeliverer) Deliver(_ context.Context, n models.Notification) error {
	f.got = append(f.got, n)
	return f.err
}

func TestCreatePublishesToSubscribers(t *testing.T) {
	svc := NewService(gormdbtest.NewStore(t), nil, nil)
	ctx := context.Background()

	stream, cancel, err := svc.Subscribe(ctx, "manager")
	require.NoError(t, err)
	defer cancel()
	other, cancelOther, err := svc.Subscribe(ctx, "vet")
	require.NoError(t, err)
	defer cancelOther()

	n, err := svc.Create(ctx, models.NotificationInput{RecipientID: "manager", Title: "Hello", Message: "World"})
	require.NoError(t, err)
	assert.Equal(t, models.NotifySystem, n.NotificationType)
	assert.Equal(t, models.PriorityMedium, n.Priority)

	select {
	case payload := <-stream:
		var got models.Notification
		require.NoError(t, json.Unmarshal(payload, &got))
		assert.Equal(t, n.ID, got.ID)
		assert.Equal(t, "Hello", got.Title)
	case <-time.After(time.Second):
		t.Fatal("no notification received")
	}
	select {
	case <-other:
		t.Fatal("another recipient received the notification")
	default:
	}
}

func TestEscalatedNotificationsAreDelivered(t *testing.T) {
	svc := NewService(gormdbtest.NewStore(t), nil, nil)
	d := &fakeDeliverer{err: errors.New("whatsapp down")}
	svc.SetDeliverer(d)
	ctx := context.Background()

	_, err := svc.Create(ctx, models.NotificationInput{RecipientID: "manager", Title: "t", Message: "m", Priority: models.PriorityLow})
	require.NoError(t, err)
	_, err = svc.Create(ctx, models.NotificationInput{RecipientID: "manager", Title: "t", Message: "m", Priority: models.PriorityUrgent})
	require.NoError(t, err, "a failed delivery does not fail the notification")

	require.Len(t, d.got, 1)
	assert.Equal(t, models.PriorityUrgent, d.got[0].Priority)
}

func TestMarkReadIsIdempotent(t *testing.T) {
	svc := NewService(gormdbtest.NewStore(t), nil, nil)
	first := time.Date(2024, 3, 15, 9, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return first }
	ctx := context.Background()

	n, err := svc.Create(ctx, models.NotificationInput{RecipientID: "manager", Title: "t", Message: "m"})
	require.NoError(t, err)

	read, err := svc.MarkRead(ctx, n.ID)
	require.NoError(t, err)
	require.NotNil(t, read.ReadAt)
	assert.True(t, read.IsRead)

	svc.now = func() time.Time { return first.Add(time.Hour) }
	again, err := svc.MarkRead(ctx, n.ID)
	require.NoError(t, err)
	require.NotNil(t, again.ReadAt)
	assert.True(t, first.Equal(*again.ReadAt))
}

func TestListForRecipient(t *testing.T) {
	svc := NewService(gormdbtest.NewStore(t), nil, nil)
	ctx := context.Background()
	for _, r := range []string{"manager", "manager", "vet"} {
		_, err := svc.Create(ctx, models.NotificationInput{RecipientID: r, Title: "t", Message: "m"})
		require.NoError(t, err)
	}
	page, err := svc.ListForRecipient(ctx, "manager", false, models.ListQuery{})
	require.NoError(t, err)
	require.Equal(t, int64(2), page.Count)

	_, err = svc.MarkRead(ctx, page.Items[0].ID)
	require.NoError(t, err)
	unread, err := svc.ListForRecipient(ctx, "manager", true, models.ListQuery{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), unread.Count)

	_, err = svc.ListForRecipient(ctx, "", false, models.ListQuery{})
	var verr *models.ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestMemoryBrokerCancel(t *testing.T) {
	b := NewMemoryBroker()
	ctx := context.Background()
	ch, cancel, err := b.Subscribe(ctx, "manager")
	require.NoError(t, err)
	cancel()
	cancel()

	_, open := <-ch
	assert.False(t, open)
	require.NoError(t, b.Publish(ctx, "manager", []byte("x")))
}
