package mongo

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/xraph/token/id"
	"github.com/xraph/token/notification"
	"github.com/xraph/token/types"
)

func TestListFilter(t *testing.T) {
	assert.Empty(t, listFilter(notification.ListOpts{}))

	ledgerID := id.NewLedgerID()
	f := listFilter(notification.ListOpts{
		LedgerID:  ledgerID,
		Kind:      notification.KindTransfer,
		Principal: "0xA",
		AfterSeq:  7,
	})

	assert.Equal(t, ledgerID.String(), f["ledger_id"])
	assert.Equal(t, "Transfer", f["kind"])
	assert.Equal(t, bson.M{"$gt": int64(7)}, f["seq"])

	or, ok := f["$or"].(bson.A)
	require.True(t, ok)
	assert.Len(t, or, 3)
}

func TestMigrationIndexes(t *testing.T) {
	idx := migrationIndexes()
	require.Contains(t, idx, colNotifications)
	assert.NotEmpty(t, idx[colNotifications])
	assert.NotNil(t, idx[colNotifications][0].Options)
}

func TestNotificationModelRoundTrip(t *testing.T) {
	n := notification.NewTransfer(types.ZeroPrincipal, "0xA", 25000, time.Now())
	n.LedgerID = id.NewLedgerID()
	n.Seq = 1

	back, err := fromNotificationModel(toNotificationModel(&n))
	require.NoError(t, err)
	assert.True(t, back.IsMint())
	assert.Equal(t, types.Amount(25000), back.Value)
	assert.Equal(t, uint64(1), back.Seq)
}
