package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDashboard(t *testing.T) {
	store := newMemStore()
	store.articles = []Article{{ID: "a1", Code: "A1"}, {ID: "a2", Code: "A2"}}
	sess := Session{OperatorID: "op1"}
	ctx := context.Background()

	var ids []string
	for range 7 {
		saved, err := SaveQuote(ctx, store, sess, saveTestQuote())
		require.NoError(t, err)
		ids = append(ids, saved.ID)
	}
	require.NoError(t, store.TrashQuote(ctx, sess, ids[0]))

	other, err := SaveQuote(ctx, store, Session{OperatorID: "op2"}, saveTestQuote())
	require.NoError(t, err)

	dash, err := LoadDashboard(ctx, store, sess)
	require.NoError(t, err)

	assert.Equal(t, 6, dash.QuoteCount)
	assert.Equal(t, 2, dash.ArticleCount)
	assert.Equal(t, 549.6, dash.TotalAmount)
	require.Len(t, dash.Recent, DashboardRecent)
	assert.Equal(t, ids[6], dash.Recent[0].ID, "newest first")
	for _, q := range dash.Recent {
		assert.NotEqual(t, ids[0], q.ID)
		assert.NotEqual(t, other.ID, q.ID)
	}
}

func TestLoadDashboard_Empty(t *testing.T) {
	dash, err := LoadDashboard(context.Background(), newMemStore(), Session{OperatorID: "op1"})
	require.NoError(t, err)

	assert.Zero(t, dash.QuoteCount)
	assert.Zero(t, dash.TotalAmount)
	assert.NotNil(t, dash.Recent)
	assert.Empty(t, dash.Recent)
}

func TestLoadDashboard_FailureReturnsNothing(t *testing.T) {
	store := newMemStore()
	store.failOn["ListArticles"] = errors.New("db down")

	dash, err := LoadDashboard(context.Background(), store, Session{OperatorID: "op1"})
	assert.Error(t, err)
	assert.Nil(t, dash)
}
