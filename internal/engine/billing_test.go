package engine_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"labdesk/internal/engine"
)

func draftQuotation(t *testing.T, env testEnv, items ...engine.QuotationItemOptions) string {
	t.Helper()
	if len(items) == 0 {
		items = []engine.QuotationItemOptions{{Description: "Compression test", Quantity: 2, UnitPrice: 50}}
	}
	q, err := env.Engine.CreateQuotation(env.Ctx, engine.QuotationCreateOptions{
		ProjectID: "road", ClientID: "acme", Items: items, ActorID: "tester",
	})
	require.NoError(t, err)
	return q.ID
}

func TestQuotationNumbering(t *testing.T) {
	env := newRFIEnv(t)
	first, err := env.Engine.Repo.GetQuotation(env.Ctx, draftQuotation(t, env))
	require.NoError(t, err)
	second, err := env.Engine.Repo.GetQuotation(env.Ctx, draftQuotation(t, env))
	require.NoError(t, err)
	assert.Equal(t, "QT-0001", first.Number)
	assert.Equal(t, "QT-0002", second.Number)
}

func TestQuotationTotalsWithTax(t *testing.T) {
	env := newRFIEnv(t)
	env.Engine.Config.Billing.TaxPercent = 10
	q, err := env.Engine.CreateQuotation(env.Ctx, engine.QuotationCreateOptions{
		ProjectID: "road", ClientID: "acme",
		Items: []engine.QuotationItemOptions{
			{Description: "Core drilling", Quantity: 3, UnitPrice: 33.33},
			{Description: "Report", UnitPrice: 120},
		},
		ActorID: "tester",
	})
	require.NoError(t, err)
	assert.Equal(t, 219.99, q.Subtotal)
	assert.Equal(t, 22.0, q.Tax)
	assert.Equal(t, 241.99, q.Total)
	// omitted quantity defaults to 1
	assert.Equal(t, 120.0, q.Items[1].Amount)
}

func TestQuotationItemValidation(t *testing.T) {
	env := newRFIEnv(t)
	_, err := env.Engine.CreateQuotation(env.Ctx, engine.QuotationCreateOptions{
		ProjectID: "road", ClientID: "acme",
		Items:   []engine.QuotationItemOptions{{Description: "Bad", Quantity: -1, UnitPrice: 10}},
		ActorID: "tester",
	})
	require.Error(t, err)
	_, err = env.Engine.CreateQuotation(env.Ctx, engine.QuotationCreateOptions{
		ProjectID: "road", ClientID: "acme", ActorID: "tester",
	})
	require.Error(t, err, "no items")
}

func TestQuotationLifecycle(t *testing.T) {
	env := newRFIEnv(t)
	id := draftQuotation(t, env)

	q, err := env.Engine.SetQuotationStatus(env.Ctx, id, "issued", "tester")
	require.NoError(t, err)
	require.Equal(t, "issued", q.Status)
	require.NotNil(t, q.IssuedAt)

	// items are frozen once issued
	_, err = env.Engine.ReplaceQuotationItems(env.Ctx, id, []engine.QuotationItemOptions{{Description: "x", UnitPrice: 1}}, "tester")
	require.Error(t, err)

	_, err = env.Engine.SetQuotationStatus(env.Ctx, id, "draft", "tester")
	require.Error(t, err, "issued cannot go back to draft")

	q, err = env.Engine.SetQuotationStatus(env.Ctx, id, "declined", "tester")
	require.NoError(t, err)
	require.Equal(t, "declined", q.Status)
}

func TestQuotationReviseLinksParent(t *testing.T) {
	env := newRFIEnv(t)
	id := draftQuotation(t, env)
	_, err := env.Engine.SetQuotationStatus(env.Ctx, id, "issued", "tester")
	require.NoError(t, err)

	rev, err := env.Engine.ReviseQuotation(env.Ctx, id, "tester")
	require.NoError(t, err)
	assert.Equal(t, "draft", rev.Status)
	assert.Equal(t, 2, rev.Revision)
	require.NotNil(t, rev.RevisionOf)
	assert.Equal(t, id, *rev.RevisionOf)
	assert.Equal(t, "QT-0001-R2", rev.Number)
	assert.Len(t, rev.Items, 1)

	// revising a revision does not stack suffixes
	_, err = env.Engine.SetQuotationStatus(env.Ctx, rev.ID, "issued", "tester")
	require.NoError(t, err)
	rev2, err := env.Engine.ReviseQuotation(env.Ctx, rev.ID, "tester")
	require.NoError(t, err)
	assert.Equal(t, "QT-0001-R3", rev2.Number)
	assert.Equal(t, 3, rev2.Revision)

	// drafts cannot be revised
	_, err = env.Engine.ReviseQuotation(env.Ctx, rev2.ID, "tester")
	require.Error(t, err)
}

func TestQuotationReplaceItemsRecomputesTotals(t *testing.T) {
	env := newRFIEnv(t)
	id := draftQuotation(t, env)
	q, err := env.Engine.ReplaceQuotationItems(env.Ctx, id, []engine.QuotationItemOptions{
		{Description: "Revised scope", Quantity: 4, UnitPrice: 25},
	}, "tester")
	require.NoError(t, err)
	assert.Equal(t, 100.0, q.Subtotal)
	assert.Equal(t, 100.0, q.Total)
	assert.Len(t, q.Items, 1)
}

func TestQuotationDeleteDraftOnly(t *testing.T) {
	env := newRFIEnv(t)
	id := draftQuotation(t, env)
	_, err := env.Engine.SetQuotationStatus(env.Ctx, id, "issued", "tester")
	require.NoError(t, err)
	require.Error(t, env.Engine.DeleteQuotation(env.Ctx, id, "tester"))

	draft := draftQuotation(t, env)
	require.NoError(t, env.Engine.DeleteQuotation(env.Ctx, draft, "tester"))
}
