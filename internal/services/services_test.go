package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"salesdash/internal/amqp"
	"salesdash/internal/core"
	"salesdash/internal/sources"
	"salesdash/internal/sources/memory"
)

var header = []string{"order_id", "product_category_name_english", "order_purchase_timestamp"}

func testTable() ([]string, [][]string) {
	return header, [][]string{
		{"o1", "toys", "2017-01-05 10:00:00"},
		{"o2", "auto", "2017-03-05 10:00:00"},
		{"o3", "", "2018-03-05 10:00:00"},
		{"o4", "toys", "2018-02-05 10:00:00"},
	}
}

func testDataset(t *testing.T) *core.Dataset {
	t.Helper()
	h, rows := testTable()
	ds, _, err := sources.BuildDataset(core.Table{Header: h, Rows: rows}, sources.DefaultColumns())
	require.NoError(t, err)
	return ds
}

type fakePublisher struct {
	msgs    []*amqp.ReportRequestMessage
	err     error
	healthy bool
}

func (f *fakePublisher) PublishReportRequest(_ context.Context, msg *amqp.ReportRequestMessage) error {
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, msg)
	return nil
}

func (f *fakePublisher) Healthy() bool { return f.healthy }

type countingObserver struct{ ok, failed int }

func (o *countingObserver) ReportPublished(err error) {
	if err != nil {
		o.failed++
		return
	}
	o.ok++
}

func TestRequestReport(t *testing.T) {
	ds := testDataset(t)
	pub := &fakePublisher{healthy: true}
	obs := &countingObserver{}
	svc := NewReportService(ds, pub, obs)

	require.True(t, svc.Enabled())
	require.True(t, svc.Healthy())

	msg, err := svc.RequestReport(context.Background(), core.Selection{Year: 2018, Month: time.March})
	require.NoError(t, err)
	require.NoError(t, msg.Validate())
	assert.Equal(t, core.Selection{Year: 2018, Month: time.March}, msg.Selection())
	assert.Len(t, pub.msgs, 1)
	assert.Equal(t, 1, obs.ok)

	_, err = svc.RequestReport(context.Background(), core.Selection{Year: 2016})
	require.ErrorIs(t, err, core.ErrUnknownYear)
	assert.Len(t, pub.msgs, 1, "invalid selections are never published")

	pub.err = amqp.ErrCircuitOpen
	_, err = svc.RequestReport(context.Background(), core.Selection{Year: 2017})
	require.ErrorIs(t, err, amqp.ErrCircuitOpen)
	assert.Equal(t, 1, obs.failed)
}

func TestRequestReportDisabled(t *testing.T) {
	svc := NewReportService(testDataset(t), nil, nil)
	assert.False(t, svc.Enabled())
	assert.False(t, svc.Healthy())

	_, err := svc.RequestReport(context.Background(), core.Selection{Year: 2017})
	require.ErrorIs(t, err, ErrReportsDisabled)
}

type memoryStore struct {
	source string
	table  core.Table
	err    error
}

func (m *memoryStore) ImportTable(_ context.Context, source string, t core.Table) error {
	if m.err != nil {
		return m.err
	}
	m.source, m.table = source, t
	return nil
}

func TestImport(t *testing.T) {
	store := &memoryStore{}
	svc := NewImportService(store, sources.DefaultColumns())

	res, err := svc.Import(context.Background(), "csv:orders.csv", memory.New(testTable()))
	require.NoError(t, err)
	assert.Equal(t, sources.LoadStats{Rows: 4, Loaded: 3, Skipped: 1}, res.Stats)
	assert.Equal(t, []int{2017, 2018}, res.Years)
	assert.Equal(t, "csv:orders.csv", store.source)
	assert.Len(t, store.table.Rows, 4, "skipped rows are stored too")
}

func TestImportRejectsUnloadableTable(t *testing.T) {
	store := &memoryStore{}
	svc := NewImportService(store, sources.DefaultColumns())

	_, err := svc.Import(context.Background(), "bad", memory.New([]string{"order_id"}, [][]string{{"o1"}}))
	require.ErrorIs(t, err, sources.ErrMissingColumn)
	assert.Empty(t, store.source, "nothing stored")

	store.err = errors.New("disk full")
	_, err = svc.Import(context.Background(), "ok", memory.New(testTable()))
	require.ErrorContains(t, err, "disk full")
}
