package query

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"machine-manual-backend/internal/apperr"
	"machine-manual-backend/internal/model"
	"machine-manual-backend/internal/store"
	"machine-manual-backend/internal/testutil/teststore"
)

func TestSearchWithOpenIssuesCNC(t *testing.T) {
	st := teststore.New(t)
	svc := NewService(st)
	ctx := context.Background()

	cnc := teststore.Machine(t, st, "CNC Fräsmaschine DMU 50")
	other := teststore.Machine(t, st, "Produktionslinie A")
	base := time.Date(2024, 5, 2, 7, 30, 0, 0, time.UTC)

	open := teststore.Issue(t, st, cnc.ID, model.Issue{Title: "Kühlmittelpumpe", ReportedAt: base.Add(time.Hour)})
	teststore.Issue(t, st, cnc.ID, model.Issue{Title: "Werkzeugwechsler", ReportedAt: base, Status: model.IssueStatusClosed})
	teststore.Issue(t, st, other.ID, model.Issue{Title: "Förderband", ReportedAt: base})

	got, err := svc.SearchWithOpenIssues(ctx, "CNC")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, cnc.ID, got[0].ID)
	require.Len(t, got[0].OpenIssues, 1)
	assert.Equal(t, open.ID, got[0].OpenIssues[0].ID)
}

func TestOpenIssuesNewestFirst(t *testing.T) {
	st := teststore.New(t)
	svc := NewService(st)
	m := teststore.Machine(t, st, "Linie")
	base := time.Date(2024, 5, 2, 7, 30, 0, 0, time.UTC)

	older := teststore.Issue(t, st, m.ID, model.Issue{Title: "older", ReportedAt: base})
	newer := teststore.Issue(t, st, m.ID, model.Issue{Title: "newer", ReportedAt: base.Add(time.Minute), Status: model.IssueStatusInProgress})

	got, err := svc.ListWithOpenIssues(context.Background(), store.Page{Limit: 10})
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Len(t, got[0].OpenIssues, 2)
	assert.Equal(t, newer.ID, got[0].OpenIssues[0].ID)
	assert.Equal(t, older.ID, got[0].OpenIssues[1].ID)
}

func TestDashboard(t *testing.T) {
	st := teststore.New(t)
	svc := NewService(st)
	ctx := context.Background()

	for _, name := range []string{"a", "b", "c", "Presse"} {
		teststore.Machine(t, st, name)
	}

	got, err := svc.Dashboard(ctx, "", 2)
	require.NoError(t, err)
	assert.Len(t, got, 2)
	assert.Equal(t, "Presse", got[0].Name)

	got, err = svc.Dashboard(ctx, "press", 2)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.NotNil(t, got[0].OpenIssues)
}

func TestMachineWithOpenIssuesJSON(t *testing.T) {
	v := MachineWithOpenIssues{Machine: model.Machine{ID: 3, Name: "Presse", PublicSlug: "ab12cd34"}, OpenIssues: []model.Issue{}}
	raw, err := json.Marshal(v)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, "Presse", decoded["name"])
	assert.Equal(t, "ab12cd34", decoded["public_slug"])
	assert.Equal(t, []any{}, decoded["open_issues"])
}

func TestMachineViews(t *testing.T) {
	st := teststore.New(t)
	svc := NewService(st)
	ctx := context.Background()
	m := teststore.Machine(t, st, "Roboterzelle")

	for i := 0; i < 12; i++ {
		teststore.Issue(t, st, m.ID, model.Issue{Title: "alt", Status: model.IssueStatusClosed})
	}
	teststore.Issue(t, st, m.ID, model.Issue{Title: "offen"})
	for i := 0; i < 6; i++ {
		require.NoError(t, st.CreateMaintenance(ctx, &model.Maintenance{MachineID: m.ID, Title: "Wartung", PerformedBy: "Service"}))
	}

	overview, err := svc.MachineOverview(ctx, m.ID)
	require.NoError(t, err)
	assert.Len(t, overview.OpenIssues, 1)
	assert.Len(t, overview.ClosedIssues, 10)
	assert.Len(t, overview.Maintenance, 5)

	public, err := svc.PublicMachine(ctx, m.PublicSlug)
	require.NoError(t, err)
	assert.Equal(t, m.ID, public.Machine.ID)
	assert.Len(t, public.ClosedIssues, 5)

	_, err = svc.PublicMachine(ctx, "00000000")
	assert.True(t, apperr.IsNotFound(err))
	_, err = svc.MachineOverview(ctx, 999)
	assert.True(t, apperr.IsNotFound(err))
}

func TestIssueDetail(t *testing.T) {
	st := teststore.New(t)
	svc := NewService(st)
	ctx := context.Background()
	m := teststore.Machine(t, st, "Kran")
	issue := teststore.Issue(t, st, m.ID, model.Issue{Title: "Seil"})

	require.NoError(t, st.CreateIssueUpdate(ctx, &model.IssueUpdate{IssueID: issue.ID, Note: "eins", Author: "A"}))
	time.Sleep(5 * time.Millisecond)
	require.NoError(t, st.CreateIssueUpdate(ctx, &model.IssueUpdate{IssueID: issue.ID, Note: "zwei", Author: "B"}))

	view, err := svc.IssueDetail(ctx, issue.ID)
	require.NoError(t, err)
	assert.Equal(t, m.ID, view.Machine.ID)
	require.Len(t, view.Updates, 2)
	assert.Equal(t, "zwei", view.Updates[0].Note)

	_, err = svc.IssueDetail(ctx, 404)
	assert.True(t, apperr.IsNotFound(err))
}
