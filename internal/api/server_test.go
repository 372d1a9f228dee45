package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/mmynk/tabsplit/internal/auth"
	"github.com/mmynk/tabsplit/internal/lifecycle"
	"github.com/mmynk/tabsplit/internal/metrics"
	"github.com/mmynk/tabsplit/internal/service"
	"github.com/mmynk/tabsplit/internal/storage/sqlite"
	"github.com/mmynk/tabsplit/internal/summary"
)

type testEnv struct {
	server *httptest.Server
	token  string
}

func setupServer(t *testing.T, withAuth bool) *testEnv {
	t.Helper()

	store, err := sqlite.New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	var seq int
	manager := lifecycle.NewManager(
		lifecycle.WithIDGenerator(func() string {
			seq++
			return fmt.Sprintf("id-%d", seq)
		}),
		lifecycle.WithClock(func() time.Time { return time.UnixMilli(int64(1000 * seq)) }),
	)
	groups := service.NewGroupService(store, manager, m, nil)
	splits := service.NewSplitService(groups, summary.DefaultFormat(), "Gorjeta")

	opts := Options{Groups: groups, Splits: splits, Metrics: m, Gatherer: reg}
	env := &testEnv{}
	if withAuth {
		authSvc := service.NewAuthService(auth.NewJWTManager("secret", time.Hour), nil)
		opts.Auth = authSvc
		env.token, err = authSvc.IssueToken(context.Background(), "test")
		require.NoError(t, err)
	}

	env.server = httptest.NewServer(NewServer(opts).Handler())
	t.Cleanup(env.server.Close)
	return env
}

func (e *testEnv) do(t *testing.T, method, path string, body any, out any) int {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, e.server.URL+path, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if e.token != "" {
		req.Header.Set("Authorization", "Bearer "+e.token)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func (e *testEnv) createGroup(t *testing.T, place string, count int) groupResponse {
	t.Helper()
	var g groupResponse
	code := e.do(t, http.MethodPost, "/api/groups", map[string]any{
		"placeName": place, "participantCount": count,
	}, &g)
	require.Equal(t, http.StatusCreated, code)
	return g
}

func TestHealth(t *testing.T) {
	env := setupServer(t, false)

	var body map[string]string
	code := env.do(t, http.MethodGet, "/health", nil, &body)
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, "ok", body["status"])
}

func TestGroupFlow(t *testing.T) {
	env := setupServer(t, false)

	g := env.createGroup(t, "Bar do João", 3)
	require.Equal(t, []string{"P1", "P2", "P3"}, g.Participants)
	require.Equal(t, "open", g.Status)
	require.Empty(t, g.Items)

	var current groupResponse
	require.Equal(t, http.StatusOK, env.do(t, http.MethodGet, "/api/groups/current", nil, &current))
	require.Equal(t, g.ID, current.ID)

	var updated groupResponse
	code := env.do(t, http.MethodPost, "/api/groups/"+g.ID+"/items", map[string]any{
		"name": "Pizza", "quantity": 1, "totalValue": 90, "participants": []string{"P1", "P2", "P3"},
	}, &updated)
	require.Equal(t, http.StatusCreated, code)
	require.Len(t, updated.Items, 1)

	code = env.do(t, http.MethodPost, "/api/groups/"+g.ID+"/items", map[string]any{
		"name": "Beer", "quantity": 2, "unitPrice": 7.5, "participants": []string{"P1"},
	}, &updated)
	require.Equal(t, http.StatusCreated, code)
	require.Len(t, updated.Items, 2)
	require.InDelta(t, 15.0, updated.Items[1].TotalValue, 1e-9)
	require.InDelta(t, 105.0, updated.ItemsTotal, 1e-9)

	var alloc allocationResponse
	code = env.do(t, http.MethodPost, "/api/groups/"+g.ID+"/allocation", map[string]any{
		"tip": map[string]any{"mode": "percentage", "amount": 10, "participants": []string{"P1", "P2"}},
	}, &alloc)
	require.Equal(t, http.StatusOK, code)
	require.InDelta(t, 115.5, alloc.GrandTotal, 1e-9)
	require.InDelta(t, 10.5, alloc.TipValue, 1e-9)
	require.Len(t, alloc.PerPerson, 3)
	require.InDelta(t, 30+15+5.25, alloc.PerPerson[0].Total, 1e-9)
	require.InDelta(t, 30+5.25, alloc.PerPerson[1].Total, 1e-9)
	require.InDelta(t, 30.0, alloc.PerPerson[2].Total, 1e-9)
	require.Equal(t, "Gorjeta", alloc.PerPerson[1].Entries[1].Source)

	var share map[string]string
	code = env.do(t, http.MethodPost, "/api/groups/"+g.ID+"/share", nil, &share)
	require.Equal(t, http.StatusOK, code)
	require.True(t, strings.HasPrefix(share["text"], "Divisão de conta: Bar do João\n\n"))
	require.Contains(t, share["text"], "P1: R$ 45,00")
	require.True(t, strings.HasSuffix(share["text"], "Total: R$ 105,00"))

	var finished groupResponse
	require.Equal(t, http.StatusOK, env.do(t, http.MethodPost, "/api/groups/"+g.ID+"/finish", nil, &finished))
	require.Equal(t, "finished", finished.Status)

	var errBody map[string]map[string]string
	code = env.do(t, http.MethodPost, "/api/groups/"+g.ID+"/items", map[string]any{
		"name": "Dessert", "quantity": 1, "totalValue": 10, "participants": []string{"P1"},
	}, &errBody)
	require.Equal(t, http.StatusConflict, code)
	require.Contains(t, errBody["error"]["message"], "finished")

	var list struct {
		Groups []groupResponse `json:"groups"`
	}
	require.Equal(t, http.StatusOK, env.do(t, http.MethodGet, "/api/groups?status=finished", nil, &list))
	require.Len(t, list.Groups, 1)
	require.Equal(t, http.StatusOK, env.do(t, http.MethodGet, "/api/groups", nil, &list))
	require.Empty(t, list.Groups)
}

func TestRemoveItem(t *testing.T) {
	env := setupServer(t, false)
	g := env.createGroup(t, "Cafe", 2)

	var updated groupResponse
	env.do(t, http.MethodPost, "/api/groups/"+g.ID+"/items", map[string]any{
		"name": "Coffee", "quantity": 2, "totalValue": 12, "participants": []string{"P1", "P2"},
	}, &updated)
	itemID := updated.Items[0].ID

	require.Equal(t, http.StatusOK, env.do(t, http.MethodDelete, "/api/groups/"+g.ID+"/items/"+itemID, nil, &updated))
	require.Empty(t, updated.Items)

	// Removing again is a no-op.
	require.Equal(t, http.StatusOK, env.do(t, http.MethodDelete, "/api/groups/"+g.ID+"/items/"+itemID, nil, &updated))
	require.Empty(t, updated.Items)
}

func TestCurrentGroupSelection(t *testing.T) {
	env := setupServer(t, false)

	first := env.createGroup(t, "First", 2)
	second := env.createGroup(t, "Second", 2)

	var current groupResponse
	env.do(t, http.MethodGet, "/api/groups/current", nil, &current)
	require.Equal(t, second.ID, current.ID)

	require.Equal(t, http.StatusOK, env.do(t, http.MethodPut, "/api/groups/current", map[string]string{"groupId": first.ID}, &current))
	require.Equal(t, first.ID, current.ID)

	require.Equal(t, http.StatusNoContent, env.do(t, http.MethodDelete, "/api/groups/current", nil, nil))
	require.Equal(t, http.StatusNotFound, env.do(t, http.MethodGet, "/api/groups/current", nil, nil))

	require.Equal(t, http.StatusNotFound, env.do(t, http.MethodPut, "/api/groups/current", map[string]string{"groupId": "missing"}, nil))
}

func TestTipPreview(t *testing.T) {
	env := setupServer(t, false)
	g := env.createGroup(t, "Bar", 4)
	env.do(t, http.MethodPost, "/api/groups/"+g.ID+"/items", map[string]any{
		"name": "Round", "quantity": 1, "totalValue": 200, "participants": []string{"P1", "P2", "P3", "P4"},
	}, nil)

	var preview map[string]float64
	code := env.do(t, http.MethodPost, "/api/groups/"+g.ID+"/tip-preview", map[string]any{
		"tip": map[string]any{"mode": "percentage", "amount": 10, "participants": []string{"P1", "P2"}},
	}, &preview)
	require.Equal(t, http.StatusOK, code)
	require.InDelta(t, 20.0, preview["tipValue"], 1e-9)
	require.InDelta(t, 10.0, preview["perParticipant"], 1e-9)
}

func TestDegenerateTipIgnored(t *testing.T) {
	env := setupServer(t, false)
	g := env.createGroup(t, "Bar", 2)
	env.do(t, http.MethodPost, "/api/groups/"+g.ID+"/items", map[string]any{
		"name": "Wine", "quantity": 1, "totalValue": 50, "participants": []string{"P1", "P2"},
	}, nil)

	bodies := []map[string]any{
		{"tip": map[string]any{"amount": 0}},
		{"tip": map[string]any{"mode": "percentage", "amount": 10}},
		{"tip": map[string]any{"mode": "whatever", "amount": -5, "participants": []string{"P1"}}},
	}
	for _, body := range bodies {
		var alloc allocationResponse
		code := env.do(t, http.MethodPost, "/api/groups/"+g.ID+"/allocation", body, &alloc)
		require.Equal(t, http.StatusOK, code, "body %v", body)
		require.InDelta(t, 50.0, alloc.GrandTotal, 1e-9)
		require.Zero(t, alloc.TipValue)
	}
}

func TestValidationErrors(t *testing.T) {
	env := setupServer(t, false)
	g := env.createGroup(t, "Bar", 2)

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		want   int
	}{
		{"missing place", http.MethodPost, "/api/groups", map[string]any{"participantCount": 2}, http.StatusBadRequest},
		{"too many participants", http.MethodPost, "/api/groups", map[string]any{"placeName": "X", "participantCount": 21}, http.StatusBadRequest},
		{"unknown field", http.MethodPost, "/api/groups", map[string]any{"placeName": "X", "participantCount": 2, "extra": true}, http.StatusBadRequest},
		{"no participants", http.MethodPost, "/api/groups/" + g.ID + "/items", map[string]any{"name": "A", "quantity": 1, "totalValue": 1}, http.StatusBadRequest},
		{"unknown participant", http.MethodPost, "/api/groups/" + g.ID + "/items", map[string]any{"name": "A", "quantity": 1, "totalValue": 1, "participants": []string{"P9"}}, http.StatusBadRequest},
		{"zero quantity", http.MethodPost, "/api/groups/" + g.ID + "/items", map[string]any{"name": "A", "quantity": 0, "totalValue": 1, "participants": []string{"P1"}}, http.StatusBadRequest},
		{"missing tip mode", http.MethodPost, "/api/groups/" + g.ID + "/allocation", map[string]any{"tip": map[string]any{"amount": 5, "participants": []string{"P1"}}}, http.StatusBadRequest},
		{"bad tip mode", http.MethodPost, "/api/groups/" + g.ID + "/allocation", map[string]any{"tip": map[string]any{"mode": "bogus", "amount": 5, "participants": []string{"P1"}}}, http.StatusBadRequest},
		{"bad status filter", http.MethodGet, "/api/groups?status=archived", nil, http.StatusBadRequest},
		{"unknown group", http.MethodGet, "/api/groups/missing", nil, http.StatusNotFound},
		{"allocate unknown group", http.MethodPost, "/api/groups/missing/allocation", nil, http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var body map[string]map[string]string
			code := env.do(t, tt.method, tt.path, tt.body, &body)
			require.Equal(t, tt.want, code)
			require.NotEmpty(t, body["error"]["message"])
		})
	}
}

func TestAuthRequired(t *testing.T) {
	env := setupServer(t, true)

	// Authorized requests work.
	env.createGroup(t, "Bar", 2)

	token := env.token
	env.token = ""
	require.Equal(t, http.StatusUnauthorized, env.do(t, http.MethodGet, "/api/groups", nil, nil))

	env.token = "garbage"
	require.Equal(t, http.StatusUnauthorized, env.do(t, http.MethodGet, "/api/groups", nil, nil))

	// Health stays public.
	env.token = ""
	require.Equal(t, http.StatusOK, env.do(t, http.MethodGet, "/health", nil, nil))

	env.token = token
	require.Equal(t, http.StatusOK, env.do(t, http.MethodGet, "/api/groups", nil, nil))
}

func TestMetricsEndpoint(t *testing.T) {
	env := setupServer(t, false)
	env.createGroup(t, "Bar", 2)

	resp, err := http.Get(env.server.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()

	var buf bytes.Buffer
	_, err = buf.ReadFrom(resp.Body)
	require.NoError(t, err)
	require.Contains(t, buf.String(), "tabsplit_groups_created_total 1")
}
