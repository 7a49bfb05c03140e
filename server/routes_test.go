package main

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meikuraledutech/flow"
	"github.com/meikuraledutech/flow/memory"
)

func newTestApp(t *testing.T) *fiber.App {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return newApp(flow.NewService(memory.New()), logger)
}

// do sends a request and decodes a JSON response into out when out is non-nil.
func do(t *testing.T, app *fiber.App, method, path, body string, out any) *http.Response {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	if body != "" {
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	}
	resp, err := app.Test(req)
	require.NoError(t, err)
	if out != nil {
		defer resp.Body.Close()
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp
}

func createWorkflow(t *testing.T, app *fiber.App, title string) flow.StoredWorkflow {
	t.Helper()
	var w flow.StoredWorkflow
	resp := do(t, app, http.MethodPost, "/workflows", `{"title": "`+title+`"}`, &w)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	return w
}

func TestWorkflowLifecycle(t *testing.T) {
	app := newTestApp(t)

	var blank flow.StoredWorkflow
	resp := do(t, app, http.MethodPost, "/workflows", "", &blank)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "Start", blank.Title)
	assert.Len(t, blank.Schema.Nodes, 1)

	w := createWorkflow(t, app, "Orders")

	var list []flow.StoredWorkflow
	resp = do(t, app, http.MethodGet, "/workflows", "", &list)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, list, 2)

	var last flow.StoredWorkflow
	do(t, app, http.MethodGet, "/workflows/last", "", &last)
	assert.Equal(t, w.ID, last.ID)

	var renamed flow.StoredWorkflow
	resp = do(t, app, http.MethodPatch, "/workflows/"+w.ID, `{"title": "Returns"}`, &renamed)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Returns", renamed.Title)

	resp = do(t, app, http.MethodPatch, "/workflows/"+w.ID, `{"title": ""}`, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = do(t, app, http.MethodDelete, "/workflows/"+w.ID, "", nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	var body map[string]string
	resp = do(t, app, http.MethodGet, "/workflows/"+w.ID, "", &body)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, flow.ErrWorkflowNotFound.Error(), body["error"])
}

func TestImportAndExport(t *testing.T) {
	app := newTestApp(t)

	var body map[string]string
	resp := do(t, app, http.MethodPost, "/workflows/import", `{"nodes": [`, &body)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Invalid JSON file", body["error"])

	resp = do(t, app, http.MethodPost, "/workflows/import", `{"nodes": [{"id": "a"}], "edges": [{"source": "a", "target": "z"}]}`, &body)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Equal(t, "Invalid schema: edge references missing target node: z", body["error"])

	var w flow.StoredWorkflow
	resp = do(t, app, http.MethodPost, "/workflows/import",
		`{"nodes": [{"id": "a", "name": "Intake", "isStart": true}, {"id": "b", "name": "Done"}],
		  "edges": [{"id": "e1", "source": "a", "target": "b", "condition": "ok"}]}`, &w)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "Intake", w.Title)

	resp = do(t, app, http.MethodGet, "/workflows/"+w.ID+"/export", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get(fiber.HeaderContentDisposition), "workflow-Intake.json")
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"nodes": [
			{"id": "a", "name": "Intake", "description": "", "isStart": true},
			{"id": "b", "name": "Done", "description": "", "isStart": false}
		],
		"edges": [{"id": "e1", "source": "a", "target": "b", "condition": "ok"}],
		"startNodeId": "a"
	}`, string(data))

	var schema flow.Schema
	resp = do(t, app, http.MethodPost, "/schema/validate", string(data), &schema)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, schema.Nodes, 2)
}

func TestNodeAndEdgeRoutes(t *testing.T) {
	app := newTestApp(t)
	w := createWorkflow(t, app, "Graph")
	base := "/workflows/" + w.ID

	var node flow.Node
	resp := do(t, app, http.MethodPost, base+"/nodes", `{"name": "Check"}`, &node)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "Check", node.Data.Name)

	var edge flow.Edge
	resp = do(t, app, http.MethodPost, base+"/edges", `{"source": "start", "target": "`+node.ID+`"}`, &edge)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = do(t, app, http.MethodPost, base+"/edges", `{"source": "start", "target": "`+node.ID+`"}`, nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	resp = do(t, app, http.MethodPost, base+"/edges", `{"source": "start", "target": "start"}`, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	resp = do(t, app, http.MethodPost, base+"/edges", `{"source": "start", "target": "ghost"}`, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp = do(t, app, http.MethodPost, base+"/edges", `{"source": "start"}`, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var g flow.Graph
	resp = do(t, app, http.MethodPatch, base+"/edges/"+edge.ID, `{"condition": "score > 5"}`, &g)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "score > 5", g.Edges[0].Data.Condition)

	resp = do(t, app, http.MethodPut, base+"/nodes/"+node.ID+"/id", `{"id": "start"}`, nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	resp = do(t, app, http.MethodPut, base+"/nodes/"+node.ID+"/id", `{"id": "check"}`, &g)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "check", g.Edges[0].Target)

	resp = do(t, app, http.MethodPatch, base+"/nodes/check", `{"description": "manual", "position": {"x": 5, "y": 6}}`, &g)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "manual", g.Nodes[1].Data.Description)
	assert.Equal(t, flow.Position{X: 5, Y: 6}, g.Nodes[1].Position)

	resp = do(t, app, http.MethodPost, base+"/nodes/check/start", "", &g)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.False(t, g.Nodes[0].Data.IsStart)
	assert.True(t, g.Nodes[1].Data.IsStart)

	var preview struct {
		Schema flow.Schema  `json:"schema"`
		Issues []flow.Issue `json:"issues"`
	}
	resp = do(t, app, http.MethodGet, base+"/preview", "", &preview)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NotNil(t, preview.Schema.StartNodeID)
	assert.Equal(t, "check", *preview.Schema.StartNodeID)
	assert.Empty(t, preview.Issues)

	resp = do(t, app, http.MethodDelete, base+"/nodes/check", "", nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	var stored flow.StoredWorkflow
	do(t, app, http.MethodGet, base, "", &stored)
	assert.Len(t, stored.Schema.Nodes, 1)
	assert.Empty(t, stored.Schema.Edges)

	resp = do(t, app, http.MethodDelete, base+"/edges/"+edge.ID, "", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp = do(t, app, http.MethodPost, "/workflows/wf_missing/nodes", "", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
