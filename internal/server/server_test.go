package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kode4food/atelier"
	"github.com/kode4food/atelier/internal/assert/helpers"
	"github.com/kode4food/atelier/internal/docs"
	"github.com/kode4food/atelier/internal/flows"
	"github.com/kode4food/atelier/internal/model"
	"github.com/kode4food/atelier/internal/server"
	"github.com/kode4food/atelier/pkg/api"
)

type testServerEnv struct {
	*helpers.TestEnv
	Server *server.Server
}

func testServer(t *testing.T) *testServerEnv {
	t.Helper()
	env := helpers.NewTestEnv(t)
	srv := server.NewServer(env.Executor, env.EventHub, env.Docs)
	t.Cleanup(srv.CloseWebSockets)
	return &testServerEnv{
		TestEnv: env,
		Server:  srv,
	}
}

func (e *testServerEnv) do(
	t *testing.T, method, path, body string,
) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	e.Server.SetupRoutes().ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) api.ErrorResponse {
	t.Helper()
	var res api.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	return res
}

func TestHealthEndpoint(t *testing.T) {
	env := testServer(t)

	w := env.do(t, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)

	var res api.HealthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.Equal(t, atelier.Name, res.Service)
	assert.Equal(t, "ok", res.Status)
}

func TestCORSPreflight(t *testing.T) {
	env := testServer(t)

	w := env.do(t, http.MethodOptions, "/flow/lyrics", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestListFlows(t *testing.T) {
	env := testServer(t)

	w := env.do(t, http.MethodGet, "/flow", "")
	assert.Equal(t, http.StatusOK, w.Code)

	var res struct {
		Flows []struct {
			Name api.Name `json:"name"`
		} `json:"flows"`
		Count int `json:"count"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.Equal(t, 9, res.Count)
	assert.Equal(t, flows.DocumentsCreateFolderFlow, res.Flows[0].Name)
}

func TestGetFlow(t *testing.T) {
	env := testServer(t)

	w := env.do(t, http.MethodGet, "/flow/image", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"media_field":"imageDataUri"`)

	w = env.do(t, http.MethodGet, "/flow/missing", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRunFlow(t *testing.T) {
	env := testServer(t)
	env.Model.SetMedia("a heron, style ink", "data:image/png;base64,AAAA")

	w := env.do(t, http.MethodPost, "/flow/image",
		`{"prompt":"a heron","style":"ink"}`,
	)
	assert.Equal(t, http.StatusOK, w.Code)

	var res api.FlowResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.Equal(t, flows.ImageFlow, res.Flow)
	assert.Equal(t, "data:image/png;base64,AAAA", res.Output["imageDataUri"])
}

func TestRunFlowErrors(t *testing.T) {
	tests := []struct {
		name   string
		path   string
		body   string
		setup  func(*helpers.MockModel)
		status int
		kind   api.ErrorKind
	}{
		{
			name:   "unknown_flow",
			path:   "/flow/missing",
			body:   `{}`,
			status: http.StatusNotFound,
		},
		{
			name:   "invalid_json",
			path:   "/flow/image",
			body:   `{"prompt":`,
			status: http.StatusBadRequest,
		},
		{
			name:   "not_an_object",
			path:   "/flow/image",
			body:   `["a heron"]`,
			status: http.StatusBadRequest,
		},
		{
			name:   "input_validation",
			path:   "/flow/image",
			body:   `{"style":"ink"}`,
			status: http.StatusBadRequest,
			kind:   api.KindInputValidation,
		},
		{
			name: "model_failure",
			path: "/flow/image",
			body: `{"prompt":"a heron"}`,
			setup: func(m *helpers.MockModel) {
				m.SetDefaultError(model.ErrHTTPError)
			},
			status: http.StatusBadGateway,
			kind:   api.KindModelInvocation,
		},
		{
			name: "empty_output",
			path: "/flow/image",
			body: `{"prompt":"a heron"}`,
			setup: func(m *helpers.MockModel) {
				m.SetDefault(&api.InvocationResult{})
			},
			status: http.StatusBadGateway,
			kind:   api.KindEmptyOutput,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := testServer(t)
			if tt.setup != nil {
				tt.setup(env.Model)
			}

			w := env.do(t, http.MethodPost, tt.path, tt.body)
			assert.Equal(t, tt.status, w.Code)

			res := decodeError(t, w)
			assert.Equal(t, tt.status, res.Status)
			assert.Equal(t, tt.kind, res.Kind)
			assert.NotEmpty(t, res.Error)
			if tt.kind != "" {
				assert.Equal(t, flows.ImageFlow, res.Flow)
			}
		})
	}
}

func TestRunFlowEmptyBody(t *testing.T) {
	env := testServer(t)

	req := httptest.NewRequest(
		http.MethodPost, "/flow/documents-list", bytes.NewReader(nil),
	)
	w := httptest.NewRecorder()
	env.Server.SetupRoutes().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t,
		`{"flow":"documents-list","output":{"documents":[]}}`,
		w.Body.String(),
	)
}

func TestResolveShare(t *testing.T) {
	env := testServer(t)
	ctx := context.Background()

	doc, err := env.Docs.Create(ctx, docs.KindDocument, "Demo", "")
	require.NoError(t, err)
	link, err := env.Docs.Share(ctx, doc.ID)
	require.NoError(t, err)

	path := strings.TrimPrefix(link, helpers.TestShareURL)
	w := env.do(t, http.MethodGet, path, "")
	assert.Equal(t, http.StatusOK, w.Code)

	var res docs.Document
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.Equal(t, doc.ID, res.ID)
	assert.Equal(t, "Demo", res.Name)

	w = env.do(t, http.MethodGet, "/share/unknown", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestResolveShareWithoutStore(t *testing.T) {
	env := helpers.NewTestEnv(t)
	srv := server.NewServer(env.Executor, env.EventHub, nil)

	req := httptest.NewRequest(http.MethodGet, "/share/token", nil)
	w := httptest.NewRecorder()
	srv.SetupRoutes().ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
