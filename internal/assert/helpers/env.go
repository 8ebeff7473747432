package helpers

import (
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/kode4food/atelier/internal/config"
	"github.com/kode4food/atelier/internal/docs"
	"github.com/kode4food/atelier/internal/events"
	"github.com/kode4food/atelier/internal/flow"
	"github.com/kode4food/atelier/internal/flows"
)

// TestEnv holds the components needed to exercise the full flow catalog
type TestEnv struct {
	Executor *flow.Executor
	Model    *MockModel
	Docs     *docs.Store
	Redis    *miniredis.Miniredis
	EventHub *events.Hub
	Config   *config.Config
}

const (
	TestTextModel  = "test-text-model"
	TestImageModel = "test-image-model"
	TestShareURL   = "http://share.test"
)

// NewTestConfig creates a default configuration with debug logging enabled
func NewTestConfig() *config.Config {
	cfg := config.NewDefaultConfig()
	cfg.LogLevel = "debug"
	cfg.Model.TextModel = TestTextModel
	cfg.Model.ImageModel = TestImageModel
	cfg.ShareBaseURL = TestShareURL
	cfg.Docs.Prefix = "test-docs"
	return cfg
}

// NewTestEnv builds the flow catalog against an in-memory Redis and a mock
// model. Everything is torn down when the test ends
func NewTestEnv(t *testing.T) *TestEnv {
	t.Helper()

	server, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(server.Close)

	cfg := NewTestConfig()
	cfg.Docs.Addr = server.Addr()

	client := redis.NewClient(&redis.Options{
		Addr:            server.Addr(),
		Protocol:        2,
		DisableIdentity: true,
	})
	t.Cleanup(func() { _ = client.Close() })

	store := docs.NewStore(client, docs.Config{
		Prefix:       cfg.Docs.Prefix,
		ShareBaseURL: cfg.ShareBaseURL,
	})

	reg, err := flows.NewRegistry(flows.Models{
		Text:  cfg.Model.TextModel,
		Image: cfg.Model.ImageModel,
	}, store)
	require.NoError(t, err)

	hub := events.NewHub()
	t.Cleanup(hub.Close)

	model := NewMockModel()
	return &TestEnv{
		Executor: flow.NewExecutor(reg, model, flow.WithPublisher(hub)),
		Model:    model,
		Docs:     store,
		Redis:    server,
		EventHub: hub,
		Config:   cfg,
	}
}
