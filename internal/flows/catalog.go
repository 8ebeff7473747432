// Package flows declares the flows served by atelier
package flows

import (
	"github.com/kode4food/atelier/internal/docs"
	"github.com/kode4food/atelier/internal/flow"
	"github.com/kode4food/atelier/internal/script"
	"github.com/kode4food/atelier/pkg/api"
)

// Models names the backend models the flows target
type Models struct {
	Text  string
	Image string
}

// Definitions returns every flow definition. Document flows are included
// only when a store is provided
func Definitions(m Models, store *docs.Store) []*api.FlowDefinition {
	res := []*api.FlowDefinition{
		Lyrics(m.Text),
		Image(m.Image),
		Moodboard(),
		Narrative(m.Text),
	}
	if store != nil {
		res = append(res, Documents(store)...)
	}
	return res
}

// NewRegistry builds the flow catalog
func NewRegistry(m Models, store *docs.Store) (*flow.Registry, error) {
	return flow.NewRegistry(script.NewRegistry(), Definitions(m, store)...)
}
