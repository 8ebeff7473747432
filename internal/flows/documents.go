package flows

import (
	"context"
	"errors"
	"time"

	"github.com/kode4food/atelier/internal/docs"
	"github.com/kode4food/atelier/pkg/api"
)

const (
	DocumentsListFlow         api.Name = "documents-list"
	DocumentsRenameFlow       api.Name = "documents-rename"
	DocumentsDeleteFlow       api.Name = "documents-delete"
	DocumentsShareFlow        api.Name = "documents-share"
	DocumentsCreateFolderFlow api.Name = "documents-create-folder"
)

// Documents returns the flows backed by the document store
func Documents(store *docs.Store) []*api.FlowDefinition {
	return []*api.FlowDefinition{
		{
			Name:        DocumentsListFlow,
			Description: "List the documents and folders in a folder",
			Input: api.Schema{
				"parentId": api.Optional(api.TypeString),
			},
			Output: api.Schema{
				"documents": api.ArrayOf(api.ObjectOf(api.Schema{
					"id":        api.Required(api.TypeString),
					"name":      api.Required(api.TypeString),
					"kind":      api.Required(api.TypeString),
					"parentId":  api.Optional(api.TypeString),
					"updatedAt": api.Required(api.TypeString),
				})),
			},
			Handler: listDocuments(store),
		},
		{
			Name:        DocumentsRenameFlow,
			Description: "Rename a document or folder",
			Input: api.Schema{
				"id":   api.Required(api.TypeString),
				"name": api.Required(api.TypeString).WithMinLength(1),
			},
			Output:  successSchema(),
			Handler: renameDocument(store),
		},
		{
			Name:        DocumentsDeleteFlow,
			Description: "Delete a document, or a folder and its contents",
			Input: api.Schema{
				"id": api.Required(api.TypeString),
			},
			Output:  successSchema(),
			Handler: deleteDocument(store),
		},
		{
			Name:        DocumentsShareFlow,
			Description: "Create a share link for a document",
			Input: api.Schema{
				"id": api.Required(api.TypeString),
			},
			Output: api.Schema{
				"shareLink": api.Optional(api.TypeString),
			},
			Handler: shareDocument(store),
		},
		{
			Name:        DocumentsCreateFolderFlow,
			Description: "Create a folder",
			Input: api.Schema{
				"name":     api.Required(api.TypeString).WithMinLength(1),
				"parentId": api.Optional(api.TypeString),
			},
			Output: api.Schema{
				"success": api.Required(api.TypeBoolean),
				"id":      api.Optional(api.TypeString),
			},
			Handler: createFolder(store),
		},
	}
}

func successSchema() api.Schema {
	return api.Schema{
		"success": api.Required(api.TypeBoolean),
	}
}

func listDocuments(store *docs.Store) api.Handler {
	return func(ctx context.Context, in api.Args) (api.Args, error) {
		list, err := store.List(ctx, in.GetString("parentId", ""))
		if err != nil {
			return nil, err
		}
		res := make([]any, len(list))
		for i, doc := range list {
			res[i] = documentArgs(doc)
		}
		return api.Args{"documents": res}, nil
	}
}

func renameDocument(store *docs.Store) api.Handler {
	return func(ctx context.Context, in api.Args) (api.Args, error) {
		ok, err := store.Rename(
			ctx, in.GetString("id", ""), in.GetString("name", ""),
		)
		if errors.Is(err, docs.ErrNameEmpty) {
			return api.Args{"success": false}, nil
		}
		if err != nil {
			return nil, err
		}
		return api.Args{"success": ok}, nil
	}
}

func deleteDocument(store *docs.Store) api.Handler {
	return func(ctx context.Context, in api.Args) (api.Args, error) {
		ok, err := store.Delete(ctx, in.GetString("id", ""))
		if err != nil {
			return nil, err
		}
		return api.Args{"success": ok}, nil
	}
}

func shareDocument(store *docs.Store) api.Handler {
	return func(ctx context.Context, in api.Args) (api.Args, error) {
		link, err := store.Share(ctx, in.GetString("id", ""))
		if err != nil {
			return nil, err
		}
		if link == "" {
			return api.Args{"shareLink": nil}, nil
		}
		return api.Args{"shareLink": link}, nil
	}
}

func createFolder(store *docs.Store) api.Handler {
	return func(ctx context.Context, in api.Args) (api.Args, error) {
		doc, err := store.Create(ctx, docs.KindFolder,
			in.GetString("name", ""), in.GetString("parentId", ""),
		)
		if errors.Is(err, docs.ErrParentNotFound) ||
			errors.Is(err, docs.ErrNameEmpty) {
			return api.Args{"success": false}, nil
		}
		if err != nil {
			return nil, err
		}
		return api.Args{"success": true, "id": doc.ID}, nil
	}
}

func documentArgs(doc *docs.Document) map[string]any {
	res := map[string]any{
		"id":        doc.ID,
		"name":      doc.Name,
		"kind":      string(doc.Kind),
		"updatedAt": doc.UpdatedAt.Format(time.RFC3339),
	}
	if doc.ParentID != "" {
		res["parentId"] = doc.ParentID
	}
	return res
}
