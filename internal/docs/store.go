// Package docs is a Redis-backed stand-in for the document and collaboration
// services used by the document flows
package docs

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

type (
	// Store keeps documents and folders as Redis hashes, indexed by parent
	Store struct {
		client       *redis.Client
		prefix       string
		shareBaseURL string
		now          func() time.Time
	}

	// Config configures a Store
	Config struct {
		Prefix       string
		ShareBaseURL string
	}

	// Document is a stored document or folder
	Document struct {
		CreatedAt time.Time `json:"createdAt"`
		UpdatedAt time.Time `json:"updatedAt"`
		ID        string    `json:"id"`
		Name      string    `json:"name"`
		Kind      Kind      `json:"kind"`
		ParentID  string    `json:"parentId,omitempty"`
	}

	// Kind distinguishes documents from folders
	Kind string
)

const (
	KindDocument Kind = "document"
	KindFolder   Kind = "folder"
)

const (
	rootParent = "root"
	sharePath  = "/share/"

	fieldID        = "id"
	fieldName      = "name"
	fieldKind      = "kind"
	fieldParent    = "parent"
	fieldCreatedAt = "created_at"
	fieldUpdatedAt = "updated_at"
	fieldShare     = "share"
)

var (
	ErrNameEmpty      = errors.New("document name empty")
	ErrInvalidKind    = errors.New("invalid document kind")
	ErrParentNotFound = errors.New("parent folder not found")
	ErrCorruptRecord  = errors.New("corrupt document record")
)

// NewStore creates a document store using the given Redis client
func NewStore(client *redis.Client, cfg Config) *Store {
	return &Store{
		client:       client,
		prefix:       cfg.Prefix,
		shareBaseURL: strings.TrimRight(cfg.ShareBaseURL, "/"),
		now:          time.Now,
	}
}

// Create stores a new document or folder under parentID. An empty parentID
// places it at the root
func (s *Store) Create(
	ctx context.Context, kind Kind, name, parentID string,
) (*Document, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrNameEmpty
	}
	if kind != KindDocument && kind != KindFolder {
		return nil, fmt.Errorf("%w: %s", ErrInvalidKind, kind)
	}
	if parentID != "" {
		parent, err := s.Get(ctx, parentID)
		if err != nil {
			return nil, err
		}
		if parent == nil || parent.Kind != KindFolder {
			return nil, fmt.Errorf("%w: %s", ErrParentNotFound, parentID)
		}
	}

	now := s.now().UTC()
	doc := &Document{
		ID:        uuid.NewString(),
		Name:      name,
		Kind:      kind,
		ParentID:  parentID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	_, err := s.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.HSet(ctx, s.docKey(doc.ID), map[string]any{
			fieldID:        doc.ID,
			fieldName:      doc.Name,
			fieldKind:      string(doc.Kind),
			fieldParent:    doc.ParentID,
			fieldCreatedAt: now.Format(time.RFC3339Nano),
			fieldUpdatedAt: now.Format(time.RFC3339Nano),
		})
		p.SAdd(ctx, s.childrenKey(parentID), doc.ID)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// Get returns the document with the given id, or nil if there is none
func (s *Store) Get(ctx context.Context, id string) (*Document, error) {
	vals, err := s.client.HGetAll(ctx, s.docKey(id)).Result()
	if err != nil {
		return nil, err
	}
	if len(vals) == 0 {
		return nil, nil
	}
	return decodeDocument(vals)
}

// List returns the children of parentID, folders first, then by name
func (s *Store) List(
	ctx context.Context, parentID string,
) ([]*Document, error) {
	ids, err := s.client.SMembers(ctx, s.childrenKey(parentID)).Result()
	if err != nil {
		return nil, err
	}

	cmds := make([]*redis.MapStringStringCmd, len(ids))
	_, err = s.client.Pipelined(ctx, func(p redis.Pipeliner) error {
		for i, id := range ids {
			cmds[i] = p.HGetAll(ctx, s.docKey(id))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	res := make([]*Document, 0, len(ids))
	for _, cmd := range cmds {
		vals := cmd.Val()
		if len(vals) == 0 {
			continue
		}
		doc, err := decodeDocument(vals)
		if err != nil {
			return nil, err
		}
		res = append(res, doc)
	}
	slices.SortFunc(res, compareDocuments)
	return res, nil
}

// Rename changes a document's name. It reports false if the document does
// not exist
func (s *Store) Rename(ctx context.Context, id, name string) (bool, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return false, ErrNameEmpty
	}
	exists, err := s.exists(ctx, id)
	if err != nil || !exists {
		return false, err
	}
	err = s.client.HSet(ctx, s.docKey(id), map[string]any{
		fieldName:      name,
		fieldUpdatedAt: s.now().UTC().Format(time.RFC3339Nano),
	}).Err()
	if err != nil {
		return false, err
	}
	return true, nil
}

// Delete removes a document, or a folder with everything below it. It
// reports false if the document does not exist
func (s *Store) Delete(ctx context.Context, id string) (bool, error) {
	doc, err := s.Get(ctx, id)
	if err != nil || doc == nil {
		return false, err
	}

	ids, err := s.descendants(ctx, doc)
	if err != nil {
		return false, err
	}

	_, err = s.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.SRem(ctx, s.childrenKey(doc.ParentID), doc.ID)
		for _, id := range ids {
			p.Del(ctx, s.docKey(id), s.childrenKey(id))
		}
		return nil
	})
	if err != nil {
		return false, err
	}
	return true, nil
}

// Share creates a share link for a document. It returns an empty link if the
// document does not exist. Sharing the same document again returns the same
// link
func (s *Store) Share(ctx context.Context, id string) (string, error) {
	doc, err := s.client.HMGet(ctx, s.docKey(id), fieldID, fieldShare).Result()
	if err != nil {
		return "", err
	}
	if doc[0] == nil {
		return "", nil
	}
	if token, ok := doc[1].(string); ok && token != "" {
		return s.shareLink(token), nil
	}

	token := uuid.NewString()
	_, err = s.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.HSet(ctx, s.docKey(id), fieldShare, token)
		p.Set(ctx, s.shareKey(token), id, 0)
		return nil
	})
	if err != nil {
		return "", err
	}
	return s.shareLink(token), nil
}

// ResolveShare returns the document a share token points at, or nil
func (s *Store) ResolveShare(
	ctx context.Context, token string,
) (*Document, error) {
	id, err := s.client.Get(ctx, s.shareKey(token)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, id)
}

func (s *Store) descendants(
	ctx context.Context, doc *Document,
) ([]string, error) {
	res := []string{doc.ID}
	if doc.Kind != KindFolder {
		return res, nil
	}
	children, err := s.List(ctx, doc.ID)
	if err != nil {
		return nil, err
	}
	for _, child := range children {
		ids, err := s.descendants(ctx, child)
		if err != nil {
			return nil, err
		}
		res = append(res, ids...)
	}
	return res, nil
}

func (s *Store) exists(ctx context.Context, id string) (bool, error) {
	n, err := s.client.Exists(ctx, s.docKey(id)).Result()
	return n > 0, err
}

func (s *Store) shareLink(token string) string {
	return s.shareBaseURL + sharePath + token
}

func (s *Store) docKey(id string) string {
	return s.key("doc", id)
}

func (s *Store) childrenKey(parentID string) string {
	if parentID == "" {
		parentID = rootParent
	}
	return s.key("children", parentID)
}

func (s *Store) shareKey(token string) string {
	return s.key("share", token)
}

func (s *Store) key(parts ...string) string {
	if s.prefix == "" {
		return strings.Join(parts, ":")
	}
	return s.prefix + ":" + strings.Join(parts, ":")
}

func decodeDocument(vals map[string]string) (*Document, error) {
	created, err := time.Parse(time.RFC3339Nano, vals[fieldCreatedAt])
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorruptRecord, err)
	}
	updated, err := time.Parse(time.RFC3339Nano, vals[fieldUpdatedAt])
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorruptRecord, err)
	}
	return &Document{
		ID:        vals[fieldID],
		Name:      vals[fieldName],
		Kind:      Kind(vals[fieldKind]),
		ParentID:  vals[fieldParent],
		CreatedAt: created,
		UpdatedAt: updated,
	}, nil
}

func compareDocuments(a, b *Document) int {
	if a.Kind != b.Kind {
		if a.Kind == KindFolder {
			return -1
		}
		return 1
	}
	if c := strings.Compare(a.Name, b.Name); c != 0 {
		return c
	}
	return strings.Compare(a.ID, b.ID)
}
