//go:build integration

// Package integration exercises the object store and access gate against
// a real single-node OpenSearch container. Tests are skipped unless
// COLLABD_INTEGRATION_TESTS=1 is set.
package integration

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/fyrsmithlabs/collabd/internal/access"
	"github.com/fyrsmithlabs/collabd/internal/logging"
	"github.com/fyrsmithlabs/collabd/internal/objectstore"
	"github.com/fyrsmithlabs/collabd/internal/search"
	"github.com/fyrsmithlabs/collabd/pkg/auth"
)

const backendImage = "opensearchproject/opensearch:2.11.1"

func skipUnlessEnabled(t *testing.T) {
	t.Helper()
	if os.Getenv("COLLABD_INTEGRATION_TESTS") == "" {
		t.Skip("Skipping integration test. Set COLLABD_INTEGRATION_TESTS=1 to run.")
	}
}

// startBackendContainer starts a single-node OpenSearch container with
// the security plugin disabled and returns its HTTP endpoint.
func startBackendContainer(t *testing.T, ctx context.Context) string {
	t.Helper()

	req := testcontainers.ContainerRequest{
		Image:        backendImage,
		ExposedPorts: []string{"9200/tcp"},
		Env: map[string]string{
			"discovery.type":              "single-node",
			"DISABLE_SECURITY_PLUGIN":     "true",
			"DISABLE_INSTALL_DEMO_CONFIG": "true",
			"OPENSEARCH_JAVA_OPTS":        "-Xms512m -Xmx512m",
		},
		WaitingFor: wait.ForAll(
			wait.ForListeningPort("9200/tcp"),
			wait.ForHTTP("/_cluster/health").WithPort("9200/tcp").WithStartupTimeout(2*time.Minute),
		),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err, "failed to start backend container")

	t.Cleanup(func() {
		_ = container.Terminate(context.Background()) // Best effort test cleanup
	})

	host, err := container.Host(ctx)
	require.NoError(t, err)

	port, err := container.MappedPort(ctx, "9200")
	require.NoError(t, err)

	return fmt.Sprintf("http://%s:%s", host, port.Port())
}

func buildStore(t *testing.T, url, index string) *objectstore.Store {
	t.Helper()

	backend, err := search.NewOpenSearchBackend(&search.Config{
		Addresses:   []string{url},
		DialTimeout: 30 * time.Second,
	}, logging.NewNop())
	require.NoError(t, err)

	store, err := objectstore.NewStore(&objectstore.Config{IndexName: index}, backend, logging.NewNop())
	require.NoError(t, err)
	return store
}

func noteObject(title, content, category string) *objectstore.CollaborationObject {
	return &objectstore.CollaborationObject{
		Type: objectstore.TypeNote,
		Data: objectstore.ObjectData{Note: &objectstore.NoteData{
			Title:    title,
			Content:  content,
			Category: category,
		}},
	}
}

func annotationObject(subject, body string) *objectstore.CollaborationObject {
	return &objectstore.CollaborationObject{
		Type: objectstore.TypeAnnotation,
		Data: objectstore.ObjectData{Annotation: &objectstore.AnnotationData{
			Subject: subject,
			Body:    body,
		}},
	}
}

func savedQueryObject(name, query, lang string) *objectstore.CollaborationObject {
	return &objectstore.CollaborationObject{
		Type: objectstore.TypeSavedQuery,
		Data: objectstore.ObjectData{SavedQuery: &objectstore.SavedQueryData{
			Name:      name,
			Query:     query,
			QueryLang: lang,
		}},
	}
}

func workspaceObject(name, kind string) *objectstore.CollaborationObject {
	return &objectstore.CollaborationObject{
		Type: objectstore.TypeWorkspace,
		Data: objectstore.ObjectData{Workspace: &objectstore.WorkspaceData{
			Name: name,
			Kind: kind,
		}},
	}
}

// TestIntegration_Provisioning verifies that index provisioning converges
// no matter how often it runs or which process runs it.
func TestIntegration_Provisioning(t *testing.T) {
	skipUnlessEnabled(t)

	ctx := context.Background()
	url := startBackendContainer(t, ctx)

	store := buildStore(t, url, "collabd-objects-provision")

	// First call creates the index, the second finds it in place.
	require.NoError(t, store.EnsureReady(ctx))
	require.NoError(t, store.EnsureReady(ctx))

	// A fresh store carries no in-process mapping state and takes the
	// additive mapping update path against the existing index.
	rebuilt := buildStore(t, url, "collabd-objects-provision")
	require.NoError(t, rebuilt.EnsureReady(ctx))
}

// TestIntegration_ObjectLifecycle runs the create/get/search/delete loop
// through the access gate against a real backend.
func TestIntegration_ObjectLifecycle(t *testing.T) {
	skipUnlessEnabled(t)

	ctx := context.Background()
	url := startBackendContainer(t, ctx)

	store := buildStore(t, url, "collabd-objects-lifecycle")
	gate, err := access.NewGate(store, logging.NewNop(), nil)
	require.NoError(t, err)

	analyst := &auth.Identity{User: "ivy", Tenant: "acme", Roles: []string{"analysts"}}
	admin := &auth.Identity{User: "root", Tenant: "acme", Roles: []string{auth.SuperuserRole}}
	stranger := &auth.Identity{User: "sam", Tenant: "acme", Roles: []string{"ops"}}
	outsider := &auth.Identity{User: "mallory", Tenant: "globex", Roles: []string{"analysts"}}

	noteID, err := gate.Create(ctx, analyst, noteObject("Quarterly findings", "Retention dipped in March.", "reports"), "")
	require.NoError(t, err)
	require.NotEmpty(t, noteID)

	t.Run("roundtrip_redacts_for_regular_callers", func(t *testing.T) {
		got, err := gate.Get(ctx, analyst, noteID)
		require.NoError(t, err)

		assert.Equal(t, noteID, got.ID)
		assert.Equal(t, objectstore.TypeNote, got.Type)
		require.NotNil(t, got.Data.Note)
		assert.Equal(t, "Quarterly findings", got.Data.Note.Title)
		assert.Equal(t, "Retention dipped in March.", got.Data.Note.Content)
		assert.Equal(t, "reports", got.Data.Note.Category)

		assert.False(t, got.UpdatedTime.IsZero())
		assert.True(t, got.CreatedTime.IsZero(), "creation time is withheld from regular callers")
		assert.Empty(t, got.Tenant)
		assert.Nil(t, got.Access)
	})

	t.Run("superuser_reads_full_metadata", func(t *testing.T) {
		got, err := gate.Get(ctx, admin, noteID)
		require.NoError(t, err)

		assert.Equal(t, "acme", got.Tenant)
		assert.Contains(t, got.Access, "user:ivy")
		assert.Contains(t, got.Access, "role:analysts")
		assert.False(t, got.CreatedTime.IsZero())
		assert.True(t, got.CreatedTime.Equal(got.UpdatedTime))
	})

	t.Run("create_rejects_duplicate_ids", func(t *testing.T) {
		_, err := gate.Create(ctx, analyst, workspaceObject("War room", "incident"), "pinned-workspace")
		require.NoError(t, err)

		_, err = gate.Create(ctx, analyst, workspaceObject("Second war room", "incident"), "pinned-workspace")
		require.ErrorIs(t, err, objectstore.ErrConflictingCreate)
	})

	t.Run("multi_get_reports_missing_ids", func(t *testing.T) {
		_, err := gate.MultiGet(ctx, analyst, []string{noteID, "ghost"})
		require.ErrorIs(t, err, access.ErrNotFound)
		assert.Contains(t, err.Error(), "ghost")

		objects, err := gate.MultiGet(ctx, analyst, []string{noteID})
		require.NoError(t, err)
		require.Len(t, objects, 1)
		assert.Equal(t, noteID, objects[0].ID)
	})

	t.Run("search_scopes_by_type_and_filter", func(t *testing.T) {
		annotationID, err := gate.Create(ctx, analyst, annotationObject("incident-7", "Spike correlates with the deploy."), "")
		require.NoError(t, err)
		_, err = gate.Create(ctx, analyst, savedQueryObject("errors by day", "status:500", "kuery"), "")
		require.NoError(t, err)

		byType, err := gate.Search(ctx, analyst, &objectstore.SearchRequest{
			Types: []objectstore.ObjectType{objectstore.TypeAnnotation},
		})
		require.NoError(t, err)
		require.Len(t, byType.Objects, 1)
		assert.Equal(t, annotationID, byType.Objects[0].ID)
		assert.Equal(t, objectstore.RelationEqualTo, byType.Relation)

		filtered, err := gate.Search(ctx, analyst, &objectstore.SearchRequest{
			Types:        []objectstore.ObjectType{objectstore.TypeSavedQuery},
			FilterParams: map[string]string{"queryLang": "kuery"},
		})
		require.NoError(t, err)
		require.Len(t, filtered.Objects, 1)
		require.NotNil(t, filtered.Objects[0].Data.SavedQuery)
		assert.Equal(t, "errors by day", filtered.Objects[0].Data.SavedQuery.Name)

		// Unrecognized filter keys are ignored, not errors.
		lenient, err := gate.Search(ctx, analyst, &objectstore.SearchRequest{
			Types:        []objectstore.ObjectType{objectstore.TypeSavedQuery},
			FilterParams: map[string]string{"queryLang": "kuery", "wavelength": "650nm"},
		})
		require.NoError(t, err)
		assert.Len(t, lenient.Objects, 1)
	})

	t.Run("visibility_follows_identity_tokens", func(t *testing.T) {
		// Same tenant but no overlapping tokens. The object exists and
		// stays out of reach.
		_, err := gate.Get(ctx, stranger, noteID)
		require.ErrorIs(t, err, access.ErrPermissionDenied)

		res, err := gate.Search(ctx, stranger, &objectstore.SearchRequest{
			Types: []objectstore.ObjectType{objectstore.TypeNote},
		})
		require.NoError(t, err)
		assert.Empty(t, res.Objects)
		assert.Zero(t, res.TotalHits)

		// Another tenant sees nothing at all.
		_, err = gate.Get(ctx, outsider, noteID)
		require.ErrorIs(t, err, access.ErrPermissionDenied)

		res, err = gate.Search(ctx, outsider, &objectstore.SearchRequest{})
		require.NoError(t, err)
		assert.Empty(t, res.Objects)
	})

	t.Run("paging_is_stable", func(t *testing.T) {
		titles := []string{"alpha", "bravo", "charlie", "delta", "echo"}
		for _, title := range titles {
			_, err := gate.Create(ctx, analyst, noteObject(title, "paging fixture", "paging"), "")
			require.NoError(t, err)
		}

		page := func(from, size int) *objectstore.SearchResult {
			res, err := gate.Search(ctx, analyst, &objectstore.SearchRequest{
				Types:        []objectstore.ObjectType{objectstore.TypeNote},
				FilterParams: map[string]string{"category": "paging"},
				FromIndex:    from,
				MaxItems:     size,
				SortField:    "note.title.keyword",
				SortOrder:    objectstore.SortAsc,
			})
			require.NoError(t, err)
			assert.Equal(t, int64(len(titles)), res.TotalHits)
			assert.Equal(t, objectstore.RelationEqualTo, res.Relation)
			return res
		}

		var seen []string
		for from := 0; from < len(titles); from += 2 {
			res := page(from, 2)
			assert.Equal(t, from, res.StartIndex)
			for i := range res.Objects {
				require.NotNil(t, res.Objects[i].Data.Note)
				seen = append(seen, res.Objects[i].Data.Note.Title)
			}
		}
		assert.Equal(t, titles, seen)

		// Past the last page the result is empty but totals still count.
		res := page(100, 2)
		assert.Empty(t, res.Objects)
	})

	t.Run("delete_removes_the_object", func(t *testing.T) {
		tempID, err := gate.Create(ctx, analyst, noteObject("scratch", "to be removed", ""), "")
		require.NoError(t, err)

		require.NoError(t, gate.Delete(ctx, analyst, tempID))

		_, err = gate.Get(ctx, analyst, tempID)
		require.ErrorIs(t, err, access.ErrNotFound)

		err = gate.Delete(ctx, analyst, tempID)
		require.ErrorIs(t, err, access.ErrNotFound)
	})

	t.Run("batch_delete_reports_per_id_outcomes", func(t *testing.T) {
		ids := make([]string, 0, 3)
		for _, name := range []string{"one", "two", "three"} {
			id, err := gate.Create(ctx, analyst, workspaceObject("temp "+name, "temp"), "")
			require.NoError(t, err)
			ids = append(ids, id)
		}

		statuses, err := gate.DeleteMany(ctx, analyst, ids)
		require.NoError(t, err)
		require.Len(t, statuses, 3)
		for _, id := range ids {
			assert.Equal(t, objectstore.DeleteOK, statuses[id])
		}

		for _, id := range ids {
			_, err := gate.Get(ctx, analyst, id)
			require.ErrorIs(t, err, access.ErrNotFound)
		}

		// A second pass fails the existence check before anything runs.
		_, err = gate.DeleteMany(ctx, analyst, ids[:1])
		require.ErrorIs(t, err, access.ErrNotFound)
	})
}
