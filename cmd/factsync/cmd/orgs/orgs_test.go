package orgs_test

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/factsync/cmd/application"
	"github.com/agentstation/factsync/cmd/factsync/cmd/orgs"
	"github.com/agentstation/factsync/pkg/errors"
	"github.com/agentstation/factsync/pkg/kb"
	"github.com/agentstation/factsync/pkg/kb/memory"
	"github.com/agentstation/factsync/pkg/sync"
)

const testdata = "../../../../pkg/orgs/testdata"

func newApp(store *memory.Store) *application.Mock {
	return &application.Mock{
		ClientFunc: func(context.Context) (kb.Client, error) { return store, nil },
		SyncOptionsFunc: func() ([]sync.Option, error) {
			return []sync.Option{sync.WithDelay(0)}, nil
		},
		OutputFormatFunc: func() string { return "json" },
	}
}

func execute(t *testing.T, app application.Application, args ...string) (map[string]any, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := orgs.NewCommand(app)
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	if err := cmd.ExecuteContext(context.Background()); err != nil {
		return nil, err
	}
	var res map[string]any
	require.NoError(t, json.Unmarshal(out.Bytes(), &res))
	return res, nil
}

func TestLink(t *testing.T) {
	path := filepath.Join(t.TempDir(), "links.csv")
	require.NoError(t, os.WriteFile(path, []byte("05gq02987,Q49114,Brown University\n"), 0o644))

	store := memory.New()
	store.Put(kb.Entity{ID: "Q49114"})

	res, err := execute(t, newApp(store), "link", path, "--property", "ror", "--release", "Q63589892")
	require.NoError(t, err)
	assert.EqualValues(t, 1, res["processed"])

	e, err := store.GetEntity(context.Background(), "Q49114")
	require.NoError(t, err)
	claims := e.ClaimsFor(kb.PropROR)
	require.Len(t, claims, 1)
	ref := claims[0].References[0]
	assert.Equal(t, kb.EntityID("Q63589892"), ref.Values(kb.PropStatedIn)[0].Item)
	assert.Equal(t, "05gq02987", ref.Values(kb.PropROR)[0].String)
	assert.Empty(t, ref.Values(kb.PropDOI))
}

func TestLinkRORNeedsRelease(t *testing.T) {
	path := filepath.Join(t.TempDir(), "links.csv")
	require.NoError(t, os.WriteFile(path, []byte("05gq02987,Q49114\n"), 0o644))

	_, err := execute(t, newApp(memory.New()), "link", path, "--property", "ror")
	assert.True(t, errors.IsValidationError(err))
}

func TestLinkRejectsProperty(t *testing.T) {
	_, err := execute(t, newApp(memory.New()), "link", "x.csv", "--property", "isni")
	assert.True(t, errors.IsValidationError(err))
}

func TestCreate(t *testing.T) {
	store := memory.New(memory.WithQuery(func(string) ([]kb.Binding, error) { return nil, nil }))

	res, err := execute(t, newApp(store), "create", filepath.Join(testdata, "ror.json"),
		"--release", "Q63589892",
		"--countries", filepath.Join(testdata, "countries.csv"),
		"--types", filepath.Join(testdata, "types.csv"),
	)
	require.NoError(t, err)

	// Acme names an unknown country; Brown and Berkeley are created.
	decisions := res["decisions"].(map[string]any)
	assert.EqualValues(t, 2, decisions["create_entity"])
	assert.Len(t, store.Entities(), 2)
}

func TestCreateNeedsRelease(t *testing.T) {
	_, err := execute(t, newApp(memory.New()), "create", filepath.Join(testdata, "ror.json"))
	assert.True(t, errors.IsValidationError(err))
}

func TestCreateGRID(t *testing.T) {
	var queries []string
	store := memory.New(memory.WithQuery(func(q string) ([]kb.Binding, error) {
		queries = append(queries, q)
		return []kb.Binding{{"item": "http://www.wikidata.org/entity/Q49114", "grid": "grid.40263.33"}}, nil
	}))

	res, err := execute(t, newApp(store), "create", filepath.Join(testdata, "grid.json"),
		"--dump", "grid",
		"--release", "Q23456",
		"--countries", filepath.Join(testdata, "countries.csv"),
		"--types", filepath.Join(testdata, "types.csv"),
	)
	require.NoError(t, err)
	require.Len(t, queries, 1)
	assert.Contains(t, queries[0], "P2427")

	decisions := res["decisions"].(map[string]any)
	assert.EqualValues(t, 1, decisions["create_entity"])
	ids := store.Entities()
	require.Len(t, ids, 1)
	e, err := store.GetEntity(context.Background(), ids[0])
	require.NoError(t, err)
	assert.Len(t, e.ClaimsFor(kb.PropGRID), 1)
}

func TestCreateRejectsDump(t *testing.T) {
	_, err := execute(t, newApp(memory.New()), "create", filepath.Join(testdata, "grid.json"),
		"--dump", "isni", "--release", "Q23456")
	assert.True(t, errors.IsValidationError(err))
}
