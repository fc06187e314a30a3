package nuclides_test

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/factsync"
	"github.com/agentstation/factsync/cmd/application"
	"github.com/agentstation/factsync/cmd/factsync/cmd/nuclides"
	"github.com/agentstation/factsync/pkg/constants"
	"github.com/agentstation/factsync/pkg/kb"
	"github.com/agentstation/factsync/pkg/kb/memory"
	"github.com/agentstation/factsync/pkg/nuclide"
	"github.com/agentstation/factsync/pkg/nudat"
	"github.com/agentstation/factsync/pkg/sync"
)

type fakeSource map[nuclide.Key][]nudat.Raw

func (f fakeSource) Measurements(_ context.Context, key nuclide.Key) ([]nudat.Raw, error) {
	return f[key], nil
}

func newApp(t *testing.T, store *memory.Store) *application.Mock {
	t.Helper()
	c14 := nuclide.Key{Z: 6, N: 8}
	src := fakeSource{c14: {
		{Key: c14, Kind: nudat.HalfLife, Value: "5700", Uncertainty: "30", Unit: "y", URL: "https://example.org/c14"},
	}}
	dir := t.TempDir()
	return &application.Mock{
		ClientFunc: func(context.Context) (kb.Client, error) { return store, nil },
		PipelineOptionsFunc: func() ([]factsync.Option, error) {
			return []factsync.Option{factsync.WithSource(src)}, nil
		},
		SyncOptionsFunc: func() ([]sync.Option, error) {
			return []sync.Option{sync.WithDelay(0)}, nil
		},
		DataDirFunc:      func() string { return dir },
		OutputFormatFunc: func() string { return "json" },
	}
}

func newStore() *memory.Store {
	s := memory.New(memory.WithQuery(func(sparql string) ([]kb.Binding, error) {
		if !strings.Contains(sparql, "Q25276") {
			return nil, nil
		}
		return []kb.Binding{
			{"item": "http://www.wikidata.org/entity/Q1753", "itemLabel": "carbon-14", "z": "6", "n": "8"},
		}, nil
	}))
	s.Put(kb.Entity{ID: "Q1753"})
	return s
}

func TestExtractWritesChangedRows(t *testing.T) {
	app := newApp(t, newStore())

	var out bytes.Buffer
	cmd := nuclides.NewExtractCommand(app)
	cmd.SetOut(&out)
	cmd.SetArgs(nil)
	require.NoError(t, cmd.ExecuteContext(context.Background()))

	data, err := os.ReadFile(filepath.Join(app.DataDir(), constants.HalfLifeFile))
	require.NoError(t, err)
	assert.Contains(t, string(data), "Q1753")

	var summary map[string]any
	require.NoError(t, json.Unmarshal(out.Bytes(), &summary))
	assert.EqualValues(t, 1, summary["HalfLivesChanged"])
}

func TestApplyRowFile(t *testing.T) {
	store := newStore()
	app := newApp(t, store)

	extract := nuclides.NewExtractCommand(app)
	extract.SetOut(&bytes.Buffer{})
	require.NoError(t, extract.ExecuteContext(context.Background()))

	var out bytes.Buffer
	apply := nuclides.NewApplyCommand(app)
	apply.SetOut(&out)
	report := filepath.Join(t.TempDir(), "provenance.yaml")
	apply.SetArgs([]string{"half_life", filepath.Join(app.DataDir(), constants.HalfLifeFile), "--report", report})
	require.NoError(t, apply.ExecuteContext(context.Background()))

	var res map[string]any
	require.NoError(t, json.Unmarshal(out.Bytes(), &res))
	assert.EqualValues(t, 1, res["processed"])

	e, err := store.GetEntity(context.Background(), "Q1753")
	require.NoError(t, err)
	assert.Len(t, e.ClaimsFor(kb.PropHalfLife), 1)

	data, err := os.ReadFile(report)
	require.NoError(t, err)
	assert.Contains(t, string(data), "entity: Q1753")
	assert.Contains(t, string(data), "action: create_claim")
}

func TestApplyRejectsUnknownKind(t *testing.T) {
	cmd := nuclides.NewApplyCommand(newApp(t, newStore()))
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"mass", "x.csv"})
	assert.Error(t, cmd.ExecuteContext(context.Background()))
}

func TestSyncDryRun(t *testing.T) {
	store := newStore()
	app := newApp(t, store)

	var out bytes.Buffer
	cmd := nuclides.NewSyncCommand(app)
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"--dry-run", "--save"})
	require.NoError(t, cmd.ExecuteContext(context.Background()))

	var res map[string]any
	require.NoError(t, json.Unmarshal(out.Bytes(), &res))
	assert.Equal(t, true, res["dry_run"])
	assert.Len(t, res["plans"], 1)
	assert.Empty(t, store.Mutations())

	_, err := os.Stat(filepath.Join(app.DataDir(), constants.HalfLifeFile))
	assert.NoError(t, err)
}
