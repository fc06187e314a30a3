package wikibase_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/factsync/internal/wikibase"
	"github.com/agentstation/factsync/pkg/errors"
	"github.com/agentstation/factsync/pkg/kb"
)

const carbon14 = `{"entities":{"Q1234":{"id":"Q1234",
 "labels":{"en":{"language":"en","value":"carbon-14"}},
 "claims":{"P2114":[{"id":"Q1234$ABC","type":"statement","rank":"normal",
   "mainsnak":{"snaktype":"value","property":"P2114","datavalue":{"type":"quantity",
     "value":{"amount":"+5700","upperBound":"+5730","lowerBound":"+5670","unit":"http://www.wikidata.org/entity/Q1092296"}}},
   "qualifiers":{"P2571":[{"snaktype":"value","property":"P2571","hash":"q1","datavalue":{"type":"wikibase-entityid","value":{"entity-type":"item","numeric-id":159375,"id":"Q159375"}}}]},
   "qualifiers-order":["P2571"],
   "references":[{"hash":"r1","snaks":{
     "P248":[{"snaktype":"value","property":"P248","datavalue":{"type":"wikibase-entityid","value":{"entity-type":"item","numeric-id":777}}}],
     "P813":[{"snaktype":"value","property":"P813","datavalue":{"type":"time","value":{"time":"+2016-06-23T00:00:00Z","timezone":0,"before":0,"after":0,"precision":11,"calendarmodel":"http://www.wikidata.org/entity/Q1985727"}}}]},
     "snaks-order":["P248","P813"]}]}],
  "P816":[{"id":"Q1234$DEF","type":"statement","mainsnak":{"snaktype":"somevalue","property":"P816"}}]}}}}`

// fakeAPI answers the subset of Action API calls the client makes.
type fakeAPI struct {
	mu        sync.Mutex
	calls     []map[string]string
	badTokens int
	loggedIn  bool
}

func (f *fakeAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	_ = r.ParseForm()
	params := map[string]string{}
	for k := range r.Form {
		params[k] = r.Form.Get(k)
	}
	f.mu.Lock()
	f.calls = append(f.calls, params)
	f.mu.Unlock()

	if tok := params["token"]; tok != "" && params["action"] != "login" {
		f.mu.Lock()
		bad := f.badTokens > 0
		if bad {
			f.badTokens--
		}
		f.mu.Unlock()
		if bad {
			fmt.Fprint(w, `{"error":{"code":"badtoken","info":"Invalid CSRF token."}}`)
			return
		}
	}

	switch params["action"] {
	case "query":
		if params["type"] == "login" {
			fmt.Fprint(w, `{"query":{"tokens":{"logintoken":"L+\\"}}}`)
			return
		}
		if !f.loggedIn {
			fmt.Fprint(w, `{"query":{"tokens":{"csrftoken":"+\\"}}}`)
			return
		}
		fmt.Fprint(w, `{"query":{"tokens":{"csrftoken":"tok+\\"}}}`)
	case "login":
		if params["lgpassword"] != "secret" {
			fmt.Fprint(w, `{"login":{"result":"Failed","reason":"Incorrect password"}}`)
			return
		}
		f.loggedIn = true
		fmt.Fprint(w, `{"login":{"result":"Success","lguserid":1,"lgusername":"Bot"}}`)
	case "wbgetentities":
		if params["ids"] == "Q1234" {
			fmt.Fprint(w, carbon14)
			return
		}
		fmt.Fprintf(w, `{"entities":{"%s":{"id":"%s","missing":""}}}`, params["ids"], params["ids"])
	case "wbsetclaim":
		fmt.Fprintf(w, `{"success":1,"claim":%s}`, params["claim"])
	case "wbsetqualifier", "wbsetreference", "wbremovequalifiers", "wbremovereferences":
		fmt.Fprint(w, `{"success":1}`)
	case "wbeditentity":
		fmt.Fprint(w, `{"success":1,"entity":{"id":"Q4242"}}`)
	default:
		fmt.Fprint(w, `{"error":{"code":"unknown_action","info":"no such action"}}`)
	}
}

func (f *fakeAPI) last(action string) map[string]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.calls) - 1; i >= 0; i-- {
		if f.calls[i]["action"] == action {
			return f.calls[i]
		}
	}
	return nil
}

func newClient(t *testing.T, api *fakeAPI, password string) *wikibase.Client {
	t.Helper()
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)
	return wikibase.New(
		wikibase.WithAPIURL(srv.URL),
		wikibase.WithSPARQLURL(srv.URL+"/sparql"),
		wikibase.WithCredentials("Bot@factsync", password),
		wikibase.WithUserAgent("factsync-test"),
	)
}

func TestGetEntity(t *testing.T) {
	c := newClient(t, &fakeAPI{}, "secret")
	e, err := c.GetEntity(context.Background(), "Q1234")
	require.NoError(t, err)

	assert.Equal(t, "carbon-14", e.Labels["en"])
	hl := e.ClaimsFor(kb.PropHalfLife)
	require.Len(t, hl, 1)
	q := hl[0].Value.Quantity
	assert.Equal(t, 5700.0, q.Amount)
	assert.Equal(t, 5670.0, q.Lower)
	assert.Equal(t, 5730.0, q.Upper)
	assert.Equal(t, kb.EntityID("Q1092296"), q.Unit)
	require.Len(t, hl[0].Qualifiers, 1)
	assert.Equal(t, "q1", hl[0].Qualifiers[0].Hash)
	assert.Equal(t, kb.EntityID("Q159375"), hl[0].Qualifiers[0].Value.Item)

	require.Len(t, hl[0].References, 1)
	ref := hl[0].References[0]
	assert.Equal(t, "r1", ref.Hash)
	assert.Equal(t, kb.EntityID("Q777"), ref.Values(kb.PropStatedIn)[0].Item)
	retrieved := ref.Values(kb.PropRetrieved)[0].Time
	assert.True(t, retrieved.Time.Equal(time.Date(2016, 6, 23, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, kb.PrecisionDay, retrieved.Precision)

	decays := e.ClaimsFor(kb.PropDecaysTo)
	require.Len(t, decays, 1)
	assert.Equal(t, kb.KindSomeValue, decays[0].Value.Kind)

	_, err = c.GetEntity(context.Background(), "Q9")
	assert.True(t, errors.IsNotFound(err))
}

func TestLogin(t *testing.T) {
	api := &fakeAPI{}
	c := newClient(t, api, "wrong")
	err := c.Login(context.Background())
	assert.True(t, errors.IsUnauthorized(err))

	_, err = c.CreateClaim(context.Background(), "Q1234", kb.Claim{Property: kb.PropGRID, Value: kb.String("grid.1")})
	assert.True(t, errors.IsUnauthorized(err), "anonymous token is refused before editing")

	c = newClient(t, &fakeAPI{}, "secret")
	require.NoError(t, c.Login(context.Background()))
}

func TestCreateClaim(t *testing.T) {
	api := &fakeAPI{}
	c := newClient(t, api, "secret")
	require.NoError(t, c.Login(context.Background()))

	ctx := kb.WithEditSummary(context.Background(), "Adding half-life from NuDat")
	id, err := c.CreateClaim(ctx, "Q1234", kb.Claim{
		Property:   kb.PropHalfLife,
		Value:      kb.Amount(5700, 30, "Q1092296"),
		Qualifiers: []kb.Snak{{Property: kb.PropUncertaintyMeans, Value: kb.Item(kb.ItemStandardDeviation)}},
	})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(id, "Q1234$"))

	call := api.last("wbsetclaim")
	require.NotNil(t, call)
	assert.Equal(t, "tok+\\", call["token"])
	assert.Equal(t, "1", call["bot"])
	assert.Equal(t, "Adding half-life from NuDat", call["summary"])

	var st map[string]any
	require.NoError(t, json.Unmarshal([]byte(call["claim"]), &st))
	assert.Equal(t, id, st["id"])
	main := st["mainsnak"].(map[string]any)
	value := main["datavalue"].(map[string]any)["value"].(map[string]any)
	assert.Equal(t, "+5700", value["amount"])
	assert.Equal(t, "+5670", value["lowerBound"])
	assert.Equal(t, "http://www.wikidata.org/entity/Q1092296", value["unit"])
	assert.Contains(t, st["qualifiers"], "P2571")
}

func TestBadTokenRetried(t *testing.T) {
	api := &fakeAPI{badTokens: 1}
	c := newClient(t, api, "secret")
	require.NoError(t, c.Login(context.Background()))

	err := c.AddReference(context.Background(), "Q1234$ABC", kb.Reference{Snaks: []kb.Snak{
		{Property: kb.PropStatedIn, Value: kb.Item("Q777")},
		{Property: kb.PropReferenceURL, Value: kb.String("https://example.org")},
	}})
	require.NoError(t, err)

	call := api.last("wbsetreference")
	assert.Equal(t, "Q1234$ABC", call["statement"])
	assert.Equal(t, "P248|P854", call["snaks-order"])
	assert.Empty(t, call["reference"])

	require.NoError(t, c.ReplaceReference(context.Background(), "Q1234$ABC", "r1", kb.Reference{Snaks: []kb.Snak{
		{Property: kb.PropStatedIn, Value: kb.Item("Q777")},
	}}))
	assert.Equal(t, "r1", api.last("wbsetreference")["reference"])

	assert.Error(t, c.ReplaceReference(context.Background(), "Q1234$ABC", "", kb.Reference{}))
}

func TestQualifiersAndEntities(t *testing.T) {
	api := &fakeAPI{}
	c := newClient(t, api, "secret")
	require.NoError(t, c.Login(context.Background()))
	ctx := context.Background()

	require.NoError(t, c.SetQualifier(ctx, "Q1234$DEF", "h1", kb.Snak{Property: kb.PropProportion, Value: kb.Amount(0.982, 0, "")}))
	call := api.last("wbsetqualifier")
	assert.Equal(t, "h1", call["snakhash"])
	assert.Equal(t, "value", call["snaktype"])
	assert.JSONEq(t, `{"amount":"+0.982","unit":"1"}`, call["value"])

	require.NoError(t, c.RemoveQualifiers(ctx, "Q1234$DEF", "h1", "h2"))
	assert.Equal(t, "h1|h2", api.last("wbremovequalifiers")["qualifiers"])
	require.NoError(t, c.RemoveReferences(ctx, "Q1234$DEF", "r1"))
	assert.Equal(t, "r1", api.last("wbremovereferences")["references"])

	id, err := c.CreateEntity(ctx, kb.Draft{
		Labels:  map[string]string{"en": "Brown University"},
		Aliases: map[string][]string{"en": {"BU"}},
		Claims:  []kb.Claim{{Property: kb.PropInception, Value: kb.Date(time.Date(1764, 5, 1, 0, 0, 0, 0, time.UTC), kb.PrecisionYear)}},
	})
	require.NoError(t, err)
	assert.Equal(t, kb.EntityID("Q4242"), id)
	call = api.last("wbeditentity")
	assert.Equal(t, "item", call["new"])
	assert.Contains(t, call["data"], `"time":"+1764-01-01T00:00:00Z"`)
	assert.Contains(t, call["data"], `"precision":9`)
}

func TestQuery(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/sparql", r.URL.Path)
		assert.Contains(t, r.URL.Query().Get("query"), "P6782")
		fmt.Fprint(w, `{"head":{"vars":["item","ror"]},"results":{"bindings":[
			{"item":{"type":"uri","value":"http://www.wikidata.org/entity/Q49114"},"ror":{"type":"literal","value":"05gq02987"}}]}}`)
	}))
	defer srv.Close()

	c := wikibase.New(wikibase.WithSPARQLURL(srv.URL + "/sparql"))
	rows, err := c.Query(context.Background(), `SELECT ?item ?ror WHERE { ?item p:P6782/ps:P6782 ?ror . }`)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "05gq02987", rows[0]["ror"])
	assert.Equal(t, kb.EntityID("Q49114"), kb.EntityIDFromURI(rows[0]["item"]))
}

func TestNewGUID(t *testing.T) {
	a, b := wikibase.NewGUID("Q1"), wikibase.NewGUID("Q1")
	assert.NotEqual(t, a, b)
	assert.True(t, strings.HasPrefix(a, "Q1$"))
	assert.Len(t, a, len("Q1$")+36)
}
