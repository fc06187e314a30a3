// Package wikibase implements kb.Client over the Wikibase Action API and
// a SPARQL query service, with bot-password login and CSRF tokens.
package wikibase

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/agentstation/factsync/internal/transport"
	"github.com/agentstation/factsync/pkg/constants"
	"github.com/agentstation/factsync/pkg/errors"
	"github.com/agentstation/factsync/pkg/kb"
	"github.com/agentstation/factsync/pkg/logging"
)

const service = "wikibase"

// Client talks to one Wikibase instance.
type Client struct {
	http      *transport.Client
	apiURL    string
	sparqlURL string
	username  string
	password  string
	maxLag    int

	mu    sync.Mutex
	token string
}

// Option configures a Client.
type Option func(*clientConfig)

type clientConfig struct {
	apiURL    string
	sparqlURL string
	username  string
	password  string
	userAgent string
	maxLag    int
	transport []transport.Option
}

// WithAPIURL sets the Action API endpoint.
func WithAPIURL(u string) Option {
	return func(c *clientConfig) { c.apiURL = u }
}

// WithSPARQLURL sets the query service endpoint.
func WithSPARQLURL(u string) Option {
	return func(c *clientConfig) { c.sparqlURL = u }
}

// WithCredentials sets the bot username and password.
func WithCredentials(username, password string) Option {
	return func(c *clientConfig) { c.username, c.password = username, password }
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *clientConfig) { c.userAgent = ua }
}

// WithMaxLag asks the server to refuse edits while replication lags
// more than n seconds. Zero disables the parameter.
func WithMaxLag(n int) Option {
	return func(c *clientConfig) { c.maxLag = n }
}

// WithTransport passes options to the underlying HTTP client.
func WithTransport(opts ...transport.Option) Option {
	return func(c *clientConfig) { c.transport = append(c.transport, opts...) }
}

// New creates a client. Without credentials the client is read-only.
func New(opts ...Option) *Client {
	cfg := &clientConfig{
		apiURL:    constants.DefaultAPIURL,
		sparqlURL: constants.DefaultSPARQLURL,
		userAgent: constants.DefaultUserAgent,
		maxLag:    5,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	topts := append([]transport.Option{transport.WithUserAgent(cfg.userAgent)}, cfg.transport...)
	return &Client{
		http:      transport.New(service, topts...),
		apiURL:    cfg.apiURL,
		sparqlURL: cfg.sparqlURL,
		username:  cfg.username,
		password:  cfg.password,
		maxLag:    cfg.maxLag,
	}
}

var _ kb.Client = (*Client)(nil)

// apiError is the error object of an Action API response.
type apiError struct {
	Code string `json:"code"`
	Info string `json:"info"`
}

type envelope struct {
	Error *apiError `json:"error"`
}

func (c *Client) check(env envelope, action string) error {
	if env.Error == nil {
		return nil
	}
	return &errors.APIError{
		Service:  service,
		Code:     env.Error.Code,
		Message:  env.Error.Info,
		Endpoint: action,
	}
}

// call performs a read-only action.
func (c *Client) call(ctx context.Context, params url.Values, out any) error {
	params.Set("format", "json")
	resp, err := c.http.Get(ctx, c.apiURL, params)
	if err != nil {
		return err
	}
	body, err := c.http.ReadBody(resp)
	if err != nil {
		return err
	}
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return errors.WrapParse("json", params.Get("action"), err)
	}
	if err := c.check(env, params.Get("action")); err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return errors.WrapParse("json", params.Get("action"), err)
	}
	return nil
}

// edit performs a mutating action with the CSRF token. A rejected token
// is refreshed once.
func (c *Client) edit(ctx context.Context, params url.Values, out any) error {
	params.Set("format", "json")
	params.Set("bot", "1")
	if c.maxLag > 0 {
		params.Set("maxlag", strconv.Itoa(c.maxLag))
	}
	if summary := kb.EditSummary(ctx); summary != "" {
		params.Set("summary", summary)
	}

	for attempt := 0; ; attempt++ {
		token, err := c.csrf(ctx, attempt > 0)
		if err != nil {
			return err
		}
		params.Set("token", token)

		err = c.post(ctx, params, out)
		var apiErr *errors.APIError
		if attempt == 0 && errors.As(err, &apiErr) && apiErr.Code == "badtoken" {
			logging.Ctx(ctx).Debug().Msg("refreshing csrf token")
			continue
		}
		return err
	}
}

func (c *Client) post(ctx context.Context, params url.Values, out any) error {
	action := params.Get("action")
	resp, err := c.http.PostForm(ctx, c.apiURL, params)
	if err != nil {
		return err
	}
	body, err := c.http.ReadBody(resp)
	if err != nil {
		return err
	}
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return errors.WrapParse("json", action, err)
	}
	if err := c.check(env, action); err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return errors.WrapParse("json", action, err)
	}
	return nil
}

type tokensResponse struct {
	Query struct {
		Tokens struct {
			CSRF  string `json:"csrftoken"`
			Login string `json:"logintoken"`
		} `json:"tokens"`
	} `json:"query"`
}

func (c *Client) fetchToken(ctx context.Context, kind string) (string, error) {
	var out tokensResponse
	if err := c.call(ctx, url.Values{"action": {"query"}, "meta": {"tokens"}, "type": {kind}}, &out); err != nil {
		return "", err
	}
	if kind == "login" {
		return out.Query.Tokens.Login, nil
	}
	return out.Query.Tokens.CSRF, nil
}

// Login authenticates with a bot password.
func (c *Client) Login(ctx context.Context) error {
	if c.username == "" {
		return errors.NewConfigError("wikibase", "username is required to log in", nil)
	}
	token, err := c.fetchToken(ctx, "login")
	if err != nil {
		return err
	}
	var out struct {
		Login struct {
			Result string `json:"result"`
			Reason string `json:"reason"`
		} `json:"login"`
	}
	form := url.Values{
		"action":     {"login"},
		"lgname":     {c.username},
		"lgpassword": {c.password},
		"lgtoken":    {token},
		"format":     {"json"},
	}
	if err := c.post(ctx, form, &out); err != nil {
		return err
	}
	if out.Login.Result != "Success" {
		return &errors.APIError{Service: service, StatusCode: 401, Code: "notloggedin", Message: out.Login.Result + ": " + out.Login.Reason}
	}
	c.mu.Lock()
	c.token = ""
	c.mu.Unlock()
	logging.Ctx(ctx).Info().Str("user", c.username).Msg("logged in")
	return nil
}

func (c *Client) csrf(ctx context.Context, refresh bool) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.token != "" && !refresh {
		return c.token, nil
	}
	token, err := c.fetchToken(ctx, "csrf")
	if err != nil {
		return "", err
	}
	if token == "" || token == "+\\" {
		return "", &errors.APIError{Service: service, StatusCode: 401, Code: "notloggedin", Message: "anonymous csrf token"}
	}
	c.token = token
	return token, nil
}

// GetEntity implements kb.Client.
func (c *Client) GetEntity(ctx context.Context, id kb.EntityID) (*kb.Entity, error) {
	var out struct {
		Entities map[string]entity `json:"entities"`
	}
	params := url.Values{
		"action": {"wbgetentities"},
		"ids":    {string(id)},
		"props":  {"labels|descriptions|claims"},
	}
	if err := c.call(ctx, params, &out); err != nil {
		var apiErr *errors.APIError
		if errors.As(err, &apiErr) && apiErr.Code == "no-such-entity" {
			return nil, errors.NewNotFoundError("entity", string(id))
		}
		return nil, err
	}
	e, ok := out.Entities[string(id)]
	if !ok || e.Missing != nil {
		return nil, errors.NewNotFoundError("entity", string(id))
	}
	return decodeEntity(e)
}

// NewGUID returns a fresh statement id for entity.
func NewGUID(entity kb.EntityID) string {
	return fmt.Sprintf("%s$%s", entity, strings.ToUpper(uuid.NewString()))
}

// CreateClaim implements kb.Client. The claim and its qualifiers are
// written by one wbsetclaim call.
func (c *Client) CreateClaim(ctx context.Context, entity kb.EntityID, claim kb.Claim) (string, error) {
	claim.ID = NewGUID(entity)
	claim.References = nil
	st, err := encodeStatement(claim)
	if err != nil {
		return "", err
	}
	data, err := json.Marshal(st)
	if err != nil {
		return "", err
	}
	var out struct {
		Claim statement `json:"claim"`
	}
	if err := c.edit(ctx, url.Values{"action": {"wbsetclaim"}, "claim": {string(data)}}, &out); err != nil {
		return "", err
	}
	if out.Claim.ID != "" {
		return out.Claim.ID, nil
	}
	return claim.ID, nil
}

// SetQualifier implements kb.Client.
func (c *Client) SetQualifier(ctx context.Context, claimID, hash string, qualifier kb.Snak) error {
	s, err := encodeSnak(qualifier)
	if err != nil {
		return err
	}
	params := url.Values{
		"action":   {"wbsetqualifier"},
		"claim":    {claimID},
		"property": {string(qualifier.Property)},
		"snaktype": {s.SnakType},
	}
	if s.DataValue != nil {
		params.Set("value", string(s.DataValue.Value))
	}
	if hash != "" {
		params.Set("snakhash", hash)
	}
	return c.edit(ctx, params, nil)
}

// RemoveQualifiers implements kb.Client.
func (c *Client) RemoveQualifiers(ctx context.Context, claimID string, hashes ...string) error {
	return c.edit(ctx, url.Values{
		"action":     {"wbremovequalifiers"},
		"claim":      {claimID},
		"qualifiers": {strings.Join(hashes, "|")},
	}, nil)
}

func (c *Client) setReference(ctx context.Context, claimID, hash string, ref kb.Reference) error {
	wr, err := encodeReference(ref)
	if err != nil {
		return err
	}
	snaks, err := json.Marshal(wr.Snaks)
	if err != nil {
		return err
	}
	params := url.Values{
		"action":      {"wbsetreference"},
		"statement":   {claimID},
		"snaks":       {string(snaks)},
		"snaks-order": {strings.Join(wr.SnaksOrder, "|")},
	}
	if hash != "" {
		params.Set("reference", hash)
	}
	return c.edit(ctx, params, nil)
}

// AddReference implements kb.Client.
func (c *Client) AddReference(ctx context.Context, claimID string, ref kb.Reference) error {
	return c.setReference(ctx, claimID, "", ref)
}

// ReplaceReference implements kb.Client. Passing the old hash to
// wbsetreference replaces the record in place.
func (c *Client) ReplaceReference(ctx context.Context, claimID, hash string, ref kb.Reference) error {
	if hash == "" {
		return errors.NewValidationError("hash", hash, "reference hash is required")
	}
	return c.setReference(ctx, claimID, hash, ref)
}

// RemoveReferences implements kb.Client.
func (c *Client) RemoveReferences(ctx context.Context, claimID string, hashes ...string) error {
	return c.edit(ctx, url.Values{
		"action":     {"wbremovereferences"},
		"statement":  {claimID},
		"references": {strings.Join(hashes, "|")},
	}, nil)
}

// CreateEntity implements kb.Client.
func (c *Client) CreateEntity(ctx context.Context, draft kb.Draft) (kb.EntityID, error) {
	e, err := encodeDraft(draft)
	if err != nil {
		return "", err
	}
	data, err := json.Marshal(e)
	if err != nil {
		return "", err
	}
	var out struct {
		Entity struct {
			ID string `json:"id"`
		} `json:"entity"`
	}
	if err := c.edit(ctx, url.Values{"action": {"wbeditentity"}, "new": {"item"}, "data": {string(data)}}, &out); err != nil {
		return "", err
	}
	if out.Entity.ID == "" {
		return "", &errors.APIError{Service: service, Message: "wbeditentity returned no entity id", Endpoint: "wbeditentity"}
	}
	return kb.EntityID(out.Entity.ID), nil
}

// Query implements kb.Client against the SPARQL endpoint.
func (c *Client) Query(ctx context.Context, sparql string) ([]kb.Binding, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.QueryTimeout)
	defer cancel()

	resp, err := c.http.Get(ctx, c.sparqlURL, url.Values{"query": {sparql}, "format": {"json"}})
	if err != nil {
		return nil, err
	}
	var out struct {
		Results struct {
			Bindings []map[string]struct {
				Value string `json:"value"`
			} `json:"bindings"`
		} `json:"results"`
	}
	if err := c.http.DecodeResponse(resp, &out); err != nil {
		return nil, err
	}
	rows := make([]kb.Binding, len(out.Results.Bindings))
	for i, b := range out.Results.Bindings {
		row := make(kb.Binding, len(b))
		for name, v := range b {
			row[name] = v.Value
		}
		rows[i] = row
	}
	return rows, nil
}
