// Package client runs selections against a GraphQL endpoint: it validates
// them against a catalog, renders the document, sends it through a transport
// and decodes the response.
package client

import (
	"context"
	"fmt"
	"time"

	"github.com/go-logr/logr"

	"github.com/hanpama/selgraph/internal/eventbus"
	"github.com/hanpama/selgraph/internal/events"
	"github.com/hanpama/selgraph/internal/introspection"
	"github.com/hanpama/selgraph/internal/query"
	"github.com/hanpama/selgraph/internal/reqid"
	"github.com/hanpama/selgraph/internal/schema"
	"github.com/hanpama/selgraph/internal/selection"
	"github.com/hanpama/selgraph/internal/transport"
)

// Client binds a catalog to a transport. It is safe for concurrent use.
type Client struct {
	schema *schema.Schema
	tr     transport.Transport
	log    logr.Logger
}

type Option func(*Client)

func WithLogger(l logr.Logger) Option { return func(c *Client) { c.log = l } }

// New creates a client for catalog s sending documents through tr.
func New(s *schema.Schema, tr transport.Transport, opts ...Option) *Client {
	c := &Client{schema: s, tr: tr, log: logr.Discard()}
	for _, f := range opts {
		f(c)
	}
	return c
}

func (c *Client) Schema() *schema.Schema { return c.schema }

// Query validates sel against the query root and executes it.
func (c *Client) Query(ctx context.Context, sel selection.Selection) (*query.Object, error) {
	return c.run(ctx, query.Query, sel)
}

// Mutate validates sel against the mutation root and executes it.
func (c *Client) Mutate(ctx context.Context, sel selection.Selection) (*query.Object, error) {
	return c.run(ctx, query.Mutation, sel)
}

func (c *Client) run(ctx context.Context, op query.Operation, sel selection.Selection) (*query.Object, error) {
	v, err := query.Validate(c.schema, op, sel)
	if err != nil {
		return nil, err
	}
	return c.Execute(ctx, v)
}

// Result is a decoded response together with the metadata of the HTTP
// exchange that produced it.
type Result struct {
	Data *query.Object
	Meta transport.Metadata
}

// Execute sends an already validated selection.
func (c *Client) Execute(ctx context.Context, v *query.Validated) (*query.Object, error) {
	res, err := c.Run(ctx, v)
	if err != nil {
		return nil, err
	}
	return res.Data, nil
}

// Run sends an already validated selection and keeps the response metadata.
func (c *Client) Run(ctx context.Context, v *query.Validated) (res *Result, err error) {
	if v == nil || v.Root() == nil {
		return nil, query.ErrNotValidated
	}
	ctx, rid := reqid.Ensure(ctx)
	doc := v.Render()
	op := v.Operation().String()
	root := v.Root().Name
	log := c.log.WithValues("requestID", rid, "operation", op)
	log.V(1).Info("executing", "document", doc)

	start := time.Now()
	eventbus.Publish(ctx, events.OperationStart{Operation: op, Root: root, Document: doc})
	defer func() {
		d := time.Since(start)
		eventbus.Publish(ctx, events.OperationFinish{Operation: op, Root: root, Document: doc, Err: err, Duration: d})
		if err != nil {
			log.Error(err, "operation failed", "duration", d)
			return
		}
		log.V(1).Info("operation finished", "duration", d)
	}()

	resp, err := c.tr.Do(ctx, doc)
	if err != nil {
		return nil, err
	}
	data, err := query.DecodeJSON(v, resp.Data)
	if err != nil {
		return nil, err
	}
	return &Result{Data: data, Meta: resp.Meta}, nil
}

// Introspect fetches the catalog of the server behind tr.
func Introspect(ctx context.Context, tr transport.Transport, opts ...introspection.Option) (*schema.Schema, error) {
	resp, err := tr.Do(ctx, introspection.Query)
	if err != nil {
		return nil, fmt.Errorf("introspect: %w", err)
	}
	return introspection.Parse(resp.Data, opts...)
}
