package main

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-logr/logr"
	"github.com/go-logr/stdr"
	"github.com/goccy/go-json"

	"github.com/hanpama/selgraph/internal/client"
	"github.com/hanpama/selgraph/internal/eventbus"
	"github.com/hanpama/selgraph/internal/introspection"
	"github.com/hanpama/selgraph/internal/otel"
	"github.com/hanpama/selgraph/internal/query"
	"github.com/hanpama/selgraph/internal/schema"
	"github.com/hanpama/selgraph/internal/selection"
	"github.com/hanpama/selgraph/internal/transport"
)

const rootUsage = `selgraph — typed GraphQL selections: validate, render, run

USAGE:
  selgraph <command> [flags]

COMMANDS:
  introspect       Fetch a server's introspection result
  sdl              Print a schema as SDL
  check            Validate a selection document against a schema
  render           Print the GraphQL document for a selection
  run              Execute a selection and print the decoded result
  help             Show help for any command
`

const introspectUsage = `introspect FLAGS:
  -endpoint <url>                  GraphQL endpoint (required unless -schema is given)
  -schema <file>                   Export the payload of an SDL or JSON schema file instead
  -header <Key=Value>              Extra request header. Repeatable
  -out <file>                      Write the payload to file (default: stdout)
  -transport.timeout <duration>    Per-attempt timeout (default: 30s)
  -transport.retries N             Retries on transient failures (default: 2)
  -v N                             Log verbosity (default: 0)
`

const sdlUsage = `sdl FLAGS:
  -schema <file>   Schema as SDL (.graphql) or introspection JSON (.json) (required)
  -out <file>      Write SDL to file (default: stdout)
`

const checkUsage = `check FLAGS:
  -schema <file>      Schema as SDL (.graphql) or introspection JSON (.json) (required)
  -selection <file>   YAML selection document (required)
  -mutation           Validate against the mutation root
  (Exits non-zero when the selection is invalid)
`

const renderUsage = `render FLAGS:
  -schema <file>      Schema as SDL (.graphql) or introspection JSON (.json) (required)
  -selection <file>   YAML selection document (required)
  -mutation           Render a mutation
  -indent             One field per line
`

const runUsage = `run FLAGS:
  -endpoint <url>                  GraphQL endpoint (required)
  -schema <file>                   Schema file; introspected from the endpoint if empty
  -selection <file>                YAML selection document (required)
  -mutation                        Execute as a mutation
  -pretty                          Indent the JSON result
  -header <Key=Value>              Extra request header. Repeatable
  -transport.timeout <duration>    Per-attempt timeout (default: 30s)
  -transport.retries N             Retries on transient failures (default: 2)
  -otel.endpoint <addr>            OTLP collector endpoint
  -otel.service <name>             OpenTelemetry service name (default: selgraph)
  -v N                             Log verbosity (default: 0)
`

func main() {
	if err := run(os.Args[1:]); err != nil {
		log.Fatal(err)
	}
}

func run(args []string) error {
	global := flag.NewFlagSet("selgraph", flag.ContinueOnError)
	global.SetOutput(new(bytes.Buffer)) // silence automatic output
	if err := global.Parse(args); err != nil {
		fmt.Fprint(os.Stderr, rootUsage)
		return err
	}
	remaining := global.Args()
	if len(remaining) == 0 {
		fmt.Fprint(os.Stderr, rootUsage)
		return fmt.Errorf("missing command")
	}

	cmd := remaining[0]
	cmdArgs := remaining[1:]
	switch cmd {
	case "introspect":
		return cmdIntrospect(cmdArgs)
	case "sdl":
		return cmdSDL(cmdArgs)
	case "check":
		return cmdCheck(cmdArgs)
	case "render":
		return cmdRender(cmdArgs)
	case "run":
		return cmdRun(cmdArgs)
	case "help":
		return cmdHelp(cmdArgs)
	default:
		fmt.Fprint(os.Stderr, rootUsage)
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func cmdHelp(args []string) error {
	if len(args) == 0 {
		fmt.Print(rootUsage)
		return nil
	}
	switch args[0] {
	case "introspect":
		fmt.Print(introspectUsage)
	case "sdl":
		fmt.Print(sdlUsage)
	case "check":
		fmt.Print(checkUsage)
	case "render":
		fmt.Print(renderUsage)
	case "run":
		fmt.Print(runUsage)
	default:
		return fmt.Errorf("unknown help topic %q", args[0])
	}
	return nil
}

type headerFlag struct {
	h http.Header
}

func (f *headerFlag) String() string { return "" }

func (f *headerFlag) Set(v string) error {
	key, value, ok := strings.Cut(v, "=")
	if !ok {
		key, value, ok = strings.Cut(v, ":")
	}
	key = strings.TrimSpace(key)
	if !ok || key == "" {
		return fmt.Errorf("invalid header %q", v)
	}
	if f.h == nil {
		f.h = http.Header{}
	}
	f.h.Add(key, strings.TrimSpace(value))
	return nil
}

// transportFlags are shared by the commands that talk to a server.
type transportFlags struct {
	endpoint  string
	headers   headerFlag
	timeout   time.Duration
	retries   int
	verbosity int
}

func (tf *transportFlags) register(fs *flag.FlagSet) {
	tf.timeout = 30 * time.Second
	tf.retries = 2
	fs.StringVar(&tf.endpoint, "endpoint", "", "GraphQL endpoint")
	fs.Var(&tf.headers, "header", "Extra request header")
	fs.DurationVar(&tf.timeout, "transport.timeout", tf.timeout, "Per-attempt timeout")
	fs.IntVar(&tf.retries, "transport.retries", tf.retries, "Retries on transient failures")
	fs.IntVar(&tf.verbosity, "v", 0, "Log verbosity")
}

func (tf *transportFlags) logger() logr.Logger {
	stdr.SetVerbosity(tf.verbosity)
	return stdr.New(log.New(os.Stderr, "", log.LstdFlags))
}

func (tf *transportFlags) transport(logger logr.Logger) *transport.HTTP {
	opts := []transport.Option{
		transport.WithTimeout(tf.timeout),
		transport.WithRetries(tf.retries),
		transport.WithLogger(logger.WithName("transport")),
	}
	for k, vs := range tf.headers.h {
		for _, v := range vs {
			opts = append(opts, transport.WithHeader(k, v))
		}
	}
	return transport.NewHTTP(tf.endpoint, opts...)
}

func cmdIntrospect(args []string) error {
	var tf transportFlags
	schemaFile := ""
	outFile := ""
	fs := flag.NewFlagSet("introspect", flag.ContinueOnError)
	fs.SetOutput(new(bytes.Buffer))
	tf.register(fs)
	fs.StringVar(&schemaFile, "schema", schemaFile, "Schema file to export")
	fs.StringVar(&outFile, "out", outFile, "Write the payload to file")
	if err := fs.Parse(args); err != nil {
		fmt.Fprint(os.Stderr, introspectUsage)
		return err
	}

	var data any
	switch {
	case schemaFile != "":
		s, err := loadSchema(schemaFile)
		if err != nil {
			return err
		}
		data = introspection.FromSchema(s)
	case tf.endpoint != "":
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		resp, err := tf.transport(tf.logger()).Do(ctx, introspection.Query)
		if err != nil {
			return fmt.Errorf("introspect: %w", err)
		}
		if _, err := introspection.Parse(resp.Data); err != nil {
			return err
		}
		data = resp.Data
	default:
		fmt.Fprint(os.Stderr, introspectUsage)
		return fmt.Errorf("-endpoint is required")
	}
	envelope, err := json.Marshal(struct {
		Data any `json:"data"`
	}{data})
	if err != nil {
		return err
	}
	out, err := indentJSON(envelope)
	if err != nil {
		return err
	}
	return writeOutput(outFile, out)
}

func cmdSDL(args []string) error {
	schemaFile := ""
	outFile := ""
	fs := flag.NewFlagSet("sdl", flag.ContinueOnError)
	fs.SetOutput(new(bytes.Buffer))
	fs.StringVar(&schemaFile, "schema", schemaFile, "Schema file")
	fs.StringVar(&outFile, "out", outFile, "Write SDL to file")
	if err := fs.Parse(args); err != nil {
		fmt.Fprint(os.Stderr, sdlUsage)
		return err
	}
	if schemaFile == "" {
		fmt.Fprint(os.Stderr, sdlUsage)
		return fmt.Errorf("-schema is required")
	}
	sch, err := loadSchema(schemaFile)
	if err != nil {
		return err
	}
	return writeOutput(outFile, []byte(schema.Render(sch)))
}

// operationFlags are shared by check and render.
type operationFlags struct {
	schemaFile    string
	selectionFile string
	mutation      bool
}

func (of *operationFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&of.schemaFile, "schema", "", "Schema file")
	fs.StringVar(&of.selectionFile, "selection", "", "YAML selection document")
	fs.BoolVar(&of.mutation, "mutation", false, "Use the mutation root")
}

func (of *operationFlags) operation() query.Operation {
	if of.mutation {
		return query.Mutation
	}
	return query.Query
}

func (of *operationFlags) validate() (*query.Validated, error) {
	sch, err := loadSchema(of.schemaFile)
	if err != nil {
		return nil, err
	}
	sel, err := loadSelection(of.selectionFile)
	if err != nil {
		return nil, err
	}
	return query.Validate(sch, of.operation(), sel)
}

func (of *operationFlags) required(usage string) error {
	switch {
	case of.schemaFile == "":
		fmt.Fprint(os.Stderr, usage)
		return fmt.Errorf("-schema is required")
	case of.selectionFile == "":
		fmt.Fprint(os.Stderr, usage)
		return fmt.Errorf("-selection is required")
	}
	return nil
}

func cmdCheck(args []string) error {
	var of operationFlags
	fs := flag.NewFlagSet("check", flag.ContinueOnError)
	fs.SetOutput(new(bytes.Buffer))
	of.register(fs)
	if err := fs.Parse(args); err != nil {
		fmt.Fprint(os.Stderr, checkUsage)
		return err
	}
	if err := of.required(checkUsage); err != nil {
		return err
	}

	_, err := of.validate()
	var verr *query.ValidationError
	if errors.As(err, &verr) {
		writeErrorTree(os.Stdout, verr.Fields, 0)
		return fmt.Errorf("%s: %d validation errors", of.selectionFile, len(verr.Errors()))
	}
	if err != nil {
		return err
	}
	fmt.Println("ok")
	return nil
}

// writeErrorTree prints one line per failure, nested like the selection.
func writeErrorTree(w io.Writer, nodes []*query.FieldErrors, depth int) {
	pad := strings.Repeat("  ", depth)
	for _, n := range nodes {
		if len(n.Errors) == 0 {
			fmt.Fprintf(w, "%s%s:\n", pad, n.Key)
		}
		for _, e := range n.Errors {
			fmt.Fprintf(w, "%s%s: %s\n", pad, n.Key, e.Message)
		}
		writeErrorTree(w, n.Fields, depth+1)
	}
}

func cmdRender(args []string) error {
	var of operationFlags
	indent := false
	fs := flag.NewFlagSet("render", flag.ContinueOnError)
	fs.SetOutput(new(bytes.Buffer))
	of.register(fs)
	fs.BoolVar(&indent, "indent", indent, "One field per line")
	if err := fs.Parse(args); err != nil {
		fmt.Fprint(os.Stderr, renderUsage)
		return err
	}
	if err := of.required(renderUsage); err != nil {
		return err
	}

	v, err := of.validate()
	if err != nil {
		return err
	}
	if indent {
		fmt.Print(v.RenderIndent("  "))
		return nil
	}
	fmt.Println(v.Render())
	return nil
}

func cmdRun(args []string) error {
	var tf transportFlags
	var of operationFlags
	pretty := false
	otelEndpoint := ""
	otelService := "selgraph"
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	fs.SetOutput(new(bytes.Buffer))
	tf.register(fs)
	of.register(fs)
	fs.BoolVar(&pretty, "pretty", pretty, "Indent the JSON result")
	fs.StringVar(&otelEndpoint, "otel.endpoint", otelEndpoint, "OTLP collector endpoint")
	fs.StringVar(&otelService, "otel.service", otelService, "OpenTelemetry service name")
	if err := fs.Parse(args); err != nil {
		fmt.Fprint(os.Stderr, runUsage)
		return err
	}
	if tf.endpoint == "" {
		fmt.Fprint(os.Stderr, runUsage)
		return fmt.Errorf("-endpoint is required")
	}
	if of.selectionFile == "" {
		fmt.Fprint(os.Stderr, runUsage)
		return fmt.Errorf("-selection is required")
	}

	sel, err := loadSelection(of.selectionFile)
	if err != nil {
		return err
	}

	eventbus.Use(eventbus.New())
	defer eventbus.Use(nil)
	shutdown, err := otel.Setup(otelEndpoint, otelService)
	if err != nil {
		return fmt.Errorf("otel setup: %w", err)
	}
	defer func() { _ = shutdown(context.Background()) }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	logger := tf.logger()
	tr := tf.transport(logger)

	var sch *schema.Schema
	if of.schemaFile != "" {
		sch, err = loadSchema(of.schemaFile)
	} else {
		logger.V(1).Info("introspecting", "endpoint", tf.endpoint)
		sch, err = client.Introspect(ctx, tr)
	}
	if err != nil {
		return err
	}

	c := client.New(sch, tr, client.WithLogger(logger.WithName("client")))
	var res *query.Object
	if of.mutation {
		res, err = c.Mutate(ctx, sel)
	} else {
		res, err = c.Query(ctx, sel)
	}
	if err != nil {
		return err
	}

	out, err := json.Marshal(res)
	if err != nil {
		return err
	}
	if !pretty {
		return writeOutput("", append(out, '\n'))
	}
	if out, err = indentJSON(out); err != nil {
		return err
	}
	return writeOutput("", out)
}

// loadSchema reads SDL, or an introspection result when the file ends in
// .json.
func loadSchema(path string) (*schema.Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return introspection.Parse(data)
	}
	sch, err := schema.BuildFromSDL(filepath.Base(path), string(data))
	if err != nil {
		return nil, fmt.Errorf("build schema: %w", err)
	}
	return sch, nil
}

func loadSelection(path string) (selection.Selection, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return selection.Selection{}, err
	}
	sel, err := selection.ParseDocument(data)
	if err != nil {
		return selection.Selection{}, fmt.Errorf("%s: %w", path, err)
	}
	return sel, nil
}

func indentJSON(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	if err := json.Indent(&buf, data, "", "  "); err != nil {
		return nil, err
	}
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}

func writeOutput(outFile string, data []byte) error {
	if outFile == "" {
		_, err := os.Stdout.Write(data)
		return err
	}
	return os.WriteFile(outFile, data, 0644)
}
