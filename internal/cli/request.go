package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	courier "github.com/wesleyorama2/courier/internal/http"
	"github.com/wesleyorama2/courier/internal/output"
	"github.com/wesleyorama2/courier/internal/parser"
	"github.com/wesleyorama2/courier/internal/stats"
	"github.com/wesleyorama2/courier/internal/uri"
)

// errHTTPFailure is returned with --fail when the response status is not 2xx
var errHTTPFailure = errors.New("request failed")

// requestOptions are the flags shared by the method and stream commands
type requestOptions struct {
	headers        []string
	params         []string
	cookies        []string
	json           bool
	raw            string
	contentType    string
	user           string
	proxy          string
	timeout        time.Duration
	connectTimeout time.Duration
	noFollow       bool
	maxRedirects   int
	requestID      bool
}

func (o *requestOptions) register(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.StringArrayVarP(&o.headers, "header", "H", nil, "HTTP header \"Name: Value\" (can be used multiple times)")
	flags.StringArrayVarP(&o.params, "data", "d", nil, "Parameter \"key=value\" sent in the query or body (can be used multiple times)")
	flags.StringArrayVarP(&o.cookies, "cookie", "b", nil, "Cookie \"key=value\" or raw cookie string (can be used multiple times)")
	flags.BoolVarP(&o.json, "json", "j", false, "Send body parameters as JSON")
	flags.StringVar(&o.raw, "raw", "", "Raw request body, or @file to read it from a file")
	flags.StringVar(&o.contentType, "content-type", "", "Content-Type for --raw bodies")
	flags.StringVarP(&o.user, "user", "u", "", "Basic auth credentials \"user:pass\"")
	flags.StringVarP(&o.proxy, "proxy", "x", "", "HTTP proxy \"[user:pass@]host:port\"")
	flags.DurationVarP(&o.timeout, "timeout", "t", courier.DefaultTimeout, "Timeout for the whole transfer, 0 disables it")
	flags.DurationVar(&o.connectTimeout, "connect-timeout", courier.DefaultConnectTimeout, "Timeout for connection establishment, 0 disables it")
	flags.BoolVar(&o.noFollow, "no-follow", false, "Do not follow redirects")
	flags.IntVar(&o.maxRedirects, "max-redirects", 0, "Maximum number of redirects to follow")
	flags.BoolVar(&o.requestID, "request-id", false, "Send a generated X-Request-Id header")
}

// apply copies the flags onto r, after the profile defaults
func (o *requestOptions) apply(cmd *cobra.Command, r *courier.Request) error {
	for _, h := range o.headers {
		name, value, ok := strings.Cut(h, ":")
		if !ok || strings.TrimSpace(name) == "" {
			return fmt.Errorf("invalid header %q, expected \"Name: Value\"", h)
		}
		r.AddHeader(strings.TrimSpace(name), strings.TrimSpace(value))
	}

	params, err := parseParams(o.params)
	if err != nil {
		return err
	}
	r.SetParams(params, true)
	r.SetJSONRequest(o.json)

	if o.raw != "" {
		body := []byte(o.raw)
		if strings.HasPrefix(o.raw, "@") {
			if body, err = os.ReadFile(o.raw[1:]); err != nil {
				return fmt.Errorf("read body: %w", err)
			}
		}
		r.SetBody(body, o.contentType)
	}

	for _, c := range o.cookies {
		if key, value, ok := strings.Cut(c, "="); ok && !strings.Contains(key, ";") {
			r.AddCookie(strings.TrimSpace(key), value)
		} else {
			r.AddCookie("", c)
		}
	}

	if o.user != "" {
		user, pass, _ := strings.Cut(o.user, ":")
		r.SetAuth(courier.AuthBasic, user, pass)
	}

	if o.proxy != "" {
		proxy, err := uri.Parse("http://" + o.proxy)
		if err != nil {
			return fmt.Errorf("invalid proxy: %w", err)
		}
		access := proxy.User
		if proxy.Pass != "" {
			access += ":" + proxy.Pass
		}
		r.SetProxy(proxy.Host, proxy.Port, access)
	}

	// Unchanged flags leave the profile value or the transport default in place
	if cmd.Flags().Changed("timeout") {
		r.SetTimeout(o.timeout)
	}
	if cmd.Flags().Changed("connect-timeout") {
		r.SetConnectTimeout(o.connectTimeout)
	}
	if cmd.Flags().Changed("no-follow") || cmd.Flags().Changed("max-redirects") {
		r.SetFollowRedirects(!o.noFollow, o.maxRedirects)
	}

	if o.requestID {
		r.AddHeader("X-Request-Id", uuid.NewString())
	}
	return nil
}

// parseParams groups "key=value" pairs; repeated keys become lists
func parseParams(pairs []string) (uri.Values, error) {
	grouped := make(map[string][]string)
	var order []string
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid parameter %q, expected \"key=value\"", pair)
		}
		if _, seen := grouped[key]; !seen {
			order = append(order, key)
		}
		grouped[key] = append(grouped[key], value)
	}

	params := make(uri.Values, len(grouped))
	for _, key := range order {
		if values := grouped[key]; len(values) == 1 {
			params[key] = values[0]
		} else {
			params[key] = values
		}
	}
	return params, nil
}

// newParser resolves the value of --parse
func newParser(value string) (courier.Parser, error) {
	kind, arg, _ := strings.Cut(value, "=")
	switch strings.ToLower(kind) {
	case "":
		return nil, nil
	case string(output.FormatJSON):
		return parser.JSON{}, nil
	case "xml":
		return parser.XML{}, nil
	case "xmlmap":
		return parser.XMLMap{}, nil
	case "jsonpath":
		if arg == "" {
			return nil, fmt.Errorf("--parse jsonpath needs an expression, e.g. jsonpath=$.id")
		}
		return parser.JSONPath{Path: arg}, nil
	case "schema":
		schema, err := os.ReadFile(arg)
		if err != nil {
			return nil, fmt.Errorf("read schema: %w", err)
		}
		validator, err := parser.NewJSONSchema(string(schema))
		if err != nil {
			return nil, err
		}
		return validator, nil
	}
	return nil, fmt.Errorf("unknown parser %q, must be one of: json, xml, xmlmap, jsonpath=EXPR, schema=FILE", kind)
}

func newMethodCmd(g *globalOptions, method string) *cobra.Command {
	o := &requestOptions{}
	var (
		repeat int
		rate   float64
		parse  string
		fail   bool
	)

	cmd := &cobra.Command{
		Use:   strings.ToLower(method) + " URL",
		Short: fmt.Sprintf("Make a %s request to the specified URL", method),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := newSession(cmd, g)
			if err != nil {
				return err
			}
			defer s.logger.Sync()

			p, err := newParser(parse)
			if err != nil {
				return err
			}

			target, err := s.profile.ResolveURL(args[0])
			if err != nil {
				return err
			}

			r := courier.NewRequest(s.provider,
				courier.WithMethod(method),
				courier.WithURI(target),
				courier.WithLogger(s.logger),
			)
			s.profile.Apply(r)
			if err := o.apply(cmd, r); err != nil {
				return err
			}

			return s.run(cmd.Context(), r, p, repeat, stats.NewPacer(rate), fail)
		},
	}

	o.register(cmd)
	cmd.Flags().IntVarP(&repeat, "repeat", "n", 1, "Send the request n times and report latency statistics")
	cmd.Flags().Float64Var(&rate, "rate", 0, "Maximum requests per second when repeating (0 means unpaced)")
	cmd.Flags().StringVar(&parse, "parse", "", "Parse the body: json, xml, xmlmap, jsonpath=EXPR or schema=FILE")
	cmd.Flags().BoolVar(&fail, "fail", false, "Exit with an error when the response status is not 2xx")
	return cmd
}

// run sends r repeat times and prints the last response, followed by latency
// statistics when repeat is greater than one. pacer spaces the repetitions.
func (s *session) run(ctx context.Context, r *courier.Request, p courier.Parser, repeat int, pacer *stats.Pacer, fail bool) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if repeat < 1 {
		repeat = 1
	}

	if s.verbose {
		c, err := r.Build()
		if err != nil {
			return err
		}
		fmt.Fprintln(s.out, s.formatter.FormatRequest(c))
	}

	recorder := stats.NewRecorder()
	var (
		resp *courier.Response
		err  error
	)
	for i := 0; i < repeat; i++ {
		if i > 0 && pacer.Wait(ctx) != nil {
			break
		}
		resp, err = r.Call(ctx)
		recorder.Record(resp)
		if err != nil && !errors.As(err, new(*courier.TransportError)) {
			return err
		}
		if ctx.Err() != nil {
			break
		}
	}

	if p != nil && !resp.IsError() {
		if _, perr := resp.Parse(p); perr != nil {
			s.logger.Warn("parse failed", zap.Error(perr))
			fmt.Fprint(s.out, s.formatter.FormatResponse(resp))
			return perr
		}
	}

	fmt.Fprint(s.out, s.formatter.FormatResponse(resp))
	if repeat > 1 {
		if pacer.Enabled() {
			s.logger.Debug("paced repetitions",
				zap.Int64("slots", pacer.Slots()),
				zap.Duration("waited", pacer.Waited()))
		}
		if err := s.printStats(recorder.Snapshot()); err != nil {
			return err
		}
	}

	if err != nil {
		return err
	}
	if fail && !resp.IsOk() {
		return fmt.Errorf("%w: %d %s", errHTTPFailure, resp.Code, resp.Status)
	}
	return nil
}

func (s *session) printStats(snapshot *stats.Snapshot) error {
	switch s.format {
	case output.FormatJSON:
		data, err := json.MarshalIndent(snapshot, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(s.out, string(data))
	case output.FormatYAML:
		data, err := yaml.Marshal(snapshot)
		if err != nil {
			return err
		}
		fmt.Fprint(s.out, string(data))
	default:
		fmt.Fprint(s.out, "\n"+snapshot.String())
	}
	return nil
}
