package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/spf13/cobra"

	"github.com/sadopc/assertify/internal/core/request"
	"github.com/sadopc/assertify/internal/import/curl"
	"github.com/sadopc/assertify/internal/syncer"
	"github.com/sadopc/assertify/internal/ui/render"
)

type sendOptions struct {
	method     string
	headers    []string
	params     []string
	body       string
	path       string
	dataOnly   bool
	copy       bool
	collection string
	curl       string
}

func (c *cli) newSendCmd() *cobra.Command {
	o := &sendOptions{}
	cmd := &cobra.Command{
		Use:   "send [url]",
		Short: "Send a request through the backend and record it in history",
		Example: `  assertify send https://api.example.com/users
  assertify send https://api.example.com/users -X POST -d '{"name":"ada"}'
  assertify send https://api.example.com/users -q page=2 --path '$.data[*].id'
  assertify send --curl "curl -X POST https://api.example.com/users --json '{}'"`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			url := ""
			if len(args) == 1 {
				url = args[0]
			}
			return c.runSend(cmd, url, o)
		},
	}
	f := cmd.Flags()
	f.StringVarP(&o.method, "method", "X", request.MethodGet, "HTTP method (GET, POST, PUT, DELETE)")
	f.StringArrayVarP(&o.headers, "header", "H", nil, `request header "Key: Value" (repeatable)`)
	f.StringArrayVarP(&o.params, "param", "q", nil, "query parameter key=value (repeatable)")
	f.StringVarP(&o.body, "body", "d", "", "JSON body, sent for POST and PUT")
	f.StringVar(&o.path, "path", "", "print only the values matching a JSONPath expression")
	f.BoolVar(&o.dataOnly, "data", false, "print only the response data")
	f.BoolVar(&o.copy, "copy", false, "copy the output to the clipboard")
	f.StringVar(&o.collection, "collection", "", "add the recorded request to this collection (name or id)")
	f.StringVar(&o.curl, "curl", "", "take the request from a curl command line instead of flags")
	return cmd
}

func (c *cli) runSend(cmd *cobra.Command, url string, o *sendOptions) error {
	form, err := o.form(url)
	if err != nil {
		return err
	}
	d, err := request.ParseForm(form)
	if err != nil {
		return err
	}

	env, err := c.open(false)
	if err != nil {
		return err
	}
	defer env.Close()
	env.settle()

	ctx := cmd.Context()
	stderr := cmd.ErrOrStderr()
	cred, err := env.tracker.Token(ctx)
	if err != nil {
		env.log.Debug("sending without credential", "err", err)
		cred = ""
	}
	out := env.proxy.Send(ctx, d, cred)

	item, err := env.ctrl.RequestComplete(ctx, out)
	switch {
	case errors.Is(err, syncer.ErrNoIdentity):
		warn(stderr, "not recorded in history; run 'assertify guest' or 'assertify login' first")
	case err != nil:
		warn(stderr, "not recorded in history: %v", err)
	case o.collection != "":
		col, err := findCollection(env.ctrl.Snapshot().Collections, o.collection)
		if err != nil {
			return err
		}
		if err := env.ctrl.AddToCollection(ctx, col, item); err != nil {
			return err
		}
		fmt.Fprintf(stderr, "Added %s to %s\n", shortID(item.ID), col.Name)
	}

	text, err := o.render(out)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), text)
	if o.copy {
		if err := clipboard.WriteAll(text); err != nil {
			return fmt.Errorf("copying to clipboard: %w", err)
		}
	}
	if msg, failed := out.FailureMessage(); failed {
		return fmt.Errorf("request failed: %s", msg)
	}
	return nil
}

// form builds composer input from the flags so the CLI validates exactly
// like the terminal UI.
func (o *sendOptions) form(url string) (request.Form, error) {
	if o.curl != "" {
		if url != "" {
			return request.Form{}, errors.New("give either a URL or --curl, not both")
		}
		return curl.Parse(o.curl)
	}
	if url == "" {
		return request.Form{}, errors.New("a URL or --curl is required")
	}
	f := request.Form{URL: url, Method: o.method, Body: o.body}

	var headers request.Pairs
	for _, h := range o.headers {
		k, v, ok := strings.Cut(h, ":")
		if !ok || strings.TrimSpace(k) == "" {
			return f, fmt.Errorf("invalid header %q, want \"Key: Value\"", h)
		}
		headers = append(headers, request.Pair{Key: strings.TrimSpace(k), Value: strings.TrimSpace(v)})
	}
	var params request.Pairs
	for _, p := range o.params {
		k, v, ok := strings.Cut(p, "=")
		if !ok || k == "" {
			return f, fmt.Errorf("invalid parameter %q, want key=value", p)
		}
		params = append(params, request.Pair{Key: k, Value: v})
	}

	var err error
	if f.Headers, err = pairsJSON(headers); err != nil {
		return f, err
	}
	if f.Params, err = pairsJSON(params); err != nil {
		return f, err
	}
	return f, nil
}

func (o *sendOptions) render(env request.Envelope) (string, error) {
	switch {
	case o.path != "":
		matches, err := env.Extract(o.path)
		if err != nil {
			return "", err
		}
		var b strings.Builder
		if err := printMatches(&b, matches); err != nil {
			return "", err
		}
		return strings.TrimRight(b.String(), "\n"), nil
	case o.dataOnly:
		return render.Pretty(env.Data), nil
	}
	var b strings.Builder
	if err := printJSON(&b, env); err != nil {
		return "", err
	}
	return strings.TrimRight(b.String(), "\n"), nil
}

func pairsJSON(p request.Pairs) (string, error) {
	if len(p) == 0 {
		return "", nil
	}
	b, err := json.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("encoding pairs: %w", err)
	}
	return string(b), nil
}
