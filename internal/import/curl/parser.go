// Package curl reads curl command lines into composer input.
package curl

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"strings"

	"github.com/sadopc/assertify/internal/core/request"
)

var (
	ErrEmpty = errors.New("empty curl command")
	ErrNoURL = errors.New("no URL in curl command")
)

// flags that take a value we do not use
var skipValue = map[string]bool{
	"-o": true, "--output": true,
	"-m": true, "--max-time": true,
	"--connect-timeout": true,
	"-w": true, "--write-out": true,
	"-x": true, "--proxy": true,
	"-c": true, "--cookie-jar": true,
	"--retry": true,
}

// Parse reads a curl command line. The leading "curl" is optional. The form
// still has to pass request.ParseForm, so unsupported methods and bodies
// that are not JSON are reported there like any typed input.
func Parse(input string) (request.Form, error) {
	input = strings.TrimSpace(input)
	input = strings.ReplaceAll(input, "\\\r\n", " ")
	input = strings.ReplaceAll(input, "\\\n", " ")

	args := tokenize(input)
	if len(args) > 0 && strings.EqualFold(args[0], "curl") {
		args = args[1:]
	}
	if len(args) == 0 {
		return request.Form{}, ErrEmpty
	}

	var (
		url, method string
		headers     request.Pairs
		data        []string
		asQuery     bool
		jsonBody    bool
	)
	value := func(i int) (string, bool) {
		if i+1 < len(args) {
			return args[i+1], true
		}
		return "", false
	}

	for i := 0; i < len(args); i++ {
		arg := args[i]
		switch arg {
		case "-X", "--request":
			if v, ok := value(i); ok {
				method = strings.ToUpper(v)
				i++
			}
		case "-H", "--header":
			if v, ok := value(i); ok {
				if k, val, ok := strings.Cut(v, ":"); ok && strings.TrimSpace(k) != "" {
					headers = set(headers, strings.TrimSpace(k), strings.TrimSpace(val))
				}
				i++
			}
		case "-d", "--data", "--data-raw", "--data-binary", "--data-ascii", "--json":
			if v, ok := value(i); ok {
				data = append(data, v)
				jsonBody = jsonBody || arg == "--json"
				i++
			}
		case "-u", "--user":
			if v, ok := value(i); ok {
				headers = set(headers, "Authorization", "Basic "+base64.StdEncoding.EncodeToString([]byte(v)))
				i++
			}
		case "-A", "--user-agent":
			if v, ok := value(i); ok {
				headers = set(headers, "User-Agent", v)
				i++
			}
		case "-e", "--referer":
			if v, ok := value(i); ok {
				headers = set(headers, "Referer", v)
				i++
			}
		case "-b", "--cookie":
			if v, ok := value(i); ok {
				headers = set(headers, "Cookie", v)
				i++
			}
		case "--url":
			if v, ok := value(i); ok {
				url = v
				i++
			}
		case "-G", "--get":
			asQuery = true
		default:
			if skipValue[arg] {
				i++
				continue
			}
			if !strings.HasPrefix(arg, "-") && url == "" {
				url = arg
			}
		}
	}

	if url == "" {
		return request.Form{}, ErrNoURL
	}

	f := request.Form{URL: url, Method: method}
	if jsonBody {
		headers = setDefault(headers, "Content-Type", "application/json")
		headers = setDefault(headers, "Accept", "application/json")
	}

	var params request.Pairs
	switch {
	case len(data) == 0:
	case asQuery:
		for _, d := range data {
			params = append(params, queryPairs(d)...)
		}
	default:
		f.Body = strings.Join(data, "&")
	}
	if f.Method == "" {
		f.Method = request.MethodGet
		if len(data) > 0 && !asQuery {
			f.Method = request.MethodPost
		}
	}

	var err error
	if f.Headers, err = encode(headers); err != nil {
		return request.Form{}, err
	}
	if f.Params, err = encode(params); err != nil {
		return request.Form{}, err
	}
	return f, nil
}

// set replaces the first header named key (case-insensitively) or appends.
func set(p request.Pairs, key, value string) request.Pairs {
	for i := range p {
		if strings.EqualFold(p[i].Key, key) {
			p[i].Value = value
			return p
		}
	}
	return append(p, request.Pair{Key: key, Value: value})
}

func setDefault(p request.Pairs, key, value string) request.Pairs {
	if _, ok := lookup(p, key); ok {
		return p
	}
	return append(p, request.Pair{Key: key, Value: value})
}

func lookup(p request.Pairs, key string) (string, bool) {
	for _, kv := range p {
		if strings.EqualFold(kv.Key, key) {
			return kv.Value, true
		}
	}
	return "", false
}

// queryPairs splits "a=1&b=2" keeping order. Values are not unescaped;
// curl sends -G data verbatim.
func queryPairs(s string) request.Pairs {
	var out request.Pairs
	for _, part := range strings.Split(s, "&") {
		if part == "" {
			continue
		}
		k, v, _ := strings.Cut(part, "=")
		out = append(out, request.Pair{Key: k, Value: v})
	}
	return out
}

func encode(p request.Pairs) (string, error) {
	if len(p) == 0 {
		return "", nil
	}
	b, err := json.Marshal(p)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// tokenize splits a POSIX shell command line. Single quotes are literal;
// a backslash escapes the next rune outside them.
func tokenize(input string) []string {
	var (
		tokens  []string
		current strings.Builder
		started bool
		single  bool
		double  bool
		escaped bool
	)
	for _, r := range input {
		switch {
		case escaped:
			current.WriteRune(r)
			escaped = false
		case r == '\\' && !single:
			escaped = true
			started = true
		case r == '\'' && !double:
			single = !single
			started = true
		case r == '"' && !single:
			double = !double
			started = true
		case (r == ' ' || r == '\t' || r == '\n' || r == '\r') && !single && !double:
			if started {
				tokens = append(tokens, current.String())
				current.Reset()
				started = false
			}
		default:
			current.WriteRune(r)
			started = true
		}
	}
	if started {
		tokens = append(tokens, current.String())
	}
	return tokens
}
