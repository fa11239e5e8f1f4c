package magic

import (
	"bytes"
	"fmt"
	"io"

	"github.com/alecthomas/kong"
	"github.com/goccy/go-json"
	"github.com/google/shlex"
)

// Args are the arguments of a %%spanner cell header.
type Args struct {
	DestinationVar string `arg:"" optional:"" name:"destination_var" help:"Variable name to bind the result table to."`

	Project  string `help:"Spanner project to connect to."`
	Instance string `help:"Spanner instance to connect to."`
	Database string `help:"Spanner database to connect to."`
	Params   string `help:"JSON object with parameters to pass into the query." default:"{}"`

	// QueryParams holds the decoded --params value.
	QueryParams map[string]any `kong:"-"`
}

// ParseArgs tokenizes line like a shell would and parses the result.
func ParseArgs(line string) (*Args, error) {
	tokens, err := shlex.Split(line)
	if err != nil {
		return nil, fmt.Errorf("shlex.Split: %w", err)
	}

	args := new(Args)
	parser, err := kong.New(args,
		kong.Name("%%spanner"),
		kong.NoDefaultHelp(),
		kong.Writers(io.Discard, io.Discard),
		kong.Exit(func(int) {}),
	)
	if err != nil {
		return nil, fmt.Errorf("kong.New: %w", err)
	}

	if _, err := parser.Parse(tokens); err != nil {
		return nil, fmt.Errorf("invalid arguments: %w", err)
	}

	args.QueryParams, err = DecodeParams(args.Params)
	if err != nil {
		return nil, fmt.Errorf("invalid --params: %w", err)
	}

	return args, nil
}

// DecodeParams decodes a JSON object of query parameters. Integral numbers
// become int64, other numbers float64 and homogeneous arrays typed slices.
func DecodeParams(raw string) (map[string]any, error) {
	if raw == "" {
		return map[string]any{}, nil
	}

	dec := json.NewDecoder(bytes.NewReader([]byte(raw)))
	dec.UseNumber()

	var obj map[string]any
	if err := dec.Decode(&obj); err != nil {
		return nil, err
	}
	if obj == nil {
		return nil, fmt.Errorf("expected a JSON object, got %s", raw)
	}

	params := make(map[string]any, len(obj))
	for k, v := range obj {
		p, err := paramValue(v)
		if err != nil {
			return nil, fmt.Errorf("parameter %q: %w", k, err)
		}
		params[k] = p
	}
	return params, nil
}

func paramValue(v any) (any, error) {
	switch val := v.(type) {
	case nil, bool, string:
		return val, nil
	case json.Number:
		return numberValue(val)
	case []any:
		return listValue(val)
	default:
		return nil, fmt.Errorf("unsupported parameter type %T", v)
	}
}

func numberValue(n json.Number) (any, error) {
	if i, err := n.Int64(); err == nil {
		return i, nil
	}
	return n.Float64()
}

// listValue converts a JSON array to []int64, []float64, []string or []bool.
// Mixed integer and float arrays become []float64.
func listValue(list []any) (any, error) {
	var (
		ints    []int64
		floats  []float64
		strs    []string
		bools   []bool
		isFloat bool
	)

	for _, e := range list {
		switch val := e.(type) {
		case json.Number:
			n, err := numberValue(val)
			if err != nil {
				return nil, err
			}
			switch num := n.(type) {
			case int64:
				ints = append(ints, num)
				floats = append(floats, float64(num))
			case float64:
				isFloat = true
				floats = append(floats, num)
			}
		case string:
			strs = append(strs, val)
		case bool:
			bools = append(bools, val)
		default:
			return nil, fmt.Errorf("unsupported array element type %T", e)
		}
	}

	switch {
	case len(list) == 0:
		return []string{}, nil
	case len(strs) == len(list):
		return strs, nil
	case len(bools) == len(list):
		return bools, nil
	case len(floats) == len(list) && isFloat:
		return floats, nil
	case len(ints) == len(list):
		return ints, nil
	default:
		return nil, fmt.Errorf("array elements must share one type")
	}
}
