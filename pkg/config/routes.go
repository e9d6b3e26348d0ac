package config

import (
	_ "embed"
	"fmt"
	"os"

	"github.com/mselser95/swap-arb/pkg/types"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

//go:embed default_routes.yaml
var defaultRoutes []byte

// RouteBook is the static route and token configuration.
type RouteBook struct {
	Tokens *types.TokenSet
	Routes []types.RouteTemplate
	// EdgeBps is the simulated per-leg edge, averaged over routes sharing a leg.
	EdgeBps map[types.Leg]float64
}

type routeBookFile struct {
	Reference string      `yaml:"reference"`
	Tokens    []tokenFile `yaml:"tokens"`
	Routes    []routeFile `yaml:"routes"`
}

type tokenFile struct {
	Symbol   string `yaml:"symbol"`
	Decimals int32  `yaml:"decimals"`
	RefPrice string `yaml:"ref_price"`
}

type routeFile struct {
	Label   string   `yaml:"label"`
	Kind    string   `yaml:"kind"`
	Hops    []string `yaml:"hops"`
	Venues  []string `yaml:"venues"`
	EdgeBps float64  `yaml:"edge_bps"`
}

// LoadRouteBook reads a route book from path, or the embedded default when path is empty.
func LoadRouteBook(path string) (*RouteBook, error) {
	if path == "" {
		return ParseRouteBook(defaultRoutes)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read routes file: %w", err)
	}

	book, err := ParseRouteBook(data)
	if err != nil {
		return nil, fmt.Errorf("parse routes file %s: %w", path, err)
	}

	return book, nil
}

// ParseRouteBook decodes and validates a YAML route book.
func ParseRouteBook(data []byte) (*RouteBook, error) {
	var file routeBookFile
	err := yaml.Unmarshal(data, &file)
	if err != nil {
		return nil, fmt.Errorf("unmarshal route book: %w", err)
	}

	if file.Reference == "" {
		return nil, fmt.Errorf("route book: reference token cannot be empty")
	}

	tokens := make([]types.Token, 0, len(file.Tokens))
	for _, tf := range file.Tokens {
		price, err := decimal.NewFromString(tf.RefPrice)
		if err != nil {
			return nil, fmt.Errorf("token %s: parse ref_price %q: %w", tf.Symbol, tf.RefPrice, err)
		}
		tokens = append(tokens, types.Token{Symbol: tf.Symbol, Decimals: tf.Decimals, RefPrice: price})
	}

	tokenSet, err := types.NewTokenSet(file.Reference, tokens)
	if err != nil {
		return nil, fmt.Errorf("build token set: %w", err)
	}

	if len(file.Routes) == 0 {
		return nil, fmt.Errorf("%w: route book has no routes", types.ErrInvalidRoute)
	}

	book := &RouteBook{
		Tokens:  tokenSet,
		Routes:  make([]types.RouteTemplate, 0, len(file.Routes)),
		EdgeBps: make(map[types.Leg]float64),
	}

	seen := make(map[string]bool, len(file.Routes))
	edgeSum := make(map[types.Leg]float64)
	edgeCount := make(map[types.Leg]int)

	for _, rf := range file.Routes {
		kind, err := types.ParseStrategyKind(rf.Kind)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", types.ErrInvalidRoute, rf.Label, err)
		}

		route := types.RouteTemplate{
			Label:  rf.Label,
			Kind:   kind,
			Hops:   append([]string(nil), rf.Hops...),
			Venues: append([]string(nil), rf.Venues...),
		}

		err = route.Validate()
		if err != nil {
			return nil, err
		}

		if seen[route.Label] {
			return nil, fmt.Errorf("%w: duplicate label %q", types.ErrInvalidRoute, route.Label)
		}
		seen[route.Label] = true

		if route.Origin() != file.Reference {
			return nil, fmt.Errorf("%w: %s: must start from reference token %s", types.ErrInvalidRoute, route.Label, file.Reference)
		}

		for _, hop := range route.Hops {
			if _, ok := tokenSet.Get(hop); !ok {
				return nil, fmt.Errorf("%w: %s in route %s", types.ErrUnknownToken, hop, route.Label)
			}
		}

		legs := route.Legs()
		for _, leg := range legs {
			edgeSum[leg] += rf.EdgeBps / float64(len(legs))
			edgeCount[leg]++
		}

		book.Routes = append(book.Routes, route)
	}

	for leg, sum := range edgeSum {
		book.EdgeBps[leg] = sum / float64(edgeCount[leg])
	}

	return book, nil
}
