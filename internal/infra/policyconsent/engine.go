// Package policyconsent evaluates which collector tasks may run for a
// given consent configuration. The decision logic lives in a rego module so
// the gating rules can be audited and extended without touching Go code.
package policyconsent

import (
	"context"
	"errors"
	"fmt"

	"github.com/LexatoBR/lexato-extension-sub001/internal/domain"

	"github.com/open-policy-agent/opa/rego"
)

const defaultQuery = "data.lexato.consent.allowed"

// defaultModule encodes the consent contract: the always-on collectors are
// unconditional, the opt-in collectors require their flag.
const defaultModule = `package lexato.consent

import rego.v1

always_on := {
	"page_context",
	"capture_environment",
	"http_headers",
	"ssl_certificate",
	"dns_records",
	"dns_over_https",
	"whois",
	"ip_info",
	"reverse_dns",
	"robots_txt",
	"security_txt",
}

opt_in := {
	"geolocation": input.geolocation,
	"archive_snapshot": input.archive_snapshot,
	"browser_environment": input.browser_environment,
}

allowed contains name if {
	some name in always_on
}

allowed contains name if {
	some name, granted in opt_in
	granted == true
}
`

// Engine is a prepared consent policy.
type Engine struct {
	query rego.PreparedEvalQuery
}

// NewEngine prepares the built-in consent module.
func NewEngine(ctx context.Context) (*Engine, error) {
	return NewEngineFromModule(ctx, defaultModule)
}

// NewEngineFromModule prepares a caller-supplied rego module, used when an
// operator ships stricter gating rules.
func NewEngineFromModule(ctx context.Context, module string) (*Engine, error) {
	prepared, err := rego.New(
		rego.Query(defaultQuery),
		rego.Module("consent.rego", module),
		rego.StrictBuiltinErrors(true),
	).PrepareForEval(ctx)
	if err != nil {
		return nil, fmt.Errorf("prepare consent policy: %w", err)
	}
	return &Engine{query: prepared}, nil
}

// AllowedCollectors returns the names of the collector tasks the policy
// permits for consent.
func (e *Engine) AllowedCollectors(ctx context.Context, consent domain.ConsentConfig) ([]string, error) {
	if e == nil {
		return nil, errors.New("consent engine is nil")
	}
	results, err := e.query.Eval(ctx, rego.EvalInput(consent))
	if err != nil {
		return nil, fmt.Errorf("evaluate consent policy: %w", err)
	}
	if len(results) == 0 || len(results[0].Expressions) == 0 {
		return nil, errors.New("empty consent policy result")
	}
	raw, ok := results[0].Expressions[0].Value.([]any)
	if !ok {
		return nil, fmt.Errorf("unexpected consent policy result type %T", results[0].Expressions[0].Value)
	}
	names := make([]string, 0, len(raw))
	for _, v := range raw {
		name, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("unexpected collector name type %T", v)
		}
		names = append(names, name)
	}
	return names, nil
}
