package config

import (
	"context"
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/gocty"

	"github.com/vk/graphcommit/builder"
	"github.com/vk/graphcommit/internal/ctxlog"
	"github.com/vk/graphcommit/internal/nodeid"
	"github.com/vk/graphcommit/internal/registry"
	"github.com/vk/graphcommit/node"
)

// Load parses src as an HCL network file and stages every declared node
// into a fresh builder.Builder, resolving kind strings against reg. It
// does not call Build; callers decide when to sort, detect cycles and
// freeze the network.
func Load(ctx context.Context, src []byte, filename string, reg *registry.Registry) (*builder.Builder, error) {
	logger := ctxlog.FromContext(ctx)

	file, diags := hclparse.NewParser().ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("config: parsing %s: %w", filename, diags)
	}

	var root fileRoot
	if diags := gohcl.DecodeBody(file.Body, nil, &root); diags.HasErrors() {
		return nil, fmt.Errorf("config: decoding %s: %w", filename, diags)
	}
	logger.Debug("Parsed network file.", "file", filename, "inputs", len(root.Inputs), "derived", len(root.Derived))

	b := builder.New()
	byName := make(map[string]node.Node, len(root.Inputs)+len(root.Derived))

	for _, blk := range root.Inputs {
		name, err := canonicalName(filename, blk.Name)
		if err != nil {
			return nil, err
		}
		if _, dup := byName[name]; dup {
			return nil, fmt.Errorf("config: %s: duplicate node name %q", filename, name)
		}
		input, ok := reg.NewInput(blk.Kind, name)
		if !ok {
			return nil, fmt.Errorf("config: %s: input %q: unknown kind %q", filename, name, blk.Kind)
		}
		value, err := decodeValue(blk.Value)
		if err != nil {
			return nil, fmt.Errorf("config: %s: input %q: %w", filename, name, err)
		}
		if _, err := b.AddInput(input, value); err != nil {
			return nil, fmt.Errorf("config: %s: input %q: %w", filename, name, err)
		}
		byName[name] = input
	}

	placeholders := make(map[string]*node.Placeholder, len(root.Derived))
	derivedNames := make(map[*derivedBlock]string, len(root.Derived))
	for _, blk := range root.Derived {
		name, err := canonicalName(filename, blk.Name)
		if err != nil {
			return nil, err
		}
		if _, dup := byName[name]; dup {
			return nil, fmt.Errorf("config: %s: duplicate node name %q", filename, name)
		}
		ph := node.NewPlaceholder(name)
		byName[name] = ph
		placeholders[name] = ph
		derivedNames[blk] = name
	}

	for _, blk := range root.Derived {
		name := derivedNames[blk]
		deps := make([]node.Node, 0, len(blk.DependsOn))
		for _, rawDepName := range blk.DependsOn {
			depName, err := canonicalName(filename, rawDepName)
			if err != nil {
				return nil, err
			}
			dep, ok := byName[depName]
			if !ok {
				return nil, fmt.Errorf("config: %s: derived %q: %w: %q", filename, name, node.ErrMissingDependency, depName)
			}
			deps = append(deps, dep)
		}
		derived, ok := reg.NewDerived(blk.Kind, name, deps)
		if !ok {
			return nil, fmt.Errorf("config: %s: derived %q: unknown kind %q", filename, name, blk.Kind)
		}
		if err := placeholders[name].Bind(derived); err != nil {
			return nil, fmt.Errorf("config: %s: derived %q: %w", filename, name, err)
		}
		if _, err := b.AddCalculation(placeholders[name]); err != nil {
			return nil, fmt.Errorf("config: %s: derived %q: %w", filename, name, err)
		}
	}

	return b, nil
}

// canonicalName parses raw as a nodeid.Address and re-renders it, so that
// a malformed name is rejected and an index written with leading zeros
// ("a.b[007]") becomes the canonical "a.b[7]" before it is used as a node
// name or dependency reference. Whitespace is not allowed in a name.
func canonicalName(filename, raw string) (string, error) {
	addr, err := nodeid.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("config: %s: invalid node name %q: %w", filename, raw, err)
	}
	return addr.String(), nil
}

// decodeValue evaluates a literal `value = ...` expression (no variables
// or function calls, network files describe data, not computation) and
// converts the result to a plain Go value.
func decodeValue(expr hcl.Expression) (any, error) {
	v, diags := expr.Value(nil)
	if diags.HasErrors() {
		return nil, diags
	}
	switch v.Type() {
	case cty.String:
		var s string
		if err := gocty.FromCtyValue(v, &s); err != nil {
			return nil, err
		}
		return s, nil
	case cty.Number:
		var f float64
		if err := gocty.FromCtyValue(v, &f); err != nil {
			return nil, err
		}
		return f, nil
	case cty.Bool:
		var bv bool
		if err := gocty.FromCtyValue(v, &bv); err != nil {
			return nil, err
		}
		return bv, nil
	default:
		return nil, fmt.Errorf("unsupported value type %s", v.Type().FriendlyName())
	}
}
