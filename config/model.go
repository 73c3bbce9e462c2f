package config

import "github.com/hashicorp/hcl/v2"

// fileRoot decodes every top-level block a network file may contain.
type fileRoot struct {
	Inputs  []*inputBlock   `hcl:"input,block"`
	Derived []*derivedBlock `hcl:"derived,block"`
	Remain  hcl.Body        `hcl:",remain"`
}

// inputBlock is `input "name" { kind = "..." ; value = ... }`.
type inputBlock struct {
	Name  string         `hcl:"name,label"`
	Kind  string         `hcl:"kind"`
	Value hcl.Expression `hcl:"value"`
}

// derivedBlock is `derived "name" { kind = "..." ; depends_on = [...] }`.
type derivedBlock struct {
	Name      string   `hcl:"name,label"`
	Kind      string   `hcl:"kind"`
	DependsOn []string `hcl:"depends_on,optional"`
}
