// Package hcl is the HCL implementation of config.Loader. It reads `process`
// and `pipeline` blocks from embedded module sources and from `.hcl` files on
// disk, and translates them into the format-agnostic config.Model.
package hcl
