// Package hcl provides the concrete HCL implementation of the config.Loader
// interface. It reads the settings and segment files in either HCL native
// syntax or HCL's JSON syntax, decodes them with gohcl and gocty, and
// translates the result into the format-agnostic config model.
package hcl
