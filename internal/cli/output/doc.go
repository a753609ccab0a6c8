// Package output renders command results for regmesh-cli as a table, JSON
// or YAML.
//
// Tables are built from structs, slices of structs and maps via reflection.
// Map keys are sorted so output is stable between runs. Struct fields tagged
// `table:"-"` are hidden and fields tagged `table:"wide"` only show with
// --wide.
package output
