// Package twinschema lets one declarative model definition serve as both a
// data-validation schema and a persistent storage schema.
//
// A model is declared once through the schema.Model builder, using the field
// package's Column and Relationship declarations. Hierarchy.Compile splits
// the declaration into two independent views: a validation schema
// (validate.Schema) and a storage schema (columns and relationships),
// resolving each declared type through the hierarchy's type registry. Models
// with forward references stay pending until Hierarchy.ResolvePending is
// called. The runtime package routes instance construction and attribute
// access to the right subsystem depending on whether a model is table-backed.
package twinschema
