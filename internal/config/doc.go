// Package config defines the format-agnostic configuration model: the global
// settings of a run and the ordered segment records of the arterial tree,
// plus the Loader interface implemented by concrete formats.
//
// Values in the model are raw (dyn-based) physical units. Scaling to
// simulation units happens when the network is assembled.
package config
