// Package block is the signal-flow layer of the application. It provides the
// primitive blocks (gains, summing junctions, integrators, clips, sources and
// sinks), the Diagram that owns them together with their wires, and the
// Subsystem block that lets a finished Diagram be reused as an opaque unit
// exposing only its declared input and output ports.
//
// A Diagram is built once and then handed to an integration engine. It is not
// safe for concurrent mutation; every simulation run builds its own.
package block
