// Package engine is a reference integrator for block diagrams. Compile
// flattens subsystems into a single program of primitive blocks, orders the
// direct-feedthrough blocks so every value is computed after its inputs, and
// rejects algebraic loops. Run integrates the program with a fixed-step
// fourth-order Runge-Kutta scheme and records every sink.
//
// The engine makes no accuracy or stability claims beyond those of RK4 at the
// configured step.
package engine
