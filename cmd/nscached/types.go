package main

import "github.com/jonwraymond/nscache/dispatch"

// Engine is part of the sample Car type.
type Engine struct {
	Cylinders    int     `json:"cylinders"`
	Displacement float64 `json:"displacement"`
	Fuel         string  `json:"fuel"`
}

// Car is a sample nested item type served under the "car" tag.
type Car struct {
	Make   string `json:"make"`
	Model  string `json:"model"`
	Year   int    `json:"year"`
	Wheels int    `json:"wheels"`
	Engine Engine `json:"engine"`
}

// newRegistry returns the item types this server accepts.
func newRegistry() *dispatch.Registry {
	reg := dispatch.NewRegistry()
	dispatch.MustRegister[Car](reg, "car")
	dispatch.MustRegister[string](reg, "string")
	dispatch.MustRegister[map[string]any](reg, "map")
	return reg
}
