// riskctl evaluates system facts against a versioned risk knowledge model.
//
// Given a facts document, it activates question domains, lists the questions
// that must be answered, and derives the required controls together with
// the conditions that caused each one.
//
// Usage:
//
//	# Evaluate a facts file against the default model directory
//	riskctl evaluate systems/payments.yaml
//
//	# Evaluate against a model at a git revision
//	riskctl evaluate systems/payments.yaml --model-dir git:v1.3.0
//
//	# Compare the outcome under two model versions
//	riskctl diff systems/payments.yaml --old git:v1.3.0 --new model
//
//	# Manage the portfolio and serve the HTTP API
//	riskctl system create "Payments API"
//	riskctl portfolio --record
//	riskctl serve --config riskctl.yaml
package main

import "os"

func main() {
	os.Exit(Execute())
}
