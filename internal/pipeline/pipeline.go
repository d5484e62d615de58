// Package pipeline is the natural-language command core: it sends free text
// to the oracle, extracts and decodes the structured interpretation,
// validates it against domain rules, and reconciles it into ledger
// mutations or analytics reads.
package pipeline

import (
	"context"

	"github.com/rs/zerolog"
)

// Interpreter turns free text into a validated ParsedResult.
type Interpreter struct {
	model TextModel
	log   zerolog.Logger
}

// NewInterpreter creates an Interpreter over a text model.
func NewInterpreter(model TextModel, log zerolog.Logger) *Interpreter {
	return &Interpreter{model: model, log: log}
}

// Interpret runs the oracle on input and validates the structured output.
// Oracle failures surface as OracleUnavailableError; unusable output as
// MalformedResponseError; rule violations as ValidationError. None are
// retried here.
func (i *Interpreter) Interpret(ctx context.Context, input string) (ParsedResult, error) {
	prompt := BuildPrompt(input)

	rawText, err := i.model.GenerateText(ctx, prompt)
	if err != nil {
		return nil, &OracleUnavailableError{Err: err}
	}
	i.log.Debug().Str("raw", rawText).Msg("Oracle response")

	jsonText := ExtractJSON(rawText)
	res, err := DecodeResult([]byte(jsonText))
	if err != nil {
		i.log.Warn().Err(err).Str("raw", rawText).Msg("Oracle output did not decode")
		return nil, err
	}

	if err := ValidateResult(res); err != nil {
		return nil, err
	}
	return res, nil
}

// Runner chains interpretation and reconciliation for one-shot use
// (the CLI and tests); the HTTP API keeps the two steps separate so the
// caller can confirm before mutating.
type Runner struct {
	interpreter *Interpreter
	reconciler  *Reconciler
}

// NewRunner wires an end-to-end pipeline runner.
func NewRunner(interpreter *Interpreter, reconciler *Reconciler) *Runner {
	return &Runner{interpreter: interpreter, reconciler: reconciler}
}

// Run interprets input and executes the resulting command.
func (r *Runner) Run(ctx context.Context, input string) (any, error) {
	res, err := r.interpreter.Interpret(ctx, input)
	if err != nil {
		return nil, err
	}
	return r.reconciler.Execute(ctx, res)
}
