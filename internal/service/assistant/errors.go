package assistant

import "errors"

var (
	// ErrInjectionDetected marks an utterance refused by the injection guard.
	ErrInjectionDetected = errors.New("injection detected")
	// ErrMalformedArguments marks tool-call arguments that are not a JSON object.
	ErrMalformedArguments = errors.New("malformed action arguments")
	// ErrDelegateUnavailable means the language model is not configured or could not be reached.
	ErrDelegateUnavailable = errors.New("delegate unavailable")
	// ErrDelegateFailure means the language model failed mid-stream.
	ErrDelegateFailure = errors.New("delegate failure")
	// ErrUnknownAction marks a function name outside the closed action set.
	ErrUnknownAction = errors.New("unknown action")
	// ErrAmbiguousEntity means a spoken product name could not be resolved.
	ErrAmbiguousEntity = errors.New("ambiguous entity")
	// ErrInvalidParameters marks parameters rejected by the validator.
	ErrInvalidParameters = errors.New("invalid action parameters")
)

// User-facing apologies, one per failure kind.
const (
	msgMalformed      = "Ho avuto un problema tecnico. Puoi ripetere?"
	msgRejected       = "Mi dispiace, non posso eseguire questa operazione. Posso aiutarti con altro?"
	msgDelegateFailed = "Mi dispiace, ho avuto un problema. Posso aiutarti in altro modo?"
	msgHelp           = "Posso aiutarti a cercare prodotti, gestire il carrello o mostrarti le offerte. Cosa preferisci?"
)
