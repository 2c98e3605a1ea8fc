package domain

import "errors"

// Errores de validación. Se devuelven antes de llegar al simulador
// y la capa HTTP los traduce a 400.
var (
	ErrMissingQuestion    = errors.New("question is required")
	ErrInvalidCapital     = errors.New("initial capital must be greater than 0")
	ErrInvalidBetSize     = errors.New("bet size percent must be in (0, 100]")
	ErrInvalidMarketPrice = errors.New("market price must be in [0, 1]")

	// ErrNoData indica que no hay mercados resueltos para el backtest.
	ErrNoData = errors.New("no resolved markets available")
)

// IsValidation devuelve true si err es un error de input del caller.
func IsValidation(err error) bool {
	return errors.Is(err, ErrMissingQuestion) ||
		errors.Is(err, ErrInvalidCapital) ||
		errors.Is(err, ErrInvalidBetSize) ||
		errors.Is(err, ErrInvalidMarketPrice)
}
