package ports

import "context"

// ContextProvider obtiene snippets de texto (noticias) para la pregunta.
type ContextProvider interface {
	// FetchContext devuelve como máximo maxItems líneas cortas, posiblemente vacío.
	FetchContext(ctx context.Context, query string, maxItems int) ([]string, error)
}
