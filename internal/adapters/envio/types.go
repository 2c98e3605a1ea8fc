package envio

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// DTOs de la API GraphQL (Hasura) del indexer. Solo se usan dentro de este paquete.

type graphQLRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

type graphQLResponse struct {
	Data   marketsData    `json:"data"`
	Errors []graphQLError `json:"errors"`
}

type graphQLError struct {
	Message string `json:"message"`
}

type marketsData struct {
	Questions   []questionAdded  `json:"ParimutuelPredictionMarket_QuestionAdded"`
	Resolutions []marketResolved `json:"ParimutuelPredictionMarket_MarketResolved"`
}

type questionAdded struct {
	QuestionID   numericString `json:"questionId"`
	Question     string        `json:"question"`
	OutcomeNames []string      `json:"outcomeNames"`
	EndTime      numericString `json:"endTime"`
}

type marketResolved struct {
	ID             string        `json:"id"` // chainId_block_logIndex
	QuestionID     numericString `json:"questionId"`
	WinningOutcome numericString `json:"winningOutcome"`
}

// numericString acepta tanto "123" como 123. Hasura serializa los
// uint256 del contrato como string o número según el tipo de columna.
type numericString string

func (n *numericString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*n = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*n = numericString(s)
		return nil
	}
	var num json.Number
	if err := json.Unmarshal(b, &num); err != nil {
		return fmt.Errorf("numeric field: %w", err)
	}
	*n = numericString(num.String())
	return nil
}

func (n numericString) Int64() (int64, error) {
	return strconv.ParseInt(string(n), 10, 64)
}
