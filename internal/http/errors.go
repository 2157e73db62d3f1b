package http

import (
	"errors"
	"net/http"

	"nozze/internal/core"
	"nozze/internal/log"
	"nozze/internal/services"
)

// errInvalidField marks a form value that could not be parsed.
var errInvalidField = errors.New("invalid field")

// validationMessages maps domain errors a user can fix onto the text shown in
// the error fragment.
var validationMessages = []struct {
	err error
	msg string
}{
	{core.ErrInvalidAmount, "Importo non valido"},
	{core.ErrInvalidCapacity, "Capienza non valida"},
	{core.ErrCapacityTooLarge, "Capienza troppo grande (massimo 1000)"},
	{core.ErrTableFull, "Il tavolo è al completo"},
	{core.ErrGuestNotEligible, "Solo gli invitati confermati possono essere assegnati a un tavolo"},
	{core.ErrEmptyName, "Il nome è obbligatorio"},
	{core.ErrNameTooLong, "Nome troppo lungo (massimo 100 caratteri)"},
	{core.ErrEmptyTitle, "Il titolo è obbligatorio"},
	{core.ErrTitleTooLong, "Titolo troppo lungo (massimo 200 caratteri)"},
	{core.ErrInvalidEmail, "Email non valida"},
	{core.ErrInvalidRSVP, "Stato RSVP non valido"},
	{core.ErrInvalidSide, "Lato non valido"},
	{core.ErrInvalidStatus, "Stato non valido"},
	{core.ErrInvalidPriority, "Priorità non valida"},
	{core.ErrWeddingMismatch, "Elementi di matrimoni diversi"},
	{core.ErrDescriptionTooLong, "Descrizione troppo lunga (massimo 200 caratteri)"},
	{errInvalidField, "Valore non valido nel modulo"},
	{services.ErrUnknownStrategy, "Strategia di assegnazione sconosciuta"},
}

// errorResponse classifies err: fixable input is 422, a missing record 404,
// anything else 500.
func errorResponse(err error) *HTMXResponseBuilder {
	if errors.Is(err, core.ErrNotFound) {
		return NotFoundError("Elemento non trovato")
	}
	for _, v := range validationMessages {
		if errors.Is(err, v.err) {
			return UnprocessableEntityError(v.msg)
		}
	}
	return InternalServerError("Errore interno, riprova più tardi")
}

// writeError logs server-side failures and writes the mapped response.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error, operation string) {
	resp := errorResponse(err)
	if resp.statusCode >= http.StatusInternalServerError {
		log.NewStructuredLogger(log.FromContext(r.Context())).
			LogError(r.Context(), "Request failed", err, operation,
				log.NewFields().WithComponent(log.ComponentHTTP))
	}
	resp.Write(w)
}
