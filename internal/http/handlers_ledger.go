package http

import (
	"bytes"
	"errors"
	"net/http"
	"strconv"

	"finanzas/internal/core"
	"finanzas/internal/export"
	"finanzas/internal/ledger"
	applog "finanzas/internal/log"
)

func (s *Server) handleGetLedger(w http.ResponseWriter, r *http.Request) {
	v, err := commandsFrom(r.Context()).View()
	if err != nil {
		ErrorResponse(StatusFor(err), ledger.LoadMessage(err)).Write(w)
		return
	}
	NewJSONResponse().Body(v).Write(w)
}

func (s *Server) handleAddEntry(w http.ResponseWriter, r *http.Request) {
	cat, err := PathCategory(r)
	if err != nil {
		NotFoundError(ledger.Message(err, "")).Write(w)
		return
	}
	var req entryRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		BadRequestError("Formato de solicitud inválido").Write(w)
		return
	}
	o := commandsFrom(r.Context()).AddEntry(r.Context(), cat, sanitizeInput(req.Description), string(req.Amount))
	s.logOutcome(r, applog.OpCreate, cat, o)
	OutcomeResponse(o, http.StatusCreated).Write(w)
}

func (s *Server) handleEditEntry(w http.ResponseWriter, r *http.Request) {
	cat, err := PathCategory(r)
	if err != nil {
		NotFoundError(ledger.Message(err, "")).Write(w)
		return
	}
	var req editRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		BadRequestError("Formato de solicitud inválido").Write(w)
		return
	}
	o := commandsFrom(r.Context()).EditEntry(r.Context(), cat, r.PathValue("id"), sanitizePtr(req.Description), amountPtr(req.Amount))
	s.logOutcome(r, applog.OpUpdate, cat, o)
	OutcomeResponse(o, http.StatusOK).Write(w)
}

// handleDeleteEntry answers 428 with the confirmation question unless
// ?confirm=true is given.
func (s *Server) handleDeleteEntry(w http.ResponseWriter, r *http.Request) {
	cat, err := PathCategory(r)
	if err != nil {
		NotFoundError(ledger.Message(err, "")).Write(w)
		return
	}
	o := commandsFrom(r.Context()).DeleteEntry(r.Context(), cat, r.PathValue("id"), QueryFlag(r, "confirm"))
	s.logOutcome(r, applog.OpDelete, cat, o)
	OutcomeResponse(o, http.StatusOK).Write(w)
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	var req resetRequest
	if err := DecodeJSON(w, r, &req); err != nil && !errors.Is(err, errEmptyBody) {
		BadRequestError("Formato de solicitud inválido").Write(w)
		return
	}
	o := commandsFrom(r.Context()).ResetAll(r.Context(), req.Confirm)
	if o.Report != nil {
		applog.FromContext(r.Context()).InfoContext(r.Context(), "Ledger reset finished",
			applog.FieldUserID, userIDFrom(r.Context()),
			applog.FieldOperation, applog.OpReset,
			"deleted", o.Report.Deleted,
			"failed", len(o.Report.Failed),
			applog.FieldSnapshotKey, o.Report.SnapshotKey)
	}
	OutcomeResponse(o, http.StatusOK).Write(w)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	v, err := commandsFrom(r.Context()).View()
	if err != nil {
		ErrorResponse(StatusFor(err), ledger.LoadMessage(err)).Write(w)
		return
	}
	var buf bytes.Buffer
	if err := export.WriteXLSX(&buf, v); err != nil {
		applog.FromContext(r.Context()).ErrorContext(r.Context(), "Failed to build export",
			applog.FieldUserID, userIDFrom(r.Context()),
			applog.FieldOperation, applog.OpExport,
			applog.FieldError, err)
		InternalServerError("Error al exportar los datos").Write(w)
		return
	}
	name := export.Filename(core.Today(s.now(), s.loc))
	w.Header().Set("Content-Type", export.ContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

func (s *Server) logOutcome(r *http.Request, op string, cat core.Category, o ledger.Outcome) {
	ctx := r.Context()
	if !o.OK {
		if StatusFor(o.Err) >= http.StatusInternalServerError {
			applog.NewStructuredLogger(applog.FromContext(ctx)).LogError(ctx, "Ledger write failed", o.Err,
				applog.ComponentLedger, op,
				applog.NewFields().WithEntry(userIDFrom(ctx), cat.Collection(), r.PathValue("id"), 0))
		}
		return
	}
	id := r.PathValue("id")
	var cents int64
	if o.Entry != nil {
		id, cents = o.Entry.ID, o.Entry.AmountCents
	}
	applog.NewStructuredLogger(applog.FromContext(ctx)).LogEntryMutation(ctx, op, userIDFrom(ctx), cat.Collection(), id, cents)
}
