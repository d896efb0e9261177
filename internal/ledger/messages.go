package ledger

import (
	"errors"
	"fmt"

	"finanzas/internal/core"
)

// Spanish user-facing texts.
const (
	msgSignInRequired     = "Debes iniciar sesión"
	msgEmptyDescription   = "Por favor ingresa una descripción"
	msgInvalidAmount      = "Por favor ingresa una cantidad válida"
	msgNothingToUpdate    = "No hay cambios para guardar"
	msgNotFound           = "El registro ya no existe, recarga la página"
	msgUnknownCategory    = "Categoría desconocida"
	msgLoadFailed         = "Error al cargar los datos"
	msgResetDone          = "Todos los datos han sido eliminados"
	msgResetFailed        = "Error al eliminar datos"
	msgResetConfirm       = "¿Estás seguro de que quieres eliminar todos los datos? Esta acción no se puede deshacer."
	msgDescriptionUpdated = "Descripción actualizada"
	msgAmountUpdated      = "Cantidad actualizada"
)

type noun struct{ title, lower string }

var nouns = map[core.Category]noun{
	core.Income:  {"Ingreso", "ingreso"},
	core.Expense: {"Gasto", "gasto"},
	core.Saving:  {"Ahorro", "ahorro"},
}

func nounOf(c core.Category) noun {
	if n, ok := nouns[c]; ok {
		return n
	}
	return noun{"Registro", "registro"}
}

func addedMessage(e core.Entry) string {
	return fmt.Sprintf("%s agregado: %s - %s", nounOf(e.Category).title, e.Description, e.Amount.MXN())
}

func deletedMessage(c core.Category) string { return nounOf(c).title + " eliminado" }

func updatedMessage(c core.Category, p core.EntryPatch) string {
	switch {
	case p.Description != nil && p.Amount != nil:
		return nounOf(c).title + " actualizado"
	case p.Description != nil:
		return msgDescriptionUpdated
	default:
		return msgAmountUpdated
	}
}

// DeleteConfirmation is the question to ask before deleting an entry of c.
func DeleteConfirmation(c core.Category) string {
	return fmt.Sprintf("¿Estás seguro de que quieres eliminar este %s?", nounOf(c).lower)
}

// ResetConfirmation is the question to ask before resetting the ledger.
func ResetConfirmation() string { return msgResetConfirm }

// message maps err to the text shown for operation op ("agregar",
// "actualizar", "eliminar") on category c.
func message(err error, op string, c core.Category) string {
	n := nounOf(c)
	switch {
	case errors.Is(err, core.ErrUnauthenticated):
		return msgSignInRequired
	case errors.Is(err, core.ErrUnknownCategory):
		return msgUnknownCategory
	case errors.Is(err, core.ErrEmptyDescription):
		return msgEmptyDescription
	case errors.Is(err, core.ErrInvalidAmount):
		return msgInvalidAmount
	case errors.Is(err, core.ErrInsufficientFunds):
		return "No tienes suficiente dinero disponible para este " + n.lower
	case errors.Is(err, core.ErrEmptyPatch):
		return msgNothingToUpdate
	case errors.Is(err, core.ErrNotFound):
		return msgNotFound
	case errors.Is(err, core.ErrConfirmationRequired):
		return DeleteConfirmation(c)
	}
	return fmt.Sprintf("Error al %s %s", op, n.lower)
}

// LoadMessage maps a failed session load to its user-facing text.
func LoadMessage(err error) string {
	if errors.Is(err, core.ErrUnauthenticated) {
		return msgSignInRequired
	}
	return msgLoadFailed
}
