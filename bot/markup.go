package bot

import tele "gopkg.in/telebot.v3"

var mk = &tele.ReplyMarkup{}

var (
	btnPhotosDone  = mk.Data("✅ Finalizar", "photos_done")
	btnCancel      = mk.Data("❌ Cancelar", "cancel")
	btnConfirmInfo = mk.Data("✅ Sí, continuar", "confirm_info")
	btnFinalOK     = mk.Data("✅ Confirmar", "final_confirm")
	btnRetry       = mk.Data("🔄 Reintentar", "retry_analysis")
	btnManualInput = mk.Data("👤 Continuar sin análisis", "manual_input")
	btnConfirmName = mk.Data("✅ Sí", "confirm_name")
	btnRejectName  = mk.Data("✏️ No, corregir", "reject_name")

	btnApproveUser = mk.Data("✅ Aprobar", "approve_user")
	btnRejectUser  = mk.Data("❌ Rechazar", "reject_user")
	btnLaterUser   = mk.Data("⏳ Más tarde", "later_user")
)

func inline(rows ...tele.Row) *tele.ReplyMarkup {
	m := &tele.ReplyMarkup{}
	m.Inline(rows...)
	return m
}

func collectingMarkup() *tele.ReplyMarkup {
	return inline(mk.Row(btnPhotosDone, btnCancel))
}

func confirmMarkup() *tele.ReplyMarkup {
	return inline(mk.Row(btnConfirmInfo, btnCancel))
}

func finalMarkup() *tele.ReplyMarkup {
	return inline(mk.Row(btnFinalOK, btnCancel))
}

func analysisErrorMarkup() *tele.ReplyMarkup {
	return inline(mk.Row(btnRetry, btnManualInput), mk.Row(btnCancel))
}

func nameMarkup() *tele.ReplyMarkup {
	return inline(mk.Row(btnConfirmName, btnRejectName), mk.Row(btnCancel))
}

func cancelMarkup() *tele.ReplyMarkup {
	return inline(mk.Row(btnCancel))
}

func locationMarkup() *tele.ReplyMarkup {
	m := &tele.ReplyMarkup{ResizeKeyboard: true, OneTimeKeyboard: true}
	m.Reply(m.Row(m.Location("📍 Enviar ubicación")))
	return m
}

func adminReviewMarkup(telegramID string) *tele.ReplyMarkup {
	m := &tele.ReplyMarkup{}
	m.Inline(m.Row(
		m.Data(btnApproveUser.Text, btnApproveUser.Unique, telegramID),
		m.Data(btnRejectUser.Text, btnRejectUser.Unique, telegramID),
		m.Data(btnLaterUser.Text, btnLaterUser.Unique, telegramID),
	))
	return m
}
