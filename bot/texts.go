package bot

// Operator-facing copy. The bot speaks Spanish, logs stay in English.
const (
	msgWelcome = "¡Hola! Envíame fotos de la fachada de una inmobiliaria para registrarla.\n\n" +
		"1. Envía una o varias fotos del local\n" +
		"2. Pulsa ✅ Finalizar cuando termines\n" +
		"3. Confirma los datos detectados y comparte la ubicación"

	msgWelcomePending  = "¡Bienvenido! Tu solicitud de registro ha sido enviada a los administradores para aprobación."
	msgAccountPending  = "Tu solicitud aún está pendiente de aprobación. Por favor, espera la confirmación de un administrador."
	msgAccountRejected = "Lo siento, tu acceso ha sido denegado. Contacta a un administrador para más información."
	msgAuthError       = "Lo siento, ha ocurrido un error al registrarte. Por favor, intenta más tarde."

	msgPhotoReceivedFmt = "Foto %d recibida. Puedes seguir enviando más fotos o finalizar."
	msgPhotoWrongStep   = "⚠️ Por favor, completa el paso actual antes de enviar más fotos."
	msgNoPhotosYet      = "Debes enviar al menos una foto."
	msgAnalyzingFmt     = "🔄 Analizando %d fotos..."
	msgValidatingURLs   = "🔍 Validando URLs detectadas..."
	msgNoMainPhoto      = "No se detectó ninguna foto de la fachada del local. Por favor, asegúrate de incluir una foto del frente del local."
	msgAnalysisErrorFmt = "⚠️ Error al analizar las imágenes: %s\n\nPuedes:\n- Reintentar el análisis\n- Continuar e introducir los datos manualmente\n- Cancelar el proceso"

	msgAskName        = "No pude detectar el nombre de la inmobiliaria. Por favor, escríbelo."
	msgConfirmNameFmt = "¿El nombre es \"%s\"?"
	msgRetryName      = "Por favor, envía el nombre correcto de la inmobiliaria."

	msgSummaryHeader = "Resumen de la información detectada:\n\n"
	msgAskLocation   = "Por favor, comparte la ubicación de la inmobiliaria:"
	msgLocationOK    = "Ubicación recibida"

	msgFollowTheFlow     = "Por favor, sigue el proceso paso a paso. Envía una foto para comenzar."
	msgLocationWrongStep = "Por favor, envía la ubicación del local usando el botón 'Enviar ubicación' o comparte la ubicación manualmente."

	msgSaving       = "💾 Guardando los datos..."
	msgSavedFmt     = "✅ ¡Inmobiliaria \"%s\" registrada con éxito!"
	msgSaveError    = "❌ Error al guardar los datos. Por favor, intenta nuevamente."
	msgCancelled    = "Proceso cancelado. Puedes empezar de nuevo enviando una foto."
	msgSessionAged  = "La sesión ha caducado por inactividad. Envía una foto para empezar de nuevo."
	msgGenericError = "Lo siento, ha ocurrido un error. Por favor, intenta nuevamente."

	msgNotAdmin        = "No tienes permisos para ejecutar esta acción."
	msgApproveUsage    = "Por favor, proporciona el ID del usuario a aprobar."
	msgRejectUsage     = "Por favor, proporciona el ID del usuario a rechazar."
	msgUserApprovedFmt = "Usuario %d aprobado correctamente."
	msgUserRejectedFmt = "Usuario %d rechazado."
	msgSignupApproved  = "✅ ¡Tu solicitud ha sido aprobada!\n\nAhora puedes comenzar a usar el bot:\n1. Envía una foto de una inmobiliaria para registrarla\n2. Sigue las instrucciones paso a paso\n3. ¡Listo!"
	msgSignupRejected  = "Lo sentimos, tu solicitud de acceso ha sido rechazada."
	msgNewUserFmt      = "Nuevo usuario pendiente de aprobación:\n\n👤 %s\n🆔 %d"
	msgReviewLater     = "De acuerdo, quedará pendiente."
)
