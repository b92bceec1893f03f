package bot

import (
	"fmt"
	"strings"

	"github.com/StartupEmbassy/AgencyAtlas/session"
)

func formatSummary(d *session.Draft) string {
	var sb strings.Builder
	sb.WriteString(msgSummaryHeader)
	fmt.Fprintf(&sb, "🏢 Nombre: %s\n", orDash(d.Name))
	fmt.Fprintf(&sb, "📸 Fotos: %d\n", len(d.Photos))
	fmt.Fprintf(&sb, "🌐 Web: %s\n", orDash(d.WebURL))
	if len(d.QRs) > 0 {
		fmt.Fprintf(&sb, "🔗 Códigos QR: %d\n", len(d.QRs))
		for _, qr := range d.QRs {
			if qr.URL != "" {
				fmt.Fprintf(&sb, "  - %s\n", qr.URL)
			} else {
				fmt.Fprintf(&sb, "  - %s\n", qr.Data)
			}
		}
	}
	if len(d.Contact.Phones) > 0 {
		fmt.Fprintf(&sb, "📞 Teléfonos: %s\n", strings.Join(d.Contact.Phones, ", "))
	}
	if len(d.Contact.Emails) > 0 {
		fmt.Fprintf(&sb, "📧 Emails: %s\n", strings.Join(d.Contact.Emails, ", "))
	}
	if d.Contact.BusinessHours != "" {
		fmt.Fprintf(&sb, "🕐 Horario: %s\n", d.Contact.BusinessHours)
	}
	if d.Location != nil {
		fmt.Fprintf(&sb, "📍 Ubicación: %.5f, %.5f\n", d.Location.Latitude, d.Location.Longitude)
	}
	return sb.String()
}

func orDash(s string) string {
	if s == "" {
		return "No detectado"
	}
	return s
}
