package mailer

import (
	"fmt"
	"strings"
	"time"

	"github.com/andino/pulso/internal/models"
	"github.com/andino/pulso/services/checkin-service/internal/checkin"
)

func fmtDate(d time.Time) string {
	return d.Format(models.DateFormat)
}

// SubjectDaily is the subject of the morning check-in prompt.
func SubjectDaily(d time.Time, employeeName string) string {
	return fmt.Sprintf("[Seguimiento diario] %s — %s", fmtDate(d), employeeName)
}

// BodyDaily is the morning prompt asking for the structured task block.
func BodyDaily(d time.Time, employeeName string) string {
	return fmt.Sprintf(`Hola %s,

Por favor responde con este bloque (puedes editarlo). Si lo prefieres, responde en texto libre;
nuestro sistema interpretará el contenido automáticamente:

empleado: %s
fecha: %s
tareas:
  - title: <tarea>
    status: pendiente|en_progreso|completado
    progress: 0
    next_steps: <pasos>
    blocker: ninguno

¡Gracias!
`, employeeName, employeeName, fmtDate(d))
}

// SubjectReminder keeps the original subject with a Re: prefix so clients
// that do not add it themselves still show a coherent thread.
func SubjectReminder(d time.Time, employeeName string) string {
	return "Re: " + SubjectDaily(d, employeeName)
}

// BodyReminder is the in-thread nudge for a pending check-in.
func BodyReminder(employeeName string) string {
	return fmt.Sprintf(`Hola %s,

Recordatorio amable: aún no recibimos tu actualización de hoy.
¿Nos ayudas respondiendo a este hilo? ¡Gracias!
`, employeeName)
}

// SubjectDigest is the subject of the end-of-day digest.
func SubjectDigest(d time.Time) string {
	return fmt.Sprintf("[Resumen diario] %s", fmtDate(d))
}

// BodyDigest renders the daily digest: team totals followed by the
// per-person breakdown with blocker notes.
func BodyDigest(d time.Time, totals checkin.Summary, perEmployee []checkin.EmployeeReport) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Fecha: %s\n", fmtDate(d))
	fmt.Fprintf(&b, "Equipo total (check-ins): %d\n", totals.Total)
	fmt.Fprintf(&b, "Respondieron: %d\n", totals.Responded)
	fmt.Fprintf(&b, "Pendientes: %d\n", totals.Pending)
	fmt.Fprintf(&b, "Tareas con bloqueo: %d\n", totals.Blockers)
	b.WriteString("\nDetalle por persona:\n")
	for _, p := range perEmployee {
		name := p.Name
		if name == "" {
			name = "—"
		}
		fmt.Fprintf(&b, "- %s: %d completadas, %d en progreso, %d pendientes\n",
			name,
			p.Counts[models.StatusCompletado],
			p.Counts[models.StatusEnProgreso],
			p.Counts[models.StatusPendiente],
		)
		for _, blocker := range p.Blockers {
			fmt.Fprintf(&b, "    • Bloqueo: %s\n", blocker)
		}
	}
	return b.String()
}
