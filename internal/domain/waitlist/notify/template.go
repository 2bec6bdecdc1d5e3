// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package notify implements the Notification Dispatcher (spec §4.7): it
// renders the confirm/decline message, sends it through a pluggable
// Transport, and reports the outcome to the engine, which records it on
// the Notification row. It never
// changes slot or entry status — that stays the engine's job.
package notify

import (
	"bytes"
	"text/template"

	"github.com/ManuGH/waitlistd/internal/domain/waitlist/model"
)

// TemplateData is the template contract every notification body is rendered
// against (spec §4.7).
type TemplateData struct {
	CustomerName string
	ServiceName  string
	StaffName    string
	Date         string
	Time         string
	Duration     string
	Price        string
	ConfirmLink  string
	DeclineLink  string
}

const defaultBody = `Hi {{.CustomerName}}, a {{.ServiceName}} slot opened up` +
	`{{if .StaffName}} with {{.StaffName}}{{end}} on {{.Date}} at {{.Time}} ` +
	`({{.Duration}}, {{.Price}}). Confirm: {{.ConfirmLink}} Decline: {{.DeclineLink}}`

var defaultTemplate = template.Must(template.New("hold_notification").Parse(defaultBody))

// BuildTemplateData assembles TemplateData from domain entities plus the
// pre-signed links the caller already issued.
func BuildTemplateData(svc model.Service, staffName string, slot model.Slot, confirmLink, declineLink string) TemplateData {
	return TemplateData{
		ServiceName: svc.Name,
		StaffName:   staffName,
		Date:        slot.StartTime.Format("Mon Jan 2"),
		Time:        slot.StartTime.Format("3:04 PM"),
		Duration:    slot.Duration().String(),
		Price:       formatCents(svc.Price),
		ConfirmLink: confirmLink,
		DeclineLink: declineLink,
	}
}

// Render executes the given template (or the package default, if tmpl is
// nil) against data.
func Render(tmpl *template.Template, data TemplateData) (string, error) {
	if tmpl == nil {
		tmpl = defaultTemplate
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func formatCents(cents int64) string {
	neg := cents < 0
	if neg {
		cents = -cents
	}
	whole := cents / 100
	frac := cents % 100
	sign := ""
	if neg {
		sign = "-"
	}
	return sign + "$" + itoa(whole) + "." + pad2(frac)
}

func itoa(v int64) string {
	if v == 0 {
		return "0"
	}
	var buf [20]byte
	pos := len(buf)
	for v > 0 {
		pos--
		buf[pos] = byte('0' + v%10)
		v /= 10
	}
	return string(buf[pos:])
}

func pad2(v int64) string {
	s := itoa(v)
	if len(s) == 1 {
		return "0" + s
	}
	return s
}
