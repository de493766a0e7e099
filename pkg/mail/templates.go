package mail

import (
	"bytes"
	"embed"
	"html/template"

	"github.com/pkg/errors"
)

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(template.ParseFS(templateFS, "templates/*.html"))

const ActivationSubject = "Account activation"

type ActivationData struct {
	Username        string
	ConfirmationURL string
	ActivationCode  string
}

// ActivationMessage renders the account activation email.
func ActivationMessage(to string, data ActivationData) (*Message, error) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, "activate_account.html", data); err != nil {
		return nil, errors.WithStack(err)
	}
	return &Message{
		To:       to,
		ToName:   data.Username,
		Subject:  ActivationSubject,
		HTMLBody: buf.String(),
	}, nil
}
