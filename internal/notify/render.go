// ABOUTME: Template rendering for invitation emails.
// ABOUTME: Templates parsed once at init from embedded FS; rendered per delivery.
package notify

import (
	"bytes"
	"embed"
	"fmt"
	htmltpl "html/template"
	"strings"
	texttpl "text/template"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

// Parsed once at init; rendering is per delivery.
var (
	invitationHTML *htmltpl.Template
	invitationText *texttpl.Template
)

func init() {
	invitationHTML = htmltpl.Must(htmltpl.New("").ParseFS(templateFS, "templates/email_invitation.html.tmpl"))
	invitationText = texttpl.Must(texttpl.New("").ParseFS(templateFS, "templates/email_invitation.txt.tmpl"))
}

// RenderInvitation renders a workspace invitation email. Returns subject,
// HTML body, and plaintext body.
func RenderInvitation(data InvitationTemplateData) (string, string, string, error) {
	// Render subject from the text template's "subject" block.
	var subjectBuf bytes.Buffer
	if err := invitationText.ExecuteTemplate(&subjectBuf, "subject", data); err != nil {
		return "", "", "", fmt.Errorf("render subject: %w", err)
	}
	subject := sanitizeSubject(subjectBuf.String())

	var htmlBuf bytes.Buffer
	if err := invitationHTML.ExecuteTemplate(&htmlBuf, "body", data); err != nil {
		return "", "", "", fmt.Errorf("render html: %w", err)
	}

	var textBuf bytes.Buffer
	if err := invitationText.ExecuteTemplate(&textBuf, "body", data); err != nil {
		return "", "", "", fmt.Errorf("render text: %w", err)
	}

	return subject, htmlBuf.String(), textBuf.String(), nil
}

// sanitizeSubject strips CR/LF to prevent email header injection.
func sanitizeSubject(s string) string {
	s = strings.TrimSpace(s)
	return strings.NewReplacer("\r", "", "\n", "").Replace(s)
}
