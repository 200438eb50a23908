// ABOUTME: Template data structs for invitation email rendering.
package notify

// InvitationTemplateData is the context passed to invitation email templates.
type InvitationTemplateData struct {
	WorkspaceName string
	InviterName   string
	Role          string
	AcceptURL     string
	ExpiresAt     string
}
