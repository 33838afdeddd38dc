package notify

import (
	"strings"
	"text/template"
)

const welcomeSubject = "Your account has been created"

const welcomeTemplate = `Hello {{.FirstName}},

Your account has been created.

Username: {{.Username}}
Temporary password: {{.Password}}

You will be asked to choose a new password on first login.
`

var welcomeTmpl = template.Must(template.New("welcome").Parse(welcomeTemplate))

// WelcomeEmail renders the credential-delivery message sent after a
// successful provisioning run.
func WelcomeEmail(firstName, username, password string) (subject, body string, err error) {
	var buf strings.Builder
	err = welcomeTmpl.Execute(&buf, struct {
		FirstName, Username, Password string
	}{firstName, username, password})
	if err != nil {
		return "", "", err
	}
	return welcomeSubject, buf.String(), nil
}
