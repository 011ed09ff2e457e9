package email

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"time"
)

//go:embed templates/*.html
var templatesFS embed.FS

var templates = template.Must(
	template.New("email").Funcs(template.FuncMap{"human": humanDuration}).ParseFS(templatesFS, "templates/*.html"),
)

const (
	SubjectVerifyLink = "Verify your email"
	SubjectVerifyOTP  = "Your verification code"
)

// LinkData alimenta la plantilla del correo con enlace.
type LinkData struct {
	Name    string
	Link    string
	Expires time.Duration
}

// OTPData alimenta la plantilla del correo con codigo.
type OTPData struct {
	Name    string
	Code    string
	Expires time.Duration
}

func RenderVerifyLink(data LinkData) (string, error) {
	return render("verify_link.html", data)
}

func RenderVerifyOTP(data OTPData) (string, error) {
	return render("verify_otp.html", data)
}

func render(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// humanDuration formatea 6h como "6 hours" y 90m como "90 minutes".
func humanDuration(d time.Duration) string {
	if d >= time.Hour && d%time.Hour == 0 {
		return plural(int(d/time.Hour), "hour")
	}
	return plural(int(d.Round(time.Minute)/time.Minute), "minute")
}

func plural(n int, unit string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", unit)
	}
	return fmt.Sprintf("%d %ss", n, unit)
}
