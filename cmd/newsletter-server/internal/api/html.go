package api

import (
	"fmt"
	"net/http"
)

// htmlPage renders the minimal page shown after confirmation and unsubscribe
// link clicks. Wording stays short; the back link returns to the site.
func htmlPage(title, heading, message, backURL string) string {
	back := ""
	if backURL != "" {
		back = fmt.Sprintf(`  <p style="margin-top: 30px;"><a href="%s">&larr; Back to site</a></p>
`, backURL)
	}
	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<head><title>%s</title></head>
<body style="font-family: system-ui, sans-serif; max-width: 480px; margin: 50px auto; text-align: center; line-height: 1.5;">
  <h2>%s</h2>
  <p>%s</p>
%s</body>
</html>`, title, heading, message, back)
}

func (h *Handler) respondHTML(w http.ResponseWriter, status int, title, heading, message string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(htmlPage(title, heading, message, h.baseURL)))
}
