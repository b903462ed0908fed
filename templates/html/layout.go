package templates

import (
	"fmt"
	"html"
)

// renderLayout wraps already-escaped body HTML in the branded layout. The subject is
// displayed in the header banner.
func renderLayout(subject, bodyHTML, siteURL string) string {
	safeSubject := html.EscapeString(subject)
	safeURL := html.EscapeString(siteURL)

	return fmt.Sprintf(`<!DOCTYPE html PUBLIC "-//W3C//DTD XHTML 1.0 Strict//EN" "http://www.w3.org/TR/xhtml1/DTD/xhtml1-strict.dtd">
<html xmlns="http://www.w3.org/1999/xhtml">
<head>
  <meta http-equiv="Content-Type" content="text/html; charset=utf-8">
  <meta name="viewport" content="width=device-width, initial-scale=1, minimum-scale=1, maximum-scale=1">
  <title>%s</title>
  <style type="text/css">
    body { font-family: Arial, sans-serif; margin: 0; padding: 0; background-color: #ffffff; }
    .container { max-width: 600px; margin: 0 auto; background-color: #ffffff; }
    .header { background: linear-gradient(135deg, #667eea 0%%, #764ba2 100%%); padding: 30px; text-align: center; }
    .header h1 { color: #fff; margin: 0; font-size: 24px; font-weight: 700; }
    .content { padding: 30px; color: #4a5568; line-height: 1.6; font-size: 15px; }
    .details { background: #f7fafc; padding: 25px; border-radius: 12px; margin: 25px 0; border-left: 4px solid #667eea; }
    .details p { margin: 8px 0; }
    .quote { background: #edf2f7; padding: 20px; border-radius: 8px; margin: 25px 0; font-style: italic; }
    .cta-button { display: inline-block; background: #667eea; color: #fff; padding: 12px 24px; border-radius: 6px; text-decoration: none; }
    .footer { padding: 20px; text-align: center; color: #718096; font-size: 14px; background: #f7fafc; }
    .footer a { color: #667eea; text-decoration: none; }
  </style>
</head>
<body>
  <div class="container">
    <div class="header">
      <h1>%s</h1>
    </div>
    <div class="content">
      %s
    </div>
    <div class="footer">
      <p>Urban Issue Reporter Team</p>
      <p><a href="%s">Making communities better, one issue at a time</a></p>
    </div>
  </div>
</body>
</html>`, safeSubject, safeSubject, bodyHTML, safeURL)
}
