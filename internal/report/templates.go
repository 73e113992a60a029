package report

import "html/template"

var pageTemplate = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html lang='en'>
<head>
  <meta charset='UTF-8'>
  <meta name='viewport' content='width=device-width, initial-scale=1.0'>
  <title>{{.Title}}</title>
</head>
<body style='background:#f4f6f8; margin:0; padding:32px;'>
{{range .Fragments}}{{.}}
{{end}}</body>
</html>
`))

var productionTemplate = template.Must(template.New("production").Parse(`
    <div style="border:3px solid #e67e22; border-radius:16px; padding:24px; margin-bottom:32px; font-family:'Segoe UI', Arial, sans-serif; background:linear-gradient(135deg,#fffbe6 0%,#ffe0b2 100%);">
        <h2 style="margin-top:0; color:#c0392b; font-size:2em;">🎭 {{.Title}} 🎶</h2>
        <ul style="list-style:none; padding-left:0; font-size:1.05em;">
            <li style="margin-bottom:8px;"><strong style="color:#8e44ad;">First Preview:</strong> <span style="color:#2d3436;">{{.FirstPreview}}</span></li>
            <li style="margin-bottom:8px;"><strong style="color:#16a085;">Opening Night:</strong> <span style="color:#2d3436;">{{.OpeningNight}}</span></li>
            <li style="margin-bottom:8px;"><strong style="color:#d35400;">Closing Night:</strong> <span style="color:#2d3436;">{{.ClosingNight}}</span></li>
            <li style="margin-bottom:8px;"><strong style="color:#2980b9;">Venue:</strong> {{if .VenueURL}}<a href="{{.VenueURL}}" style="color:#e84393; font-weight:bold;">{{.VenueName}}</a>{{else}}{{.VenueName}}{{end}}</li>
            <li><strong style="color:#e67e22;">More Info:</strong> {{if .HasInfo}}<a href="{{.InfoURL}}" style="color:#27ae60; font-weight:bold;">Show Page</a>{{else}}N/A{{end}}</li>
        </ul>
    </div>
`))

var noticeTemplate = template.Must(template.New("notice").Parse(`
    <div style="border:2px dashed #c0392b; border-radius:12px; padding:16px; margin-bottom:24px; font-family:Arial, sans-serif; color:#c0392b;">
        <strong>{{.Show}}:</strong> {{.Message}}
    </div>
`))

var digestHTML = template.Must(template.New("digest").Funcs(digestFuncs).Parse(`<html>
<body style="font-family: Arial, sans-serif; line-height: 1.6; color: #333;">
{{- if .Records}}
    <h2 style="color: #8B4513;">🎭 {{.Author}} Productions Near You</h2>
    <p>Found {{len .Records}} {{.Author}} production(s) near {{.Location}}:</p>
{{- range $i, $r := .Records}}
    <div style="margin-bottom: 20px; padding: 15px; border-left: 4px solid #8B4513; background-color: #f9f9f9;">
        <h3 style="margin-top: 0; color: #8B4513;">{{inc $i}}. {{$r.Title}}</h3>
        <p><strong>Venue:</strong> {{$r.VenueName}}</p>
        <p><strong>Location:</strong> {{$r.Location}}{{distance $r}}</p>
        <p><strong>Dates:</strong> {{dates $r}}</p>
        {{- if infoLink $r}}
        <p><a href="{{$r.InfoURL}}" style="color: #8B4513;">More Information</a></p>
        {{- end}}
    </div>
{{- end}}
{{- else}}
    <h2>🎭 {{.Author}} Productions Alert</h2>
    <p>No {{.Author}} productions found near {{.Location}} at this time.</p>
    <p>We'll keep looking and notify you when something becomes available!</p>
{{- end}}
    <hr style="margin: 30px 0;">
    <p style="font-size: 12px; color: #666;">
        Generated on {{.Generated}}<br>
        {{.Author}} Alert Service
    </p>
</body>
</html>
`))
