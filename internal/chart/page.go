package chart

import (
	"html/template"
	"io"

	"github.com/zuhrulumam/mortchart/internal/tooltip"
)

// PageData feeds the HTML wrapper around a chart
type PageData struct {
	Title string

	// SVG is an already rendered chart. When empty the page fetches
	// ChartURL sized to its container and refetches on every resize.
	SVG      template.HTML
	ChartURL string

	Message      string
	MessageColor string

	Tooltip tooltip.Config
}

type pageView struct {
	PageData
	ShowMS int64
	HideMS int64
}

var pageTemplate = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>{{.Title}}</title>
<style>
body { font-family: sans-serif; margin: 20px; }
#chart-container { width: 100%; }
#loading-message { display: {{if .Message}}block{{else}}none{{end}}; font-style: italic; }
.bar { fill: {{.Tooltip.BarColor}}; }
.tooltip {
  position: absolute; pointer-events: none; padding: 6px 8px; white-space: pre-line;
  background: #fff; border: 1px solid #ccc; border-radius: 4px; font-size: 12px;
  opacity: 0;
}
</style>
</head>
<body>
<h1>{{.Title}}</h1>
<div id="loading-message"{{if .MessageColor}} style="color: {{.MessageColor}}"{{end}}>{{.Message}}</div>
<div id="chart-container">{{.SVG}}</div>
<div class="tooltip" id="tooltip"></div>
<script>
(function () {
  var cfg = {
    opacity: {{.Tooltip.ShowOpacity}},
    showMS: {{.ShowMS}},
    hideMS: {{.HideMS}},
    dx: {{.Tooltip.OffsetX}},
    dy: {{.Tooltip.OffsetY}},
    base: {{.Tooltip.BarColor}},
    hover: {{.Tooltip.HoverColor}},
    url: {{.ChartURL}}
  };
  var tip = document.getElementById("tooltip");
  var container = document.getElementById("chart-container");
  var message = document.getElementById("loading-message");

  window.mortchart = {
    enter: function (bar, ev) {
      tip.style.transition = "opacity " + cfg.showMS + "ms";
      tip.style.opacity = cfg.opacity;
      tip.textContent = bar.getAttribute("data-tooltip");
      tip.style.left = (ev.pageX + cfg.dx) + "px";
      tip.style.top = (ev.pageY + cfg.dy) + "px";
      bar.style.fill = cfg.hover;
    },
    leave: function (bar) {
      tip.style.transition = "opacity " + cfg.hideMS + "ms";
      tip.style.opacity = 0;
      bar.style.fill = cfg.base;
    }
  };

  if (!cfg.url) {
    return;
  }

  function load(quiet) {
    var width = Math.floor(container.getBoundingClientRect().width);
    return fetch(cfg.url + "?width=" + width + (quiet ? "&resize=1" : "")).then(function (resp) {
      return resp.text().then(function (body) {
        if (!resp.ok) {
          if (quiet) {
            console.error("chart reload failed:", resp.status, body);
            return;
          }
          message.textContent = body;
          message.style.color = resp.status === 422 ? "orange" : "red";
          message.style.display = "block";
          return;
        }
        message.style.display = "none";
        container.innerHTML = body;
      });
    }).catch(function (err) {
      console.error("chart request failed:", err);
      if (!quiet) {
        message.textContent = "Error loading data. Check the log for details.";
        message.style.color = "red";
      }
    });
  }

  load(false);
  window.addEventListener("resize", function () { load(true); });
})();
</script>
</body>
</html>
`))

// WritePage writes the HTML page for data
func WritePage(w io.Writer, data PageData) error {
	if data.Title == "" {
		data.Title = "Mortality by Cause"
	}
	return pageTemplate.Execute(w, pageView{
		PageData: data,
		ShowMS:   data.Tooltip.ShowDuration.Milliseconds(),
		HideMS:   data.Tooltip.HideDuration.Milliseconds(),
	})
}
