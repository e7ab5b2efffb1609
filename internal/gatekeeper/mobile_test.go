package gatekeeper

import (
	"strings"
	"testing"
)

func TestStripHTMLRemovesScriptsAndStyles(t *testing.T) {
	t.Parallel()
	me := NewMobileEnforcer()

	html := `<style>.big { width: 1200px; }</style>
<script type="text/javascript">alert("spam");</script>
<!-- seller tool watermark -->
<div><b>Vintage camera</b> in working order.</div>`

	text := me.StripHTML(html)
	for _, gone := range []string{"alert", "1200px", "watermark", "<", ">"} {
		if strings.Contains(text, gone) {
			t.Errorf("stripped text %q still contains %q", text, gone)
		}
	}
	if !strings.Contains(text, "Vintage camera in working order.") {
		t.Errorf("stripped text = %q, content lost", text)
	}
}

func TestStripHTMLDecodesEntities(t *testing.T) {
	t.Parallel()
	me := NewMobileEnforcer()

	text := me.StripHTML(`Ben &amp; Jerry&#39;s &lt;limited&gt;&nbsp;run &copy; tag`)
	if !strings.Contains(text, "Ben & Jerry's <limited> run") {
		t.Errorf("text = %q, entities not decoded", text)
	}
	if strings.Contains(text, "copy") {
		t.Errorf("text = %q, unknown entity should be discarded", text)
	}
}

func TestStripHTMLMultilineScript(t *testing.T) {
	t.Parallel()
	me := NewMobileEnforcer()

	html := "before<script>\nvar x = 1;\nvar y = 2;\n</script>after"
	text := me.StripHTML(html)
	if strings.Contains(text, "var") {
		t.Errorf("text = %q, multiline script should be removed in full", text)
	}
	if !strings.Contains(text, "before") || !strings.Contains(text, "after") {
		t.Errorf("text = %q, surrounding content lost", text)
	}
}

func TestEnforceWrapsInResponsiveTemplate(t *testing.T) {
	t.Parallel()
	me := NewMobileEnforcer()

	out := me.Enforce("<div>First paragraph</div><p></p><p></p><div>Second paragraph</div>")
	if !strings.Contains(out, "max-width:800px") {
		t.Errorf("output missing responsive shell: %q", out)
	}
	if !strings.Contains(out, "font-size:16px") {
		t.Errorf("output missing 16px base font: %q", out)
	}
	if !strings.Contains(out, "First paragraph") || !strings.Contains(out, "Second paragraph") {
		t.Errorf("output lost content: %q", out)
	}
}

func TestEnforceEmptyInput(t *testing.T) {
	t.Parallel()
	me := NewMobileEnforcer()

	if out := me.Enforce("<style>.x{}</style><!-- nothing -->"); out != "" {
		t.Errorf("Enforce(markup-only) = %q, want empty", out)
	}
}

func TestIsMobileSafe(t *testing.T) {
	t.Parallel()
	me := NewMobileEnforcer()

	cases := []struct {
		name string
		html string
		want bool
	}{
		{"plain text", "Simple description with no markup", true},
		{"modest width", `<div style="width: 600px">ok</div>`, true},
		{"huge fixed width", `<div style="width: 1200px">wide</div>`, false},
		{"tiny px font", `<span style="font-size: 10px">fine print</span>`, false},
		{"tiny pt font", `<span style="font-size: 8pt">fine print</span>`, false},
		{"readable font", `<span style="font-size: 16px">body</span>`, true},
		{"table layout", `<table><tr><td>grid</td></tr></table>`, false},
		{"style block", `<style>p { color: red }</style>text`, false},
	}
	for _, c := range cases {
		if got := me.IsMobileSafe(c.html); got != c.want {
			t.Errorf("%s: IsMobileSafe = %v, want %v", c.name, got, c.want)
		}
	}
}
