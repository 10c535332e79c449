package html

import (
	"context"
	"strings"
	"testing"
)

func TestExtractor_Extensions(t *testing.T) {
	e := New()
	exts := e.Extensions()
	if len(exts) != 2 || exts[0] != ".html" || exts[1] != ".htm" {
		t.Errorf("unexpected extensions: %v", exts)
	}
}

func TestExtractor_Extract_StripsChrome(t *testing.T) {
	e := New()

	doc := `<html><head><title>ignored</title><style>p{color:red}</style></head>
<body>
<header>Site header</header>
<nav>Home | About</nav>
<p>Actual content here.</p>
<script>alert("x")</script>
<footer>Copyright</footer>
</body></html>`

	text, err := e.Extract(context.Background(), []byte(doc))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(text, "Actual content here.") {
		t.Errorf("expected body content, got %q", text)
	}
	for _, gone := range []string{"Site header", "Home | About", "alert", "Copyright", "color:red"} {
		if strings.Contains(text, gone) {
			t.Errorf("expected %q to be stripped, got %q", gone, text)
		}
	}
}

func TestExtractor_Extract_StripsSignatures(t *testing.T) {
	e := New()

	doc := `<html><body>
<p>Hello, see attached report.</p>
<div class="gmail_signature">Kim Minsu | Sales Team | 010-1234-5678</div>
<div id="email-signature">Best regards</div>
</body></html>`

	text, err := e.Extract(context.Background(), []byte(doc))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(text, "see attached report") {
		t.Errorf("expected body text, got %q", text)
	}
	if strings.Contains(text, "Kim Minsu") || strings.Contains(text, "Best regards") {
		t.Errorf("expected signature blocks stripped, got %q", text)
	}
}

func TestExtractor_Extract_StripsShortDisclaimers(t *testing.T) {
	e := New()

	doc := `<html><body>
<p>Quarterly numbers are up 12%.</p>
<div>본 메일은 발신전용입니다. This message is confidential.</div>
</body></html>`

	text, err := e.Extract(context.Background(), []byte(doc))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(text, "Quarterly numbers") {
		t.Errorf("expected content kept, got %q", text)
	}
	if strings.Contains(text, "발신전용") || strings.Contains(text, "confidential") {
		t.Errorf("expected disclaimer stripped, got %q", text)
	}
}

func TestExtractor_Extract_KeepsLongBlocksMentioningMarkers(t *testing.T) {
	e := New()

	long := strings.Repeat("The confidential project timeline shifted by a week. ", 15)
	doc := "<html><body><div>" + long + "</div></body></html>"

	text, err := e.Extract(context.Background(), []byte(doc))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(text, "project timeline") {
		t.Errorf("long content mentioning a marker word should be kept, got %q", text)
	}
}

func TestExtractor_Extract_TablePreservesCellBoundaries(t *testing.T) {
	e := New()

	doc := `<html><body><table>
<tr><td>Name</td><td>Amount</td></tr>
<tr><td>Widget</td><td>42</td></tr>
</table></body></html>`

	text, err := e.Extract(context.Background(), []byte(doc))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.Contains(text, "NameAmount") {
		t.Errorf("cells should not run together, got %q", text)
	}
}
