package notify

import "testing"

func TestHTMLBodyEscapesMarkup(t *testing.T) {
	got := htmlBody(`join <script>alert("x")</script> & bring "shoes"`)
	want := `<pre>join &lt;script&gt;alert(&#34;x&#34;)&lt;/script&gt; &amp; bring &#34;shoes&#34;</pre>`
	if got != want {
		t.Errorf("htmlBody = %s, want %s", got, want)
	}
}

func TestHTMLBodyPlainTextUnchanged(t *testing.T) {
	got := htmlBody("Dana invited you to train together.")
	if got != "<pre>Dana invited you to train together.</pre>" {
		t.Errorf("htmlBody = %s", got)
	}
}
