package utils

import "testing"

func TestStripHTML(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "plain paragraph",
			input: "<p>Hello   world</p>",
			want:  "Hello world",
		},
		{
			name:  "style and script are dropped",
			input: "<style>p{color:red}</style><script>alert(1)</script><p>Real content</p>",
			want:  "Real content",
		},
		{
			name:  "nested markup",
			input: "<div><h1>Title</h1><p>Body <strong>bold</strong> text</p></div>",
			want:  "Title Body bold text",
		},
		{
			name:  "footer boilerplate is dropped",
			input: "<p>Keep this</p><footer>Unsubscribe here</footer>",
			want:  "Keep this",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StripHTML(tt.input); got != tt.want {
				t.Errorf("StripHTML() = %q, want %q", got, tt.want)
			}
		})
	}
}
